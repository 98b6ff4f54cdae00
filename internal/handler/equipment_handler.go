package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nathanufpb/Sistema-de-Agendamentos-cmfam/internal/equipment"
	"github.com/nathanufpb/Sistema-de-Agendamentos-cmfam/internal/model"
)

// EquipmentServiceInterface は機器ハンドラーが必要とするサービスインターフェース。
type EquipmentServiceInterface interface {
	CreateEquipment(ctx context.Context, in equipment.Input) (*model.Equipment, error)
	UpdateEquipment(ctx context.Context, id string, in equipment.Input) (*model.Equipment, error)
	// SetEquipmentActive は有効フラグの生入力（"0"/"1"）を受け取り更新する。
	SetEquipmentActive(ctx context.Context, id, raw string) error
	GetEquipment(ctx context.Context, id string) (*model.Equipment, error)
	ListEquipment(ctx context.Context, onlyActive bool) ([]*model.Equipment, error)
}

// EquipmentHandler は機器管理のHTTPハンドラー。
type EquipmentHandler struct {
	service EquipmentServiceInterface
}

// NewEquipmentHandler はEquipmentHandlerを生成する。
func NewEquipmentHandler(service EquipmentServiceInterface) *EquipmentHandler {
	return &EquipmentHandler{service: service}
}

// equipmentRequest は機器の作成・更新リクエストのボディ。
type equipmentRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Active      *bool  `json:"active"`
}

// activeFlagRequest は有効フラグ更新リクエストのボディ。
// "1"、1、trueのいずれの表記も受け付ける。
type activeFlagRequest struct {
	Active json.RawMessage `json:"active"`
}

// equipmentResponse は機器情報のAPIレスポンス。
type equipmentResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toEquipmentResponse(eq *model.Equipment) equipmentResponse {
	return equipmentResponse{
		ID:          eq.ID,
		Name:        eq.Name,
		Description: eq.Description,
		Location:    eq.Location,
		Active:      eq.Active,
		CreatedAt:   eq.CreatedAt,
		UpdatedAt:   eq.UpdatedAt,
	}
}

func (req equipmentRequest) toInput() equipment.Input {
	return equipment.Input{
		Name:        req.Name,
		Description: req.Description,
		Location:    req.Location,
		Active:      req.Active,
	}
}

// ListEquipment は機器一覧を返す。
// GET /api/equipment?active=1
func (h *EquipmentHandler) ListEquipment(w http.ResponseWriter, r *http.Request) {
	onlyActive := false
	if raw := r.URL.Query().Get("active"); raw != "" {
		v, err := equipment.ParseActiveFlag(raw)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		onlyActive = v
	}

	list, err := h.service.ListEquipment(r.Context(), onlyActive)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]equipmentResponse, 0, len(list))
	for _, eq := range list {
		resp = append(resp, toEquipmentResponse(eq))
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateEquipment は機器を登録する。
// POST /api/equipment
func (h *EquipmentHandler) CreateEquipment(w http.ResponseWriter, r *http.Request) {
	var req equipmentRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	eq, err := h.service.CreateEquipment(r.Context(), req.toInput())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEquipmentResponse(eq))
}

// GetEquipment は機器詳細を返す。
// GET /api/equipment/{id}
func (h *EquipmentHandler) GetEquipment(w http.ResponseWriter, r *http.Request) {
	eq, err := h.service.GetEquipment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEquipmentResponse(eq))
}

// UpdateEquipment は機器情報を更新する。
// PUT /api/equipment/{id}
func (h *EquipmentHandler) UpdateEquipment(w http.ResponseWriter, r *http.Request) {
	var req equipmentRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	eq, err := h.service.UpdateEquipment(r.Context(), chi.URLParam(r, "id"), req.toInput())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEquipmentResponse(eq))
}

// SetEquipmentActive は機器の有効フラグを更新する。
// PUT /api/equipment/{id}/active
func (h *EquipmentHandler) SetEquipmentActive(w http.ResponseWriter, r *http.Request) {
	var req activeFlagRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	raw := strings.Trim(string(req.Active), `"`)
	if err := h.service.SetEquipmentActive(r.Context(), chi.URLParam(r, "id"), raw); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
