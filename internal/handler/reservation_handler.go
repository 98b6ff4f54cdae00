package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nathanufpb/Sistema-de-Agendamentos-cmfam/internal/model"
	"github.com/nathanufpb/Sistema-de-Agendamentos-cmfam/internal/reservation"
)

// ReservationServiceInterface は予約の作成・取消に必要なサービスインターフェース。
type ReservationServiceInterface interface {
	CreateReservation(ctx context.Context, in reservation.CreateInput) (*model.Reservation, error)
	// CancelReservation は予約を取り消す。取消済みの予約に対しては何もしない。
	CancelReservation(ctx context.Context, id string) error
	GetReservation(ctx context.Context, id string) (*model.Reservation, error)
}

// ReservationQueryInterface は予約の参照系クエリのインターフェース。
type ReservationQueryInterface interface {
	TodaysReservations(ctx context.Context) ([]model.ReservationDetail, error)
	UpcomingReservationsFor(ctx context.Context, equipmentID string) ([]model.ReservationDetail, error)
	AllReservations(ctx context.Context) ([]model.ReservationDetail, error)
	ReservationFeedFor(ctx context.Context, equipmentID string) ([]reservation.FeedEntry, error)
	Stats(ctx context.Context) (*reservation.Stats, error)
}

// ConflictChecker は時間帯の重複有無を判定するインターフェース。
type ConflictChecker interface {
	HasConflict(ctx context.Context, equipmentID string, start, end time.Time) (bool, error)
}

// ReservationHandler は予約管理のHTTPハンドラー。
type ReservationHandler struct {
	service  ReservationServiceInterface
	query    ReservationQueryInterface
	conflict ConflictChecker
}

// NewReservationHandler はReservationHandlerを生成する。
func NewReservationHandler(service ReservationServiceInterface, query ReservationQueryInterface, conflict ConflictChecker) *ReservationHandler {
	return &ReservationHandler{
		service:  service,
		query:    query,
		conflict: conflict,
	}
}

// createReservationRequest は予約作成リクエストのボディ。
// 日時はRFC 3339またはdatetime-local形式の文字列で受け付ける。
type createReservationRequest struct {
	EquipmentID string `json:"equipment_id"`
	UserID      string `json:"user_id"`
	StartAt     string `json:"start_at"`
	EndAt       string `json:"end_at"`
	Notes       string `json:"notes"`
}

// reservationResponse は予約情報のAPIレスポンス。
// 一覧系では機器名・ユーザー名を含める。
type reservationResponse struct {
	ID            string    `json:"id"`
	EquipmentID   string    `json:"equipment_id"`
	UserID        string    `json:"user_id"`
	StartAt       time.Time `json:"start_at"`
	EndAt         time.Time `json:"end_at"`
	Status        string    `json:"status"`
	Notes         string    `json:"notes"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	EquipmentName string    `json:"equipment_name,omitempty"`
	UserName      string    `json:"user_name,omitempty"`
	UserEmail     string    `json:"user_email,omitempty"`
}

// feedEntryResponse はカレンダー表示用エントリのAPIレスポンス。
type feedEntryResponse struct {
	ID     string    `json:"id"`
	Label  string    `json:"label"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Status string    `json:"status"`
}

type conflictResponse struct {
	Conflict bool `json:"conflict"`
}

type statsResponse struct {
	Total     int            `json:"total"`
	Confirmed int            `json:"confirmed"`
	ByStatus  map[string]int `json:"by_status"`
}

func toReservationResponse(res *model.Reservation) reservationResponse {
	return reservationResponse{
		ID:          res.ID,
		EquipmentID: res.EquipmentID,
		UserID:      res.UserID,
		StartAt:     res.StartAt,
		EndAt:       res.EndAt,
		Status:      string(res.Status),
		Notes:       res.Notes,
		CreatedAt:   res.CreatedAt,
		UpdatedAt:   res.UpdatedAt,
	}
}

func toReservationDetailResponses(list []model.ReservationDetail) []reservationResponse {
	resp := make([]reservationResponse, 0, len(list))
	for i := range list {
		d := &list[i]
		item := toReservationResponse(&d.Reservation)
		item.EquipmentName = d.EquipmentName
		item.UserName = d.UserName
		item.UserEmail = d.UserEmail
		resp = append(resp, item)
	}
	return resp
}

// CreateReservation は予約を作成する。
// POST /api/reservations
func (h *ReservationHandler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	var req createReservationRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	start, err := parseTimestamp("start_at", req.StartAt)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	end, err := parseTimestamp("end_at", req.EndAt)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	res, err := h.service.CreateReservation(r.Context(), reservation.CreateInput{
		EquipmentID: req.EquipmentID,
		UserID:      req.UserID,
		StartAt:     start,
		EndAt:       end,
		Notes:       req.Notes,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toReservationResponse(res))
}

// ListReservations は全予約を開始日時の降順で返す。
// GET /api/reservations
func (h *ReservationHandler) ListReservations(w http.ResponseWriter, r *http.Request) {
	list, err := h.query.AllReservations(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationDetailResponses(list))
}

// ListTodaysReservations は本日開始の予約を返す。
// GET /api/reservations/today
func (h *ReservationHandler) ListTodaysReservations(w http.ResponseWriter, r *http.Request) {
	list, err := h.query.TodaysReservations(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationDetailResponses(list))
}

// GetReservation は予約詳細を返す。
// GET /api/reservations/{id}
func (h *ReservationHandler) GetReservation(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.GetReservation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationResponse(res))
}

// CancelReservation は予約を取り消す。
// POST /api/reservations/{id}/cancel
func (h *ReservationHandler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	if err := h.service.CancelReservation(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListUpcomingForEquipment は指定機器の終了していない予約を返す。
// GET /api/equipment/{id}/reservations
func (h *ReservationHandler) ListUpcomingForEquipment(w http.ResponseWriter, r *http.Request) {
	list, err := h.query.UpcomingReservationsFor(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationDetailResponses(list))
}

// EquipmentFeed は指定機器のカレンダー表示用エントリを返す。
// GET /api/equipment/{id}/feed
func (h *ReservationHandler) EquipmentFeed(w http.ResponseWriter, r *http.Request) {
	entries, err := h.query.ReservationFeedFor(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]feedEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, feedEntryResponse{
			ID:     e.ID,
			Label:  e.Label,
			Start:  e.Start,
			End:    e.End,
			Status: string(e.Status),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// CheckConflict は指定時間帯が既存の有効な予約と重なるかを返す。
// GET /api/equipment/{id}/conflicts?start=&end=
func (h *ReservationHandler) CheckConflict(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := parseTimestamp("start", q.Get("start"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	end, err := parseTimestamp("end", q.Get("end"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if start.IsZero() || end.IsZero() {
		handleServiceError(w, model.NewValidationError("start", "開始日時と終了日時を指定してください"))
		return
	}

	conflict, err := h.conflict.HasConflict(r.Context(), chi.URLParam(r, "id"), start, end)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conflictResponse{Conflict: conflict})
}

// GetStats は予約件数の集計を返す。
// GET /api/stats
func (h *ReservationHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.query.Stats(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	byStatus := make(map[string]int, len(st.ByStatus))
	for status, n := range st.ByStatus {
		byStatus[string(status)] = n
	}
	writeJSON(w, http.StatusOK, statsResponse{
		Total:     st.Total,
		Confirmed: st.Confirmed,
		ByStatus:  byStatus,
	})
}
