package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nathanufpb/Sistema-de-Agendamentos-cmfam/internal/equipment"
	"github.com/nathanufpb/Sistema-de-Agendamentos-cmfam/internal/model"
	"github.com/nathanufpb/Sistema-de-Agendamentos-cmfam/internal/reservation"
	"github.com/nathanufpb/Sistema-de-Agendamentos-cmfam/internal/user"
)

// --- モック定義 ---

// mockEquipmentService はEquipmentServiceInterfaceのモック実装。
type mockEquipmentService struct {
	createFn    func(ctx context.Context, in equipment.Input) (*model.Equipment, error)
	updateFn    func(ctx context.Context, id string, in equipment.Input) (*model.Equipment, error)
	setActiveFn func(ctx context.Context, id, raw string) error
	getFn       func(ctx context.Context, id string) (*model.Equipment, error)
	listFn      func(ctx context.Context, onlyActive bool) ([]*model.Equipment, error)
}

func (m *mockEquipmentService) CreateEquipment(ctx context.Context, in equipment.Input) (*model.Equipment, error) {
	if m.createFn != nil {
		return m.createFn(ctx, in)
	}
	return nil, nil
}

func (m *mockEquipmentService) UpdateEquipment(ctx context.Context, id string, in equipment.Input) (*model.Equipment, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, in)
	}
	return nil, nil
}

func (m *mockEquipmentService) SetEquipmentActive(ctx context.Context, id, raw string) error {
	if m.setActiveFn != nil {
		return m.setActiveFn(ctx, id, raw)
	}
	return nil
}

func (m *mockEquipmentService) GetEquipment(ctx context.Context, id string) (*model.Equipment, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, nil
}

func (m *mockEquipmentService) ListEquipment(ctx context.Context, onlyActive bool) ([]*model.Equipment, error) {
	if m.listFn != nil {
		return m.listFn(ctx, onlyActive)
	}
	return nil, nil
}

// mockUserService はUserServiceInterfaceのモック実装。
type mockUserService struct {
	createFn func(ctx context.Context, in user.Input) (*model.User, error)
	updateFn func(ctx context.Context, id string, in user.Input) (*model.User, error)
	getFn    func(ctx context.Context, id string) (*model.User, error)
	listFn   func(ctx context.Context) ([]*model.User, error)
}

func (m *mockUserService) CreateUser(ctx context.Context, in user.Input) (*model.User, error) {
	if m.createFn != nil {
		return m.createFn(ctx, in)
	}
	return nil, nil
}

func (m *mockUserService) UpdateUser(ctx context.Context, id string, in user.Input) (*model.User, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, in)
	}
	return nil, nil
}

func (m *mockUserService) GetUser(ctx context.Context, id string) (*model.User, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserService) ListUsers(ctx context.Context) ([]*model.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

// mockReservationService はReservationServiceInterfaceのモック実装。
type mockReservationService struct {
	createFn func(ctx context.Context, in reservation.CreateInput) (*model.Reservation, error)
	cancelFn func(ctx context.Context, id string) error
	getFn    func(ctx context.Context, id string) (*model.Reservation, error)
}

func (m *mockReservationService) CreateReservation(ctx context.Context, in reservation.CreateInput) (*model.Reservation, error) {
	if m.createFn != nil {
		return m.createFn(ctx, in)
	}
	return nil, nil
}

func (m *mockReservationService) CancelReservation(ctx context.Context, id string) error {
	if m.cancelFn != nil {
		return m.cancelFn(ctx, id)
	}
	return nil
}

func (m *mockReservationService) GetReservation(ctx context.Context, id string) (*model.Reservation, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, nil
}

// mockReservationQuery はReservationQueryInterfaceのモック実装。
type mockReservationQuery struct {
	todayFn    func(ctx context.Context) ([]model.ReservationDetail, error)
	upcomingFn func(ctx context.Context, equipmentID string) ([]model.ReservationDetail, error)
	allFn      func(ctx context.Context) ([]model.ReservationDetail, error)
	feedFn     func(ctx context.Context, equipmentID string) ([]reservation.FeedEntry, error)
	statsFn    func(ctx context.Context) (*reservation.Stats, error)
}

func (m *mockReservationQuery) TodaysReservations(ctx context.Context) ([]model.ReservationDetail, error) {
	if m.todayFn != nil {
		return m.todayFn(ctx)
	}
	return nil, nil
}

func (m *mockReservationQuery) UpcomingReservationsFor(ctx context.Context, equipmentID string) ([]model.ReservationDetail, error) {
	if m.upcomingFn != nil {
		return m.upcomingFn(ctx, equipmentID)
	}
	return nil, nil
}

func (m *mockReservationQuery) AllReservations(ctx context.Context) ([]model.ReservationDetail, error) {
	if m.allFn != nil {
		return m.allFn(ctx)
	}
	return nil, nil
}

func (m *mockReservationQuery) ReservationFeedFor(ctx context.Context, equipmentID string) ([]reservation.FeedEntry, error) {
	if m.feedFn != nil {
		return m.feedFn(ctx, equipmentID)
	}
	return nil, nil
}

func (m *mockReservationQuery) Stats(ctx context.Context) (*reservation.Stats, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx)
	}
	return &reservation.Stats{}, nil
}

// mockConflictChecker はConflictCheckerのモック実装。
type mockConflictChecker struct {
	hasConflictFn func(ctx context.Context, equipmentID string, start, end time.Time) (bool, error)
}

func (m *mockConflictChecker) HasConflict(ctx context.Context, equipmentID string, start, end time.Time) (bool, error) {
	if m.hasConflictFn != nil {
		return m.hasConflictFn(ctx, equipmentID, start, end)
	}
	return false, nil
}

// --- ヘルパー ---

// withURLParam はchiのURLパラメータを設定したリクエストを返す。
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// decodeErrorBody は統一エラーフォーマットのレスポンスボディを読み取る。
func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) apiErrorResponse {
	t.Helper()
	var body apiErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body
}
