package reservation

import (
	"context"
	"fmt"
	"time"

	"github.com/nathanufpb/Sistema-de-Agendamentos-cmfam/internal/model"
)

// DetailReader は表示用の予約一覧を取得するインターフェース。
type DetailReader interface {
	ListStartingBetween(ctx context.Context, from, to time.Time) ([]model.ReservationDetail, error)
	ListEndingAfterByEquipment(ctx context.Context, equipmentID string, after time.Time) ([]model.ReservationDetail, error)
	ListActiveDetailsByEquipment(ctx context.Context, equipmentID string) ([]model.ReservationDetail, error)
	ListAll(ctx context.Context) ([]model.ReservationDetail, error)
	CountByStatus(ctx context.Context) (map[model.ReservationStatus]int, error)
}

// FeedEntry はカレンダー表示用の予約エントリ。
type FeedEntry struct {
	ID     string
	Label  string // "<ユーザー名> (<状態>)"
	Start  time.Time
	End    time.Time
	Status model.ReservationStatus
}

// Stats は予約件数の集計結果。
type Stats struct {
	Total     int
	Confirmed int
	ByStatus  map[model.ReservationStatus]int
}

// QueryService は予約の参照系クエリを提供する。状態を変更しない。
type QueryService struct {
	store     DetailReader
	equipment EquipmentFinder
	now       func() time.Time
	loc       *time.Location
}

// NewQueryService はQueryServiceを生成する。「今日」の判定にはサーバーのローカルタイムゾーンを使う。
func NewQueryService(store DetailReader, equipment EquipmentFinder) *QueryService {
	return &QueryService{
		store:     store,
		equipment: equipment,
		now:       time.Now,
		loc:       time.Local,
	}
}

// TodaysReservations は開始日時が今日に含まれる予約を開始時刻の昇順で返す。
func (q *QueryService) TodaysReservations(ctx context.Context) ([]model.ReservationDetail, error) {
	now := q.now().In(q.loc)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, q.loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	list, err := q.store.ListStartingBetween(ctx, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("本日の予約の取得に失敗しました: %w", err)
	}
	return nonNil(list), nil
}

// UpcomingReservationsFor は指定機器の終了していない予約を開始時刻の昇順で返す。
// 取消済みの予約も含む。
func (q *QueryService) UpcomingReservationsFor(ctx context.Context, equipmentID string) ([]model.ReservationDetail, error) {
	if err := q.requireEquipment(ctx, equipmentID); err != nil {
		return nil, err
	}

	list, err := q.store.ListEndingAfterByEquipment(ctx, equipmentID, q.now())
	if err != nil {
		return nil, fmt.Errorf("今後の予約の取得に失敗しました: %w", err)
	}
	return nonNil(list), nil
}

// AllReservations は全予約を開始時刻の降順で返す。ユーザーによる絞り込みは行わない。
func (q *QueryService) AllReservations(ctx context.Context) ([]model.ReservationDetail, error) {
	list, err := q.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("予約一覧の取得に失敗しました: %w", err)
	}
	return nonNil(list), nil
}

// ReservationFeedFor は指定機器の取消済み以外の予約をカレンダー用エントリとして返す。
func (q *QueryService) ReservationFeedFor(ctx context.Context, equipmentID string) ([]FeedEntry, error) {
	if err := q.requireEquipment(ctx, equipmentID); err != nil {
		return nil, err
	}

	list, err := q.store.ListActiveDetailsByEquipment(ctx, equipmentID)
	if err != nil {
		return nil, fmt.Errorf("カレンダー用予約の取得に失敗しました: %w", err)
	}

	entries := make([]FeedEntry, 0, len(list))
	for _, d := range list {
		entries = append(entries, FeedEntry{
			ID:     d.ID,
			Label:  fmt.Sprintf("%s (%s)", d.UserName, d.Status),
			Start:  d.StartAt,
			End:    d.EndAt,
			Status: d.Status,
		})
	}
	return entries, nil
}

// Stats は予約の総数・確定件数・状態別件数を返す。
func (q *QueryService) Stats(ctx context.Context) (*Stats, error) {
	counts, err := q.store.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("予約件数の集計に失敗しました: %w", err)
	}

	st := &Stats{ByStatus: make(map[model.ReservationStatus]int, 3)}
	for _, status := range []model.ReservationStatus{
		model.ReservationStatusPending,
		model.ReservationStatusConfirmed,
		model.ReservationStatusCancelled,
	} {
		st.ByStatus[status] = counts[status]
		st.Total += counts[status]
	}
	st.Confirmed = counts[model.ReservationStatusConfirmed]
	return st, nil
}

func (q *QueryService) requireEquipment(ctx context.Context, equipmentID string) error {
	eq, err := q.equipment.FindByID(ctx, equipmentID)
	if err != nil {
		return fmt.Errorf("機器の取得に失敗しました: %w", err)
	}
	if eq == nil {
		return model.NewEquipmentNotFoundError(equipmentID)
	}
	return nil
}

func nonNil(list []model.ReservationDetail) []model.ReservationDetail {
	if list == nil {
		return []model.ReservationDetail{}
	}
	return list
}
