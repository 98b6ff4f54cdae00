// Package reservation は予約スケジューリングのドメインロジックを提供する。
// 時間帯の重複判定、予約の作成・取消、表示用の参照系クエリを含む。
package reservation

import (
	"context"
	"fmt"
	"time"

	"github.com/nathanufpb/Sistema-de-Agendamentos-cmfam/internal/model"
)

// EquipmentFinder は機器の存在確認に使うインターフェース。
type EquipmentFinder interface {
	FindByID(ctx context.Context, id string) (*model.Equipment, error)
}

// ActiveReservationLister は機器ごとの有効な予約一覧を返すインターフェース。
type ActiveReservationLister interface {
	ListActiveByEquipment(ctx context.Context, equipmentID string) ([]*model.Reservation, error)
}

// Detector は予約時間帯の重複を判定する。読み取り専用で状態を持たない。
type Detector struct {
	equipment    EquipmentFinder
	reservations ActiveReservationLister
}

// NewDetector はDetectorを生成する。
func NewDetector(equipment EquipmentFinder, reservations ActiveReservationLister) *Detector {
	return &Detector{
		equipment:    equipment,
		reservations: reservations,
	}
}

// Overlaps は既存の区間 [s, e) と候補 [cs, ce) が重なるかどうかを返す。
// 終了時刻と開始時刻が一致する連続した予約は重ならない。
func Overlaps(s, e, cs, ce time.Time) bool {
	return s.Before(ce) && e.After(cs)
}

// FindConflict は候補区間と重なる最初の有効な予約を返す。重複がなければnilを返す。
// 機器が存在しない場合はNotFoundエラーを返す。無効化された機器も判定対象とする。
// 候補区間の前後関係は検証しない。
func (d *Detector) FindConflict(ctx context.Context, equipmentID string, start, end time.Time) (*model.Reservation, error) {
	eq, err := d.equipment.FindByID(ctx, equipmentID)
	if err != nil {
		return nil, fmt.Errorf("機器の取得に失敗しました: %w", err)
	}
	if eq == nil {
		return nil, model.NewEquipmentNotFoundError(equipmentID)
	}

	existing, err := d.reservations.ListActiveByEquipment(ctx, equipmentID)
	if err != nil {
		return nil, fmt.Errorf("予約一覧の取得に失敗しました: %w", err)
	}

	for _, r := range existing {
		if !r.Status.IsActive() {
			continue
		}
		if Overlaps(r.StartAt, r.EndAt, start, end) {
			return r, nil
		}
	}
	return nil, nil
}

// HasConflict は候補区間が既存の有効な予約と重なるかどうかを返す。
func (d *Detector) HasConflict(ctx context.Context, equipmentID string, start, end time.Time) (bool, error) {
	conflict, err := d.FindConflict(ctx, equipmentID, start, end)
	if err != nil {
		return false, err
	}
	return conflict != nil, nil
}
