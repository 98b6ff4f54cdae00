// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/nathanufpb/Sistema-de-Agendamentos-cmfam/internal/model"
)

// リポジトリが返す結果種別。サービス層でmodel.APIErrorに変換する。
var (
	// ErrNotFound は更新対象の行が存在しないことを示す。
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateEmail はメールアドレスの一意制約違反を示す。
	ErrDuplicateEmail = errors.New("duplicate email")
	// ErrOverlap は同一機器で有効な予約と時間帯が重なることを示す。
	ErrOverlap = errors.New("reservation overlaps")
	// ErrInvalidReference は存在しない機器・ユーザーを参照したことを示す。
	ErrInvalidReference = errors.New("invalid reference")
)

// EquipmentUpdate は機器の更新内容。Activeがnilの場合は現在の有効フラグを維持する。
type EquipmentUpdate struct {
	Name        string
	Description string
	Location    string
	Active      *bool
	UpdatedAt   time.Time
}

// EquipmentRepository は機器データの永続化インターフェース。
type EquipmentRepository interface {
	// FindByID は指定IDの機器を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Equipment, error)

	// List は機器一覧を名前順で返す。onlyActiveがtrueの場合は有効な機器のみ返す。
	List(ctx context.Context, onlyActive bool) ([]*model.Equipment, error)

	// Create は機器を作成する。
	Create(ctx context.Context, equipment *model.Equipment) error

	// Update は機器の名前・説明・設置場所・有効フラグを更新し、更新後の機器を返す。
	// 対象が存在しない場合はErrNotFoundを返す。
	Update(ctx context.Context, id string, update EquipmentUpdate) (*model.Equipment, error)

	// SetActive は機器の有効フラグを更新する。
	// 対象が存在しない場合はErrNotFoundを返す。
	SetActive(ctx context.Context, id string, active bool) error
}

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// List はユーザー一覧を名前順で返す。
	List(ctx context.Context) ([]*model.User, error)

	// Create はユーザーを作成する。
	// メールアドレスが既に存在する場合はErrDuplicateEmailを返す。
	Create(ctx context.Context, user *model.User) error

	// Update はユーザーの名前・メールアドレス・権限を更新する。
	// 対象が存在しない場合はErrNotFound、メールアドレスが他ユーザーと重複する場合はErrDuplicateEmailを返す。
	Update(ctx context.Context, user *model.User) error
}

// ReservationRepository は予約データの永続化インターフェース。
type ReservationRepository interface {
	// FindByID は指定IDの予約を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Reservation, error)

	// ListActiveByEquipment は指定機器のキャンセル以外の予約を開始時刻の昇順で返す。
	ListActiveByEquipment(ctx context.Context, equipmentID string) ([]*model.Reservation, error)

	// CreateIfNoConflict は重複チェックと挿入を同一トランザクションで行う。
	// 機器単位のアドバイザリロックを取得した上で再チェックし、
	// 重複がある場合はErrOverlap、参照先が存在しない場合はErrInvalidReferenceを返す。
	CreateIfNoConflict(ctx context.Context, reservation *model.Reservation) error

	// UpdateStatus は予約の状態を更新する。
	// 対象が存在しない場合はErrNotFoundを返す。
	UpdateStatus(ctx context.Context, id string, status model.ReservationStatus) error

	// ListStartingBetween は開始時刻が [from, to) に含まれる予約を開始時刻の昇順で返す。
	ListStartingBetween(ctx context.Context, from, to time.Time) ([]model.ReservationDetail, error)

	// ListEndingAfterByEquipment は指定機器の終了時刻がafter以降の予約を開始時刻の昇順で返す。
	ListEndingAfterByEquipment(ctx context.Context, equipmentID string, after time.Time) ([]model.ReservationDetail, error)

	// ListActiveDetailsByEquipment は指定機器のキャンセル以外の予約をユーザー情報付きで開始時刻の昇順で返す。
	ListActiveDetailsByEquipment(ctx context.Context, equipmentID string) ([]model.ReservationDetail, error)

	// ListAll は全予約を開始時刻の降順で返す。
	ListAll(ctx context.Context) ([]model.ReservationDetail, error)

	// CountByStatus は状態ごとの予約件数を返す。
	CountByStatus(ctx context.Context) (map[model.ReservationStatus]int, error)
}
