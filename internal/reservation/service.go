package reservation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nathanufpb/Sistema-de-Agendamentos-cmfam/internal/model"
	"github.com/nathanufpb/Sistema-de-Agendamentos-cmfam/internal/repository"
	"github.com/nathanufpb/Sistema-de-Agendamentos-cmfam/internal/security"
)

// UserFinder はユーザーの存在確認に使うインターフェース。
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// Store は予約の作成・取消に必要な永続化インターフェース。
type Store interface {
	ActiveReservationLister
	FindByID(ctx context.Context, id string) (*model.Reservation, error)
	CreateIfNoConflict(ctx context.Context, reservation *model.Reservation) error
	UpdateStatus(ctx context.Context, id string, status model.ReservationStatus) error
}

// Recorder は予約操作のメトリクス記録インターフェース。
type Recorder interface {
	RecordReservationCreated()
	RecordReservationConflict()
	RecordReservationCancelled()
	ObserveLockWait(d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordReservationCreated()     {}
func (nopRecorder) RecordReservationConflict()    {}
func (nopRecorder) RecordReservationCancelled()   {}
func (nopRecorder) ObserveLockWait(time.Duration) {}

// CreateInput は予約作成の入力値。
type CreateInput struct {
	EquipmentID string
	UserID      string
	StartAt     time.Time
	EndAt       time.Time
	Notes       string
}

// Service は予約のライフサイクルを管理するサービス層。
// 同一機器への作成処理はプロセス内で直列化し、重複判定から永続化までを不可分に行う。
type Service struct {
	users     UserFinder
	store     Store
	detector  *Detector
	sanitizer security.TextSanitizer
	recorder  Recorder
	locks     *keyedLocker
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// sanitizerがnilの場合はデフォルトのサニタイザー、recorderがnilの場合は記録を行わない実装を使う。
func NewService(
	equipment EquipmentFinder,
	users UserFinder,
	store Store,
	sanitizer security.TextSanitizer,
	recorder Recorder,
) *Service {
	if sanitizer == nil {
		sanitizer = security.NewTextSanitizer()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Service{
		users:     users,
		store:     store,
		detector:  NewDetector(equipment, store),
		sanitizer: sanitizer,
		recorder:  recorder,
		locks:     newKeyedLocker(),
		now:       time.Now,
	}
}

// Detector は重複判定に使用するDetectorを返す。
func (s *Service) Detector() *Detector {
	return s.detector
}

// CreateReservation は重複がない場合に予約を確定状態で作成する。
// 入力不備はValidationError、機器・ユーザーが存在しない場合はNotFoundエラー、
// 有効な予約と時間帯が重なる場合はConflictErrorを返し、いずれの場合も何も保存しない。
func (s *Service) CreateReservation(ctx context.Context, in CreateInput) (*model.Reservation, error) {
	in.EquipmentID = strings.TrimSpace(in.EquipmentID)
	in.UserID = strings.TrimSpace(in.UserID)
	if err := validateCreateInput(in); err != nil {
		return nil, err
	}

	waitStart := time.Now()
	unlock := s.locks.Lock(in.EquipmentID)
	defer unlock()
	s.recorder.ObserveLockWait(time.Since(waitStart))

	user, err := s.users.FindByID(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError(in.UserID)
	}

	conflict, err := s.detector.FindConflict(ctx, in.EquipmentID, in.StartAt, in.EndAt)
	if err != nil {
		return nil, err
	}
	if conflict != nil {
		return nil, s.conflictError(in, conflict.ID)
	}

	now := s.now()
	res := &model.Reservation{
		ID:          uuid.NewString(),
		EquipmentID: in.EquipmentID,
		UserID:      in.UserID,
		StartAt:     in.StartAt,
		EndAt:       in.EndAt,
		Status:      model.ReservationStatusConfirmed,
		Notes:       s.sanitizer.Sanitize(in.Notes),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.CreateIfNoConflict(ctx, res); err != nil {
		switch {
		case errors.Is(err, repository.ErrOverlap):
			// 別プロセスが先に同じ時間帯を確保した
			conflictingID := ""
			if c, findErr := s.detector.FindConflict(ctx, in.EquipmentID, in.StartAt, in.EndAt); findErr == nil && c != nil {
				conflictingID = c.ID
			}
			return nil, s.conflictError(in, conflictingID)
		case errors.Is(err, repository.ErrInvalidReference):
			return nil, model.NewEquipmentNotFoundError(in.EquipmentID)
		default:
			slog.Error("予約の保存に失敗しました",
				slog.String("equipment_id", in.EquipmentID),
				slog.String("error", err.Error()),
			)
			return nil, fmt.Errorf("予約の保存に失敗しました: %w", err)
		}
	}

	s.recorder.RecordReservationCreated()
	slog.Info("予約を作成しました",
		slog.String("reservation_id", res.ID),
		slog.String("equipment_id", res.EquipmentID),
		slog.String("user_id", res.UserID),
		slog.Time("start_at", res.StartAt),
		slog.Time("end_at", res.EndAt),
	)
	return res, nil
}

func (s *Service) conflictError(in CreateInput, conflictingID string) error {
	s.recorder.RecordReservationConflict()
	slog.Info("予約が既存の予約と重複しています",
		slog.String("equipment_id", in.EquipmentID),
		slog.String("conflicting_id", conflictingID),
	)
	return model.NewReservationConflictError(in.EquipmentID, conflictingID)
}

// CancelReservation は予約を取消状態にする。
// 既に取り消されている予約は何もせず成功とし、存在しない場合はNotFoundエラーを返す。
func (s *Service) CancelReservation(ctx context.Context, id string) error {
	res, err := s.store.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("予約の取得に失敗しました: %w", err)
	}
	if res == nil {
		return model.NewReservationNotFoundError(id)
	}
	if res.Status == model.ReservationStatusCancelled {
		return nil
	}

	if err := s.store.UpdateStatus(ctx, id, model.ReservationStatusCancelled); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewReservationNotFoundError(id)
		}
		return fmt.Errorf("予約の取消に失敗しました: %w", err)
	}

	s.recorder.RecordReservationCancelled()
	slog.Info("予約を取り消しました",
		slog.String("reservation_id", id),
		slog.String("previous_status", string(res.Status)),
	)
	return nil
}

// GetReservation は予約を取得する。存在しない場合はNotFoundエラーを返す。
func (s *Service) GetReservation(ctx context.Context, id string) (*model.Reservation, error) {
	res, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("予約の取得に失敗しました: %w", err)
	}
	if res == nil {
		return nil, model.NewReservationNotFoundError(id)
	}
	return res, nil
}

func validateCreateInput(in CreateInput) error {
	switch {
	case in.EquipmentID == "":
		return model.NewValidationError("equipment_id", "機器が指定されていません")
	case in.UserID == "":
		return model.NewValidationError("user_id", "ユーザーが指定されていません")
	case in.StartAt.IsZero():
		return model.NewValidationError("start_at", "開始日時が指定されていません")
	case in.EndAt.IsZero():
		return model.NewValidationError("end_at", "終了日時が指定されていません")
	case !in.StartAt.Before(in.EndAt):
		return model.NewValidationError("end_at", "終了日時は開始日時より後にしてください")
	}
	return nil
}
