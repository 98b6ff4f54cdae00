// Package equipment は実験機器の管理機能を提供する。
package equipment

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

// Input は機器の作成・更新の入力値。
// Activeがnilの場合、作成時は有効、更新時は現在の値を維持する。
type Input struct {
	Name        string
	Description string
	Location    string
	Active      *bool
}

// Service は機器管理のサービス層。
type Service struct {
	repo      repository.EquipmentRepository
	sanitizer security.TextSanitizer
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.EquipmentRepository, sanitizer security.TextSanitizer) *Service {
	if sanitizer == nil {
		sanitizer = security.NewTextSanitizer()
	}
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

// CreateEquipment は機器を登録する。名前が空の場合はValidationErrorを返す。
func (s *Service) CreateEquipment(ctx context.Context, in Input) (*model.Equipment, error) {
	in = s.clean(in)
	if in.Name == "" {
		return nil, model.NewValidationError("name", "機器名が空です")
	}

	active := true
	if in.Active != nil {
		active = *in.Active
	}

	now := s.now()
	eq := &model.Equipment{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		Location:    in.Location,
		Active:      active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, eq); err != nil {
		return nil, fmt.Errorf("機器の登録に失敗しました: %w", err)
	}

	slog.Info("機器を登録しました",
		slog.String("equipment_id", eq.ID),
		slog.String("name", eq.Name),
	)
	return eq, nil
}

// UpdateEquipment は機器の名前・説明・設置場所・有効フラグを更新する。
// 対象が存在しない場合はNotFoundエラーを返す。
func (s *Service) UpdateEquipment(ctx context.Context, id string, in Input) (*model.Equipment, error) {
	in = s.clean(in)
	if in.Name == "" {
		return nil, model.NewValidationError("name", "機器名が空です")
	}

	eq, err := s.repo.Update(ctx, id, repository.EquipmentUpdate{
		Name:        in.Name,
		Description: in.Description,
		Location:    in.Location,
		Active:      in.Active,
		UpdatedAt:   s.now(),
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewEquipmentNotFoundError(id)
		}
		return nil, fmt.Errorf("機器の更新に失敗しました: %w", err)
	}

	slog.Info("機器を更新しました", slog.String("equipment_id", id))
	return eq, nil
}

// SetEquipmentActive は機器の有効フラグを切り替える。
// rawは "0" / "1"（または "false" / "true"）のみ受け付け、それ以外はValidationErrorを返す。
// 同じ値を繰り返し設定しても結果は変わらない。
func (s *Service) SetEquipmentActive(ctx context.Context, id, raw string) error {
	active, err := ParseActiveFlag(raw)
	if err != nil {
		return err
	}

	if err := s.repo.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewEquipmentNotFoundError(id)
		}
		return fmt.Errorf("機器の有効フラグ更新に失敗しました: %w", err)
	}

	slog.Info("機器の有効フラグを更新しました",
		slog.String("equipment_id", id),
		slog.Bool("active", active),
	)
	return nil
}

// GetEquipment は機器を取得する。存在しない場合はNotFoundエラーを返す。
func (s *Service) GetEquipment(ctx context.Context, id string) (*model.Equipment, error) {
	eq, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("機器の取得に失敗しました: %w", err)
	}
	if eq == nil {
		return nil, model.NewEquipmentNotFoundError(id)
	}
	return eq, nil
}

// ListEquipment は機器一覧を名前順で返す。
func (s *Service) ListEquipment(ctx context.Context, onlyActive bool) ([]*model.Equipment, error) {
	list, err := s.repo.List(ctx, onlyActive)
	if err != nil {
		return nil, fmt.Errorf("機器一覧の取得に失敗しました: %w", err)
	}
	if list == nil {
		list = []*model.Equipment{}
	}
	return list, nil
}

// ParseActiveFlag は有効フラグの生入力をboolに変換する。
func ParseActiveFlag(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true":
		return true, nil
	case "0", "false":
		return false, nil
	default:
		return false, model.NewValidationError("active", fmt.Sprintf("有効フラグは0または1で指定してください: %q", raw))
	}
}

func (s *Service) clean(in Input) Input {
	in.Name = s.sanitizer.Sanitize(in.Name)
	in.Description = s.sanitizer.Sanitize(in.Description)
	in.Location = s.sanitizer.Sanitize(in.Location)
	return in
}
