// Package user は予約者（ユーザー）管理のドメインロジックを提供する。
package user

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

// Input はユーザーの作成・更新の入力値。
type Input struct {
	Name  string
	Email string
	Role  string
}

// Service はユーザー管理のサービス層。
// メールアドレスの一意性はストアの一意制約に任せ、事前チェックは行わない。
type Service struct {
	repo      repository.UserRepository
	sanitizer security.TextSanitizer
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.UserRepository, sanitizer security.TextSanitizer) *Service {
	if sanitizer == nil {
		sanitizer = security.NewTextSanitizer()
	}
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

// CreateUser はユーザーを登録する。
// メールアドレスは小文字に正規化し、未知の権限はstandardとして扱う。
func (s *Service) CreateUser(ctx context.Context, in Input) (*model.User, error) {
	name, email, role, err := s.normalize(in)
	if err != nil {
		return nil, err
	}

	now := s.now()
	u := &model.User{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, model.NewDuplicateEmailError(email)
		}
		return nil, fmt.Errorf("ユーザーの登録に失敗しました: %w", err)
	}

	slog.Info("ユーザーを登録しました",
		slog.String("user_id", u.ID),
		slog.String("role", string(u.Role)),
	)
	return u, nil
}

// UpdateUser はユーザーの名前・メールアドレス・権限を更新する。
// 対象が存在しない場合はNotFoundエラー、他のユーザーとメールアドレスが重複する場合はDuplicateEmailErrorを返す。
func (s *Service) UpdateUser(ctx context.Context, id string, in Input) (*model.User, error) {
	name, email, role, err := s.normalize(in)
	if err != nil {
		return nil, err
	}

	u := &model.User{
		ID:        id,
		Name:      name,
		Email:     email,
		Role:      role,
		UpdatedAt: s.now(),
	}
	if err := s.repo.Update(ctx, u); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, model.NewUserNotFoundError(id)
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, model.NewDuplicateEmailError(email)
		default:
			return nil, fmt.Errorf("ユーザーの更新に失敗しました: %w", err)
		}
	}

	slog.Info("ユーザーを更新しました", slog.String("user_id", id))
	return s.GetUser(ctx, id)
}

// GetUser はユーザーを取得する。存在しない場合はNotFoundエラーを返す。
func (s *Service) GetUser(ctx context.Context, id string) (*model.User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if u == nil {
		return nil, model.NewUserNotFoundError(id)
	}
	return u, nil
}

// ListUsers はユーザー一覧を名前順で返す。
func (s *Service) ListUsers(ctx context.Context) ([]*model.User, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	if list == nil {
		list = []*model.User{}
	}
	return list, nil
}

func (s *Service) normalize(in Input) (string, string, model.Role, error) {
	name := s.sanitizer.Sanitize(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if name == "" {
		return "", "", "", model.NewValidationError("name", "名前が空です")
	}
	if email == "" {
		return "", "", "", model.NewValidationError("email", "メールアドレスが空です")
	}

	role := model.ParseRole(strings.ToLower(strings.TrimSpace(in.Role)))
	return name, email, role, nil
}
