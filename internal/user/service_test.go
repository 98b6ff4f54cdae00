package user

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/nathanufpb/Sistema-de-Agendamentos-cmfam/internal/model"
	"github.com/nathanufpb/Sistema-de-Agendamentos-cmfam/internal/repository"
)

// --- モック ---

type mockUserRepo struct {
	findByIDFn func(ctx context.Context, id string) (*model.User, error)
	listFn     func(ctx context.Context) ([]*model.User, error)
	createFn   func(ctx context.Context, u *model.User) error
	updateFn   func(ctx context.Context, u *model.User) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) List(ctx context.Context) ([]*model.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, u *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, u)
	}
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, u *model.User) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, u)
	}
	return nil
}

var _ repository.UserRepository = (*mockUserRepo)(nil)

// memUserRepo はメールアドレスの一意制約を再現するインメモリリポジトリ。
// 保存済みのメールアドレスと完全一致で比較するため、正規化はサービス層の責務になる。
type memUserRepo struct {
	mu    sync.Mutex
	byID  map[string]*model.User
	email map[string]string
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: map[string]*model.User{}, email: map[string]string{}}
}

func (m *memUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m *memUserRepo) List(ctx context.Context) ([]*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []*model.User
	for _, u := range m.byID {
		cp := *u
		list = append(list, &cp)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

func (m *memUserRepo) Create(ctx context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.email[u.Email]; ok {
		return repository.ErrDuplicateEmail
	}
	cp := *u
	m.byID[u.ID] = &cp
	m.email[u.Email] = u.ID
	return nil
}

func (m *memUserRepo) Update(ctx context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.byID[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if owner, ok := m.email[u.Email]; ok && owner != u.ID {
		return repository.ErrDuplicateEmail
	}
	delete(m.email, current.Email)
	current.Name, current.Email, current.Role = u.Name, u.Email, u.Role
	m.email[u.Email] = u.ID
	return nil
}

// --- テスト ---

func TestCreateUser_NormalizesAndIsRetrievable(t *testing.T) {
	repo := newMemUserRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, Input{Name: " Maria Silva ", Email: "  Maria.Silva@Example.COM ", Role: "admin"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Email != "maria.silva@example.com" {
		t.Errorf("Email = %q, want lower-case", u.Email)
	}
	if u.Name != "Maria Silva" || u.Role != model.RoleAdmin {
		t.Errorf("got %+v", u)
	}

	got, err := svc.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.Email != "maria.silva@example.com" {
		t.Errorf("retrieved Email = %q", got.Email)
	}
}

func TestCreateUser_RoleCoercion(t *testing.T) {
	tests := []struct {
		in   string
		want model.Role
	}{
		{in: "admin", want: model.RoleAdmin},
		{in: " ADMIN ", want: model.RoleAdmin},
		{in: "standard", want: model.RoleStandard},
		{in: "usuario", want: model.RoleStandard},
		{in: "superuser", want: model.RoleStandard},
		{in: "", want: model.RoleStandard},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			svc := NewService(&mockUserRepo{}, nil)
			u, err := svc.CreateUser(context.Background(), Input{Name: "A", Email: "a@example.com", Role: tt.in})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if u.Role != tt.want {
				t.Errorf("Role = %q, want %q", u.Role, tt.want)
			}
		})
	}
}

func TestCreateUser_DuplicateEmailCaseInsensitive(t *testing.T) {
	svc := NewService(newMemUserRepo(), nil)
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, Input{Name: "João", Email: "joao@example.com"}); err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	_, err := svc.CreateUser(ctx, Input{Name: "Outro João", Email: "JOAO@Example.com"})
	if !model.IsDuplicateEmailError(err) {
		t.Fatalf("expected DuplicateEmailError, got %v", err)
	}

	if _, err := svc.CreateUser(ctx, Input{Name: "Ana", Email: "ana@example.com"}); err != nil {
		t.Errorf("distinct email should succeed: %v", err)
	}
}

func TestCreateUser_Validation(t *testing.T) {
	tests := []struct {
		name      string
		in        Input
		wantField string
	}{
		{name: "名前が空", in: Input{Name: "  ", Email: "a@example.com"}, wantField: "name"},
		{name: "メールが空", in: Input{Name: "A", Email: " "}, wantField: "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			repo := &mockUserRepo{createFn: func(ctx context.Context, u *model.User) error {
				called = true
				return nil
			}}
			svc := NewService(repo, nil)

			_, err := svc.CreateUser(context.Background(), tt.in)
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidation || apiErr.Field != tt.wantField {
				t.Errorf("expected ValidationError on %s, got %v", tt.wantField, err)
			}
			if called {
				t.Error("repository should not be called on validation failure")
			}
		})
	}
}

func TestCreateUser_StoreError(t *testing.T) {
	storeErr := errors.New("connection refused")
	svc := NewService(&mockUserRepo{createFn: func(ctx context.Context, u *model.User) error {
		return storeErr
	}}, nil)

	_, err := svc.CreateUser(context.Background(), Input{Name: "A", Email: "a@example.com"})
	if !errors.Is(err, storeErr) {
		t.Errorf("expected wrapped store error, got %v", err)
	}
	if model.IsDuplicateEmailError(err) {
		t.Error("infrastructure error must not be reported as duplicate")
	}
}

func TestUpdateUser(t *testing.T) {
	repo := newMemUserRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	maria, _ := svc.CreateUser(ctx, Input{Name: "Maria", Email: "maria@example.com"})
	if _, err := svc.CreateUser(ctx, Input{Name: "João", Email: "joao@example.com"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	t.Run("更新成功", func(t *testing.T) {
		got, err := svc.UpdateUser(ctx, maria.ID, Input{Name: "Maria S.", Email: "MARIA.S@example.com", Role: "admin"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Email != "maria.s@example.com" || got.Role != model.RoleAdmin || got.Name != "Maria S." {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("自分のメールアドレスの再設定は重複にならない", func(t *testing.T) {
		if _, err := svc.UpdateUser(ctx, maria.ID, Input{Name: "Maria", Email: "maria.s@example.com"}); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("他ユーザーとの重複", func(t *testing.T) {
		_, err := svc.UpdateUser(ctx, maria.ID, Input{Name: "Maria", Email: "Joao@example.com"})
		if !model.IsDuplicateEmailError(err) {
			t.Errorf("expected DuplicateEmailError, got %v", err)
		}
	})

	t.Run("存在しないユーザー", func(t *testing.T) {
		_, err := svc.UpdateUser(ctx, "ghost", Input{Name: "X", Email: "x@example.com"})
		var apiErr *model.APIError
		if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUserNotFound {
			t.Errorf("expected USER_NOT_FOUND, got %v", err)
		}
	})
}

func TestListUsers_OrderedByName(t *testing.T) {
	svc := NewService(newMemUserRepo(), nil)
	ctx := context.Background()
	for _, n := range []string{"Carlos", "Ana", "Beatriz"} {
		if _, err := svc.CreateUser(ctx, Input{Name: n, Email: n + "@example.com"}); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	list, err := svc.ListUsers(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 3 || list[0].Name != "Ana" || list[2].Name != "Carlos" {
		t.Errorf("unexpected order: %v", list)
	}
}

func TestListUsers_EmptyIsNonNil(t *testing.T) {
	svc := NewService(&mockUserRepo{}, nil)

	list, err := svc.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if list == nil {
		t.Error("empty list should be non-nil")
	}
}
