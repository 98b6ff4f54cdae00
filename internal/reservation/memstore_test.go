package reservation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nathanufpb/Sistema-de-Agendamentos-cmfam/internal/model"
	"github.com/nathanufpb/Sistema-de-Agendamentos-cmfam/internal/repository"
)

// memStore はテスト用のスレッドセーフなインメモリ予約ストア。
// CreateIfNoConflictは重複を再チェックしないため、サービス層の直列化のみで整合性が保たれるかを検証できる。
type memStore struct {
	mu           sync.Mutex
	equipment    map[string]*model.Equipment
	users        map[string]*model.User
	reservations map[string]*model.Reservation

	// listDelay は有効予約一覧の取得後に待機する時間。競合の窓を広げるために使う。
	listDelay time.Duration
	// createErr が設定されている場合、CreateIfNoConflictはこのエラーを返す。
	createErr error
}

func newMemStore() *memStore {
	return &memStore{
		equipment:    make(map[string]*model.Equipment),
		users:        make(map[string]*model.User),
		reservations: make(map[string]*model.Reservation),
	}
}

func (m *memStore) addEquipment(id string, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.equipment[id] = &model.Equipment{ID: id, Name: "Equipamento " + id, Active: active}
}

func (m *memStore) addUser(id, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id] = &model.User{ID: id, Name: name, Email: id + "@example.com", Role: model.RoleStandard}
}

func (m *memStore) addReservation(r *model.Reservation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.reservations[r.ID] = &cp
}

func (m *memStore) confirmedFor(equipmentID string) []*model.Reservation {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []*model.Reservation
	for _, r := range m.reservations {
		if r.EquipmentID == equipmentID && r.Status == model.ReservationStatusConfirmed {
			cp := *r
			list = append(list, &cp)
		}
	}
	return list
}

// equipmentFinder はmemStoreの機器をEquipmentFinderとして公開する。
type equipmentFinder struct{ m *memStore }

func (f equipmentFinder) FindByID(_ context.Context, id string) (*model.Equipment, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if eq, ok := f.m.equipment[id]; ok {
		cp := *eq
		return &cp, nil
	}
	return nil, nil
}

// userFinder はmemStoreのユーザーをUserFinderとして公開する。
type userFinder struct{ m *memStore }

func (f userFinder) FindByID(_ context.Context, id string) (*model.User, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if u, ok := f.m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) FindByID(_ context.Context, id string) (*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.reservations[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) ListActiveByEquipment(_ context.Context, equipmentID string) ([]*model.Reservation, error) {
	m.mu.Lock()
	var list []*model.Reservation
	for _, r := range m.reservations {
		if r.EquipmentID == equipmentID && r.Status.IsActive() {
			cp := *r
			list = append(list, &cp)
		}
	}
	m.mu.Unlock()

	sort.Slice(list, func(i, j int) bool { return list[i].StartAt.Before(list[j].StartAt) })
	if m.listDelay > 0 {
		time.Sleep(m.listDelay)
	}
	return list, nil
}

func (m *memStore) CreateIfNoConflict(_ context.Context, r *model.Reservation) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.addReservation(r)
	return nil
}

func (m *memStore) UpdateStatus(_ context.Context, id string, status model.ReservationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok {
		return repository.ErrNotFound
	}
	r.Status = status
	return nil
}

func (m *memStore) details(filter func(*model.Reservation) bool) []model.ReservationDetail {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []model.ReservationDetail
	for _, r := range m.reservations {
		if !filter(r) {
			continue
		}
		d := model.ReservationDetail{Reservation: *r}
		if eq, ok := m.equipment[r.EquipmentID]; ok {
			d.EquipmentName = eq.Name
		}
		if u, ok := m.users[r.UserID]; ok {
			d.UserName = u.Name
			d.UserEmail = u.Email
		}
		list = append(list, d)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].StartAt.Before(list[j].StartAt) })
	return list
}

func (m *memStore) ListStartingBetween(_ context.Context, from, to time.Time) ([]model.ReservationDetail, error) {
	return m.details(func(r *model.Reservation) bool {
		return !r.StartAt.Before(from) && r.StartAt.Before(to)
	}), nil
}

func (m *memStore) ListEndingAfterByEquipment(_ context.Context, equipmentID string, after time.Time) ([]model.ReservationDetail, error) {
	return m.details(func(r *model.Reservation) bool {
		return r.EquipmentID == equipmentID && !r.EndAt.Before(after)
	}), nil
}

func (m *memStore) ListActiveDetailsByEquipment(_ context.Context, equipmentID string) ([]model.ReservationDetail, error) {
	return m.details(func(r *model.Reservation) bool {
		return r.EquipmentID == equipmentID && r.Status.IsActive()
	}), nil
}

func (m *memStore) ListAll(_ context.Context) ([]model.ReservationDetail, error) {
	list := m.details(func(*model.Reservation) bool { return true })
	sort.Slice(list, func(i, j int) bool { return list[i].StartAt.After(list[j].StartAt) })
	return list, nil
}

func (m *memStore) CountByStatus(_ context.Context) (map[model.ReservationStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[model.ReservationStatus]int)
	for _, r := range m.reservations {
		counts[r.Status]++
	}
	return counts, nil
}

var (
	_ Store        = (*memStore)(nil)
	_ DetailReader = (*memStore)(nil)
)
