// Package seed は空のストアにサンプルの機器とユーザーを投入する。
package seed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nathanufpb/Sistema-de-Agendamentos-cmfam/internal/equipment"
	"github.com/nathanufpb/Sistema-de-Agendamentos-cmfam/internal/model"
	"github.com/nathanufpb/Sistema-de-Agendamentos-cmfam/internal/user"
)

// EquipmentService はサンプル機器の投入に必要なインターフェース。
type EquipmentService interface {
	ListEquipment(ctx context.Context, onlyActive bool) ([]*model.Equipment, error)
	CreateEquipment(ctx context.Context, in equipment.Input) (*model.Equipment, error)
}

// UserService はサンプルユーザーの投入に必要なインターフェース。
type UserService interface {
	ListUsers(ctx context.Context) ([]*model.User, error)
	CreateUser(ctx context.Context, in user.Input) (*model.User, error)
}

// SampleEquipment は投入するサンプル機器。
var SampleEquipment = []equipment.Input{
	{Name: "Microscópio Eletrônico", Description: "Microscópio de varredura eletrônica (MEV)", Location: "Sala 101"},
	{Name: "Espectrômetro de Massa", Description: "Espectrômetro de massa de alta resolução", Location: "Sala 102"},
	{Name: "Cromatógrafo", Description: "Sistema de cromatografia líquida (HPLC)", Location: "Sala 103"},
	{Name: "Analisador Térmico", Description: "Analisador termogravimétrico (TGA)", Location: "Sala 104"},
}

// SampleUsers は投入するサンプルユーザー。
var SampleUsers = []user.Input{
	{Name: "Admin Sistema", Email: "admin@uepb.edu.br", Role: string(model.RoleAdmin)},
	{Name: "João Silva", Email: "joao.silva@uepb.edu.br", Role: string(model.RoleStandard)},
	{Name: "Maria Santos", Email: "maria.santos@uepb.edu.br", Role: string(model.RoleStandard)},
}

// Result は投入した件数。
type Result struct {
	Equipment int
	Users     int
}

// Seeder はサンプルデータを投入する。
type Seeder struct {
	equipment EquipmentService
	users     UserService
	logger    *slog.Logger
}

// NewSeeder はSeederを生成する。
func NewSeeder(equipment EquipmentService, users UserService, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{equipment: equipment, users: users, logger: logger}
}

// Run は機器・ユーザーそれぞれについて、テーブルが空の場合のみサンプルを投入する。
// 既にデータがあるテーブルには触れないため、繰り返し実行しても重複しない。
func (s *Seeder) Run(ctx context.Context) (Result, error) {
	var res Result

	eqList, err := s.equipment.ListEquipment(ctx, false)
	if err != nil {
		return res, fmt.Errorf("機器件数の確認に失敗しました: %w", err)
	}
	if len(eqList) == 0 {
		for _, in := range SampleEquipment {
			if _, err := s.equipment.CreateEquipment(ctx, in); err != nil {
				return res, fmt.Errorf("サンプル機器の投入に失敗しました: %w", err)
			}
			res.Equipment++
		}
	}

	userList, err := s.users.ListUsers(ctx)
	if err != nil {
		return res, fmt.Errorf("ユーザー件数の確認に失敗しました: %w", err)
	}
	if len(userList) == 0 {
		for _, in := range SampleUsers {
			if _, err := s.users.CreateUser(ctx, in); err != nil {
				return res, fmt.Errorf("サンプルユーザーの投入に失敗しました: %w", err)
			}
			res.Users++
		}
	}

	s.logger.Info("seed completed",
		slog.Int("equipment_inserted", res.Equipment),
		slog.Int("users_inserted", res.Users),
	)
	return res, nil
}
