package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nathanufpb/Sistema-de-Agendamentos-cmfam/internal/model"
)

// PostgresEquipmentRepo はPostgreSQLを使用した機器リポジトリ。
type PostgresEquipmentRepo struct {
	db *sql.DB
}

// NewPostgresEquipmentRepo はPostgresEquipmentRepoを生成する。
func NewPostgresEquipmentRepo(db *sql.DB) *PostgresEquipmentRepo {
	return &PostgresEquipmentRepo{db: db}
}

const equipmentColumns = `id, name, description, location, active, created_at, updated_at`

// FindByID は指定IDの機器を取得する。見つからない場合はnilを返す。
func (r *PostgresEquipmentRepo) FindByID(ctx context.Context, id string) (*model.Equipment, error) {
	if !isValidID(id) {
		return nil, nil
	}

	eq := &model.Equipment{}
	err := r.db.QueryRowContext(ctx,
		`SELECT `+equipmentColumns+` FROM equipment WHERE id = $1`,
		id,
	).Scan(&eq.ID, &eq.Name, &eq.Description, &eq.Location, &eq.Active, &eq.CreatedAt, &eq.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("機器の取得に失敗しました: %w", err)
	}

	return eq, nil
}

// List は機器一覧を名前順で返す。onlyActiveがtrueの場合は有効な機器のみ返す。
func (r *PostgresEquipmentRepo) List(ctx context.Context, onlyActive bool) ([]*model.Equipment, error) {
	query := `SELECT ` + equipmentColumns + ` FROM equipment`
	if onlyActive {
		query += ` WHERE active = TRUE`
	}
	query += ` ORDER BY name ASC, created_at ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("機器一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var list []*model.Equipment
	for rows.Next() {
		eq := &model.Equipment{}
		if err := rows.Scan(&eq.ID, &eq.Name, &eq.Description, &eq.Location, &eq.Active, &eq.CreatedAt, &eq.UpdatedAt); err != nil {
			return nil, fmt.Errorf("機器行の読み取りに失敗しました: %w", err)
		}
		list = append(list, eq)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("機器一覧の走査に失敗しました: %w", err)
	}
	return list, nil
}

// Create は機器を作成する。
func (r *PostgresEquipmentRepo) Create(ctx context.Context, eq *model.Equipment) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO equipment (id, name, description, location, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		eq.ID, eq.Name, eq.Description, eq.Location, eq.Active, eq.CreatedAt, eq.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("機器の作成に失敗しました: %w", err)
	}
	return nil
}

// Update は機器の名前・説明・設置場所・有効フラグを1文で更新し、更新後の行を返す。
// Activeがnilの場合はCOALESCEで現在の値を維持する。存在確認は更新件数で行う。
func (r *PostgresEquipmentRepo) Update(ctx context.Context, id string, update EquipmentUpdate) (*model.Equipment, error) {
	if !isValidID(id) {
		return nil, ErrNotFound
	}

	var active sql.NullBool
	if update.Active != nil {
		active = sql.NullBool{Bool: *update.Active, Valid: true}
	}

	eq := &model.Equipment{}
	err := r.db.QueryRowContext(ctx,
		`UPDATE equipment
		 SET name = $2, description = $3, location = $4, active = COALESCE($5, active), updated_at = $6
		 WHERE id = $1
		 RETURNING `+equipmentColumns,
		id, update.Name, update.Description, update.Location, active, update.UpdatedAt,
	).Scan(&eq.ID, &eq.Name, &eq.Description, &eq.Location, &eq.Active, &eq.CreatedAt, &eq.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("機器の更新に失敗しました: %w", err)
	}
	return eq, nil
}

// SetActive は機器の有効フラグを更新する。同じ値の再設定も成功として扱う。
func (r *PostgresEquipmentRepo) SetActive(ctx context.Context, id string, active bool) error {
	if !isValidID(id) {
		return ErrNotFound
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE equipment SET active = $2, updated_at = NOW() WHERE id = $1`,
		id, active,
	)
	if err != nil {
		return fmt.Errorf("機器の有効フラグ更新に失敗しました: %w", err)
	}
	return requireAffected(result)
}

// requireAffected は更新件数が0の場合にErrNotFoundを返す。
func requireAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// compile-time interface check
var _ EquipmentRepository = (*PostgresEquipmentRepo)(nil)
