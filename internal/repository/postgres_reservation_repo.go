package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/nathanufpb/Sistema-de-Agendamentos-cmfam/internal/model"
)

// defaultRetryMax はシリアライズ失敗・デッドロック時の再試行回数のデフォルト値。
const defaultRetryMax = 3

// PostgresReservationRepo はPostgreSQLを使用した予約リポジトリ。
// 重複防止は以下の3段で行う:
//   - 機器IDをキーにしたpg_advisory_xact_lockによるトランザクション単位の直列化
//   - ロック取得後の重複再チェック
//   - reservations_no_overlap 排他制約（EXCLUDE USING gist）
type PostgresReservationRepo struct {
	db       *sql.DB
	retryMax int
}

// NewPostgresReservationRepo はPostgresReservationRepoを生成する。
// retryMaxが0以下の場合はデフォルト値を使用する。
func NewPostgresReservationRepo(db *sql.DB, retryMax int) *PostgresReservationRepo {
	if retryMax <= 0 {
		retryMax = defaultRetryMax
	}
	return &PostgresReservationRepo{db: db, retryMax: retryMax}
}

const reservationColumns = `r.id, r.equipment_id, r.user_id, r.start_at, r.end_at, r.status, r.notes, r.created_at, r.updated_at`

const reservationDetailSelect = `SELECT ` + reservationColumns + `, e.name, u.name, u.email
	FROM reservations r
	JOIN equipment e ON r.equipment_id = e.id
	JOIN users u ON r.user_id = u.id`

// FindByID は指定IDの予約を取得する。見つからない場合はnilを返す。
func (r *PostgresReservationRepo) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	if !isValidID(id) {
		return nil, nil
	}

	res := &model.Reservation{}
	err := r.db.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations r WHERE r.id = $1`,
		id,
	).Scan(&res.ID, &res.EquipmentID, &res.UserID, &res.StartAt, &res.EndAt, &res.Status, &res.Notes, &res.CreatedAt, &res.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("予約の取得に失敗しました: %w", err)
	}
	return res, nil
}

// ListActiveByEquipment は指定機器のキャンセル以外の予約を開始時刻の昇順で返す。
func (r *PostgresReservationRepo) ListActiveByEquipment(ctx context.Context, equipmentID string) ([]*model.Reservation, error) {
	if !isValidID(equipmentID) {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+reservationColumns+`
		 FROM reservations r
		 WHERE r.equipment_id = $1 AND r.status <> 'cancelled'
		 ORDER BY r.start_at ASC`,
		equipmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("有効な予約一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var list []*model.Reservation
	for rows.Next() {
		res := &model.Reservation{}
		if err := rows.Scan(&res.ID, &res.EquipmentID, &res.UserID, &res.StartAt, &res.EndAt, &res.Status, &res.Notes, &res.CreatedAt, &res.UpdatedAt); err != nil {
			return nil, fmt.Errorf("予約行の読み取りに失敗しました: %w", err)
		}
		list = append(list, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("予約一覧の走査に失敗しました: %w", err)
	}
	return list, nil
}

// CreateIfNoConflict は重複チェックと挿入を同一トランザクションで行う。
// シリアライズ失敗・デッドロックの場合はretryMax回まで再試行する。
func (r *PostgresReservationRepo) CreateIfNoConflict(ctx context.Context, res *model.Reservation) error {
	if !isValidID(res.EquipmentID) || !isValidID(res.UserID) {
		return ErrInvalidReference
	}

	var err error
	for attempt := 1; attempt <= r.retryMax; attempt++ {
		err = r.createOnce(ctx, res)
		if err == nil || !isRetryable(err) {
			return err
		}
		slog.Warn("予約作成トランザクションを再試行します",
			slog.String("equipment_id", res.EquipmentID),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
	}
	return fmt.Errorf("予約作成の再試行回数を超えました: %w", err)
}

func (r *PostgresReservationRepo) createOnce(ctx context.Context, res *model.Reservation) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 同一機器への予約作成をDBレベルで直列化（コミット/ロールバックで自動解放）
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, res.EquipmentID); err != nil {
		return fmt.Errorf("アドバイザリロックの取得に失敗しました: %w", err)
	}

	var overlapping bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM reservations
			WHERE equipment_id = $1 AND status <> 'cancelled'
			  AND start_at < $3 AND end_at > $2
		)`,
		res.EquipmentID, res.StartAt, res.EndAt,
	).Scan(&overlapping)
	if err != nil {
		return fmt.Errorf("重複チェックに失敗しました: %w", err)
	}
	if overlapping {
		return ErrOverlap
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO reservations (id, equipment_id, user_id, start_at, end_at, status, notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		res.ID, res.EquipmentID, res.UserID, res.StartAt, res.EndAt, string(res.Status), res.Notes, res.CreatedAt, res.UpdatedAt,
	)
	switch {
	case isExclusionViolation(err):
		return ErrOverlap
	case isForeignKeyViolation(err):
		slog.Warn("存在しない参照先への予約作成", slog.String("constraint", pqConstraint(err)))
		return ErrInvalidReference
	case err != nil:
		return fmt.Errorf("予約の挿入に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpdateStatus は予約の状態を更新する。現在の状態に関わらず上書きする。
func (r *PostgresReservationRepo) UpdateStatus(ctx context.Context, id string, status model.ReservationStatus) error {
	if !isValidID(id) {
		return ErrNotFound
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE reservations SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return fmt.Errorf("予約状態の更新に失敗しました: %w", err)
	}
	return requireAffected(result)
}

// ListStartingBetween は開始時刻が [from, to) に含まれる予約を開始時刻の昇順で返す。
func (r *PostgresReservationRepo) ListStartingBetween(ctx context.Context, from, to time.Time) ([]model.ReservationDetail, error) {
	return r.queryDetails(ctx,
		reservationDetailSelect+`
		 WHERE r.start_at >= $1 AND r.start_at < $2
		 ORDER BY r.start_at ASC`,
		from, to,
	)
}

// ListEndingAfterByEquipment は指定機器の終了時刻がafter以降の予約を開始時刻の昇順で返す。
func (r *PostgresReservationRepo) ListEndingAfterByEquipment(ctx context.Context, equipmentID string, after time.Time) ([]model.ReservationDetail, error) {
	if !isValidID(equipmentID) {
		return nil, nil
	}
	return r.queryDetails(ctx,
		reservationDetailSelect+`
		 WHERE r.equipment_id = $1 AND r.end_at >= $2
		 ORDER BY r.start_at ASC`,
		equipmentID, after,
	)
}

// ListActiveDetailsByEquipment は指定機器のキャンセル以外の予約をユーザー情報付きで開始時刻の昇順で返す。
func (r *PostgresReservationRepo) ListActiveDetailsByEquipment(ctx context.Context, equipmentID string) ([]model.ReservationDetail, error) {
	if !isValidID(equipmentID) {
		return nil, nil
	}
	return r.queryDetails(ctx,
		reservationDetailSelect+`
		 WHERE r.equipment_id = $1 AND r.status <> 'cancelled'
		 ORDER BY r.start_at ASC`,
		equipmentID,
	)
}

// ListAll は全予約を開始時刻の降順で返す。
func (r *PostgresReservationRepo) ListAll(ctx context.Context) ([]model.ReservationDetail, error) {
	return r.queryDetails(ctx, reservationDetailSelect+` ORDER BY r.start_at DESC`)
}

// CountByStatus は状態ごとの予約件数を返す。件数0の状態はマップに含めない。
func (r *PostgresReservationRepo) CountByStatus(ctx context.Context) (map[model.ReservationStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM reservations GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("状態別予約件数の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.ReservationStatus]int)
	for rows.Next() {
		var status model.ReservationStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("状態別予約件数の読み取りに失敗しました: %w", err)
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("状態別予約件数の走査に失敗しました: %w", err)
	}
	return counts, nil
}

func (r *PostgresReservationRepo) queryDetails(ctx context.Context, query string, args ...any) ([]model.ReservationDetail, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("予約一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var list []model.ReservationDetail
	for rows.Next() {
		var d model.ReservationDetail
		if err := rows.Scan(
			&d.ID, &d.EquipmentID, &d.UserID, &d.StartAt, &d.EndAt, &d.Status, &d.Notes, &d.CreatedAt, &d.UpdatedAt,
			&d.EquipmentName, &d.UserName, &d.UserEmail,
		); err != nil {
			return nil, fmt.Errorf("予約行の読み取りに失敗しました: %w", err)
		}
		list = append(list, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("予約一覧の走査に失敗しました: %w", err)
	}
	return list, nil
}

// compile-time interface check
var _ ReservationRepository = (*PostgresReservationRepo)(nil)
