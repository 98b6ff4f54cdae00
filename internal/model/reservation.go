// Package model はドメインモデルを定義する。
package model

import "time"

// Reservation は機器に対する時間枠の予約を表す。
// 時間枠は半開区間 [StartAt, EndAt) として扱う。
type Reservation struct {
	ID          string
	EquipmentID string
	UserID      string
	StartAt     time.Time
	EndAt       time.Time
	Status      ReservationStatus
	Notes       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ReservationStatus は予約のライフサイクル状態を表す。
type ReservationStatus string

const (
	// ReservationStatusPending は未確定の予約。
	ReservationStatusPending ReservationStatus = "pending"
	// ReservationStatusConfirmed は確定済みの予約。
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	// ReservationStatusCancelled は取り消された予約。競合判定の対象外。
	ReservationStatusCancelled ReservationStatus = "cancelled"
)

// IsActive は予約が競合判定の対象（キャンセル以外）かどうかを返す。
func (s ReservationStatus) IsActive() bool {
	return s != ReservationStatusCancelled
}

// ReservationDetail は予約と機器名・ユーザー情報を結合した読み取りモデル。
// equipment、usersテーブルとJOINして取得される。
type ReservationDetail struct {
	Reservation
	EquipmentName string
	UserName      string
	UserEmail     string
}
