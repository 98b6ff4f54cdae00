// Package model はドメインモデルを定義する。
package model

import "time"

// Equipment は予約対象となる実験機器を表す。
// 物理削除は行わず、Activeフラグで利用可否を切り替える。
type Equipment struct {
	ID          string
	Name        string
	Description string
	Location    string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
