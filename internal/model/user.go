// Package model はドメインモデルを定義する。
package model

import "time"

// User は機器を予約する登録ユーザーを表す。
type User struct {
	ID        string
	Name      string
	Email     string // 小文字に正規化済み
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Role はユーザーの権限種別を表す。
type Role string

const (
	// RoleAdmin は管理者ユーザー。
	RoleAdmin Role = "admin"
	// RoleStandard は一般ユーザー。
	RoleStandard Role = "standard"
)

// ParseRole は文字列をRoleに変換する。
// 未知の値はエラーにせずRoleStandardに丸める。
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleStandard
	}
}
