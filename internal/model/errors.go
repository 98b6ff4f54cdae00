// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法、問題のあるフィールドを含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, reservation, not_found, system
	Action   string // ユーザー向け対処方法
	Field    string // 問題のあるフィールド名またはID（該当する場合）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s (%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeReservationConflict = "RESERVATION_CONFLICT"
	ErrCodeDuplicateEmail      = "DUPLICATE_EMAIL"
	ErrCodeEquipmentNotFound   = "EQUIPMENT_NOT_FOUND"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodeReservationNotFound = "RESERVATION_NOT_FOUND"
)

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(field, reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("入力値が不正です: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
		Field:    field,
	}
}

// NewReservationConflictError は予約時間帯の重複エラーを生成する。
// conflictingIDには重複した既存予約のIDを指定する。
func NewReservationConflictError(equipmentID, conflictingID string) *APIError {
	return &APIError{
		Code:     ErrCodeReservationConflict,
		Message:  fmt.Sprintf("指定された時間帯には既に予約があります: %s", conflictingID),
		Category: "reservation",
		Action:   "別の時間帯を選択してください。",
		Field:    equipmentID,
	}
}

// NewDuplicateEmailError はメールアドレス重複エラーを生成する。
func NewDuplicateEmailError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateEmail,
		Message:  fmt.Sprintf("このメールアドレスは既に登録されています: %s", email),
		Category: "validation",
		Action:   "別のメールアドレスを入力してください。",
		Field:    "email",
	}
}

// NewEquipmentNotFoundError は機器が見つからない場合のエラーを生成する。
func NewEquipmentNotFoundError(equipmentID string) *APIError {
	return &APIError{
		Code:     ErrCodeEquipmentNotFound,
		Message:  fmt.Sprintf("指定された機器が見つかりません: %s", equipmentID),
		Category: "not_found",
		Action:   "機器IDを確認してください。",
		Field:    equipmentID,
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError(userID string) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("指定されたユーザーが見つかりません: %s", userID),
		Category: "not_found",
		Action:   "ユーザーIDを確認してください。",
		Field:    userID,
	}
}

// NewReservationNotFoundError は予約が見つからない場合のエラーを生成する。
func NewReservationNotFoundError(reservationID string) *APIError {
	return &APIError{
		Code:     ErrCodeReservationNotFound,
		Message:  fmt.Sprintf("指定された予約が見つかりません: %s", reservationID),
		Category: "not_found",
		Action:   "予約IDを確認してください。",
		Field:    reservationID,
	}
}

// IsValidationError はerrが入力検証エラーかどうかを返す。
func IsValidationError(err error) bool {
	return hasCode(err, ErrCodeValidation)
}

// IsConflictError はerrが予約重複エラーかどうかを返す。
func IsConflictError(err error) bool {
	return hasCode(err, ErrCodeReservationConflict)
}

// IsDuplicateEmailError はerrがメールアドレス重複エラーかどうかを返す。
func IsDuplicateEmailError(err error) bool {
	return hasCode(err, ErrCodeDuplicateEmail)
}

// IsNotFoundError はerrが対象未検出エラー（機器・ユーザー・予約）かどうかを返す。
func IsNotFoundError(err error) bool {
	return hasCode(err, ErrCodeEquipmentNotFound, ErrCodeUserNotFound, ErrCodeReservationNotFound)
}

func hasCode(err error, codes ...string) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, c := range codes {
		if apiErr.Code == c {
			return true
		}
	}
	return false
}
