package repository

import (
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgreSQLのSQLSTATEコード。
const (
	pqCodeUniqueViolation      = "23505"
	pqCodeForeignKeyViolation  = "23503"
	pqCodeExclusionViolation   = "23P01"
	pqCodeSerializationFailure = "40001"
	pqCodeDeadlockDetected     = "40P01"
)

// pqCode はerrに含まれるPostgreSQLのエラーコードを返す。pq.Errorでなければ空文字列。
func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// pqConstraint はerrに含まれる制約名を返す。
func pqConstraint(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pqCode(err) == pqCodeUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	return pqCode(err) == pqCodeForeignKeyViolation
}

func isExclusionViolation(err error) bool {
	return pqCode(err) == pqCodeExclusionViolation
}

// isRetryable はトランザクションの再実行で解消しうるエラーかどうかを返す。
func isRetryable(err error) bool {
	switch pqCode(err) {
	case pqCodeSerializationFailure, pqCodeDeadlockDetected:
		return true
	default:
		return false
	}
}

// isValidID はIDがUUID形式かどうかを返す。
// UUID形式でないIDはDBに問い合わせず「存在しない」として扱う。
func isValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
