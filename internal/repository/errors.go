package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// PostgreSQLのエラーコード
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// DuplicateKeyError は一意制約違反を表す。
// 呼び出し側はConstraintでどの制約に違反したかを判定できる。
type DuplicateKeyError struct {
	Constraint string
}

// Error はerrorインターフェースを実装する。
func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key violates constraint %q", e.Constraint)
}

// ForeignKeyError は外部キー制約違反を表す。
type ForeignKeyError struct {
	Constraint string
}

// Error はerrorインターフェースを実装する。
func (e *ForeignKeyError) Error() string {
	return fmt.Sprintf("foreign key violation on constraint %q", e.Constraint)
}

// translateError はドライバのエラーを型付きの制約違反エラーに変換する。
// 制約違反以外のエラーはそのまま返す。
func translateError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case pgUniqueViolation:
		return &DuplicateKeyError{Constraint: pqErr.Constraint}
	case pgForeignKeyViolation:
		return &ForeignKeyError{Constraint: pqErr.Constraint}
	}
	return err
}
