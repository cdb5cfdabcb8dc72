package user

import (
	"errors"
	"fmt"
)

// ErrNotFound は指定されたIDのユーザーが存在しないことを表す。
var ErrNotFound = errors.New("user: record not found")

// ValidationError は入力値の欠落・不正を表す。HTTPでは400に対応する。
type ValidationError struct {
	// Field は不正なフィールド名（JSONのキー）。
	Field string
	// Reason は不正の理由。
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// OperationError はストアや基盤の障害を表す。HTTPでは500に対応する。
type OperationError struct {
	// Op は失敗した操作名。
	Op string
	// Err は元のエラー。
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("user: %s: %v", e.Op, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }
