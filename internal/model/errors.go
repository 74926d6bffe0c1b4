// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
	"net/http"
)

// ValidationError はネットワーク呼び出し前にローカルで検出した入力エラー。
// ストアには一切到達しない。
type ValidationError struct {
	Message string
}

// Error はerrorインターフェースを実装する。
func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError はValidationErrorを生成する。
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// StoreError はリモートストア呼び出しの失敗を表す統一エラー。
//
//   - StatusCode == 404: NotFound
//   - StatusCode > 0:    ストアが返したHTTPエラー
//   - StatusCode == 0:   通信失敗やレスポンス不正などの不明なエラー
type StoreError struct {
	StatusCode int
	Message    string
	Err        error // 元のエラー（通信失敗時など）
}

// Error はerrorインターフェースを実装する。
func (e *StoreError) Error() string {
	if e.StatusCode == 0 {
		if e.Err != nil {
			return fmt.Sprintf("store request failed: %s: %v", e.Message, e.Err)
		}
		return fmt.Sprintf("store request failed: %s", e.Message)
	}
	return fmt.Sprintf("store returned %d: %s", e.StatusCode, e.Message)
}

// Unwrap は元のエラーを返す。
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NotFound はストアが404を返したかどうかを判定する。
func (e *StoreError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsNotFound はerrがストアの404エラーかどうかを判定する。
func IsNotFound(err error) bool {
	var storeErr *StoreError
	return errors.As(err, &storeErr) && storeErr.NotFound()
}

// ユーザー向けの定型メッセージ
const (
	MsgEmptyEmail       = "Please enter an email address"
	MsgEmptySourceEmail = "Please enter a source email address"
	MsgCopyFromSelf     = "Cannot copy todos from yourself"
	MsgCopySucceeded    = "Todos copied successfully!"

	MsgAddFailed     = "Failed to add todo"
	MsgUpdateFailed  = "Failed to update todo"
	MsgDeleteFailed  = "Failed to delete todo"
	MsgRefreshFailed = "Failed to load todos"
	MsgCopyFailed    = "Failed to copy todos"
	MsgUnexpected    = "An unexpected error occurred"
)

// DisplayMessage はエラーを画面に表示する1つのメッセージに変換する。
// 入力エラーとストアが返したHTTPエラーはそのメッセージを、
// それ以外（通信失敗など）はfallbackを返す。
func DisplayMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Message
	}

	var storeErr *StoreError
	if errors.As(err, &storeErr) && storeErr.StatusCode > 0 && storeErr.Message != "" {
		return storeErr.Message
	}

	return fallback
}
