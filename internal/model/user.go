// Package model はドメインモデルを定義する。
package model

// User はストアに登録されたユーザーを表す。
// Emailはset-user-emailで一度だけ設定される。
type User struct {
	UserID    string `json:"userId"`
	Email     string `json:"email,omitempty"`
	CreatedAt string `json:"createdAt"` // ISO-8601
}

// CreateUserResponse はPOST /create-userのレスポンス。
type CreateUserResponse struct {
	UserID string `json:"userId"`
}

// SetUserEmailRequest はPOST /set-user-emailのリクエストボディ。
type SetUserEmailRequest struct {
	UserID    string `json:"userId"`
	UserEmail string `json:"userEmail"`
}
