// Package model はドメインモデルを定義する。
package model

// DeletedTodoName は論理削除されたTodoに設定する名前。
// 削除専用エンドポイントが無いため、update-todo-itemで
// この名前とcompleted=trueを設定して削除を表現する。
const DeletedTodoName = "[DELETED]"

// Todo はユーザーが所有するTodo項目を表す。
type Todo struct {
	TodoID    string `json:"todoId"`
	UserID    string `json:"userId"`
	TodoName  string `json:"todoName"`
	Completed bool   `json:"completed"`
	CreatedAt string `json:"createdAt"` // ISO-8601
}

// IsSoftDeleted は論理削除済みのTodoかどうかを判定する。
func (t Todo) IsSoftDeleted() bool {
	return t.TodoName == DeletedTodoName && t.Completed
}

// TodoList はGET /get-todo-itemsのレスポンス。
type TodoList struct {
	UserID    string `json:"userId"`
	UserEmail string `json:"userEmail"`
	Todos     []Todo `json:"todos"`
}

// CreateTodoRequest はPOST /create-todo-itemのリクエストボディ。
type CreateTodoRequest struct {
	UserID   string `json:"userId"`
	TodoName string `json:"todoName"`
}

// TodoUpdate はTodoの部分更新内容。nilフィールドは変更しない。
type TodoUpdate struct {
	TodoName  *string
	Completed *bool
}

// UpdateTodoRequest はPUT /update-todo-itemのリクエストボディ。
type UpdateTodoRequest struct {
	TodoID    string  `json:"todoId"`
	TodoName  *string `json:"todoName,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

// CopyTodoListRequest はTodoリストコピーのリクエストボディ。
// sourceは現在のユーザー、targetは操作者が入力したメールアドレス。
type CopyTodoListRequest struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// CopyResult はTodoリストコピーのレスポンス。
type CopyResult struct {
	Message string `json:"message,omitempty"`
}
