package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/todoweb/internal/middleware"
)

// TodoHandler はTodoの追加・完了切り替え・削除のHTTPハンドラー。
//
// 結果はセッションのコントローラーに保持され、一覧画面に表示される。
// そのため成否にかかわらず / へ303でリダイレクトする。
// ブラウザが切断しても送信済みの操作は最後まで反映する。
// ルートはRequireSessionの内側に配置する。
type TodoHandler struct{}

// NewTodoHandler はTodoHandlerを生成する。
func NewTodoHandler() *TodoHandler {
	return &TodoHandler{}
}

// Add はTodoを追加する。前後の空白だけを除き、入力はそのままストアへ送る。
// 空の入力は無視する。HTMLとしてのエスケープは描画時にテンプレートが行う。
// POST /todos
func (h *TodoHandler) Add(w http.ResponseWriter, r *http.Request) {
	s, _ := middleware.SessionFromContext(r.Context())

	name := strings.TrimSpace(r.PostFormValue("todoName"))
	if name != "" {
		// 失敗はコントローラーが表示用メッセージとして保持する
		_ = s.Todos.Add(context.WithoutCancel(r.Context()), name)
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Toggle はTodoの完了状態を切り替える。
// POST /todos/{id}/toggle
func (h *TodoHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	s, _ := middleware.SessionFromContext(r.Context())
	_ = s.Todos.Toggle(context.WithoutCancel(r.Context()), chi.URLParam(r, "id"))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Delete はTodoを削除する。
// POST /todos/{id}/delete
func (h *TodoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	s, _ := middleware.SessionFromContext(r.Context())
	_ = s.Todos.Delete(context.WithoutCancel(r.Context()), chi.URLParam(r, "id"))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
