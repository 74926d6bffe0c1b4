package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/todoweb/internal/middleware"
)

// CopyHandler はTodoリストコピーのダイアログを操作するHTTPハンドラー。
// ルートはRequireSessionの内側に配置する。
type CopyHandler struct {
	pages *PageHandler
}

// NewCopyHandler はCopyHandlerを生成する。
func NewCopyHandler(pages *PageHandler) *CopyHandler {
	return &CopyHandler{pages: pages}
}

// Open はダイアログを開いた一覧画面を表示する。
// GET /copy
func (h *CopyHandler) Open(w http.ResponseWriter, r *http.Request) {
	s, _ := middleware.SessionFromContext(r.Context())
	s.Copy.Open()
	h.pages.renderTodos(w, r, s)
}

// Submit は入力されたメールアドレスとの間でコピーを実行する。
// POST /copy
//
// 検証エラーやストアのエラーはダイアログに表示される。
// 成功時は一覧画面が一定時間後に再読み込みされ、コピー後の一覧が表示される。
func (h *CopyHandler) Submit(w http.ResponseWriter, r *http.Request) {
	s, _ := middleware.SessionFromContext(r.Context())

	current, _ := s.Todos.User()
	// 空白の除去と検証はダイアログが行う
	email := r.PostFormValue("email")
	// ブラウザが切断してもコピーは中断しない。タイムアウトはストアクライアントが持つ
	_ = s.Copy.Submit(context.WithoutCancel(r.Context()), current, email)

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Close はダイアログを閉じる。通信中のコピー結果は破棄される。
// POST /copy/close
func (h *CopyHandler) Close(w http.ResponseWriter, r *http.Request) {
	s, _ := middleware.SessionFromContext(r.Context())
	s.Copy.Close()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
