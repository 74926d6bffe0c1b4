package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/todoweb/internal/middleware"
	"github.com/hitoshi/todoweb/internal/model"
	"github.com/hitoshi/todoweb/internal/session"
	"github.com/hitoshi/todoweb/internal/user"
)

// UserResolver はセッションハンドラーが必要とするユーザー解決のインターフェース。
type UserResolver interface {
	Resolve(ctx context.Context, email string) (*user.Resolution, error)
}

// SessionStore はセッションの作成と破棄のインターフェース。
// session.Managerの部分集合として定義する。
type SessionStore interface {
	Create(u model.User, todos []model.Todo) (*session.Session, error)
	Delete(id string)
}

// SessionHandlerConfig はセッションCookieの設定。
type SessionHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// SessionHandler はユーザー解決とログアウトのHTTPハンドラー。
type SessionHandler struct {
	resolver UserResolver
	sessions SessionStore
	renderer *Renderer
	config   SessionHandlerConfig
}

// NewSessionHandler はSessionHandlerを生成する。
func NewSessionHandler(resolver UserResolver, sessions SessionStore, renderer *Renderer, config SessionHandlerConfig) *SessionHandler {
	return &SessionHandler{
		resolver: resolver,
		sessions: sessions,
		renderer: renderer,
		config:   config,
	}
}

// Start はメールアドレスからユーザーを解決し、新しいセッションを開始する。
// POST /session
//
// 失敗した場合はセットアップ画面にエラーメッセージを表示し、セッションは作らない。
// 既存のセッションがあれば破棄してから作り直す。
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.PostFormValue("email"))

	res, err := h.resolver.Resolve(r.Context(), email)
	if err != nil {
		status := http.StatusBadGateway
		var validationErr *model.ValidationError
		if errors.As(err, &validationErr) {
			status = http.StatusUnprocessableEntity
		} else {
			slog.Warn("ユーザーの解決に失敗しました", slog.String("error", err.Error()))
		}
		h.renderer.render(w, status, pageSetup, &pageData{
			Title:     "Welcome",
			CSRFToken: middleware.CSRFTokenFromContext(r.Context()),
			Email:     email,
			Error:     model.DisplayMessage(err, model.MsgUnexpected),
		})
		return
	}

	if old, ok := middleware.SessionFromContext(r.Context()); ok {
		h.sessions.Delete(old.ID)
	}

	s, err := h.sessions.Create(res.User, res.Todos)
	if err != nil {
		slog.Error("セッションの作成に失敗しました", slog.String("error", err.Error()))
		http.Error(w, model.MsgUnexpected, http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    s.ID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout はセッションを破棄してセットアップ画面に戻す。
// POST /logout
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if s, ok := middleware.SessionFromContext(r.Context()); ok {
		h.sessions.Delete(s.ID)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/", http.StatusSeeOther)
}
