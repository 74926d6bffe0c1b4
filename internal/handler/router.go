package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/todoweb/internal/metrics"
	"github.com/hitoshi/todoweb/internal/middleware"
)

// Sessions はルーターが必要とするセッション操作。session.Managerが満たす。
type Sessions interface {
	middleware.SessionFinder
	SessionStore
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger      *slog.Logger
	Metrics     metrics.MetricsCollector
	RateLimiter *middleware.RateLimiter
	CSRFConfig  middleware.CSRFConfig

	// セッション
	Sessions      Sessions
	Resolver      UserResolver
	SessionConfig SessionHandlerConfig

	// 画面
	Renderer          *Renderer
	CopyCompleteDelay time.Duration

	// GET /metrics のハンドラー。nilの場合はルートを登録しない
	MetricsHandler http.Handler
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CSRF → Session → RateLimit(General)
//
// /health と /metrics はミドルウェアチェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	pageHandler := NewPageHandler(deps.Renderer, deps.CopyCompleteDelay)
	sessionHandler := NewSessionHandler(deps.Resolver, deps.Sessions, deps.Renderer, deps.SessionConfig)
	todoHandler := NewTodoHandler()
	copyHandler := NewCopyHandler(pageHandler)

	// --- 監視用のルート ---
	r.Get("/health", pageHandler.Health)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- 画面のルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewRecoveryMiddleware())
		r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.Metrics))
		r.Use(middleware.NewSecurityHeadersMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(middleware.NewSessionMiddleware(deps.Sessions))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/", pageHandler.Index)
		r.Post("/session", sessionHandler.Start)
		r.Post("/logout", sessionHandler.Logout)

		// セッションが必要なルート
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession)

			r.Route("/todos", func(r chi.Router) {
				r.Post("/", todoHandler.Add)
				r.Post("/{id}/toggle", todoHandler.Toggle)
				r.Post("/{id}/delete", todoHandler.Delete)
			})

			r.Route("/copy", func(r chi.Router) {
				r.Get("/", copyHandler.Open)
				// POST /copy - コピー実行（コピー専用レート制限を追加）
				r.With(deps.RateLimiter.CopyMiddleware()).Post("/", copyHandler.Submit)
				r.Post("/close", copyHandler.Close)
			})
		})
	})

	return r
}
