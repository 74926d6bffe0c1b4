package handler

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/hitoshi/todoweb/internal/middleware"
	"github.com/hitoshi/todoweb/internal/session"
)

// PageHandler は画面表示のHTTPハンドラー。
type PageHandler struct {
	renderer       *Renderer
	refreshSeconds int
}

// NewPageHandler はPageHandlerを生成する。
// copyCompleteDelayはコピー成功後に一覧を再読み込みするまでの待ち時間の算出に使う。
func NewPageHandler(renderer *Renderer, copyCompleteDelay time.Duration) *PageHandler {
	// 再取得が終わってから読み込むよう1秒余裕を持たせる
	seconds := int(math.Ceil(copyCompleteDelay.Seconds())) + 1
	return &PageHandler{
		renderer:       renderer,
		refreshSeconds: seconds,
	}
}

// Index はセッションがなければセットアップ画面、あればTodo一覧画面を表示する。
// GET /
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	s, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		h.renderer.render(w, http.StatusOK, pageSetup, &pageData{
			Title:     "Welcome",
			CSRFToken: middleware.CSRFTokenFromContext(r.Context()),
		})
		return
	}
	h.renderTodos(w, r, s)
}

// renderTodos はセッションの現在の状態でTodo一覧画面を描画する。
func (h *PageHandler) renderTodos(w http.ResponseWriter, r *http.Request, s *session.Session) {
	snap := s.Todos.Snapshot()
	copyState := s.Copy.State()

	data := &pageData{
		Title:     "Todo List",
		CSRFToken: middleware.CSRFTokenFromContext(r.Context()),
		User:      snap.User,
		Todos:     snap.Todos,
		TodoError: snap.Error,
		Copy:      copyState,
	}
	if copyState.Open && copyState.Success != "" {
		data.RefreshSeconds = h.refreshSeconds
	}
	h.renderer.render(w, http.StatusOK, pageTodos, data)
}

// Health は死活監視用のエンドポイント。
// GET /health
func (h *PageHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok"}); err != nil {
		slog.Debug("ヘルスチェック応答の書き込みに失敗しました",
			slog.String("error", err.Error()),
		)
	}
}
