package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/todoweb/internal/metrics"
)

// holderContextKey はロギングミドルウェアが共有するsessionHolderのキー。
var holderContextKey = contextKey("log_holder")

// statusRecorder はhttp.ResponseWriterをラップし、ステータスコードを記録する。
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

// WriteHeader はステータスコードを記録してから委譲する。
func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.statusCode = code
		sr.written = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

// Write はデータを書き込む。WriteHeaderが未呼び出しの場合は200を記録する。
func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.written {
		sr.statusCode = http.StatusOK
		sr.written = true
	}
	return sr.ResponseWriter.Write(b)
}

// NewLoggingMiddleware はリクエストのJSON構造化ログを出力し、
// レスポンスのステータスコードをメトリクスに記録するミドルウェアを返す。
// ログにはmethod、path、status、duration_ms、user_id（セッションがある場合）を含む。
// セッションはこのミドルウェアより内側で注入されるため、ハンドラー実行後のリクエストから参照する。
func NewLoggingMiddleware(logger *slog.Logger, collector metrics.MetricsCollector) func(next http.Handler) http.Handler {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rec := &statusRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}
			holder := &sessionHolder{}

			next.ServeHTTP(rec, r.WithContext(contextWithHolder(r.Context(), holder)))

			duration := time.Since(start)
			durationMs := float64(duration.Nanoseconds()) / float64(time.Millisecond)

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.statusCode),
				slog.Float64("duration_ms", durationMs),
			}

			if holder.userID != "" {
				attrs = append(attrs, slog.String("user_id", holder.userID))
			}

			level := slog.LevelInfo
			if rec.statusCode >= 500 {
				level = slog.LevelError
			} else if rec.statusCode >= 400 {
				level = slog.LevelWarn
			}

			args := make([]any, len(attrs))
			for i, attr := range attrs {
				args[i] = attr
			}

			logger.Log(r.Context(), level, "http_request", args...)
			collector.RecordHTTPStatus(rec.statusCode)
		})
	}
}

// sessionHolder はロギングミドルウェアへセッションのユーザーIDを伝える。
// コンテキストは内側から外側へ値を返せないため、ポインタを共有する。
type sessionHolder struct {
	userID string
}

func contextWithHolder(ctx context.Context, h *sessionHolder) context.Context {
	return context.WithValue(ctx, holderContextKey, h)
}

// noteUserID はロギングミドルウェアが注入したholderにユーザーIDを記録する。
func noteUserID(ctx context.Context, userID string) {
	if h, ok := ctx.Value(holderContextKey).(*sessionHolder); ok {
		h.userID = userID
	}
}
