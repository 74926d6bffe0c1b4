package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/todoweb/internal/config"
	"github.com/hitoshi/todoweb/internal/handler"
	"github.com/hitoshi/todoweb/internal/logger"
	"github.com/hitoshi/todoweb/internal/metrics"
	"github.com/hitoshi/todoweb/internal/middleware"
	"github.com/hitoshi/todoweb/internal/session"
	"github.com/hitoshi/todoweb/internal/store"
	"github.com/hitoshi/todoweb/internal/tui"
	"github.com/hitoshi/todoweb/internal/user"
)

// sessionSweepInterval は期限切れセッションを掃除する間隔。
const sessionSweepInterval = time.Minute

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたレベルでログを再初期化する
	logger.SetupDefault(w, cfg.LogLevel)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	flags, err := parseFlags(cmd, commandArgs(args), w)
	if errors.Is(err, errHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := flags.Port
		if port == "" {
			port = os.Getenv("SERVER_PORT")
		}
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	// TUIは端末を占有するため、標準出力にはログを書かない
	initOut := w
	if cmd == CommandTUI {
		initOut = io.Discard
	}

	cfg, err := Init(initOut)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	if err := flags.apply(cfg); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandTUI:
		out, closeLog, err := logger.OpenFile(cfg.LogFile)
		if err != nil {
			return err
		}
		defer closeLog()
		logger.SetupDefault(out, cfg.LogLevel)
		return runTUI(ctx, cfg, flags.Email)
	default:
		slog.Info("starting application",
			slog.String("command", string(cmd)),
			slog.String("port", cfg.ServerPort),
			slog.String("base_url", cfg.BaseURL),
			slog.String("store_url", cfg.StoreURL),
		)
		return runServe(ctx, cfg)
	}
}

// newStoreClient はリモートストアのクライアントを構築する。
func newStoreClient(cfg *config.Config, collector metrics.MetricsCollector) *store.Client {
	httpClient := &http.Client{Timeout: cfg.StoreTimeout}
	return store.NewClient(cfg.StoreURL, httpClient, slog.Default(), collector)
}

// runServe はWebサーバーモードで起動する。
// 全依存関係をワイヤリングし、HTTPサーバーを起動する。
// ctxがキャンセルされる（SIGINT/SIGTERM）とグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	// 1. メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// 2. ストアクライアントとドメインサービス
	storeClient := newStoreClient(cfg, collector)
	resolver := user.NewService(storeClient)

	sessions := session.NewManager(storeClient, collector, session.Config{
		MaxAge:            time.Duration(cfg.SessionMaxAge) * time.Second,
		CopyCompleteDelay: cfg.CopyCompleteDelay,
		RefreshTimeout:    cfg.StoreTimeout,
	})
	go sessions.Run(ctx, sessionSweepInterval)

	// 3. ミドルウェアと画面
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitCopy),
	)
	defer rateLimiter.Stop()

	renderer, err := handler.NewRenderer()
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}

	// 4. ルーターの構築
	router := handler.NewRouter(&handler.RouterDeps{
		Logger:      slog.Default(),
		Metrics:     collector,
		RateLimiter: rateLimiter,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},

		Sessions: sessions,
		Resolver: resolver,
		SessionConfig: handler.SessionHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		Renderer:          renderer,
		CopyCompleteDelay: cfg.CopyCompleteDelay,

		MetricsHandler: metrics.Handler(registry),
	})

	// 5. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15*time.Second + cfg.StoreTimeout,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("web server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down web server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("web server stopped gracefully",
		slog.Int("open_sessions", sessions.Count()),
	)
	return nil
}

// runTUI は端末クライアントを起動する。
// emailが空でなければ起動直後にそのメールアドレスでユーザーを解決する。
func runTUI(ctx context.Context, cfg *config.Config, email string) error {
	storeClient := newStoreClient(cfg, metrics.Nop{})

	model := tui.NewModel(storeClient, tui.Options{
		Email:             email,
		CopyCompleteDelay: cfg.CopyCompleteDelay,
		RequestTimeout:    cfg.StoreTimeout,
	})

	slog.Info("terminal client starting",
		slog.String("store_url", cfg.StoreURL),
	)

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("terminal client failed: %w", err)
	}

	slog.Info("terminal client stopped")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
