package app

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/todoweb/internal/config"
)

func TestRun_WithInvalidEnv_ReturnsError(t *testing.T) {
	t.Setenv("TODO_API_URL", "not a url")

	var buf bytes.Buffer
	if err := Run(&buf, []string{"serve"}); err == nil {
		t.Fatal("Run with invalid env should return error")
	}
}

func TestRun_WithInvalidFlag_ReturnsError(t *testing.T) {
	var buf bytes.Buffer
	if err := Run(&buf, []string{"serve", "--no-such-flag"}); err == nil {
		t.Fatal("Run with unknown flag should return error")
	}
}

func TestRun_Help_ReturnsNil(t *testing.T) {
	var buf bytes.Buffer
	if err := Run(&buf, []string{"tui", "--help"}); err != nil {
		t.Fatalf("Run(--help) returned error: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("--email")) {
		t.Errorf("help output should list --email, got %s", buf.String())
	}
}

func TestRunHealthcheck(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"healthy", http.StatusOK, false},
		{"unhealthy", http.StatusServiceUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/health" {
					t.Errorf("path = %q, want /health", r.URL.Path)
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			err := Run(&bytes.Buffer{}, []string{"healthcheck", "--port", portOf(t, srv.URL)})
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRunHealthcheck_NoServer_ReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	port := portOf(t, srv.URL)
	srv.Close()

	if err := runHealthcheck(port); err == nil {
		t.Fatal("expected error when nothing listens on the port")
	}
}

// TestRunServe_ShutsDownOnCancel はコンテキストのキャンセルでサーバーが停止することを検証する。
func TestRunServe_ShutsDownOnCancel(t *testing.T) {
	cfg := &config.Config{
		StoreURL:          "http://127.0.0.1:1/api",
		StoreTimeout:      time.Second,
		SessionMaxAge:     60,
		CopyCompleteDelay: time.Millisecond,
		RateLimitGeneral:  120,
		RateLimitCopy:     10,
		ServerPort:        "0",
		BaseURL:           "http://localhost:8080",
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runServe(ctx, cfg) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("runServe returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runServe did not stop after cancel")
	}
}

func portOf(t *testing.T, rawURL string) string {
	t.Helper()
	_, port, err := net.SplitHostPort(rawURL[len("http://"):])
	if err != nil {
		t.Fatalf("failed to split %q: %v", rawURL, err)
	}
	return port
}
