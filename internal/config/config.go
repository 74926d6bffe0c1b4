package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Store
	StoreURL     string
	StoreTimeout time.Duration

	// Session
	SessionMaxAge int

	// Copy
	CopyCompleteDelay time.Duration

	// Rate Limit（req/min）
	RateLimitGeneral int
	RateLimitCopy    int

	// Logging
	LogLevel slog.Level
	LogFile  string

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string
}

const defaultStoreURL = "http://localhost:3001/api"

// Load は環境変数からConfigを読み込む。
// ストアURLやベースURLが不正な場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	var invalid []string

	storeURL, err := NormalizeStoreURL(getEnvString("TODO_API_URL", defaultStoreURL))
	if err != nil {
		invalid = append(invalid, "TODO_API_URL")
	}
	cfg.StoreURL = storeURL

	cfg.BaseURL = getEnvString("BASE_URL", "http://localhost:8080")
	if !isHTTPURL(cfg.BaseURL) {
		invalid = append(invalid, "BASE_URL")
	}

	level, err := parseLevel(getEnvString("LOG_LEVEL", "info"))
	if err != nil {
		invalid = append(invalid, "LOG_LEVEL")
	}
	cfg.LogLevel = level

	if len(invalid) > 0 {
		return nil, fmt.Errorf("invalid environment variables: %v", invalid)
	}

	// Optional fields with defaults
	cfg.StoreTimeout = getEnvDuration("STORE_TIMEOUT", 10*time.Second)
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.CopyCompleteDelay = getEnvDuration("COPY_COMPLETE_DELAY", 1500*time.Millisecond)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitCopy = getEnvInt("RATE_LIMIT_COPY", 10)
	cfg.LogFile = getEnvString("LOG_FILE", "")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")

	return cfg, nil
}

// NormalizeStoreURL はストアのベースURLを検証し、末尾のスラッシュを除いて返す。
func NormalizeStoreURL(raw string) (string, error) {
	storeURL := strings.TrimRight(strings.TrimSpace(raw), "/")
	if !isHTTPURL(storeURL) {
		return "", fmt.Errorf("store URL must be an absolute http(s) URL: %q", raw)
	}
	return storeURL, nil
}

// isHTTPURL はhttp/httpsの絶対URLかどうかを判定する。
func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// parseLevel はLOG_LEVELの文字列をslog.Levelに変換する。
func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, err
	}
	return level, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
