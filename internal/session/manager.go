// Package session はブラウザセッションごとのTodoコントローラーと
// コピーダイアログをメモリ上で管理する。
// セッションはユーザー解決時に作成され、ログアウトまたは期限切れで破棄される。
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/todoweb/internal/copylist"
	"github.com/hitoshi/todoweb/internal/metrics"
	"github.com/hitoshi/todoweb/internal/model"
	"github.com/hitoshi/todoweb/internal/todo"
)

// Store はセッション内のコントローラーとダイアログが使うストア操作。
type Store interface {
	todo.Store
	copylist.Copier
}

// Config はManagerの設定。
type Config struct {
	MaxAge            time.Duration // セッションの有効期間
	CopyCompleteDelay time.Duration // コピー成功から一覧再取得までの待ち時間
	RefreshTimeout    time.Duration // コピー後の一覧再取得のタイムアウト
}

// Session は1人の利用者のセッション。
type Session struct {
	ID        string
	Todos     *todo.Controller
	Copy      *copylist.Dialog
	CreatedAt time.Time
	ExpiresAt time.Time
}

// UserID はセッションのユーザーIDを返す。
func (s *Session) UserID() string {
	u, _ := s.Todos.User()
	return u.UserID
}

// Manager はセッションをメモリ上で管理する。
type Manager struct {
	store   Store
	metrics metrics.MetricsCollector
	config  Config

	mu       sync.RWMutex
	sessions map[string]*Session

	now   func() time.Time
	newID func() string
}

// NewManager は新しいManagerを生成する。
func NewManager(store Store, collector metrics.MetricsCollector, config Config) *Manager {
	if collector == nil {
		collector = metrics.Nop{}
	}
	if config.RefreshTimeout <= 0 {
		config.RefreshTimeout = 10 * time.Second
	}
	return &Manager{
		store:    store,
		metrics:  collector,
		config:   config,
		sessions: make(map[string]*Session),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Create はユーザー解決の結果から新しいセッションを作成する。
func (m *Manager) Create(user model.User, todos []model.Todo) (*Session, error) {
	controller := todo.NewController(m.store, m.metrics)
	if err := controller.Bind(user, todos); err != nil {
		return nil, err
	}

	now := m.now()
	s := &Session{
		ID:        m.newID(),
		Todos:     controller,
		CreatedAt: now,
		ExpiresAt: now.Add(m.config.MaxAge),
	}
	s.Copy = copylist.NewDialog(m.store, m.config.CopyCompleteDelay, m.refreshFunc(s))

	m.mu.Lock()
	m.sessions[s.ID] = s
	count := len(m.sessions)
	m.mu.Unlock()

	m.metrics.SetActiveSessions(count)
	slog.Info("セッションを作成しました",
		slog.String("session_id", s.ID),
		slog.String("user_id", user.UserID),
	)
	return s, nil
}

// Get は指定IDのセッションを返す。期限切れの場合はfalseを返す。
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if !m.now().Before(s.ExpiresAt) {
		m.Delete(id)
		return nil, false
	}
	return s, true
}

// Delete は指定IDのセッションを破棄する。存在しない場合は何もしない。
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	count := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return
	}
	// 通信中のコピー結果を破棄させる
	s.Copy.Close()
	m.metrics.SetActiveSessions(count)
}

// Count は有効なセッション数を返す。
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep は期限切れのセッションを削除し、削除件数を返す。
func (m *Manager) Sweep() int {
	now := m.now()

	var expired []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if !now.Before(s.ExpiresAt) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	count := len(m.sessions)
	m.mu.Unlock()

	for _, s := range expired {
		s.Copy.Close()
	}
	m.metrics.SetActiveSessions(count)
	return len(expired)
}

// Run はintervalごとに期限切れセッションを削除する。ctxがキャンセルされるまでブロックする。
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			deleted := m.Sweep()
			if deleted > 0 {
				slog.Info("期限切れセッションを削除しました",
					slog.Int("deleted_count", deleted),
					slog.Int("active_count", m.Count()),
					slog.Float64("duration_ms", float64(time.Since(start).Microseconds())/1000),
				)
			}
		}
	}
}

// refreshFunc はコピー完了時にセッションの一覧を再取得し、ダイアログを閉じる関数を返す。
func (m *Manager) refreshFunc(s *Session) func() {
	return func() {
		// 完了前にセッションが破棄されていれば何もしない
		if _, ok := m.Get(s.ID); !ok {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), m.config.RefreshTimeout)
		defer cancel()
		if err := s.Todos.Refresh(ctx); err != nil {
			slog.Warn("コピー後の一覧再取得に失敗しました",
				slog.String("session_id", s.ID),
				slog.String("error", err.Error()),
			)
		}
		s.Copy.Close()
	}
}
