package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/todoweb/internal/model"
	"github.com/hitoshi/todoweb/internal/session"
	"github.com/hitoshi/todoweb/internal/todo"
)

// --- モック定義 ---

type mockSessionFinder struct {
	getFn func(id string) (*session.Session, bool)
	calls int
}

func (m *mockSessionFinder) Get(id string) (*session.Session, bool) {
	m.calls++
	if m.getFn != nil {
		return m.getFn(id)
	}
	return nil, false
}

// newTestSession はユーザーをバインドしたセッションを生成する。
func newTestSession(t *testing.T, id, userID string) *session.Session {
	t.Helper()
	ctrl := todo.NewController(nil, nil)
	if err := ctrl.Bind(model.User{UserID: userID, Email: userID + "@example.com"}, nil); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	return &session.Session{ID: id, Todos: ctrl}
}

func finderFor(sessions ...*session.Session) *mockSessionFinder {
	return &mockSessionFinder{
		getFn: func(id string) (*session.Session, bool) {
			for _, s := range sessions {
				if s.ID == id {
					return s, true
				}
			}
			return nil, false
		},
	}
}

// --- テスト ---

func TestSessionMiddleware_ValidSession_InjectsSession(t *testing.T) {
	s := newTestSession(t, "valid-session-id", "user-123")
	mw := NewSessionMiddleware(finderFor(s))

	var captured *session.Session
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = SessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "valid-session-id"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if captured != s {
		t.Errorf("session = %v, want %v", captured, s)
	}
}

func TestSessionMiddleware_NoCookie_PassesWithoutSession(t *testing.T) {
	finder := &mockSessionFinder{}
	mw := NewSessionMiddleware(finder)

	handlerCalled := false
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		if _, ok := SessionFromContext(r.Context()); ok {
			t.Error("session should not be in context")
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if !handlerCalled {
		t.Error("handler should have been called")
	}
	if finder.calls != 0 {
		t.Errorf("finder calls = %d, want 0", finder.calls)
	}
}

func TestSessionMiddleware_UnknownSession_ClearsCookie(t *testing.T) {
	mw := NewSessionMiddleware(&mockSessionFinder{})

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := SessionFromContext(r.Context()); ok {
			t.Error("session should not be in context")
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "expired"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	var cleared bool
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("expected session cookie to be cleared")
	}
}

func TestRequireSession(t *testing.T) {
	s := newTestSession(t, "sid", "user-1")

	tests := []struct {
		name       string
		withCookie bool
		wantStatus int
		wantCalled bool
	}{
		{"セッションあり", true, http.StatusOK, true},
		{"セッションなしはリダイレクト", false, http.StatusSeeOther, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := NewSessionMiddleware(finderFor(s))(RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			})))

			req := httptest.NewRequest(http.MethodPost, "/todos", nil)
			if tt.withCookie {
				req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "sid"})
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if called != tt.wantCalled {
				t.Errorf("handler called = %v, want %v", called, tt.wantCalled)
			}
			if tt.wantStatus == http.StatusSeeOther && w.Header().Get("Location") != "/" {
				t.Errorf("Location = %q, want %q", w.Header().Get("Location"), "/")
			}
		})
	}
}

func TestSessionFromContext_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := SessionFromContext(req.Context()); ok {
		t.Error("expected no session in empty context")
	}
	if _, ok := SessionFromContext(ContextWithSession(req.Context(), nil)); ok {
		t.Error("nil session should be reported as missing")
	}
}
