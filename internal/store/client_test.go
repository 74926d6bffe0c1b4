package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/todoweb/internal/model"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// recordingMetrics はRecordStoreRequestの呼び出しを記録するMetricsCollector。
type recordingMetrics struct {
	mu       sync.Mutex
	requests []string
	statuses []int
}

func (m *recordingMetrics) RecordStoreRequest(op string, status int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, op)
	m.statuses = append(m.statuses, status)
}
func (m *recordingMetrics) RecordOperationFailure(string) {}
func (m *recordingMetrics) SetActiveSessions(int)         {}
func (m *recordingMetrics) RecordHTTPStatus(int)          {}

// newTestClient はテスト用HTTPサーバーに向けたClientを生成する。
func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *recordingMetrics) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	var buf bytes.Buffer
	rec := &recordingMetrics{}
	return NewClient(server.URL+"/api", server.Client(), newTestLogger(&buf), rec), rec
}

// decodeBody はリクエストボディをmapにデコードする。
func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		t.Fatalf("リクエストボディのデコードに失敗: %v", err)
	}
	return body
}

func TestNewClient_ReturnsNonNil(t *testing.T) {
	var buf bytes.Buffer
	c := NewClient("http://localhost:3001/api/", http.DefaultClient, newTestLogger(&buf), nil)
	if c == nil {
		t.Fatal("NewClient は nil を返してはならない")
	}
	if c.baseURL != "http://localhost:3001/api" {
		t.Errorf("baseURL = %q, want trailing slash trimmed", c.baseURL)
	}
}

func TestClient_CreateUser(t *testing.T) {
	c, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("HTTPメソッド = %s, want POST", r.Method)
		}
		if r.URL.Path != "/api/create-user" {
			t.Errorf("パス = %s, want /api/create-user", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if len(body) != 0 {
			t.Errorf("リクエストボディは空であるべき: %s", body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"userId":"u-1"}`))
	})

	resp, err := c.CreateUser(context.Background())
	if err != nil {
		t.Fatalf("CreateUser がエラーを返した: %v", err)
	}
	if resp.UserID != "u-1" {
		t.Errorf("UserID = %q, want %q", resp.UserID, "u-1")
	}
	if len(rec.requests) != 1 || rec.requests[0] != OpCreateUser || rec.statuses[0] != 200 {
		t.Errorf("metrics = %v/%v, want [create_user]/[200]", rec.requests, rec.statuses)
	}
}

func TestClient_SetUserEmail(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/set-user-email" {
			t.Errorf("request = %s %s, want POST /api/set-user-email", r.Method, r.URL.Path)
		}
		body := decodeBody(t, r)
		if body["userId"] != "u-1" || body["userEmail"] != "u1@example.com" {
			t.Errorf("body = %v", body)
		}
		w.Write([]byte(`{"userId":"u-1","email":"u1@example.com","createdAt":"2026-01-01T00:00:00Z"}`))
	})

	user, err := c.SetUserEmail(context.Background(), "u-1", "u1@example.com")
	if err != nil {
		t.Fatalf("SetUserEmail がエラーを返した: %v", err)
	}
	want := model.User{UserID: "u-1", Email: "u1@example.com", CreatedAt: "2026-01-01T00:00:00Z"}
	if *user != want {
		t.Errorf("user = %+v, want %+v", *user, want)
	}
}

func TestClient_GetTodosByEmail_Found(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/get-todo-items" {
			t.Errorf("request = %s %s, want GET /api/get-todo-items", r.Method, r.URL.Path)
		}
		if got := r.URL.Query().Get("userEmail"); got != "a+b@example.com" {
			t.Errorf("userEmail = %q, want %q", got, "a+b@example.com")
		}
		w.Write([]byte(`{"userId":"u-1","userEmail":"a+b@example.com","todos":[
			{"todoId":"t-2","userId":"u-1","todoName":"second","completed":true,"createdAt":"x"},
			{"todoId":"t-1","userId":"u-1","todoName":"first","completed":false,"createdAt":"y"}]}`))
	})

	list, err := c.GetTodosByEmail(context.Background(), "a+b@example.com")
	if err != nil {
		t.Fatalf("GetTodosByEmail がエラーを返した: %v", err)
	}
	if list.UserID != "u-1" || list.UserEmail != "a+b@example.com" {
		t.Errorf("list = %+v", list)
	}
	if len(list.Todos) != 2 || list.Todos[0].TodoID != "t-2" || list.Todos[1].TodoID != "t-1" {
		t.Errorf("todos should keep server order, got %+v", list.Todos)
	}
}

func TestClient_GetTodosByEmail_NullTodosBecomesEmpty(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"userId":"u-1","userEmail":"u1@example.com","todos":null}`))
	})

	list, err := c.GetTodosByEmail(context.Background(), "u1@example.com")
	if err != nil {
		t.Fatalf("GetTodosByEmail がエラーを返した: %v", err)
	}
	if list.Todos == nil || len(list.Todos) != 0 {
		t.Errorf("todos = %#v, want empty non-nil slice", list.Todos)
	}
}

func TestClient_GetTodosByEmail_NotFound(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"User not found"}`))
	})

	_, err := c.GetTodosByEmail(context.Background(), "missing@example.com")
	if !model.IsNotFound(err) {
		t.Fatalf("err = %v, want NotFound", err)
	}
	var storeErr *model.StoreError
	errors.As(err, &storeErr)
	if storeErr.Message != "User not found" {
		t.Errorf("Message = %q, want %q", storeErr.Message, "User not found")
	}
}

func TestClient_CreateTodo(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/create-todo-item" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		body := decodeBody(t, r)
		if body["userId"] != "u-1" || body["todoName"] != "buy milk" {
			t.Errorf("body = %v", body)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"todoId":"t-1","userId":"u-1","todoName":"buy milk","completed":false,"createdAt":"2026-01-01T00:00:00Z"}`))
	})

	todo, err := c.CreateTodo(context.Background(), "u-1", "buy milk")
	if err != nil {
		t.Fatalf("CreateTodo がエラーを返した: %v", err)
	}
	if todo.TodoID != "t-1" || todo.TodoName != "buy milk" || todo.Completed {
		t.Errorf("todo = %+v", todo)
	}
}

func TestClient_UpdateTodo_OmitsNilFields(t *testing.T) {
	completed := true
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api/update-todo-item" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		body := decodeBody(t, r)
		if _, ok := body["todoName"]; ok {
			t.Errorf("todoName should be omitted, body = %v", body)
		}
		if body["todoId"] != "t-1" || body["completed"] != true {
			t.Errorf("body = %v", body)
		}
		w.Write([]byte(`{"todoId":"t-1","userId":"u-1","todoName":"buy milk","completed":true}`))
	})

	todo, err := c.UpdateTodo(context.Background(), "t-1", model.TodoUpdate{Completed: &completed})
	if err != nil {
		t.Fatalf("UpdateTodo がエラーを返した: %v", err)
	}
	if !todo.Completed {
		t.Error("Completed should be true")
	}
}

func TestClient_UpdateTodo_FalseCompletedIsSent(t *testing.T) {
	completed := false
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		v, ok := body["completed"]
		if !ok || v != false {
			t.Errorf("completed=false must be sent, body = %v", body)
		}
		w.Write([]byte(`{"todoId":"t-1","completed":false}`))
	})

	if _, err := c.UpdateTodo(context.Background(), "t-1", model.TodoUpdate{Completed: &completed}); err != nil {
		t.Fatalf("UpdateTodo がエラーを返した: %v", err)
	}
}

func TestClient_CopyTodoList(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/copy-todo-list" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		body := decodeBody(t, r)
		if body["source"] != "u1@example.com" || body["target"] != "u2@example.com" {
			t.Errorf("body = %v", body)
		}
		w.Write([]byte(`{"message":"Copied 3 todos"}`))
	})

	result, err := c.CopyTodoList(context.Background(), "u1@example.com", "u2@example.com")
	if err != nil {
		t.Fatalf("CopyTodoList がエラーを返した: %v", err)
	}
	if result.Message != "Copied 3 todos" {
		t.Errorf("Message = %q, want %q", result.Message, "Copied 3 todos")
	}
}

func TestClient_ErrorStatus_MessageHandling(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantMsg    string
	}{
		{"error field", http.StatusBadRequest, `{"error":"todoName is required"}`, 400, "todoName is required"},
		{"no error field", http.StatusInternalServerError, `{"detail":"x"}`, 500, "HTTP error! status: 500"},
		{"unparseable body", http.StatusBadGateway, `<html>bad gateway</html>`, 502, "HTTP error! status: 502"},
		{"empty body", http.StatusServiceUnavailable, ``, 503, "HTTP error! status: 503"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := c.CreateTodo(context.Background(), "u-1", "x")
			var storeErr *model.StoreError
			if !errors.As(err, &storeErr) {
				t.Fatalf("err = %v, want *model.StoreError", err)
			}
			if storeErr.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", storeErr.StatusCode, tt.wantStatus)
			}
			if storeErr.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", storeErr.Message, tt.wantMsg)
			}
			if len(rec.statuses) != 1 || rec.statuses[0] != tt.wantStatus {
				t.Errorf("recorded statuses = %v, want [%d]", rec.statuses, tt.wantStatus)
			}
		})
	}
}

func TestClient_MalformedSuccessBody_ReturnsUnknownError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})

	_, err := c.CreateUser(context.Background())
	var storeErr *model.StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("err = %v, want *model.StoreError", err)
	}
	if storeErr.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0 for malformed body", storeErr.StatusCode)
	}
	if got := model.DisplayMessage(err, "fallback"); got != "fallback" {
		t.Errorf("DisplayMessage = %q, want fallback", got)
	}
}

func TestClient_TransportFailure_ReturnsUnknownError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	var buf bytes.Buffer
	rec := &recordingMetrics{}
	c := NewClient(baseURL, &http.Client{Timeout: time.Second}, newTestLogger(&buf), rec)

	_, err := c.GetTodosByEmail(context.Background(), "u1@example.com")
	var storeErr *model.StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("err = %v, want *model.StoreError", err)
	}
	if storeErr.StatusCode != 0 || storeErr.Err == nil {
		t.Errorf("storeErr = %+v, want status 0 with cause", storeErr)
	}
	if model.IsNotFound(err) {
		t.Error("transport failure must not be treated as NotFound")
	}
	if len(rec.statuses) != 1 || rec.statuses[0] != 0 {
		t.Errorf("recorded statuses = %v, want [0]", rec.statuses)
	}
}

func TestClient_SingleRoundTripPerCall(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, _ = c.UpdateTodo(context.Background(), "t-1", model.TodoUpdate{})

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("calls = %d, want exactly 1 (no retries)", calls)
	}
}
