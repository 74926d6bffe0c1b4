// Package store はリモートTodoストアのHTTPクライアントを提供する。
// ユーザー作成、メールアドレス設定、Todoの取得・作成・更新、
// Todoリストのコピーをそれぞれ1回のHTTPラウンドトリップで実行する。
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/todoweb/internal/metrics"
	"github.com/hitoshi/todoweb/internal/model"
)

const (
	pathCreateUser   = "/create-user"
	pathSetUserEmail = "/set-user-email"
	pathGetTodoItems = "/get-todo-items"
	pathCreateTodo   = "/create-todo-item"
	pathUpdateTodo   = "/update-todo-item"
	pathCopyTodoList = "/copy-todo-list"

	// maxResponseSize はレスポンスボディの読み取り上限（1MB）。
	maxResponseSize = 1 << 20
)

// 操作名。ログとメトリクスのラベルに使用する。
const (
	OpCreateUser   = "create_user"
	OpSetUserEmail = "set_user_email"
	OpGetTodos     = "get_todos"
	OpCreateTodo   = "create_todo"
	OpUpdateTodo   = "update_todo"
	OpCopyTodoList = "copy_todo_list"
)

// Client はリモートTodoストアのクライアント。
// 状態を持たないため複数のgoroutineから同時に使用できる。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    metrics.MetricsCollector
	baseURL    string
}

// NewClient はClientの新しいインスタンスを生成する。
// baseURLはパスの前に付与される（例: http://localhost:3001/api）。
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger, collector metrics.MetricsCollector) *Client {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		metrics:    collector,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// CreateUser は新しいユーザーを作成する。
// POST /create-user
func (c *Client) CreateUser(ctx context.Context) (*model.CreateUserResponse, error) {
	var resp model.CreateUserResponse
	if err := c.do(ctx, OpCreateUser, http.MethodPost, pathCreateUser, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetUserEmail はユーザーにメールアドレスを紐付ける。
// POST /set-user-email
func (c *Client) SetUserEmail(ctx context.Context, userID, email string) (*model.User, error) {
	req := model.SetUserEmailRequest{UserID: userID, UserEmail: email}

	var user model.User
	if err := c.do(ctx, OpSetUserEmail, http.MethodPost, pathSetUserEmail, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetTodosByEmail はメールアドレスに紐づくユーザーとTodo一覧を取得する。
// GET /get-todo-items?userEmail=...
// 未登録のメールアドレスの場合はNotFoundのStoreErrorを返す（model.IsNotFoundで判定）。
func (c *Client) GetTodosByEmail(ctx context.Context, email string) (*model.TodoList, error) {
	q := url.Values{}
	q.Set("userEmail", email)

	var list model.TodoList
	if err := c.do(ctx, OpGetTodos, http.MethodGet, pathGetTodoItems+"?"+q.Encode(), nil, &list); err != nil {
		return nil, err
	}
	if list.Todos == nil {
		list.Todos = []model.Todo{}
	}
	return &list, nil
}

// CreateTodo はTodoを作成する。
// POST /create-todo-item
func (c *Client) CreateTodo(ctx context.Context, userID, todoName string) (*model.Todo, error) {
	req := model.CreateTodoRequest{UserID: userID, TodoName: todoName}

	var todo model.Todo
	if err := c.do(ctx, OpCreateTodo, http.MethodPost, pathCreateTodo, req, &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

// UpdateTodo はTodoの名前・完了状態を部分更新する。
// PUT /update-todo-item
// nilフィールドはリクエストボディに含めない。論理削除にも使用する。
func (c *Client) UpdateTodo(ctx context.Context, todoID string, update model.TodoUpdate) (*model.Todo, error) {
	req := model.UpdateTodoRequest{
		TodoID:    todoID,
		TodoName:  update.TodoName,
		Completed: update.Completed,
	}

	var todo model.Todo
	if err := c.do(ctx, OpUpdateTodo, http.MethodPut, pathUpdateTodo, req, &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

// CopyTodoList はsourceユーザーとtargetユーザーの間でTodoリストのコピーを依頼する。
// POST /copy-todo-list
func (c *Client) CopyTodoList(ctx context.Context, source, target string) (*model.CopyResult, error) {
	req := model.CopyTodoListRequest{Source: source, Target: target}

	var result model.CopyResult
	if err := c.do(ctx, OpCopyTodoList, http.MethodPost, pathCopyTodoList, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// errorBody は非2xxレスポンスのボディ。
type errorBody struct {
	Error string `json:"error"`
}

// do はHTTPリクエストを1回実行し、成功時はレスポンスJSONをoutにデコードする。
// 失敗はすべて*model.StoreErrorとして返す。
func (c *Client) do(ctx context.Context, op, method, path string, body any, out any) error {
	start := time.Now()

	// リクエストボディ構築
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &model.StoreError{Message: "リクエストボディのエンコードに失敗しました", Err: err}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &model.StoreError{Message: "HTTPリクエストの作成に失敗しました", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	// HTTPリクエスト実行
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordStoreRequest(op, 0, time.Since(start))
		c.logger.Error("ストアの呼び出しに失敗しました",
			slog.String("operation", op),
			slog.String("error", err.Error()),
		)
		return &model.StoreError{Message: "ストアへの接続に失敗しました", Err: err}
	}
	defer resp.Body.Close()

	c.metrics.RecordStoreRequest(op, resp.StatusCode, time.Since(start))

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		c.logger.Error("レスポンスボディの読み取りに失敗しました",
			slog.String("operation", op),
			slog.String("error", err.Error()),
		)
		return &model.StoreError{Message: "レスポンスボディの読み取りに失敗しました", Err: err}
	}

	// HTTPステータスチェック
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		storeErr := &model.StoreError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(data, resp.StatusCode),
		}
		level := slog.LevelWarn
		if resp.StatusCode == http.StatusNotFound {
			// 404はユーザー解決フローで正常系として使われる
			level = slog.LevelDebug
		}
		c.logger.Log(ctx, level, "ストアがエラーステータスを返しました",
			slog.String("operation", op),
			slog.Int("http_status", resp.StatusCode),
			slog.String("message", storeErr.Message),
		)
		return storeErr
	}

	// JSONデコード
	if err := json.Unmarshal(data, out); err != nil {
		c.logger.Error("ストアのレスポンスのパースに失敗しました",
			slog.String("operation", op),
			slog.String("error", err.Error()),
		)
		return &model.StoreError{Message: "レスポンスJSONのパースに失敗しました", Err: err}
	}

	c.logger.Debug("ストアの呼び出しが完了しました",
		slog.String("operation", op),
		slog.Int("http_status", resp.StatusCode),
		slog.Float64("duration_ms", float64(time.Since(start).Microseconds())/1000),
	)

	return nil
}

// errorMessage は非2xxレスポンスのボディからエラーメッセージを取り出す。
// パースできない場合やerrorフィールドが無い場合は汎用メッセージを返す。
func errorMessage(data []byte, statusCode int) string {
	var body errorBody
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		return body.Error
	}
	return fmt.Sprintf("HTTP error! status: %d", statusCode)
}
