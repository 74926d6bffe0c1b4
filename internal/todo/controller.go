// Package todo はセッション中のTodo一覧を保持し、
// 追加・完了切り替え・削除をリモートストア経由で反映するコントローラーを提供する。
package todo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hitoshi/todoweb/internal/metrics"
	"github.com/hitoshi/todoweb/internal/model"
)

// 操作名。ログとメトリクスのラベルに使用する。
const (
	OpAdd     = "add"
	OpToggle  = "toggle"
	OpDelete  = "delete"
	OpRefresh = "refresh"
)

// ErrUserAlreadyBound はセッションに既にユーザーが設定されている場合のエラー。
var ErrUserAlreadyBound = errors.New("session user is already bound")

// Store はコントローラーが必要とするストア操作。
// store.Clientの部分集合として定義する。
type Store interface {
	CreateTodo(ctx context.Context, userID, todoName string) (*model.Todo, error)
	UpdateTodo(ctx context.Context, todoID string, update model.TodoUpdate) (*model.Todo, error)
	GetTodosByEmail(ctx context.Context, email string) (*model.TodoList, error)
}

// Snapshot はある時点のコントローラーの状態。
type Snapshot struct {
	User  *model.User
	Todos []model.Todo
	Error string
}

// Controller はセッションのユーザーとTodo一覧を保持する。
//
// 各操作は通信前に直前のエラーを消去し、失敗時は一覧を変更せずに
// 表示用のエラーメッセージを1つだけ設定する。
// ミューテックスはメモリ上の状態のみを保護し、通信中は保持しない。
// そのため短時間に連続した操作はそれぞれ送信され、応答が届いた順に反映される。
type Controller struct {
	store   Store
	metrics metrics.MetricsCollector

	mu     sync.Mutex
	user   *model.User
	todos  []model.Todo
	errMsg string
}

// NewController は新しいControllerを生成する。ユーザーはBindで設定する。
func NewController(store Store, collector metrics.MetricsCollector) *Controller {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Controller{
		store:   store,
		metrics: collector,
		todos:   []model.Todo{},
	}
}

// Bind はユーザー解決の結果をセッションに設定する。
// ユーザーはセッション中に変更できないため、2回目以降はErrUserAlreadyBoundを返す。
func (c *Controller) Bind(user model.User, todos []model.Todo) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.user != nil {
		return ErrUserAlreadyBound
	}
	u := user
	c.user = &u
	c.todos = visible(todos)
	c.errMsg = ""
	return nil
}

// Add はTodoを作成し、成功時に一覧の末尾へ追加する。
// ユーザー未設定の場合は何もしない。
func (c *Controller) Add(ctx context.Context, todoName string) error {
	user, ok := c.begin()
	if !ok {
		return nil
	}

	todo, err := c.store.CreateTodo(ctx, user.UserID, todoName)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		return c.fail(OpAdd, err, model.MsgAddFailed)
	}
	if todo.UserID == "" {
		todo.UserID = user.UserID
	}
	c.todos = append(c.todos, *todo)
	return nil
}

// Toggle はTodoの完了状態を反転する。
// 一覧に無いIDの場合は何もしない。成功時はサーバーが返したTodoで置き換える。
func (c *Controller) Toggle(ctx context.Context, todoID string) error {
	c.mu.Lock()
	idx := c.indexOf(todoID)
	if c.user == nil || idx < 0 {
		c.mu.Unlock()
		return nil
	}
	completed := !c.todos[idx].Completed
	c.errMsg = ""
	c.mu.Unlock()

	updated, err := c.store.UpdateTodo(ctx, todoID, model.TodoUpdate{Completed: &completed})

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		return c.fail(OpToggle, err, model.MsgUpdateFailed)
	}
	// 応答待ちの間に削除されていれば反映しない
	if i := c.indexOf(todoID); i >= 0 {
		c.todos[i] = *updated
	}
	return nil
}

// Delete はTodoを論理削除し、成功時に一覧から取り除く。
// 名前をmodel.DeletedTodoNameに、完了状態をtrueに更新することで削除を表現する。
// 一覧に無いIDの場合は何もしない。
func (c *Controller) Delete(ctx context.Context, todoID string) error {
	c.mu.Lock()
	if c.user == nil || c.indexOf(todoID) < 0 {
		c.mu.Unlock()
		return nil
	}
	c.errMsg = ""
	c.mu.Unlock()

	name := model.DeletedTodoName
	completed := true
	_, err := c.store.UpdateTodo(ctx, todoID, model.TodoUpdate{TodoName: &name, Completed: &completed})

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		return c.fail(OpDelete, err, model.MsgDeleteFailed)
	}
	if i := c.indexOf(todoID); i >= 0 {
		c.todos = append(c.todos[:i], c.todos[i+1:]...)
	}
	return nil
}

// Refresh はストアから現在のユーザーのTodo一覧を取得し直し、一覧を丸ごと置き換える。
// Todoリストのコピー完了後に使用する。
func (c *Controller) Refresh(ctx context.Context) error {
	user, ok := c.begin()
	if !ok {
		return nil
	}

	list, err := c.store.GetTodosByEmail(ctx, user.Email)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		return c.fail(OpRefresh, err, model.MsgRefreshFailed)
	}
	c.todos = visible(list.Todos)
	return nil
}

// User は現在のユーザーを返す。未設定の場合はfalseを返す。
func (c *Controller) User() (model.User, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return model.User{}, false
	}
	return *c.user, true
}

// Todos は現在のTodo一覧のコピーを返す。
func (c *Controller) Todos() []model.Todo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Todo(nil), c.todos...)
}

// Err は直近の操作のエラーメッセージを返す。エラーが無い場合は空文字列。
func (c *Controller) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

// Snapshot はユーザー、一覧、エラーを一貫した状態で返す。
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		Todos: append([]model.Todo(nil), c.todos...),
		Error: c.errMsg,
	}
	if c.user != nil {
		u := *c.user
		s.User = &u
	}
	return s
}

// begin は操作開始時にエラーを消去し、現在のユーザーを返す。
func (c *Controller) begin() (model.User, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return model.User{}, false
	}
	c.errMsg = ""
	return *c.user, true
}

// fail は失敗を記録し、表示用メッセージを設定する。c.muを保持した状態で呼ぶこと。
func (c *Controller) fail(op string, err error, fallback string) error {
	c.errMsg = model.DisplayMessage(err, fallback)
	c.metrics.RecordOperationFailure(op)
	slog.Warn("Todo操作に失敗しました",
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
	return fmt.Errorf("%s: %w", op, err)
}

// indexOf は一覧内のTodoの位置を返す。c.muを保持した状態で呼ぶこと。
func (c *Controller) indexOf(todoID string) int {
	for i, t := range c.todos {
		if t.TodoID == todoID {
			return i
		}
	}
	return -1
}

// visible は論理削除済みのTodoを除いた一覧を返す。順序は保持する。
func visible(todos []model.Todo) []model.Todo {
	out := make([]model.Todo, 0, len(todos))
	for _, t := range todos {
		if t.IsSoftDeleted() {
			continue
		}
		out = append(out, t)
	}
	return out
}
