package handler

import (
	"context"
	"fmt"
	"sync"

	"github.com/hitoshi/todoweb/internal/model"
)

// fakeStore はリモートストアのインメモリ実装。
type fakeStore struct {
	mu       sync.Mutex
	emails   map[string]string       // email -> userID
	todos    map[string][]model.Todo // userID -> todos
	nextID   int
	created  []string // CreateTodoに渡されたtodoName
	copies   [][2]string
	lookupFn func(email string) error
	createFn func(todoName string) error
	copyFn   func(source, target string) error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		emails: map[string]string{},
		todos:  map[string][]model.Todo{},
	}
}

// addUser は既存ユーザーとTodoを登録する。
func (f *fakeStore) addUser(userID, email string, todos ...model.Todo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emails[email] = userID
	f.todos[userID] = todos
}

func (f *fakeStore) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeStore) GetTodosByEmail(ctx context.Context, email string) (*model.TodoList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupFn != nil {
		if err := f.lookupFn(email); err != nil {
			return nil, err
		}
	}
	userID, ok := f.emails[email]
	if !ok {
		return nil, &model.StoreError{StatusCode: 404, Message: "User not found"}
	}
	todos := append([]model.Todo{}, f.todos[userID]...)
	return &model.TodoList{UserID: userID, UserEmail: email, Todos: todos}, nil
}

func (f *fakeStore) CreateUser(ctx context.Context) (*model.CreateUserResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &model.CreateUserResponse{UserID: f.id("u")}, nil
}

func (f *fakeStore) SetUserEmail(ctx context.Context, userID, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emails[email] = userID
	return &model.User{UserID: userID, Email: email, CreatedAt: "2026-10-16T00:00:00Z"}, nil
}

func (f *fakeStore) CreateTodo(ctx context.Context, userID, todoName string) (*model.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, todoName)
	if f.createFn != nil {
		if err := f.createFn(todoName); err != nil {
			return nil, err
		}
	}
	todo := model.Todo{TodoID: f.id("t"), UserID: userID, TodoName: todoName}
	f.todos[userID] = append(f.todos[userID], todo)
	return &todo, nil
}

func (f *fakeStore) UpdateTodo(ctx context.Context, todoID string, update model.TodoUpdate) (*model.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for userID, list := range f.todos {
		for i := range list {
			if list[i].TodoID != todoID {
				continue
			}
			if update.TodoName != nil {
				list[i].TodoName = *update.TodoName
			}
			if update.Completed != nil {
				list[i].Completed = *update.Completed
			}
			f.todos[userID] = list
			updated := list[i]
			return &updated, nil
		}
	}
	return nil, &model.StoreError{StatusCode: 404, Message: "Todo not found"}
}

// CopyTodoList はtargetのTodoをsourceの一覧に複製する。
func (f *fakeStore) CopyTodoList(ctx context.Context, source, target string) (*model.CopyResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.copies = append(f.copies, [2]string{source, target})
	if f.copyFn != nil {
		if err := f.copyFn(source, target); err != nil {
			return nil, err
		}
	}
	targetID, ok := f.emails[target]
	if !ok {
		return nil, &model.StoreError{StatusCode: 404, Message: "Target user not found"}
	}
	sourceID := f.emails[source]
	for _, todo := range f.todos[targetID] {
		todo.TodoID = f.id("t")
		todo.UserID = sourceID
		f.todos[sourceID] = append(f.todos[sourceID], todo)
	}
	return &model.CopyResult{Message: fmt.Sprintf("Copied %d todos", len(f.todos[targetID]))}, nil
}

func (f *fakeStore) createdNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.created...)
}

func (f *fakeStore) copyCalls() [][2]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][2]string{}, f.copies...)
}
