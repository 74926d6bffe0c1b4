// Package user はメールアドレスからセッションのユーザーを解決する。
// 既存ユーザーの取得か、新規ユーザーの作成とメールアドレスの紐付けを行う。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/todoweb/internal/model"
)

// Store はユーザー解決に必要なストア操作。
// store.Clientの部分集合として定義する。
type Store interface {
	GetTodosByEmail(ctx context.Context, email string) (*model.TodoList, error)
	CreateUser(ctx context.Context) (*model.CreateUserResponse, error)
	SetUserEmail(ctx context.Context, userID, email string) (*model.User, error)
}

// Resolution はユーザー解決の結果。
type Resolution struct {
	User  model.User
	Todos []model.Todo
	// Created は今回新規にユーザーを作成したかどうか。
	Created bool
}

// Service はユーザー解決のサービス層。
type Service struct {
	store Store
	now   func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(store Store) *Service {
	return &Service{
		store: store,
		now:   time.Now,
	}
}

// Resolve はメールアドレスに対応するユーザーとTodo一覧を返す。
//
//  1. 前後の空白を除いたメールアドレスが空なら通信せずValidationErrorを返す。
//  2. get-todo-itemsで既存ユーザーを検索する。見つかればそのTodo一覧を順序を変えずに返す。
//  3. 404の場合はcreate-userとset-user-emailを1回ずつ呼び、空の一覧を返す。
//
// それ以外のエラーではフローを中断し、何も返さない。
// メールアドレスの一意性はストアに委ねる。同時に解決した別のリクエストが先に
// 紐付けを済ませてset-user-emailが409を返した場合は、検索をもう一度だけ行う。
func (s *Service) Resolve(ctx context.Context, email string) (*Resolution, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, model.NewValidationError(model.MsgEmptyEmail)
	}

	existing, err := s.store.GetTodosByEmail(ctx, email)
	if err == nil {
		return s.existing(existing), nil
	}
	if !model.IsNotFound(err) {
		return nil, fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}

	created, err := s.store.CreateUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	user, err := s.store.SetUserEmail(ctx, created.UserID, email)
	if err != nil {
		if isConflict(err) {
			if existing, lookupErr := s.store.GetTodosByEmail(ctx, email); lookupErr == nil {
				slog.Warn("メールアドレスは既に紐付け済みのため既存ユーザーを使用します",
					slog.String("orphan_user_id", created.UserID),
				)
				return s.existing(existing), nil
			}
		}
		return nil, fmt.Errorf("メールアドレスの設定に失敗しました: %w", err)
	}
	// レスポンスに含まれない項目は要求した値で補完する
	if user.UserID == "" {
		user.UserID = created.UserID
	}
	if user.Email == "" {
		user.Email = email
	}

	slog.Info("新規ユーザーを作成しました",
		slog.String("user_id", user.UserID),
	)

	return &Resolution{User: *user, Todos: []model.Todo{}, Created: true}, nil
}

// existing は検索結果から既存ユーザーのResolutionを組み立てる。
func (s *Service) existing(list *model.TodoList) *Resolution {
	// ストアは作成日時を返さないため、解決時刻で代用する
	user := model.User{
		UserID:    list.UserID,
		Email:     list.UserEmail,
		CreatedAt: s.now().UTC().Format(time.RFC3339),
	}
	slog.Info("既存ユーザーを解決しました",
		slog.String("user_id", user.UserID),
		slog.Int("todo_count", len(list.Todos)),
	)
	return &Resolution{User: user, Todos: list.Todos}
}

// isConflict はストアが409を返したかどうかを判定する。
func isConflict(err error) bool {
	var storeErr *model.StoreError
	return errors.As(err, &storeErr) && storeErr.StatusCode == http.StatusConflict
}
