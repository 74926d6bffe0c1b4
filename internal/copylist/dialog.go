// Package copylist は別ユーザーとの間でTodoリストをコピーする
// モーダルダイアログの状態と処理を提供する。
package copylist

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hitoshi/todoweb/internal/model"
)

// Copier はコピーに必要なストア操作。store.Clientの部分集合。
type Copier interface {
	CopyTodoList(ctx context.Context, source, target string) (*model.CopyResult, error)
}

// State はダイアログの表示状態。
type State struct {
	Open     bool
	InFlight bool
	Error    string
	Success  string
}

// Dialog はTodoリストコピーの一回限りのモーダル。
//
// 入力検証に失敗した場合は通信しない。
// コピー成功後はdelay経過後にonCompleteを1回呼び、呼び出し元に一覧の再取得を促す。
// 通信中にCloseされた場合、リクエストは通常どおり完了するが結果は破棄される。
// 成功後delay経過前にCloseされた場合、onCompleteは呼ばれない。
type Dialog struct {
	copier     Copier
	delay      time.Duration
	onComplete func()

	mu         sync.Mutex
	open       bool
	inFlight   bool
	generation uint64
	errMsg     string
	success    string
	timer      *time.Timer
}

// NewDialog は新しいDialogを生成する。onCompleteはnilでもよい。
func NewDialog(copier Copier, delay time.Duration, onComplete func()) *Dialog {
	return &Dialog{
		copier:     copier,
		delay:      delay,
		onComplete: onComplete,
	}
}

// Open はダイアログを開き、前回の表示内容を消去する。
// 既に開いている場合は何もしない。
func (d *Dialog) Open() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.open {
		return
	}
	d.open = true
	d.generation++
	d.errMsg = ""
	d.success = ""
}

// Close はダイアログを閉じる。通信中のリクエストの結果は破棄される。
func (d *Dialog) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return
	}
	d.open = false
	d.inFlight = false
	d.generation++
	d.errMsg = ""
	d.success = ""
	d.stopTimer()
}

// stopTimer は完了通知の予約を取り消す。d.muを保持して呼ぶ。
func (d *Dialog) stopTimer() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// fireComplete は予約したgenerationのままであればonCompleteを呼ぶ。
// Stopが間に合わなかった場合もここで打ち切る。
func (d *Dialog) fireComplete(gen uint64) {
	d.mu.Lock()
	if gen != d.generation {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()

	d.onComplete()
}

// State は現在の表示状態を返す。
func (d *Dialog) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return State{
		Open:     d.open,
		InFlight: d.inFlight,
		Error:    d.errMsg,
		Success:  d.success,
	}
}

// Submit は入力されたメールアドレスを検証し、コピーを依頼する。
//
// 検証は次の順に行い、最初の失敗で打ち切る。
//  1. 前後の空白を除いた入力が空でないこと
//  2. 入力が現在のユーザーのメールアドレスと異なること
//
// リクエストは {source: 現在のユーザー, target: 入力値} で送る。
// 通信中に再度呼ばれた場合は何もしない。閉じていれば先に開く。
func (d *Dialog) Submit(ctx context.Context, current model.User, entered string) error {
	entered = strings.TrimSpace(entered)

	d.mu.Lock()
	if !d.open {
		d.open = true
		d.generation++
	}
	if d.inFlight {
		d.mu.Unlock()
		return nil
	}

	var validationErr *model.ValidationError
	switch {
	case entered == "":
		validationErr = model.NewValidationError(model.MsgEmptySourceEmail)
	case entered == current.Email:
		validationErr = model.NewValidationError(model.MsgCopyFromSelf)
	}
	if validationErr != nil {
		d.errMsg = validationErr.Message
		d.success = ""
		d.mu.Unlock()
		return validationErr
	}

	d.inFlight = true
	d.errMsg = ""
	d.success = ""
	gen := d.generation
	d.mu.Unlock()

	result, err := d.copier.CopyTodoList(ctx, current.Email, entered)

	d.mu.Lock()
	defer d.mu.Unlock()

	if gen != d.generation {
		// 通信中に閉じられた
		slog.Info("閉じられたダイアログのコピー結果を破棄しました",
			slog.String("user_id", current.UserID),
			slog.Bool("succeeded", err == nil),
		)
		return err
	}
	d.inFlight = false

	if err != nil {
		d.errMsg = model.DisplayMessage(err, model.MsgCopyFailed)
		slog.Warn("Todoリストのコピーに失敗しました",
			slog.String("user_id", current.UserID),
			slog.String("error", err.Error()),
		)
		return err
	}

	d.success = model.MsgCopySucceeded
	if result != nil && result.Message != "" {
		d.success = result.Message
	}
	slog.Info("Todoリストをコピーしました",
		slog.String("user_id", current.UserID),
	)

	if d.onComplete != nil {
		d.stopTimer()
		d.timer = time.AfterFunc(d.delay, func() { d.fireComplete(gen) })
	}
	return nil
}
