// Package tui は単一セッション用の端末クライアントを提供する。
// Web画面と同じユーザー解決・Todoコントローラー・コピーダイアログを
// bubbleteaのプログラムから操作する。
package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/hitoshi/todoweb/internal/copylist"
	"github.com/hitoshi/todoweb/internal/metrics"
	"github.com/hitoshi/todoweb/internal/model"
	"github.com/hitoshi/todoweb/internal/todo"
	"github.com/hitoshi/todoweb/internal/user"
)

// Store は端末クライアントが必要とするストア操作。store.Clientが満たす。
type Store interface {
	user.Store
	todo.Store
	copylist.Copier
}

// Options はModelの設定。
type Options struct {
	// Email が空でなければ起動直後にこのメールアドレスでユーザーを解決する。
	Email             string
	CopyCompleteDelay time.Duration
	RequestTimeout    time.Duration
	Metrics           metrics.MetricsCollector
}

// view は現在の画面。
type view int

const (
	viewSetup view = iota
	viewList
	viewAdd
	viewCopy
)

// resolvedMsg はユーザー解決の完了を通知する。
type resolvedMsg struct {
	res *user.Resolution
	err error
}

// opDoneMsg はTodo操作の完了を通知する。結果はコントローラーが保持する。
type opDoneMsg struct{}

// copyDoneMsg はコピー要求の完了を通知する。結果はダイアログが保持する。
type copyDoneMsg struct{}

// copyCompleteMsg はコピー成功から一定時間後の完了通知。
type copyCompleteMsg struct{}

// Model はbubbleteaのモデル。
type Model struct {
	keys     KeyMap
	theme    Theme
	resolver *user.Service
	timeout  time.Duration

	controller  *todo.Controller
	dialog      *copylist.Dialog
	completions chan struct{}

	view      view
	input     textinput.Model
	email     string
	resolving bool
	setupErr  string
	cursor    int
	width     int
}

// NewModel は新しいModelを生成する。
func NewModel(store Store, opts Options) Model {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}

	// ダイアログのタイマーからプログラムへ完了を伝える。送信はブロックしない
	completions := make(chan struct{}, 1)
	onComplete := func() {
		select {
		case completions <- struct{}{}:
		default:
		}
	}

	input := textinput.New()
	input.Placeholder = "Enter your email..."
	input.CharLimit = 320
	input.Focus()

	return Model{
		keys:        DefaultKeyMap,
		theme:       DefaultTheme,
		resolver:    user.NewService(store),
		timeout:     opts.RequestTimeout,
		controller:  todo.NewController(store, opts.Metrics),
		dialog:      copylist.NewDialog(store, opts.CopyCompleteDelay, onComplete),
		completions: completions,
		view:        viewSetup,
		input:       input,
		email:       strings.TrimSpace(opts.Email),
	}
}

// Init はtea.Modelを実装する。メールアドレスが指定されていれば解決を開始する。
func (m Model) Init() tea.Cmd {
	if m.email == "" {
		return nil
	}
	return m.resolve(m.email)
}

// Update はtea.Modelを実装する。
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.ForceQuit) {
			return m, tea.Quit
		}
		switch m.view {
		case viewSetup:
			return m.updateSetup(msg)
		case viewList:
			return m.updateList(msg)
		case viewAdd:
			return m.updateAdd(msg)
		case viewCopy:
			return m.updateCopy(msg)
		}

	case resolvedMsg:
		m.resolving = false
		if msg.err != nil {
			m.setupErr = model.DisplayMessage(msg.err, model.MsgUnexpected)
			return m, nil
		}
		if err := m.controller.Bind(msg.res.User, msg.res.Todos); err != nil {
			m.setupErr = model.MsgUnexpected
			return m, nil
		}
		m.setupErr = ""
		m.view = viewList
		m.input.Blur()
		m.input.Reset()
		return m, m.listenForCompletion()

	case opDoneMsg:
		m.clampCursor()
		return m, nil

	case copyDoneMsg:
		return m, nil

	case copyCompleteMsg:
		m.dialog.Close()
		if m.view == viewCopy {
			m.leaveEntry()
		}
		return m, tea.Batch(m.refresh(), m.listenForCompletion())
	}

	return m, nil
}

func (m Model) updateSetup(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Cancel) {
		return m, tea.Quit
	}
	if key.Matches(msg, m.keys.Submit) {
		if m.resolving {
			return m, nil
		}
		m.email = strings.TrimSpace(m.input.Value())
		m.resolving = true
		m.setupErr = ""
		return m, m.resolve(m.email)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	todos := m.controller.Todos()

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(todos)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Toggle):
		if m.cursor < len(todos) {
			todoID := todos[m.cursor].TodoID
			controller := m.controller
			return m, m.runOp(func(ctx context.Context) error {
				return controller.Toggle(ctx, todoID)
			})
		}

	case key.Matches(msg, m.keys.Delete):
		if m.cursor < len(todos) {
			todoID := todos[m.cursor].TodoID
			controller := m.controller
			return m, m.runOp(func(ctx context.Context) error {
				return controller.Delete(ctx, todoID)
			})
		}

	case key.Matches(msg, m.keys.Add):
		m.enterEntry(viewAdd, "Add a magical todo...")
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		m.dialog.Open()
		m.enterEntry(viewCopy, "user@example.com")
		return m, nil
	}

	return m, nil
}

func (m Model) updateAdd(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.leaveEntry()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		name := strings.TrimSpace(m.input.Value())
		m.leaveEntry()
		if name == "" {
			return m, nil
		}
		controller := m.controller
		return m, m.runOp(func(ctx context.Context) error {
			return controller.Add(ctx, name)
		})
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateCopy(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		// 通信中であれば結果は破棄される
		m.dialog.Close()
		m.leaveEntry()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		current, _ := m.controller.User()
		entered := m.input.Value()
		dialog := m.dialog
		timeout := m.timeout
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			_ = dialog.Submit(ctx, current, entered)
			return copyDoneMsg{}
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// enterEntry はテキスト入力を伴う画面に切り替える。
func (m *Model) enterEntry(v view, placeholder string) {
	m.view = v
	m.input.Reset()
	m.input.Placeholder = placeholder
	m.input.Focus()
}

// leaveEntry は一覧画面に戻る。
func (m *Model) leaveEntry() {
	m.view = viewList
	m.input.Blur()
	m.input.Reset()
}

func (m *Model) clampCursor() {
	n := len(m.controller.Todos())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// resolve はユーザー解決を行うtea.Cmdを返す。
func (m Model) resolve(email string) tea.Cmd {
	resolver := m.resolver
	timeout := m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		res, err := resolver.Resolve(ctx, email)
		return resolvedMsg{res: res, err: err}
	}
}

// runOp はコントローラー操作を行うtea.Cmdを返す。
// エラーはコントローラーが表示用メッセージとして保持するため捨てる。
func (m Model) runOp(op func(ctx context.Context) error) tea.Cmd {
	timeout := m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		_ = op(ctx)
		return opDoneMsg{}
	}
}

// refresh は一覧を再取得するtea.Cmdを返す。
func (m Model) refresh() tea.Cmd {
	controller := m.controller
	return m.runOp(controller.Refresh)
}

// listenForCompletion はコピー完了通知が届くまでブロックするtea.Cmdを返す。
func (m Model) listenForCompletion() tea.Cmd {
	completions := m.completions
	return func() tea.Msg {
		<-completions
		return copyCompleteMsg{}
	}
}
