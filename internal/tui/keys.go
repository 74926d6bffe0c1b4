package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap は端末クライアントのキーバインド。
type KeyMap struct {
	// 一覧画面
	Up     key.Binding
	Down   key.Binding
	Toggle key.Binding
	Delete key.Binding
	Add    key.Binding
	Copy   key.Binding
	Quit   key.Binding

	// テキスト入力（メールアドレス、追加、コピー）
	Submit key.Binding
	Cancel key.Binding

	// ForceQuit は入力中を含む全画面で有効。
	ForceQuit key.Binding
}

// DefaultKeyMap は既定のキーバインド。矢印キーとvim風のj/kの両方で移動できる。
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Toggle: key.NewBinding(
		key.WithKeys(" "),
		key.WithHelp("space", "toggle"),
	),
	Delete: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "delete"),
	),
	Add: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "add"),
	),
	Copy: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "copy from user"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q"),
		key.WithHelp("q", "quit"),
	),
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "submit"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "close"),
	),
	ForceQuit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("C-c", "quit"),
	),
}

// listHelp は一覧画面の下に表示するバインドの順序。
func (keys KeyMap) listHelp() []key.Binding {
	return []key.Binding{keys.Up, keys.Down, keys.Toggle, keys.Delete, keys.Add, keys.Copy, keys.Quit}
}

// entryHelp はテキスト入力中に表示するバインドの順序。
func (keys KeyMap) entryHelp() []key.Binding {
	return []key.Binding{keys.Submit, keys.Cancel}
}
