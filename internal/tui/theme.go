package tui

import "github.com/charmbracelet/lipgloss"

// Theme は画面描画に使うlipglossのスタイル。
type Theme struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Email    lipgloss.Style
	Cursor   lipgloss.Style
	Done     lipgloss.Style
	Pending  lipgloss.Style
	Empty    lipgloss.Style
	Error    lipgloss.Style
	Success  lipgloss.Style
	Help     lipgloss.Style
	Modal    lipgloss.Style
}

// DefaultTheme はWeb画面と同系統の配色。
var DefaultTheme = Theme{
	Title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F472B6")),
	Subtitle: lipgloss.NewStyle().Foreground(lipgloss.Color("#A1A1AA")),
	Email:    lipgloss.NewStyle().Foreground(lipgloss.Color("#C084FC")),
	Cursor:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F472B6")),
	Done:     lipgloss.NewStyle().Strikethrough(true).Foreground(lipgloss.Color("#71717A")),
	Pending:  lipgloss.NewStyle(),
	Empty:    lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#A1A1AA")),
	Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")),
	Success:  lipgloss.NewStyle().Foreground(lipgloss.Color("#22C55E")),
	Help:     lipgloss.NewStyle().Foreground(lipgloss.Color("#71717A")),
	Modal: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#C084FC")).
		Padding(1, 2),
}
