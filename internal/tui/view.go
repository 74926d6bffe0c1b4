package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// 幅が不明な場合の表示幅。
const defaultWidth = 80

// View はtea.Modelを実装する。
func (m Model) View() string {
	switch m.view {
	case viewSetup:
		return m.setupView()
	case viewCopy:
		return m.copyView()
	default:
		return m.listView()
	}
}

func (m Model) setupView() string {
	var b strings.Builder
	b.WriteString(m.theme.Title.Render("Welcome!"))
	b.WriteString("\n")
	b.WriteString(m.theme.Subtitle.Render("Enter your email to get started with your todos"))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	if m.resolving {
		b.WriteString(m.theme.Subtitle.Render("Setting up..."))
		b.WriteString("\n")
	}
	if m.setupErr != "" {
		b.WriteString(m.theme.Error.Render(m.setupErr))
		b.WriteString("\n")
	}
	b.WriteString(m.helpLine([]key.Binding{m.keys.Submit, m.keys.ForceQuit}))
	return b.String()
}

func (m Model) listView() string {
	snap := m.controller.Snapshot()
	width := m.width
	if width <= 0 {
		width = defaultWidth
	}

	var b strings.Builder
	b.WriteString(m.theme.Title.Render("Todo List"))
	if snap.User != nil {
		b.WriteString("  ")
		b.WriteString(m.theme.Email.Render(snap.User.Email))
	}
	b.WriteString("\n\n")

	if snap.Error != "" {
		b.WriteString(m.theme.Error.Render(snap.Error))
		b.WriteString("\n\n")
	}

	if len(snap.Todos) == 0 {
		b.WriteString(m.theme.Empty.Render("No todos yet. Add one above!"))
		b.WriteString("\n")
	}
	for i, t := range snap.Todos {
		marker := "  "
		if i == m.cursor {
			marker = m.theme.Cursor.Render("> ")
		}
		check := "[ ]"
		style := m.theme.Pending
		if t.Completed {
			check = "[x]"
			style = m.theme.Done
		}
		// マーカーとチェック欄の6桁を除いた幅に収める
		name := ansi.Truncate(t.TodoName, max(width-6, 10), "…")
		fmt.Fprintf(&b, "%s%s %s\n", marker, check, style.Render(name))
	}
	b.WriteString("\n")

	if m.view == viewAdd {
		b.WriteString(m.input.View())
		b.WriteString("\n")
		b.WriteString(m.helpLine(m.keys.entryHelp()))
		return b.String()
	}
	b.WriteString(m.helpLine(m.keys.listHelp()))
	return b.String()
}

func (m Model) copyView() string {
	state := m.dialog.State()

	var b strings.Builder
	b.WriteString(m.theme.Title.Render("Copy Todos from Another User"))
	b.WriteString("\n\n")
	b.WriteString("Enter the email address of the user whose todos you want to copy:\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	if state.InFlight {
		b.WriteString("\n")
		b.WriteString(m.theme.Subtitle.Render("Copying..."))
	}
	if state.Error != "" {
		b.WriteString("\n")
		b.WriteString(m.theme.Error.Render(state.Error))
	}
	if state.Success != "" {
		b.WriteString("\n")
		b.WriteString(m.theme.Success.Render(state.Success))
	}
	b.WriteString("\n\n")
	b.WriteString(m.helpLine(m.keys.entryHelp()))

	modal := m.theme.Modal.Render(b.String())
	if m.width > 0 {
		return lipgloss.PlaceHorizontal(m.width, lipgloss.Center, modal)
	}
	return modal
}

// helpLine はキーバインドのヘルプを1行にまとめる。
func (m Model) helpLine(bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		help := binding.Help()
		parts = append(parts, help.Key+" "+help.Desc)
	}
	return m.theme.Help.Render(strings.Join(parts, " • "))
}
