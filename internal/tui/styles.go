package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"todoclient/internal/models"
	"todoclient/internal/notify"
	"todoclient/internal/render"
)

// TerminalBreakpoints map terminal columns to grid columns for the windowed view
var TerminalBreakpoints = []render.Breakpoint{
	{MinWidth: 0, Columns: 1},
	{MinWidth: 100, Columns: 2},
	{MinWidth: 150, Columns: 3},
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	faintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Background(lipgloss.Color("62"))
	doneStyle     = lipgloss.NewStyle().Strikethrough(true).Foreground(lipgloss.Color("243"))
	skeletonStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
	selectedCardStyle = cardStyle.BorderForeground(lipgloss.Color("212"))
)

func checkbox(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}

// renderLine is one todo in the append list
func renderLine(t models.Todo, selected bool, width int) string {
	title := t.Title
	if t.Completed {
		title = doneStyle.Render(title)
	}
	line := fmt.Sprintf("%s %s", checkbox(t.Completed), title)
	if t.Description != nil && *t.Description != "" {
		line += faintStyle.Render("  " + truncate(*t.Description, max(width/2, 10)))
	}
	if selected {
		return selectedStyle.Render(line)
	}
	return line
}

// renderCard is one todo in the windowed grid
func renderCard(t models.Todo, selected bool, width int) string {
	inner := max(width-4, 8)
	var b strings.Builder
	title := truncate(t.Title, inner-4)
	if t.Completed {
		title = doneStyle.Render(title)
	}
	b.WriteString(checkbox(t.Completed) + " " + title)
	if t.Description != nil && *t.Description != "" {
		b.WriteString("\n" + faintStyle.Render(truncate(*t.Description, inner)))
	}
	b.WriteString("\n" + faintStyle.Render(t.CreatedAt.Local().Format("Jan 2 2006")))

	style := cardStyle
	if selected {
		style = selectedCardStyle
	}
	return style.Width(inner).Render(b.String())
}

func renderSkeletons(n, width int) []string {
	bar := skeletonStyle.Render(strings.Repeat("░", max(min(width-2, 40), 4)))
	lines := make([]string, n)
	for i := range lines {
		lines[i] = bar
	}
	return lines
}

func renderNotification(n notify.Notification) string {
	if n.Message == "" {
		return ""
	}
	if n.Level == notify.LevelError {
		return errorStyle.Render(n.Message)
	}
	return successStyle.Render(n.Message)
}
