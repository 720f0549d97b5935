package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/redmonkez12/tasky/internal/stats"
	"github.com/redmonkez12/tasky/internal/task"
	"github.com/redmonkez12/tasky/internal/user"
)

// RenderStats lays out the summary as a bordered table
func RenderStats(st *stats.Stats) string {
	rows := []string{
		row("Users", st.TotalUsers),
		row("Tasks", st.TotalTasks),
		subtleStyle.Render(strings.Repeat("─", 22)),
	}
	for _, status := range task.Statuses {
		rows = append(rows, row(string(status), st.TasksByStatus[status]))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Tasky"),
		boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...)),
	)
}

func row(label string, n int) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), valueStyle.Render(strconv.Itoa(n)))
}

// PrintStats writes RenderStats to stdout
func PrintStats(st *stats.Stats) {
	fmt.Println(RenderStats(st))
}

// PrintUserCreated confirms a new account
func PrintUserCreated(u *user.User) {
	fmt.Println(successStyle.Render("✓ User created"))
	fmt.Println(subtleStyle.Render(fmt.Sprintf("  id:    %s", u.ID)))
	fmt.Println(subtleStyle.Render(fmt.Sprintf("  email: %s", u.Email)))
}

// PrintSuccess prints a one-line confirmation
func PrintSuccess(msg string) {
	fmt.Println(successStyle.Render("✓ " + msg))
}

// PrintError prints an error message in red.
func PrintError(msg string) {
	fmt.Println(errorStyle.Render("Error: " + msg))
}
