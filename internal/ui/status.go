package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/papapumpkin/scrim/internal/history"
	"github.com/papapumpkin/scrim/internal/metadata"
)

var (
	statusTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	statusLabel = lipgloss.NewStyle().Faint(true).Width(16)
	statusCard  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)
	stageOK  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	stageErr = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// RenderStatus builds the status card shown by `scrim status`: the
// persisted metadata plus the most recent regeneration history entries.
func RenderStatus(m metadata.Metadata, entries []history.Entry) string {
	var b strings.Builder

	b.WriteString(statusTitle.Render("scrim") + "\n")
	b.WriteString(row("wallpaper", orNone(m.LastSourceImage)))
	b.WriteString(row("display", fmt.Sprintf("%dx%d", m.LastDisplayWidth, m.LastDisplayHeight)))

	if len(entries) > 0 {
		b.WriteString("\n" + statusTitle.Render("recent regenerations") + "\n")
		for _, e := range entries {
			style := stageOK
			if e.Outcome == "error" {
				style = stageErr
			}
			b.WriteString(fmt.Sprintf("%s  flow %-4d %-7s %s  %dx%d  %dms\n",
				e.CreatedAt.Format("15:04:05"),
				e.FlowID,
				e.Stage,
				style.Render(e.Outcome),
				e.Width, e.Height,
				e.DurationMs,
			))
		}
	}

	return statusCard.Render(strings.TrimRight(b.String(), "\n"))
}

func row(label, value string) string {
	return statusLabel.Render(label) + value + "\n"
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
