package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/dompet/internal/tracker"
)

// loadReport builds a report in the background.
func loadReport(source ReportSource, opts tracker.ReportOptions, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		report, err := source.Report(ctx, opts)
		return reportLoadedMsg{report: report, err: err}
	}
}

// scheduleRefresh fires a refreshTickMsg after every.
func scheduleRefresh(every time.Duration) tea.Cmd {
	if every <= 0 {
		return nil
	}
	return tea.Tick(every, func(t time.Time) tea.Msg {
		return refreshTickMsg{at: t}
	})
}
