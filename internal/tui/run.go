// Package tui is the read-only terminal dashboard.
package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Run shows the dashboard until the user quits or ctx is cancelled.
func Run(ctx context.Context, source ReportSource, cfg Config) error {
	p := tea.NewProgram(
		newModel(source, cfg),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	if _, err := p.Run(); err != nil {
		// Cancelling ctx (SIGINT, SIGTERM) kills the program; that is a
		// normal exit.
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("dashboard failed: %w", err)
	}
	return nil
}
