package tui

import (
	"time"

	"github.com/Veraticus/dompet/internal/tracker"
)

// reportLoadedMsg carries a freshly built report.
type reportLoadedMsg struct {
	err    error
	report tracker.Report
}

// refreshTickMsg triggers a periodic reload.
type refreshTickMsg struct {
	at time.Time
}
