package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/dompet/internal/cli"
	"github.com/Veraticus/dompet/internal/model"
	"github.com/Veraticus/dompet/internal/testutil"
)

func TestCheckpointCommands(t *testing.T) {
	ta := newTestApp(t)
	ctx := context.Background()
	ta.seed(t, testutil.ScenarioDrafts()...)

	var out bytes.Buffer
	require.NoError(t, runCreateCheckpoint(ctx, ta.app, &out, "before-cleanup", "month end"))
	assert.Contains(t, out.String(), "Created checkpoint before-cleanup")
	assert.Contains(t, out.String(), "4 transactions")
	assert.Contains(t, out.String(), "Description: month end")

	out.Reset()
	require.NoError(t, runListCheckpoints(ctx, ta.app, &out))
	assert.Contains(t, out.String(), "before-cleanup")
	assert.Contains(t, out.String(), "manual")

	// Change the ledger, then go back.
	ta.seed(t, model.Draft{Type: model.TypeExpense, Category: "Hiburan", Amount: 99_000})
	out.Reset()
	prompter := cli.NewPrompter(strings.NewReader("y\n"), &out)
	require.NoError(t, runRestoreCheckpoint(ctx, ta.app, prompter, &out, "before-cleanup", false))
	assert.Contains(t, out.String(), "Restored from checkpoint before-cleanup")

	n, err := ta.ledger.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	out.Reset()
	require.NoError(t, runDeleteCheckpoint(ctx, ta.app, nil, &out, "before-cleanup", true))
	assert.Contains(t, out.String(), "Deleted checkpoint before-cleanup")

	out.Reset()
	require.NoError(t, runListCheckpoints(ctx, ta.app, &out))
	assert.Contains(t, out.String(), "No checkpoints found.")
}

func TestRunRestoreCheckpoint_Declined(t *testing.T) {
	ta := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, runCreateCheckpoint(ctx, ta.app, &bytes.Buffer{}, "empty", ""))
	ta.seed(t, testutil.ScenarioDrafts()...)

	var out bytes.Buffer
	prompter := cli.NewPrompter(strings.NewReader("n\n"), &out)
	require.NoError(t, runRestoreCheckpoint(ctx, ta.app, prompter, &out, "empty", false))
	assert.Contains(t, out.String(), "Restore cancelled.")

	n, err := ta.ledger.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestRunRestoreCheckpoint_Unknown(t *testing.T) {
	ta := newTestApp(t)

	err := runRestoreCheckpoint(context.Background(), ta.app, nil, &bytes.Buffer{}, "nope", true)
	assert.ErrorContains(t, err, "failed to get checkpoint info")
}

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatFileSize(tt.size))
		})
	}
}

func TestFormatRelativeTime(t *testing.T) {
	now := testutil.ScenarioNow
	fixClock(t, now)

	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"seconds", now.Add(-30 * time.Second), "just now"},
		{"one minute", now.Add(-time.Minute), "1 minute ago"},
		{"minutes", now.Add(-45 * time.Minute), "45 minutes ago"},
		{"hours", now.Add(-3 * time.Hour), "3 hours ago"},
		{"yesterday", now.Add(-30 * time.Hour), "yesterday"},
		{"days", now.Add(-4 * 24 * time.Hour), "4 days ago"},
		{"older", now.Add(-30 * 24 * time.Hour), "2023-12-21 10:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatRelativeTime(tt.t))
		})
	}
}
