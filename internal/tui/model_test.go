package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/dompet/internal/testutil"
	"github.com/Veraticus/dompet/internal/tracker"
	"github.com/Veraticus/dompet/internal/tui/themes"
)

type stubSource struct {
	err    error
	report tracker.Report
}

func (s *stubSource) Report(_ context.Context, _ tracker.ReportOptions) (tracker.Report, error) {
	return s.report, s.err
}

func scenarioTracker(t *testing.T) *tracker.Tracker {
	t.Helper()
	tl := testutil.SetupTestLedger(t)
	tl.Seed(testutil.ScenarioDrafts()...)
	return tracker.New(tl.Ledger, tracker.WithClock(func() time.Time { return testutil.ScenarioNow }))
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Theme = themes.Dark
	cfg.Timeout = time.Second
	cfg.Width = 100
	cfg.Height = 40
	return cfg
}

// loaded returns a model that has received its first report.
func loaded(t *testing.T, source ReportSource) Model {
	t.Helper()
	m := newModel(source, testConfig())
	msg := loadReport(source, m.config.Report, m.config.Timeout)()
	updated, cmd := m.Update(msg)
	assert.Nil(t, cmd)
	return updated.(Model)
}

func press(t *testing.T, m Model, msg tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

var (
	keyTab      = tea.KeyMsg{Type: tea.KeyTab}
	keyShiftTab = tea.KeyMsg{Type: tea.KeyShiftTab}
	keyQuit     = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}
	keyRefresh  = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}}
	keyHelp     = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}}
)

func TestNewModel(t *testing.T) {
	m := newModel(&stubSource{}, testConfig())

	assert.Equal(t, ViewOverview, m.view)
	assert.True(t, m.loading)
	assert.Nil(t, m.report)
	assert.NotNil(t, m.Init())
	assert.Contains(t, m.View(), "Loading...")
}

func TestModel_ReportLoaded(t *testing.T) {
	m := loaded(t, scenarioTracker(t))

	require.NotNil(t, m.report)
	assert.False(t, m.loading)
	assert.NoError(t, m.err)
	assert.Equal(t, 4, m.report.Count)

	view := m.View()
	assert.Contains(t, view, "Overview")
	assert.Contains(t, view, "Rp 8.500.000")
	assert.Contains(t, view, "Largest expense")
	assert.Contains(t, view, "Makanan")
	assert.Contains(t, view, "Budget monitoring is off")
}

func TestModel_LoadError(t *testing.T) {
	source := &stubSource{err: errors.New("ledger not initialized")}
	m := loaded(t, source)

	assert.Nil(t, m.report)
	assert.Error(t, m.err)
	assert.Contains(t, m.View(), "Error: ledger not initialized")
}

func TestModel_RefreshErrorKeepsLastReport(t *testing.T) {
	source := &stubSource{report: tracker.Report{Count: 2}}
	m := loaded(t, source)
	require.NotNil(t, m.report)

	source.err = errors.New("timeout")
	updated, _ := m.Update(loadReport(source, m.config.Report, m.config.Timeout)())
	m = updated.(Model)

	require.NotNil(t, m.report)
	assert.Equal(t, 2, m.report.Count)
	assert.Contains(t, m.View(), "Refresh failed: timeout")
}

func TestModel_SwitchViews(t *testing.T) {
	m := loaded(t, scenarioTracker(t))

	m, cmd := press(t, m, keyTab)
	assert.Nil(t, cmd)
	assert.Equal(t, ViewCategories, m.view)
	rows := m.table.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "Makanan", rows[0][0])
	assert.Equal(t, "Rp 350.000", rows[0][1])
	assert.Equal(t, "Transport", rows[1][0])
	assert.Contains(t, m.View(), "Transport")

	m, _ = press(t, m, keyTab)
	assert.Equal(t, ViewTrend, m.view)
	rows = m.table.Rows()
	require.Len(t, rows, 6)
	assert.Equal(t, "2023-08", rows[0][0])
	assert.Equal(t, "2024-01", rows[5][0])
	assert.Equal(t, "Rp 8.500.000", rows[5][1])

	m, _ = press(t, m, keyTab)
	assert.Equal(t, ViewOverview, m.view)

	m, _ = press(t, m, keyShiftTab)
	assert.Equal(t, ViewTrend, m.view)
}

func TestModel_CategoriesEmpty(t *testing.T) {
	m := loaded(t, &stubSource{report: tracker.Report{}})
	m, _ = press(t, m, keyTab)

	assert.Empty(t, m.table.Rows())
	assert.Contains(t, m.View(), "No expenses this month")
}

func TestModel_Keys(t *testing.T) {
	tests := []struct {
		check func(t *testing.T, m Model, cmd tea.Cmd)
		name  string
		key   tea.KeyMsg
	}{
		{
			name: "quit",
			key:  keyQuit,
			check: func(t *testing.T, m Model, cmd tea.Cmd) {
				assert.True(t, m.quitting)
				require.NotNil(t, cmd)
				assert.IsType(t, tea.QuitMsg{}, cmd())
				assert.Empty(t, m.View())
			},
		},
		{
			name: "refresh reloads",
			key:  keyRefresh,
			check: func(t *testing.T, m Model, cmd tea.Cmd) {
				assert.True(t, m.loading)
				require.NotNil(t, cmd)
				assert.IsType(t, reportLoadedMsg{}, cmd())
				assert.Contains(t, m.View(), "refreshing...")
			},
		},
		{
			name: "help toggles",
			key:  keyHelp,
			check: func(t *testing.T, m Model, cmd tea.Cmd) {
				assert.Nil(t, cmd)
				assert.True(t, m.help.ShowAll)
				assert.Contains(t, m.View(), "previous view")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := loaded(t, &stubSource{report: tracker.Report{Count: 1}})
			m, cmd := press(t, m, tt.key)
			tt.check(t, m, cmd)
		})
	}
}

func TestModel_WindowSize(t *testing.T) {
	m := loaded(t, &stubSource{report: tracker.Report{Count: 1}})

	updated, cmd := m.Update(tea.WindowSizeMsg{Width: 60, Height: 12})
	m = updated.(Model)
	assert.Nil(t, cmd)
	assert.Equal(t, 60, m.width)
	assert.Equal(t, 12, m.height)
	assert.Equal(t, 60, m.help.Width)
	assert.Contains(t, m.View(), "In Rp 0")
}

func TestModel_RefreshTick(t *testing.T) {
	cfg := testConfig()
	cfg.Refresh = time.Minute
	m := newModel(&stubSource{}, cfg)
	m.loading = false

	updated, cmd := m.Update(refreshTickMsg{at: testutil.ScenarioNow})
	m = updated.(Model)
	assert.True(t, m.loading)
	assert.NotNil(t, cmd)
}

func TestScheduleRefresh_Disabled(t *testing.T) {
	assert.Nil(t, scheduleRefresh(0))
	assert.NotNil(t, scheduleRefresh(time.Second))
}
