package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/dompet/internal/tracker"
	"github.com/Veraticus/dompet/internal/tui/components"
	"github.com/Veraticus/dompet/internal/tui/themes"
)

// View represents the current dashboard page.
type View int

const (
	ViewOverview View = iota
	ViewCategories
	ViewTrend
	viewCount
)

func (v View) String() string {
	switch v {
	case ViewOverview:
		return "Overview"
	case ViewCategories:
		return "Categories"
	case ViewTrend:
		return "Trend"
	}
	return "Unknown"
}

// ReportSource builds dashboard reports. *tracker.Tracker satisfies it.
type ReportSource interface {
	Report(ctx context.Context, opts tracker.ReportOptions) (tracker.Report, error)
}

// Config holds the dashboard options.
type Config struct {
	Theme   themes.Theme
	Report  tracker.ReportOptions
	Refresh time.Duration
	Timeout time.Duration
	Width   int
	Height  int
}

// DefaultConfig returns the light theme, default report options and no
// automatic refresh.
func DefaultConfig() Config {
	return Config{
		Theme:   themes.Light,
		Report:  tracker.DefaultReportOptions(),
		Timeout: 5 * time.Second,
		Width:   80,
		Height:  24,
	}
}

// Model holds the dashboard state.
type Model struct {
	theme    themes.Theme
	source   ReportSource
	report   *tracker.Report
	err      error
	keymap   KeyMap
	help     help.Model
	table    table.Model
	stats    components.StatsPanelModel
	config   Config
	width    int
	height   int
	view     View
	loading  bool
	quitting bool
}

func newModel(source ReportSource, cfg Config) Model {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}

	t := table.New(table.WithFocused(true))
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderForeground(cfg.Theme.Border).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(cfg.Theme.Background).
		Background(cfg.Theme.Primary)
	t.SetStyles(styles)

	m := Model{
		theme:   cfg.Theme,
		source:  source,
		keymap:  DefaultKeyMap(),
		help:    help.New(),
		table:   t,
		stats:   components.NewStatsPanelModel(cfg.Theme),
		config:  cfg,
		view:    ViewOverview,
		loading: true,
	}
	m.resize(cfg.Width, cfg.Height)
	return m
}

// Init starts the first load.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		loadReport(m.source, m.config.Report, m.config.Timeout),
		scheduleRefresh(m.config.Refresh),
	)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case reportLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.report = &msg.report
		m.stats.SetReport(msg.report)
		m.refreshTable()
		return m, nil

	case refreshTickMsg:
		m.loading = true
		return m, tea.Batch(
			loadReport(m.source, m.config.Report, m.config.Timeout),
			scheduleRefresh(m.config.Refresh),
		)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Refresh):
		m.loading = true
		return m, loadReport(m.source, m.config.Report, m.config.Timeout)

	case key.Matches(msg, m.keymap.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keymap.NextView):
		m.view = (m.view + 1) % viewCount
		m.refreshTable()
		return m, nil

	case key.Matches(msg, m.keymap.PrevView):
		m.view = (m.view + viewCount - 1) % viewCount
		m.refreshTable()
		return m, nil
	}

	if m.view == ViewOverview {
		return m, nil
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width
	m.stats, _ = m.stats.Update(tea.WindowSizeMsg{Width: width, Height: height})
	m.stats.SetCompact(height < 20)
	m.table.SetWidth(max(width-4, 20))
	// tabs, title, footer and help take about eight lines
	m.table.SetHeight(max(height-8, 3))
}

// refreshTable loads the rows for the current view. Rows are cleared before
// the columns change so no row is rendered against the wrong column set.
func (m *Model) refreshTable() {
	if m.report == nil || m.view == ViewOverview {
		return
	}
	m.table.SetRows(nil)
	switch m.view {
	case ViewCategories:
		m.table.SetColumns(categoryColumns())
		m.table.SetRows(categoryRows(m.report.Categories))
	case ViewTrend:
		m.table.SetColumns(trendColumns())
		m.table.SetRows(trendRows(m.report.Trend))
	}
	m.table.GotoTop()
}
