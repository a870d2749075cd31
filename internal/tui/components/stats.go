package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/dompet/internal/cli"
	"github.com/Veraticus/dompet/internal/tracker"
	"github.com/Veraticus/dompet/internal/tui/themes"
)

// StatsPanelModel shows the totals, the month's budget usage and savings
// progress from a tracker report.
type StatsPanelModel struct {
	theme      themes.Theme
	report     *tracker.Report
	budgetBar  progress.Model
	savingsBar progress.Model
	width      int
	compact    bool
}

// NewStatsPanelModel creates a new stats panel.
func NewStatsPanelModel(theme themes.Theme) StatsPanelModel {
	budgetBar := progress.New(progress.WithGradient("#10b981", "#ef4444"))
	budgetBar.ShowPercentage = false
	savingsBar := progress.New(progress.WithSolidFill(string(theme.Primary)))
	savingsBar.ShowPercentage = false

	return StatsPanelModel{
		theme:      theme,
		budgetBar:  budgetBar,
		savingsBar: savingsBar,
	}
}

// SetReport replaces the data shown.
func (m *StatsPanelModel) SetReport(r tracker.Report) {
	m.report = &r
}

// SetCompact switches to the single-line layout.
func (m *StatsPanelModel) SetCompact(compact bool) {
	m.compact = compact
}

// Update handles messages.
func (m StatsPanelModel) Update(msg tea.Msg) (StatsPanelModel, tea.Cmd) {
	if msg, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = msg.Width
		m.budgetBar.Width = min(max(m.width-24, 10), 40)
		m.savingsBar.Width = m.budgetBar.Width
	}
	return m, nil
}

// View renders the stats panel.
func (m StatsPanelModel) View() string {
	if m.report == nil {
		return m.theme.Muted.Render("No data yet")
	}
	if m.compact {
		return m.renderCompact()
	}
	return m.renderFull()
}

func (m StatsPanelModel) renderCompact() string {
	s := m.report.Stats
	return strings.Join([]string{
		m.theme.Income.Render("In " + cli.FormatRupiah(s.Income)),
		m.theme.Expense.Render("Out " + cli.FormatRupiah(s.Expense)),
		m.theme.Savings.Render("Saved " + cli.FormatRupiah(s.Savings)),
		m.theme.Bold.Render("Bal " + cli.FormatRupiah(s.Balance)),
	}, "  ")
}

func (m StatsPanelModel) renderFull() string {
	sections := []string{
		m.renderTotals(),
		m.renderBudget(),
		m.renderSavings(),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m StatsPanelModel) renderTotals() string {
	s := m.report.Stats
	row := func(label string, style lipgloss.Style, amount int64) string {
		return fmt.Sprintf("%-10s %s", label, style.Render(cli.FormatRupiah(amount)))
	}
	lines := []string{
		m.theme.Title.Render("Overview"),
		row("Income", m.theme.Income, s.Income),
		row("Expense", m.theme.Expense, s.Expense),
		row("Savings", m.theme.Savings, s.Savings),
		row("Balance", m.theme.Bold, s.Balance),
		m.theme.Muted.Render(fmt.Sprintf("%d transactions", m.report.Count)),
	}
	return strings.Join(lines, "\n")
}

func (m StatsPanelModel) renderBudget() string {
	b := m.report.Budget
	if b == nil {
		return m.theme.Title.MarginTop(1).Render("Budget") + "\n" + m.theme.Muted.Render("Budget monitoring is off")
	}
	header := m.theme.Title.MarginTop(1).Render("Budget " + b.Month)
	if b.Income == 0 {
		return header + "\n" + m.theme.Muted.Render("No income recorded this month")
	}

	style := m.theme.StatusSuccess
	switch {
	case b.Breached():
		style = m.theme.StatusError
	case b.PercentUsed >= b.ThresholdPercent*3/4:
		style = m.theme.StatusWarning
	}

	bar := m.budgetBar.ViewAs(min(float64(b.PercentUsed)/100, 1))
	usage := style.Render(fmt.Sprintf("%d%%", b.PercentUsed))
	limits := m.theme.Muted.Render(fmt.Sprintf("%s of %s limit, alert at %d%%",
		cli.FormatRupiah(b.Expense), cli.FormatRupiah(b.Limit.IntPart()), b.ThresholdPercent))
	return strings.Join([]string{header, bar + " " + usage, limits}, "\n")
}

func (m StatsPanelModel) renderSavings() string {
	p := m.report.SavingsProgress
	header := m.theme.Title.MarginTop(1).Render("Savings target")
	if p.Target <= 0 {
		return header + "\n" + m.theme.Muted.Render("No target set")
	}
	bar := m.savingsBar.ViewAs(p.Percent / 100)
	detail := m.theme.Muted.Render(fmt.Sprintf("%s of %s, %s to go",
		cli.FormatRupiah(p.Saved), cli.FormatRupiah(p.Target), cli.FormatRupiah(p.Remaining)))
	return strings.Join([]string{header, bar + " " + cli.FormatPercent(p.Percent), detail}, "\n")
}
