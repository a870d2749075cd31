package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/dompet/internal/analytics"
	"github.com/Veraticus/dompet/internal/cli"
)

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	sections := []string{m.renderTabs()}
	switch {
	case m.report == nil && m.err != nil:
		sections = append(sections, m.theme.StatusError.Render("Error: "+m.err.Error()))
	case m.report == nil:
		sections = append(sections, m.theme.Muted.Render("Loading..."))
	default:
		sections = append(sections, m.renderBody())
		if m.err != nil {
			sections = append(sections, m.theme.StatusWarning.Render("Refresh failed: "+m.err.Error()))
		}
	}
	sections = append(sections, m.renderFooter())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderTabs() string {
	tabs := make([]string, 0, int(viewCount))
	for v := ViewOverview; v < viewCount; v++ {
		style := m.theme.Tab
		if v == m.view {
			style = m.theme.ActiveTab
		}
		tabs = append(tabs, style.Render(v.String()))
	}
	title := m.theme.Title.Render(cli.WalletIcon + " dompet")
	return lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
}

func (m Model) renderBody() string {
	switch m.view {
	case ViewCategories:
		return m.renderCategories()
	case ViewTrend:
		return m.renderTrend()
	default:
		return m.renderOverview()
	}
}

func (m Model) renderOverview() string {
	r := m.report
	lines := []string{m.stats.View()}

	month := r.Month
	rec := r.Recommendation
	lines = append(lines,
		m.theme.Title.MarginTop(1).Render("This month"),
		fmt.Sprintf("Net %s (%s of income)", cli.FormatRupiah(r.Change.Net), cli.FormatPercent(r.Change.Percent)),
		m.theme.Muted.Render(fmt.Sprintf("Income %s, expense %s, savings %s",
			cli.FormatRupiah(month.Income), cli.FormatRupiah(month.Expense), cli.FormatRupiah(month.Savings))),
	)
	if r.Largest != nil {
		lines = append(lines, fmt.Sprintf("Largest expense: %s %s",
			m.theme.Bold.Render(r.Largest.Category), cli.FormatRupiah(r.Largest.Total)))
	}
	if month.Income > 0 {
		lines = append(lines, m.theme.Muted.Render(fmt.Sprintf("50/30/20: needs %s, wants %s, save %s",
			cli.FormatRupiah(rec.Needs.IntPart()), cli.FormatRupiah(rec.Wants.IntPart()), cli.FormatRupiah(rec.Savings.IntPart()))))
	}
	return m.theme.RoundedBox.Render(strings.Join(lines, "\n"))
}

func (m Model) renderCategories() string {
	if len(m.report.Categories) == 0 {
		return m.theme.Muted.Render("No expenses this month")
	}
	return m.table.View()
}

func (m Model) renderTrend() string {
	out := m.table.View()
	if n := len(m.report.MovingAverage); n > 0 {
		last := m.report.MovingAverage[n-1]
		out += "\n" + m.theme.Muted.Render(fmt.Sprintf("%d-transaction average expense as of %s: %s",
			m.config.Report.Period, last.Date, cli.FormatRupiah(last.Average.IntPart())))
	}
	return out
}

func (m Model) renderFooter() string {
	status := ""
	if m.loading {
		status = m.theme.Muted.Render("refreshing... ")
	} else if m.report != nil {
		status = m.theme.Muted.Render("updated " + m.report.GeneratedAt.Format("15:04:05") + " ")
	}
	return status + m.help.View(m.keymap)
}

func categoryColumns() []table.Column {
	return []table.Column{
		{Title: "Category", Width: 16},
		{Title: "Total", Width: 16},
		{Title: "Share", Width: 8},
		{Title: "Count", Width: 6},
	}
}

func categoryRows(totals []analytics.CategoryTotal) []table.Row {
	rows := make([]table.Row, 0, len(totals))
	for _, c := range totals {
		rows = append(rows, table.Row{
			c.Category,
			cli.FormatRupiah(c.Total),
			cli.FormatPercent(c.Percent),
			fmt.Sprintf("%d", c.Count),
		})
	}
	return rows
}

func trendColumns() []table.Column {
	return []table.Column{
		{Title: "Month", Width: 8},
		{Title: "Income", Width: 16},
		{Title: "Expense", Width: 16},
		{Title: "Savings", Width: 16},
		{Title: "Balance", Width: 16},
	}
}

func trendRows(points []analytics.MonthPoint) []table.Row {
	rows := make([]table.Row, 0, len(points))
	for _, p := range points {
		rows = append(rows, table.Row{
			p.Month,
			cli.FormatRupiah(p.Income),
			cli.FormatRupiah(p.Expense),
			cli.FormatRupiah(p.Savings),
			cli.FormatRupiah(p.Balance),
		})
	}
	return rows
}
