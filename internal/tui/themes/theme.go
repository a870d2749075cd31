package themes

import "github.com/charmbracelet/lipgloss"

// Theme defines the visual style for the dashboard.
type Theme struct {
	Title         lipgloss.Style
	Subtitle      lipgloss.Style
	Normal        lipgloss.Style
	Bold          lipgloss.Style
	Muted         lipgloss.Style
	Tab           lipgloss.Style
	ActiveTab     lipgloss.Style
	RoundedBox    lipgloss.Style
	StatusSuccess lipgloss.Style
	StatusWarning lipgloss.Style
	StatusError   lipgloss.Style
	Income        lipgloss.Style
	Expense       lipgloss.Style
	Savings       lipgloss.Style
	Primary       lipgloss.Color
	Secondary     lipgloss.Color
	Border        lipgloss.Color
	Foreground    lipgloss.Color
	Background    lipgloss.Color
}

func build(fg, bg, primary, secondary, border, muted, success, warning, danger, savings lipgloss.Color) Theme {
	return Theme{
		Primary:    primary,
		Secondary:  secondary,
		Border:     border,
		Foreground: fg,
		Background: bg,

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(primary).
			MarginBottom(1),
		Subtitle: lipgloss.NewStyle().
			Foreground(muted).
			MarginBottom(1),
		Normal: lipgloss.NewStyle().
			Foreground(fg),
		Bold: lipgloss.NewStyle().
			Bold(true).
			Foreground(fg),
		Muted: lipgloss.NewStyle().
			Foreground(muted),
		Tab: lipgloss.NewStyle().
			Foreground(muted).
			Padding(0, 2),
		ActiveTab: lipgloss.NewStyle().
			Bold(true).
			Foreground(bg).
			Background(primary).
			Padding(0, 2),
		RoundedBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(1, 2),

		StatusSuccess: lipgloss.NewStyle().
			Foreground(success).
			Bold(true),
		StatusWarning: lipgloss.NewStyle().
			Foreground(warning).
			Bold(true),
		StatusError: lipgloss.NewStyle().
			Foreground(danger).
			Bold(true),

		Income:  lipgloss.NewStyle().Foreground(success),
		Expense: lipgloss.NewStyle().Foreground(danger),
		Savings: lipgloss.NewStyle().Foreground(savings),
	}
}

// Dark is used when the dark mode setting is on.
var Dark = build(
	lipgloss.Color("#fafafa"), // foreground
	lipgloss.Color("#1a1a1a"), // background
	lipgloss.Color("#2E86AB"),
	lipgloss.Color("#a78bfa"),
	lipgloss.Color("#404040"),
	lipgloss.Color("#a3a3a3"),
	lipgloss.Color("#10b981"),
	lipgloss.Color("#f59e0b"),
	lipgloss.Color("#ef4444"),
	lipgloss.Color("#3b82f6"),
)

// Light is the default theme.
var Light = build(
	lipgloss.Color("#1f2937"),
	lipgloss.Color("#ffffff"),
	lipgloss.Color("#1d6a8a"),
	lipgloss.Color("#7c3aed"),
	lipgloss.Color("#d4d4d4"),
	lipgloss.Color("#6b7280"),
	lipgloss.Color("#047857"),
	lipgloss.Color("#b45309"),
	lipgloss.Color("#b91c1c"),
	lipgloss.Color("#1d4ed8"),
)

// ForDarkMode picks the theme matching the isDarkMode setting.
func ForDarkMode(dark bool) Theme {
	if dark {
		return Dark
	}
	return Light
}
