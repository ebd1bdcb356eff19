package output

import "github.com/charmbracelet/lipgloss"

// Color constants using the ANSI 256-color palette, shared by all
// styled formatters.
const (
	// ColorPrimary is used for headers (bright blue).
	ColorPrimary = lipgloss.Color("39")

	// ColorSuccess is used for positive status indicators (green).
	ColorSuccess = lipgloss.Color("42")

	// ColorWarning is used for warnings and pending work (orange).
	ColorWarning = lipgloss.Color("214")

	// ColorDanger is used for failures and drift (red).
	ColorDanger = lipgloss.Color("196")

	// ColorMuted is used for secondary text (gray).
	ColorMuted = lipgloss.Color("245")
)

var (
	// HeaderBox frames the report header.
	HeaderBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(0, 1).
			MarginBottom(1)

	// TitleStyle is used for section titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	// LabelStyle is used for field labels.
	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// ValueStyle is used for field values.
	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	// SuccessStyle marks clean or completed state.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	// WarningStyle marks pending or held state.
	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	// DangerStyle marks failures and drift.
	DangerStyle = lipgloss.NewStyle().
			Foreground(ColorDanger)

	// MutedStyle de-emphasizes detail lines.
	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)
)
