package viewer

import "github.com/charmbracelet/lipgloss"

// MinLeftWidth is the minimum character width for the left column.
const MinLeftWidth = 30

var (
	accentColor = lipgloss.AdaptiveColor{Light: "4", Dark: "12"}
	dimColor    = lipgloss.AdaptiveColor{Light: "240", Dark: "240"}
	errorColor  = lipgloss.AdaptiveColor{Light: "1", Dark: "9"}

	activeTab = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "15", Dark: "0"}).
			Background(accentColor).
			Padding(0, 1)
	inactiveTab = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "0", Dark: "252"}).
			Padding(0, 1)
	paneTitle  = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	mutedText  = lipgloss.NewStyle().Foreground(dimColor)
	errorText  = lipgloss.NewStyle().Foreground(errorColor)
	cursorText = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
)

// FocusedBorder returns a lipgloss style with an accent-colored rounded border.
func FocusedBorder() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accentColor)
}

// UnfocusedBorder returns a lipgloss style with a dim rounded border.
func UnfocusedBorder() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dimColor)
}

// ColumnWidths splits the total width into the problem/prompt column and
// the result column. The left column gets 2/5 (minimum MinLeftWidth) and
// never more than half when the terminal is narrow.
func ColumnWidths(totalWidth int) (left, right int) {
	if totalWidth <= 0 {
		return 0, 0
	}
	left = totalWidth * 2 / 5
	if left < MinLeftWidth {
		left = MinLeftWidth
	}
	if left > totalWidth/2 {
		left = totalWidth / 2
	}
	return left, totalWidth - left
}
