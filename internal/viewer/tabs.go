package viewer

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/smileynet/caseview/internal/casedata"
	"github.com/smileynet/caseview/internal/selection"
)

// FailedMarker is appended to tabs whose record failed to load.
const FailedMarker = " !"

// renderTabs draws the test case tab strip, truncated to width.
// status may be nil before the controller exists.
func renderTabs(entries []casedata.Entry, active string, status func(string) selection.LoadStatus, width int) string {
	parts := make([]string, 0, len(entries))
	for i, e := range entries {
		label := e.Name
		if label == "" {
			label = e.ID
		}
		if i < 9 {
			label = fmt.Sprintf("%d %s", i+1, label)
		}
		if status != nil && status(e.ID) == selection.StatusFailed {
			label += FailedMarker
		}
		if e.ID == active {
			parts = append(parts, activeTab.Render(label))
		} else {
			parts = append(parts, inactiveTab.Render(label))
		}
	}
	line := strings.Join(parts, mutedText.Render("│"))
	if width > 0 {
		line = ansi.Truncate(line, width, "…")
	}
	return line
}

// renderSelector draws the result selector row: "◀ name (i/n) ▶".
// Arrows are dimmed at the ends of the list.
func renderSelector(ctrl *selection.Controller, spinnerView string, width int) string {
	var line string
	switch tc, ok := ctrl.ActiveTestCase(); {
	case ctrl.Pending():
		line = spinnerView + " Loading test case data..."
	case !ok:
		line = errorText.Render("Test case unavailable")
	case len(tc.Results) == 0:
		line = mutedText.Render("No results")
	default:
		pos, total := ctrl.Position()
		r, _ := ctrl.SelectedResult()
		name := r.Name
		if name == "" {
			name = r.ID
		}
		left, right := "◀", "▶"
		if pos <= 1 {
			left = mutedText.Render(left)
		}
		if pos >= total {
			right = mutedText.Render(right)
		}
		line = fmt.Sprintf("%s %s (%d/%d) %s", left, name, pos, total, right)
	}
	if width > 0 {
		line = ansi.Truncate(line, width, "…")
	}
	return line
}
