package viewer

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/smileynet/caseview/internal/casedata"
)

// CursorMarker is the prefix shown on the highlighted picker row.
const CursorMarker = "▸ "

// pickerState is the modal result list opened with enter.
type pickerState struct {
	open    bool
	results []casedata.Result
	cursor  int
}

// openPicker shows results with the cursor on the selected index.
func openPicker(results []casedata.Result, selected int) pickerState {
	if selected < 0 || selected >= len(results) {
		selected = 0
	}
	return pickerState{
		open:    len(results) > 0,
		results: append([]casedata.Result(nil), results...),
		cursor:  selected,
	}
}

// Update handles picker keys. Select closes the picker and returns the
// confirmed result id; every other key returns "".
func (p pickerState) Update(msg tea.KeyMsg, keys pickerKeys) (pickerState, string) {
	switch {
	case key.Matches(msg, keys.Up):
		if p.cursor > 0 {
			p.cursor--
		}
	case key.Matches(msg, keys.Down):
		if p.cursor < len(p.results)-1 {
			p.cursor++
		}
	case key.Matches(msg, keys.Select):
		if p.cursor >= len(p.results) {
			return pickerState{}, ""
		}
		return pickerState{}, p.results[p.cursor].ID
	case key.Matches(msg, keys.Cancel):
		return pickerState{}, ""
	}
	return p, ""
}

// View renders the result list, scrolled so the cursor stays visible
// within height rows.
func (p pickerState) View(height int) string {
	if height < 1 {
		height = 1
	}
	start := 0
	if p.cursor >= height {
		start = p.cursor - height + 1
	}
	end := min(start+height, len(p.results))

	var b strings.Builder
	for i := start; i < end; i++ {
		if i > start {
			b.WriteByte('\n')
		}
		r := p.results[i]
		name := r.Name
		if name == "" {
			name = r.ID
		}
		if i == p.cursor {
			b.WriteString(cursorText.Render(CursorMarker + name))
		} else {
			b.WriteString("  " + name)
		}
	}
	return b.String()
}
