package viewer

import (
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
)

// borderChrome is the number of lines (or columns) consumed by a border.
const borderChrome = 2

// pane is a titled, bordered viewport. key identifies the content that
// was last set so unchanged content keeps its scroll position.
type pane struct {
	title string
	vp    viewport.Model
	key   string
}

func newPane(title string) pane {
	return pane{title: title, vp: viewport.New(0, 0)}
}

// resize sets the viewport size from the pane's outer dimensions.
func (p *pane) resize(outerWidth, outerHeight int) {
	p.vp.Width = max(outerWidth-borderChrome, 0)
	p.vp.Height = max(outerHeight-borderChrome-1, 1)
}

// show replaces the content when key differs from the current one.
func (p *pane) show(key, title, content string) {
	p.title = title
	if key == p.key {
		return
	}
	p.key = key
	p.vp.SetContent(content)
	p.vp.GotoTop()
}

// View renders the pane with a border that reflects focus.
func (p pane) View(focused bool) string {
	style := UnfocusedBorder()
	if focused {
		style = FocusedBorder()
	}
	header := paneTitle.Render(p.title)
	if p.vp.TotalLineCount() > p.vp.Height {
		header += mutedText.Render(scrollHint(p.vp.ScrollPercent()))
	}
	return style.
		Width(p.vp.Width).
		Height(p.vp.Height + 1).
		Render(lipgloss.JoinVertical(lipgloss.Left, header, p.vp.View()))
}

func scrollHint(pct float64) string {
	switch {
	case pct <= 0:
		return " ↓"
	case pct >= 1:
		return " ↑"
	default:
		return " ↕"
	}
}
