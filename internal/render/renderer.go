// Package render turns Markdown-with-math into terminal text.
package render

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Style names accepted by New, besides "auto" which StyleFor resolves.
const (
	StyleDark  = "dark"
	StyleLight = "light"
	StyleNoTTY = "notty"
)

const defaultWidth = 80

type cacheKey struct {
	width    int
	markdown string
}

// Renderer renders Markdown with glamour and caches results per width.
// Safe for concurrent use.
type Renderer struct {
	mu        sync.Mutex
	style     string
	renderers map[int]*glamour.TermRenderer
	cache     map[cacheKey]string
}

// New creates a Renderer for a glamour standard style name.
func New(style string) *Renderer {
	if style == "" {
		style = StyleNoTTY
	}
	return &Renderer{
		style:     style,
		renderers: make(map[int]*glamour.TermRenderer),
		cache:     make(map[cacheKey]string),
	}
}

// Style returns the glamour style in use.
func (r *Renderer) Style() string { return r.style }

// Render renders markdown wrapped to width columns. Math is shown
// verbatim in code spans and blocks. On renderer failure the prepared
// source is returned unstyled.
func (r *Renderer) Render(markdown string, width int) string {
	if width <= 0 {
		width = defaultWidth
	}
	key := cacheKey{width: width, markdown: markdown}

	r.mu.Lock()
	defer r.mu.Unlock()
	if out, ok := r.cache[key]; ok {
		return out
	}

	src := PrepareMath(markdown)
	out := src
	if tr, err := r.termRenderer(width); err == nil {
		if rendered, err := tr.Render(src); err == nil {
			out = strings.Trim(rendered, "\n")
		}
	}
	r.cache[key] = out
	return out
}

func (r *Renderer) termRenderer(width int) (*glamour.TermRenderer, error) {
	if tr, ok := r.renderers[width]; ok {
		return tr, nil
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(r.style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	r.renderers[width] = tr
	return tr, nil
}

// Reset drops cached output. Used after a reload so edited content
// renders fresh.
func (r *Renderer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[cacheKey]string)
}

// StyleFor resolves a configured style. "auto" picks notty when w is not
// a terminal, otherwise dark or light from the terminal background.
// Other values are returned unchanged.
func StyleFor(w io.Writer, configured string) string {
	if configured != "" && configured != "auto" {
		return configured
	}
	if !isTTY(w) {
		return StyleNoTTY
	}
	if lipgloss.HasDarkBackground() {
		return StyleDark
	}
	return StyleLight
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
