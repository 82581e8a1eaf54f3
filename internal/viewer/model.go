package viewer

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/rs/zerolog/log"

	"github.com/smileynet/caseview/internal/render"
	"github.com/smileynet/caseview/internal/selection"
)

// headerHeight is the tab strip plus the result selector row.
const headerHeight = 2

// noticeHeight is the line reserved for transient errors.
const noticeHeight = 1

// minBodyHeight keeps the panes usable in very short terminals.
const minBodyHeight = 6

const (
	defaultLoadTimeout = 10 * time.Second
	noticeTTL          = 5 * time.Second
)

// Model is the root Bubble Tea model for the viewer. Selection state
// lives in a selection.Controller created once the index arrives; the
// model forwards user intents to it and renders its derived state.
type Model struct {
	src      Source
	renderer *render.Renderer
	recall   selection.Recall
	timeout  time.Duration
	reloads  <-chan struct{}

	ctrl         *selection.Controller
	gen          uint64
	loadingIndex bool
	indexErr     error
	err          error

	notice    string
	noticeSeq int

	picker pickerState
	focus  Focus
	panes  [3]pane

	keys       viewKeys
	pickerKeys pickerKeys
	help       help.Model
	spinner    spinner.Model
	width      int
	height     int
}

// Option configures a Model.
type Option func(*Model)

// WithRenderer sets the Markdown renderer. Default is a notty renderer.
func WithRenderer(r *render.Renderer) Option {
	return func(m *Model) { m.renderer = r }
}

// WithRecall sets the selection recall policy.
func WithRecall(r selection.Recall) Option {
	return func(m *Model) { m.recall = r }
}

// WithLoadTimeout bounds each List and Load call.
func WithLoadTimeout(d time.Duration) Option {
	return func(m *Model) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithReloads makes every receive on ch trigger a reload, as if the user
// pressed r. Typically fed by a file watcher.
func WithReloads(ch <-chan struct{}) Option {
	return func(m *Model) { m.reloads = ch }
}

// NewModel creates a viewer Model over src. The index is fetched on Init.
func NewModel(src Source, opts ...Option) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	m := Model{
		src:          src,
		timeout:      defaultLoadTimeout,
		loadingIndex: true,
		focus:        FocusResult,
		keys:         ViewKeyMap(),
		pickerKeys:   PickerKeyMap(),
		help:         help.New(),
		spinner:      s,
	}
	m.panes[FocusResult] = newPane("Result")
	m.panes[FocusProblem] = newPane("Problem")
	m.panes[FocusPrompt] = newPane("System Prompt")
	for _, opt := range opts {
		opt(&m)
	}
	if m.renderer == nil {
		m.renderer = render.New(render.StyleNoTTY)
	}
	return m
}

// Err returns the error that ended the program, if any.
func (m Model) Err() error { return m.err }

// Controller returns the selection controller, or nil before the index
// has loaded.
func (m Model) Controller() *selection.Controller { return m.ctrl }

// Init starts the index fetch and the reload listener.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetchIndex(), m.waitReload())
}

func (m Model) fetchIndex() tea.Cmd {
	src, gen, timeout := m.src, m.gen, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		entries, err := src.List(ctx)
		return IndexMsg{Entries: entries, Err: err, Gen: gen}
	}
}

func (m Model) fetchCase(id string) tea.Cmd {
	src, gen, timeout := m.src, m.gen, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		tc, err := src.Load(ctx, id)
		return CaseLoadedMsg{ID: id, Case: tc, Err: err, Gen: gen}
	}
}

func (m Model) waitReload() tea.Cmd {
	ch := m.reloads
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return ReloadMsg{Reason: "watch"}
	}
}

// Update handles incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.layout()
		m.syncPanes()
		return m, nil

	case spinner.TickMsg:
		if !m.loading() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case IndexMsg:
		if msg.Gen != m.gen {
			return m, nil
		}
		return m.applyIndex(msg)

	case CaseLoadedMsg:
		if msg.Gen != m.gen || m.ctrl == nil {
			return m, nil
		}
		return m.applyCase(msg)

	case ReloadMsg:
		cmd := m.startReload(msg.Reason)
		if msg.Reason == "watch" {
			cmd = tea.Batch(cmd, m.waitReload())
		}
		return m, cmd

	case noticeExpiredMsg:
		if msg.seq == m.noticeSeq {
			m.notice = ""
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) applyIndex(msg IndexMsg) (tea.Model, tea.Cmd) {
	m.loadingIndex = false
	if msg.Err != nil {
		log.Error().Err(msg.Err).Msg("manifest unavailable")
		m.indexErr = msg.Err
		return m, nil
	}
	m.indexErr = nil
	log.Info().Int("cases", len(msg.Entries)).Uint64("gen", m.gen).Msg("index loaded")

	var outcome selection.Outcome
	if m.ctrl == nil {
		m.ctrl = selection.New(msg.Entries, selection.WithRecall(m.recall))
		m.ctrl.Subscribe(logChange)
		outcome = m.ctrl.Start()
	} else {
		outcome = m.ctrl.Reset(msg.Entries)
	}
	cmd := m.afterOutcome(outcome)
	return m, cmd
}

func (m Model) applyCase(msg CaseLoadedMsg) (tea.Model, tea.Cmd) {
	outcome, err := m.ctrl.Complete(msg.ID, msg.Case, msg.Err)
	var cmd tea.Cmd
	switch {
	case err != nil && outcome == selection.Failed:
		log.Error().Err(err).Str("case", msg.ID).Msg("test case load failed")
		cmd = m.setNotice(fmt.Sprintf("Failed to load %s: %v", msg.ID, err))
	case err != nil:
		log.Warn().Err(err).Str("case", msg.ID).Msg("background load failed")
	case outcome == selection.Stale:
		log.Debug().Str("case", msg.ID).Msg("cached stale load")
	}
	m.syncPanes()
	return m, cmd
}

// afterOutcome starts a fetch when the controller needs the active record
// and refreshes the panes.
func (m *Model) afterOutcome(o selection.Outcome) tea.Cmd {
	m.syncPanes()
	if o != selection.NeedsLoad {
		return nil
	}
	return tea.Batch(m.fetchCase(m.ctrl.State().ActiveTestCaseID), m.spinner.Tick)
}

func (m *Model) startReload(reason string) tea.Cmd {
	m.gen++
	m.src.Invalidate()
	m.renderer.Reset()
	m.loadingIndex = true
	m.indexErr = nil
	m.picker = pickerState{}
	log.Info().Str("reason", reason).Uint64("gen", m.gen).Msg("reloading test cases")
	return tea.Batch(m.fetchIndex(), m.spinner.Tick)
}

func (m *Model) setNotice(text string) tea.Cmd {
	m.noticeSeq++
	seq := m.noticeSeq
	m.notice = text
	return tea.Tick(noticeTTL, func(time.Time) tea.Msg { return noticeExpiredMsg{seq: seq} })
}

func (m Model) loading() bool {
	return m.loadingIndex || (m.ctrl != nil && m.ctrl.Pending())
}

// handleKey routes keys to the picker when it is open, otherwise to the
// main bindings.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.picker.open {
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		var picked string
		m.picker, picked = m.picker.Update(msg, m.pickerKeys)
		if picked == "" {
			return m, nil
		}
		return m.applyPick(picked)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()
		m.syncPanes()
		return m, nil
	case key.Matches(msg, m.keys.Reload):
		cmd := m.startReload("key")
		return m, cmd
	}

	if m.loadingIndex || m.indexErr != nil || m.ctrl == nil {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.NextCase):
		return m.cycleCase(1)
	case key.Matches(msg, m.keys.PrevCase):
		return m.cycleCase(-1)
	case key.Matches(msg, m.keys.JumpCase):
		n := int(msg.String()[0] - '0')
		entries := m.ctrl.Entries()
		if n < 1 || n > len(entries) {
			return m, nil
		}
		return m.selectCase(entries[n-1].ID)
	case key.Matches(msg, m.keys.PrevResult):
		if m.ctrl.StepPrevious() {
			m.syncPanes()
		}
		return m, nil
	case key.Matches(msg, m.keys.NextResult):
		if m.ctrl.StepNext() {
			m.syncPanes()
		}
		return m, nil
	case key.Matches(msg, m.keys.Pick):
		if tc, ok := m.ctrl.ActiveTestCase(); ok {
			m.picker = openPicker(tc.Results, m.ctrl.SelectedIndex())
		}
		return m, nil
	case key.Matches(msg, m.keys.Focus):
		m.focus = m.focus.next()
		return m, nil
	case key.Matches(msg, m.keys.Up, m.keys.Down, m.keys.PageUp, m.keys.PageDown):
		var cmd tea.Cmd
		m.panes[m.focus].vp, cmd = m.panes[m.focus].vp.Update(msg)
		return m, cmd
	}
	return m, nil
}

// applyPick selects a result confirmed in the picker. The picker only
// lists results of the active record, so a rejected id is a bug.
func (m Model) applyPick(id string) (tea.Model, tea.Cmd) {
	if m.ctrl == nil {
		return m, nil
	}
	if err := m.ctrl.SelectResult(id); err != nil {
		log.Error().Err(err).Msg("result picker offered an invalid selection")
		m.err = err
		return m, tea.Quit
	}
	m.syncPanes()
	return m, nil
}

func (m Model) cycleCase(delta int) (tea.Model, tea.Cmd) {
	entries := m.ctrl.Entries()
	if len(entries) == 0 {
		return m, nil
	}
	cur := 0
	for i, e := range entries {
		if e.ID == m.ctrl.State().ActiveTestCaseID {
			cur = i
			break
		}
	}
	next := (cur + delta + len(entries)) % len(entries)
	return m.selectCase(entries[next].ID)
}

func (m Model) selectCase(id string) (tea.Model, tea.Cmd) {
	outcome, err := m.ctrl.SelectTestCase(id)
	if err != nil {
		log.Warn().Err(err).Str("case", id).Msg("select test case")
		cmd := m.setNotice(err.Error())
		return m, cmd
	}
	cmd := m.afterOutcome(outcome)
	return m, cmd
}

// layout sizes the panes from the terminal dimensions.
func (m *Model) layout() {
	left, right := ColumnWidths(m.width)
	body := m.bodyHeight()
	top := body / 2
	m.panes[FocusResult].resize(right, body)
	m.panes[FocusProblem].resize(left, top)
	m.panes[FocusPrompt].resize(left, body-top)
}

func (m Model) bodyHeight() int {
	h := m.height - headerHeight - noticeHeight - lipgloss.Height(m.helpView())
	return max(h, minBodyHeight)
}

// syncPanes refreshes pane content from the controller's derived state.
func (m *Model) syncPanes() {
	if m.ctrl == nil || m.width == 0 {
		return
	}
	id := m.ctrl.State().ActiveTestCaseID
	tc, loaded := m.ctrl.ActiveTestCase()
	prefix := fmt.Sprintf("%d/%s", m.gen, id)

	switch {
	case m.ctrl.Pending():
		loading := mutedText.Render("Loading test case data...")
		for f := range m.panes {
			p := &m.panes[f]
			p.show(prefix+"/pending", p.title, loading)
		}
		return
	case !loaded:
		text := "Test case unavailable."
		if err := m.ctrl.Err(id); err != nil {
			text = fmt.Sprintf("Failed to load test case: %v\n\nPress r to reload", err)
		}
		text = errorText.Render(text)
		for f := range m.panes {
			p := &m.panes[f]
			p.show(prefix+"/failed", p.title, ansiWrap(text, p.vp.Width))
		}
		return
	}

	problem := &m.panes[FocusProblem]
	problem.show(fmt.Sprintf("%s/problem/%d", prefix, problem.vp.Width), "Problem",
		m.renderer.Render(tc.Problem, problem.vp.Width))
	prompt := &m.panes[FocusPrompt]
	prompt.show(fmt.Sprintf("%s/prompt/%d", prefix, prompt.vp.Width), "System Prompt",
		m.renderer.Render(tc.SystemPrompt, prompt.vp.Width))

	result := &m.panes[FocusResult]
	r, ok := m.ctrl.SelectedResult()
	if !ok {
		result.show(prefix+"/empty", "Result", mutedText.Render("No results for this test case."))
		return
	}
	title := r.Name
	if title == "" {
		title = r.ID
	}
	result.show(fmt.Sprintf("%s/result/%s/%d", prefix, r.ID, result.vp.Width), "Result: "+title,
		m.renderer.Render(r.Content, result.vp.Width))
}

func ansiWrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	return ansi.Wrap(s, width, "")
}

func (m Model) helpView() string {
	if m.picker.open {
		return m.help.View(m.pickerKeys)
	}
	return m.help.View(m.keys)
}

// View renders the tab strip, the selector row, the panes and the help bar.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}
	if m.loadingIndex {
		return fmt.Sprintf("%s Loading test cases...", m.spinner.View())
	}
	if m.indexErr != nil {
		return fmt.Sprintf("Manifest unavailable: %s\n\nPress r to retry", m.indexErr)
	}
	if m.ctrl == nil || len(m.ctrl.Entries()) == 0 {
		return "No test cases found.\n\nPress r to reload"
	}

	tabs := renderTabs(m.ctrl.Entries(), m.ctrl.State().ActiveTestCaseID, m.ctrl.Status, m.width)
	selector := renderSelector(m.ctrl, m.spinner.View(), m.width)

	left := lipgloss.JoinVertical(lipgloss.Left,
		m.panes[FocusProblem].View(m.focus == FocusProblem),
		m.panes[FocusPrompt].View(m.focus == FocusPrompt),
	)
	var right string
	if m.picker.open {
		right = m.pickerView()
	} else {
		right = m.panes[FocusResult].View(m.focus == FocusResult)
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, right)

	notice := ""
	if m.notice != "" {
		notice = errorText.Render(ansi.Truncate(m.notice, m.width, "…"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, tabs, selector, body, notice, m.helpView())
}

func (m Model) pickerView() string {
	vp := m.panes[FocusResult].vp
	content := lipgloss.JoinVertical(lipgloss.Left,
		paneTitle.Render("Select result"),
		m.picker.View(vp.Height),
	)
	return FocusedBorder().
		Width(vp.Width).
		Height(vp.Height + 1).
		Render(content)
}

func logChange(ch selection.Change) {
	log.Debug().
		Str("reason", string(ch.Reason)).
		Str("case", ch.Next.ActiveTestCaseID).
		Str("result", ch.Next.SelectedResultID).
		Msg("selection changed")
}
