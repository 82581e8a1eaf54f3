package viewer

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/smileynet/caseview/internal/casedata"
)

// stripANSI removes ANSI escape sequences from a string.
func stripANSI(s string) string {
	var out []byte
	i := 0
	for i < len(s) {
		if s[i] == '\x1b' && i+1 < len(s) && s[i+1] == '[' {
			j := i + 2
			for j < len(s) && (s[j] < 'A' || s[j] > 'Z') && (s[j] < 'a' || s[j] > 'z') {
				j++
			}
			if j < len(s) {
				j++
			}
			i = j
		} else {
			out = append(out, s[i])
			i++
		}
	}
	return string(out)
}

// containsPlainText checks if s contains sub after stripping ANSI escapes.
func containsPlainText(s, sub string) bool {
	return strings.Contains(stripANSI(s), sub)
}

// execBatch executes a tea.Cmd, handling single commands and (nested)
// batch commands. It returns all resulting messages. Spinner ticks are
// skipped to avoid infinite recursion.
func execBatch(t *testing.T, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var msgs []tea.Msg
		for _, c := range batch {
			msgs = append(msgs, execBatch(t, c)...)
		}
		return msgs
	}
	if _, isTick := msg.(spinner.TickMsg); isTick {
		return nil
	}
	return []tea.Msg{msg}
}

// drive runs cmd and feeds every resulting message back into the model
// until no commands remain. Only use it on paths that do not schedule
// timed messages.
func drive(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	queue := execBatch(t, cmd)
	for i := 0; i < len(queue); i++ {
		if i > 100 {
			t.Fatal("drive: message loop did not settle")
		}
		if queue[i] == nil {
			continue
		}
		updated, next := m.Update(queue[i])
		m = updated.(Model)
		queue = append(queue, execBatch(t, next)...)
	}
	return m
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

// stubSource implements Source for tests.
type stubSource struct {
	mu          sync.Mutex
	entries     []casedata.Entry
	cases       map[string]*casedata.TestCase
	listErr     error
	loadErr     map[string]error
	loads       []string
	invalidated int
}

func (s *stubSource) List(ctx context.Context) ([]casedata.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]casedata.Entry(nil), s.entries...), nil
}

func (s *stubSource) Load(ctx context.Context, id string) (*casedata.TestCase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads = append(s.loads, id)
	if err := s.loadErr[id]; err != nil {
		return nil, err
	}
	tc, ok := s.cases[id]
	if !ok {
		return nil, casedata.ErrNotFound
	}
	return tc, nil
}

func (s *stubSource) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidated++
}

func (s *stubSource) loadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.loads)
}

// sampleSource returns three cases: Alpha (First, Second), Beta (no
// results), and Gamma (Second, Third). "r2" is shared by Alpha and Gamma.
func sampleSource() *stubSource {
	cases := []*casedata.TestCase{
		{
			ID: "tc1", Name: "Alpha",
			Problem:      "Alpha problem statement",
			SystemPrompt: "Alpha system prompt",
			Results: []casedata.Result{
				{ID: "r1", Name: "First", Content: "first body"},
				{ID: "r2", Name: "Second", Content: "second body"},
			},
		},
		{
			ID: "tc2", Name: "Beta",
			Problem:      "Beta problem statement",
			SystemPrompt: "Beta system prompt",
			Results:      []casedata.Result{},
		},
		{
			ID: "tc3", Name: "Gamma",
			Problem:      "Gamma problem statement",
			SystemPrompt: "Gamma system prompt",
			Results: []casedata.Result{
				{ID: "r2", Name: "Second", Content: "gamma second body"},
				{ID: "r3", Name: "Third", Content: "gamma third body"},
			},
		},
	}
	s := &stubSource{cases: make(map[string]*casedata.TestCase)}
	for _, tc := range cases {
		s.entries = append(s.entries, casedata.Entry{ID: tc.ID, Name: tc.Name})
		s.cases[tc.ID] = tc
	}
	return s
}

// newLoadedModel returns a sized model with the index and first record
// loaded.
func newLoadedModel(t *testing.T, src *stubSource, opts ...Option) Model {
	t.Helper()
	m := NewModel(src, opts...)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	return drive(t, m, m.Init())
}
