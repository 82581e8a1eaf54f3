// Package viewer implements the Bubble Tea test case viewer: a tab strip
// of test cases, a result selector, and scrollable panes for the problem,
// the system prompt and the selected result.
package viewer

import (
	"github.com/smileynet/caseview/internal/casedata"
)

// Focus identifies the pane that receives scroll keys.
type Focus int

const (
	FocusResult  Focus = iota // Right pane with the selected result.
	FocusProblem              // Left top pane.
	FocusPrompt               // Left bottom pane.
)

func (f Focus) next() Focus { return (f + 1) % 3 }

// --- Consumer-side interfaces ---

// Source supplies the index and test case records. Invalidate drops
// memoized data so the next List and Load refetch.
type Source interface {
	casedata.Provider
	Invalidate()
}

// --- tea.Msg types ---

// IndexMsg carries the result of Source.List. Gen is the reload
// generation the fetch was started in.
type IndexMsg struct {
	Entries []casedata.Entry
	Err     error
	Gen     uint64
}

// CaseLoadedMsg carries the result of Source.Load.
type CaseLoadedMsg struct {
	ID   string
	Case *casedata.TestCase
	Err  error
	Gen  uint64
}

// ReloadMsg asks the model to invalidate the source and refetch the index.
// Reason is "key" or "watch".
type ReloadMsg struct {
	Reason string
}

// noticeExpiredMsg clears a transient notice if no newer one replaced it.
type noticeExpiredMsg struct {
	seq int
}
