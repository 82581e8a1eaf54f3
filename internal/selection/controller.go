package selection

import (
	"fmt"

	"github.com/smileynet/caseview/internal/casedata"
)

// Controller is the single writer of State. It is not safe for concurrent
// use; callers confine it to one goroutine (e.g., the Bubble Tea update
// loop). Listeners must not call mutating operations.
type Controller struct {
	entries []casedata.Entry
	recall  Recall

	state   State
	settled State  // last state whose active record was loaded
	carry   string // selection to reconcile against once the active record loads

	cases      map[string]*casedata.TestCase
	status     map[string]LoadStatus
	errs       map[string]error
	lastByCase map[string]string

	listeners    []listener
	nextListener int
}

type listener struct {
	id int
	fn func(Change)
}

// Option configures a Controller.
type Option func(*Controller)

// WithRecall sets the reconciliation policy. Default is RecallCarry.
func WithRecall(r Recall) Option {
	return func(c *Controller) { c.recall = r }
}

// WithLoaded seeds records that are already available, such as those of
// an in-memory source.
func WithLoaded(cases ...*casedata.TestCase) Option {
	return func(c *Controller) {
		for _, tc := range cases {
			if tc == nil {
				continue
			}
			c.cases[tc.ID] = tc
			c.status[tc.ID] = StatusLoaded
		}
	}
}

// New creates a Controller over index. The first entry, if any, becomes
// active; call Start to run the initial reconciliation.
func New(index []casedata.Entry, opts ...Option) *Controller {
	c := &Controller{
		entries:    append([]casedata.Entry(nil), index...),
		cases:      make(map[string]*casedata.TestCase),
		status:     make(map[string]LoadStatus),
		errs:       make(map[string]error),
		lastByCase: make(map[string]string),
	}
	if len(c.entries) > 0 {
		c.state.ActiveTestCaseID = c.entries[0].ID
	}
	c.settled = c.state
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start runs reconciliation against the initially active test case.
// It returns NeedsLoad when that record still has to be fetched.
func (c *Controller) Start() Outcome {
	id := c.state.ActiveTestCaseID
	if id == "" {
		return Unchanged
	}
	return c.activate(id, ReasonStart)
}

// SelectTestCase makes id the active test case. An id missing from the
// index returns an error matching casedata.ErrNotFound and leaves State
// untouched. Re-selecting the active test case while it is loaded or
// pending does nothing.
func (c *Controller) SelectTestCase(id string) (Outcome, error) {
	if _, ok := casedata.Find(c.entries, id); !ok {
		return Unchanged, fmt.Errorf("selection: %w: %q", casedata.ErrNotFound, id)
	}
	if id == c.state.ActiveTestCaseID {
		switch c.status[id] {
		case StatusLoaded:
			return Unchanged, nil
		case StatusPending:
			return Pending, nil
		}
	}
	return c.activate(id, ReasonSelectCase), nil
}

func (c *Controller) activate(id string, reason Reason) Outcome {
	prev := c.state
	carry := c.carryFrom(prev)

	if c.status[id] == StatusLoaded {
		c.state = State{ActiveTestCaseID: id, SelectedResultID: c.reconcile(id, carry)}
		c.carry = ""
		c.settled = c.state
		c.commit(prev, reason)
		return Reconciled
	}

	wasPending := c.status[id] == StatusPending
	c.state = State{ActiveTestCaseID: id}
	c.carry = carry
	c.status[id] = StatusPending
	delete(c.errs, id)
	c.commit(prev, reason)
	if wasPending {
		return Pending
	}
	return NeedsLoad
}

// carryFrom returns the selection to carry away from prev. A selection
// emptied only because its record was still loading keeps the carry it
// was waiting on.
func (c *Controller) carryFrom(prev State) string {
	if prev.SelectedResultID != "" {
		return prev.SelectedResultID
	}
	if prev.ActiveTestCaseID != "" && c.status[prev.ActiveTestCaseID] != StatusLoaded {
		return c.carry
	}
	return ""
}

// Complete records a finished load for id. It is safe to call for any
// id at any time: completions for inactive test cases are kept but do
// not touch State, and a completion for an already loaded id is ignored.
func (c *Controller) Complete(id string, tc *casedata.TestCase, err error) (Outcome, error) {
	if c.status[id] == StatusLoaded {
		return Unchanged, nil
	}
	if _, ok := casedata.Find(c.entries, id); !ok {
		return Stale, err
	}
	if err == nil && tc == nil {
		err = fmt.Errorf("selection: load of %q returned no record", id)
	}

	if err != nil {
		c.status[id] = StatusFailed
		c.errs[id] = err
		if id != c.state.ActiveTestCaseID {
			return Stale, err
		}
		prev := c.state
		carry := c.carry
		c.state = c.settled
		c.carry = ""
		// The restored case may have loaded or still be loading since
		// the snapshot was taken.
		switch restored := c.state.ActiveTestCaseID; c.status[restored] {
		case StatusLoaded:
			want := c.state.SelectedResultID
			if want == "" {
				want = carry
			}
			c.state.SelectedResultID = c.reconcile(restored, want)
			c.settled = c.state
		case StatusPending:
			c.carry = carry
		}
		c.commit(prev, ReasonLoadFailed)
		return Failed, err
	}

	c.cases[id] = tc
	c.status[id] = StatusLoaded
	delete(c.errs, id)
	if id != c.state.ActiveTestCaseID {
		return Stale, nil
	}
	prev := c.state
	c.state.SelectedResultID = c.reconcile(id, c.carry)
	c.carry = ""
	c.settled = c.state
	c.commit(prev, ReasonLoad)
	return Reconciled, nil
}

// reconcile picks the result to show for the loaded test case id.
func (c *Controller) reconcile(id, carry string) string {
	tc := c.cases[id]
	if tc == nil || len(tc.Results) == 0 {
		return ""
	}
	if c.recall == RecallPerCase {
		if last := c.lastByCase[id]; tc.IndexOf(last) >= 0 {
			return last
		}
	}
	if tc.IndexOf(carry) >= 0 {
		return carry
	}
	return tc.Results[0].ID
}

// SelectResult selects a result of the active test case. An id that is
// not in the active record returns an *InvalidSelectionError and leaves
// State untouched.
func (c *Controller) SelectResult(id string) error {
	tc, ok := c.ActiveTestCase()
	if !ok || tc.IndexOf(id) < 0 {
		return &InvalidSelectionError{TestCaseID: c.state.ActiveTestCaseID, ResultID: id}
	}
	c.setResult(id, ReasonSelectResult)
	return nil
}

// MustSelectResult is like SelectResult but panics on an invalid id.
func (c *Controller) MustSelectResult(id string) {
	if err := c.SelectResult(id); err != nil {
		panic(err)
	}
}

// StepNext moves to the next result. It reports false at the last
// result or when nothing is selected.
func (c *Controller) StepNext() bool { return c.step(1) }

// StepPrevious moves to the previous result. It reports false at the
// first result or when nothing is selected.
func (c *Controller) StepPrevious() bool { return c.step(-1) }

func (c *Controller) step(delta int) bool {
	tc, ok := c.ActiveTestCase()
	if !ok {
		return false
	}
	i := tc.IndexOf(c.state.SelectedResultID)
	if i < 0 {
		return false
	}
	j := i + delta
	if j < 0 || j >= len(tc.Results) {
		return false
	}
	c.setResult(tc.Results[j].ID, ReasonStep)
	return true
}

func (c *Controller) setResult(id string, reason Reason) {
	if id == c.state.SelectedResultID {
		return
	}
	prev := c.state
	c.state.SelectedResultID = id
	c.settled = c.state
	c.commit(prev, reason)
}

// Reset replaces the index after a reload. Loaded records are dropped.
// The active test case stays active if the new index still lists it,
// otherwise the first entry takes over; the selected result is carried
// into reconciliation once the active record loads again.
func (c *Controller) Reset(index []casedata.Entry) Outcome {
	prev := c.state
	carry := c.carryFrom(prev)

	c.entries = append([]casedata.Entry(nil), index...)
	c.cases = make(map[string]*casedata.TestCase)
	c.status = make(map[string]LoadStatus)
	c.errs = make(map[string]error)

	active := prev.ActiveTestCaseID
	if _, ok := casedata.Find(c.entries, active); !ok {
		active = ""
		if len(c.entries) > 0 {
			active = c.entries[0].ID
		}
	}
	c.state = State{ActiveTestCaseID: active}
	c.settled = c.state
	c.carry = carry
	if active != "" {
		c.status[active] = StatusPending
	}
	c.commit(prev, ReasonReset)
	if active == "" {
		return Unchanged
	}
	return NeedsLoad
}

// commit records the per-case memory and notifies listeners when State
// differs from prev.
func (c *Controller) commit(prev State, reason Reason) {
	if c.state.SelectedResultID != "" {
		c.lastByCase[c.state.ActiveTestCaseID] = c.state.SelectedResultID
	}
	if c.state == prev {
		return
	}
	ch := Change{Prev: prev, Next: c.state, Reason: reason}
	for _, l := range c.listeners {
		l.fn(ch)
	}
}

// Subscribe registers fn to run after every operation that changes State.
// The returned func removes the subscription.
func (c *Controller) Subscribe(fn func(Change)) (cancel func()) {
	c.nextListener++
	id := c.nextListener
	c.listeners = append(c.listeners, listener{id: id, fn: fn})
	return func() {
		for i, l := range c.listeners {
			if l.id == id {
				c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
				return
			}
		}
	}
}

// State returns the current selection.
func (c *Controller) State() State { return c.state }

// Entries returns a copy of the index.
func (c *Controller) Entries() []casedata.Entry {
	return append([]casedata.Entry(nil), c.entries...)
}

// ActiveTestCase returns the active record once it has loaded.
func (c *Controller) ActiveTestCase() (*casedata.TestCase, bool) {
	tc := c.cases[c.state.ActiveTestCaseID]
	return tc, tc != nil
}

// SelectedResult returns the selected result of the active record.
func (c *Controller) SelectedResult() (casedata.Result, bool) {
	tc, ok := c.ActiveTestCase()
	if !ok {
		return casedata.Result{}, false
	}
	return tc.Result(c.state.SelectedResultID)
}

// SelectedIndex returns the position of the selected result, or -1.
func (c *Controller) SelectedIndex() int {
	tc, _ := c.ActiveTestCase()
	return tc.IndexOf(c.state.SelectedResultID)
}

// Position returns the 1-based position of the selected result and the
// number of results in the active record. Both are 0 when unknown.
func (c *Controller) Position() (pos, total int) {
	tc, ok := c.ActiveTestCase()
	if !ok {
		return 0, 0
	}
	return tc.IndexOf(c.state.SelectedResultID) + 1, len(tc.Results)
}

// Status returns the load status of id.
func (c *Controller) Status(id string) LoadStatus { return c.status[id] }

// Pending reports whether the active record is being fetched.
func (c *Controller) Pending() bool {
	return c.status[c.state.ActiveTestCaseID] == StatusPending
}

// Err returns the last load error recorded for id.
func (c *Controller) Err(id string) error { return c.errs[id] }
