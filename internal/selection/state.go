// Package selection owns the viewer's selection state: which test case is
// active and which of its results is shown. All mutation goes through a
// Controller, which re-derives the selected result whenever the active
// test case changes or finishes loading.
package selection

import (
	"errors"
	"fmt"
	"strings"
)

// State is the selection value object. Empty strings mean "none".
type State struct {
	ActiveTestCaseID string
	SelectedResultID string
}

// LoadStatus tracks where a test case record is in its load lifecycle.
type LoadStatus int

const (
	StatusUnknown LoadStatus = iota
	StatusPending
	StatusLoaded
	StatusFailed
)

func (s LoadStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusLoaded:
		return "loaded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome tells the caller what an operation did and whether it must
// fetch a record and report back through Complete.
type Outcome int

const (
	// Unchanged means the operation had no effect.
	Unchanged Outcome = iota
	// Reconciled means the active record was loaded and the selected
	// result was re-derived.
	Reconciled
	// NeedsLoad means the active record must be fetched; the caller
	// reports the result through Complete.
	NeedsLoad
	// Pending means the active record is already being fetched.
	Pending
	// Stale means a completion arrived for a test case that is not
	// active. The record was kept; the selection was not touched.
	Stale
	// Failed means the active record failed to load and the last
	// settled state was restored.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Unchanged:
		return "unchanged"
	case Reconciled:
		return "reconciled"
	case NeedsLoad:
		return "needs-load"
	case Pending:
		return "pending"
	case Stale:
		return "stale"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Recall selects how reconciliation picks a result when a test case
// becomes active again.
type Recall int

const (
	// RecallCarry keeps the result that was selected at switch time if
	// the new test case has one with the same id, else picks the first.
	RecallCarry Recall = iota
	// RecallPerCase restores the last result viewed in the test case if
	// it still exists, then falls back to RecallCarry.
	RecallPerCase
)

func (r Recall) String() string {
	if r == RecallPerCase {
		return "per-case"
	}
	return "carry"
}

// ParseRecall parses "carry" or "per-case".
func ParseRecall(s string) (Recall, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "carry", "":
		return RecallCarry, nil
	case "per-case", "percase":
		return RecallPerCase, nil
	default:
		return RecallCarry, fmt.Errorf("selection: unknown recall policy %q (want carry or per-case)", s)
	}
}

// ErrInvalidSelection matches any *InvalidSelectionError via errors.Is.
var ErrInvalidSelection = errors.New("selection: invalid result selection")

// InvalidSelectionError reports a result id that is not part of the
// active test case. Callers only offer valid ids, so this is a bug.
type InvalidSelectionError struct {
	TestCaseID string
	ResultID   string
}

func (e *InvalidSelectionError) Error() string {
	if e.TestCaseID == "" {
		return fmt.Sprintf("selection: result %q selected with no active test case", e.ResultID)
	}
	return fmt.Sprintf("selection: result %q is not in test case %q", e.ResultID, e.TestCaseID)
}

// Is reports whether target is ErrInvalidSelection.
func (e *InvalidSelectionError) Is(target error) bool { return target == ErrInvalidSelection }

// Reason names the operation behind a Change.
type Reason string

const (
	ReasonStart        Reason = "start"
	ReasonSelectCase   Reason = "select-case"
	ReasonLoad         Reason = "load"
	ReasonLoadFailed   Reason = "load-failed"
	ReasonSelectResult Reason = "select-result"
	ReasonStep         Reason = "step"
	ReasonReset        Reason = "reset"
)

// Change is delivered to subscribers after an operation changed State.
type Change struct {
	Prev   State
	Next   State
	Reason Reason
}
