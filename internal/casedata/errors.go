package casedata

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates a test case id that the index does not list.
var ErrNotFound = errors.New("casedata: test case not found")

// ErrLoad matches any *LoadError via errors.Is.
var ErrLoad = errors.New("casedata: load failed")

// LoadError reports a transport or parse failure while fetching the
// manifest or a test case record.
type LoadError struct {
	Op     string // "list" or "load"
	Target string // manifest path, record path, or URL
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("casedata: %s %s: %v", e.Op, e.Target, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Is reports whether target is ErrLoad.
func (e *LoadError) Is(target error) bool { return target == ErrLoad }

func notFound(id string) error {
	return fmt.Errorf("%w: %q", ErrNotFound, id)
}
