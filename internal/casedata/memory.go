package casedata

import (
	"context"
	"fmt"
)

// Memory is a Provider over a fixed, in-memory set of test cases.
type Memory struct {
	entries []Entry
	cases   map[string]*TestCase
}

// NewMemory builds a Memory provider. Index order follows argument order.
// It returns an error if ids are empty or repeated, or if a test case
// carries duplicate result ids.
func NewMemory(cases ...TestCase) (*Memory, error) {
	m := &Memory{cases: make(map[string]*TestCase, len(cases))}
	for i := range cases {
		tc := cases[i]
		if tc.ID == "" {
			return nil, fmt.Errorf("casedata: test case %d: missing id", i)
		}
		if _, dup := m.cases[tc.ID]; dup {
			return nil, fmt.Errorf("casedata: duplicate test case id %q", tc.ID)
		}
		if err := validateResults(tc.Results); err != nil {
			return nil, fmt.Errorf("casedata: test case %q: %w", tc.ID, err)
		}
		if tc.Results == nil {
			tc.Results = []Result{}
		}
		name := tc.Name
		if name == "" {
			name = tc.ID
		}
		m.entries = append(m.entries, Entry{ID: tc.ID, Name: name})
		m.cases[tc.ID] = &tc
	}
	return m, nil
}

// List returns the index in declaration order.
func (m *Memory) List(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, &LoadError{Op: "list", Target: "memory", Err: err}
	}
	return append([]Entry(nil), m.entries...), nil
}

// Load returns the record for id.
func (m *Memory) Load(ctx context.Context, id string) (*TestCase, error) {
	if err := ctx.Err(); err != nil {
		return nil, &LoadError{Op: "load", Target: id, Err: err}
	}
	tc, ok := m.cases[id]
	if !ok {
		return nil, notFound(id)
	}
	return tc, nil
}
