// Package casedata defines test case records and the providers that
// supply them: an index of lightweight entries plus per-id loading of
// full records.
package casedata

import "context"

// Result is one named piece of content attached to a test case.
// Content is Markdown with math and is opaque to this package.
type Result struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// TestCase bundles a problem statement, a system prompt, and an ordered
// list of results. Result order defines prev/next navigation.
type TestCase struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Problem      string   `json:"problem"`
	SystemPrompt string   `json:"systemPrompt"`
	Results      []Result `json:"results"`
}

// IndexOf returns the position of the result with the given id, or -1.
func (tc *TestCase) IndexOf(resultID string) int {
	if tc == nil || resultID == "" {
		return -1
	}
	for i, r := range tc.Results {
		if r.ID == resultID {
			return i
		}
	}
	return -1
}

// Result returns the result with the given id.
func (tc *TestCase) Result(resultID string) (Result, bool) {
	i := tc.IndexOf(resultID)
	if i < 0 {
		return Result{}, false
	}
	return tc.Results[i], true
}

// Entry is an index item: enough to draw a tab before the full record
// has been loaded. Path is relative to the manifest and empty for
// in-memory sources.
type Entry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// Manifest is the on-disk and on-wire shape of the index.
type Manifest struct {
	TestCases []Entry `json:"testCases"`
}

// Find returns the entry with the given id.
func Find(entries []Entry, id string) (Entry, bool) {
	for _, e := range entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Provider supplies the index and full test case records.
// Load returns an error matching ErrNotFound when id is not in the index
// and a *LoadError on transport or parse failure.
type Provider interface {
	List(ctx context.Context) ([]Entry, error)
	Load(ctx context.Context, id string) (*TestCase, error)
}
