package casedata

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/jsonc"
)

// DecodeManifest parses a manifest document. Comments and trailing commas
// are tolerated. Entry ids must be non-empty and unique.
func DecodeManifest(data []byte) ([]Entry, error) {
	var m Manifest
	if err := json.Unmarshal(jsonc.ToJSON(data), &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}

	seen := make(map[string]struct{}, len(m.TestCases))
	entries := make([]Entry, 0, len(m.TestCases))
	for i, e := range m.TestCases {
		if e.ID == "" {
			return nil, fmt.Errorf("manifest entry %d: missing id", i)
		}
		if _, dup := seen[e.ID]; dup {
			return nil, fmt.Errorf("manifest entry %d: duplicate id %q", i, e.ID)
		}
		seen[e.ID] = struct{}{}
		if e.Name == "" {
			e.Name = e.ID
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// DecodeTestCase parses a test case record and checks it against the id
// the index promised. An empty record id takes wantID; a missing results
// array becomes empty; result ids must be non-empty and unique.
func DecodeTestCase(data []byte, wantID string) (*TestCase, error) {
	var tc TestCase
	if err := json.Unmarshal(jsonc.ToJSON(data), &tc); err != nil {
		return nil, fmt.Errorf("parsing test case: %w", err)
	}
	if tc.ID == "" {
		tc.ID = wantID
	}
	if tc.ID != wantID {
		return nil, fmt.Errorf("record id %q does not match %q", tc.ID, wantID)
	}
	if tc.Results == nil {
		tc.Results = []Result{}
	}
	if err := validateResults(tc.Results); err != nil {
		return nil, err
	}
	return &tc, nil
}

func validateResults(results []Result) error {
	seen := make(map[string]struct{}, len(results))
	for i, r := range results {
		if r.ID == "" {
			return fmt.Errorf("result %d: missing id", i)
		}
		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("result %d: duplicate id %q", i, r.ID)
		}
		seen[r.ID] = struct{}{}
	}
	return nil
}

var errEmptyDocument = errors.New("empty document")
