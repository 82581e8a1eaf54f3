package casedata

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFS() fstest.MapFS {
	return fstest.MapFS{
		"data/test-cases.json": &fstest.MapFile{Data: []byte(`{"testCases":[
			{"id":"tc1","name":"One","path":"cases/tc1.json"},
			{"id":"tc2","name":"Two","path":"cases/tc2.json"},
			{"id":"broken","name":"Broken","path":"cases/broken.json"},
			{"id":"missing","name":"Missing","path":"cases/missing.json"},
			{"id":"escape","name":"Escape","path":"../../etc/passwd"},
			{"id":"nameless","path":"cases/nameless.json"}
		]}`)},
		"data/cases/tc1.json": &fstest.MapFile{Data: []byte(`{"id":"tc1","name":"One","problem":"p","systemPrompt":"s",
			"results":[{"id":"r1","name":"R1","content":"c1"},{"id":"r2","name":"R2","content":"c2"}]}`)},
		"data/cases/tc2.json":      &fstest.MapFile{Data: []byte(`{"id":"tc2","name":"Two","results":[]}`)},
		"data/cases/broken.json":   &fstest.MapFile{Data: []byte(`{"id":"broken",`)},
		"data/cases/nameless.json": &fstest.MapFile{Data: []byte(`{"id":"nameless"}`)},
	}
}

func TestFS_List(t *testing.T) {
	p := NewFS(sampleFS(), "data/test-cases.json")

	entries, err := p.List(context.Background())

	require.NoError(t, err)
	require.Len(t, entries, 6)
	assert.Equal(t, "tc1", entries[0].ID)
	assert.Equal(t, "cases/tc1.json", entries[0].Path)
}

func TestFS_ListMissingManifest(t *testing.T) {
	p := NewFS(fstest.MapFS{}, "test-cases.json")

	_, err := p.List(context.Background())

	var le *LoadError
	require.True(t, errors.As(err, &le), "err = %T, want *LoadError", err)
	assert.Equal(t, "list", le.Op)
	assert.ErrorIs(t, err, ErrLoad)
}

func TestFS_Load(t *testing.T) {
	p := NewFS(sampleFS(), "data/test-cases.json")

	tc, err := p.Load(context.Background(), "tc1")

	require.NoError(t, err)
	assert.Equal(t, "One", tc.Name)
	require.Len(t, tc.Results, 2)
	assert.Equal(t, "r2", tc.Results[1].ID)
}

func TestFS_LoadErrors(t *testing.T) {
	p := NewFS(sampleFS(), "data/test-cases.json")

	tests := []struct {
		name     string
		id       string
		notFound bool
	}{
		{"unknown id", "nope", true},
		{"malformed record", "broken", false},
		{"record file missing", "missing", false},
		{"path escapes root", "escape", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Load(context.Background(), tt.id)
			require.Error(t, err)
			if tt.notFound {
				assert.ErrorIs(t, err, ErrNotFound)
				return
			}
			assert.ErrorIs(t, err, ErrLoad)
			assert.NotErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestFS_LoadUsesListedManifest(t *testing.T) {
	// Given: a listed manifest that is then corrupted on disk
	fsys := sampleFS()
	p := NewFS(fsys, "data/test-cases.json")
	_, err := p.List(context.Background())
	require.NoError(t, err)
	fsys["data/test-cases.json"] = &fstest.MapFile{Data: []byte(`{"testCases":`)}

	// When: a listed record loads
	tc, err := p.Load(context.Background(), "tc1")

	// Then: it resolves through the listed index
	require.NoError(t, err)
	assert.Equal(t, "One", tc.Name)

	// And: after Invalidate the broken manifest is read again
	p.Invalidate()
	_, err = p.Load(context.Background(), "tc1")
	assert.ErrorIs(t, err, ErrLoad)
}

func TestFS_LoadRelistsOnMiss(t *testing.T) {
	// Given: a listed manifest that later gains an entry
	fsys := sampleFS()
	p := NewFS(fsys, "data/test-cases.json")
	_, err := p.List(context.Background())
	require.NoError(t, err)
	fsys["data/test-cases.json"] = &fstest.MapFile{Data: []byte(`{"testCases":[
		{"id":"tc1","name":"One","path":"cases/tc1.json"},
		{"id":"late","name":"Late","path":"cases/late.json"}
	]}`)}
	fsys["data/cases/late.json"] = &fstest.MapFile{Data: []byte(`{"id":"late","results":[]}`)}

	// When: the new id loads
	tc, err := p.Load(context.Background(), "late")

	// Then: the manifest is read again and the record found
	require.NoError(t, err)
	assert.Equal(t, "Late", tc.Name)
}

func TestFS_LoadNameFallsBackToEntry(t *testing.T) {
	p := NewFS(sampleFS(), "data/test-cases.json")

	tc, err := p.Load(context.Background(), "nameless")

	require.NoError(t, err)
	assert.Equal(t, "nameless", tc.Name)
}

func TestOpenDir(t *testing.T) {
	// Given: a directory holding the default manifest and one record
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "cases"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultManifest),
		[]byte(`{"testCases":[{"id":"tc1","name":"One","path":"cases/tc1.json"}]}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cases", "tc1.json"),
		[]byte(`{"id":"tc1","results":[{"id":"r1"}]}`), 0o644))

	for _, location := range []string{
		dir,
		"file:" + dir,
		"file://" + dir,
		filepath.Join(dir, DefaultManifest),
	} {
		t.Run(location, func(t *testing.T) {
			// When: the location is opened
			p, err := OpenDir(location)
			require.NoError(t, err)

			// Then: the record loads through the manifest
			tc, err := p.Load(context.Background(), "tc1")
			require.NoError(t, err)
			assert.Equal(t, "r1", tc.Results[0].ID)
		})
	}
}

func TestOpenDir_Missing(t *testing.T) {
	_, err := OpenDir(filepath.Join(t.TempDir(), "nope"))

	assert.ErrorIs(t, err, ErrLoad)
}
