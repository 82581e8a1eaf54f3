package casedata

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// DefaultManifest is the manifest file name looked up inside a directory source.
const DefaultManifest = "test-cases.json"

// FS is a Provider that reads a manifest and per-case records from a
// filesystem. Entry paths resolve relative to the manifest's directory
// and may not escape the filesystem root.
type FS struct {
	fsys     fs.FS
	manifest string
	index    entryIndex
}

// NewFS returns an FS provider reading manifest from fsys.
func NewFS(fsys fs.FS, manifest string) *FS {
	return &FS{fsys: fsys, manifest: manifest}
}

// OpenDir builds an FS provider from a location on local disk. location
// may carry a "file:" or "file://" prefix and may name either a manifest
// file or a directory holding DefaultManifest.
func OpenDir(location string) (*FS, error) {
	p := LocalPath(location)
	if p == "" {
		return nil, errors.New("casedata: empty source path")
	}
	info, err := os.Stat(p)
	if err != nil {
		return nil, &LoadError{Op: "list", Target: p, Err: err}
	}
	if info.IsDir() {
		return NewFS(os.DirFS(p), DefaultManifest), nil
	}
	return NewFS(os.DirFS(filepath.Dir(p)), filepath.Base(p)), nil
}

// LocalPath strips a "file://" or "file:" prefix from location.
func LocalPath(location string) string {
	if rest, ok := strings.CutPrefix(location, "file://"); ok {
		return rest
	}
	if rest, ok := strings.CutPrefix(location, "file:"); ok {
		return rest
	}
	return location
}

// List reads and decodes the manifest.
func (p *FS) List(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, &LoadError{Op: "list", Target: p.manifest, Err: err}
	}
	data, err := p.read(p.manifest)
	if err != nil {
		return nil, &LoadError{Op: "list", Target: p.manifest, Err: err}
	}
	entries, err := DecodeManifest(data)
	if err != nil {
		return nil, &LoadError{Op: "list", Target: p.manifest, Err: err}
	}
	p.index.set(entries)
	return entries, nil
}

// Load resolves id through the last listed manifest and decodes its
// record. The manifest is read again only when id is not in it.
func (p *FS) Load(ctx context.Context, id string) (*TestCase, error) {
	entry, err := p.index.lookup(ctx, p.List, id)
	if err != nil {
		return nil, err
	}

	target, err := p.resolve(entry)
	if err != nil {
		return nil, &LoadError{Op: "load", Target: entry.Path, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &LoadError{Op: "load", Target: target, Err: err}
	}
	data, err := p.read(target)
	if err != nil {
		return nil, &LoadError{Op: "load", Target: target, Err: err}
	}
	tc, err := DecodeTestCase(data, id)
	if err != nil {
		return nil, &LoadError{Op: "load", Target: target, Err: err}
	}
	if tc.Name == "" {
		tc.Name = entry.Name
	}
	return tc, nil
}

// Invalidate forgets the listed manifest.
func (p *FS) Invalidate() { p.index.reset() }

// resolve maps an entry path onto the filesystem, rejecting paths that
// climb out of the root.
func (p *FS) resolve(e Entry) (string, error) {
	if e.Path == "" {
		return "", fmt.Errorf("test case %q: missing path", e.ID)
	}
	if strings.HasPrefix(e.Path, "/") || strings.ContainsRune(e.Path, '\\') {
		return "", fmt.Errorf("test case %q: invalid path %q", e.ID, e.Path)
	}
	target := path.Join(path.Dir(p.manifest), e.Path)
	if !fs.ValidPath(target) {
		return "", fmt.Errorf("test case %q: path %q escapes the source root", e.ID, e.Path)
	}
	return target, nil
}

func (p *FS) read(name string) ([]byte, error) {
	data, err := fs.ReadFile(p.fsys, name)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyDocument
	}
	return data, nil
}
