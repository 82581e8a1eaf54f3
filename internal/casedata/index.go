package casedata

import (
	"context"
	"sync"
)

// entryIndex remembers the entries of the last successful List so Load
// can resolve record paths without fetching the manifest again.
type entryIndex struct {
	mu      sync.Mutex
	entries []Entry
	ok      bool
}

func (x *entryIndex) set(entries []Entry) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.entries = append([]Entry(nil), entries...)
	x.ok = true
}

func (x *entryIndex) reset() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.entries = nil
	x.ok = false
}

// lookup finds id in the remembered index. With no index yet, or when id
// is missing from it, list runs once more before reporting ErrNotFound.
func (x *entryIndex) lookup(ctx context.Context, list func(context.Context) ([]Entry, error), id string) (Entry, error) {
	x.mu.Lock()
	e, found := Find(x.entries, id)
	x.mu.Unlock()
	if found {
		return e, nil
	}
	entries, err := list(ctx)
	if err != nil {
		return Entry{}, err
	}
	if e, found = Find(entries, id); !found {
		return Entry{}, notFound(id)
	}
	return e, nil
}
