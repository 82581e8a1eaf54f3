package casedata

import (
	"fmt"
	"sort"
	"strings"
)

// Factory builds a Provider for a source location.
type Factory func(location string) (Provider, error)

// Registry maps source schemes ("demo", "file", "http", ...) to factories.
// It is not safe for concurrent use; registration should happen at startup.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory for scheme. Overwrites if scheme already exists.
// Panics if scheme is empty or f is nil (programmer error).
func (r *Registry) Register(scheme string, f Factory) {
	if scheme == "" {
		panic("casedata: Register called with empty scheme")
	}
	if f == nil {
		panic("casedata: Register called with nil factory")
	}
	r.factories[strings.ToLower(scheme)] = f
}

// Open builds a Provider for location. The full location is passed to
// the factory. Locations without a scheme are treated as "file".
func (r *Registry) Open(location string) (Provider, error) {
	scheme := Scheme(location)
	f, ok := r.factories[scheme]
	if !ok {
		return nil, &UnknownSourceError{
			Scheme:    scheme,
			Available: r.Schemes(),
		}
	}
	p, err := f(location)
	if err != nil {
		return nil, fmt.Errorf("source %q: %w", location, err)
	}
	return p, nil
}

// Schemes returns registered schemes in sorted order.
func (r *Registry) Schemes() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Scheme returns the lower-cased scheme of location, or "file" when
// location has none. Single-letter prefixes are drive letters, not schemes.
func Scheme(location string) string {
	i := strings.Index(location, ":")
	if i <= 1 {
		return "file"
	}
	scheme := location[:i]
	for _, ch := range scheme {
		if !(ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9' || ch == '+' || ch == '-' || ch == '.') {
			return "file"
		}
	}
	return strings.ToLower(scheme)
}

// UnknownSourceError indicates a source scheme is not registered.
type UnknownSourceError struct {
	Scheme    string
	Available []string
}

func (e *UnknownSourceError) Error() string {
	return fmt.Sprintf("unknown source scheme %q (available: %s)", e.Scheme, strings.Join(e.Available, ", "))
}
