package casedata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxDocumentSize bounds a single manifest or record body.
const maxDocumentSize = 16 << 20

// HTTP is a Provider that fetches the manifest and per-case records over
// plain HTTP GET. Entry paths resolve relative to the manifest URL.
type HTTP struct {
	client   *http.Client
	manifest *url.URL
	timeout  time.Duration
	index    entryIndex
}

// HTTPOption configures an HTTP provider.
type HTTPOption func(*HTTP)

// WithTimeout bounds each request. Zero disables the per-request bound.
func WithTimeout(d time.Duration) HTTPOption {
	return func(h *HTTP) { h.timeout = d }
}

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTP) { h.client = c }
}

// NewHTTP builds an HTTP provider. rawURL may name the manifest itself
// (a path ending in ".json") or a directory holding DefaultManifest.
func NewHTTP(rawURL string, opts ...HTTPOption) (*HTTP, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("casedata: parsing source URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("casedata: unsupported URL scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("casedata: source URL %q has no host", rawURL)
	}
	if !strings.HasSuffix(u.Path, ".json") {
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		u = u.ResolveReference(&url.URL{Path: DefaultManifest})
	}

	h := &HTTP{client: http.DefaultClient, manifest: u}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// List fetches and decodes the manifest.
func (h *HTTP) List(ctx context.Context) ([]Entry, error) {
	target := h.manifest.String()
	data, err := h.get(ctx, h.manifest)
	if err != nil {
		return nil, &LoadError{Op: "list", Target: target, Err: err}
	}
	entries, err := DecodeManifest(data)
	if err != nil {
		return nil, &LoadError{Op: "list", Target: target, Err: err}
	}
	h.index.set(entries)
	return entries, nil
}

// Load resolves id through the last fetched manifest, then fetches its
// record. The manifest is fetched again only when id is not in it. A 404
// on the record reports ErrNotFound.
func (h *HTTP) Load(ctx context.Context, id string) (*TestCase, error) {
	entry, err := h.index.lookup(ctx, h.List, id)
	if err != nil {
		return nil, err
	}
	if entry.Path == "" {
		return nil, &LoadError{Op: "load", Target: id, Err: fmt.Errorf("test case %q: missing path", id)}
	}

	ref, err := url.Parse(entry.Path)
	if err != nil {
		return nil, &LoadError{Op: "load", Target: entry.Path, Err: err}
	}
	u := h.manifest.ResolveReference(ref)
	target := u.String()

	data, err := h.get(ctx, u)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %q (%s)", ErrNotFound, id, target)
		}
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

// Invalidate forgets the fetched manifest.
func (h *HTTP) Invalidate() { h.index.reset() }

// statusError carries a non-2xx response code.
type statusError struct {
	code   int
	status string
}

func (e *statusError) Error() string { return "unexpected status " + e.status }

func (h *HTTP) get(ctx context.Context, u *url.URL) ([]byte, error) {
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &statusError{code: resp.StatusCode, status: resp.Status}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxDocumentSize {
		return nil, fmt.Errorf("document exceeds %d bytes", maxDocumentSize)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyDocument
	}
	return data, nil
}
