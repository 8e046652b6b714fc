// Package source opens bulk import data. HTTP(S) URLs are fetched with a
// bounded client; file:// URLs and plain paths are read from disk unless the
// Opener is RemoteOnly.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// DefaultTimeout bounds a whole HTTP fetch, including reading the body.
const DefaultTimeout = 30 * time.Second

// ErrNotRemote is returned by a RemoteOnly Opener for anything but http and
// https URLs.
var ErrNotRemote = errors.New("import source must be an http or https URL")

// Opener fetches import sources.
type Opener struct {
	client     *http.Client
	remoteOnly bool
}

// Option configures an Opener.
type Option func(*Opener)

// RemoteOnly restricts the Opener to http and https URLs. Sources named by
// untrusted callers must never reach the local filesystem.
func RemoteOnly() Option { return func(o *Opener) { o.remoteOnly = true } }

// New returns an Opener whose HTTP requests time out after timeout. A zero
// timeout selects DefaultTimeout.
func New(timeout time.Duration, opts ...Option) *Opener {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return NewWithClient(&http.Client{Timeout: timeout}, opts...)
}

// NewWithClient uses c for HTTP sources.
func NewWithClient(c *http.Client, opts ...Option) *Opener {
	o := &Opener{client: c}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// IsRemote reports whether src is an http or https URL.
func IsRemote(src string) bool {
	u, err := url.Parse(strings.TrimSpace(src))
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return (scheme == "http" || scheme == "https") && u.Host != ""
}

// Open returns a stream over src. The caller closes it.
func (o *Opener) Open(ctx context.Context, src string) (io.ReadCloser, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, fmt.Errorf("empty import source")
	}
	if o.remoteOnly && !IsRemote(src) {
		return nil, fmt.Errorf("%w: %q", ErrNotRemote, src)
	}
	u, err := url.Parse(src)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// plain path, including Windows drive letters
		return openFile(src)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return o.fetch(ctx, u.String())
	case "file":
		path := u.Path
		if path == "" {
			path = u.Opaque
		}
		return openFile(path)
	default:
		return nil, fmt.Errorf("unsupported import scheme %q", u.Scheme)
	}
}

func (o *Opener) fetch(ctx context.Context, target string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/plain, text/csv, */*")
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", target, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: unexpected status %s", target, resp.Status)
	}
	return resp.Body, nil
}

func openFile(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}
