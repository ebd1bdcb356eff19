package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/modpack-tools/loadout/pkg/loadout/types"
)

const manifestFile = "manifest.json"

// HTTPSource fetches manifests and content from a static HTTP(S) host.
type HTTPSource struct {
	base   *url.URL
	client *http.Client

	// conditional fetch state for the manifest
	lastModified string
	cached       *types.Manifest
}

// HTTPOption adjusts an HTTPSource.
type HTTPOption func(*HTTPSource)

// WithHTTPClient replaces the default client, mainly for tests.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPSource) { s.client = c }
}

// NewHTTPSource parses and normalizes the repository base URL. A
// trailing slash is added so relative resolution keeps the last path
// segment.
func NewHTTPSource(baseURL string, opts ...HTTPOption) (*HTTPSource, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse repository url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("repository url %q: scheme must be http or https", baseURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	// Dial and header timeouts only. A whole-request deadline would cap
	// body reads too, failing any archive slower than the cap; per-unit
	// deadlines are the syncer's job.
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ResponseHeaderTimeout: time.Minute,
	}
	s := &HTTPSource{
		base:   u,
		client: &http.Client{Transport: transport},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// FetchManifest downloads and decodes <base>/manifest.json. Repeated
// calls send If-Modified-Since and reuse the previous decode on 304.
func (s *HTTPSource) FetchManifest(ctx context.Context) (*types.Manifest, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.resolve(manifestFile), nil)
	if err != nil {
		return nil, err
	}
	if s.lastModified != "" && s.cached != nil {
		req.Header.Set("If-Modified-Since", s.lastModified)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified && s.cached != nil:
		io.Copy(io.Discard, resp.Body)
		return s.cached, nil
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: manifest fetch returned %s", types.ErrRemoteUnavailable, resp.Status)
	}

	var m types.Manifest
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode remote manifest: %w", err)
	}
	if err := m.NormalizeDigests(); err != nil {
		return nil, fmt.Errorf("remote manifest: %w", err)
	}
	normalized := types.NewManifest(m.Mods)
	s.cached = normalized
	s.lastModified = resp.Header.Get("Last-Modified")
	return normalized, nil
}

// Prime seeds the conditional-fetch state from a persisted snapshot, so
// the first FetchManifest of a process can still send If-Modified-Since.
func (s *HTTPSource) Prime(lastModified string, m *types.Manifest) {
	if lastModified == "" || m == nil {
		return
	}
	s.lastModified = lastModified
	s.cached = m
}

// CachedState returns the current conditional-fetch state for
// persistence. The manifest is nil until a fetch has completed.
func (s *HTTPSource) CachedState() (string, *types.Manifest) {
	return s.lastModified, s.cached
}

// Open streams <base>/<mod>/<rel>.
func (s *HTTPSource) Open(ctx context.Context, mod, rel string) (io.ReadCloser, error) {
	target := s.resolve(mod + "/" + rel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrRemoteUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: fetch %s/%s returned %s", types.ErrRemoteUnavailable, mod, rel, resp.Status)
	}
	return resp.Body, nil
}

func (s *HTTPSource) resolve(rel string) string {
	return s.base.JoinPath(strings.Split(rel, "/")...).String()
}
