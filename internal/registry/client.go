package registry

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/extpm-labs/extpm/internal/manifest"
	"github.com/extpm-labs/extpm/internal/metrics"
	"github.com/extpm-labs/extpm/internal/transport"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a fetched snapshot is served without refetching.
const DefaultTTL = 5 * time.Minute

type treeEntry struct {
	Path string `json:"path"`
	Type string `json:"type"`
	SHA  string `json:"sha"`
}

type treeResponse struct {
	SHA       string      `json:"sha"`
	Tree      []treeEntry `json:"tree"`
	Truncated bool        `json:"truncated"`
}

// Client fetches and caches the remote registry. One Client is meant to be
// shared per process; it owns the in-memory snapshot and the cache file.
type Client struct {
	endpoints    *Endpoints
	http         *transport.Client
	store        *CacheStore
	ttl          time.Duration
	branches     []string
	manifestName string
	concurrency  int
	logger       *zap.Logger
	metrics      *metrics.Metrics
	now          func() time.Time

	mu       sync.Mutex
	snapshot *Snapshot
	flight   singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithTTL sets how long a fresh snapshot is reused.
func WithTTL(d time.Duration) Option {
	return func(c *Client) { c.ttl = d }
}

// WithBranches sets the branch names tried in order.
func WithBranches(branches ...string) Option {
	return func(c *Client) {
		if len(branches) > 0 {
			c.branches = branches
		}
	}
}

// WithManifestName sets the manifest file name looked for in the tree.
func WithManifestName(name string) Option {
	return func(c *Client) {
		if name != "" {
			c.manifestName = name
		}
	}
}

// WithConcurrency bounds parallel manifest downloads.
func WithConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics records fetch outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithClock overrides the time source (useful for testing the TTL).
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a registry client.
func NewClient(endpoints *Endpoints, httpClient *transport.Client, store *CacheStore, opts ...Option) *Client {
	c := &Client{
		endpoints:    endpoints,
		http:         httpClient,
		store:        store,
		ttl:          DefaultTTL,
		branches:     []string{"main", "master"},
		manifestName: manifest.FileName,
		concurrency:  8,
		logger:       zap.NewNop(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoints returns the registry endpoints.
func (c *Client) Endpoints() *Endpoints {
	return c.endpoints
}

// Branches returns the branch names tried in order.
func (c *Client) Branches() []string {
	return c.branches
}

// Snapshot returns the in-memory snapshot, or nil before the first fetch.
func (c *Client) Snapshot() *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// Cached returns the in-memory snapshot, else one built from the on-disk
// cache, without touching the network. It returns nil when neither exists.
func (c *Client) Cached() *Snapshot {
	c.mu.Lock()
	current := c.snapshot
	c.mu.Unlock()
	if current != nil {
		return current
	}
	data := c.store.Load()
	if len(data.Records) == 0 {
		return nil
	}
	return c.buildSnapshot(data.Records, data.Branch, data.UpdatedAt, true)
}

// FetchRegistry returns the registry. A snapshot younger than the TTL is
// returned as already resolved unless force is set. Otherwise Immediate
// holds the best data available now (memory, else the on-disk cache) and a
// refresh is started; concurrent callers share one in-flight refresh.
func (c *Client) FetchRegistry(ctx context.Context, force bool) *Pending {
	c.mu.Lock()
	current := c.snapshot
	c.mu.Unlock()

	if !force && current != nil && c.now().Sub(current.FetchedAt) < c.ttl {
		c.metrics.ObserveFetch(metrics.ResultCached, 0)
		return resolved(current)
	}

	immediate := current
	if immediate == nil {
		if data := c.store.Load(); len(data.Records) > 0 {
			immediate = c.buildSnapshot(data.Records, data.Branch, data.UpdatedAt, true)
		}
	}

	p := &Pending{Immediate: immediate, done: make(chan struct{})}
	// The refresh outlives any single caller's context.
	refreshCtx := context.WithoutCancel(ctx)
	ch := c.flight.DoChan("refresh", func() (interface{}, error) {
		return c.refresh(refreshCtx)
	})
	go func() {
		res := <-ch
		if res.Err != nil {
			p.err = res.Err
		} else {
			p.snap = res.Val.(*Snapshot)
		}
		close(p.done)
	}()
	return p
}

// Fetch is FetchRegistry followed by Wait.
func (c *Client) Fetch(ctx context.Context, force bool) (*Snapshot, error) {
	return c.FetchRegistry(ctx, force).Wait(ctx)
}

func (c *Client) refresh(ctx context.Context) (*Snapshot, error) {
	start := c.now()

	tree, branch, err := c.fetchTree(ctx)
	if err != nil {
		c.metrics.ObserveFetch(metrics.ResultFailed, c.now().Sub(start))
		c.logger.Warn("registry fetch failed", zap.String("registry", c.endpoints.RepoURL()), zap.Error(err))
		return nil, err
	}
	if tree.Truncated {
		c.logger.Warn("registry tree listing is truncated, some packages may be missing",
			zap.String("registry", c.endpoints.RepoURL()))
	}

	cached := c.store.Load().byPath()

	// slots keeps tree order; each is either a cache hit or a download.
	type slot struct {
		entry treeEntry
		hit   *CacheRecord
		got   *manifest.Manifest
	}
	var slots []*slot
	var downloads []*slot
	for _, e := range tree.Tree {
		if e.Type != "blob" || !c.isManifestPath(e.Path) {
			continue
		}
		s := &slot{entry: e}
		if r, ok := cached[e.Path]; ok && r.SHA == e.SHA {
			rec := r
			s.hit = &rec
		} else {
			downloads = append(downloads, s)
		}
		slots = append(slots, s)
	}
	c.metrics.CacheHits(len(slots) - len(downloads))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for _, s := range downloads {
		g.Go(func() error {
			m, err := c.fetchManifest(ctx, branch, s.entry.Path)
			c.metrics.ManifestDownload(err == nil)
			if err != nil {
				c.logger.Warn("skipping registry manifest",
					zap.String("path", s.entry.Path), zap.Error(err))
				return nil
			}
			s.got = m
			return nil
		})
	}
	g.Wait()

	records := make([]CacheRecord, 0, len(slots))
	for _, s := range slots {
		switch {
		case s.hit != nil:
			records = append(records, *s.hit)
		case s.got != nil:
			records = append(records, CacheRecord{Path: s.entry.Path, SHA: s.entry.SHA, Manifest: s.got})
		}
	}

	now := c.now()
	c.store.Save(&CacheData{Records: records, UpdatedAt: now, Branch: branch})

	snap := c.buildSnapshot(records, branch, now, false)
	c.mu.Lock()
	c.snapshot = snap
	c.mu.Unlock()

	c.metrics.ObserveFetch(metrics.ResultOK, now.Sub(start))
	c.logger.Debug("registry refreshed",
		zap.String("branch", branch),
		zap.Int("packages", snap.Len()),
		zap.Int("downloaded", len(downloads)))
	return snap, nil
}

// fetchTree lists the tree of the first branch that answers.
func (c *Client) fetchTree(ctx context.Context) (*treeResponse, string, error) {
	var errs []error
	for _, branch := range c.branches {
		var tree treeResponse
		err := c.http.GetJSON(ctx, c.endpoints.TreeURL(branch), &tree)
		if err == nil {
			return &tree, branch, nil
		}
		c.logger.Info("registry branch unavailable",
			zap.String("branch", branch), zap.Error(err))
		errs = append(errs, fmt.Errorf("branch %s: %w", branch, err))
	}
	return nil, "", fmt.Errorf("%w: %w", ErrAllBranchesFailed, errors.Join(errs...))
}

func (c *Client) fetchManifest(ctx context.Context, branch, p string) (*manifest.Manifest, error) {
	data, err := c.http.Get(ctx, c.endpoints.RawURL(branch, p), nil)
	if err != nil {
		return nil, err
	}
	return manifest.ParseBytes(data, p)
}

// isManifestPath accepts <folder>/.../<manifestName>; a manifest at the
// repository root describes no package folder and is ignored.
func (c *Client) isManifestPath(p string) bool {
	return strings.Contains(p, "/") && path.Base(p) == c.manifestName
}

func (c *Client) buildSnapshot(records []CacheRecord, branch string, fetchedAt time.Time, stale bool) *Snapshot {
	if branch == "" && len(c.branches) > 0 {
		branch = c.branches[0]
	}

	seen := make(map[string]string, len(records))
	pkgs := make([]*RemotePackage, 0, len(records))
	for _, r := range records {
		folder := strings.SplitN(r.Path, "/", 2)[0]
		m := r.Manifest.Clone()
		m.DownloadURL = c.endpoints.FolderURL(branch, folder)

		if kept, ok := seen[m.Name]; ok {
			c.logger.Warn("duplicate package name in registry, keeping first",
				zap.String("package", m.Name),
				zap.String("kept", kept),
				zap.String("ignored", r.Path))
			continue
		}
		seen[m.Name] = r.Path

		pkgs = append(pkgs, &RemotePackage{
			Manifest:         *m,
			RemoteFolderName: folder,
			ManifestPath:     r.Path,
			SHA:              r.SHA,
			Branch:           branch,
		})
	}
	return NewSnapshot(pkgs, branch, fetchedAt, stale)
}
