package manager

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/extpm-labs/extpm/internal/branding"
	"github.com/extpm-labs/extpm/internal/catalog"
	"github.com/extpm-labs/extpm/internal/config"
	"github.com/extpm-labs/extpm/internal/installer"
	"github.com/extpm-labs/extpm/internal/logging"
	"github.com/extpm-labs/extpm/internal/manifest"
	"github.com/extpm-labs/extpm/internal/metrics"
	"github.com/extpm-labs/extpm/internal/reconcile"
	"github.com/extpm-labs/extpm/internal/registry"
	"github.com/extpm-labs/extpm/internal/resolver"
	"github.com/extpm-labs/extpm/internal/transport"
	"github.com/extpm-labs/extpm/internal/userdata"
	"github.com/extpm-labs/extpm/internal/version"
	"go.uber.org/zap"
)

// ErrUnknownPackage is returned when a name is neither installed nor listed
// by the registry.
var ErrUnknownPackage = errors.New("unknown package")

// Options configures New.
type Options struct {
	Settings config.Settings
	Tunables *config.Tunables
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	// HTTPClient replaces the retrying transport; used by tests.
	HTTPClient *http.Client
}

// Manager owns one instance of every component for the life of a process.
type Manager struct {
	layout   *userdata.Layout
	tunables *config.Tunables
	logger   *zap.Logger
	metrics  *metrics.Metrics

	scanner  *catalog.Scanner
	registry *registry.Client
	resolver *resolver.Resolver
	executor *installer.Executor

	mu      sync.Mutex
	catalog *catalog.Catalog
}

// New builds a Manager. The registry URL comes from the registry_url
// setting, else the built-in default.
func New(opts Options) (*Manager, error) {
	t := opts.Tunables
	if t == nil {
		t = config.DefaultTunables()
	}
	logger := logging.OrNop(opts.Logger)
	layout := userdata.NewLayout(opts.Settings)

	registryURL := branding.RegistryURL()
	if opts.Settings != nil {
		if v := opts.Settings.Get(config.KeyRegistryURL); v != "" {
			registryURL = v
		}
	}
	endpoints, err := registry.ParseEndpoints(registryURL)
	if err != nil {
		return nil, err
	}

	roots, err := catalog.DefaultRoots(layout)
	if err != nil {
		return nil, fmt.Errorf("resolving package roots: %w", err)
	}
	cachePath, err := layout.RegistryCachePath()
	if err != nil {
		return nil, fmt.Errorf("resolving registry cache: %w", err)
	}
	targets, err := installTargets(layout)
	if err != nil {
		return nil, err
	}

	httpOpts := []transport.Option{
		transport.WithTimeout(t.HTTPTimeout),
		transport.WithRetries(t.HTTPRetries),
		transport.WithUserAgent(branding.UserAgent()),
		transport.WithLogger(logger),
	}
	if opts.HTTPClient != nil {
		httpOpts = append(httpOpts, transport.WithHTTPClient(opts.HTTPClient))
	}
	httpc := transport.New(httpOpts...)

	manifestNames := []string{t.ManifestName}
	for _, n := range manifest.DefaultNames {
		if n != t.ManifestName {
			manifestNames = append(manifestNames, n)
		}
	}

	m := &Manager{
		layout:   layout,
		tunables: t,
		logger:   logger,
		metrics:  opts.Metrics,
		scanner:  catalog.NewScanner(roots, catalog.WithManifestNames(manifestNames...), catalog.WithLogger(logger)),
		registry: registry.NewClient(endpoints, httpc, registry.NewCacheStore(cachePath, logger),
			registry.WithTTL(t.RegistryTTL),
			registry.WithBranches(t.Branches()...),
			registry.WithManifestName(t.ManifestName),
			registry.WithConcurrency(t.DownloadConcurrency),
			registry.WithLogger(logger),
			registry.WithMetrics(opts.Metrics)),
		resolver: resolver.New(logger),
	}
	m.executor = installer.NewExecutor(httpc, endpoints,
		reconcile.New(reconcile.WithSidecarSuffix(t.SidecarSuffix), reconcile.WithLogger(logger)),
		targets,
		installer.WithBranches(t.Branches()...),
		installer.WithManifestNames(manifestNames...),
		installer.WithLogger(logger),
		installer.WithMetrics(opts.Metrics))
	return m, nil
}

func installTargets(l *userdata.Layout) (installer.Targets, error) {
	var t installer.Targets
	var err error
	if t.ExtensionsRoot, err = l.ExtensionsRoot(); err != nil {
		return t, fmt.Errorf("resolving extensions root: %w", err)
	}
	if t.CoreRoot, err = l.CoreRoot(); err != nil {
		return t, fmt.Errorf("resolving core root: %w", err)
	}
	if t.ProjectRoot, err = l.ProjectRoot(); err != nil {
		return t, fmt.Errorf("resolving project root: %w", err)
	}
	return t, nil
}

// Layout returns the on-disk layout.
func (m *Manager) Layout() *userdata.Layout { return m.layout }

// Roots returns the package roots in scan order.
func (m *Manager) Roots() []catalog.Root { return m.scanner.Roots() }

// Registry returns the registry client.
func (m *Manager) Registry() *registry.Client { return m.registry }

// Metrics returns the metrics sink, which may be nil.
func (m *Manager) Metrics() *metrics.Metrics { return m.metrics }

// ScanAll rescans every package root and remembers the result.
func (m *Manager) ScanAll() *catalog.Catalog {
	cat := m.scanner.ScanAll()
	m.metrics.InstalledPackages(cat.Len())

	m.mu.Lock()
	m.catalog = cat
	m.mu.Unlock()
	return cat
}

// Catalog returns the last scan, scanning first if there is none.
func (m *Manager) Catalog() *catalog.Catalog {
	m.mu.Lock()
	cat := m.catalog
	m.mu.Unlock()
	if cat == nil {
		return m.ScanAll()
	}
	return cat
}

// FetchRegistry starts or reuses a registry fetch.
func (m *Manager) FetchRegistry(ctx context.Context, force bool) *registry.Pending {
	return m.registry.FetchRegistry(ctx, force)
}

// Snapshot returns the freshest registry snapshot available without
// waiting when one exists, else waits for the fetch.
func (m *Manager) Snapshot(ctx context.Context, force bool) (*registry.Snapshot, error) {
	p := m.registry.FetchRegistry(ctx, force)
	if p.Immediate != nil && !force {
		return p.Immediate, nil
	}
	snap, err := p.Wait(ctx)
	if err != nil {
		if p.Immediate != nil {
			m.logger.Warn("registry refresh failed, using cached listing", zap.Error(err))
			return p.Immediate, nil
		}
		return nil, err
	}
	return snap, nil
}

// Resolve plans root's dependencies against the last scan and the current
// registry snapshot.
func (m *Manager) Resolve(root *manifest.Manifest) *resolver.Plan {
	return m.resolver.Resolve(root, m.Catalog(), m.registry.Snapshot())
}

// Execute runs plan items in order.
func (m *Manager) Execute(ctx context.Context, items []resolver.PlanItem, progress installer.Progress) (*installer.Result, error) {
	return m.executor.Execute(ctx, items, progress)
}

// Plan resolves what installing name requires: its dependency plan
// followed by the package itself when it is missing or outdated.
func (m *Manager) Plan(ctx context.Context, name string) (*resolver.Plan, error) {
	cat := m.ScanAll()
	snap, err := m.Snapshot(ctx, false)
	if err != nil {
		m.logger.Warn("registry unavailable, planning from installed packages only", zap.Error(err))
	}

	installed, isInstalled := cat.Lookup(name)
	remote, inRegistry := snap.Lookup(name)

	var root *manifest.Manifest
	switch {
	case inRegistry:
		root = &remote.Manifest
	case isInstalled:
		root = &installed.Manifest
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownPackage, name)
	}

	plan := m.resolver.Resolve(root, cat, snap)
	if inRegistry && (!isInstalled || version.Compare(installed.Version, remote.Version) < 0) {
		plan.Items = append(plan.Items, selfItem(remote, installed))
	}
	return plan, nil
}

func selfItem(remote *registry.RemotePackage, installed *catalog.Package) resolver.PlanItem {
	item := resolver.PlanItem{
		Name:             remote.Name,
		DisplayName:      remote.Title(),
		AvailableVersion: remote.Version,
		Category:         remote.Category,
		Remote:           remote,
		Ref:              remote.Ref(),
	}
	if installed != nil {
		item.IsUpgrade = true
		item.InstalledVersion = installed.Version
		item.ExistingPath = installed.FolderPath
		if installed.Category != "" {
			item.Category = installed.Category
		}
	}
	return item
}

// Install plans and executes the installation of name, then rescans.
func (m *Manager) Install(ctx context.Context, name string, progress installer.Progress) (*resolver.Plan, *installer.Result, error) {
	plan, err := m.Plan(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	res, err := m.executor.Execute(ctx, plan.Items, progress)
	m.ScanAll()
	return plan, res, err
}

// Uninstall removes an installed package by name, then rescans.
func (m *Manager) Uninstall(name string) error {
	pkg, err := m.ScanAll().Get(name)
	if err != nil {
		return err
	}
	if err := installer.Uninstall(pkg, m.tunables.SidecarSuffix); err != nil {
		return err
	}
	m.logger.Info("uninstalled package", zap.String("package", name), zap.String("path", pkg.FolderPath))
	m.ScanAll()
	return nil
}

// Available lists registry packages with IsInstalled set from the catalog.
// The snapshot is left untouched.
func Available(snap *registry.Snapshot, cat *catalog.Catalog) []registry.RemotePackage {
	if snap == nil {
		return nil
	}
	out := make([]registry.RemotePackage, 0, len(snap.Packages))
	for _, p := range snap.Packages {
		cp := *p
		_, cp.IsInstalled = cat.Lookup(p.Name)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
