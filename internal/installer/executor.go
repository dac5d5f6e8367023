package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/extpm-labs/extpm/internal/logging"
	"github.com/extpm-labs/extpm/internal/manifest"
	"github.com/extpm-labs/extpm/internal/metrics"
	"github.com/extpm-labs/extpm/internal/reconcile"
	"github.com/extpm-labs/extpm/internal/registry"
	"github.com/extpm-labs/extpm/internal/resolver"
	"github.com/extpm-labs/extpm/internal/transport"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Targets are the roots install paths are derived from.
type Targets struct {
	ExtensionsRoot string
	CoreRoot       string
	// ProjectRoot anchors relative installPath overrides.
	ProjectRoot string
}

// Event is reported to a Progress callback as items move through a run.
type Event struct {
	Index int
	Total int
	Item  *resolver.PlanItem
	Stage Stage
	// Path is set once the item is installed.
	Path string
	Err  error
}

// Progress receives run events. It is called from the executing goroutine.
type Progress func(Event)

// Result summarises a run.
type Result struct {
	RunID        string            `json:"runId"`
	Installed    []string          `json:"installed"`
	Paths        map[string]string `json:"paths"`
	Failed       string            `json:"failed,omitempty"`
	NotAttempted []string          `json:"notAttempted,omitempty"`
}

// OK reports whether every item was installed.
func (r *Result) OK() bool {
	return r.Failed == "" && len(r.NotAttempted) == 0
}

// Executor installs plan items one at a time.
type Executor struct {
	http          *transport.Client
	registry      *registry.Endpoints
	branches      []string
	reconciler    *reconcile.Reconciler
	targets       Targets
	manifestNames []string
	tempDir       string
	logger        *zap.Logger
	metrics       *metrics.Metrics

	// running holds a token while a run is in progress. Runs write into
	// shared roots, so they never overlap.
	running chan struct{}
}

// Option configures an Executor.
type Option func(*Executor)

// WithBranches sets the archive branches tried in order.
func WithBranches(branches ...string) Option {
	return func(e *Executor) {
		if len(branches) > 0 {
			e.branches = branches
		}
	}
}

// WithManifestNames sets the manifest file names recognised in archives.
func WithManifestNames(names ...string) Option {
	return func(e *Executor) {
		if len(names) > 0 {
			e.manifestNames = names
		}
	}
}

// WithTempDir sets where archives are downloaded and extracted.
func WithTempDir(dir string) Option {
	return func(e *Executor) { e.tempDir = dir }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// NewExecutor returns an executor downloading through httpClient. reg is the
// registry repository registry items are fetched from; it may be nil when
// only gitUrl items are installed.
func NewExecutor(httpClient *transport.Client, reg *registry.Endpoints, rec *reconcile.Reconciler, targets Targets, opts ...Option) *Executor {
	e := &Executor{
		http:          httpClient,
		registry:      reg,
		branches:      []string{"main", "master"},
		reconciler:    rec,
		targets:       targets,
		manifestNames: manifest.DefaultNames,
		running:       make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.OrNop(e.logger)
	if e.reconciler == nil {
		e.reconciler = reconcile.New(reconcile.WithLogger(e.logger))
	}
	return e
}

// Execute installs items in order. The first failing item stops the run;
// the returned error is an *ItemError and the result lists what was not
// attempted. Items installed before the failure are left in place.
// Runs on one Executor are serialized: a call waits for the run in progress
// and returns ctx.Err() with every item not attempted if ctx ends first.
func (e *Executor) Execute(ctx context.Context, items []resolver.PlanItem, progress Progress) (*Result, error) {
	res := &Result{
		RunID: uuid.NewString(),
		Paths: make(map[string]string, len(items)),
	}
	select {
	case e.running <- struct{}{}:
	case <-ctx.Done():
		res.NotAttempted = names(items)
		return res, ctx.Err()
	}
	defer func() { <-e.running }()

	log := e.logger.With(zap.String("run_id", res.RunID))
	if progress == nil {
		progress = func(Event) {}
	}

	for i := range items {
		item := &items[i]
		if err := ctx.Err(); err != nil {
			res.NotAttempted = names(items[i:])
			return res, err
		}

		report := func(stage Stage) {
			progress(Event{Index: i, Total: len(items), Item: item, Stage: stage})
		}
		path, err := e.install(ctx, item, report)
		if err != nil {
			e.metrics.InstallItem(metrics.ResultFailed)
			res.Failed = item.Name
			res.NotAttempted = names(items[i+1:])
			log.Error("install failed, stopping",
				zap.String("package", item.Name),
				zap.Error(err),
				zap.Strings("not_attempted", res.NotAttempted))
			var ie *ItemError
			if errors.As(err, &ie) {
				progress(Event{Index: i, Total: len(items), Item: item, Stage: ie.Stage, Err: err})
			}
			return res, err
		}

		e.metrics.InstallItem(metrics.ResultOK)
		res.Installed = append(res.Installed, item.Name)
		res.Paths[item.Name] = path
		log.Info("installed package",
			zap.String("package", item.Name),
			zap.String("path", path),
			zap.Bool("upgrade", item.IsUpgrade))
		progress(Event{Index: i, Total: len(items), Item: item, Path: path})
	}
	return res, nil
}

func (e *Executor) install(ctx context.Context, item *resolver.PlanItem, report func(Stage)) (string, error) {
	fail := func(stage Stage, err error) error {
		return &ItemError{Item: item.Name, Stage: stage, Err: err}
	}

	repo, branches, err := e.source(item)
	if err != nil {
		return "", fail(StageDownload, err)
	}

	work, err := os.MkdirTemp(e.tempDir, "extpm-install-*")
	if err != nil {
		return "", fail(StageDownload, err)
	}
	defer os.RemoveAll(work)

	report(StageDownload)
	archive := filepath.Join(work, "archive.zip")
	if err := e.download(ctx, repo, branches, archive); err != nil {
		return "", fail(StageDownload, err)
	}

	report(StageExtract)
	root, err := extract(archive, filepath.Join(work, "src"))
	if err != nil {
		return "", fail(StageExtract, err)
	}

	report(StageLocate)
	folder := ""
	if item.Remote != nil {
		folder = item.Remote.RemoteFolderName
	}
	content, err := locateContent(root, folder, item.Name, e.manifestNames)
	if err != nil {
		return "", fail(StageLocate, fmt.Errorf("%w: %s", err, item.Name))
	}

	report(StageReconcile)
	target, err := e.targetPath(item, content, root)
	if err != nil {
		return "", fail(StageReconcile, err)
	}
	if _, err := e.reconciler.Reconcile(content, target); err != nil {
		return "", fail(StageReconcile, err)
	}

	if src := item.Source(); src != "" {
		if err := manifest.SetSourceURL(target, src, e.manifestNames...); err != nil {
			e.logger.Warn("could not record sourceUrl",
				zap.String("package", item.Name),
				zap.String("path", target),
				zap.Error(err))
		}
	}
	return target, nil
}

// source picks the repository and branch order for an item: the registry
// for registry entries, else the item's gitUrl.
func (e *Executor) source(item *resolver.PlanItem) (*registry.Endpoints, []string, error) {
	if item.Remote != nil {
		if e.registry == nil {
			return nil, nil, errors.New("no registry configured")
		}
		return e.registry, withFirst(item.Remote.Branch, e.branches), nil
	}
	if item.GitURL == "" {
		return nil, nil, ErrNoSource
	}
	repo, err := registry.ParseEndpoints(item.GitURL)
	if err != nil {
		return nil, nil, fmt.Errorf("gitUrl %q: %w", item.GitURL, err)
	}
	return repo, e.branches, nil
}

func (e *Executor) download(ctx context.Context, repo *registry.Endpoints, branches []string, dest string) error {
	var errs []error
	for _, branch := range branches {
		url := repo.ArchiveURL(branch)
		err := e.http.Download(ctx, url, dest)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		e.logger.Info("archive download failed, trying next branch",
			zap.String("branch", branch),
			zap.Error(err))
		errs = append(errs, err)
	}
	return fmt.Errorf("downloading %s: %w", repo.RepoURL(), errors.Join(errs...))
}

// targetPath decides where an item is installed: an explicit installPath
// (relative to the project root), the existing folder of an upgrade, the
// core root for Core packages, else a folder under the extensions root.
func (e *Executor) targetPath(item *resolver.PlanItem, content, archiveRoot string) (string, error) {
	if item.InstallPath != "" {
		if filepath.IsAbs(item.InstallPath) {
			return filepath.Clean(item.InstallPath), nil
		}
		if e.targets.ProjectRoot == "" {
			return "", fmt.Errorf("relative installPath %q needs a project root", item.InstallPath)
		}
		return filepath.Join(e.targets.ProjectRoot, item.InstallPath), nil
	}
	if item.IsUpgrade && item.ExistingPath != "" {
		return item.ExistingPath, nil
	}

	folder := item.Name
	if item.Remote != nil && item.Remote.RemoteFolderName != "" {
		folder = item.Remote.RemoteFolderName
	} else if content != archiveRoot {
		folder = filepath.Base(content)
	}

	category := item.Category
	if category == "" {
		if m, _, err := manifest.Load(content, e.manifestNames...); err == nil {
			category = m.Category
		}
	}
	root := e.targets.ExtensionsRoot
	if category == manifest.CategoryCore && e.targets.CoreRoot != "" {
		root = e.targets.CoreRoot
	}
	if root == "" {
		return "", errors.New("no install root configured")
	}
	return filepath.Join(root, folder), nil
}

func withFirst(first string, rest []string) []string {
	out := make([]string, 0, len(rest)+1)
	if first != "" {
		out = append(out, first)
	}
	for _, b := range rest {
		if b != first {
			out = append(out, b)
		}
	}
	return out
}

func names(items []resolver.PlanItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Name)
	}
	return out
}
