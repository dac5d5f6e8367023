package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/extpm-labs/extpm/internal/catalog"
	"github.com/extpm-labs/extpm/internal/installer"
	"github.com/extpm-labs/extpm/internal/manager"
	"github.com/extpm-labs/extpm/internal/manifest"
	"github.com/extpm-labs/extpm/internal/metrics"
	"github.com/extpm-labs/extpm/internal/registry"
	"github.com/extpm-labs/extpm/internal/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	cat         *catalog.Catalog
	snap        *registry.Snapshot
	snapErr     error
	forced      bool
	uninstalled []string
	installErr  error
	metrics     *metrics.Metrics
}

func (f *fakeService) ScanAll() *catalog.Catalog { return f.cat }

func (f *fakeService) Snapshot(ctx context.Context, force bool) (*registry.Snapshot, error) {
	f.forced = force
	return f.snap, f.snapErr
}

func (f *fakeService) Plan(ctx context.Context, name string) (*resolver.Plan, error) {
	if _, ok := f.snap.Lookup(name); !ok {
		return nil, fmt.Errorf("%w: %s", manager.ErrUnknownPackage, name)
	}
	return &resolver.Plan{Root: name, Items: []resolver.PlanItem{{Name: name}}}, nil
}

func (f *fakeService) Install(ctx context.Context, name string, progress installer.Progress) (*resolver.Plan, *installer.Result, error) {
	plan, err := f.Plan(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	if f.installErr != nil {
		return plan, &installer.Result{Failed: name}, f.installErr
	}
	return plan, &installer.Result{Installed: []string{name}}, nil
}

func (f *fakeService) Uninstall(name string) error {
	if name == "extpm" {
		return installer.ErrSelfUninstall
	}
	if _, err := f.cat.Get(name); err != nil {
		return err
	}
	f.uninstalled = append(f.uninstalled, name)
	return nil
}

func (f *fakeService) Metrics() *metrics.Metrics { return f.metrics }

func newFake() *fakeService {
	return &fakeService{
		cat: catalog.New(&catalog.Package{Manifest: manifest.Manifest{Name: "com.acme.curves", Version: "0.3.0"}, FolderPath: "/x/curves"}),
		snap: registry.NewSnapshot([]*registry.RemotePackage{
			{Manifest: manifest.Manifest{Name: "com.acme.curves", Version: "0.3.0"}},
			{Manifest: manifest.Manifest{Name: "com.acme.tween", Version: "1.2.0"}},
		}, "main", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), false),
		metrics: metrics.New(),
	}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestListPackages(t *testing.T) {
	h := New(newFake(), nil).Handler()

	rec := do(t, h, http.MethodGet, "/packages", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp packagesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Packages, 1)
	assert.Equal(t, "com.acme.curves", resp.Packages[0].Name)
}

func TestGetRegistry(t *testing.T) {
	svc := newFake()
	h := New(svc, nil).Handler()

	rec := do(t, h, http.MethodGet, "/registry?refresh=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.forced)

	var resp registryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "main", resp.Branch)
	assert.Equal(t, "2026-01-02T03:04:05Z", resp.FetchedAt)
	require.Len(t, resp.Packages, 2)
	assert.True(t, resp.Packages[0].IsInstalled)
	assert.False(t, resp.Packages[1].IsInstalled)
}

func TestGetRegistryUnavailable(t *testing.T) {
	svc := newFake()
	svc.snap, svc.snapErr = nil, registry.ErrAllBranchesFailed
	h := New(svc, nil).Handler()

	rec := do(t, h, http.MethodGet, "/registry", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.False(t, svc.forced)
}

func TestPlan(t *testing.T) {
	h := New(newFake(), nil).Handler()

	tests := []struct {
		name string
		body string
		want int
	}{
		{"known", `{"name":"com.acme.tween"}`, http.StatusOK},
		{"unknown", `{"name":"com.acme.ghost"}`, http.StatusNotFound},
		{"missing name", `{"name":"  "}`, http.StatusBadRequest},
		{"bad json", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/plan", tt.body)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestInstall(t *testing.T) {
	h := New(newFake(), nil).Handler()

	rec := do(t, h, http.MethodPost, "/install", `{"name":"com.acme.tween"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp installResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"com.acme.tween"}, resp.Result.Installed)
	assert.Empty(t, resp.Error)
}

func TestInstallFailureReportsResult(t *testing.T) {
	svc := newFake()
	svc.installErr = errors.New("download failed")
	h := New(svc, nil).Handler()

	rec := do(t, h, http.MethodPost, "/install", `{"name":"com.acme.tween"}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var resp installResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "com.acme.tween", resp.Result.Failed)
	assert.Equal(t, "download failed", resp.Error)
}

func TestUninstall(t *testing.T) {
	svc := newFake()
	h := New(svc, nil).Handler()

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/packages/com.acme.curves", "").Code)
	assert.Equal(t, []string{"com.acme.curves"}, svc.uninstalled)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/packages/com.acme.ghost", "").Code)
	assert.Equal(t, http.StatusConflict, do(t, h, http.MethodDelete, "/packages/extpm", "").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	svc := newFake()
	svc.metrics.InstallItem(metrics.ResultOK)
	h := New(svc, nil).Handler()

	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "extpm_")
}

func TestMetricsEndpointDisabled(t *testing.T) {
	svc := newFake()
	svc.metrics = nil
	h := New(svc, nil).Handler()

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/metrics", "").Code)
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	s := New(newFake(), nil)
	ctx, cancel := context.WithCancel(context.Background())

	addrCh := make(chan net.Addr, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.ListenAndServe(ctx, "127.0.0.1:0", func(a net.Addr) { addrCh <- a })
	}()

	addr := <-addrCh
	resp, err := http.Get("http://" + addr.String() + "/packages")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
