package registry

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/extpm-labs/extpm/internal/manifest"
)

// ErrAllBranchesFailed is returned when no branch yielded a tree listing.
var ErrAllBranchesFailed = errors.New("registry fetch failed on every branch")

// RemotePackage is a package listed by the registry.
type RemotePackage struct {
	manifest.Manifest
	RemoteFolderName string `json:"remoteFolderName"`
	ManifestPath     string `json:"manifestPath"`
	SHA              string `json:"sha"`
	Branch           string `json:"branch"`
	IsInstalled      bool   `json:"isInstalled"`
	origin           manifest.Origin
}

// Ref returns the package reference, tagged remote or cached.
func (p *RemotePackage) Ref() manifest.Ref {
	return manifest.RefOf(&p.Manifest, p.origin)
}

// Snapshot is one view of the registry.
type Snapshot struct {
	Packages  []*RemotePackage `json:"packages"`
	FetchedAt time.Time        `json:"fetchedAt"`
	Branch    string           `json:"branch"`
	// Stale is set when the snapshot came from the on-disk cache rather than
	// a completed network refresh.
	Stale bool `json:"stale"`

	byName map[string]*RemotePackage
}

// NewSnapshot builds a snapshot from packages; later duplicates of a name
// are dropped.
func NewSnapshot(pkgs []*RemotePackage, branch string, fetchedAt time.Time, stale bool) *Snapshot {
	s := &Snapshot{
		FetchedAt: fetchedAt,
		Branch:    branch,
		Stale:     stale,
		byName:    make(map[string]*RemotePackage, len(pkgs)),
	}
	origin := manifest.OriginRemote
	if stale {
		origin = manifest.OriginCached
	}
	for _, p := range pkgs {
		if _, ok := s.byName[p.Name]; ok {
			continue
		}
		p.origin = origin
		s.byName[p.Name] = p
		s.Packages = append(s.Packages, p)
	}
	return s
}

// Lookup returns the registry package with the given name.
func (s *Snapshot) Lookup(name string) (*RemotePackage, bool) {
	if s == nil {
		return nil, false
	}
	p, ok := s.byName[name]
	return p, ok
}

// Names returns the registry package names in sorted order.
func (s *Snapshot) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.byName))
	for n := range s.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of packages.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Packages)
}

// Pending is the two-phase result of FetchRegistry: Immediate is available
// at once (nil when nothing is cached), Wait blocks for the refresh.
type Pending struct {
	Immediate *Snapshot

	done chan struct{}
	snap *Snapshot
	err  error
}

func resolved(s *Snapshot) *Pending {
	p := &Pending{Immediate: s, snap: s, done: make(chan struct{})}
	close(p.done)
	return p
}

// Done is closed when the refresh has completed.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the refresh completes or ctx is done. On refresh failure
// the error is returned and previously returned snapshots remain valid.
func (p *Pending) Wait(ctx context.Context) (*Snapshot, error) {
	select {
	case <-p.done:
		return p.snap, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
