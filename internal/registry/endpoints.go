package registry

import (
	"fmt"
	"net/url"
	"strings"
)

// Default hosting service bases.
const (
	DefaultAPIBase = "https://api.github.com"
	DefaultRawBase = "https://raw.githubusercontent.com"
	DefaultWebBase = "https://github.com"
)

// Endpoints builds the URLs of one registry repository.
type Endpoints struct {
	Owner   string
	Repo    string
	APIBase string
	RawBase string
	WebBase string
}

// ParseEndpoints derives endpoints from a repository URL of the form
// https://host/<owner>/<repo>[.git]. A non-default host serves all three
// bases itself, which is how test servers and mirrors are addressed.
func ParseEndpoints(registryURL string) (*Endpoints, error) {
	u, err := url.Parse(strings.TrimSpace(registryURL))
	if err != nil {
		return nil, fmt.Errorf("parsing registry URL %q: %w", registryURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("registry URL %q must be absolute", registryURL)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("registry URL %q must name <owner>/<repo>", registryURL)
	}

	e := &Endpoints{
		Owner: parts[0],
		Repo:  strings.TrimSuffix(parts[1], ".git"),
	}
	if u.Host == "github.com" || u.Host == "www.github.com" {
		e.APIBase, e.RawBase, e.WebBase = DefaultAPIBase, DefaultRawBase, DefaultWebBase
	} else {
		base := u.Scheme + "://" + u.Host
		e.APIBase, e.RawBase, e.WebBase = base, base, base
	}
	return e, nil
}

// RepoURL is the repository's web URL.
func (e *Endpoints) RepoURL() string {
	return fmt.Sprintf("%s/%s/%s", trim(e.WebBase), e.Owner, e.Repo)
}

// TreeURL lists the recursive file tree of branch.
func (e *Endpoints) TreeURL(branch string) string {
	return fmt.Sprintf("%s/repos/%s/%s/git/trees/%s?recursive=1",
		trim(e.APIBase), e.Owner, e.Repo, url.PathEscape(branch))
}

// RawURL returns the raw contents of path at branch.
func (e *Endpoints) RawURL(branch, path string) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s",
		trim(e.RawBase), e.Owner, e.Repo, url.PathEscape(branch), escapePath(path))
}

// ArchiveURL returns the zip archive of the whole repository at branch.
func (e *Endpoints) ArchiveURL(branch string) string {
	return fmt.Sprintf("%s/%s/%s/archive/refs/heads/%s.zip",
		trim(e.WebBase), e.Owner, e.Repo, url.PathEscape(branch))
}

// FolderURL is the web URL of a package folder; it is recorded as the
// installed package's sourceUrl.
func (e *Endpoints) FolderURL(branch, folder string) string {
	return fmt.Sprintf("%s/tree/%s/%s", e.RepoURL(), url.PathEscape(branch), escapePath(folder))
}

func trim(base string) string {
	return strings.TrimRight(base, "/")
}

func escapePath(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}
