// Package registrytest provides an in-process hosting service that serves a
// registry repository's tree listing, raw files and branch archives, for
// tests of the registry client and installer.
package registrytest

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"

	"github.com/klauspost/compress/zip"
)

const (
	Owner = "acme"
	Repo  = "registry"
)

// Server is a fake hosting service for one repository.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	branches map[string]map[string][]byte // branch -> path -> content
	failRaw  map[string]bool
	requests map[string]int
	total    int
}

// New starts a server with no branches.
func New() *Server {
	s := &Server{
		branches: make(map[string]map[string][]byte),
		failRaw:  make(map[string]bool),
		requests: make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// RegistryURL is the repository URL to configure as registry_url.
func (s *Server) RegistryURL() string {
	return fmt.Sprintf("%s/%s/%s", s.URL, Owner, Repo)
}

// SetFile stores content at path on branch, creating the branch.
func (s *Server) SetFile(branch, path, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	files, ok := s.branches[branch]
	if !ok {
		files = make(map[string][]byte)
		s.branches[branch] = files
	}
	files[path] = []byte(content)
}

// RemoveFile deletes path from branch.
func (s *Server) RemoveFile(branch, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.branches[branch], path)
}

// FailRaw makes raw fetches of path return 500.
func (s *Server) FailRaw(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failRaw[path] = true
}

// Requests returns how many requests hit urlPath.
func (s *Server) Requests(urlPath string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[urlPath]
}

// TotalRequests returns the number of requests served.
func (s *Server) TotalRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// RawPath is the URL path of a raw file.
func RawPath(branch, path string) string {
	return fmt.Sprintf("/%s/%s/%s/%s", Owner, Repo, branch, path)
}

// TreePath is the URL path of a tree listing.
func TreePath(branch string) string {
	return fmt.Sprintf("/repos/%s/%s/git/trees/%s", Owner, Repo, branch)
}

// ArchivePath is the URL path of a branch archive.
func ArchivePath(branch string) string {
	return fmt.Sprintf("/%s/%s/archive/refs/heads/%s.zip", Owner, Repo, branch)
}

// BlobSHA returns the content hash reported for content.
func BlobSHA(content []byte) string {
	h := sha1.New()
	fmt.Fprintf(h, "blob %d\x00", len(content))
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests[r.URL.Path]++
	s.total++
	s.mu.Unlock()

	treePrefix := fmt.Sprintf("/repos/%s/%s/git/trees/", Owner, Repo)
	archivePrefix := fmt.Sprintf("/%s/%s/archive/refs/heads/", Owner, Repo)
	rawPrefix := fmt.Sprintf("/%s/%s/", Owner, Repo)

	switch {
	case strings.HasPrefix(r.URL.Path, treePrefix):
		s.serveTree(w, strings.TrimPrefix(r.URL.Path, treePrefix))
	case strings.HasPrefix(r.URL.Path, archivePrefix):
		s.serveArchive(w, strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, archivePrefix), ".zip"))
	case strings.HasPrefix(r.URL.Path, rawPrefix):
		rest := strings.TrimPrefix(r.URL.Path, rawPrefix)
		branch, path, ok := strings.Cut(rest, "/")
		if !ok {
			http.NotFound(w, r)
			return
		}
		s.serveRaw(w, branch, path)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) snapshot(branch string) (map[string][]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	files, ok := s.branches[branch]
	if !ok {
		return nil, false
	}
	out := make(map[string][]byte, len(files))
	for k, v := range files {
		out[k] = v
	}
	return out, true
}

func (s *Server) serveTree(w http.ResponseWriter, branch string) {
	files, ok := s.snapshot(branch)
	if !ok {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
		return
	}

	type entry struct {
		Path string `json:"path"`
		Type string `json:"type"`
		SHA  string `json:"sha"`
	}
	dirs := make(map[string]bool)
	var entries []entry
	for _, p := range sortedKeys(files) {
		parts := strings.Split(p, "/")
		for i := 1; i < len(parts); i++ {
			d := strings.Join(parts[:i], "/")
			if !dirs[d] {
				dirs[d] = true
				entries = append(entries, entry{Path: d, Type: "tree", SHA: BlobSHA([]byte(d))})
			}
		}
		entries = append(entries, entry{Path: p, Type: "blob", SHA: BlobSHA(files[p])})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"sha":       BlobSHA([]byte(branch)),
		"tree":      entries,
		"truncated": false,
	})
}

func (s *Server) serveRaw(w http.ResponseWriter, branch, path string) {
	s.mu.Lock()
	fail := s.failRaw[path]
	s.mu.Unlock()
	if fail {
		http.Error(w, "boom", http.StatusInternalServerError)
		return
	}

	files, ok := s.snapshot(branch)
	if !ok {
		http.NotFound(w, nil)
		return
	}
	content, ok := files[path]
	if !ok {
		http.Error(w, "404: Not Found", http.StatusNotFound)
		return
	}
	w.Write(content)
}

// serveArchive zips the branch under a "<repo>-<branch>/" root folder, the
// layout hosting services use for branch archives.
func (s *Server) serveArchive(w http.ResponseWriter, branch string) {
	files, ok := s.snapshot(branch)
	if !ok {
		http.NotFound(w, nil)
		return
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	prefix := fmt.Sprintf("%s-%s/", Repo, branch)
	zw.Create(prefix)
	for _, p := range sortedKeys(files) {
		f, err := zw.Create(prefix + p)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		f.Write(files[p])
	}
	if err := zw.Close(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Write(buf.Bytes())
}

func sortedKeys(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
