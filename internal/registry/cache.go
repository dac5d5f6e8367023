package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/extpm-labs/extpm/internal/manifest"
	"go.uber.org/zap"
)

// CacheRecord is one remote manifest keyed by its path and content hash.
type CacheRecord struct {
	Path     string             `json:"path"`
	SHA      string             `json:"sha"`
	Manifest *manifest.Manifest `json:"manifest"`
}

// CacheData is the persisted registry cache.
type CacheData struct {
	Records   []CacheRecord `json:"records"`
	UpdatedAt time.Time     `json:"updatedAt"`
	Branch    string        `json:"branch,omitempty"`
}

// byPath indexes records by manifest path.
func (d *CacheData) byPath() map[string]CacheRecord {
	idx := make(map[string]CacheRecord, len(d.Records))
	for _, r := range d.Records {
		idx[r.Path] = r
	}
	return idx
}

// CacheStore owns the on-disk cache file.
type CacheStore struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewCacheStore creates a store backed by path.
func NewCacheStore(path string, logger *zap.Logger) *CacheStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheStore{path: path, logger: logger}
}

// Path returns the cache file path.
func (s *CacheStore) Path() string {
	return s.path
}

// Load reads the cache. A missing or unparsable file yields an empty cache;
// records without a usable manifest are dropped.
func (s *CacheStore) Load() *CacheData {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("reading registry cache", zap.String("path", s.path), zap.Error(err))
		}
		return &CacheData{}
	}

	var d CacheData
	if err := json.Unmarshal(data, &d); err != nil {
		s.logger.Warn("registry cache is corrupt, ignoring it",
			zap.String("path", s.path), zap.Error(err))
		return &CacheData{}
	}

	kept := d.Records[:0]
	for _, r := range d.Records {
		if r.Path == "" || r.Manifest == nil || r.Manifest.Name == "" {
			continue
		}
		kept = append(kept, r)
	}
	d.Records = kept
	return &d
}

// Save writes d atomically. Failures are logged, never returned.
func (s *CacheStore) Save(d *CacheData) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.write(d); err != nil {
		s.logger.Warn("saving registry cache", zap.String("path", s.path), zap.Error(err))
	}
}

func (s *CacheStore) write(d *CacheData) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".registry-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp cache: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp cache: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing cache: %w", err)
	}
	return nil
}
