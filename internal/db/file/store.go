// Package file implements db.Store on a single JSON document on local disk.
// Suitable for the offline trainer and single-replica deployments.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/kailas-cloud/cohortlens/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// DefaultFileName is the document name inside the configured directory.
const DefaultFileName = "store.json"

// Config holds the on-disk location.
type Config struct {
	Dir string
}

// Store keeps every key in memory and rewrites the whole document on each
// mutation via a temp file and rename, so a crash never leaves a partial file.
type Store struct {
	mu   sync.RWMutex
	path string
	data map[string][]byte
}

// NewStore opens (or creates) the store under cfg.Dir.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create dir %s: %w", cfg.Dir, err)
	}
	s := &Store{
		path: filepath.Join(cfg.Dir, DefaultFileName),
		data: make(map[string][]byte),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read store from file %s: %w", s.path, err)
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return fmt.Errorf("failed to unmarshal store from file %s: %w", s.path, err)
	}
	return nil
}

// flush writes next to disk and swaps it in. Caller holds the write lock.
func (s *Store) flush(op string, next map[string][]byte) error {
	raw, err := json.Marshal(next)
	if err != nil {
		return &db.Error{Op: op, Err: fmt.Errorf("marshal: %w", err)}
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".store-*.json")
	if err != nil {
		return &db.Error{Op: op, Err: err}
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // already renamed on success

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close() //nolint:errcheck,gosec // write error takes precedence
		return &db.Error{Op: op, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck,gosec // sync error takes precedence
		return &db.Error{Op: op, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &db.Error{Op: op, Err: err}
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return &db.Error{Op: op, Err: err}
	}
	s.data = next
	return nil
}

func (s *Store) cloneData() map[string][]byte {
	next := make(map[string][]byte, len(s.data)+1)
	for k, v := range s.data {
		next[k] = v
	}
	return next
}

// Ping checks that the backing directory is still reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	if _, err := os.Stat(filepath.Dir(s.path)); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close is a no-op: every mutation is already on disk.
func (s *Store) Close() {}

// WaitForReady returns once Ping succeeds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := s.Ping(ctx); err != nil {
		return fmt.Errorf("file store not ready: %w", err)
	}
	return nil
}

// Get retrieves a value by key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set stores a value at the given key.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.cloneData()
	next[key] = append([]byte(nil), value...)
	return s.flush(db.OpSet, next)
}

// SetMulti writes all items in one document rewrite.
func (s *Store) SetMulti(_ context.Context, items []db.KVItem) error {
	if len(items) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.cloneData()
	for _, it := range items {
		next[it.Key] = append([]byte(nil), it.Value...)
	}
	return s.flush(db.OpMSet, next)
}

// Del deletes a key. Deleting a missing key is not an error.
func (s *Store) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; !ok {
		return nil
	}
	next := s.cloneData()
	delete(next, key)
	return s.flush(db.OpDel, next)
}

// Exists checks if a key exists.
func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[key]
	return ok, nil
}

// Scan returns keys matching a glob pattern, sorted.
func (s *Store) Scan(_ context.Context, pattern string) ([]string, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, &db.Error{Op: db.OpScan, Err: err}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k := range s.data {
		if ok, _ := path.Match(pattern, k); ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
