package cache

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/agentic-research/gears/internal/codec"
)

// Stage names one of the three records kept per asset.
type Stage string

const (
	StageData       Stage = "data"
	StageBundled    Stage = "bundled_source"
	StageCompressed Stage = "compressed_source"
)

// ErrCorrupt wraps a record that exists but cannot be decoded. Callers treat
// it as a miss.
var ErrCorrupt = errors.New("corrupt cache record")

// Requirement is a persisted edge of the requirement graph. Path is the
// root-relative path the required asset was found under, which is enough to
// recompute its attributes without resolving again.
type Requirement struct {
	AbsolutePath string `json:"absolute_path"`
	Path         string `json:"path"`
}

// Dependency is a snapshot of a tracked file or directory at build time.
type Dependency struct {
	Path      string `json:"path"`
	ModTime   int64  `json:"mtime"`
	Hexdigest string `json:"hexdigest"`
}

// AssetRecord is the data record of one processed asset.
type AssetRecord struct {
	AbsolutePath    string            `json:"absolute_path"`
	ModTime         int64             `json:"mtime"`
	Hexdigest       string            `json:"hexdigest"`
	ProcessedSource string            `json:"processed_source"`
	Before          []Requirement     `json:"before,omitempty"`
	After           []Requirement     `json:"after,omitempty"`
	Dependencies    []Dependency      `json:"dependencies,omitempty"`
	Params          map[string]string `json:"params,omitempty"`
}

// SourceRecord holds a bundled or compressed source. Digest identifies the
// input it was produced from; a mismatch makes the record stale.
type SourceRecord struct {
	Source string `json:"source"`
	Digest string `json:"digest"`
}

// Store reads and writes typed records through a Backend and keeps an index
// of which assets depend on which paths.
type Store struct {
	backend Backend

	mu        sync.RWMutex
	namespace string
	index     *dependents
}

// NewStore wraps backend. A nil backend behaves as Nop.
func NewStore(backend Backend) *Store {
	if backend == nil {
		backend = Nop{}
	}
	return &Store{backend: backend, index: newDependents()}
}

// SetNamespace prefixes every key with ns. An environment sets it to a
// digest of its registries so a configuration change never serves records
// built under another configuration.
func (s *Store) SetNamespace(ns string) {
	s.mu.Lock()
	s.namespace = ns
	s.mu.Unlock()
}

// Namespace returns the current key prefix.
func (s *Store) Namespace() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.namespace
}

// Key returns the backend key for the record of path at stage.
func (s *Store) Key(path string, stage Stage) string {
	key := fmt.Sprintf("asset:%s:%s", path, stage)
	if ns := s.Namespace(); ns != "" {
		return ns + ":" + key
	}
	return key
}

func (s *Store) load(key string, v any) (bool, error) {
	raw, ok, err := s.backend.Get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := codec.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("%w %s: %v", ErrCorrupt, key, err)
	}
	return true, nil
}

func (s *Store) save(key string, v any) error {
	raw, err := codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.backend.Set(key, raw)
}

// LoadAsset returns the data record for path, nil on a miss.
func (s *Store) LoadAsset(path string) (*AssetRecord, error) {
	var rec AssetRecord
	ok, err := s.load(s.Key(path, StageData), &rec)
	if err != nil || !ok {
		return nil, err
	}
	s.index.record(&rec)
	return &rec, nil
}

// SaveAsset writes the data record and indexes its edges.
func (s *Store) SaveAsset(rec *AssetRecord) error {
	if err := s.save(s.Key(rec.AbsolutePath, StageData), rec); err != nil {
		return err
	}
	s.index.record(rec)
	return nil
}

// LoadSource returns the bundled or compressed record for path, nil on a miss.
func (s *Store) LoadSource(path string, stage Stage) (*SourceRecord, error) {
	var rec SourceRecord
	ok, err := s.load(s.Key(path, stage), &rec)
	if err != nil || !ok {
		return nil, err
	}
	return &rec, nil
}

// SaveSource writes the bundled or compressed record for path.
func (s *Store) SaveSource(path string, stage Stage, rec *SourceRecord) error {
	return s.save(s.Key(path, stage), rec)
}

// Invalidate evicts every record made stale by a change to path: the data
// record of each asset that is path or depends on it, and the bundled and
// compressed records of every asset whose bundle transitively includes one
// of those. It returns the affected asset paths, sorted. Only assets loaded
// or saved through this Store are known to the index.
func (s *Store) Invalidate(path string) ([]string, error) {
	data, bundles := s.index.affected(path)

	var errs []error
	for _, p := range data {
		if err := s.backend.Delete(s.Key(p, StageData)); err != nil {
			errs = append(errs, err)
		}
	}
	for _, p := range bundles {
		for _, stage := range []Stage{StageBundled, StageCompressed} {
			if err := s.backend.Delete(s.Key(p, stage)); err != nil {
				errs = append(errs, err)
			}
		}
	}
	sort.Strings(bundles)
	return bundles, errors.Join(errs...)
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}
