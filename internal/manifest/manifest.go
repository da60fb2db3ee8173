// Package manifest maps logical asset paths to their fingerprinted output
// paths. The file is JSON unless its name ends in .yml or .yaml.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ohler55/ojg/jp"
	"gopkg.in/yaml.v3"
)

type document struct {
	Files map[string]string `json:"files" yaml:"files"`
}

// Manifest is safe for concurrent use.
type Manifest struct {
	path string

	mu    sync.RWMutex
	files map[string]string
}

// Load reads the manifest at path. A missing file yields an empty manifest.
func Load(path string) (*Manifest, error) {
	m := &Manifest{path: path, files: make(map[string]string)}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var doc document
	if m.isYAML() {
		err = yaml.Unmarshal(data, &doc)
	} else {
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", path, err)
	}
	if doc.Files != nil {
		m.files = doc.Files
	}
	return m, nil
}

func (m *Manifest) isYAML() bool {
	ext := strings.ToLower(filepath.Ext(m.path))
	return ext == ".yml" || ext == ".yaml"
}

// Path returns the file the manifest is loaded from and dumped to.
func (m *Manifest) Path() string { return m.path }

// Set records the fingerprinted path of a logical path.
func (m *Manifest) Set(logical, fingerprinted string) {
	m.mu.Lock()
	m.files[logical] = fingerprinted
	m.mu.Unlock()
}

// Get returns the fingerprinted path of a logical path.
func (m *Manifest) Get(logical string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.files[logical]
	return v, ok
}

// Files returns a copy of the mapping.
func (m *Manifest) Files() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.files)
}

// Logical returns the recorded logical paths, sorted.
func (m *Manifest) Logical() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.files))
	for k := range m.files {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Encode renders the manifest in its file format.
func (m *Manifest) Encode() ([]byte, error) {
	doc := document{Files: m.Files()}
	if m.isYAML() {
		return yaml.Marshal(&doc)
	}
	data, err := json.MarshalIndent(&doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Dump writes the manifest, creating its directory if needed.
func (m *Manifest) Dump() error {
	data, err := m.Encode()
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("create manifest dir: %w", err)
	}
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// Query evaluates a JSONPath expression against {"files": {...}}, e.g.
// $.files['js/app.js'] or $.files.*.
func (m *Manifest) Query(expr string) ([]any, error) {
	x, err := jp.ParseString(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath '%s': %w", expr, err)
	}
	files := make(map[string]any)
	for k, v := range m.Files() {
		files[k] = v
	}
	return x.Get(map[string]any{"files": files}), nil
}
