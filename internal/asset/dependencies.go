package asset

import (
	"crypto/sha1"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

// Dependency is a file or directory whose change invalidates the owning
// asset even though it contributes nothing to the output.
type Dependency struct {
	Path      string
	ModTime   time.Time
	Hexdigest string
}

// Dependencies is the set of tracked paths of one asset, in insertion order.
type Dependencies struct {
	env   *Environment
	items []Dependency
	seen  map[string]bool
}

func newDependencies(env *Environment) *Dependencies {
	return &Dependencies{env: env, seen: make(map[string]bool)}
}

// Add snapshots the absolute path p. Adding a path twice is a no-op.
func (d *Dependencies) Add(p string) error {
	if d.seen[p] {
		return nil
	}
	dep, err := d.env.snapshot(p)
	if err != nil {
		return err
	}
	d.seen[p] = true
	d.items = append(d.items, dep)
	return nil
}

func (d *Dependencies) restore(dep Dependency) {
	if d.seen[dep.Path] {
		return
	}
	d.seen[dep.Path] = true
	d.items = append(d.items, dep)
}

// All returns the tracked snapshots.
func (d *Dependencies) All() []Dependency { return append([]Dependency(nil), d.items...) }

// Paths returns the tracked absolute paths.
func (d *Dependencies) Paths() []string {
	out := make([]string, len(d.items))
	for i, dep := range d.items {
		out[i] = dep.Path
	}
	return out
}

// Len returns the number of tracked paths.
func (d *Dependencies) Len() int { return len(d.items) }

// snapshot records the current mtime and digest of p. A directory's digest
// covers its sorted listing, not the contents of its files.
func (e *Environment) snapshot(p string) (Dependency, error) {
	info, err := e.Stat(p)
	if err != nil {
		return Dependency{}, err
	}
	var digest string
	if info.IsDir() {
		infos, err := e.host.ReadDir(p)
		if err != nil {
			return Dependency{}, err
		}
		names := make([]string, 0, len(infos))
		for _, fi := range infos {
			names = append(names, fi.Name())
		}
		sort.Strings(names)
		digest = hexdigest([]byte(strings.Join(names, "\n")))
	} else {
		data, err := e.Read(p)
		if err != nil {
			return Dependency{}, err
		}
		digest = hexdigest(data)
	}
	return Dependency{Path: p, ModTime: info.ModTime(), Hexdigest: digest}, nil
}

func hexdigest(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}
