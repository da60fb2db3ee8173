package cache

import (
	"sync"

	"github.com/RoaringBitmap/roaring"
)

// dependents maps paths to the set of assets that must be rebuilt when the
// path changes. Asset paths are interned to uint32 IDs so each edge set is a
// roaring bitmap.
type dependents struct {
	mu    sync.Mutex
	ids   map[string]uint32
	paths []string

	// direct holds, per path, the assets whose processed source depends on
	// it: the asset itself plus its tracked dependencies.
	direct map[string]*roaring.Bitmap
	// requiredBy holds, per asset path, the assets that require it.
	requiredBy map[string]*roaring.Bitmap
	// edges remembers what each asset contributed so a re-record replaces it.
	edges map[uint32][]edge
}

type edge struct {
	path     string
	required bool
}

func newDependents() *dependents {
	return &dependents{
		ids:        make(map[string]uint32),
		direct:     make(map[string]*roaring.Bitmap),
		requiredBy: make(map[string]*roaring.Bitmap),
		edges:      make(map[uint32][]edge),
	}
}

func (d *dependents) intern(path string) uint32 {
	if id, ok := d.ids[path]; ok {
		return id
	}
	id := uint32(len(d.paths))
	d.ids[path] = id
	d.paths = append(d.paths, path)
	return id
}

func add(m map[string]*roaring.Bitmap, key string, id uint32) {
	bm, ok := m[key]
	if !ok {
		bm = roaring.New()
		m[key] = bm
	}
	bm.Add(id)
}

func (d *dependents) record(rec *AssetRecord) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.intern(rec.AbsolutePath)
	for _, e := range d.edges[id] {
		m := d.direct
		if e.required {
			m = d.requiredBy
		}
		if bm, ok := m[e.path]; ok {
			bm.Remove(id)
			if bm.IsEmpty() {
				delete(m, e.path)
			}
		}
	}

	edges := []edge{{path: rec.AbsolutePath}}
	for _, dep := range rec.Dependencies {
		edges = append(edges, edge{path: dep.Path})
	}
	for _, r := range rec.Before {
		edges = append(edges, edge{path: r.AbsolutePath, required: true})
	}
	for _, r := range rec.After {
		edges = append(edges, edge{path: r.AbsolutePath, required: true})
	}
	for _, e := range edges {
		if e.required {
			add(d.requiredBy, e.path, id)
		} else {
			add(d.direct, e.path, id)
		}
	}
	d.edges[id] = edges
}

// affected returns the assets whose data record is stale after path changes,
// and the assets whose bundles are stale (a superset).
func (d *dependents) affected(path string) (data, bundles []string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	direct := roaring.New()
	if bm, ok := d.direct[path]; ok {
		direct.Or(bm)
	}
	closure := direct.Clone()
	if bm, ok := d.requiredBy[path]; ok {
		closure.Or(bm)
	}
	frontier := closure.ToArray()
	for len(frontier) > 0 {
		next := frontier[:0:0]
		for _, id := range frontier {
			bm, ok := d.requiredBy[d.paths[id]]
			if !ok {
				continue
			}
			it := bm.Iterator()
			for it.HasNext() {
				parent := it.Next()
				if !closure.Contains(parent) {
					closure.Add(parent)
					next = append(next, parent)
				}
			}
		}
		frontier = next
	}

	for _, id := range direct.ToArray() {
		data = append(data, d.paths[id])
	}
	for _, id := range closure.ToArray() {
		bundles = append(bundles, d.paths[id])
	}
	return data, bundles
}
