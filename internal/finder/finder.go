// Package finder locates asset source files below configured directories.
package finder

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"

	"github.com/agentic-research/gears/internal/asseterr"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// Entry is one file produced by a listing.
type Entry struct {
	Path         string // slash-separated, relative to the finder root
	AbsolutePath string
}

// Finder resolves relative paths to files on disk.
type Finder interface {
	// Find returns the absolute path of rel and its file info. Directories
	// match too; callers that need a file check info.IsDir.
	Find(rel string) (string, os.FileInfo, error)
	// List returns the files below dir. With recursive set it descends into
	// subdirectories. A dir that exists nowhere is ErrFileNotFound.
	List(dir string, recursive bool) ([]Entry, error)
}

type location struct {
	dir string
	fs  billy.Filesystem
}

// FileSystemFinder searches an ordered list of directories; the first
// directory holding a path wins.
type FileSystemFinder struct {
	locations []location
}

// NewFileSystemFinder validates dirs eagerly: an empty list or a path that
// is missing or not a directory is a ConfigError.
func NewFileSystemFinder(dirs []string) (*FileSystemFinder, error) {
	if len(dirs) == 0 {
		return nil, asseterr.Improperly("file system finder needs at least one directory")
	}
	f := &FileSystemFinder{}
	seen := make(map[string]bool)
	for _, d := range dirs {
		abs, err := filepath.Abs(d)
		if err != nil {
			return nil, asseterr.Improperly("directory %q: %v", d, err)
		}
		if seen[abs] {
			continue
		}
		seen[abs] = true

		fs := osfs.New(abs)
		info, err := fs.Stat(".")
		if err != nil {
			return nil, asseterr.Improperly("directory %q: %v", d, err)
		}
		if !info.IsDir() {
			return nil, asseterr.Improperly("%q is not a directory", d)
		}
		f.locations = append(f.locations, location{dir: abs, fs: fs})
	}
	return f, nil
}

// Directories returns the absolute search directories in order.
func (f *FileSystemFinder) Directories() []string {
	out := make([]string, len(f.locations))
	for i, l := range f.locations {
		out[i] = l.dir
	}
	return out
}

// clean normalizes rel and rejects paths that climb out of the root.
func clean(rel string) (string, bool) {
	p := path.Clean(strings.TrimPrefix(filepath.ToSlash(rel), "/"))
	if p == ".." || strings.HasPrefix(p, "../") {
		return "", false
	}
	return p, true
}

func (f *FileSystemFinder) Find(rel string) (string, os.FileInfo, error) {
	p, ok := clean(rel)
	if !ok {
		return "", nil, asseterr.NotFound(rel)
	}
	for _, l := range f.locations {
		info, err := l.fs.Stat(p)
		if err == nil {
			return filepath.Join(l.dir, filepath.FromSlash(p)), info, nil
		}
		if !errors.Is(err, os.ErrNotExist) && !errors.Is(err, syscall.ENOTDIR) {
			return "", nil, fmt.Errorf("stat %s in %s: %w", p, l.dir, err)
		}
	}
	return "", nil, asseterr.NotFound(rel)
}

func (f *FileSystemFinder) List(dir string, recursive bool) ([]Entry, error) {
	p, ok := clean(dir)
	if !ok {
		return nil, asseterr.NotFound(dir)
	}
	found := false
	seen := make(map[string]bool)
	var out []Entry
	add := func(l location, rel string) {
		rel = filepath.ToSlash(rel)
		if seen[rel] {
			return
		}
		seen[rel] = true
		out = append(out, Entry{Path: rel, AbsolutePath: filepath.Join(l.dir, filepath.FromSlash(rel))})
	}

	for _, l := range f.locations {
		info, err := l.fs.Stat(p)
		if err != nil || !info.IsDir() {
			continue
		}
		found = true

		if !recursive {
			infos, err := l.fs.ReadDir(p)
			if err != nil {
				return nil, fmt.Errorf("read dir %s in %s: %w", p, l.dir, err)
			}
			for _, fi := range infos {
				if fi.IsDir() {
					continue
				}
				add(l, path.Join(p, fi.Name()))
			}
			continue
		}

		err = util.Walk(l.fs, p, func(name string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if fi.IsDir() {
				return nil
			}
			add(l, path.Clean(filepath.ToSlash(name)))
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s in %s: %w", p, l.dir, err)
		}
	}
	if !found {
		return nil, asseterr.NotFound(dir)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Finders is the ordered chain an environment consults. Registration order
// is lookup order.
type Finders struct {
	mu   sync.RWMutex
	list []Finder
}

// Register appends f unless it is already present.
func (c *Finders) Register(f Finder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, x := range c.list {
		if x == f {
			return
		}
	}
	c.list = append(c.list, f)
}

// Unregister removes f.
func (c *Finders) Unregister(f Finder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, x := range c.list {
		if x == f {
			c.list = append(c.list[:i], c.list[i+1:]...)
			return
		}
	}
}

// All returns the finders in lookup order.
func (c *Finders) All() []Finder {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Finder(nil), c.list...)
}

// Find asks each finder in order; the first hit wins.
func (c *Finders) Find(rel string) (string, os.FileInfo, error) {
	for _, f := range c.All() {
		abs, info, err := f.Find(rel)
		if err == nil {
			return abs, info, nil
		}
		if !errors.Is(err, asseterr.ErrFileNotFound) {
			return "", nil, err
		}
	}
	return "", nil, asseterr.NotFound(rel)
}

// List merges the listings of every finder; for a relative path present in
// several finders the first one wins.
func (c *Finders) List(dir string, recursive bool) ([]Entry, error) {
	found := false
	seen := make(map[string]bool)
	var out []Entry
	for _, f := range c.All() {
		entries, err := f.List(dir, recursive)
		if errors.Is(err, asseterr.ErrFileNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		found = true
		for _, e := range entries {
			if !seen[e.Path] {
				seen[e.Path] = true
				out = append(out, e)
			}
		}
	}
	if !found {
		return nil, asseterr.NotFound(dir)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}
