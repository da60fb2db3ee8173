package asset

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/agentic-research/gears/internal/cache"
	"github.com/agentic-research/gears/internal/finder"
	"github.com/stretchr/testify/require"
)

// compiler leaves the source alone and reports result as its output type.
type compiler struct{ result string }

func (compiler) Process(context.Context, *Asset) error { return nil }
func (c compiler) ResultMIMEType() string              { return c.result }

type upper struct{}

func (upper) Compress(_ context.Context, s string) (string, error) { return strings.ToUpper(s), nil }

// lines is a minimal directive preprocessor for this package's tests:
// "= require x", "= require_self" and "= depend x" lines are consumed and
// everything else is kept. It counts how often each path is processed.
type lines struct {
	mu    sync.Mutex
	calls map[string]int
}

func newLines() *lines { return &lines{calls: make(map[string]int)} }

func (l *lines) count(p string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[p]
}

func (l *lines) Process(ctx context.Context, a *Asset) error {
	l.mu.Lock()
	l.calls[a.Attributes.Path]++
	l.mu.Unlock()

	env := a.Environment()
	var body []string
	for _, line := range strings.Split(a.ProcessedSource, "\n") {
		verb, arg, _ := strings.Cut(strings.TrimPrefix(line, "= "), " ")
		switch {
		case !strings.HasPrefix(line, "= "):
			body = append(body, line)
		case verb == "require_self":
			a.Requirements.AddSelf()
		case verb == "require":
			attrs, abs, err := env.Find(env.NewAttributes(path.Join(a.Attributes.Dir, arg)), true)
			if err != nil {
				return err
			}
			req, err := a.Require(ctx, attrs, abs)
			if err != nil {
				return err
			}
			a.Requirements.Add(req)
		case verb == "depend":
			abs, _, err := env.FindPath(path.Join(a.Attributes.Dir, arg))
			if err != nil {
				return err
			}
			if err := a.Dependencies.Add(abs); err != nil {
				return err
			}
		}
	}
	a.ProcessedSource = strings.Join(body, "\n")
	return nil
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

// touch rewrites rel with content and pushes its mtime forward so the change
// is visible even on filesystems with coarse timestamps.
func touch(t *testing.T, root, rel, content string) {
	t.Helper()
	writeTree(t, root, map[string]string{rel: content})
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(root, filepath.FromSlash(rel)), future, future))
}

type fixture struct {
	env   *Environment
	root  string
	lines *lines
}

func newFixture(t *testing.T, backend cache.Backend, files map[string]string) *fixture {
	t.Helper()
	root := t.TempDir()
	writeTree(t, root, files)
	f, err := finder.NewFileSystemFinder([]string{root})
	require.NoError(t, err)

	env := New(Options{Cache: backend})
	env.RegisterDefaults()
	env.Finders.Register(f)
	l := newLines()
	env.Preprocessors.Register(MIMETypeJS, l)
	env.Preprocessors.Register(MIMETypeCSS, l)
	return &fixture{env: env, root: root, lines: l}
}

// rebuild returns a fresh environment over the same root and backend, as a
// second process run would see it.
func (f *fixture) rebuild(t *testing.T, backend cache.Backend) *fixture {
	t.Helper()
	fs, err := finder.NewFileSystemFinder([]string{f.root})
	require.NoError(t, err)
	env := New(Options{Cache: backend})
	env.RegisterDefaults()
	env.Finders.Register(fs)
	l := newLines()
	env.Preprocessors.Register(MIMETypeJS, l)
	env.Preprocessors.Register(MIMETypeCSS, l)
	return &fixture{env: env, root: f.root, lines: l}
}

func (f *fixture) abs(rel string) string {
	return filepath.Join(f.root, filepath.FromSlash(rel))
}

func relPaths(assets []*Asset) []string {
	out := make([]string, 0, len(assets))
	for _, a := range assets {
		out = append(out, a.Attributes.Path)
	}
	return out
}

func newMemory(t *testing.T) *cache.Memory {
	t.Helper()
	m, err := cache.NewMemory(0)
	require.NoError(t, err)
	return m
}
