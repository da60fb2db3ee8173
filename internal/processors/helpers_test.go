package processors

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/agentic-research/gears/internal/asset"
	"github.com/agentic-research/gears/internal/finder"
	"github.com/stretchr/testify/require"
)

// passthrough is a compiler that leaves the source alone.
type passthrough struct{ result string }

func (passthrough) Process(context.Context, *asset.Asset) error { return nil }
func (p passthrough) ResultMIMEType() string                  { return p.result }

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

func newEnv(t *testing.T, files map[string]string) (*asset.Environment, string) {
	t.Helper()
	root := writeTree(t, files)
	env := asset.New(asset.Options{})
	env.RegisterDefaults()
	f, err := finder.NewFileSystemFinder([]string{root})
	require.NoError(t, err)
	env.Finders.Register(f)
	env.Preprocessors.Register(asset.MIMETypeJS, Directives{})
	env.Preprocessors.Register(asset.MIMETypeCSS, Directives{})
	return env, root
}

func paths(assets []*asset.Asset) []string {
	out := make([]string, 0, len(assets))
	for _, a := range assets {
		out = append(out, a.Attributes.Path)
	}
	return out
}
