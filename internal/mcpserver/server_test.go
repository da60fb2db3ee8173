package mcpserver

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/agentic-research/gears/internal/asset"
	"github.com/agentic-research/gears/internal/cache"
	"github.com/agentic-research/gears/internal/finder"
	"github.com/agentic-research/gears/internal/processors"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) (*Server, string) {
	t.Helper()
	root := t.TempDir()
	for rel, content := range map[string]string{
		"js/app.js": "//= require lib\nvar app = 1;\n",
		"js/lib.js": "var lib = 1;\n",
	} {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	f, err := finder.NewFileSystemFinder([]string{root})
	require.NoError(t, err)
	backend, err := cache.NewMemory(0)
	require.NoError(t, err)

	env := asset.New(asset.Options{Fingerprinting: true, Cache: backend})
	env.RegisterDefaults()
	env.Finders.Register(f)
	env.Preprocessors.Register(asset.MIMETypeJS, processors.Directives{})
	return New(env, "test"), root
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func decode[T any](t *testing.T, res *mcp.CallToolResult) T {
	t.Helper()
	require.NotNil(t, res)
	require.False(t, res.IsError, "%v", res.Content)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	var v T
	require.NoError(t, json.Unmarshal([]byte(text.Text), &v))
	return v
}

func TestResolveAsset(t *testing.T) {
	s, root := newServer(t)
	res, err := s.resolveAsset(t.Context(), call(map[string]any{"path": "js/app.js"}))
	require.NoError(t, err)
	got := decode[resolved](t, res)
	assert.Equal(t, "js/app.js", got.LogicalPath)
	assert.Equal(t, filepath.Join(root, "js", "app.js"), got.AbsolutePath)
	assert.Equal(t, asset.MIMETypeJS, got.MIMEType)

	res, err = s.resolveAsset(t.Context(), call(map[string]any{"path": "js/none.js"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = s.resolveAsset(t.Context(), call(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestBuildAsset(t *testing.T) {
	s, _ := newServer(t)
	res, err := s.buildAsset(t.Context(), call(map[string]any{"path": "js/app.js"}))
	require.NoError(t, err)
	got := decode[built](t, res)
	assert.Equal(t, "var lib = 1;\n\nvar app = 1;\n", got.Source)
	assert.True(t, got.Expired)
	assert.Regexp(t, `^js/app\.[0-9a-f]{40}\.js$`, got.HexdigestPath)

	res, err = s.buildAsset(t.Context(), call(map[string]any{"path": "js/app.js", "source": "processed"}))
	require.NoError(t, err)
	got = decode[built](t, res)
	assert.Equal(t, "var app = 1;\n", got.Source)
	assert.False(t, got.Expired)

	res, err = s.buildAsset(t.Context(), call(map[string]any{"path": "js/app.js", "source": "raw"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestAssetRequirementsAndInvalidate(t *testing.T) {
	s, root := newServer(t)
	res, err := s.assetRequirements(t.Context(), call(map[string]any{"path": "js/app.js"}))
	require.NoError(t, err)
	got := decode[requirements](t, res)
	assert.Equal(t, []string{"js/lib.js", "js/app.js"}, got.Requirements)
	assert.Empty(t, got.Dependencies)

	res, err = s.invalidatePath(t.Context(), call(map[string]any{"path": filepath.Join(root, "js", "lib.js")}))
	require.NoError(t, err)
	inv := decode[invalidated](t, res)
	assert.Equal(t, []string{filepath.Join(root, "js", "app.js"), filepath.Join(root, "js", "lib.js")}, inv.Affected)

	res, err = s.invalidatePath(t.Context(), call(map[string]any{"path": "js/lib.js"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestNew_RegistersTools(t *testing.T) {
	s, _ := newServer(t)
	tools := s.MCP().ListTools()
	for _, name := range []string{"resolve_asset", "build_asset", "asset_requirements", "invalidate_path"} {
		assert.Contains(t, tools, name)
	}
}
