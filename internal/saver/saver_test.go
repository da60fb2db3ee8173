package saver

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/agentic-research/gears/internal/asset"
	"github.com/agentic-research/gears/internal/finder"
	"github.com/agentic-research/gears/internal/manifest"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildAsset(t *testing.T, fingerprinting bool, rel, content string) *asset.Asset {
	t.Helper()
	src := t.TempDir()
	p := filepath.Join(src, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))

	f, err := finder.NewFileSystemFinder([]string{src})
	require.NoError(t, err)
	env := asset.New(asset.Options{Fingerprinting: fingerprinting})
	env.RegisterDefaults()
	env.Finders.Register(f)

	a, err := env.BuildAsset(t.Context(), rel)
	require.NoError(t, err)
	return a
}

func TestSave_LogicalOnly(t *testing.T) {
	root := t.TempDir()
	s, err := New(Options{Root: root})
	require.NoError(t, err)
	defer s.Close()

	res, err := s.Save(t.Context(), buildAsset(t, false, "js/app.js", "app();\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"js/app.js"}, res.Files)
	assert.Empty(t, res.HexdigestPath)

	data, err := os.ReadFile(filepath.Join(root, "js", "app.js"))
	require.NoError(t, err)
	assert.Equal(t, "app();\n", string(data))
	require.NoError(t, s.Flush())
}

func TestSave_FingerprintedWithManifest(t *testing.T) {
	root := t.TempDir()
	m, err := manifest.Load(filepath.Join(root, ".manifest.json"))
	require.NoError(t, err)
	s, err := New(Options{Root: root, Manifest: m})
	require.NoError(t, err)

	a := buildAsset(t, true, "css/site.css", "body {}\n")
	want, err := a.HexdigestPath(t.Context())
	require.NoError(t, err)

	res, err := s.Save(t.Context(), a)
	require.NoError(t, err)
	assert.Equal(t, want, res.HexdigestPath)
	assert.Equal(t, []string{"css/site.css", want}, res.Files)
	assert.FileExists(t, filepath.Join(root, filepath.FromSlash(want)))

	require.NoError(t, s.Flush())
	again, err := manifest.Load(m.Path())
	require.NoError(t, err)
	got, ok := again.Get("css/site.css")
	assert.True(t, ok)
	assert.Equal(t, want, got)
}

func TestSave_Precompressed(t *testing.T) {
	root := t.TempDir()
	s, err := New(Options{Root: root, Precompress: []string{Gzip, Zstd}})
	require.NoError(t, err)
	defer s.Close()

	content := "function app() { return 1; }\n"
	res, err := s.Save(t.Context(), buildAsset(t, false, "js/app.js", content))
	require.NoError(t, err)
	assert.Equal(t, []string{"js/app.js", "js/app.js.gz", "js/app.js.zst"}, res.Files)

	gz, err := os.ReadFile(filepath.Join(root, "js", "app.js.gz"))
	require.NoError(t, err)
	r, err := gzip.NewReader(bytes.NewReader(gz))
	require.NoError(t, err)
	plain, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, content, string(plain))

	zs, err := os.ReadFile(filepath.Join(root, "js", "app.js.zst"))
	require.NoError(t, err)
	dec, err := zstd.NewReader(nil)
	require.NoError(t, err)
	defer dec.Close()
	plain, err = dec.DecodeAll(zs, nil)
	require.NoError(t, err)
	assert.Equal(t, content, string(plain))
}

func TestNew_UnknownEncoding(t *testing.T) {
	_, err := New(Options{Root: t.TempDir(), Precompress: []string{"brotli"}})
	assert.Error(t, err)
}
