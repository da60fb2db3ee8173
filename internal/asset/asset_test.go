package asset

import (
	"os"
	"testing"

	"github.com/agentic-research/gears/internal/asseterr"
	"github.com/agentic-research/gears/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAsset_BeforeAndAfter(t *testing.T) {
	f := newFixture(t, nil, map[string]string{
		"js/app.js":   "= require a.js\n= require_self\n= require b.js\napp();\n",
		"js/a.js":     "a();\n",
		"js/b.js":     "b();\n\n\n",
		"js/alone.js": "alone();\n",
	})

	a, err := f.env.BuildAsset(t.Context(), "js/app.js")
	require.NoError(t, err)
	assert.Equal(t, []string{"js/a.js"}, relPaths(a.Requirements.Before()))
	assert.Equal(t, []string{"js/b.js"}, relPaths(a.Requirements.After()))
	assert.Equal(t, []string{"js/a.js", "js/app.js", "js/b.js"}, relPaths(a.Requirements.All()))

	bundle, err := a.BundledSource(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "a();\n\napp();\n\nb();\n", bundle)

	alone, err := f.env.BuildAsset(t.Context(), "js/alone.js")
	require.NoError(t, err)
	assert.Equal(t, []string{"js/alone.js"}, relPaths(alone.Requirements.All()))
}

func TestBuildAsset_SelfLastWithoutRequireSelf(t *testing.T) {
	f := newFixture(t, nil, map[string]string{
		"js/app.js": "= require a.js\n= require b.js\napp();",
		"js/a.js":   "a();",
		"js/b.js":   "b();",
	})
	a, err := f.env.BuildAsset(t.Context(), "js/app.js")
	require.NoError(t, err)
	assert.Equal(t, []string{"js/a.js", "js/b.js", "js/app.js"}, relPaths(a.Requirements.All()))
	assert.Empty(t, a.Requirements.After())
}

func TestBuildAsset_DiamondIsBuiltOnce(t *testing.T) {
	f := newFixture(t, nil, map[string]string{
		"js/app.js":    "= require left.js\n= require right.js\napp();",
		"js/left.js":   "= require shared.js\nleft();",
		"js/right.js":  "= require shared.js\nright();",
		"js/shared.js": "shared();",
	})
	a, err := f.env.BuildAsset(t.Context(), "js/app.js")
	require.NoError(t, err)
	assert.Equal(t,
		[]string{"js/shared.js", "js/left.js", "js/right.js", "js/app.js"},
		relPaths(a.Requirements.All()))
	assert.Equal(t, 1, f.lines.count("js/shared.js"))

	bundle, err := a.BundledSource(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "shared();\n\nleft();\n\nright();\n\napp();\n", bundle)
}

func TestBuildAsset_CircularDependency(t *testing.T) {
	f := newFixture(t, nil, map[string]string{
		"js/a.js": "= require b.js\na();",
		"js/b.js": "= require c.js\nb();",
		"js/c.js": "= require a.js\nc();",
	})
	_, err := f.env.BuildAsset(t.Context(), "js/a.js")
	require.ErrorIs(t, err, asseterr.ErrCircularDependency)

	var ce *asseterr.CircularDependencyError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, f.abs("js/a.js"), ce.Path)
	assert.Equal(t, []string{f.abs("js/a.js"), f.abs("js/b.js"), f.abs("js/c.js")}, ce.Chain)
}

func TestBuildAsset_RequiringItselfIsACycle(t *testing.T) {
	f := newFixture(t, nil, map[string]string{
		"js/app.js": "= require a.js\n= require app.js\n= require b.js\napp();",
		"js/a.js":   "a();",
		"js/b.js":   "b();",
	})
	a, err := f.env.BuildAsset(t.Context(), "js/app.js")
	assert.ErrorIs(t, err, asseterr.ErrCircularDependency)
	assert.Nil(t, a)
}

func TestBuildAsset_WarmCacheIsIdempotent(t *testing.T) {
	backend := newMemory(t)
	f := newFixture(t, backend, map[string]string{
		"js/app.js":  "= require lib.js\n= require_self\n= require tail.js\napp();",
		"js/lib.js":  "lib();",
		"js/tail.js": "tail();",
	})
	cold, err := f.env.BuildAsset(t.Context(), "js/app.js")
	require.NoError(t, err)
	assert.True(t, cold.Expired())
	coldBundle, err := cold.BundledSource(t.Context())
	require.NoError(t, err)

	warm := f.rebuild(t, backend)
	a, err := warm.env.BuildAsset(t.Context(), "js/app.js")
	require.NoError(t, err)
	assert.False(t, a.Expired())
	assert.False(t, a.BundleExpired())
	assert.Zero(t, warm.lines.count("js/app.js"))
	assert.Zero(t, warm.lines.count("js/lib.js"))

	assert.Equal(t, relPaths(cold.Requirements.All()), relPaths(a.Requirements.All()))
	assert.Equal(t, relPaths(cold.Requirements.After()), relPaths(a.Requirements.After()))
	bundle, err := a.BundledSource(t.Context())
	require.NoError(t, err)
	assert.Equal(t, coldBundle, bundle)
}

func TestBuildAsset_LeafChangeRebuildsBundle(t *testing.T) {
	backend := newMemory(t)
	f := newFixture(t, backend, map[string]string{
		"js/app.js":  "= require mid.js\napp();",
		"js/mid.js":  "= require leaf.js\nmid();",
		"js/leaf.js": "leaf();",
	})
	first, err := f.env.BuildAsset(t.Context(), "js/app.js")
	require.NoError(t, err)
	before, err := first.BundledSource(t.Context())
	require.NoError(t, err)

	touch(t, f.root, "js/leaf.js", "leaf2();")

	second := f.rebuild(t, backend)
	a, err := second.env.BuildAsset(t.Context(), "js/app.js")
	require.NoError(t, err)
	assert.False(t, a.Expired())
	assert.True(t, a.BundleExpired())
	assert.Equal(t, 1, second.lines.count("js/leaf.js"))
	assert.Zero(t, second.lines.count("js/mid.js"))

	after, err := a.BundledSource(t.Context())
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
	assert.Equal(t, "leaf2();\n\nmid();\n\napp();\n", after)
}

func TestBuildAsset_RemovedRequirementReresolves(t *testing.T) {
	backend := newMemory(t)
	f := newFixture(t, backend, map[string]string{
		"js/app.js": "= require lib\napp();",
		"js/lib.js": "lib();",
	})
	f.env.Compilers.Register(".coffee", compiler{MIMETypeJS})
	first, err := f.env.BuildAsset(t.Context(), "js/app.js")
	require.NoError(t, err)
	assert.Equal(t, []string{"js/lib.js", "js/app.js"}, relPaths(first.Requirements.All()))

	require.NoError(t, os.Remove(f.abs("js/lib.js")))
	writeTree(t, f.root, map[string]string{"js/lib.coffee": "lib2();"})

	second := f.rebuild(t, backend)
	second.env.Compilers.Register(".coffee", compiler{MIMETypeJS})
	a, err := second.env.BuildAsset(t.Context(), "js/app.js")
	require.NoError(t, err)
	assert.True(t, a.Expired())
	assert.Equal(t, 1, second.lines.count("js/app.js"))
	assert.Equal(t, []string{"js/lib.coffee", "js/app.js"}, relPaths(a.Requirements.All()))

	bundle, err := a.BundledSource(t.Context())
	require.NoError(t, err)

	cold := f.rebuild(t, newMemory(t))
	cold.env.Compilers.Register(".coffee", compiler{MIMETypeJS})
	c, err := cold.env.BuildAsset(t.Context(), "js/app.js")
	require.NoError(t, err)
	coldBundle, err := c.BundledSource(t.Context())
	require.NoError(t, err)
	assert.Equal(t, coldBundle, bundle)
	assert.Equal(t, "lib2();\n\napp();\n", bundle)
}

func TestBuildAsset_DependencyChangeExpiresOwner(t *testing.T) {
	backend := newMemory(t)
	f := newFixture(t, backend, map[string]string{
		"css/site.css":    "= depend vars.conf\nbody {}",
		"css/vars.conf":   "red",
		"css/unused.conf": "",
	})
	a, err := f.env.BuildAsset(t.Context(), "css/site.css")
	require.NoError(t, err)
	assert.Equal(t, []string{f.abs("css/vars.conf")}, a.Dependencies.Paths())

	again := f.rebuild(t, backend)
	a, err = again.env.BuildAsset(t.Context(), "css/site.css")
	require.NoError(t, err)
	assert.False(t, a.Expired())
	assert.Equal(t, []string{f.abs("css/vars.conf")}, a.Dependencies.Paths())

	touch(t, f.root, "css/vars.conf", "blue")
	changed := f.rebuild(t, backend)
	a, err = changed.env.BuildAsset(t.Context(), "css/site.css")
	require.NoError(t, err)
	assert.True(t, a.Expired())
	assert.Equal(t, 1, changed.lines.count("css/site.css"))
}

func TestBuildAsset_NamespaceChangeRebuilds(t *testing.T) {
	backend := newMemory(t)
	f := newFixture(t, backend, map[string]string{"js/app.js": "app();"})
	_, err := f.env.BuildAsset(t.Context(), "js/app.js")
	require.NoError(t, err)

	other := f.rebuild(t, backend)
	other.env.Compilers.Register(".coffee", compiler{MIMETypeJS})
	a, err := other.env.BuildAsset(t.Context(), "js/app.js")
	require.NoError(t, err)
	assert.True(t, a.Expired())
}

func TestBuildAsset_CorruptRecordIsAMiss(t *testing.T) {
	backend := newMemory(t)
	f := newFixture(t, backend, map[string]string{"js/app.js": "app();"})
	_, err := f.env.BuildAsset(t.Context(), "js/app.js")
	require.NoError(t, err)

	key := f.env.Cache.Key(f.abs("js/app.js"), cache.StageData)
	require.NoError(t, backend.Set(key, []byte("not a record")))

	again := f.rebuild(t, backend)
	a, err := again.env.BuildAsset(t.Context(), "js/app.js")
	require.NoError(t, err)
	assert.True(t, a.Expired())
	assert.Equal(t, "app();", a.ProcessedSource)
}

func TestBuildAsset_Static(t *testing.T) {
	f := newFixture(t, newMemory(t), map[string]string{"img/logo.png": "\x89PNG\xff\x00"})
	a, err := f.env.BuildAsset(t.Context(), "img/logo.png")
	require.NoError(t, err)
	assert.True(t, a.Static)
	assert.Equal(t, "\x89PNG\xff\x00", a.Source)
	assert.Equal(t, a.Source, a.ProcessedSource)

	bundle, err := a.BundledSource(t.Context())
	require.NoError(t, err)
	assert.Equal(t, a.Source, bundle)

	compressed, err := a.CompressedSource(t.Context())
	require.NoError(t, err)
	assert.Equal(t, a.Source, compressed)
}

func TestCompressedSource(t *testing.T) {
	backend := newMemory(t)
	f := newFixture(t, backend, map[string]string{
		"js/app.js": "= require a.js\napp();",
		"js/a.js":   "a();",
	})
	f.env.Compressors.Register(MIMETypeJS, upper{})

	a, err := f.env.BuildAsset(t.Context(), "js/app.js")
	require.NoError(t, err)
	out, err := a.CompressedSource(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "A();\n\nAPP();\n", out)

	digest, err := a.FinalHexdigest(t.Context())
	require.NoError(t, err)
	assert.Equal(t, hexdigest([]byte(out)), digest)

	p, err := a.HexdigestPath(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "js/app."+digest+".js", p)

	stored, err := f.env.Cache.LoadSource(f.abs("js/app.js"), cache.StageCompressed)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, out, stored.Source)
}

func TestEnvironment_Invalidate(t *testing.T) {
	backend := newMemory(t)
	f := newFixture(t, backend, map[string]string{
		"js/app.js":   "= require leaf.js\napp();",
		"js/leaf.js":  "leaf();",
		"js/other.js": "other();",
	})
	for _, p := range []string{"js/app.js", "js/other.js"} {
		_, err := f.env.BuildAsset(t.Context(), p)
		require.NoError(t, err)
	}

	affected, err := f.env.Invalidate(f.abs("js/leaf.js"))
	require.NoError(t, err)
	assert.Contains(t, affected, f.abs("js/app.js"))
	assert.Contains(t, affected, f.abs("js/leaf.js"))
	assert.NotContains(t, affected, f.abs("js/other.js"))

	rec, err := f.env.Cache.LoadAsset(f.abs("js/leaf.js"))
	require.NoError(t, err)
	assert.Nil(t, rec)
}
