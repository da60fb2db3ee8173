package cache

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	mem, err := NewMemory(16)
	require.NoError(t, err)
	db, err := NewSQLite(filepath.Join(t.TempDir(), "cache", "gears.db"))
	require.NoError(t, err)
	files, err := NewFile(filepath.Join(t.TempDir(), "files"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return map[string]Backend{"memory": mem, "sqlite": db, "file": files}
}

func TestBackends_RoundTrip(t *testing.T) {
	large := bytes.Repeat([]byte("console.log('x');\n"), 512)
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := b.Get("asset:/a.js:data")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, b.Set("asset:/a.js:data", []byte("small")))
			require.NoError(t, b.Set("asset:/b.js:data", large))
			require.NoError(t, b.Set("asset:/c.js:data", nil))

			v, ok, err := b.Get("asset:/a.js:data")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, []byte("small"), v)

			v, ok, err = b.Get("asset:/b.js:data")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, large, v)

			_, ok, err = b.Get("asset:/c.js:data")
			require.NoError(t, err)
			assert.True(t, ok)

			require.NoError(t, b.Set("asset:/a.js:data", []byte("replaced")))
			v, _, err = b.Get("asset:/a.js:data")
			require.NoError(t, err)
			assert.Equal(t, []byte("replaced"), v)

			require.NoError(t, b.Delete("asset:/a.js:data"))
			require.NoError(t, b.Delete("asset:/never:data"))
			_, ok, err = b.Get("asset:/a.js:data")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestBackends_ConcurrentWriters(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					assert.NoError(t, b.Set("shared", []byte(fmt.Sprintf("writer-%d", i))))
					_, _, err := b.Get("shared")
					assert.NoError(t, err)
				}(i)
			}
			wg.Wait()

			v, ok, err := b.Get("shared")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Contains(t, string(v), "writer-")
		})
	}
}

func TestMemory_EvictsLeastRecentlyUsed(t *testing.T) {
	m, err := NewMemory(2)
	require.NoError(t, err)
	require.NoError(t, m.Set("a", []byte("1")))
	require.NoError(t, m.Set("b", []byte("2")))
	_, _, _ = m.Get("a")
	require.NoError(t, m.Set("c", []byte("3")))

	_, ok, _ := m.Get("b")
	assert.False(t, ok)
	_, ok, _ = m.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, m.Len())
}

func TestPack_CompressesAndRestores(t *testing.T) {
	data := bytes.Repeat([]byte("abcd"), 1000)
	frame, err := pack(data)
	require.NoError(t, err)
	assert.Equal(t, tagLZ4, frame[0])
	assert.Less(t, len(frame), len(data))

	out, err := unpack(frame)
	require.NoError(t, err)
	assert.Equal(t, data, out)

	_, err = unpack([]byte{9, 1, 0})
	assert.Error(t, err)
	_, err = unpack(nil)
	assert.Error(t, err)
}

func TestNop_AlwaysMisses(t *testing.T) {
	var b Backend = Nop{}
	require.NoError(t, b.Set("k", []byte("v")))
	_, ok, err := b.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)
}
