package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Path   string            `json:"path"`
	Params map[string]string `json:"params,omitempty"`
	Tags   []string          `json:"tags,omitempty"`
}

func TestMarshal_Deterministic(t *testing.T) {
	r := record{Path: "js/app.js", Params: map[string]string{"z": "1", "a": "2", "m": "3"}}
	first, err := Marshal(r)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Marshal(r)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestUnmarshal_IgnoresUnknownFields(t *testing.T) {
	data, err := Marshal(map[string]any{"path": "css/a.css", "extra": 42})
	require.NoError(t, err)

	var r record
	require.NoError(t, Unmarshal(data, &r))
	assert.Equal(t, "css/a.css", r.Path)
}
