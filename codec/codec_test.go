package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rowGroupBlock struct {
	Table    int                    `json:"table"`
	RowGroup int                    `json:"rowgroup"`
	Rows     map[int]map[int]string `json:"rows"`
}

func TestByName(t *testing.T) {
	for _, name := range []string{"json", "go-json"} {
		c, ok := ByName(name)
		require.True(t, ok)
		assert.Equal(t, name, c.Name())
	}
	_, ok := ByName("msgpack")
	assert.False(t, ok)
}

func TestCodecsAgree(t *testing.T) {
	block := rowGroupBlock{
		Table:    100,
		RowGroup: 3,
		Rows: map[int]map[int]string{
			1: {0: "alice", 1: "30"},
			2: {0: "bob", 1: "25"},
		},
	}

	for _, c := range []Codec{JSON{}, GoJSON{}} {
		t.Run(c.Name(), func(t *testing.T) {
			data, err := c.Marshal(block)
			require.NoError(t, err)

			var got rowGroupBlock
			require.NoError(t, c.Unmarshal(data, &got))
			assert.Equal(t, block, got)
		})
	}

	// Cross-decode: the fast codec reads stdlib output and vice versa.
	data := MustMarshal(JSON{}, block)
	var got rowGroupBlock
	require.NoError(t, GoJSON{}.Unmarshal(data, &got))
	assert.Equal(t, block, got)
}
