package tierkv

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tierkv/coldstore"
	"github.com/hupe1980/tierkv/condition"
	"github.com/hupe1980/tierkv/core"
)

func collectRows(t *testing.T, kv *Engine, db core.DBID, tableID int, columns, expr string) []Row {
	t.Helper()
	var out []Row
	for r, err := range kv.Scan(context.Background(), db, tableID, columns, expr) {
		require.NoError(t, err)
		out = append(out, r)
	}
	return out
}

func TestRelational(t *testing.T) {
	ctx := context.Background()

	t.Run("InsertAndScanHot", func(t *testing.T) {
		kv, err := New(WithRowGroupSize(3))
		require.NoError(t, err)
		defer kv.Close()

		for i := range 7 {
			rg, row, err := kv.InsertRow(ctx, 0, 100, "0:5", map[int]string{
				0: "5",
				1: fmt.Sprintf("v%02d", i),
			})
			require.NoError(t, err)
			assert.Equal(t, i/3, rg)
			assert.Equal(t, i%3, row)
		}

		rows := collectRows(t, kv, 0, 100, "", "")
		require.Len(t, rows, 7)
		assert.Equal(t, "v00", rows[0].Columns[1])
		assert.Equal(t, "v06", rows[6].Columns[1])
		assert.Equal(t, 0, rows[0].RowGroup)
		assert.Equal(t, 2, rows[6].RowGroup)
	})

	t.Run("ColumnProjection", func(t *testing.T) {
		kv, err := New(WithRowGroupSize(4))
		require.NoError(t, err)
		defer kv.Close()

		_, _, err = kv.InsertRow(ctx, 0, 100, "0:5", map[int]string{0: "5", 1: "alice", 2: "us"})
		require.NoError(t, err)

		rows := collectRows(t, kv, 0, 100, "1", "")
		require.Len(t, rows, 1)
		assert.Equal(t, map[int]string{1: "alice"}, rows[0].Columns)
	})

	t.Run("PartitionPruning", func(t *testing.T) {
		kv, err := New(WithRowGroupSize(4))
		require.NoError(t, err)
		defer kv.Close()

		for i := range 3 {
			_, _, err := kv.InsertRow(ctx, 0, 100, "0:5", map[int]string{1: fmt.Sprintf("a%d", i)})
			require.NoError(t, err)
			_, _, err = kv.InsertRow(ctx, 0, 100, "0:9", map[int]string{1: fmt.Sprintf("b%d", i)})
			require.NoError(t, err)
		}

		rows := collectRows(t, kv, 0, 100, "", "col0 == 5")
		require.Len(t, rows, 3)
		for _, r := range rows {
			assert.Equal(t, "0:5", r.Partition)
		}

		assert.Len(t, collectRows(t, kv, 0, 100, "", "col0 == 5 || col0 == 9"), 6)
		assert.Empty(t, collectRows(t, kv, 0, 100, "", "col0 > 9"))
	})

	t.Run("TextPartitionParameters", func(t *testing.T) {
		kv, err := New(WithRowGroupSize(4))
		require.NoError(t, err)
		defer kv.Close()

		_, _, err = kv.InsertRow(ctx, 0, 200, "0:3:1:us-east", map[int]string{2: "x"})
		require.NoError(t, err)
		_, _, err = kv.InsertRow(ctx, 0, 200, "0:3:1:eu-west", map[int]string{2: "y"})
		require.NoError(t, err)

		rows := collectRows(t, kv, 0, 200, "", "col0 == 3 && col1 == 'us-east'")
		require.Len(t, rows, 1)
		assert.Equal(t, "x", rows[0].Columns[2])
	})

	t.Run("InvalidExpression", func(t *testing.T) {
		kv, err := New()
		require.NoError(t, err)
		defer kv.Close()

		var got error
		for _, err := range kv.Scan(ctx, 0, 100, "", "col0 == ") {
			got = err
			break
		}
		assert.ErrorIs(t, got, condition.ErrInvalidSyntax)
	})

	t.Run("ColdRowGroupsStayScannable", func(t *testing.T) {
		backend := coldstore.NewMemoryStore()
		kv, err := New(
			WithMaxMemory(1500),
			WithEvictionPolicy(core.AllkeysLRU),
			WithColdStore(backend),
			WithRowGroupSize(2),
		)
		require.NoError(t, err)
		defer kv.Close()

		const total = 40
		for i := range total {
			_, _, err := kv.InsertRow(ctx, 0, 100, "0:5", map[int]string{
				0: "5",
				1: fmt.Sprintf("v%02d", i),
			})
			require.NoError(t, err)
		}

		// Sealed blocks were tiered out under memory pressure.
		assert.Positive(t, backend.Len())

		rows := collectRows(t, kv, 0, 100, "", "col0 == 5")
		require.Len(t, rows, total)
		for i, r := range rows {
			assert.Equal(t, fmt.Sprintf("v%02d", i), r.Columns[1], "row %d", i)
		}

		// A second scan hits the block cache.
		hitsBefore, _ := kv.blockCache.Stats()
		rows = collectRows(t, kv, 0, 100, "", "col0 == 5")
		require.Len(t, rows, total)
		hitsAfter, _ := kv.blockCache.Stats()
		assert.Greater(t, hitsAfter, hitsBefore)
	})

	t.Run("ColdScanPrefetchWarmsCache", func(t *testing.T) {
		backend := coldstore.NewMemoryStore()
		kv, err := New(
			WithMaxMemory(1500),
			WithEvictionPolicy(core.AllkeysLRU),
			WithColdStore(backend),
			WithRowGroupSize(2),
		)
		require.NoError(t, err)
		defer kv.Close()

		const total = 40
		for i := range total {
			_, _, err := kv.InsertRow(ctx, 0, 100, "0:5", map[int]string{
				0: "5",
				1: fmt.Sprintf("v%02d", i),
			})
			require.NoError(t, err)
		}
		require.Positive(t, backend.Len())

		// Cold groups are prefetched in one parallel read before the scan
		// walks them, so even the first scan reads blocks out of the cache.
		hitsBefore, _ := kv.blockCache.Stats()
		rows := collectRows(t, kv, 0, 100, "", "col0 == 5")
		require.Len(t, rows, total)
		hitsAfter, _ := kv.blockCache.Stats()
		assert.Greater(t, hitsAfter, hitsBefore)
	})

	t.Run("MetaFields", func(t *testing.T) {
		kv, err := New()
		require.NoError(t, err)
		defer kv.Close()

		require.NoError(t, kv.MetaSet(ctx, 0, 100, "0:5", "owner", "analytics"))

		v, err := kv.MetaGet(ctx, 0, 100, "0:5", "owner")
		require.NoError(t, err)
		assert.Equal(t, "analytics", v)

		_, err = kv.MetaGet(ctx, 0, 100, "0:5", "missing")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = kv.MetaGet(ctx, 0, 100, "9:9", "owner")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
