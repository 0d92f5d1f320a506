package relational

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tierkv/condition"
	"github.com/hupe1980/tierkv/relkey"
)

func TestCreateScanParameters(t *testing.T) {
	sp, err := CreateScanParameters(100, "0, 2", "col0 == 5")
	require.NoError(t, err)
	assert.Equal(t, 100, sp.TableID)
	assert.Equal(t, []ColumnParameter{{ColumnID: 0}, {ColumnID: 2}}, sp.Columns)
	require.NotNil(t, sp.Cond)

	sp, err = CreateScanParameters(100, "", "")
	require.NoError(t, err)
	assert.Empty(t, sp.Columns)
	assert.Nil(t, sp.Cond)

	_, err = CreateScanParameters(100, "0,x", "")
	assert.Error(t, err)

	_, err = CreateScanParameters(100, "0", "col0 == ")
	assert.ErrorIs(t, err, condition.ErrInvalidSyntax)
}

func TestPopulateScanParameterPrunes(t *testing.T) {
	s := NewStore()
	match := s.Partition(relkey.MetaKeyInfo{TableID: 1, Partition: "0:5"}, true)
	miss := s.Partition(relkey.MetaKeyInfo{TableID: 1, Partition: "0:9"}, true)
	match.InsertRow(map[int]string{0: "a"})
	miss.InsertRow(map[int]string{0: "b"})

	sp, err := CreateScanParameters(1, "", "col0 == 5")
	require.NoError(t, err)

	groups, err := PopulateScanParameter(match, sp)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.False(t, groups[0].Cold)
	assert.Equal(t, 1, groups[0].RowCount)

	groups, err = PopulateScanParameter(miss, sp)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func collectRows(t *testing.T, p *Partition, sp *ScanParameter, fetch BlockFetch) []Row {
	t.Helper()
	var out []Row
	for row, err := range p.Scan(context.Background(), sp, fetch) {
		require.NoError(t, err)
		out = append(out, row)
	}
	return out
}

func TestScanHotAndCold(t *testing.T) {
	p := NewStore().Partition(relkey.MetaKeyInfo{TableID: 1, Partition: "0:5"}, true)

	// Group 0: two rows, later flushed cold.
	p.InsertRow(map[int]string{0: "r0c0", 1: "r0c1"})
	p.InsertRow(map[int]string{0: "r1c0", 1: "r1c1"})
	sealed, rows := p.IncRowGroup()
	coldRows := rows.Rows
	require.NoError(t, p.MarkCold(sealed))

	// Group 1: one hot row.
	p.InsertRow(map[int]string{0: "r2c0", 1: "r2c1"})

	var fetched []string
	fetch := func(_ context.Context, info relkey.DataKeyInfo) (map[int]map[int]string, error) {
		fetched = append(fetched, info.Encode())
		return coldRows, nil
	}

	sp, err := CreateScanParameters(1, "0", "")
	require.NoError(t, err)

	got := collectRows(t, p, sp, fetch)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"D:{1:0:5}:0"}, fetched)

	// Rows arrive group by group, row order within a group ascending.
	assert.Equal(t, Row{Partition: "0:5", RowGroup: 0, Row: 0, Columns: map[int]string{0: "r0c0"}}, got[0])
	assert.Equal(t, Row{Partition: "0:5", RowGroup: 0, Row: 1, Columns: map[int]string{0: "r1c0"}}, got[1])
	assert.Equal(t, Row{Partition: "0:5", RowGroup: 1, Row: 0, Columns: map[int]string{0: "r2c0"}}, got[2])
}

func TestScanProjectionAndEarlyStop(t *testing.T) {
	p := NewStore().Partition(relkey.MetaKeyInfo{TableID: 1, Partition: "0:5"}, true)
	for i := 0; i < 5; i++ {
		p.InsertRow(map[int]string{0: fmt.Sprintf("a%d", i), 1: "b", 2: "c"})
	}

	sp, err := CreateScanParameters(1, "1,2", "")
	require.NoError(t, err)

	count := 0
	for row, err := range p.Scan(context.Background(), sp, nil) {
		require.NoError(t, err)
		assert.Equal(t, map[int]string{1: "b", 2: "c"}, row.Columns)
		count++
		if count == 2 {
			break // consumer stops early, scan must not keep yielding
		}
	}
	assert.Equal(t, 2, count)
}

func TestScanColdFetchError(t *testing.T) {
	p := NewStore().Partition(relkey.MetaKeyInfo{TableID: 1, Partition: "0:5"}, true)
	p.InsertRow(map[int]string{0: "a"})
	sealed, _ := p.IncRowGroup()
	require.NoError(t, p.MarkCold(sealed))

	wantErr := errors.New("backend down")
	fetch := func(context.Context, relkey.DataKeyInfo) (map[int]map[int]string, error) {
		return nil, wantErr
	}

	sp, err := CreateScanParameters(1, "", "")
	require.NoError(t, err)

	var seen error
	for _, err := range p.Scan(context.Background(), sp, fetch) {
		seen = err
	}
	assert.ErrorIs(t, seen, wantErr)
}
