package relational

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"strconv"
	"strings"

	"github.com/hupe1980/tierkv/condition"
	"github.com/hupe1980/tierkv/relkey"
)

// ColumnParameter selects one column of a scan.
type ColumnParameter struct {
	ColumnID int
}

// ScanParameter describes one scan request over a table.
type ScanParameter struct {
	TableID int
	Columns []ColumnParameter
	Cond    *condition.Condition
}

// CreateScanParameters builds a ScanParameter from a comma separated column
// list and a filter expression. An empty column list selects all columns; an
// empty expression matches every partition.
func CreateScanParameters(tableID int, columnList, expr string) (*ScanParameter, error) {
	sp := &ScanParameter{TableID: tableID}

	if strings.TrimSpace(columnList) != "" {
		for _, part := range strings.Split(columnList, ",") {
			id, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return nil, fmt.Errorf("relational: bad column list %q: %w", columnList, err)
			}
			sp.Columns = append(sp.Columns, ColumnParameter{ColumnID: id})
		}
	}

	cond, err := condition.Parse(expr)
	if err != nil {
		return nil, err
	}
	sp.Cond = cond
	return sp, nil
}

// RowGroupParameter resolves how one row group will be read: through its hot
// dict or, when Cold is set, through the cold store.
type RowGroupParameter struct {
	RowGroup int
	RowCount int
	Cold     bool
	Hot      *RowGroup // nil when Cold
}

// PopulateScanParameter resolves the row groups a scan of this partition must
// visit, in group order. Partitions pruned by the condition yield nothing.
func PopulateScanParameter(p *Partition, sp *ScanParameter) ([]RowGroupParameter, error) {
	params, err := relkey.PartitionParams(p.Info.Partition)
	if err != nil {
		return nil, err
	}
	if !condition.Evaluate(sp.Cond, params) {
		return nil, nil
	}

	var groups []RowGroupParameter
	for rg := 0; rg <= p.CurrentRowGroup(); rg++ {
		count := p.RowCount(rg)
		if count == 0 {
			continue
		}
		groups = append(groups, RowGroupParameter{
			RowGroup: rg,
			RowCount: count,
			Cold:     p.IsCold(rg),
			Hot:      p.Group(rg),
		})
	}
	return groups, nil
}

// Row is one scanned row.
type Row struct {
	Partition string
	RowGroup  int
	Row       int
	Columns   map[int]string
}

// BlockFetch resolves the rows of a cold group, typically through the caching
// cold store.
type BlockFetch func(ctx context.Context, info relkey.DataKeyInfo) (map[int]map[int]string, error)

// Scan lazily yields the partition's rows group by group, reading cold groups
// through fetch. The sequence is finite and not restartable.
func (p *Partition) Scan(ctx context.Context, sp *ScanParameter, fetch BlockFetch) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		groups, err := PopulateScanParameter(p, sp)
		if err != nil {
			yield(Row{}, err)
			return
		}

		for _, g := range groups {
			if err := ctx.Err(); err != nil {
				yield(Row{}, err)
				return
			}

			rows := map[int]map[int]string{}
			if g.Cold {
				info := relkey.DataKeyInfo{
					TableID:   p.Info.TableID,
					Partition: p.Info.Partition,
					RowGroup:  g.RowGroup,
				}
				fetched, err := fetch(ctx, info)
				if err != nil {
					yield(Row{}, err)
					return
				}
				rows = fetched
			} else if g.Hot != nil {
				rows = g.Hot.Rows
			}

			for _, rowID := range sortedRowIDs(rows) {
				out := Row{
					Partition: p.Info.Partition,
					RowGroup:  g.RowGroup,
					Row:       rowID,
					Columns:   project(rows[rowID], sp.Columns),
				}
				if !yield(out, nil) {
					return
				}
			}
		}
	}
}

func sortedRowIDs(rows map[int]map[int]string) []int {
	ids := make([]int, 0, len(rows))
	for id := range rows {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func project(columns map[int]string, selected []ColumnParameter) map[int]string {
	if len(selected) == 0 {
		return columns
	}
	out := make(map[int]string, len(selected))
	for _, c := range selected {
		if v, ok := columns[c.ColumnID]; ok {
			out[c.ColumnID] = v
		}
	}
	return out
}
