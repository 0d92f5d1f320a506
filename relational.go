package tierkv

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/hupe1980/tierkv/coldstore"
	"github.com/hupe1980/tierkv/core"
	"github.com/hupe1980/tierkv/internal/relational"
	"github.com/hupe1980/tierkv/internal/tiering"
	"github.com/hupe1980/tierkv/relkey"
)

// Row is one scanned row.
type Row struct {
	Partition string
	RowGroup  int
	Row       int
	Columns   map[int]string
}

// InsertRow appends a row to the partition's active row group. When the
// group reaches the configured row group size it is sealed: the rows are
// serialized into a single block that enters the tiering pipeline while
// staying readable in memory until its block is persisted and reclaimed.
func (e *Engine) InsertRow(ctx context.Context, db core.DBID, tableID int, partition string, columns map[int]string) (rowGroup, row int, err error) {
	if e.closed.Load() {
		return 0, 0, ErrClosed
	}
	d, err := e.db(db)
	if err != nil {
		return 0, 0, err
	}

	info := relkey.MetaKeyInfo{TableID: tableID, Partition: partition}

	d.mu.Lock()
	p := d.rel.Partition(info, true)
	rowGroup, row = p.InsertRow(columns)

	if p.RowCount(rowGroup) >= e.opts.rowGroupSize {
		sealed, rows := p.IncRowGroup()
		blob, merr := e.valueCodec().Marshal(rows.Rows)
		if merr != nil {
			d.mu.Unlock()
			return rowGroup, row, fmt.Errorf("tierkv: seal row group %d: %w", sealed, merr)
		}
		key := relkey.DataKeyInfo{TableID: tableID, Partition: partition, RowGroup: sealed}.Encode()
		obj := &core.Object{
			Data:    blob,
			Recency: e.clock.Value(),
			Freq:    e.lfu.Touch(),
		}
		d.ks.Set(key, obj)
		e.rc.Track(obj.MemSize(key))
		// A full evict queue is fine: the block stays hot and the candidate
		// refill re-offers it through sampling.
		d.evictQ.Push(tiering.Entry{Key: key, Obj: obj})
	}
	d.mu.Unlock()

	return rowGroup, row, e.reclaimIfNeeded(ctx, d)
}

// Scan lazily yields the rows of a table, pruning partitions whose
// parameters fail the filter expression and reading cold row groups through
// the block cache. The column list selects columns by id ("0,2"); empty
// selects all. The database is locked for the duration of the iteration, so
// consumers must not call back into the engine while ranging.
func (e *Engine) Scan(ctx context.Context, db core.DBID, tableID int, columnList, expr string) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		if e.closed.Load() {
			yield(Row{}, ErrClosed)
			return
		}
		d, err := e.db(db)
		if err != nil {
			yield(Row{}, err)
			return
		}
		sp, err := relational.CreateScanParameters(tableID, columnList, expr)
		if err != nil {
			yield(Row{}, err)
			return
		}

		start := time.Now()
		count := 0

		d.mu.Lock()
		finish := func(err error) {
			d.mu.Unlock()
			e.metrics.RecordScan(count, time.Since(start), err)
			e.logger.LogScan(ctx, tableID, count, err)
		}

		fetch := e.blockFetch(db)
		for _, p := range d.rel.Partitions(tableID) {
			e.prefetchColdGroups(ctx, db, p, sp)
			for r, rerr := range p.Scan(ctx, sp, fetch) {
				if rerr != nil {
					finish(rerr)
					yield(Row{}, rerr)
					return
				}
				count++
				if !yield(Row(r), nil) {
					finish(nil)
					return
				}
			}
		}
		finish(nil)
	}
}

// prefetchColdGroups warms the block cache with the partition's cold row
// groups in one parallel read, so the scan's sequential block fetches hit the
// cache. Best effort: a failed prefetch surfaces later as a fetch error on
// the group that actually needs it.
func (e *Engine) prefetchColdGroups(ctx context.Context, db core.DBID, p *relational.Partition, sp *relational.ScanParameter) {
	bg, ok := e.coldBlocks.(coldstore.BatchGetter)
	if !ok {
		return
	}
	groups, err := relational.PopulateScanParameter(p, sp)
	if err != nil {
		return
	}
	var names []string
	for _, g := range groups {
		if g.Cold {
			info := relkey.DataKeyInfo{
				TableID:   p.Info.TableID,
				Partition: p.Info.Partition,
				RowGroup:  g.RowGroup,
			}
			names = append(names, coldName(db, info.Encode()))
		}
	}
	if len(names) == 0 {
		return
	}
	_, _ = bg.GetMulti(ctx, names)
}

// blockFetch resolves cold row groups of one database through the caching
// cold store.
func (e *Engine) blockFetch(db core.DBID) relational.BlockFetch {
	return func(ctx context.Context, info relkey.DataKeyInfo) (map[int]map[int]string, error) {
		name := coldName(db, info.Encode())
		blob, err := e.coldBlocks.Get(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("tierkv: cold row group %s: %w", info.Encode(), err)
		}
		var rows map[int]map[int]string
		if err := e.valueCodec().Unmarshal(blob, &rows); err != nil {
			return nil, fmt.Errorf("tierkv: decode row group %s: %w", info.Encode(), err)
		}
		return rows, nil
	}
}

// MetaSet stores a metadata field on the partition, creating the partition
// if needed.
func (e *Engine) MetaSet(_ context.Context, db core.DBID, tableID int, partition, field, value string) error {
	if e.closed.Load() {
		return ErrClosed
	}
	d, err := e.db(db)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.rel.Partition(relkey.MetaKeyInfo{TableID: tableID, Partition: partition}, true).MetaSet(field, value)
	return nil
}

// MetaGet reads a metadata field from the partition. Returns ErrNotFound
// when the partition or the field does not exist.
func (e *Engine) MetaGet(_ context.Context, db core.DBID, tableID int, partition, field string) (string, error) {
	if e.closed.Load() {
		return "", ErrClosed
	}
	d, err := e.db(db)
	if err != nil {
		return "", err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	p := d.rel.Partition(relkey.MetaKeyInfo{TableID: tableID, Partition: partition}, false)
	if p == nil {
		return "", ErrNotFound
	}
	v, ok := p.MetaGet(field)
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}
