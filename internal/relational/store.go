// Package relational holds the in-memory side of the columnar tier: row
// group dicts per partition, the partition meta dict, and the bitmap of row
// groups that have been flushed to cold storage.
//
// The store is not self-locking. The owning database serializes access under
// its single-writer discipline.
package relational

import (
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/tierkv/relkey"
)

// RowGroup is one batch of rows, row id to column id to value.
type RowGroup struct {
	Rows map[int]map[int]string
}

func newRowGroup() *RowGroup {
	return &RowGroup{Rows: make(map[int]map[int]string)}
}

// Partition is the hot state of one table partition.
type Partition struct {
	Info relkey.MetaKeyInfo

	// rowGroups holds the active group and sealed groups not yet cleared to
	// cold storage.
	rowGroups map[int]*RowGroup
	// rowCounts records the final row count per group, including cold ones.
	rowCounts map[int]int
	// coldGroups marks group ids whose rows live only in the cold store.
	coldGroups *roaring.Bitmap
	// meta is the partition metadata dict.
	meta map[string]string

	currentGroup int
}

func newPartition(info relkey.MetaKeyInfo) *Partition {
	p := &Partition{
		Info:       info,
		rowGroups:  make(map[int]*RowGroup),
		rowCounts:  make(map[int]int),
		coldGroups: roaring.New(),
		meta:       make(map[string]string),
	}
	p.rowGroups[0] = newRowGroup()
	return p
}

// CurrentRowGroup returns the id of the group accepting inserts.
func (p *Partition) CurrentRowGroup() int { return p.currentGroup }

// RowCount returns the number of rows in the given group.
func (p *Partition) RowCount(rg int) int { return p.rowCounts[rg] }

// TotalRows returns the number of rows across all groups.
func (p *Partition) TotalRows() int {
	total := 0
	for _, n := range p.rowCounts {
		total += n
	}
	return total
}

// InsertRow appends a row to the active group and returns its coordinates.
func (p *Partition) InsertRow(columns map[int]string) (rowGroup, row int) {
	rg := p.rowGroups[p.currentGroup]
	row = p.rowCounts[p.currentGroup]
	rg.Rows[row] = columns
	p.rowCounts[p.currentGroup] = row + 1
	return p.currentGroup, row
}

// IncRowGroup seals the active group and opens the next one. It returns the
// sealed group's id and rows, which the caller serializes for tiering.
func (p *Partition) IncRowGroup() (sealed int, rows *RowGroup) {
	sealed = p.currentGroup
	rows = p.rowGroups[sealed]
	p.currentGroup++
	p.rowGroups[p.currentGroup] = newRowGroup()
	return sealed, rows
}

// Group returns the hot rows of a group, or nil when the group is cold or
// unknown.
func (p *Partition) Group(rg int) *RowGroup { return p.rowGroups[rg] }

// MarkCold drops a sealed group's hot rows and records it as cold. The row
// count survives so scans can size cold reads.
func (p *Partition) MarkCold(rg int) error {
	if rg == p.currentGroup {
		return fmt.Errorf("relational: cannot mark active row group %d cold", rg)
	}
	delete(p.rowGroups, rg)
	p.coldGroups.Add(uint32(rg))
	return nil
}

// IsCold reports whether a group's rows live only in the cold store.
func (p *Partition) IsCold(rg int) bool { return p.coldGroups.Contains(uint32(rg)) }

// ColdGroupCount returns the number of cold groups.
func (p *Partition) ColdGroupCount() uint64 { return p.coldGroups.GetCardinality() }

// MetaSet stores a field in the partition meta dict.
func (p *Partition) MetaSet(field, value string) { p.meta[field] = value }

// MetaGet reads a field from the partition meta dict.
func (p *Partition) MetaGet(field string) (string, bool) {
	v, ok := p.meta[field]
	return v, ok
}

// Store is the per-database registry of partitions.
type Store struct {
	partitions map[relkey.MetaKeyInfo]*Partition
}

// NewStore creates an empty partition registry.
func NewStore() *Store {
	return &Store{partitions: make(map[relkey.MetaKeyInfo]*Partition)}
}

// Partition returns the partition for the given identity, creating it when
// create is set. Returns nil when absent and create is false.
func (s *Store) Partition(info relkey.MetaKeyInfo, create bool) *Partition {
	p, ok := s.partitions[info]
	if !ok && create {
		p = newPartition(info)
		s.partitions[info] = p
	}
	return p
}

// Partitions returns all partitions of the given table, ordered by partition
// descriptor so scans are deterministic.
func (s *Store) Partitions(tableID int) []*Partition {
	var out []*Partition
	for info, p := range s.partitions {
		if info.TableID == tableID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Info.Partition < out[j].Info.Partition
	})
	return out
}

// Len returns the number of known partitions.
func (s *Store) Len() int { return len(s.partitions) }
