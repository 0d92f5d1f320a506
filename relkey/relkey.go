// Package relkey encodes and parses the key layout of the relational tier.
//
// Two key families share the keyspace with plain keys:
//
//	D:{table:partition}:rowgroup           row group data key
//	D:{table:partition}:rowgroup:row:col   cold key of a single cell
//	M:{table:partition}                    partition metadata key
//
// The braces delimit the hash tag so all keys of one partition cluster
// together. The partition component may itself contain ':' separated values
// when the table is partitioned on several columns.
package relkey

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hupe1980/tierkv/condition"
)

// ErrMalformedKey is the sentinel all key parse failures unwrap to.
var ErrMalformedKey = errors.New("relkey: malformed key")

// MalformedKeyError reports a key that does not follow the layout.
type MalformedKeyError struct {
	Key    string
	Reason string
}

func (e *MalformedKeyError) Error() string {
	return fmt.Sprintf("relkey: malformed key %q: %s", e.Key, e.Reason)
}

func (e *MalformedKeyError) Unwrap() error { return ErrMalformedKey }

const (
	dataPrefix = "D:"
	metaPrefix = "M:"
)

// DataKeyInfo identifies one row group of a partition.
type DataKeyInfo struct {
	TableID   int
	Partition string
	RowGroup  int
}

// Encode renders the row group data key.
func (i DataKeyInfo) Encode() string {
	return fmt.Sprintf("%s{%d:%s}:%d", dataPrefix, i.TableID, i.Partition, i.RowGroup)
}

// ColdRowKey renders the cold key of a single cell in this row group.
func (i DataKeyInfo) ColdRowKey(row, col int) string {
	return fmt.Sprintf("%s:%d:%d", i.Encode(), row, col)
}

// MetaKey renders the metadata key of the partition this row group belongs to.
func (i DataKeyInfo) MetaKey() string {
	return MetaKeyInfo{TableID: i.TableID, Partition: i.Partition}.Encode()
}

// MetaKeyInfo identifies the metadata entry of one partition.
type MetaKeyInfo struct {
	TableID   int
	Partition string
}

// Encode renders the metadata key.
func (i MetaKeyInfo) Encode() string {
	return fmt.Sprintf("%s{%d:%s}", metaPrefix, i.TableID, i.Partition)
}

// IsDataKey reports whether the key carries the data prefix.
func IsDataKey(key string) bool { return strings.HasPrefix(key, dataPrefix+"{") }

// IsMetaKey reports whether the key carries the metadata prefix.
func IsMetaKey(key string) bool { return strings.HasPrefix(key, metaPrefix+"{") }

// parseTag splits "{table:partition}" out of the key after the given prefix
// and returns table, partition and the remainder after the closing brace.
func parseTag(key, prefix string) (table int, partition, rest string, err error) {
	body, ok := strings.CutPrefix(key, prefix)
	if !ok || len(body) == 0 || body[0] != '{' {
		return 0, "", "", &MalformedKeyError{Key: key, Reason: "missing hash tag"}
	}
	end := strings.LastIndexByte(body, '}')
	if end < 0 {
		return 0, "", "", &MalformedKeyError{Key: key, Reason: "unterminated hash tag"}
	}
	tag := body[1:end]
	rest = body[end+1:]

	tableStr, partition, ok := strings.Cut(tag, ":")
	if !ok || partition == "" {
		return 0, "", "", &MalformedKeyError{Key: key, Reason: "hash tag needs table and partition"}
	}
	table, err = strconv.Atoi(tableStr)
	if err != nil {
		return 0, "", "", &MalformedKeyError{Key: key, Reason: "table id is not numeric"}
	}
	return table, partition, rest, nil
}

// ParseDataKey parses a row group data key.
func ParseDataKey(key string) (DataKeyInfo, error) {
	table, partition, rest, err := parseTag(key, dataPrefix)
	if err != nil {
		return DataKeyInfo{}, err
	}
	rgStr, ok := strings.CutPrefix(rest, ":")
	if !ok || rgStr == "" || strings.ContainsRune(rgStr, ':') {
		return DataKeyInfo{}, &MalformedKeyError{Key: key, Reason: "expected single row group suffix"}
	}
	rg, err := strconv.Atoi(rgStr)
	if err != nil {
		return DataKeyInfo{}, &MalformedKeyError{Key: key, Reason: "row group is not numeric"}
	}
	return DataKeyInfo{TableID: table, Partition: partition, RowGroup: rg}, nil
}

// ParseColdRowKey parses the cold key of a single cell.
func ParseColdRowKey(key string) (info DataKeyInfo, row, col int, err error) {
	table, partition, rest, err := parseTag(key, dataPrefix)
	if err != nil {
		return DataKeyInfo{}, 0, 0, err
	}
	parts := strings.Split(rest, ":")
	// Leading element is empty since rest starts with ':'.
	if len(parts) != 4 || parts[0] != "" {
		return DataKeyInfo{}, 0, 0, &MalformedKeyError{Key: key, Reason: "expected rowgroup:row:col suffix"}
	}
	nums := make([]int, 3)
	for i, s := range parts[1:] {
		n, convErr := strconv.Atoi(s)
		if convErr != nil {
			return DataKeyInfo{}, 0, 0, &MalformedKeyError{Key: key, Reason: "non numeric suffix component"}
		}
		nums[i] = n
	}
	info = DataKeyInfo{TableID: table, Partition: partition, RowGroup: nums[0]}
	return info, nums[1], nums[2], nil
}

// ParseMetaKey parses a partition metadata key.
func ParseMetaKey(key string) (MetaKeyInfo, error) {
	table, partition, rest, err := parseTag(key, metaPrefix)
	if err != nil {
		return MetaKeyInfo{}, err
	}
	if rest != "" {
		return MetaKeyInfo{}, &MalformedKeyError{Key: key, Reason: "unexpected suffix after hash tag"}
	}
	return MetaKeyInfo{TableID: table, Partition: partition}, nil
}

// PartitionParams resolves a partition descriptor into evaluation operands.
// The descriptor is col:value pairs joined by ':', e.g. "0:5:1:us-east" binds
// column 0 to 5 and column 1 to "us-east". Values that parse as integers
// become integer parameters, everything else is text. A trailing unpaired
// component or a non numeric column id fails the whole descriptor.
func PartitionParams(partition string) ([]condition.PartitionParameter, error) {
	parts := strings.Split(partition, ":")
	if len(parts)%2 != 0 {
		return nil, &MalformedKeyError{Key: partition, Reason: "partition descriptor needs col:value pairs"}
	}
	params := make([]condition.PartitionParameter, 0, len(parts)/2)
	for i := 0; i < len(parts); i += 2 {
		col, err := strconv.ParseInt(parts[i], 10, 64)
		if err != nil {
			return nil, &MalformedKeyError{Key: partition, Reason: "partition column id is not numeric"}
		}
		v := parts[i+1]
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			params = append(params, condition.IntParam(col, n))
		} else {
			params = append(params, condition.TextParam(col, v))
		}
	}
	return params, nil
}
