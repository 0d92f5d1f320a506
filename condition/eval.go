package condition

// ValueKind discriminates the type of a column value.
type ValueKind uint8

const (
	ValueNone ValueKind = iota
	ValueInt
	ValueText
)

// PartitionParameter is one column value of a row or partition key, used as
// evaluation input.
type PartitionParameter struct {
	ColumnID int64
	Kind     ValueKind
	Int      int64
	Text     string
}

// IntParam builds an integer column value.
func IntParam(col, v int64) PartitionParameter {
	return PartitionParameter{ColumnID: col, Kind: ValueInt, Int: v}
}

// TextParam builds a string column value.
func TextParam(col int64, s string) PartitionParameter {
	return PartitionParameter{ColumnID: col, Kind: ValueText, Text: s}
}

// Evaluate applies the condition tree to the given column values. A nil tree
// matches everything. Comparisons against a missing column or a column of the
// wrong type yield false, never an error; boolean operators short-circuit.
func Evaluate(c *Condition, params []PartitionParameter) bool {
	if c == nil {
		return true
	}
	switch c.Op {
	case OpAnd:
		return Evaluate(c.First.Cond, params) && Evaluate(c.Second.Cond, params)
	case OpOr:
		return Evaluate(c.First.Cond, params) || Evaluate(c.Second.Cond, params)
	case OpNot:
		return !Evaluate(c.First.Cond, params)
	default:
		return evalComparison(c, params)
	}
}

func evalComparison(c *Condition, params []PartitionParameter) bool {
	param, ok := lookup(params, c.First.Int)
	if !ok {
		return false
	}

	var cmp int
	switch {
	case c.Second.Kind == ChildInt && param.Kind == ValueInt:
		switch {
		case param.Int < c.Second.Int:
			cmp = -1
		case param.Int > c.Second.Int:
			cmp = 1
		}
	case c.Second.Kind == ChildText && param.Kind == ValueText:
		switch {
		case param.Text < c.Second.Text:
			cmp = -1
		case param.Text > c.Second.Text:
			cmp = 1
		}
	default:
		// Type mismatch never matches.
		return false
	}

	switch c.Op {
	case OpEq:
		return cmp == 0
	case OpLt:
		return cmp < 0
	case OpLte:
		return cmp <= 0
	case OpGt:
		return cmp > 0
	case OpGte:
		return cmp >= 0
	default:
		return false
	}
}

func lookup(params []PartitionParameter, col int64) (PartitionParameter, bool) {
	for _, p := range params {
		if p.ColumnID == col {
			return p, true
		}
	}
	return PartitionParameter{}, false
}
