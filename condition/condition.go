// Package condition implements the filter expression language used to prune
// partitions and rows during relational scans. Expressions compare column
// references against literals and combine with boolean operators:
//
//	(col0 == 5) && (col1 < 10) || !(col2 == 'archived')
//
// Operator precedence, tightest first: !, comparisons, &&, ||.
package condition

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidSyntax is the sentinel all parse failures unwrap to.
var ErrInvalidSyntax = errors.New("condition: invalid syntax")

// SyntaxError describes where parsing failed.
type SyntaxError struct {
	Pos     int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("condition: invalid syntax at offset %d: %s", e.Pos, e.Message)
}

func (e *SyntaxError) Unwrap() error { return ErrInvalidSyntax }

// Op is a condition node operator.
type Op uint8

const (
	OpNone Op = iota
	OpAnd
	OpOr
	OpNot
	OpEq
	OpLt
	OpLte
	OpGt
	OpGte
)

func (o Op) String() string {
	switch o {
	case OpAnd:
		return "&&"
	case OpOr:
		return "||"
	case OpNot:
		return "!"
	case OpEq:
		return "=="
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	default:
		return fmt.Sprintf("op(%d)", uint8(o))
	}
}

// ChildKind discriminates the operand variants of a condition node.
type ChildKind uint8

const (
	ChildNone ChildKind = iota
	ChildCond
	ChildInt
	ChildText
)

// Child is one operand of a condition node.
type Child struct {
	Kind ChildKind
	Cond *Condition
	Int  int64
	Text string
}

// CondChild wraps a sub-condition operand.
func CondChild(c *Condition) Child { return Child{Kind: ChildCond, Cond: c} }

// IntChild wraps an integer operand.
func IntChild(v int64) Child { return Child{Kind: ChildInt, Int: v} }

// TextChild wraps a string operand.
func TextChild(s string) Child { return Child{Kind: ChildText, Text: s} }

// Condition is a node in the parsed filter tree. For comparison operators the
// first operand is the column index and the second the literal. For boolean
// operators the operands are sub-conditions; OpNot uses only the first.
type Condition struct {
	Op     Op
	First  Child
	Second Child
}

// String renders the tree back to expression syntax.
func (c *Condition) String() string {
	if c == nil {
		return ""
	}
	var sb strings.Builder
	c.render(&sb)
	return sb.String()
}

func (c *Condition) render(sb *strings.Builder) {
	switch c.Op {
	case OpAnd, OpOr:
		sb.WriteByte('(')
		c.First.Cond.render(sb)
		sb.WriteString(" ")
		sb.WriteString(c.Op.String())
		sb.WriteString(" ")
		c.Second.Cond.render(sb)
		sb.WriteByte(')')
	case OpNot:
		sb.WriteByte('!')
		sb.WriteByte('(')
		c.First.Cond.render(sb)
		sb.WriteByte(')')
	default:
		sb.WriteString("col")
		sb.WriteString(strconv.FormatInt(c.First.Int, 10))
		sb.WriteString(" ")
		sb.WriteString(c.Op.String())
		sb.WriteString(" ")
		if c.Second.Kind == ChildText {
			sb.WriteByte('\'')
			sb.WriteString(c.Second.Text)
			sb.WriteByte('\'')
		} else {
			sb.WriteString(strconv.FormatInt(c.Second.Int, 10))
		}
	}
}
