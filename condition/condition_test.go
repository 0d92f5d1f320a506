package condition

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAndEvaluate(t *testing.T) {
	tests := []struct {
		expr   string
		params []PartitionParameter
		want   bool
	}{
		{"col0 == 5", []PartitionParameter{IntParam(0, 5)}, true},
		{"col0 == 5", []PartitionParameter{IntParam(0, 6)}, false},
		{"(col0 == 5) && (col1 < 10)", []PartitionParameter{IntParam(0, 5), IntParam(1, 3)}, true},
		{"(col0 == 5) && (col1 < 10)", []PartitionParameter{IntParam(0, 5), IntParam(1, 10)}, false},
		{"col0 <= 5 || col1 >= 7", []PartitionParameter{IntParam(0, 9), IntParam(1, 7)}, true},
		{"!(col0 == 5)", []PartitionParameter{IntParam(0, 5)}, false},
		{"!(col0 == 5)", []PartitionParameter{IntParam(0, 4)}, true},
		{"col0 == 'us-east'", []PartitionParameter{TextParam(0, "us-east")}, true},
		{"col0 < 'b'", []PartitionParameter{TextParam(0, "a")}, true},
		{"col0 > -3", []PartitionParameter{IntParam(0, 0)}, true},
		// Precedence: && binds tighter than ||.
		{"col0 == 1 || col0 == 2 && col1 == 3", []PartitionParameter{IntParam(0, 1), IntParam(1, 99)}, true},
		{"col0 == 1 || col0 == 2 && col1 == 3", []PartitionParameter{IntParam(0, 2), IntParam(1, 4)}, false},
		// Missing column or type mismatch never matches.
		{"col9 == 5", []PartitionParameter{IntParam(0, 5)}, false},
		{"col0 == 5", []PartitionParameter{TextParam(0, "5")}, false},
		{"!(col0 == 5)", []PartitionParameter{TextParam(0, "5")}, true},
		// Empty expression matches everything.
		{"", nil, true},
		{"   ", []PartitionParameter{IntParam(0, 1)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			cond, err := Parse(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, Evaluate(cond, tt.params))
		})
	}
}

func TestParseErrors(t *testing.T) {
	exprs := []string{
		"col0 == ",
		"col0",
		"== 5",
		"col0 = 5",
		"(col0 == 5",
		"col0 == 5)",
		"col0 && 5",
		"foo == 5",
		"col == 5",
		"col0 == 'unterminated",
		"col0 == 5 &&",
		"col0 == 5 & col1 == 2",
		"col0 == --3",
	}
	for _, expr := range exprs {
		t.Run(expr, func(t *testing.T) {
			_, err := Parse(expr)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidSyntax)

			var se *SyntaxError
			assert.ErrorAs(t, err, &se)
		})
	}
}

func TestParseDepthLimit(t *testing.T) {
	expr := strings.Repeat("(", MaxDepth+1) + "col0 == 1" + strings.Repeat(")", MaxDepth+1)
	_, err := Parse(expr)
	assert.ErrorIs(t, err, ErrInvalidSyntax)

	ok := strings.Repeat("!", MaxDepth-1) + "col0 == 1"
	_, err = Parse(ok)
	assert.NoError(t, err)
}

func TestStringRoundTrip(t *testing.T) {
	exprs := []string{
		"(col0 == 5) && (col1 < 10)",
		"!(col2 >= 7)",
		"(col0 == 'a') || (col1 <= -2)",
	}
	for _, expr := range exprs {
		cond, err := Parse(expr)
		require.NoError(t, err)

		again, err := Parse(cond.String())
		require.NoError(t, err)
		assert.Equal(t, cond, again, "reparsing %q as %q", expr, cond.String())
	}
}
