package condition

import (
	"testing"
)

// FuzzParse asserts the parser never panics and that anything it accepts can
// be rendered and reparsed to an equivalent tree.
func FuzzParse(f *testing.F) {
	seeds := []string{
		"col0 == 5",
		"(col0 == 5) && (col1 < 10)",
		"!(col2 >= 7) || col3 == 'x'",
		"col0 == ",
		"(((col1 <= -42)))",
		"col10 > 'zz' && !col0 == 1",
		"'lone string'",
		"((((((((",
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, expr string) {
		cond, err := Parse(expr)
		if err != nil {
			return
		}
		rendered := cond.String()
		again, err := Parse(rendered)
		if err != nil {
			t.Fatalf("rendered form %q of %q failed to reparse: %v", rendered, expr, err)
		}
		if cond.String() != again.String() {
			t.Fatalf("round trip diverged: %q vs %q", cond.String(), again.String())
		}

		// Evaluation must be total on any accepted tree.
		_ = Evaluate(cond, []PartitionParameter{IntParam(0, 1), TextParam(1, "a")})
	})
}
