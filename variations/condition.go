package variations

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
)

// Relation is the pairwise comparison applied between two inputs
type Relation int

const (
	RelationNone Relation = iota
	RelationGreaterThan
	RelationLessThan
)

// Relations lists every supported relation in display order
func Relations() []Relation {
	return []Relation{RelationNone, RelationGreaterThan, RelationLessThan}
}

func (r Relation) String() string {
	switch r {
	case RelationNone:
		return "none"
	case RelationGreaterThan:
		return "greater than"
	case RelationLessThan:
		return "less than"
	default:
		return fmt.Sprintf("Relation(%d)", int(r))
	}
}

// ParseRelation accepts the form labels ("none", "greater than", "less than")
// as well as the short forms gt/lt and snake_case spellings.
func ParseRelation(s string) (Relation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return RelationNone, nil
	case "greater than", "greater_than", "greaterthan", "gt", ">":
		return RelationGreaterThan, nil
	case "less than", "less_than", "lessthan", "lt", "<":
		return RelationLessThan, nil
	default:
		return RelationNone, fmt.Errorf("%w: unknown relation %q", ErrInvalidCondition, s)
	}
}

// MarshalText encodes the relation with its form label
func (r Relation) MarshalText() ([]byte, error) {
	switch r {
	case RelationNone, RelationGreaterThan, RelationLessThan:
		return []byte(r.String()), nil
	default:
		return nil, fmt.Errorf("%w: unknown relation %d", ErrInvalidCondition, int(r))
	}
}

// UnmarshalText decodes any spelling ParseRelation accepts
func (r *Relation) UnmarshalText(text []byte) error {
	parsed, err := ParseRelation(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// expression returns the CEL source for the relation over a, b and d.
// The two formulas are intentionally not symmetric: greater than is a plain
// threshold, less than also requires the gap to reach d.
//
// The integer forms are exact over the whole int64 range: the guards rule out
// b + d and a + d overflowing, and a sum above MaxInt64 already decides the
// comparison. Both rely on d >= 0.
func (r Relation) expression(ints bool) (string, error) {
	switch r {
	case RelationNone:
		return "true", nil
	case RelationGreaterThan:
		if ints {
			return "b <= 9223372036854775807 - d && a > b + d", nil
		}
		return "a > b + d", nil
	case RelationLessThan:
		if ints {
			return "a < b && a <= 9223372036854775807 - d && a + d <= b", nil
		}
		return "a < b && (b - a) >= d", nil
	default:
		return "", fmt.Errorf("%w: unknown relation %d", ErrInvalidCondition, int(r))
	}
}

// conditionCostLimit bounds a single evaluation; the expressions are tiny
const conditionCostLimit = 1000

// newConditionEnv declares the three operands every relation is written over,
// all of type t (cel.IntType or cel.DoubleType)
func newConditionEnv(t *cel.Type) (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable("a", t),
		cel.Variable("b", t),
		cel.Variable("d", t),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return env, nil
}

// compileRelation compiles the relation's integer or double expression
func compileRelation(env *cel.Env, r Relation, ints bool) (cel.Program, error) {
	expr, err := r.expression(ints)
	if err != nil {
		return nil, err
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error for %q: %w", r, issues.Err())
	}

	prog, err := env.Program(ast, cel.CostLimit(conditionCostLimit))
	if err != nil {
		return nil, fmt.Errorf("program creation error for %q: %w", r, err)
	}
	return prog, nil
}

// relationPrograms holds both compiled forms of one relation
type relationPrograms struct {
	ints    cel.Program
	doubles cel.Program
}

// conditionFilter decides whether a combination survives the condition
type conditionFilter struct {
	relation  Relation
	progs     relationPrograms
	first     int // 0-based
	second    int // 0-based
	diff      float64
	exactDiff bool // diff is a whole number
}

// keep evaluates the relation on the two selected positions of c. Two integer
// operands with a whole difference are compared as int64, anything else as
// doubles.
func (f *conditionFilter) keep(c Combination) (bool, error) {
	a, b := c[f.first], c[f.second]

	prog := f.progs.doubles
	vars := map[string]any{
		"a": a.Float64(),
		"b": b.Float64(),
		"d": f.diff,
	}
	if f.exactDiff && a.Kind() == Integer && b.Kind() == Integer {
		prog = f.progs.ints
		vars = map[string]any{
			"a": a.Int64(),
			"b": b.Int64(),
			"d": int64(f.diff),
		}
	}

	out, _, err := prog.Eval(vars)
	if err != nil {
		return false, fmt.Errorf("evaluating %q: %w", f.relation, err)
	}

	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("relation %q produced %T, want bool", f.relation, out.Value())
	}
	return matched, nil
}
