package variations

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/uuid"
)

// Engine enumerates, filters and formats indicator variations.
// The compiled relation programs are built once and never mutated, so a
// single Engine is safe for concurrent Generate calls.
type Engine struct {
	programs map[Relation]relationPrograms
	logger   *slog.Logger
}

// NewEngine creates an engine logging to slog.Default()
func NewEngine() (*Engine, error) {
	return NewEngineWithLogger(slog.Default())
}

// NewEngineWithLogger creates an engine and compiles every filtering relation
func NewEngineWithLogger(logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	intEnv, err := newConditionEnv(cel.IntType)
	if err != nil {
		return nil, err
	}
	doubleEnv, err := newConditionEnv(cel.DoubleType)
	if err != nil {
		return nil, err
	}

	en := &Engine{
		programs: make(map[Relation]relationPrograms),
		logger:   logger,
	}

	for _, r := range Relations() {
		if r == RelationNone {
			continue
		}
		ints, err := compileRelation(intEnv, r, true)
		if err != nil {
			return nil, fmt.Errorf("failed to compile relation %q: %w", r, err)
		}
		doubles, err := compileRelation(doubleEnv, r, false)
		if err != nil {
			return nil, fmt.Errorf("failed to compile relation %q: %w", r, err)
		}
		en.programs[r] = relationPrograms{ints: ints, doubles: doubles}
	}

	return en, nil
}

// Validate checks the preconditions of a generation request.
// Condition indices and difference are only checked when a relation is set.
func (r Request) Validate() error {
	if r.IndicatorName == "" {
		return fmt.Errorf("%w: indicator name is required", ErrMissingField)
	}
	if r.Case == "" {
		return fmt.Errorf("%w: case is required", ErrMissingField)
	}
	if len(r.Inputs) == 0 {
		return fmt.Errorf("%w: at least one input definition is required", ErrMissingField)
	}
	return r.Condition.validate(len(r.Inputs))
}

func (c ConditionSpec) validate(n int) error {
	switch c.Relation {
	case RelationNone:
		return nil
	case RelationGreaterThan, RelationLessThan:
	default:
		return fmt.Errorf("%w: unknown relation %d", ErrInvalidCondition, int(c.Relation))
	}

	if c.Input1 < 1 || c.Input1 > n {
		return fmt.Errorf("%w: first input %d not in [1, %d]", ErrIndexOutOfRange, c.Input1, n)
	}
	if c.Input2 < 1 || c.Input2 > n {
		return fmt.Errorf("%w: second input %d not in [1, %d]", ErrIndexOutOfRange, c.Input2, n)
	}
	if c.MinDifference < 0 || !isFinite(c.MinDifference) {
		return fmt.Errorf("%w: minimum difference must be a non-negative number, got %v", ErrInvalidCondition, c.MinDifference)
	}
	return nil
}

// Generate runs one request end to end: validate, build domains, enumerate the
// product in input order, apply the condition and format the survivors.
func (en *Engine) Generate(req Request) (*Result, error) {
	start := time.Now()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	domains, err := BuildDomains(req.Inputs)
	if err != nil {
		return nil, err
	}

	filter, err := en.filterFor(req.Condition)
	if err != nil {
		return nil, err
	}

	prefix := req.Prefix()
	identifiers := []string{}
	total := 0

	err = Enumerate(domains, func(c Combination) error {
		total++
		if filter != nil {
			keep, err := filter.keep(c)
			if err != nil {
				return err
			}
			if !keep {
				return nil
			}
		}
		identifiers = append(identifiers, FormatCombination(prefix, c))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	res := &Result{
		ID:            uuid.NewString(),
		IndicatorName: req.IndicatorName,
		Case:          req.Case,
		Identifiers:   identifiers,
		Output:        JoinIdentifiers(identifiers),
		Total:         total,
		Kept:          len(identifiers),
		CreatedAt:     time.Now().UTC(),
	}

	en.logger.Debug("generated combinations",
		"id", res.ID,
		"indicator", req.IndicatorName,
		"case", req.Case,
		"inputs", len(req.Inputs),
		"relation", req.Condition.Relation.String(),
		"total", res.Total,
		"kept", res.Kept,
		"duration", time.Since(start),
	)

	return res, nil
}

// Filter applies cond to already enumerated combinations, preserving order.
// With RelationNone the input is returned unchanged. Combinations may differ in
// length, but every one must contain both condition inputs.
func (en *Engine) Filter(combinations []Combination, cond ConditionSpec) ([]Combination, error) {
	if cond.Relation == RelationNone {
		return combinations, nil
	}

	if len(combinations) == 0 {
		return combinations, nil
	}

	filter, err := en.filterFor(cond)
	if err != nil {
		return nil, err
	}

	kept := make([]Combination, 0, len(combinations))
	for i, c := range combinations {
		if err := cond.validate(len(c)); err != nil {
			return nil, fmt.Errorf("combination %d: %w", i+1, err)
		}
		keep, err := filter.keep(c)
		if err != nil {
			return nil, err
		}
		if keep {
			kept = append(kept, c)
		}
	}
	return kept, nil
}

// filterFor returns nil when no filtering applies
func (en *Engine) filterFor(cond ConditionSpec) (*conditionFilter, error) {
	if cond.Relation == RelationNone {
		return nil, nil
	}

	progs, exists := en.programs[cond.Relation]
	if !exists {
		return nil, fmt.Errorf("%w: relation %q is not compiled", ErrInvalidCondition, cond.Relation)
	}

	return &conditionFilter{
		relation:  cond.Relation,
		progs:     progs,
		first:     cond.Input1 - 1,
		second:    cond.Input2 - 1,
		diff:      cond.MinDifference,
		exactDiff: isIntegral(cond.MinDifference),
	}, nil
}

// Enumerate calls fn for every tuple of the Cartesian product of domains, the
// first domain varying slowest. The combination passed to fn is reused between
// calls; copy it to keep it. An empty domain, or no domains, yields nothing.
func Enumerate(domains [][]Value, fn func(Combination) error) error {
	if len(domains) == 0 {
		return nil
	}
	for _, d := range domains {
		if len(d) == 0 {
			return nil
		}
	}

	idx := make([]int, len(domains))
	combo := make(Combination, len(domains))
	for i, d := range domains {
		combo[i] = d[0]
	}

	for {
		if err := fn(combo); err != nil {
			return err
		}

		k := len(domains) - 1
		for ; k >= 0; k-- {
			idx[k]++
			if idx[k] < len(domains[k]) {
				combo[k] = domains[k][idx[k]]
				break
			}
			idx[k] = 0
			combo[k] = domains[k][0]
		}
		if k < 0 {
			return nil
		}
	}
}

// Product materialises the Cartesian product of domains in enumeration order
func Product(domains [][]Value) []Combination {
	var out []Combination
	_ = Enumerate(domains, func(c Combination) error {
		out = append(out, append(Combination(nil), c...))
		return nil
	})
	if out == nil {
		return []Combination{}
	}
	return out
}
