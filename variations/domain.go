package variations

import (
	"fmt"
	"math"
)

// floatPrecision is the number of decimals every float domain value is rounded to
const floatPrecision = 5

// BuildDomain expands one input definition into its ordered candidate values.
//
// Constants yield a single value; an integral constant becomes an integer
// value whatever its declared type. Integer ranges step from Start up to and
// including End. Float ranges are generated by index (Start + i*Step), each
// value rounded to five decimals, while the rounded value does not exceed the
// rounded End. An End below Start yields an empty domain.
func BuildDomain(def InputDefinition) ([]Value, error) {
	if def.Constant {
		return buildConstant(def)
	}

	if !isFinite(def.Start) || !isFinite(def.End) || !isFinite(def.Step) {
		return nil, fmt.Errorf("%w: range bounds must be finite numbers", ErrInvalidDomain)
	}

	if def.Step <= 0 {
		return nil, fmt.Errorf("%w: step must be positive, got %v", ErrInvalidDomain, def.Step)
	}

	switch def.Type {
	case Integer:
		return buildIntegerRange(def)
	case Float:
		return buildFloatRange(def)
	default:
		return nil, fmt.Errorf("%w: unknown value type %v", ErrInvalidDomain, def.Type)
	}
}

// BuildDomains builds the domain of every input, in order.
// The error names the 1-based input that failed.
func BuildDomains(defs []InputDefinition) ([][]Value, error) {
	domains := make([][]Value, 0, len(defs))
	for i, def := range defs {
		domain, err := BuildDomain(def)
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i+1, err)
		}
		domains = append(domains, domain)
	}
	return domains, nil
}

func buildConstant(def InputDefinition) ([]Value, error) {
	v := def.Value
	if !isFinite(v) {
		return nil, fmt.Errorf("%w: constant must be a finite number", ErrInvalidDomain)
	}

	if isIntegral(v) {
		return []Value{IntValue(int64(v))}, nil
	}

	if def.Type == Integer {
		return nil, fmt.Errorf("%w: integer constant has a fractional part: %v", ErrInvalidDomain, v)
	}
	return []Value{FloatValue(v)}, nil
}

func buildIntegerRange(def InputDefinition) ([]Value, error) {
	if !isIntegral(def.Start) || !isIntegral(def.End) || !isIntegral(def.Step) {
		return nil, fmt.Errorf("%w: integer range needs whole numbers, got start=%v end=%v step=%v",
			ErrInvalidDomain, def.Start, def.End, def.Step)
	}

	start, end, step := int64(def.Start), int64(def.End), int64(def.Step)
	if end < start {
		return []Value{}, nil
	}

	// end-start can exceed MaxInt64; the unsigned difference is exact
	span := uint64(end) - uint64(start)
	values := make([]Value, 0, min(span/uint64(step)+1, 1<<12))
	for v := start; v <= end; v += step {
		values = append(values, IntValue(v))
		// v+step would overflow near MaxInt64
		if v > math.MaxInt64-step {
			break
		}
	}
	return values, nil
}

func buildFloatRange(def InputDefinition) ([]Value, error) {
	limit := roundTo(def.End, floatPrecision)

	values := []Value{}
	for i := 0; ; i++ {
		v := roundTo(def.Start+float64(i)*def.Step, floatPrecision)
		if v > limit {
			break
		}
		if !isFinite(v) {
			return nil, fmt.Errorf("%w: float range produced %v after %d values", ErrInvalidDomain, v, len(values))
		}
		values = append(values, FloatValue(v))
	}
	return values, nil
}

// exactAbove is the magnitude from which float64 spacing is already coarser
// than any rounding to floatPrecision decimals
const exactAbove = 1e15

// roundTo rounds x to the given number of decimals. Large values, whose scaled
// product would lose precision or overflow, are returned unchanged.
func roundTo(x float64, decimals int) float64 {
	if math.Abs(x) >= exactAbove || !isFinite(x) {
		return x
	}
	p := math.Pow10(decimals)
	return math.Round(x*p) / p
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func isIntegral(x float64) bool {
	return x == math.Trunc(x) && math.Abs(x) < 1<<63
}
