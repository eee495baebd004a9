package variations

import (
	"fmt"
	"strings"
	"time"
)

// ValueType is the numeric kind of an input
type ValueType int

const (
	Integer ValueType = iota
	Float
)

func (t ValueType) String() string {
	switch t {
	case Integer:
		return "int"
	case Float:
		return "float"
	default:
		return fmt.Sprintf("ValueType(%d)", int(t))
	}
}

// ParseValueType accepts "int"/"integer" and "float"/"double".
// An empty string is treated as Integer, the form's default.
func ParseValueType(s string) (ValueType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "int", "integer":
		return Integer, nil
	case "float", "double":
		return Float, nil
	default:
		return Integer, fmt.Errorf("unknown value type %q (must be int or float)", s)
	}
}

// Value is one candidate value of an input domain
type Value struct {
	kind ValueType
	i    int64
	f    float64
}

// IntValue wraps an integer
func IntValue(n int64) Value {
	return Value{kind: Integer, i: n}
}

// FloatValue wraps a float
func FloatValue(f float64) Value {
	return Value{kind: Float, f: f}
}

// Kind reports whether the value is an integer or a float
func (v Value) Kind() ValueType {
	return v.kind
}

// Float64 returns the value as a float64, used for condition evaluation
func (v Value) Float64() float64 {
	if v.kind == Integer {
		return float64(v.i)
	}
	return v.f
}

// Int64 returns the integer payload. Only meaningful for Integer values.
func (v Value) Int64() int64 {
	return v.i
}

// Combination is one tuple of the Cartesian product, in input order
type Combination []Value

// InputDefinition describes the domain of one positional input.
// Constant inputs use Value; ranged inputs use Start, End and Step.
type InputDefinition struct {
	Constant bool
	Type     ValueType
	Value    float64
	Start    float64
	End      float64
	Step     float64
}

// ConstantInput is shorthand for a constant definition
func ConstantInput(t ValueType, value float64) InputDefinition {
	return InputDefinition{Constant: true, Type: t, Value: value}
}

// RangeInput is shorthand for a ranged definition
func RangeInput(t ValueType, start, end, step float64) InputDefinition {
	return InputDefinition{Type: t, Start: start, End: end, Step: step}
}

// ConditionSpec is the optional pairwise filter between two inputs.
// Input1 and Input2 are 1-based positions into Request.Inputs.
type ConditionSpec struct {
	Input1        int
	Input2        int
	Relation      Relation
	MinDifference float64
}

// DefaultCondition mirrors the form defaults: first input against itself, no relation
func DefaultCondition() ConditionSpec {
	return ConditionSpec{Input1: 1, Input2: 1, Relation: RelationNone}
}

// Request is everything a single generation needs
type Request struct {
	IndicatorName string
	Case          string
	Inputs        []InputDefinition
	Condition     ConditionSpec
}

// Prefix is the identifier prefix shared by every combination of the request
func (r Request) Prefix() string {
	return r.IndicatorName + "_" + r.Case + "_"
}

// Result is the outcome of one generation
type Result struct {
	ID            string    `json:"id"`
	IndicatorName string    `json:"indicator"`
	Case          string    `json:"case"`
	Identifiers   []string  `json:"identifiers"`
	Output        string    `json:"output"`
	Total         int       `json:"total"`
	Kept          int       `json:"kept"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Generation is the history record of a successful generation.
// Input definitions are not recorded.
type Generation struct {
	ID            string    `json:"id"`
	IndicatorName string    `json:"indicator"`
	Case          string    `json:"case"`
	Total         int       `json:"total"`
	Kept          int       `json:"kept"`
	Output        string    `json:"output"`
	CreatedAt     time.Time `json:"createdAt"`
}

// GenerationFromResult converts an engine result into a history record
func GenerationFromResult(res *Result) *Generation {
	return &Generation{
		ID:            res.ID,
		IndicatorName: res.IndicatorName,
		Case:          res.Case,
		Total:         res.Total,
		Kept:          res.Kept,
		Output:        res.Output,
		CreatedAt:     res.CreatedAt,
	}
}
