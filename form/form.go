// Package form is the input side of the generator: it decodes the document a
// user fills in (JSON from the HTTP API, YAML or JSON from the CLI), checks
// the limits the input widgets impose (input count, minimum steps), and
// converts it into a variations.Request.
package form

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/liamcoop/variations/variations"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultMaxInputs is the largest number of inputs the form offers
	DefaultMaxInputs = 10
	// MinFloatStep is the smallest step accepted for a float range
	MinFloatStep = 0.01
	// MinIntegerStep is the smallest step accepted for an integer range
	MinIntegerStep = 1
)

// ErrTooManyInputs is returned when a definition has more inputs than allowed
var ErrTooManyInputs = errors.New("too many inputs")

// Format is the encoding of a definition document
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from a file extension; anything that is not
// .yaml or .yml is read as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Definition is one filled-in form
type Definition struct {
	Indicator string         `json:"indicator" yaml:"indicator"`
	Case      string         `json:"case" yaml:"case"`
	Inputs    []InputField   `json:"inputs" yaml:"inputs" validate:"dive"`
	Condition ConditionField `json:"condition" yaml:"condition"`
}

// InputField is one input block of the form.
// Type is "int" (default) or "float"; an omitted integer step means 1.
type InputField struct {
	Constant bool     `json:"constant" yaml:"constant"`
	Type     string   `json:"type,omitempty" yaml:"type,omitempty" validate:"omitempty,oneof=int integer float double"`
	Value    float64  `json:"value,omitempty" yaml:"value,omitempty"`
	Start    float64  `json:"start,omitempty" yaml:"start,omitempty"`
	End      float64  `json:"end,omitempty" yaml:"end,omitempty"`
	Step     *float64 `json:"step,omitempty" yaml:"step,omitempty"`
}

// StepOf is shorthand for setting InputField.Step
func StepOf(step float64) *float64 {
	return &step
}

// ConditionField is the condition row of the form.
// Zero indices mean the first input, as the form's select boxes default to it.
type ConditionField struct {
	Input1        int     `json:"input1,omitempty" yaml:"input1,omitempty" validate:"gte=0"`
	Input2        int     `json:"input2,omitempty" yaml:"input2,omitempty" validate:"gte=0"`
	Relation      string  `json:"relation,omitempty" yaml:"relation,omitempty"`
	MinDifference float64 `json:"minDifference,omitempty" yaml:"min_difference,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(validateInputField, InputField{})
	return v
}

// validateInputField enforces the minimum step of ranged inputs
func validateInputField(sl validator.StructLevel) {
	in := sl.Current().Interface().(InputField)
	if in.Constant {
		return
	}

	t, err := variations.ParseValueType(in.Type)
	if err != nil {
		// reported by the oneof tag
		return
	}

	switch t {
	case variations.Integer:
		if in.Step != nil && *in.Step < MinIntegerStep {
			sl.ReportError(*in.Step, "step", "Step", "min_int_step", fmt.Sprint(MinIntegerStep))
		}
	case variations.Float:
		if in.Step == nil {
			sl.ReportError(in.Step, "step", "Step", "required", "")
		} else if *in.Step < MinFloatStep {
			sl.ReportError(*in.Step, "step", "Step", "min_float_step", fmt.Sprint(MinFloatStep))
		}
	}
}

// Decode reads a definition in the given format. Unknown JSON fields are rejected.
func Decode(r io.Reader, format Format) (*Definition, error) {
	var def Definition

	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil {
			return nil, fmt.Errorf("invalid YAML definition: %w", err)
		}
	case FormatJSON, "":
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&def); err != nil {
			return nil, fmt.Errorf("invalid JSON definition: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported definition format %q", format)
	}

	return &def, nil
}

// Validate checks the definition against the form's rules, allowing at most
// maxInputs inputs (DefaultMaxInputs when maxInputs < 1).
// Missing fields are reported as variations.ErrMissingField.
func (d *Definition) Validate(maxInputs int) error {
	if maxInputs < 1 {
		maxInputs = DefaultMaxInputs
	}

	if strings.TrimSpace(d.Indicator) == "" {
		return fmt.Errorf("%w: indicator is required", variations.ErrMissingField)
	}
	if strings.TrimSpace(d.Case) == "" {
		return fmt.Errorf("%w: case is required", variations.ErrMissingField)
	}
	if len(d.Inputs) == 0 {
		return fmt.Errorf("%w: at least one input is required", variations.ErrMissingField)
	}
	if len(d.Inputs) > maxInputs {
		return fmt.Errorf("%w: %d inputs given, at most %d allowed", ErrTooManyInputs, len(d.Inputs), maxInputs)
	}

	if err := validate.Struct(d); err != nil {
		return translate(err)
	}

	if _, err := variations.ParseRelation(d.Condition.Relation); err != nil {
		return err
	}
	return nil
}

// translate maps validator errors onto the engine's error kinds
func translate(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fe := verrs[0]
	ns := fe.Namespace()
	msg := fmt.Sprintf("%s failed %s", ns, fe.Tag())
	if fe.Param() != "" {
		msg += "=" + fe.Param()
	}

	if strings.Contains(ns, ".Condition.") {
		return fmt.Errorf("%w: %s", variations.ErrIndexOutOfRange, msg)
	}
	return fmt.Errorf("%w: %s", variations.ErrInvalidDomain, msg)
}

// ToRequest validates the definition and converts it into an engine request
func (d *Definition) ToRequest(maxInputs int) (variations.Request, error) {
	if err := d.Validate(maxInputs); err != nil {
		return variations.Request{}, err
	}

	inputs := make([]variations.InputDefinition, 0, len(d.Inputs))
	for i, in := range d.Inputs {
		def, err := in.toInputDefinition()
		if err != nil {
			return variations.Request{}, fmt.Errorf("input %d: %w", i+1, err)
		}
		inputs = append(inputs, def)
	}

	relation, err := variations.ParseRelation(d.Condition.Relation)
	if err != nil {
		return variations.Request{}, err
	}

	cond := variations.DefaultCondition()
	cond.Relation = relation
	if d.Condition.Input1 > 0 {
		cond.Input1 = d.Condition.Input1
	}
	if d.Condition.Input2 > 0 {
		cond.Input2 = d.Condition.Input2
	}
	if relation != variations.RelationNone {
		cond.MinDifference = d.Condition.MinDifference
	}

	return variations.Request{
		IndicatorName: strings.TrimSpace(d.Indicator),
		Case:          strings.TrimSpace(d.Case),
		Inputs:        inputs,
		Condition:     cond,
	}, nil
}

func (in InputField) toInputDefinition() (variations.InputDefinition, error) {
	t, err := variations.ParseValueType(in.Type)
	if err != nil {
		return variations.InputDefinition{}, fmt.Errorf("%w: %v", variations.ErrInvalidDomain, err)
	}

	if in.Constant {
		return variations.ConstantInput(t, in.Value), nil
	}

	step := float64(MinIntegerStep)
	if in.Step != nil {
		step = *in.Step
	}
	return variations.RangeInput(t, in.Start, in.End, step), nil
}
