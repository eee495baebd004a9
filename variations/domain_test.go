package variations

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func floats(values []Value) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v.Float64()
	}
	return out
}

func kinds(values []Value) []ValueType {
	out := make([]ValueType, len(values))
	for i, v := range values {
		out[i] = v.Kind()
	}
	return out
}

// TestBuildDomainConstant verifies constants yield exactly one value
func TestBuildDomainConstant(t *testing.T) {
	testCases := []struct {
		name     string
		def      InputDefinition
		want     float64
		wantKind ValueType
	}{
		{"Integer constant", ConstantInput(Integer, 7), 7, Integer},
		{"Negative integer constant", ConstantInput(Integer, -3), -3, Integer},
		{"Float constant", ConstantInput(Float, 2.5), 2.5, Float},
		{"Integral float becomes integer", ConstantInput(Float, 2.0), 2, Integer},
		{"Zero", ConstantInput(Float, 0), 0, Integer},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			values, err := BuildDomain(tc.def)
			if err != nil {
				t.Fatalf("BuildDomain() failed: %v", err)
			}
			if len(values) != 1 {
				t.Fatalf("BuildDomain() returned %d values, want 1", len(values))
			}
			if values[0].Float64() != tc.want {
				t.Errorf("value = %v, want %v", values[0].Float64(), tc.want)
			}
			if values[0].Kind() != tc.wantKind {
				t.Errorf("kind = %v, want %v", values[0].Kind(), tc.wantKind)
			}
		})
	}
}

// TestBuildDomainIntegerRange verifies inclusive integer stepping
func TestBuildDomainIntegerRange(t *testing.T) {
	testCases := []struct {
		name             string
		start, end, step float64
		want             []float64
	}{
		{"Odd step reaches end", 1, 5, 2, []float64{1, 3, 5}},
		{"Step overshoots end", 1, 6, 2, []float64{1, 3, 5}},
		{"Unit step", 10, 13, 1, []float64{10, 11, 12, 13}},
		{"Single value", 4, 4, 3, []float64{4}},
		{"Negative bounds", -4, 0, 2, []float64{-4, -2, 0}},
		{"End before start", 5, 1, 1, []float64{}},
		{"Span wider than int64", -4611686018427387904, 4611686018427387904, 4611686018427387904, []float64{-4611686018427387904, 0, 4611686018427387904}},
		{"Stops at the int64 maximum", 9223372036854773760, 9223372036854774784, 1024, []float64{9223372036854773760, 9223372036854774784}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			values, err := BuildDomain(RangeInput(Integer, tc.start, tc.end, tc.step))
			if err != nil {
				t.Fatalf("BuildDomain() failed: %v", err)
			}
			if diff := cmp.Diff(tc.want, floats(values)); diff != "" {
				t.Errorf("BuildDomain() mismatch (-want +got):\n%s", diff)
			}
			for _, k := range kinds(values) {
				if k != Integer {
					t.Errorf("integer range produced %v value", k)
				}
			}
		})
	}
}

// TestBuildDomainFloatRange verifies index-based float stepping with rounding
func TestBuildDomainFloatRange(t *testing.T) {
	testCases := []struct {
		name             string
		start, end, step float64
		want             []float64
	}{
		{"Tenths to half", 0.0, 0.5, 0.1, []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5}},
		{"Endpoint lost by accumulation is kept", 0.0, 0.3, 0.1, []float64{0, 0.1, 0.2, 0.3}},
		{"Step does not divide span", 0.0, 1.0, 0.3, []float64{0, 0.3, 0.6, 0.9}},
		{"Quarters across zero", -0.5, 0.5, 0.25, []float64{-0.5, -0.25, 0, 0.25, 0.5}},
		{"Hundredths", 1.0, 1.05, 0.01, []float64{1, 1.01, 1.02, 1.03, 1.04, 1.05}},
		{"End before start", 1.0, 0.5, 0.1, []float64{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			values, err := BuildDomain(RangeInput(Float, tc.start, tc.end, tc.step))
			if err != nil {
				t.Fatalf("BuildDomain() failed: %v", err)
			}
			if diff := cmp.Diff(tc.want, floats(values)); diff != "" {
				t.Errorf("BuildDomain() mismatch (-want +got):\n%s", diff)
			}
			for _, k := range kinds(values) {
				if k != Float {
					t.Errorf("float range produced %v value", k)
				}
			}
		})
	}
}

// TestBuildDomainHugeFloats verifies ranges near the float64 limit terminate
func TestBuildDomainHugeFloats(t *testing.T) {
	testCases := []struct {
		name             string
		start, end, step float64
		minLen, maxLen   int
	}{
		{"Rounding would overflow", 1e304, 1e305, 1e304, 9, 10},
		{"Next value overflows to infinity", 1e308, math.MaxFloat64, 1e308, 1, 1},
		{"Large integral floats", 1e15, 1e15 + 2, 0.5, 5, 5},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			done := make(chan struct{})
			var values []Value
			var err error
			go func() {
				defer close(done)
				values, err = BuildDomain(RangeInput(Float, tc.start, tc.end, tc.step))
			}()

			select {
			case <-done:
			case <-time.After(5 * time.Second):
				t.Fatal("BuildDomain() did not return")
			}

			if err != nil {
				t.Fatalf("BuildDomain() failed: %v", err)
			}
			if len(values) < tc.minLen || len(values) > tc.maxLen {
				t.Fatalf("got %d values, want between %d and %d", len(values), tc.minLen, tc.maxLen)
			}
			if values[0].Float64() != tc.start {
				t.Errorf("first value = %v, want %v", values[0].Float64(), tc.start)
			}
			for i, v := range values {
				if !isFinite(v.Float64()) || v.Float64() > tc.end {
					t.Errorf("value %d = %v is outside [%v, %v]", i, v.Float64(), tc.start, tc.end)
				}
			}
		})
	}
}

// TestBuildDomainInvalid verifies non-positive steps and fractional integers are rejected
func TestBuildDomainInvalid(t *testing.T) {
	testCases := []struct {
		name string
		def  InputDefinition
	}{
		{"Integer zero step", RangeInput(Integer, 1, 5, 0)},
		{"Integer negative step", RangeInput(Integer, 1, 5, -1)},
		{"Float zero step", RangeInput(Float, 0, 1, 0)},
		{"Float negative step", RangeInput(Float, 0, 1, -0.1)},
		{"Fractional integer step", RangeInput(Integer, 1, 5, 1.5)},
		{"Fractional integer start", RangeInput(Integer, 0.5, 5, 1)},
		{"Fractional integer constant", ConstantInput(Integer, 2.5)},
		{"Unknown value type", RangeInput(ValueType(7), 1, 5, 1)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			values, err := BuildDomain(tc.def)
			if err == nil {
				t.Fatalf("BuildDomain() should fail, got %v", floats(values))
			}
			if !errors.Is(err, ErrInvalidDomain) {
				t.Errorf("error = %v, want ErrInvalidDomain", err)
			}
		})
	}
}

// TestBuildDomainsNamesFailingInput verifies the error points at the 1-based input
func TestBuildDomainsNamesFailingInput(t *testing.T) {
	_, err := BuildDomains([]InputDefinition{
		RangeInput(Integer, 1, 3, 1),
		RangeInput(Float, 0, 1, 0),
	})
	if !errors.Is(err, ErrInvalidDomain) {
		t.Fatalf("error = %v, want ErrInvalidDomain", err)
	}
	if got := err.Error(); got[:7] != "input 2" {
		t.Errorf("error = %q, want prefix %q", got, "input 2")
	}
}

// TestParseValueType verifies the accepted spellings
func TestParseValueType(t *testing.T) {
	testCases := []struct {
		in   string
		want ValueType
	}{
		{"", Integer},
		{"int", Integer},
		{"Integer", Integer},
		{"float", Float},
		{" FLOAT ", Float},
		{"double", Float},
	}

	for _, tc := range testCases {
		got, err := ParseValueType(tc.in)
		if err != nil {
			t.Errorf("ParseValueType(%q) failed: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseValueType(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}

	if _, err := ParseValueType("decimal"); err == nil {
		t.Error("ParseValueType(\"decimal\") should fail")
	}
}
