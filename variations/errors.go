package variations

import "errors"

// Error kinds reported by Validate, BuildDomain and Generate.
// Callers match them with errors.Is; messages carry the offending field.
var (
	// ErrMissingField: indicator name, case or input list is empty
	ErrMissingField = errors.New("missing field")

	// ErrInvalidDomain: a ranged input cannot produce a finite domain
	ErrInvalidDomain = errors.New("invalid domain")

	// ErrIndexOutOfRange: a condition points outside [1, N]
	ErrIndexOutOfRange = errors.New("condition index out of range")

	// ErrInvalidCondition: negative minimum difference or unknown relation
	ErrInvalidCondition = errors.New("invalid condition")
)

// IsPrecondition reports whether err is a request problem the caller can fix,
// as opposed to an internal failure.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrInvalidDomain) ||
		errors.Is(err, ErrIndexOutOfRange) ||
		errors.Is(err, ErrInvalidCondition)
}
