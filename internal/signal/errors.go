package signal

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every *Error unwraps to exactly one of these so callers can
// decide whether a failure is fatal to the whole run or only to one intersection.
var (
	// ErrConfiguration marks invalid plans, model parameters or generator settings.
	ErrConfiguration = errors.New("configuration error")
	// ErrDataSufficiency marks inputs that cannot support the requested analysis.
	ErrDataSufficiency = errors.New("data sufficiency error")
)

// Specific causes.
var (
	ErrInvalidCycleLength     = errors.New("cycle length must be positive and finite")
	ErrInvalidLostTime        = errors.New("lost time must be non-negative and below the cycle length")
	ErrNegativeGreen          = errors.New("green time must be non-negative")
	ErrGreenExceedsCycle      = errors.New("green time exceeds cycle length")
	ErrPlanOverCommitted      = errors.New("green times plus lost time exceed cycle length")
	ErrInvalidBlendWeight     = errors.New("blend weight must be within [0, 1]")
	ErrInvalidModelParameter  = errors.New("invalid delay model parameter")
	ErrInvalidGeneratorConfig = errors.New("invalid generator configuration")
	ErrInfeasibleMinimumGreen = errors.New("minimum green for every approach exceeds available green time")
	ErrNegativeVolume         = errors.New("volume must be non-negative")

	ErrNoVolume         = errors.New("no observed volume")
	ErrApproachMismatch = errors.New("approach sets differ")
	ErrDuplicateRecord  = errors.New("duplicate (approach, interval) record")
	ErrInvalidRecord    = errors.New("invalid volume record")
)

// Error carries enough context to diagnose a failed computation without
// re-deriving state: the operation, the intersection and a free-form detail
// (typically the offending plan or volume).
type Error struct {
	Kind           error
	Op             string
	IntersectionID string
	Detail         string
	Err            error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("signal: ")
	b.WriteString(e.Op)
	if e.IntersectionID != "" {
		b.WriteString(": intersection ")
		b.WriteString(e.IntersectionID)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if e.Detail != "" {
		b.WriteString(" (")
		b.WriteString(e.Detail)
		b.WriteString(")")
	}
	return b.String()
}

// Unwrap exposes both the kind and the specific cause to errors.Is.
func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func configError(op, intersectionID string, cause error, format string, args ...any) *Error {
	return &Error{
		Kind:           ErrConfiguration,
		Op:             op,
		IntersectionID: intersectionID,
		Detail:         fmt.Sprintf(format, args...),
		Err:            cause,
	}
}

func dataError(op, intersectionID string, cause error, format string, args ...any) *Error {
	return &Error{
		Kind:           ErrDataSufficiency,
		Op:             op,
		IntersectionID: intersectionID,
		Detail:         fmt.Sprintf(format, args...),
		Err:            cause,
	}
}

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool { return errors.Is(err, ErrConfiguration) }

// IsDataSufficiency reports whether err is a data-sufficiency error.
func IsDataSufficiency(err error) bool { return errors.Is(err, ErrDataSufficiency) }
