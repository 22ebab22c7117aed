package measure

import (
	"errors"
	"fmt"

	"github.com/ironsheep/label-measure/internal/operator"
	"github.com/ironsheep/label-measure/internal/selection"
)

// FailureType categorises why a measurement could not be completed.
type FailureType string

const (
	// FailureExhausted means no region was confirmed: every candidate was
	// rejected or none were found.
	FailureExhausted FailureType = "exhausted"

	// FailureOperator means the operator's input ended mid-measurement.
	FailureOperator FailureType = "operator"

	// FailureBackend covers image and vision failures.
	FailureBackend FailureType = "backend"
)

// Failure is the error returned by Measurer. Message is meant for the
// operator.
type Failure struct {
	Type    FailureType `json:"type"`
	Message string      `json:"message"`
	Cause   error       `json:"-"`
}

// Error implements the error interface
func (f *Failure) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", f.Type, f.Message, f.Cause)
	}
	return fmt.Sprintf("%s: %s", f.Type, f.Message)
}

// Unwrap returns the underlying error
func (f *Failure) Unwrap() error {
	return f.Cause
}

// IsType reports whether err is a Failure of type t.
func IsType(err error, t FailureType) bool {
	var f *Failure
	return errors.As(err, &f) && f.Type == t
}

func newFailure(t FailureType, message string, cause error) *Failure {
	return &Failure{Type: t, Message: message, Cause: cause}
}

// classify turns an error from a pipeline step into a Failure.
func classify(step string, err error) *Failure {
	switch {
	case errors.Is(err, selection.ErrExhausted):
		return newFailure(FailureExhausted, step+": every candidate was rejected", err)
	case errors.Is(err, operator.ErrInputClosed):
		return newFailure(FailureOperator, step+": operator input ended", err)
	default:
		return newFailure(FailureBackend, step+" failed", err)
	}
}
