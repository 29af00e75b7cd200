package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrTransient        = errors.New("transient backend error, try again")
)

type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindQuota
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindQuota:
		return "quota"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// ValidationError reports caller-supplied data that cannot be stored.
type ValidationError struct {
	Field  string
	Reason string
}

func Invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// BackendError carries a structured classification of a store failure so
// callers never have to inspect error text.
type BackendError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *BackendError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s backend error", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

func (e *BackendError) Is(target error) bool {
	switch target {
	case ErrTransient:
		return e.Kind == KindQuota
	case ErrStoreUnavailable:
		return e.Kind == KindUnavailable
	}
	return false
}

func Quota(op string, err error) error {
	return &BackendError{Kind: KindQuota, Op: op, Err: err}
}

func Unavailable(op string, err error) error {
	return &BackendError{Kind: KindUnavailable, Op: op, Err: err}
}

func Backend(op string, err error) error {
	return &BackendError{Kind: KindUnknown, Op: op, Err: err}
}

// KindOf reports the classification of err, looking through wrapping.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var be *BackendError
	if errors.As(err, &be) {
		return be.Kind
	}
	switch {
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrTransient):
		return KindQuota
	case errors.Is(err, ErrStoreUnavailable):
		return KindUnavailable
	}
	return KindUnknown
}
