package errdefs

import (
	"errors"
	"fmt"
)

var (
	// ErrCourseNotFound covers both "no such course" and "course not visible
	// to this viewer" so callers cannot probe for existence.
	ErrCourseNotFound  = errors.New("course not found")
	ErrValidation      = errors.New("validation failed")
	ErrAlreadyEnrolled = errors.New("already enrolled")
	ErrCourseEnded     = errors.New("course has ended")
	ErrQuotaExceeded   = errors.New("attachment quota exceeded")
	// ErrUploadFailure means the blob write and the metadata commit got out
	// of step (blob stored but metadata unreadable, or vice versa).
	ErrUploadFailure = errors.New("upload failed")
	ErrFileNotFound  = errors.New("file not found")
)

// QuotaKind distinguishes the two attachment ceilings.
type QuotaKind string

const (
	QuotaCount QuotaKind = "count"
	QuotaSize  QuotaKind = "size"
)

// QuotaError reports which attachment ceiling was hit. It unwraps to
// ErrQuotaExceeded so callers can match the family with errors.Is.
type QuotaError struct {
	Kind  QuotaKind
	Limit int64
}

func (e *QuotaError) Error() string {
	switch e.Kind {
	case QuotaCount:
		return fmt.Sprintf("attachment count limit reached (max %d files)", e.Limit)
	case QuotaSize:
		return fmt.Sprintf("attachment size limit reached (max %d bytes)", e.Limit)
	}
	return "attachment quota exceeded"
}

func (e *QuotaError) Unwrap() error { return ErrQuotaExceeded }

// Validationf wraps ErrValidation with a message for the user.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
