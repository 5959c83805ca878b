package domain

import "errors"

var (
	ErrViewingNotFound         = errors.New("viewing not found")
	ErrCircleNotFound          = errors.New("circle not found")
	ErrInvalidCursor           = errors.New("invalid cursor")
	ErrInvalidID               = errors.New("invalid id")
	ErrForbidden               = errors.New("forbidden")
	ErrNotCircleMember         = errors.New("not a member of circle")
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
	ErrIdempotencyConflict     = errors.New("idempotency key used by another owner")
)

// FieldError is a validation failure tied to a single input field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}
