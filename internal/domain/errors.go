package domain

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrValidation           = errors.New("validation failed")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNoPatientMessage     = errors.New("conversation has no patient message")
	ErrDuplicateReply       = errors.New("reply already recorded")
	ErrReplyCheckRunning    = errors.New("reply check already running")
	ErrMailDisabled         = errors.New("email is not configured")
	ErrAlreadyResolved      = errors.New("already resolved")
	ErrConflict             = errors.New("already exists")
)

// ValidationError carries the field-level reason for a rejected request.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Unwrap lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Invalid returns a ValidationError with the given reason.
func Invalid(reason string) error {
	return &ValidationError{Reason: reason}
}
