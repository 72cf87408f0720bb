package apperr

import "errors"

var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrUnauthenticated     = errors.New("user not authenticated")
	ErrForbidden           = errors.New("wallet belongs to another account")
	ErrNotFound            = errors.New("not found")
	ErrVerificationFailed  = errors.New("verification failed")
	ErrPersistence         = errors.New("persistence failure")
	ErrMaxAttemptsExceeded = errors.New("maximum quiz attempts reached")

	// ErrInvalidTransition marks a lifecycle move the state machine does not allow.
	ErrInvalidTransition = errors.New("invalid state transition")
)

// Retryable reports whether the caller may repeat the operation unchanged.
func Retryable(err error) bool {
	return errors.Is(err, ErrPersistence) || errors.Is(err, ErrVerificationFailed)
}
