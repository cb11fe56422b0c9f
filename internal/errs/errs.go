// Package errs defines the error kinds surfaced by the work-log engine.
// Callers wrap one of the sentinels with fmt.Errorf("%w: ...") and test
// for the kind with errors.Is.
package errs

import "errors"

var (
	// ErrValidation is returned when a record is rejected before any remote call.
	ErrValidation = errors.New("validation error")
	// ErrAuth is reported when anonymous sign-in fails.
	ErrAuth = errors.New("authentication error")
	// ErrPersistence is returned when a remote write or delete fails, or is
	// attempted without an identity.
	ErrPersistence = errors.New("persistence error")
	// ErrSubscription is reported when live snapshot delivery fails.
	ErrSubscription = errors.New("subscription error")
)
