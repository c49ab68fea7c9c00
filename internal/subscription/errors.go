package subscription

import "errors"

var (
	// ErrOrderCreationFailed wraps transport or provider errors during order
	// creation. Nothing was persisted; the caller may retry manually.
	ErrOrderCreationFailed = errors.New("order creation failed")

	// ErrInvalidSignature means the callback signature did not match. The
	// callback is rejected and must be treated as a tampering attempt, not a
	// transient fault.
	ErrInvalidSignature = errors.New("invalid payment signature")

	// ErrAmountMismatch means the callback's amount disagrees with the
	// configured plan price. Guards against replaying a cheaper order's
	// signature against a more expensive plan.
	ErrAmountMismatch = errors.New("payment amount mismatch")

	// ErrActivationPersist means the payment was verified but the profile
	// update failed. Money is captured and entitlement was not granted, so
	// operators must reconcile manually; it must never be conflated with a
	// signature failure.
	ErrActivationPersist = errors.New("activation persist failed")

	// ErrProfileNotFound means no profile row matched the user id.
	ErrProfileNotFound = errors.New("profile not found")
)
