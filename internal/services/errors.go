// Package services implements the business logic of payment reconciliation
// and booking fulfillment. This file centralizes common service-level error
// values so that they can be consistently returned by service methods and
// checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer. They fall into two families:
//
//   - Integrity errors (ErrServiceMismatch, ErrSlotCancelled,
//     ErrBookingNotFound): the event and the stored data disagree. Retrying
//     the same event cannot succeed; the mismatch needs investigation.
//   - Business conflict (ErrCapacityExceeded): the payment was collected for
//     a seat that no longer exists. Resolution is a manual refund workflow,
//     not a retry.
//
// Every one of them aborts and rolls back the entire reconciliation
// transaction; none leaves partial state behind.
package services

import "errors"

var (
	// ErrServiceMismatch indicates that the availability slot referenced by
	// the payment event belongs to a different service than the event claims.
	ErrServiceMismatch = errors.New("availability slot does not belong to service")

	// ErrSlotCancelled indicates a payment event targeting a cancelled
	// availability slot; no booking may be synthesized on it.
	ErrSlotCancelled = errors.New("availability slot is cancelled")

	// ErrCapacityExceeded indicates that confirming one more booking would
	// exceed the slot capacity. The payment stands but the seat does not.
	ErrCapacityExceeded = errors.New("availability slot capacity exceeded")

	// ErrBookingNotFound indicates that no booking matches the event and its
	// metadata is insufficient to synthesize one.
	ErrBookingNotFound = errors.New("booking not found")
)

// IsFatalReconcileError reports whether err is one of the typed domain
// errors for which redelivering the same event is pointless.
func IsFatalReconcileError(err error) bool {
	return errors.Is(err, ErrServiceMismatch) ||
		errors.Is(err, ErrSlotCancelled) ||
		errors.Is(err, ErrCapacityExceeded) ||
		errors.Is(err, ErrBookingNotFound)
}
