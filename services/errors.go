// Package services holds the transactional core of the platform: cart
// mutation, the order workflow engine, payment event reconciliation, lesson
// progress tracking and certificate issuance. Controllers stay thin and map
// these errors to HTTP responses.
package services

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

var (
	// Cart rejections, no state change
	ErrAlreadyEnrolled = errors.New("already enrolled in this course")
	ErrAlreadyInCart   = errors.New("course already in cart")
	ErrCartEmpty       = errors.New("cart is empty")

	// Payment integrity failures, terminal for the order
	ErrSignatureInvalid = errors.New("webhook signature invalid")
	ErrAmountMismatch   = errors.New("paid amount does not match order total")
	ErrUnknownReference = errors.New("unknown payment reference")

	// Transient gateway failures; the order fails, the learner retries with
	// a new checkout
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrGatewayTimeout     = errors.New("payment gateway timed out")

	// Not an error in effect: the recorded outcome is replayed
	ErrDuplicateEvent = errors.New("payment event already processed")

	// A new event arrived for an order that is already terminal
	ErrInvalidTransition = errors.New("invalid order state transition")

	// Lock contention; retried with backoff at the calling layer
	ErrConcurrencyConflict = errors.New("concurrent modification, retry")

	ErrNotFound   = errors.New("record not found")
	ErrValidation = errors.New("invalid input")
)

// isDuplicateKey reports whether err came from a unique index violation.
// The postgres driver translates these with TranslateError; the sqlite driver
// used in tests does not, hence the string fallback.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint failed")
}

// isLockConflict reports whether err is a serialization or lock acquisition
// failure worth retrying.
func isLockConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "could not serialize") ||
		strings.Contains(msg, "deadlock detected") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

// WithRetry runs fn, retrying up to three times with linear backoff when it
// reports lock contention. Callers see ErrConcurrencyConflict only if every
// attempt contended.
func WithRetry(fn func() error) error {
	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, ErrConcurrencyConflict) {
			return err
		}
		time.Sleep(time.Duration(attempt) * 50 * time.Millisecond)
	}
	return err
}
