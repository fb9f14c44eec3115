package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"log"
	"time"

	courseModels "campus/models/course"
	orderModels "campus/models/order"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EventInput is one inbound payment notification: a gateway webhook delivery
// or a redirect-triggered verify, reduced to the fields the engine acts on.
// RawBody must be the exact bytes received on the wire.
type EventInput struct {
	Reference string
	EventType string
	Amount    int64 // minor units, as claimed by the event
	Status    string
	RawBody   []byte
}

// EventOutcome is what processing an inbound event produced
type EventOutcome struct {
	OrderStatus orderModels.OrderStatus   `json:"order_status"`
	Reason      orderModels.FailureReason `json:"reason,omitempty"`
	Duplicate   bool                      `json:"duplicate"`
}

// VerifyWebhookSignature recomputes the HMAC-SHA512 of the raw request body
// with the shared secret and compares it against the transmitted hex
// signature in constant time, returning ErrSignatureInvalid on mismatch.
// Must be called on the exact bytes received, before any parsing-driven side
// effects.
func VerifyWebhookSignature(rawBody []byte, signature, secret string) error {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrSignatureInvalid
	}
	return nil
}

// EventFingerprint identifies one external event delivery: the same payload
// redelivered hashes the same, a materially different payload for the same
// reference does not.
func EventFingerprint(reference string, rawBody []byte) string {
	h := sha256.New()
	h.Write([]byte(reference))
	h.Write(rawBody)
	return hex.EncodeToString(h.Sum(nil))
}

// FailOrderByReference marks the order FAILED with the given reason, used for
// integrity failures detected before the event can be trusted (bad
// signature). Terminal orders are left untouched.
func FailOrderByReference(db *gorm.DB, reference string, reason orderModels.FailureReason) error {
	ord, err := GetOrderByReference(db, reference)
	if err != nil {
		return err
	}
	failOrder(db, ord, reason)
	return nil
}

// ProcessPaymentEvent drives an order through verification from one inbound
// event. The caller must have validated the webhook signature already.
//
// Guarantees, in order:
//   - a fingerprint already in the ledger replays its recorded outcome with
//     zero side effects, whatever the delivery count or ordering;
//   - completion requires the gateway's verify endpoint to independently
//     confirm reference, amount and success — the event alone never suffices;
//   - the COMPLETED transition, enrollment creation for every order line, the
//     cart clear and the ledger record commit atomically.
func ProcessPaymentEvent(db *gorm.DB, gw Gateway, in EventInput) (*EventOutcome, error) {
	fp := EventFingerprint(in.Reference, in.RawBody)

	// Fast path for redeliveries; the unique index below still catches the
	// race where two deliveries pass this check together.
	if outcome := recordedOutcome(db, in.Reference, fp); outcome != nil {
		return outcome, nil
	}

	ord, err := GetOrderByReference(db, in.Reference)
	if err != nil {
		if errors.Is(err, ErrUnknownReference) {
			recordEvent(db, in, fp, orderModels.EventOutcomeUnknownReference)
			return nil, ErrUnknownReference
		}
		return nil, err
	}

	if ord.Status.Terminal() {
		// A genuinely new event for a settled order is rejected, recorded so
		// its redeliveries become cheap no-ops, and left unapplied.
		recordEvent(db, in, fp, orderModels.EventOutcomeRejectedTerminal)
		log.Printf("[PAYMENT] Rejected event %s for terminal order %s (status %s)", in.EventType, in.Reference, ord.Status)
		return nil, ErrInvalidTransition
	}

	// Independent confirmation before any state moves. Kept outside the
	// transaction so a slow gateway never holds row locks.
	charge, verifyErr := gw.Verify(in.Reference)

	var outcome *EventOutcome
	var integrityErr error
	txErr := db.Transaction(func(tx *gorm.DB) error {
		var locked orderModels.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Lines").
			Where("id = ?", ord.ID).
			First(&locked).Error; err != nil {
			if isLockConflict(err) {
				return ErrConcurrencyConflict
			}
			return err
		}

		// Atomic check-and-insert against the ledger: a concurrent delivery
		// of the same fingerprint blocks on the unique index and surfaces
		// here as a duplicate.
		evt := orderModels.PaymentEvent{
			Reference:   in.Reference,
			Fingerprint: fp,
			EventType:   in.EventType,
			Outcome:     orderModels.EventOutcomeProcessing,
			ProcessedAt: time.Now(),
		}
		if err := tx.Create(&evt).Error; err != nil {
			if isDuplicateKey(err) {
				return ErrDuplicateEvent
			}
			return err
		}

		if locked.Status.Terminal() {
			// Lost a race with another event that settled the order.
			return ErrInvalidTransition
		}
		if locked.Status != orderModels.OrderAwaitingPayment && locked.Status != orderModels.OrderVerifying {
			return ErrInvalidTransition
		}

		if locked.Status == orderModels.OrderAwaitingPayment {
			if err := tx.Model(&locked).Update("status", orderModels.OrderVerifying).Error; err != nil {
				return err
			}
			locked.Status = orderModels.OrderVerifying
		}

		var failReason orderModels.FailureReason
		switch {
		case verifyErr != nil && errors.Is(verifyErr, ErrGatewayTimeout):
			failReason, integrityErr = orderModels.ReasonGatewayTimeout, ErrGatewayTimeout
		case verifyErr != nil:
			failReason, integrityErr = orderModels.ReasonGatewayUnavailable, ErrGatewayUnavailable
		case in.Status != GatewayStatusSuccess || charge.Status != GatewayStatusSuccess:
			failReason = orderModels.ReasonGatewayFailed
		case in.Amount != locked.TotalAmount || charge.Amount != locked.TotalAmount:
			failReason, integrityErr = orderModels.ReasonAmountMismatch, ErrAmountMismatch
		}

		if failReason != "" {
			// The failure transition and ledger record must commit; the
			// integrity error is surfaced after the transaction.
			if err := tx.Model(&locked).Updates(map[string]interface{}{
				"status":         orderModels.OrderFailed,
				"failure_reason": failReason,
			}).Error; err != nil {
				return err
			}
			if err := tx.Model(&evt).Update("outcome", orderModels.EventOutcomeFailed).Error; err != nil {
				return err
			}
			outcome = &EventOutcome{OrderStatus: orderModels.OrderFailed, Reason: failReason}
			return nil
		}

		if err := completeOrder(tx, &locked, charge); err != nil {
			return err
		}
		if err := tx.Model(&evt).Update("outcome", orderModels.EventOutcomeCompleted).Error; err != nil {
			return err
		}
		outcome = &EventOutcome{OrderStatus: orderModels.OrderCompleted}
		return nil
	})

	if txErr != nil {
		if errors.Is(txErr, ErrDuplicateEvent) {
			if rec := recordedOutcome(db, in.Reference, fp); rec != nil {
				return rec, nil
			}
			return &EventOutcome{OrderStatus: ord.Status, Duplicate: true}, nil
		}
		if isLockConflict(txErr) {
			return nil, ErrConcurrencyConflict
		}
		return nil, txErr
	}

	return outcome, integrityErr
}

// completeOrder applies the COMPLETED transition and its side effects inside
// tx: the status flip, one enrollment per order line (get-or-create, so a
// re-purchase is a no-op grant) and the cart clear. Partial application is
// impossible: a crash rolls back all of it.
func completeOrder(tx *gorm.DB, ord *orderModels.Order, charge *GatewayCharge) error {
	completedAt := time.Now()
	updates := map[string]interface{}{
		"status":       orderModels.OrderCompleted,
		"completed_at": completedAt,
	}
	if charge != nil {
		updates["gateway_txn_id"] = charge.TransactionID
		updates["payment_channel"] = charge.Channel
	}
	if err := tx.Model(ord).Updates(updates).Error; err != nil {
		return err
	}
	ord.Status = orderModels.OrderCompleted
	ord.CompletedAt = &completedAt

	for _, line := range ord.Lines {
		enrollment := courseModels.Enrollment{
			UserID:   ord.UserID,
			CourseID: line.CourseID,
		}
		err := tx.Where(courseModels.Enrollment{UserID: ord.UserID, CourseID: line.CourseID}).
			FirstOrCreate(&enrollment).Error
		if err != nil && !isDuplicateKey(err) {
			return err
		}
	}

	var cart orderModels.Cart
	if err := tx.Where("user_id = ? AND is_deleted = false", ord.UserID).First(&cart).Error; err == nil {
		if err := clearCart(tx, cart.ID); err != nil {
			return err
		}
	}

	return nil
}

// recordedOutcome replays the ledger entry for a fingerprint, if any
func recordedOutcome(db *gorm.DB, reference, fingerprint string) *EventOutcome {
	var evt orderModels.PaymentEvent
	err := db.Where("reference = ? AND fingerprint = ?", reference, fingerprint).First(&evt).Error
	if err != nil {
		return nil
	}

	log.Printf("[PAYMENT] Duplicate event for %s (fingerprint %.12s), replaying recorded outcome %s", reference, fingerprint, evt.Outcome)

	out := &EventOutcome{Duplicate: true}
	switch evt.Outcome {
	case orderModels.EventOutcomeCompleted:
		out.OrderStatus = orderModels.OrderCompleted
	case orderModels.EventOutcomeFailed:
		out.OrderStatus = orderModels.OrderFailed
	default:
		var ord orderModels.Order
		if err := db.Where("reference = ?", reference).First(&ord).Error; err == nil {
			out.OrderStatus = ord.Status
		}
	}
	return out
}

// recordEvent writes a ledger row outside any order transaction, for events
// that never reach one (unknown reference, terminal rejection). Duplicate
// inserts are benign.
func recordEvent(db *gorm.DB, in EventInput, fingerprint, outcome string) {
	evt := orderModels.PaymentEvent{
		Reference:   in.Reference,
		Fingerprint: fingerprint,
		EventType:   in.EventType,
		Outcome:     outcome,
		ProcessedAt: time.Now(),
	}
	if err := db.Create(&evt).Error; err != nil && !isDuplicateKey(err) {
		log.Printf("[PAYMENT] Failed to record event for %s: %v", in.Reference, err)
	}
}

// RefundOrder moves a completed order to REFUNDED. Enrollments and
// certificates are left in place; the flag timestamp marks the order for
// manual follow-up.
func RefundOrder(db *gorm.DB, orderID uint) (*orderModels.Order, error) {
	var ord orderModels.Order
	if err := db.Where("id = ? AND is_deleted = false", orderID).First(&ord).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	res := db.Model(&orderModels.Order{}).
		Where("id = ? AND status = ?", orderID, orderModels.OrderCompleted).
		Updates(map[string]interface{}{
			"status":            orderModels.OrderRefunded,
			"refund_flagged_at": time.Now(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrInvalidTransition
	}

	if err := db.First(&ord, orderID).Error; err != nil {
		return nil, err
	}
	return &ord, nil
}
