package services

import (
	"errors"
	"log"
	"time"

	orderModels "campus/models/order"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ExpireStaleOrders fails orders abandoned in PENDING or AWAITING_PAYMENT past
// maxAge. The cart is untouched: it was never cleared, so the learner's
// selection survives for a fresh checkout.
func ExpireStaleOrders(db *gorm.DB, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)

	res := db.Model(&orderModels.Order{}).
		Where("status IN ? AND created_at < ? AND is_deleted = false",
			[]orderModels.OrderStatus{orderModels.OrderPending, orderModels.OrderAwaitingPayment},
			cutoff).
		Updates(map[string]interface{}{
			"status":         orderModels.OrderFailed,
			"failure_reason": orderModels.ReasonExpired,
		})
	return res.RowsAffected, res.Error
}

// ReconcileStaleOrders re-verifies stale non-terminal orders against the
// gateway before the expiry sweep would declare them failed. This rescues
// orders stranded anywhere on the pre-completion path: stuck in VERIFYING
// after a verify-call crash, or still PENDING/AWAITING_PAYMENT because the
// paid-for event was never applied (a paid charge must win over expiry).
// Completion here runs the same atomic completion path as event processing,
// guarded by the row lock and the status check.
func ReconcileStaleOrders(db *gorm.DB, gw Gateway, olderThan time.Duration) {
	cutoff := time.Now().Add(-olderThan)

	var refs []string
	err := db.Model(&orderModels.Order{}).
		Where("status IN ? AND updated_at < ? AND is_deleted = false",
			[]orderModels.OrderStatus{orderModels.OrderPending, orderModels.OrderAwaitingPayment, orderModels.OrderVerifying},
			cutoff).
		Limit(100).
		Pluck("reference", &refs).Error
	if err != nil {
		log.Printf("[RECONCILE] Failed to list stale orders: %v", err)
		return
	}

	for _, ref := range refs {
		if err := reconcileOne(db, gw, ref); err != nil {
			log.Printf("[RECONCILE] Order %s: %v", ref, err)
		}
	}
}

func reconcileOne(db *gorm.DB, gw Gateway, reference string) error {
	charge, err := gw.Verify(reference)
	if err != nil {
		// Transient; the next sweep retries before expiry fails the order.
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		ord, err := lockOrderByReference(tx, reference)
		if err != nil {
			return err
		}
		if ord.Status.Terminal() {
			return nil
		}

		switch {
		case charge.Status == GatewayStatusSuccess && charge.Amount == ord.TotalAmount:
			log.Printf("[RECONCILE] Completing order %s from gateway verify", reference)
			return completeOrder(tx, ord, charge)
		case charge.Status == GatewayStatusSuccess:
			return tx.Model(ord).Updates(map[string]interface{}{
				"status":         orderModels.OrderFailed,
				"failure_reason": orderModels.ReasonAmountMismatch,
			}).Error
		case ord.Status == orderModels.OrderVerifying:
			return tx.Model(ord).Updates(map[string]interface{}{
				"status":         orderModels.OrderFailed,
				"failure_reason": orderModels.ReasonGatewayFailed,
			}).Error
		default:
			// PENDING/AWAITING and not paid: nothing to settle, the expiry
			// sweep owns the timeout.
			return nil
		}
	})
}

func lockOrderByReference(tx *gorm.DB, reference string) (*orderModels.Order, error) {
	var ord orderModels.Order
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Lines").
		Where("reference = ? AND is_deleted = false", reference).
		First(&ord).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownReference
		}
		if isLockConflict(err) {
			return nil, ErrConcurrencyConflict
		}
		return nil, err
	}
	return &ord, nil
}
