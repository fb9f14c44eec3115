package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	courseModels "campus/models/course"
	orderModels "campus/models/order"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CheckoutResult carries the created order and the gateway redirect URL
type CheckoutResult struct {
	Order            *orderModels.Order `json:"order"`
	AuthorizationURL string             `json:"authorization_url"`
}

// NewOrderReference builds a unique external payment reference
func NewOrderReference() string {
	ts := time.Now().Format("20060102150405")
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", ts, id)
}

// Checkout turns the learner's cart into an order awaiting payment.
//
// The order and its line snapshots are created in one transaction with the
// cart row locked, so two concurrent checkouts from the same learner cannot
// both claim the same cart items. The cart itself is NOT cleared here: it
// survives until the order completes, so a failed payment loses nothing.
func Checkout(db *gorm.DB, gw Gateway, userID uint, email, currency string) (*CheckoutResult, error) {
	var ord orderModels.Order

	err := db.Transaction(func(tx *gorm.DB) error {
		cart, err := lockCart(tx, userID)
		if err != nil {
			return err
		}
		if len(cart.Items) == 0 {
			return ErrCartEmpty
		}

		// Reject a checkout racing a just-completed one: an item whose course
		// is now enrolled means another order already claimed this selection.
		var enrolledCount int64
		courseIDs := make([]uint, 0, len(cart.Items))
		for _, item := range cart.Items {
			courseIDs = append(courseIDs, item.CourseID)
		}
		if err := tx.Model(&courseModels.Enrollment{}).
			Where("user_id = ? AND course_id IN ? AND is_deleted = false", userID, courseIDs).
			Count(&enrolledCount).Error; err != nil {
			return err
		}
		if enrolledCount > 0 {
			return ErrAlreadyEnrolled
		}

		ord = orderModels.Order{
			UserID:    userID,
			Reference: NewOrderReference(),
			Currency:  currency,
			Status:    orderModels.OrderPending,
		}

		// Snapshot catalog prices into immutable lines; later catalog price
		// changes never touch these rows.
		var total int64
		for _, item := range cart.Items {
			ord.Lines = append(ord.Lines, orderModels.OrderLine{
				CourseID:  item.CourseID,
				UnitPrice: item.Course.Price,
			})
			total += item.Course.Price
		}
		ord.TotalAmount = total

		if err := tx.Create(&ord).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		if isLockConflict(err) {
			return nil, ErrConcurrencyConflict
		}
		return nil, err
	}

	// The order is durable; now reserve the charge with the gateway.
	authURL, err := gw.Initialize(ord.Reference, ord.TotalAmount, email)
	if err != nil {
		reason := orderModels.ReasonGatewayUnavailable
		if errors.Is(err, ErrGatewayTimeout) {
			reason = orderModels.ReasonGatewayTimeout
		}
		failOrder(db, &ord, reason)
		log.Printf("[CHECKOUT] Gateway initialize failed for %s: %v", ord.Reference, err)
		return nil, err
	}

	if err := transition(db, &ord, orderModels.OrderPending, orderModels.OrderAwaitingPayment); err != nil {
		return nil, err
	}

	return &CheckoutResult{Order: &ord, AuthorizationURL: authURL}, nil
}

// transition moves an order between states with a guarded update, enforcing
// monotonic transitions even under concurrent writers.
func transition(db *gorm.DB, ord *orderModels.Order, from, to orderModels.OrderStatus) error {
	res := db.Model(&orderModels.Order{}).
		Where("id = ? AND status = ?", ord.ID, from).
		Update("status", to)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInvalidTransition
	}
	ord.Status = to
	return nil
}

// failOrder marks a non-terminal order FAILED with the given reason. Guarded:
// a terminal order is never touched.
func failOrder(db *gorm.DB, ord *orderModels.Order, reason orderModels.FailureReason) {
	res := db.Model(&orderModels.Order{}).
		Where("id = ? AND status IN ?", ord.ID, []orderModels.OrderStatus{
			orderModels.OrderPending, orderModels.OrderAwaitingPayment, orderModels.OrderVerifying,
		}).
		Updates(map[string]interface{}{"status": orderModels.OrderFailed, "failure_reason": reason})
	if res.Error != nil {
		log.Printf("[ORDER] Failed to mark order %s as failed: %v", ord.Reference, res.Error)
		return
	}
	if res.RowsAffected > 0 {
		ord.Status = orderModels.OrderFailed
		ord.FailureReason = reason
	}
}

// GetOrderByReference loads an order with its lines
func GetOrderByReference(db *gorm.DB, reference string) (*orderModels.Order, error) {
	var ord orderModels.Order
	err := db.Where("reference = ? AND is_deleted = false", reference).
		Preload("Lines").Preload("Lines.Course").
		First(&ord).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownReference
		}
		return nil, err
	}
	return &ord, nil
}
