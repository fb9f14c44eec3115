package services

import (
	"testing"
	"time"

	courseModels "campus/models/course"
	orderModels "campus/models/order"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// stuckInVerifying simulates an order whose event processing crashed after
// the VERIFYING transition.
func stuckInVerifying(t *testing.T, db *gorm.DB, ord *orderModels.Order, age time.Duration) {
	t.Helper()
	require.NoError(t, db.Model(&orderModels.Order{}).Where("id = ?", ord.ID).
		Updates(map[string]interface{}{
			"status":     orderModels.OrderVerifying,
			"updated_at": time.Now().Add(-age),
		}).Error)
}

func TestReconcileCompletesStuckOrder(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db, "ama@example.com")
	course, _ := seedCourse(t, db, "go-basics", 15000, 3)
	ord := checkoutOrder(t, db, user.ID, user.Email, course.ID)
	stuckInVerifying(t, db, ord, time.Hour)

	ReconcileStaleOrders(db, successGateway(ord.TotalAmount), 30*time.Minute)

	reloaded, err := GetOrderByReference(db, ord.Reference)
	require.NoError(t, err)
	assert.Equal(t, orderModels.OrderCompleted, reloaded.Status)

	var enrollmentCount int64
	db.Model(&courseModels.Enrollment{}).Where("user_id = ? AND course_id = ?", user.ID, course.ID).Count(&enrollmentCount)
	assert.Equal(t, int64(1), enrollmentCount)
}

func TestReconcileFailsOnAmountMismatch(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db, "ama@example.com")
	course, _ := seedCourse(t, db, "go-basics", 15000, 3)
	ord := checkoutOrder(t, db, user.ID, user.Email, course.ID)
	stuckInVerifying(t, db, ord, time.Hour)

	ReconcileStaleOrders(db, successGateway(ord.TotalAmount-1), 30*time.Minute)

	reloaded, err := GetOrderByReference(db, ord.Reference)
	require.NoError(t, err)
	assert.Equal(t, orderModels.OrderFailed, reloaded.Status)
	assert.Equal(t, orderModels.ReasonAmountMismatch, reloaded.FailureReason)
}

func TestReconcileSkipsFreshAndTransientFailures(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db, "ama@example.com")
	course, _ := seedCourse(t, db, "go-basics", 15000, 3)
	ord := checkoutOrder(t, db, user.ID, user.Email, course.ID)

	// Freshly VERIFYING: not old enough for the sweep
	stuckInVerifying(t, db, ord, time.Minute)
	gw := successGateway(ord.TotalAmount)
	ReconcileStaleOrders(db, gw, 30*time.Minute)
	assert.Zero(t, gw.verifyCalls)

	// Old enough but the gateway is down: left for the next sweep
	stuckInVerifying(t, db, ord, time.Hour)
	ReconcileStaleOrders(db, &fakeGateway{verifyErr: ErrGatewayUnavailable}, 30*time.Minute)

	reloaded, err := GetOrderByReference(db, ord.Reference)
	require.NoError(t, err)
	assert.Equal(t, orderModels.OrderVerifying, reloaded.Status)
}

func TestReconcileRescuesPaidOrderStrandedEarly(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db, "ama@example.com")
	course, _ := seedCourse(t, db, "go-basics", 15000, 3)
	ord := checkoutOrder(t, db, user.ID, user.Email, course.ID)

	// A crash right after order creation left it PENDING; the learner paid
	// at the gateway but no event ever settled it.
	require.NoError(t, db.Model(&orderModels.Order{}).Where("id = ?", ord.ID).
		Updates(map[string]interface{}{
			"status":     orderModels.OrderPending,
			"updated_at": time.Now().Add(-time.Hour),
		}).Error)

	ReconcileStaleOrders(db, successGateway(ord.TotalAmount), 30*time.Minute)

	reloaded, err := GetOrderByReference(db, ord.Reference)
	require.NoError(t, err)
	assert.Equal(t, orderModels.OrderCompleted, reloaded.Status)

	var enrollmentCount int64
	db.Model(&courseModels.Enrollment{}).Where("user_id = ? AND course_id = ?", user.ID, course.ID).Count(&enrollmentCount)
	assert.Equal(t, int64(1), enrollmentCount)
}

func TestReconcileLeavesUnpaidStaleOrdersToExpiry(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db, "ama@example.com")
	course, _ := seedCourse(t, db, "go-basics", 15000, 3)
	ord := checkoutOrder(t, db, user.ID, user.Email, course.ID)

	require.NoError(t, db.Model(&orderModels.Order{}).Where("id = ?", ord.ID).
		Update("updated_at", time.Now().Add(-time.Hour)).Error)

	// The charge was never paid; the sweep must not fail it, expiry owns that
	ReconcileStaleOrders(db, &fakeGateway{charge: &GatewayCharge{Status: "abandoned"}}, 30*time.Minute)

	reloaded, err := GetOrderByReference(db, ord.Reference)
	require.NoError(t, err)
	assert.Equal(t, orderModels.OrderAwaitingPayment, reloaded.Status)
}

func TestWithRetryRecoversFromConflicts(t *testing.T) {
	calls := 0
	err := WithRetry(func() error {
		calls++
		if calls < 3 {
			return ErrConcurrencyConflict
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	// Non-conflict errors surface immediately
	calls = 0
	err = WithRetry(func() error {
		calls++
		return ErrCartEmpty
	})
	assert.ErrorIs(t, err, ErrCartEmpty)
	assert.Equal(t, 1, calls)

	// Persistent conflicts surface after the attempts run out
	err = WithRetry(func() error { return ErrConcurrencyConflict })
	assert.ErrorIs(t, err, ErrConcurrencyConflict)
}
