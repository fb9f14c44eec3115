package order

import (
	"time"

	"campus/models"
	courseModels "campus/models/course"

	"gorm.io/gorm"
)

// OrderStatus defines where a checkout attempt sits in its state machine.
// Transitions are monotonic: PENDING -> AWAITING_PAYMENT -> VERIFYING ->
// COMPLETED | FAILED, plus admin-only COMPLETED -> REFUNDED.
type OrderStatus string

const (
	OrderPending         OrderStatus = "PENDING"
	OrderAwaitingPayment OrderStatus = "AWAITING_PAYMENT"
	OrderVerifying       OrderStatus = "VERIFYING"
	OrderCompleted       OrderStatus = "COMPLETED"
	OrderFailed          OrderStatus = "FAILED"
	OrderRefunded        OrderStatus = "REFUNDED"
)

// Terminal reports whether no further payment processing may touch the order.
func (s OrderStatus) Terminal() bool {
	return s == OrderCompleted || s == OrderFailed || s == OrderRefunded
}

// FailureReason records why an order reached FAILED
type FailureReason string

const (
	ReasonGatewayUnavailable FailureReason = "GATEWAY_UNAVAILABLE"
	ReasonGatewayTimeout     FailureReason = "GATEWAY_TIMEOUT"
	ReasonGatewayFailed      FailureReason = "GATEWAY_FAILED"
	ReasonSignatureInvalid   FailureReason = "SIGNATURE_INVALID"
	ReasonAmountMismatch     FailureReason = "AMOUNT_MISMATCH"
	ReasonExpired            FailureReason = "EXPIRED"
)

// Order is one checkout attempt. TotalAmount always equals the sum of its
// line snapshot prices, in minor currency units.
type Order struct {
	gorm.Model
	UserID        uint          `json:"user_id" gorm:"index;not null"`
	Reference     string        `json:"reference" gorm:"type:varchar(100);uniqueIndex;not null"`
	TotalAmount   int64         `json:"total_amount" gorm:"not null"`
	Currency      string        `json:"currency" gorm:"type:varchar(10);default:'GHS'"`
	Status        OrderStatus   `json:"status" gorm:"type:varchar(20);index;default:'PENDING'"`
	FailureReason FailureReason `json:"failure_reason" gorm:"type:varchar(30)"`

	// Gateway details captured at verification time
	GatewayTxnID   string `json:"gateway_txn_id" gorm:"type:varchar(100)"`
	PaymentChannel string `json:"payment_channel" gorm:"type:varchar(50)"`

	CompletedAt *time.Time `json:"completed_at"`
	// Set on refund; refunds never revoke enrollments automatically, this
	// flags the order for manual follow-up.
	RefundFlaggedAt *time.Time `json:"refund_flagged_at"`
	IsDeleted       bool       `gorm:"default:false"`

	Lines []OrderLine `json:"lines,omitempty" gorm:"foreignKey:OrderID"`
	User  models.User `gorm:"foreignKey:UserID" json:"-"`
}

// OrderLine is an immutable price snapshot of a course at order time.
// Never updated, even when the catalog price changes later.
type OrderLine struct {
	gorm.Model
	OrderID   uint  `json:"order_id" gorm:"index;not null"`
	CourseID  uint  `json:"course_id" gorm:"index;not null"`
	UnitPrice int64 `json:"unit_price" gorm:"not null"` // minor units at capture time

	Course courseModels.Course `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

func (OrderLine) TableName() string {
	return "order_lines"
}
