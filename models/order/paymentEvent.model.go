package order

import (
	"time"

	"gorm.io/gorm"
)

// Outcomes recorded against a processed payment event
const (
	EventOutcomeProcessing       = "PROCESSING"
	EventOutcomeCompleted        = "COMPLETED"
	EventOutcomeFailed           = "FAILED"
	EventOutcomeUnknownReference = "UNKNOWN_REFERENCE"
	EventOutcomeRejectedTerminal = "REJECTED_TERMINAL"
)

// PaymentEvent is the durable idempotency ledger: one row per processed
// external payment event, keyed by (reference, fingerprint). A second delivery
// with an identical fingerprint replays the recorded outcome and performs no
// side effects. Rows are never deleted.
type PaymentEvent struct {
	gorm.Model
	Reference   string    `json:"reference" gorm:"type:varchar(100);not null;uniqueIndex:ux_payment_events_ref_fp,priority:1"`
	Fingerprint string    `json:"fingerprint" gorm:"type:varchar(64);not null;uniqueIndex:ux_payment_events_ref_fp,priority:2"`
	EventType   string    `json:"event_type" gorm:"type:varchar(50)"`
	Outcome     string    `json:"outcome" gorm:"type:varchar(30);not null"`
	ProcessedAt time.Time `json:"processed_at"`
}

func (PaymentEvent) TableName() string {
	return "payment_events"
}
