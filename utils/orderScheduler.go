package utils

import (
	"log"
	"time"

	"campus/config"
	"campus/database"
	"campus/services"

	"github.com/robfig/cron/v3"
)

// InitializeOrderScheduler sets up the background order sweeps
func InitializeOrderScheduler() {
	log.Println("[ORDER-SCHEDULER] Initializing order scheduler...")

	c := cron.New()

	// Every 10 minutes: re-verify stuck orders, then expire abandoned ones.
	c.AddFunc("*/10 * * * *", func() {
		ReconcileAndExpireOrders()
	})

	c.Start()
	log.Println("[ORDER-SCHEDULER] Order scheduler started - runs every 10 minutes")
}

// ReconcileAndExpireOrders runs one sweep: stale non-terminal orders get a
// fresh gateway verify before the expiry pass declares anything failed.
func ReconcileAndExpireOrders() {
	db := database.Database.Db
	maxAge := time.Duration(config.AppConfig.OrderExpiryMinutes) * time.Minute

	// Re-verify before expiring; a settled charge must win over the sweep.
	services.ReconcileStaleOrders(db, Paystack, maxAge/2)

	expired, err := services.ExpireStaleOrders(db, maxAge)
	if err != nil {
		log.Printf("[ORDER-SCHEDULER] Expiry sweep failed: %v", err)
		return
	}
	if expired > 0 {
		log.Printf("[ORDER-SCHEDULER] Expired %d abandoned orders", expired)
	}
}
