package orderController

import (
	"encoding/json"
	"errors"
	"log"

	"campus/config"
	"campus/database"
	"campus/middleware"
	"campus/models"
	orderModels "campus/models/order"
	"campus/services"
	"campus/utils"

	"github.com/gofiber/fiber/v2"
)

// paystackWebhookPayload is the subset of the gateway event we act on
type paystackWebhookPayload struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		Status    string `json:"status"`
	} `json:"data"`
}

// PaystackWebhook receives gateway payment events. The HMAC-SHA512 signature
// is recomputed over the exact raw bytes received and checked before any
// parsing-driven side effects; processing then goes through the idempotency
// ledger, so the gateway may deliver the same event any number of times in
// any order.
func PaystackWebhook(c *fiber.Ctx) error {
	rawBody := c.Body()
	signature := c.Get("x-paystack-signature")

	sigErr := services.VerifyWebhookSignature(rawBody, signature, config.AppConfig.PaystackSecretKey)

	var payload paystackWebhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		log.Printf("[WEBHOOK] Malformed payload: %v", err)
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Malformed payload", nil)
	}

	if errors.Is(sigErr, services.ErrSignatureInvalid) {
		// The payload cannot be trusted; the only side effect is failing the
		// order it names, if that order is still in flight.
		log.Printf("[WEBHOOK] Invalid signature for reference %s", payload.Data.Reference)
		if payload.Data.Reference != "" {
			if err := services.FailOrderByReference(database.Database.Db, payload.Data.Reference, orderModels.ReasonSignatureInvalid); err != nil &&
				!errors.Is(err, services.ErrUnknownReference) {
				log.Printf("[WEBHOOK] Could not fail order %s: %v", payload.Data.Reference, err)
			}
		}
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid signature", nil)
	}

	in := services.EventInput{
		Reference: payload.Data.Reference,
		EventType: payload.Event,
		Amount:    payload.Data.Amount,
		Status:    payload.Data.Status,
		RawBody:   rawBody,
	}

	var outcome *services.EventOutcome
	err := services.WithRetry(func() error {
		var err error
		outcome, err = services.ProcessPaymentEvent(database.Database.Db, utils.Paystack, in)
		return err
	})

	switch {
	case outcome != nil && outcome.Duplicate:
		// Benign redelivery; acknowledge so the gateway stops retrying.
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Event already processed", outcome)
	case errors.Is(err, services.ErrUnknownReference):
		return middleware.JsonResponse(c, fiber.StatusOK, false, "Unknown reference", nil)
	case errors.Is(err, services.ErrInvalidTransition):
		return middleware.JsonResponse(c, fiber.StatusOK, false, "Order already settled", nil)
	case errors.Is(err, services.ErrConcurrencyConflict):
		// Let the gateway redeliver; the ledger makes the retry safe.
		return middleware.JsonResponse(c, fiber.StatusServiceUnavailable, false, "Busy, retry", nil)
	case err != nil && outcome == nil:
		log.Printf("[WEBHOOK] Processing failed for %s: %v", in.Reference, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Processing failed", nil)
	}

	if outcome.OrderStatus == orderModels.OrderCompleted {
		if ord, loadErr := services.GetOrderByReference(database.Database.Db, in.Reference); loadErr == nil {
			sendEnrollmentMail(ord.ID)
		}
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Event processed", outcome)
}

// sendEnrollmentMail emails the learner about their new courses,
// fire-and-forget: failures are logged and never block the transition.
func sendEnrollmentMail(orderID uint) {
	go func() {
		db := database.Database.Db

		var ord orderModels.Order
		if err := db.Preload("Lines").Preload("Lines.Course").First(&ord, orderID).Error; err != nil {
			log.Printf("[NOTIFY] Order %d not found for enrollment mail: %v", orderID, err)
			return
		}
		var user models.User
		if err := db.First(&user, ord.UserID).Error; err != nil {
			log.Printf("[NOTIFY] User %d not found for enrollment mail: %v", ord.UserID, err)
			return
		}

		titles := make([]string, 0, len(ord.Lines))
		for _, line := range ord.Lines {
			titles = append(titles, line.Course.Title)
		}

		if err := utils.SendEnrollmentEmail(user.Email, user.Name, ord.Reference, titles); err != nil {
			log.Printf("[NOTIFY] Enrollment mail for order %s failed: %v", ord.Reference, err)
		}
	}()
}
