package orderController

import (
	"errors"

	"campus/config"
	"campus/database"
	"campus/middleware"
	"campus/models"
	orderModels "campus/models/order"
	"campus/services"
	"campus/utils"

	"github.com/gofiber/fiber/v2"
)

// Checkout turns the learner's cart into an order and returns the gateway
// redirect URL
func Checkout(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	var result *services.CheckoutResult
	err := services.WithRetry(func() error {
		var err error
		result, err = services.Checkout(database.Database.Db, utils.Paystack, userID, user.Email, config.AppConfig.Currency)
		return err
	})

	switch {
	case errors.Is(err, services.ErrCartEmpty):
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Your cart is empty!", nil)
	case errors.Is(err, services.ErrAlreadyEnrolled):
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "A course in your cart is already enrolled. Refresh your cart and try again.", nil)
	case errors.Is(err, services.ErrGatewayTimeout), errors.Is(err, services.ErrGatewayUnavailable):
		return middleware.JsonResponse(c, fiber.StatusBadGateway, false, "Payment gateway is unavailable. Your cart is untouched, please try again.", nil)
	case err != nil:
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Checkout failed!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Order created. Redirect to payment.", fiber.Map{
		"reference":         result.Order.Reference,
		"total":             result.Order.TotalAmount,
		"currency":          result.Order.Currency,
		"authorization_url": result.AuthorizationURL,
	})
}

// VerifyPayment is the redirect landing: the learner returns from the gateway
// with a reference and we settle it through the same engine the webhook uses.
func VerifyPayment(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	reference := c.Locals("paymentReference").(string)

	ord, err := services.GetOrderByReference(database.Database.Db, reference)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Order not found!", nil)
	}
	if ord.UserID != userID {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "Order does not belong to you!", nil)
	}

	// Already settled (webhook usually wins this race): just report it.
	if ord.Status.Terminal() {
		return reportOrderState(c, ord)
	}

	in := services.EventInput{
		Reference: reference,
		EventType: "redirect.verify",
		Amount:    ord.TotalAmount,
		Status:    services.GatewayStatusSuccess,
		RawBody:   []byte("redirect:" + reference),
	}

	var outcome *services.EventOutcome
	err = services.WithRetry(func() error {
		var err error
		outcome, err = services.ProcessPaymentEvent(database.Database.Db, utils.Paystack, in)
		return err
	})
	if outcome == nil && err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadGateway, false, "Could not verify payment. Please try again shortly.", nil)
	}

	ord, loadErr := services.GetOrderByReference(database.Database.Db, reference)
	if loadErr != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to load order!", nil)
	}

	if ord.Status == orderModels.OrderCompleted && outcome != nil && !outcome.Duplicate {
		sendEnrollmentMail(ord.ID)
	}

	return reportOrderState(c, ord)
}

// GetMyOrders lists the learner's orders, newest first
func GetMyOrders(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 10)
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	offset := (page - 1) * limit

	db := database.Database.Db.Model(&orderModels.Order{}).Where("user_id = ? AND is_deleted = ?", userID, false)

	var total int64
	db.Count(&total)

	var orders []orderModels.Order
	if err := db.Preload("Lines").Preload("Lines.Course").
		Offset(offset).Limit(limit).Order("created_at desc").
		Find(&orders).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch orders!", nil)
	}

	response := map[string]interface{}{
		"orders": orders,
		"pagination": map[string]interface{}{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Orders fetched successfully!", response)
}

func reportOrderState(c *fiber.Ctx, ord *orderModels.Order) error {
	success := ord.Status == orderModels.OrderCompleted || ord.Status == orderModels.OrderRefunded
	message := "Payment successful! You have been enrolled in your courses."
	if !success {
		message = "Payment not completed."
	}
	return middleware.JsonResponse(c, fiber.StatusOK, success, message, fiber.Map{
		"reference":      ord.Reference,
		"status":         ord.Status,
		"failure_reason": ord.FailureReason,
	})
}
