package orderValidator

import (
	"strconv"
	"strings"

	"campus/middleware"

	"github.com/gofiber/fiber/v2"
)

// OrderIDParam validates the :id route param
func OrderIDParam() fiber.Handler {
	return func(c *fiber.Ctx) error {
		orderIDStr := strings.TrimSpace(c.Params("id"))
		if orderIDStr == "" {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Order ID is required!", nil)
		}

		orderID, err := strconv.Atoi(orderIDStr)
		if err != nil || orderID <= 0 {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Order ID!", nil)
		}

		c.Locals("orderID", orderID)
		return c.Next()
	}
}

// PaymentReferenceQuery validates the ?reference= query param used on the
// gateway redirect landing
func PaymentReferenceQuery() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reference := strings.TrimSpace(c.Query("reference"))
		if reference == "" {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Payment reference is required!", nil)
		}
		if len(reference) > 100 {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid payment reference!", nil)
		}

		c.Locals("paymentReference", reference)
		return c.Next()
	}
}
