package orderRoutes

import (
	orderController "campus/controllers/order"
	"campus/middleware"
	orderValidator "campus/validators/order"

	"github.com/gofiber/fiber/v2"
)

func SetupOrderRoutes(app *fiber.App) {
	orderGroup := app.Group("/orders")

	orderGroup.Post("/checkout", middleware.JWTMiddleware, orderController.Checkout)
	orderGroup.Get("/", middleware.JWTMiddleware, orderController.GetMyOrders)

	paymentGroup := app.Group("/payments")

	// Gateway redirect landing after the learner pays
	paymentGroup.Get("/verify", orderValidator.PaymentReferenceQuery(), middleware.JWTMiddleware, orderController.VerifyPayment)

	// Server-to-server webhook, authenticated by signature instead of JWT
	paymentGroup.Post("/webhook/paystack", orderController.PaystackWebhook)

	adminGroup := app.Group("/admin")

	adminGroup.Post("/orders/:id/refund", orderValidator.OrderIDParam(), middleware.JWTMiddleware, middleware.AdminOnly, orderController.RefundOrder)
	adminGroup.Get("/orders", middleware.JWTMiddleware, middleware.AdminOnly, orderController.ListOrders)
	adminGroup.Get("/dashboard/revenue", middleware.JWTMiddleware, middleware.AdminOnly, orderController.RevenueDashboard)
}
