package cartRoutes

import (
	cartController "campus/controllers/cart"
	"campus/middleware"
	cartValidator "campus/validators/cart"

	"github.com/gofiber/fiber/v2"
)

func SetupCartRoutes(app *fiber.App) {
	cartGroup := app.Group("/cart")

	cartGroup.Get("/", middleware.JWTMiddleware, cartController.GetCart)
	cartGroup.Post("/:id", cartValidator.CourseIDParam(), middleware.JWTMiddleware, cartController.AddToCart)
	cartGroup.Delete("/:id", cartValidator.CourseIDParam(), middleware.JWTMiddleware, cartController.RemoveFromCart)
}
