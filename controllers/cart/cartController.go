package cartController

import (
	"errors"

	"campus/database"
	"campus/middleware"
	"campus/models"
	"campus/services"

	"github.com/gofiber/fiber/v2"
)

// GetCart returns the learner's current cart and running total
func GetCart(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	cart, total, err := services.GetCart(database.Database.Db, userID)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch cart!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Cart fetched successfully!", fiber.Map{
		"cart":  cart,
		"total": total,
		"count": len(cart.Items),
	})
}

// AddToCart puts a course into the learner's cart
func AddToCart(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	// Check if user exists
	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	courseID := c.Locals("courseID").(int)

	item, err := services.AddCourse(database.Database.Db, userID, uint(courseID))
	switch {
	case errors.Is(err, services.ErrNotFound):
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found or not published!", nil)
	case errors.Is(err, services.ErrAlreadyEnrolled):
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "You are already enrolled in this course!", nil)
	case errors.Is(err, services.ErrAlreadyInCart):
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "Course is already in your cart!", nil)
	case err != nil:
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to add course to cart!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course added to cart!", item)
}

// RemoveFromCart drops a course from the learner's cart
func RemoveFromCart(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	courseID := c.Locals("courseID").(int)

	err := services.RemoveCourse(database.Database.Db, userID, uint(courseID))
	if errors.Is(err, services.ErrNotFound) {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found in cart!", nil)
	}
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to remove course from cart!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course removed from cart!", nil)
}
