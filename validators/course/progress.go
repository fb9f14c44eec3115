package courseValidator

import (
	"strconv"
	"strings"

	"campus/middleware"

	"github.com/gofiber/fiber/v2"
)

// LessonIDParam validates the :lesson_id route param
func LessonIDParam() fiber.Handler {
	return func(c *fiber.Ctx) error {
		lessonIDStr := strings.TrimSpace(c.Params("lesson_id"))
		if lessonIDStr == "" {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Lesson ID is required!", nil)
		}

		lessonID, err := strconv.Atoi(lessonIDStr)
		if err != nil || lessonID <= 0 {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Lesson ID!", nil)
		}

		c.Locals("lessonID", lessonID)
		return c.Next()
	}
}

// EnrollmentIDParam validates the :enrollment_id route param
func EnrollmentIDParam() fiber.Handler {
	return func(c *fiber.Ctx) error {
		enrollmentIDStr := strings.TrimSpace(c.Params("enrollment_id"))
		if enrollmentIDStr == "" {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Enrollment ID is required!", nil)
		}

		enrollmentID, err := strconv.Atoi(enrollmentIDStr)
		if err != nil || enrollmentID <= 0 {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Enrollment ID!", nil)
		}

		c.Locals("enrollmentID", enrollmentID)
		return c.Next()
	}
}
