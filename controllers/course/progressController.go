package courseController

import (
	"errors"
	"log"

	"campus/database"
	"campus/middleware"
	"campus/models"
	"campus/services"
	"campus/utils"

	"github.com/gofiber/fiber/v2"
)

// RecordLessonView stamps the lesson as viewed for the learner's enrollment
func RecordLessonView(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	lessonID := c.Locals("lessonID").(int)

	lp, err := services.RecordView(database.Database.Db, userID, uint(lessonID))
	if errors.Is(err, services.ErrNotFound) {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Lesson not found or you are not enrolled!", nil)
	}
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to record lesson view!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lesson view recorded!", lp)
}

// MarkLessonComplete marks a lesson done and recomputes course progress.
// Completing the last lesson flips the enrollment to completed and issues the
// certificate, exactly once, no matter how many concurrent calls race here.
func MarkLessonComplete(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	// Check if user exists
	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	lessonID := c.Locals("lessonID").(int)

	var state *services.ProgressState
	err := services.WithRetry(func() error {
		var err error
		state, err = services.MarkLessonComplete(database.Database.Db, userID, uint(lessonID))
		return err
	})
	if errors.Is(err, services.ErrNotFound) {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Lesson not found or you are not enrolled!", nil)
	}
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to mark lesson as completed!", nil)
	}

	if state.JustCompleted && state.Certificate != nil {
		go func(email, name string) {
			var course = state.Enrollment.Course
			if course.Title == "" {
				if err := database.Database.Db.First(&course, state.Enrollment.CourseID).Error; err != nil {
					log.Printf("[NOTIFY] Course %d not found for certificate mail: %v", state.Enrollment.CourseID, err)
					return
				}
			}
			if err := utils.SendCertificateEmail(email, name, course.Title, state.Certificate.CertificateNumber); err != nil {
				log.Printf("[NOTIFY] Certificate mail failed: %v", err)
			}
		}(user.Email, user.Name)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lesson marked as completed!", fiber.Map{
		"progress":       state.Enrollment.Progress,
		"completed":      state.Enrollment.Completed,
		"just_completed": state.JustCompleted,
		"certificate":    state.Certificate,
	})
}

// GetProgress reports progress for one of the learner's enrollments
func GetProgress(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	enrollmentID := c.Locals("enrollmentID").(int)

	state, err := services.ProgressOf(database.Database.Db, userID, uint(enrollmentID))
	if errors.Is(err, services.ErrNotFound) {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Enrollment not found!", nil)
	}
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch progress!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Progress fetched successfully!", state)
}
