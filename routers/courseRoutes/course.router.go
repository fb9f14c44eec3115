package courseRoutes

import (
	courseController "campus/controllers/course"
	"campus/middleware"
	courseValidator "campus/validators/course"

	"github.com/gofiber/fiber/v2"
)

func SetupCourseRoutes(app *fiber.App) {
	courseGroup := app.Group("/course")

	courseGroup.Get("/list", courseController.ListCourses)
	courseGroup.Get("/:slug", courseController.GetCourse)

	lessonGroup := app.Group("/lessons")

	lessonGroup.Post("/:lesson_id/view", courseValidator.LessonIDParam(), middleware.JWTMiddleware, courseController.RecordLessonView)
	lessonGroup.Post("/:lesson_id/complete", courseValidator.LessonIDParam(), middleware.JWTMiddleware, courseController.MarkLessonComplete)

	userGroup := app.Group("/user")

	userGroup.Get("/enrollments", middleware.JWTMiddleware, courseController.GetMyEnrollments)
	userGroup.Get("/enrollments/:enrollment_id/progress", courseValidator.EnrollmentIDParam(), middleware.JWTMiddleware, courseController.GetProgress)
	userGroup.Get("/certificates", middleware.JWTMiddleware, courseController.GetMyCertificates)

	certificateGroup := app.Group("/certificates")

	certificateGroup.Get("/:number/download", middleware.JWTMiddleware, courseController.DownloadCertificate)

	// Public verification for employers, no auth
	certificateGroup.Get("/verify/:number", courseController.VerifyCertificate)
}
