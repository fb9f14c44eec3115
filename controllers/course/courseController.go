package courseController

import (
	"campus/database"
	"campus/middleware"
	courseModels "campus/models/course"

	"github.com/gofiber/fiber/v2"
)

// ListCourses returns published catalog courses with pagination
func ListCourses(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 12)
	level := c.Query("level")

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 12
	}
	offset := (page - 1) * limit

	db := database.Database.Db.Model(&courseModels.Course{}).
		Where("is_deleted = false AND is_published = true")
	if level != "" {
		db = db.Where("level = ?", level)
	}

	var total int64
	db.Count(&total)

	var courses []courseModels.Course
	if err := db.Offset(offset).Limit(limit).Order("is_featured desc, created_at desc").Find(&courses).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch courses!", nil)
	}

	response := map[string]interface{}{
		"courses": courses,
		"pagination": map[string]interface{}{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Courses fetched successfully!", response)
}

// GetCourse returns one published course by slug, with sections and lessons
func GetCourse(c *fiber.Ctx) error {
	slug := c.Params("slug")
	if slug == "" {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Course slug is required!", nil)
	}

	var course courseModels.Course
	err := database.Database.Db.
		Where("slug = ? AND is_deleted = false AND is_published = true", slug).
		Preload("Sections", "is_deleted = false").
		Preload("Sections.Lessons", "is_deleted = false AND is_published = true").
		First(&course).Error
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}

	var lessonCount int64
	database.Database.Db.Model(&courseModels.Lesson{}).
		Where("course_id = ? AND is_deleted = false AND is_published = true", course.ID).
		Count(&lessonCount)

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course fetched successfully!", fiber.Map{
		"course":       course,
		"lesson_count": lessonCount,
	})
}

// GetMyEnrollments lists the learner's enrollments with progress
func GetMyEnrollments(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	var enrollments []courseModels.Enrollment
	if err := database.Database.Db.
		Where("user_id = ? AND is_deleted = false", userID).
		Preload("Course").
		Order("created_at desc").
		Find(&enrollments).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch enrollments!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Enrollments fetched successfully!", enrollments)
}
