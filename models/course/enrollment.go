package course

import (
	"time"

	"campus/models"

	"gorm.io/gorm"
)

// Enrollment grants a learner access to a course and tracks overall progress.
// One row per (user, course); created only by a completed order and never
// deleted, only marked.
type Enrollment struct {
	gorm.Model
	UserID      uint       `json:"user_id" gorm:"not null;uniqueIndex:ux_enrollments_user_course,priority:1"`
	CourseID    uint       `json:"course_id" gorm:"not null;uniqueIndex:ux_enrollments_user_course,priority:2"`
	Progress    int        `json:"progress" gorm:"default:0"` // 0-100, monotonic non-decreasing
	Completed   bool       `json:"completed" gorm:"default:false"`
	CompletedAt *time.Time `json:"completed_at"`
	IsDeleted   bool       `gorm:"default:false"`

	User   models.User `gorm:"foreignKey:UserID" json:"-"`
	Course Course      `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}

// LessonProgress tracks a learner's viewing state of one lesson.
// Completed is one-way: once true it never reverts.
type LessonProgress struct {
	gorm.Model
	EnrollmentID uint       `json:"enrollment_id" gorm:"not null;uniqueIndex:ux_lesson_progress,priority:1"`
	LessonID     uint       `json:"lesson_id" gorm:"not null;uniqueIndex:ux_lesson_progress,priority:2"`
	Completed    bool       `json:"completed" gorm:"default:false"`
	CompletedAt  *time.Time `json:"completed_at"`
	LastViewed   time.Time  `json:"last_viewed"`

	Enrollment Enrollment `gorm:"foreignKey:EnrollmentID" json:"-"`
	Lesson     Lesson     `gorm:"foreignKey:LessonID" json:"-"`
}
