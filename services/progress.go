package services

import (
	"errors"
	"math"
	"time"

	courseModels "campus/models/course"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProgressState is the tracker's view of one enrollment after an operation
type ProgressState struct {
	Enrollment  *courseModels.Enrollment  `json:"enrollment"`
	Certificate *courseModels.Certificate `json:"certificate,omitempty"`
	// JustCompleted is true only on the call that flipped completed
	JustCompleted bool `json:"just_completed"`
}

// RecordView stamps last_viewed on the (enrollment, lesson) progress row,
// creating it on first view. Never touches the completed flag.
func RecordView(db *gorm.DB, userID, lessonID uint) (*courseModels.LessonProgress, error) {
	lesson, enrollment, err := lessonAndEnrollment(db, userID, lessonID)
	if err != nil {
		return nil, err
	}

	var lp courseModels.LessonProgress
	err = db.Where(courseModels.LessonProgress{EnrollmentID: enrollment.ID, LessonID: lesson.ID}).
		Attrs(courseModels.LessonProgress{LastViewed: time.Now()}).
		FirstOrCreate(&lp).Error
	if err != nil && !isDuplicateKey(err) {
		return nil, err
	}

	if err := db.Model(&lp).Update("last_viewed", time.Now()).Error; err != nil {
		return nil, err
	}
	return &lp, nil
}

// MarkLessonComplete flips the lesson's completed flag and recomputes the
// enrollment's progress in one transaction, with the enrollment row locked so
// concurrent calls cannot both observe progress < 100 and race the completion
// trigger.
//
// Idempotent: re-marking a completed lesson returns current state with no
// timestamp changes and no recomputation side effects.
func MarkLessonComplete(db *gorm.DB, userID, lessonID uint) (*ProgressState, error) {
	lesson, enrollment, err := lessonAndEnrollment(db, userID, lessonID)
	if err != nil {
		return nil, err
	}

	var state *ProgressState
	txErr := db.Transaction(func(tx *gorm.DB) error {
		var locked courseModels.Enrollment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", enrollment.ID).
			First(&locked).Error; err != nil {
			if isLockConflict(err) {
				return ErrConcurrencyConflict
			}
			return err
		}

		var lp courseModels.LessonProgress
		err := tx.Where("enrollment_id = ? AND lesson_id = ?", locked.ID, lesson.ID).First(&lp).Error
		switch {
		case err == nil && lp.Completed:
			// Already done: report state, change nothing.
			cert := certificateFor(tx, locked.ID)
			state = &ProgressState{Enrollment: &locked, Certificate: cert}
			return nil
		case err == nil:
			now := time.Now()
			if err := tx.Model(&lp).Updates(map[string]interface{}{
				"completed":    true,
				"completed_at": now,
				"last_viewed":  now,
			}).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			now := time.Now()
			lp = courseModels.LessonProgress{
				EnrollmentID: locked.ID,
				LessonID:     lesson.ID,
				Completed:    true,
				CompletedAt:  &now,
				LastViewed:   now,
			}
			if err := tx.Create(&lp).Error; err != nil {
				if isDuplicateKey(err) {
					return ErrConcurrencyConflict
				}
				return err
			}
		default:
			return err
		}

		return recomputeProgress(tx, &locked, func(s *ProgressState) { state = s })
	})
	if txErr != nil {
		return nil, txErr
	}
	return state, nil
}

// recomputeProgress recalculates the enrollment's percentage from lesson
// counts and fires the completion trigger exactly once. Caller must hold the
// enrollment row lock.
func recomputeProgress(tx *gorm.DB, enrollment *courseModels.Enrollment, done func(*ProgressState)) error {
	// Denominator comes from the catalog at recomputation time.
	var totalLessons int64
	if err := tx.Model(&courseModels.Lesson{}).
		Where("course_id = ? AND is_deleted = false AND is_published = true", enrollment.CourseID).
		Count(&totalLessons).Error; err != nil {
		return err
	}

	var completedLessons int64
	if err := tx.Model(&courseModels.LessonProgress{}).
		Joins("JOIN lessons ON lessons.id = lesson_progresses.lesson_id").
		Where("lesson_progresses.enrollment_id = ? AND lesson_progresses.completed = ?", enrollment.ID, true).
		Where("lessons.is_deleted = false AND lessons.is_published = true").
		Count(&completedLessons).Error; err != nil {
		return err
	}

	progress := 0
	if totalLessons > 0 {
		progress = int(math.Round(100 * float64(completedLessons) / float64(totalLessons)))
	}
	// Progress is monotonic non-decreasing.
	if progress < enrollment.Progress {
		progress = enrollment.Progress
	}

	state := &ProgressState{Enrollment: enrollment}

	if enrollment.Completed {
		// Completion already happened; recomputation after the fact is a
		// guarded no-op beyond the percentage floor above.
		if progress != enrollment.Progress {
			if err := tx.Model(enrollment).Update("progress", progress).Error; err != nil {
				return err
			}
			enrollment.Progress = progress
		}
		state.Certificate = certificateFor(tx, enrollment.ID)
		done(state)
		return nil
	}

	updates := map[string]interface{}{"progress": progress}
	if progress == 100 {
		now := time.Now()
		updates["completed"] = true
		updates["completed_at"] = now
		enrollment.Completed = true
		enrollment.CompletedAt = &now
		state.JustCompleted = true
	}
	if err := tx.Model(enrollment).Updates(updates).Error; err != nil {
		return err
	}
	enrollment.Progress = progress

	if state.JustCompleted {
		// The false->true flip is the single certificate trigger point; the
		// issuer runs under the same lock and transaction.
		cert, err := IssueIfEligible(tx, enrollment)
		if err != nil {
			return err
		}
		state.Certificate = cert
	}

	done(state)
	return nil
}

// ProgressOf reports progress for one of the learner's enrollments
func ProgressOf(db *gorm.DB, userID, enrollmentID uint) (*ProgressState, error) {
	var enrollment courseModels.Enrollment
	err := db.Where("id = ? AND user_id = ? AND is_deleted = false", enrollmentID, userID).
		Preload("Course").
		First(&enrollment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &ProgressState{
		Enrollment:  &enrollment,
		Certificate: certificateFor(db, enrollment.ID),
	}, nil
}

// lessonAndEnrollment resolves a lesson and the caller's enrollment in its
// course
func lessonAndEnrollment(db *gorm.DB, userID, lessonID uint) (*courseModels.Lesson, *courseModels.Enrollment, error) {
	var lesson courseModels.Lesson
	if err := db.Where("id = ? AND is_deleted = false AND is_published = true", lessonID).First(&lesson).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}

	var enrollment courseModels.Enrollment
	if err := db.Where("user_id = ? AND course_id = ? AND is_deleted = false", userID, lesson.CourseID).First(&enrollment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}

	return &lesson, &enrollment, nil
}

func certificateFor(db *gorm.DB, enrollmentID uint) *courseModels.Certificate {
	var cert courseModels.Certificate
	if err := db.Where("enrollment_id = ? AND is_deleted = false", enrollmentID).First(&cert).Error; err != nil {
		return nil
	}
	return &cert
}
