package services

import (
	"sync"
	"testing"
	"time"

	courseModels "campus/models/course"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordViewCreatesAndStamps(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db, "ama@example.com")
	course, lessons := seedCourse(t, db, "go-basics", 15000, 3)
	seedEnrollment(t, db, user.ID, course.ID)

	lp, err := RecordView(db, user.ID, lessons[0].ID)
	require.NoError(t, err)
	assert.False(t, lp.Completed)
	firstView := lp.LastViewed

	time.Sleep(10 * time.Millisecond)
	lp, err = RecordView(db, user.ID, lessons[0].ID)
	require.NoError(t, err)
	assert.True(t, lp.LastViewed.After(firstView))

	var count int64
	db.Model(&courseModels.LessonProgress{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestRecordViewWithoutEnrollment(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db, "ama@example.com")
	_, lessons := seedCourse(t, db, "go-basics", 15000, 3)

	_, err := RecordView(db, user.ID, lessons[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarkLessonCompleteRecomputesProgress(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db, "ama@example.com")
	course, lessons := seedCourse(t, db, "go-basics", 15000, 10)
	seedEnrollment(t, db, user.ID, course.ID)

	for i := 0; i < 3; i++ {
		state, err := MarkLessonComplete(db, user.ID, lessons[i].ID)
		require.NoError(t, err)
		assert.Equal(t, (i+1)*10, state.Enrollment.Progress)
		assert.False(t, state.Enrollment.Completed)
		assert.Nil(t, state.Certificate)
	}
}

func TestMarkLessonCompleteIdempotent(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db, "ama@example.com")
	course, lessons := seedCourse(t, db, "go-basics", 15000, 10)
	seedEnrollment(t, db, user.ID, course.ID)

	state, err := MarkLessonComplete(db, user.ID, lessons[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 10, state.Enrollment.Progress)

	var lp courseModels.LessonProgress
	require.NoError(t, db.Where("lesson_id = ?", lessons[0].ID).First(&lp).Error)
	firstCompletedAt := *lp.CompletedAt

	// Re-marking changes nothing, including timestamps
	state, err = MarkLessonComplete(db, user.ID, lessons[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 10, state.Enrollment.Progress)
	assert.False(t, state.JustCompleted)

	require.NoError(t, db.Where("lesson_id = ?", lessons[0].ID).First(&lp).Error)
	assert.Equal(t, firstCompletedAt, *lp.CompletedAt)
}

func TestCourseCompletionIssuesCertificateOnce(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db, "ama@example.com")
	course, lessons := seedCourse(t, db, "go-basics", 15000, 4)
	seedEnrollment(t, db, user.ID, course.ID)

	var final *ProgressState
	for _, lesson := range lessons {
		state, err := MarkLessonComplete(db, user.ID, lesson.ID)
		require.NoError(t, err)
		final = state
	}

	assert.Equal(t, 100, final.Enrollment.Progress)
	assert.True(t, final.Enrollment.Completed)
	assert.True(t, final.JustCompleted)
	require.NotNil(t, final.Certificate)
	assert.Regexp(t, `^CERT-\d{6}-[0-9A-F]{8}$`, final.Certificate.CertificateNumber)

	// Re-marking the last lesson after completion grants nothing new
	state, err := MarkLessonComplete(db, user.ID, lessons[len(lessons)-1].ID)
	require.NoError(t, err)
	assert.False(t, state.JustCompleted)
	require.NotNil(t, state.Certificate)
	assert.Equal(t, final.Certificate.CertificateNumber, state.Certificate.CertificateNumber)

	var certCount int64
	db.Model(&courseModels.Certificate{}).Where("user_id = ?", user.ID).Count(&certCount)
	assert.Equal(t, int64(1), certCount)
}

func TestConcurrentLastLessonSingleCertificate(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db, "ama@example.com")
	course, lessons := seedCourse(t, db, "go-basics", 15000, 3)
	seedEnrollment(t, db, user.ID, course.ID)

	for _, lesson := range lessons[:len(lessons)-1] {
		_, err := MarkLessonComplete(db, user.ID, lesson.ID)
		require.NoError(t, err)
	}

	// Two devices race to complete the last lesson
	last := lessons[len(lessons)-1]
	const racers = 2
	errs := make(chan error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- WithRetry(func() error {
				_, err := MarkLessonComplete(db, user.ID, last.ID)
				return err
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// Exactly one completion flip, exactly one certificate
	var enrollment courseModels.Enrollment
	require.NoError(t, db.Where("user_id = ? AND course_id = ?", user.ID, course.ID).First(&enrollment).Error)
	assert.Equal(t, 100, enrollment.Progress)
	assert.True(t, enrollment.Completed)

	var certCount int64
	db.Model(&courseModels.Certificate{}).Where("enrollment_id = ?", enrollment.ID).Count(&certCount)
	assert.Equal(t, int64(1), certCount)
}

func TestProgressIgnoresUnpublishedLessons(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db, "ama@example.com")
	course, lessons := seedCourse(t, db, "go-basics", 15000, 4)
	seedEnrollment(t, db, user.ID, course.ID)

	// One lesson gets unpublished; the denominator shrinks to 3
	require.NoError(t, db.Model(&lessons[3]).Update("is_published", false).Error)

	state, err := MarkLessonComplete(db, user.ID, lessons[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 33, state.Enrollment.Progress)
}

func TestProgressMonotonicWhenCatalogGrows(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db, "ama@example.com")
	course, lessons := seedCourse(t, db, "go-basics", 15000, 2)
	seedEnrollment(t, db, user.ID, course.ID)

	state, err := MarkLessonComplete(db, user.ID, lessons[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 50, state.Enrollment.Progress)

	// A new lesson is published: 1/3 would be 33, but progress never drops
	var section courseModels.Section
	require.NoError(t, db.Where("course_id = ?", course.ID).First(&section).Error)
	extra := courseModels.Lesson{SectionID: section.ID, CourseID: course.ID, Title: "Lesson 3", IsPublished: true}
	require.NoError(t, db.Create(&extra).Error)

	state, err = MarkLessonComplete(db, user.ID, lessons[1].ID)
	require.NoError(t, err)
	assert.Equal(t, 67, state.Enrollment.Progress)
	assert.False(t, state.Enrollment.Completed)

	state, err = MarkLessonComplete(db, user.ID, extra.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, state.Enrollment.Progress)
	assert.True(t, state.Enrollment.Completed)
}

func TestProgressOf(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db, "ama@example.com")
	stranger := seedUser(t, db, "kofi@example.com")
	course, lessons := seedCourse(t, db, "go-basics", 15000, 2)
	enrollment := seedEnrollment(t, db, user.ID, course.ID)

	_, err := MarkLessonComplete(db, user.ID, lessons[0].ID)
	require.NoError(t, err)

	state, err := ProgressOf(db, user.ID, enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, state.Enrollment.Progress)

	// Another learner cannot read this enrollment
	_, err = ProgressOf(db, stranger.ID, enrollment.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
