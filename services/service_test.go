package services

import (
	"fmt"
	"sync/atomic"
	"testing"

	"campus/models"
	courseModels "campus/models/course"
	orderModels "campus/models/order"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBSeq int64

// setupTestDB opens a fresh in-memory database per test. Shared cache keeps
// the same database visible across the pool's connections.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:svc_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&courseModels.Course{},
		&courseModels.Section{},
		&courseModels.Lesson{},
		&courseModels.Enrollment{},
		&courseModels.LessonProgress{},
		&courseModels.Certificate{},
		&orderModels.Cart{},
		&orderModels.CartItem{},
		&orderModels.Order{},
		&orderModels.OrderLine{},
		&orderModels.PaymentEvent{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := models.User{Name: "Ama Mensah", Email: email, Password: "hashed"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return &user
}

// seedCourse creates a published course with the given number of published
// lessons under a single section.
func seedCourse(t *testing.T, db *gorm.DB, slug string, price int64, lessonCount int) (*courseModels.Course, []courseModels.Lesson) {
	t.Helper()

	course := courseModels.Course{
		Title:       "Course " + slug,
		Slug:        slug,
		Author:      "Kwame Boateng",
		Price:       price,
		IsPublished: true,
	}
	if err := db.Create(&course).Error; err != nil {
		t.Fatalf("failed to seed course: %v", err)
	}

	section := courseModels.Section{CourseID: course.ID, Title: "Section 1"}
	if err := db.Create(&section).Error; err != nil {
		t.Fatalf("failed to seed section: %v", err)
	}

	lessons := make([]courseModels.Lesson, 0, lessonCount)
	for i := 0; i < lessonCount; i++ {
		lesson := courseModels.Lesson{
			SectionID:   section.ID,
			CourseID:    course.ID,
			Title:       fmt.Sprintf("Lesson %d", i+1),
			OrderIndex:  i,
			IsPublished: true,
		}
		if err := db.Create(&lesson).Error; err != nil {
			t.Fatalf("failed to seed lesson: %v", err)
		}
		lessons = append(lessons, lesson)
	}
	return &course, lessons
}

func seedEnrollment(t *testing.T, db *gorm.DB, userID, courseID uint) *courseModels.Enrollment {
	t.Helper()
	enrollment := courseModels.Enrollment{UserID: userID, CourseID: courseID}
	if err := db.Create(&enrollment).Error; err != nil {
		t.Fatalf("failed to seed enrollment: %v", err)
	}
	return &enrollment
}

// fakeGateway scripts the payment gateway for tests
type fakeGateway struct {
	initURL     string
	initErr     error
	charge      *GatewayCharge
	verifyErr   error
	verifyCalls int
}

func (f *fakeGateway) Initialize(reference string, amount int64, email string) (string, error) {
	if f.initErr != nil {
		return "", f.initErr
	}
	if f.initURL == "" {
		return "https://checkout.test/" + reference, nil
	}
	return f.initURL, nil
}

func (f *fakeGateway) Verify(reference string) (*GatewayCharge, error) {
	f.verifyCalls++
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return f.charge, nil
}

// successGateway returns a gateway whose verify endpoint confirms the given
// amount for any reference.
func successGateway(amount int64) *fakeGateway {
	return &fakeGateway{
		charge: &GatewayCharge{
			Amount:        amount,
			Status:        GatewayStatusSuccess,
			TransactionID: "txn_123",
			Channel:       "card",
		},
	}
}
