package services

import (
	"strings"
	"testing"

	courseModels "campus/models/course"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueIfEligibleRequiresCompletion(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db, "ama@example.com")
	course, _ := seedCourse(t, db, "go-basics", 15000, 2)
	enrollment := seedEnrollment(t, db, user.ID, course.ID)

	cert, err := IssueIfEligible(db, enrollment)
	require.NoError(t, err)
	assert.Nil(t, cert)
}

func TestIssueIfEligibleExactlyOnce(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db, "ama@example.com")
	course, _ := seedCourse(t, db, "go-basics", 15000, 2)
	enrollment := seedEnrollment(t, db, user.ID, course.ID)
	require.NoError(t, db.Model(enrollment).Updates(map[string]interface{}{"completed": true, "progress": 100}).Error)
	enrollment.Completed = true

	first, err := IssueIfEligible(db, enrollment)
	require.NoError(t, err)
	require.NotNil(t, first)

	// A second trigger returns the same row
	second, err := IssueIfEligible(db, enrollment)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CertificateNumber, second.CertificateNumber)

	var count int64
	db.Model(&courseModels.Certificate{}).Where("enrollment_id = ?", enrollment.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestVerifyCertificate(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db, "ama@example.com")
	course, lessons := seedCourse(t, db, "go-basics", 15000, 2)
	seedEnrollment(t, db, user.ID, course.ID)

	var state *ProgressState
	for _, lesson := range lessons {
		var err error
		state, err = MarkLessonComplete(db, user.ID, lesson.ID)
		require.NoError(t, err)
	}
	require.NotNil(t, state.Certificate)

	verification, err := VerifyCertificate(db, state.Certificate.CertificateNumber)
	require.NoError(t, err)
	assert.True(t, verification.Valid)
	assert.Equal(t, user.Name, verification.LearnerName)
	assert.Equal(t, course.Title, verification.CourseTitle)
	assert.False(t, verification.IssuedAt.IsZero())
}

func TestVerifyCertificateUnknownNumber(t *testing.T) {
	db := setupTestDB(t)

	verification, err := VerifyCertificate(db, "CERT-209901-FFFFFFFF")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NotNil(t, verification)
	assert.False(t, verification.Valid)
	assert.Empty(t, verification.LearnerName)
}

func TestVerifyCertificateRejectsMalformedNumber(t *testing.T) {
	db := setupTestDB(t)

	verification, err := VerifyCertificate(db, "")
	assert.ErrorIs(t, err, ErrValidation)
	require.NotNil(t, verification)
	assert.False(t, verification.Valid)

	_, err = VerifyCertificate(db, strings.Repeat("A", 101))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCertificatesOf(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db, "ama@example.com")
	course, lessons := seedCourse(t, db, "go-basics", 15000, 1)
	seedEnrollment(t, db, user.ID, course.ID)

	_, err := MarkLessonComplete(db, user.ID, lessons[0].ID)
	require.NoError(t, err)

	certs, err := CertificatesOf(db, user.ID)
	require.NoError(t, err)
	require.Len(t, certs, 1)
	assert.Equal(t, course.ID, certs[0].CourseID)

	// Only the owner can fetch by number
	_, err = GetCertificateForUser(db, user.ID, certs[0].CertificateNumber)
	require.NoError(t, err)
	_, err = GetCertificateForUser(db, user.ID+1, certs[0].CertificateNumber)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewCertificateNumberFormat(t *testing.T) {
	number := NewCertificateNumber()
	assert.Regexp(t, `^CERT-\d{6}-[0-9A-F]{8}$`, number)
	assert.NotEqual(t, number, NewCertificateNumber())
}
