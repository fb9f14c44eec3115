package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"campus/models"
	courseModels "campus/models/course"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NewCertificateNumber builds an externally verifiable certificate id.
// Uniqueness is enforced by the storage index; IssueIfEligible retries on the
// (unlikely) collision.
func NewCertificateNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("CERT-%s-%s", time.Now().Format("200601"), suffix)
}

// IssueIfEligible creates the certificate for a completed enrollment, exactly
// once. Called at the completed-transition trigger point with the enrollment
// row already locked by tx, so two concurrent triggers cannot both observe
// "no certificate yet". An existing certificate is returned unchanged.
func IssueIfEligible(tx *gorm.DB, enrollment *courseModels.Enrollment) (*courseModels.Certificate, error) {
	if !enrollment.Completed {
		return nil, nil
	}

	var existing courseModels.Certificate
	err := tx.Where("enrollment_id = ? AND is_deleted = false", enrollment.ID).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	for attempt := 0; attempt < 3; attempt++ {
		cert := courseModels.Certificate{
			CertificateNumber: NewCertificateNumber(),
			EnrollmentID:      enrollment.ID,
			UserID:            enrollment.UserID,
			CourseID:          enrollment.CourseID,
			IssuedAt:          time.Now(),
		}
		err := tx.Create(&cert).Error
		if err == nil {
			return &cert, nil
		}
		if !isDuplicateKey(err) {
			return nil, err
		}
		// Either the number collided (retry with a fresh one) or another
		// trigger won the enrollment uniqueness race (return its row).
		if err := tx.Where("enrollment_id = ?", enrollment.ID).First(&existing).Error; err == nil {
			return &existing, nil
		}
	}
	return nil, fmt.Errorf("certificate number collision persisted after retries for enrollment %d", enrollment.ID)
}

// CertificateVerification is the public view of a certificate lookup. An
// unknown id yields Valid=false and nothing else; internals never leak.
type CertificateVerification struct {
	Valid             bool      `json:"valid"`
	CertificateNumber string    `json:"certificate_number,omitempty"`
	LearnerName       string    `json:"learner_name,omitempty"`
	CourseTitle       string    `json:"course_title,omitempty"`
	IssuedAt          time.Time `json:"issued_at,omitempty"`
}

// VerifyCertificate resolves a certificate number without authentication.
// The number arrives straight from an unauthenticated URL, so it is bounded
// here before touching storage.
func VerifyCertificate(db *gorm.DB, certificateNumber string) (*CertificateVerification, error) {
	if certificateNumber == "" || len(certificateNumber) > 100 {
		return &CertificateVerification{Valid: false}, ErrValidation
	}

	var cert courseModels.Certificate
	err := db.Where("certificate_number = ? AND is_deleted = false", certificateNumber).First(&cert).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &CertificateVerification{Valid: false}, ErrNotFound
		}
		return nil, err
	}

	var user models.User
	if err := db.First(&user, cert.UserID).Error; err != nil {
		return nil, err
	}
	var course courseModels.Course
	if err := db.First(&course, cert.CourseID).Error; err != nil {
		return nil, err
	}

	return &CertificateVerification{
		Valid:             true,
		CertificateNumber: cert.CertificateNumber,
		LearnerName:       user.Name,
		CourseTitle:       course.Title,
		IssuedAt:          cert.IssuedAt,
	}, nil
}

// CertificatesOf lists the learner's certificates with course titles
func CertificatesOf(db *gorm.DB, userID uint) ([]courseModels.Certificate, error) {
	var certs []courseModels.Certificate
	err := db.Where("user_id = ? AND is_deleted = false", userID).
		Preload("Course").
		Order("issued_at desc").
		Find(&certs).Error
	return certs, err
}

// GetCertificateForUser loads one certificate owned by the learner
func GetCertificateForUser(db *gorm.DB, userID uint, certificateNumber string) (*courseModels.Certificate, error) {
	var cert courseModels.Certificate
	err := db.Where("certificate_number = ? AND user_id = ? AND is_deleted = false", certificateNumber, userID).
		Preload("Course").
		First(&cert).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &cert, nil
}
