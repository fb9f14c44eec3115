package course

import (
	"time"

	"campus/models"

	"gorm.io/gorm"
)

// Certificate is the proof of course completion. At most one row per
// enrollment, enforced by the unique index even under concurrent triggers.
// The record holds structured data only; the PDF is rendered lazily on first
// download and cached at PdfPath.
type Certificate struct {
	gorm.Model
	CertificateNumber string    `json:"certificate_number" gorm:"type:varchar(100);uniqueIndex;not null"`
	EnrollmentID      uint      `json:"enrollment_id" gorm:"uniqueIndex;not null"`
	UserID            uint      `json:"user_id" gorm:"index;not null"`
	CourseID          uint      `json:"course_id" gorm:"index;not null"`
	IssuedAt          time.Time `json:"issued_at"`
	PdfPath           string    `json:"-"`
	IsDeleted         bool      `gorm:"default:false"`

	Enrollment Enrollment  `gorm:"foreignKey:EnrollmentID" json:"-"`
	User       models.User `gorm:"foreignKey:UserID" json:"-"`
	Course     Course      `gorm:"foreignKey:CourseID" json:"-"`
}
