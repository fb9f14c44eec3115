package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	ProfileImage string `gorm:"default:''"`
	Name         string `gorm:"default:''"`
	Email        string `gorm:"unique;not null"`
	Role         string `gorm:"default:'USER'"` // USER, ADMIN
	Password     string `gorm:"not null"`
	Country      string `gorm:"default:''"`
	City         string `gorm:"default:''"`
	LastLogin    time.Time
	// Financial and completion history hangs off this row, so accounts are
	// archived with IsDeleted rather than removed.
	IsDeleted bool `gorm:"default:false"`
}
