package order

import (
	"time"

	"campus/models"
	courseModels "campus/models/course"

	"gorm.io/gorm"
)

// Cart is a learner's pending course selection. At most one active cart per
// learner; created lazily on first add and cleared only inside the
// order-completion transaction.
type Cart struct {
	gorm.Model
	UserID    uint `json:"user_id" gorm:"uniqueIndex;not null"`
	IsDeleted bool `gorm:"default:false"`

	Items []CartItem  `json:"items,omitempty" gorm:"foreignKey:CartID"`
	User  models.User `gorm:"foreignKey:UserID" json:"-"`
}

// CartItem is one (cart, course) membership
type CartItem struct {
	gorm.Model
	CartID   uint      `json:"cart_id" gorm:"not null;uniqueIndex:ux_cart_items_cart_course,priority:1"`
	CourseID uint      `json:"course_id" gorm:"not null;uniqueIndex:ux_cart_items_cart_course,priority:2"`
	AddedAt  time.Time `json:"added_at"`

	Course courseModels.Course `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}
