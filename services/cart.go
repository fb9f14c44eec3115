package services

import (
	"errors"
	"time"

	courseModels "campus/models/course"
	orderModels "campus/models/order"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AddCourse puts a published course into the learner's cart. The cart row is
// created lazily on first add. Fails with ErrAlreadyEnrolled when an active
// enrollment exists and ErrAlreadyInCart on a duplicate add.
func AddCourse(db *gorm.DB, userID, courseID uint) (*orderModels.CartItem, error) {
	var course courseModels.Course
	if err := db.Where("id = ? AND is_deleted = false AND is_published = true", courseID).First(&course).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var enrollment courseModels.Enrollment
	if err := db.Where("user_id = ? AND course_id = ? AND is_deleted = false", userID, courseID).First(&enrollment).Error; err == nil {
		return nil, ErrAlreadyEnrolled
	}

	var cart orderModels.Cart
	if err := db.Where(orderModels.Cart{UserID: userID}).FirstOrCreate(&cart).Error; err != nil {
		if isDuplicateKey(err) {
			// Concurrent first add for the same learner; pick up the winner's cart.
			if err := db.Where("user_id = ?", userID).First(&cart).Error; err != nil {
				return nil, err
			}
		} else {
			return nil, err
		}
	}

	item := orderModels.CartItem{
		CartID:   cart.ID,
		CourseID: courseID,
		AddedAt:  time.Now(),
	}
	if err := db.Create(&item).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, ErrAlreadyInCart
		}
		return nil, err
	}

	return &item, nil
}

// RemoveCourse drops a course from the learner's cart
func RemoveCourse(db *gorm.DB, userID, courseID uint) error {
	var cart orderModels.Cart
	if err := db.Where("user_id = ? AND is_deleted = false", userID).First(&cart).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	res := db.Unscoped().Where("cart_id = ? AND course_id = ?", cart.ID, courseID).Delete(&orderModels.CartItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetCart returns the learner's cart with items and course details, plus the
// running total in minor units. A learner with no cart yet gets an empty one
// back without a row being created.
func GetCart(db *gorm.DB, userID uint) (*orderModels.Cart, int64, error) {
	var cart orderModels.Cart
	err := db.Where("user_id = ? AND is_deleted = false", userID).
		Preload("Items").Preload("Items.Course").
		First(&cart).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &orderModels.Cart{UserID: userID}, 0, nil
		}
		return nil, 0, err
	}

	var total int64
	for _, item := range cart.Items {
		total += item.Course.Price
	}
	return &cart, total, nil
}

// lockCart loads the learner's cart FOR UPDATE inside tx so checkout reads a
// consistent view: concurrent adds, removes and checkouts for the same learner
// serialize on this row.
func lockCart(tx *gorm.DB, userID uint) (*orderModels.Cart, error) {
	var cart orderModels.Cart
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND is_deleted = false", userID).
		First(&cart).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCartEmpty
		}
		if isLockConflict(err) {
			return nil, ErrConcurrencyConflict
		}
		return nil, err
	}
	if err := tx.Preload("Course").Where("cart_id = ?", cart.ID).Find(&cart.Items).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// clearCart removes every item from the cart. Called only inside the
// order-completion transaction, after the order has durably reached COMPLETED
// from the exact snapshot the items produced.
func clearCart(tx *gorm.DB, cartID uint) error {
	return tx.Unscoped().Where("cart_id = ?", cartID).Delete(&orderModels.CartItem{}).Error
}
