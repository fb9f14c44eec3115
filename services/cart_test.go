package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddCourseCreatesCartLazily(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db, "ama@example.com")
	course, _ := seedCourse(t, db, "go-basics", 15000, 3)

	item, err := AddCourse(db, user.ID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, course.ID, item.CourseID)

	cart, total, err := GetCart(db, user.ID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
	assert.Equal(t, int64(15000), total)
}

func TestAddCourseDuplicate(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db, "ama@example.com")
	course, _ := seedCourse(t, db, "go-basics", 15000, 3)

	_, err := AddCourse(db, user.ID, course.ID)
	require.NoError(t, err)

	_, err = AddCourse(db, user.ID, course.ID)
	assert.ErrorIs(t, err, ErrAlreadyInCart)

	cart, _, err := GetCart(db, user.ID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
}

func TestAddCourseAlreadyEnrolled(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db, "ama@example.com")
	course, _ := seedCourse(t, db, "go-basics", 15000, 3)
	seedEnrollment(t, db, user.ID, course.ID)

	_, err := AddCourse(db, user.ID, course.ID)
	assert.ErrorIs(t, err, ErrAlreadyEnrolled)
}

func TestAddCourseUnpublished(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db, "ama@example.com")
	course, _ := seedCourse(t, db, "go-basics", 15000, 3)
	require.NoError(t, db.Model(course).Update("is_published", false).Error)

	_, err := AddCourse(db, user.ID, course.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveCourse(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db, "ama@example.com")
	course, _ := seedCourse(t, db, "go-basics", 15000, 3)

	_, err := AddCourse(db, user.ID, course.ID)
	require.NoError(t, err)

	require.NoError(t, RemoveCourse(db, user.ID, course.ID))

	cart, total, err := GetCart(db, user.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Zero(t, total)

	// Removing again reports not found
	assert.ErrorIs(t, RemoveCourse(db, user.ID, course.ID), ErrNotFound)
}

func TestGetCartWithoutCartRow(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db, "ama@example.com")

	cart, total, err := GetCart(db, user.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Zero(t, total)

	// No row was created by the read
	var count int64
	db.Table("carts").Where("user_id = ?", user.ID).Count(&count)
	assert.Zero(t, count)
}
