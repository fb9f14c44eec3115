package course

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Course represents a learning course
type Course struct {
	gorm.Model
	Title        string `json:"title"`
	Slug         string `json:"slug" gorm:"uniqueIndex;not null"`
	Description  string `json:"description" gorm:"type:text"`
	Author       string `json:"author"`
	Level        string `json:"level" gorm:"default:'intermediate'"` // beginner, intermediate, advanced
	Price        int64  `json:"price" gorm:"not null"`               // minor currency units (pesewas)
	Currency     string `json:"currency" gorm:"type:varchar(10);default:'GHS'"`
	ThumbnailURL string `json:"thumbnail_url"`
	IsFeatured   bool   `json:"is_featured" gorm:"default:false"`

	WhatYouWillLearn datatypes.JSON `json:"what_you_will_learn"`
	Requirements     datatypes.JSON `json:"requirements"`
	Tags             datatypes.JSON `json:"tags"`

	IsPublished bool `json:"is_published" gorm:"default:false"`
	IsDeleted   bool `gorm:"default:false"`

	Sections []Section `json:"sections,omitempty" gorm:"foreignKey:CourseID"`
}

// Section represents a titled group of lessons within a course
type Section struct {
	gorm.Model
	CourseID    uint   `json:"course_id" gorm:"index;not null"`
	Title       string `json:"title"`
	Description string `json:"description"`
	OrderIndex  int    `json:"order_index" gorm:"default:0"`
	IsDeleted   bool   `gorm:"default:false"`

	Lessons []Lesson `json:"lessons,omitempty" gorm:"foreignKey:SectionID"`
}

// Lesson represents a single lesson within a section
type Lesson struct {
	gorm.Model
	SectionID       uint   `json:"section_id" gorm:"index;not null"`
	CourseID        uint   `json:"course_id" gorm:"index;not null"` // denormalized for progress queries
	Title           string `json:"title"`
	ContentType     string `json:"content_type" gorm:"default:'VIDEO'"` // VIDEO, ARTICLE, QUIZ
	VideoURL        string `json:"video_url"`
	ArticleContent  string `json:"article_content" gorm:"type:text"`
	DurationMinutes int    `json:"duration_minutes" gorm:"default:0"`
	OrderIndex      int    `json:"order_index" gorm:"default:0"`
	IsPreview       bool   `json:"is_preview" gorm:"default:false"` // viewable without enrollment
	IsPublished     bool   `json:"is_published" gorm:"default:true"`
	IsDeleted       bool   `gorm:"default:false"`
}
