package models

import (
	"time"

	"github.com/google/uuid"
)

// BlogPost is a long-form research write-up. Vote counters follow the same
// cache discipline as Annotation.
type BlogPost struct {
	ID          int64      `gorm:"column:id;primaryKey;autoIncrement"`
	AuthorID    uuid.UUID  `gorm:"column:author_id;type:uuid;not null;index"`
	Title       string     `gorm:"column:title;type:text;not null"`
	Content     string     `gorm:"column:content;type:text;not null"`
	Upvotes     int        `gorm:"column:upvotes;not null;default:0"`
	Downvotes   int        `gorm:"column:downvotes;not null;default:0"`
	IsPublished bool       `gorm:"column:is_published;not null;default:false"`
	PublishedAt *time.Time `gorm:"column:published_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
