package models

import (
	"time"

	"github.com/google/uuid"
)

// Annotation is a researcher note anchored to a region of a page.
//
// Upvotes, Downvotes, and Score are denormalized caches over the votes
// table. They are written only by the votes repository so they remain
// re-derivable from the vote rows.
type Annotation struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	PageID    int       `gorm:"column:page_id;not null;index"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	X         int       `gorm:"column:x;not null"`
	Y         int       `gorm:"column:y;not null"`
	Width     int       `gorm:"column:width;not null"`
	Height    int       `gorm:"column:height;not null"`
	Content   string    `gorm:"column:content;type:text;not null"`
	IsPublic  bool      `gorm:"column:is_public;not null;default:true"`
	Upvotes   int       `gorm:"column:upvotes;not null;default:0"`
	Downvotes int       `gorm:"column:downvotes;not null;default:0"`
	Score     int       `gorm:"column:score;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
