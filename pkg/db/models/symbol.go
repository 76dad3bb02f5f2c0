package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Symbol is a cataloged glyph occurrence cropped out of a manuscript page.
type Symbol struct {
	ID        int             `gorm:"column:id;primaryKey;autoIncrement"`
	PageID    int             `gorm:"column:page_id;not null;index"`
	CreatorID uuid.UUID       `gorm:"column:creator_id;type:uuid;not null"`
	Category  *string         `gorm:"column:category"`
	X         int             `gorm:"column:x;not null"`
	Y         int             `gorm:"column:y;not null"`
	Width     int             `gorm:"column:width;not null"`
	Height    int             `gorm:"column:height;not null"`
	Metadata  json.RawMessage `gorm:"column:metadata;type:jsonb"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`

	Page *ManuscriptPage `gorm:"foreignKey:PageID"`
}
