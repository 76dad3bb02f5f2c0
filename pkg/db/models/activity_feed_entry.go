package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/voynichlabs/voynich-backend/pkg/enums"
)

// ActivityFeedEntry is an immutable record of a user-visible platform action.
type ActivityFeedEntry struct {
	ID         int64              `gorm:"column:id;primaryKey;autoIncrement"`
	UserID     uuid.UUID          `gorm:"column:user_id;type:uuid;not null;index"`
	Type       enums.ActivityType `gorm:"column:type;type:activity_type_enum;not null"`
	EntityID   string             `gorm:"column:entity_id;type:text;not null"`
	EntityType string             `gorm:"column:entity_type;type:text;not null"`
	Metadata   json.RawMessage    `gorm:"column:metadata;type:jsonb"`
	IsPublic   bool               `gorm:"column:is_public;not null;default:true"`
	CreatedAt  time.Time          `gorm:"column:created_at;autoCreateTime;index:idx_activity_feed_created_at,sort:desc"`
}
