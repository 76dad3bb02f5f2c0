package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/voynichlabs/voynich-backend/pkg/enums"
)

// LeaderboardEntry is one user's score snapshot inside one timeframe bucket.
// Date is the bucket start (midnight UTC for daily, Sunday for weekly, first
// of month for monthly, a fixed epoch for alltime). Rank is nil until the
// first full-bucket recompute after the row is created.
type LeaderboardEntry struct {
	ID              int64           `gorm:"column:id;primaryKey;autoIncrement"`
	UserID          uuid.UUID       `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_leaderboard_user_timeframe_date"`
	Timeframe       enums.Timeframe `gorm:"column:timeframe;type:leaderboard_timeframe_enum;not null;uniqueIndex:idx_leaderboard_user_timeframe_date"`
	Date            time.Time       `gorm:"column:date;type:date;not null;uniqueIndex:idx_leaderboard_user_timeframe_date"`
	Score           int             `gorm:"column:score;not null;default:0"`
	AnnotationCount int             `gorm:"column:annotation_count;not null;default:0"`
	UpvotesReceived int             `gorm:"column:upvotes_received;not null;default:0"`
	Rank            *int            `gorm:"column:rank"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
