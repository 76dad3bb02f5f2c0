package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/voynichlabs/voynich-backend/pkg/enums"
)

// Vote is one user's current vote on one target. The composite unique index
// is the hard guarantee that concurrent identical votes cannot both insert.
// Switching direction deletes the old row and inserts a new one.
type Vote struct {
	ID         int64                `gorm:"column:id;primaryKey;autoIncrement"`
	TargetType enums.VoteTargetType `gorm:"column:target_type;type:vote_target_type_enum;not null;uniqueIndex:idx_votes_target_user"`
	TargetID   int64                `gorm:"column:target_id;not null;uniqueIndex:idx_votes_target_user"`
	UserID     uuid.UUID            `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_votes_target_user"`
	VoteType   enums.VoteType       `gorm:"column:vote_type;type:vote_type_enum;not null"`
	CreatedAt  time.Time            `gorm:"column:created_at;autoCreateTime"`
}
