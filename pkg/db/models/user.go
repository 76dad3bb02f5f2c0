package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents the canonical researcher identity.
//
// CreditBalance is a derived counter over credit_transactions. It is written
// only by the credits repository, inside the same transaction as the ledger
// row, so it can never drift from the transaction log.
type User struct {
	ID            uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Username      string     `gorm:"type:text;not null;uniqueIndex"`
	Email         string     `gorm:"type:text;not null;uniqueIndex"`
	CreditBalance int        `gorm:"column:credit_balance;not null;default:0"`
	IsActive      bool       `gorm:"column:is_active;not null;default:true"`
	LastSeenAt    *time.Time `gorm:"column:last_seen_at"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
