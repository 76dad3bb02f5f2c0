package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/voynichlabs/voynich-backend/pkg/enums"
)

// CreditTransaction records an immutable credit ledger entry. Positive
// amounts add to the balance, negative amounts spend it. Rows are never
// updated or deleted.
type CreditTransaction struct {
	ID          int64                       `gorm:"column:id;primaryKey;autoIncrement"`
	UserID      uuid.UUID                   `gorm:"column:user_id;type:uuid;not null;index"`
	Amount      int                         `gorm:"column:amount;not null"`
	Type        enums.CreditTransactionType `gorm:"column:type;type:credit_transaction_type_enum;not null"`
	Description *string                     `gorm:"column:description"`
	// ExternalRef carries the payment provider reference for purchases so
	// duplicate webhook deliveries cannot double-credit.
	ExternalRef *string   `gorm:"column:external_ref;uniqueIndex:idx_credit_transactions_external_ref,where:external_ref IS NOT NULL"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}
