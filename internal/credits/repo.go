package credits

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voynichlabs/voynich-backend/pkg/db/models"
	"github.com/voynichlabs/voynich-backend/pkg/pagination"
)

// Repository manages persistence for the credit ledger. The balance column
// on users and the credit_transactions log are only ever written together,
// inside the caller's transaction.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	InsertTransaction(ctx context.Context, txn *models.CreditTransaction) error
	// DebitBalance decrements the balance only when sufficient funds remain.
	// It reports whether the decrement was applied. This is the single
	// round trip that makes concurrent overdraw impossible.
	DebitBalance(ctx context.Context, userID uuid.UUID, amount int) (bool, error)
	AddBalance(ctx context.Context, userID uuid.UUID, amount int) error
	GetBalance(ctx context.Context, userID uuid.UUID) (int, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]models.CreditTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a credit ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) InsertTransaction(ctx context.Context, txn *models.CreditTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) DebitBalance(ctx context.Context, userID uuid.UUID, amount int) (bool, error) {
	result := r.db.WithContext(ctx).Exec(
		`UPDATE users SET credit_balance = credit_balance - ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND credit_balance >= ?`,
		amount, userID, amount,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) AddBalance(ctx context.Context, userID uuid.UUID, amount int) error {
	result := r.db.WithContext(ctx).Exec(
		`UPDATE users SET credit_balance = credit_balance + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		amount, userID,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) GetBalance(ctx context.Context, userID uuid.UUID) (int, error) {
	var balance int
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Select("credit_balance").
		Take(&balance).Error
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func (r *repository) ListTransactions(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]models.CreditTransaction, error) {
	page = pagination.Normalize(page)
	var txns []models.CreditTransaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}
