package credits

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voynichlabs/voynich-backend/pkg/db/models"
	"github.com/voynichlabs/voynich-backend/pkg/enums"
	pkgerrors "github.com/voynichlabs/voynich-backend/pkg/errors"
	"github.com/voynichlabs/voynich-backend/pkg/metrics"
	"github.com/voynichlabs/voynich-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the credit ledger operations. Every mutation runs the
// balance update and the ledger insert as one database transaction, so the
// balance column can always be re-derived from the transaction log.
type Service interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (int, error)
	Credit(ctx context.Context, input CreditInput) (int, error)
	Debit(ctx context.Context, input DebitInput) (int, error)
	GrantSignup(ctx context.Context, userID uuid.UUID) (int, error)
	History(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]models.CreditTransaction, error)
}

// CreditInput captures a balance addition.
type CreditInput struct {
	UserID      uuid.UUID
	Amount      int
	Type        enums.CreditTransactionType
	Description string
	ExternalRef string
}

// DebitInput captures a balance spend.
type DebitInput struct {
	UserID      uuid.UUID
	Amount      int
	Description string
}

// InsufficientCreditsDetails is attached to INSUFFICIENT_CREDITS responses
// so the UI can prompt a purchase with exact numbers.
type InsufficientCreditsDetails struct {
	Required  int `json:"required"`
	Available int `json:"available"`
}

// ServiceParams groups dependencies for the credits service.
type ServiceParams struct {
	Repo        Repository
	TxRunner    txRunner
	Metrics     *metrics.EngineMetrics
	SignupGrant int
}

type service struct {
	repo        Repository
	tx          txRunner
	metrics     *metrics.EngineMetrics
	signupGrant int
}

// NewService wires a credits service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("credits repository required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.SignupGrant < 0 {
		return nil, fmt.Errorf("signup grant cannot be negative")
	}
	return &service{
		repo:        params.Repo,
		tx:          params.TxRunner,
		metrics:     params.Metrics,
		signupGrant: params.SignupGrant,
	}, nil
}

func (s *service) GetBalance(ctx context.Context, userID uuid.UUID) (int, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	balance, err := s.repo.GetBalance(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "user not found")
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load balance")
	}
	return balance, nil
}

func (s *service) Credit(ctx context.Context, input CreditInput) (int, error) {
	if input.UserID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.Amount <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "credit amount must be positive")
	}
	if !input.Type.IsValid() || !input.Type.IsCredit() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid credit type %q", input.Type))
	}

	var newBalance int
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		txn := &models.CreditTransaction{
			UserID: input.UserID,
			Amount: input.Amount,
			Type:   input.Type,
		}
		if input.Description != "" {
			txn.Description = &input.Description
		}
		if input.ExternalRef != "" {
			txn.ExternalRef = &input.ExternalRef
		}

		if err := repo.InsertTransaction(ctx, txn); err != nil {
			return err
		}
		if err := repo.AddBalance(ctx, input.UserID, input.Amount); err != nil {
			return err
		}

		balance, err := repo.GetBalance(ctx, input.UserID)
		if err != nil {
			return err
		}
		newBalance = balance
		return nil
	})
	if err != nil {
		// A replayed payment webhook hits the partial unique index on
		// external_ref. The credit already happened, so report the current
		// balance instead of failing the delivery.
		if input.ExternalRef != "" && pkgerrors.IsUniqueViolation(err, "idx_credit_transactions_external_ref") {
			return s.GetBalance(ctx, input.UserID)
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "user not found")
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record credit")
	}

	s.metrics.ObserveCredit(string(input.Type))
	return newBalance, nil
}

func (s *service) Debit(ctx context.Context, input DebitInput) (int, error) {
	if input.UserID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.Amount <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "debit amount must be positive")
	}

	var newBalance int
	var available int
	var rejected bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		applied, err := repo.DebitBalance(ctx, input.UserID, input.Amount)
		if err != nil {
			return err
		}
		if !applied {
			// The conditional update did not match: either the user is
			// missing or the balance is short. Read the balance for the
			// rejection payload; the transaction has written nothing yet.
			balance, err := repo.GetBalance(ctx, input.UserID)
			if err != nil {
				return err
			}
			available = balance
			rejected = true
			return nil
		}

		txn := &models.CreditTransaction{
			UserID: input.UserID,
			Amount: -input.Amount,
			Type:   enums.CreditTransactionTypeUsage,
		}
		if input.Description != "" {
			txn.Description = &input.Description
		}
		if err := repo.InsertTransaction(ctx, txn); err != nil {
			return err
		}

		balance, err := repo.GetBalance(ctx, input.UserID)
		if err != nil {
			return err
		}
		newBalance = balance
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "user not found")
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record debit")
	}
	if rejected {
		s.metrics.ObserveDebitRejection()
		return 0, pkgerrors.New(pkgerrors.CodeInsufficientCredits, "insufficient credits").
			WithDetails(InsufficientCreditsDetails{Required: input.Amount, Available: available})
	}

	s.metrics.ObserveDebit("usage")
	return newBalance, nil
}

func (s *service) GrantSignup(ctx context.Context, userID uuid.UUID) (int, error) {
	if s.signupGrant == 0 {
		return s.GetBalance(ctx, userID)
	}
	return s.Credit(ctx, CreditInput{
		UserID:      userID,
		Amount:      s.signupGrant,
		Type:        enums.CreditTransactionTypeFree,
		Description: "signup grant",
	})
}

func (s *service) History(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]models.CreditTransaction, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	txns, err := s.repo.ListTransactions(ctx, userID, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}
	return txns, nil
}
