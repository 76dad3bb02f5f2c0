package credits

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/voynichlabs/voynich-backend/pkg/db/models"
	"github.com/voynichlabs/voynich-backend/pkg/enums"
	pkgerrors "github.com/voynichlabs/voynich-backend/pkg/errors"
	"github.com/voynichlabs/voynich-backend/pkg/pagination"
)

type fakeRepository struct {
	insertFn  func(ctx context.Context, txn *models.CreditTransaction) error
	debitFn   func(ctx context.Context, userID uuid.UUID, amount int) (bool, error)
	addFn     func(ctx context.Context, userID uuid.UUID, amount int) error
	balanceFn func(ctx context.Context, userID uuid.UUID) (int, error)
	listFn    func(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]models.CreditTransaction, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) InsertTransaction(ctx context.Context, txn *models.CreditTransaction) error {
	if f.insertFn != nil {
		return f.insertFn(ctx, txn)
	}
	return nil
}

func (f *fakeRepository) DebitBalance(ctx context.Context, userID uuid.UUID, amount int) (bool, error) {
	if f.debitFn != nil {
		return f.debitFn(ctx, userID, amount)
	}
	return true, nil
}

func (f *fakeRepository) AddBalance(ctx context.Context, userID uuid.UUID, amount int) error {
	if f.addFn != nil {
		return f.addFn(ctx, userID, amount)
	}
	return nil
}

func (f *fakeRepository) GetBalance(ctx context.Context, userID uuid.UUID) (int, error) {
	if f.balanceFn != nil {
		return f.balanceFn(ctx, userID)
	}
	return 0, nil
}

func (f *fakeRepository) ListTransactions(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]models.CreditTransaction, error) {
	if f.listFn != nil {
		return f.listFn(ctx, userID, page)
	}
	return nil, nil
}

type fakeTxRunner struct {
	err error
}

func (f *fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

func newTestService(t *testing.T, repo Repository, grant int) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:        repo,
		TxRunner:    &fakeTxRunner{},
		SignupGrant: grant,
	})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc
}

func TestService_Credit(t *testing.T) {
	userID := uuid.New()

	var inserted *models.CreditTransaction
	var added int
	repo := &fakeRepository{
		insertFn: func(ctx context.Context, txn *models.CreditTransaction) error {
			inserted = txn
			return nil
		},
		addFn: func(ctx context.Context, id uuid.UUID, amount int) error {
			if id != userID {
				t.Fatalf("unexpected user id: %s", id)
			}
			added = amount
			return nil
		},
		balanceFn: func(ctx context.Context, id uuid.UUID) (int, error) {
			return 15, nil
		},
	}
	svc := newTestService(t, repo, 0)

	balance, err := svc.Credit(context.Background(), CreditInput{
		UserID:      userID,
		Amount:      5,
		Type:        enums.CreditTransactionTypePurchase,
		Description: "starter pack",
		ExternalRef: "cs_test_abc123",
	})
	if err != nil {
		t.Fatalf("Credit error: %v", err)
	}
	if balance != 15 {
		t.Fatalf("expected balance 15, got %d", balance)
	}
	if added != 5 {
		t.Fatalf("expected balance increment of 5, got %d", added)
	}
	if inserted == nil {
		t.Fatal("expected a ledger transaction to be written")
	}
	if inserted.Amount != 5 || inserted.Type != enums.CreditTransactionTypePurchase {
		t.Fatalf("unexpected transaction data: %+v", inserted)
	}
	if inserted.ExternalRef == nil || *inserted.ExternalRef != "cs_test_abc123" {
		t.Fatalf("expected external ref to be stored: %+v", inserted)
	}
}

func TestService_CreditValidation(t *testing.T) {
	svc := newTestService(t, &fakeRepository{}, 0)

	tests := []struct {
		name  string
		input CreditInput
	}{
		{
			name:  "missing user",
			input: CreditInput{Amount: 5, Type: enums.CreditTransactionTypePurchase},
		},
		{
			name:  "zero amount",
			input: CreditInput{UserID: uuid.New(), Amount: 0, Type: enums.CreditTransactionTypePurchase},
		},
		{
			name:  "negative amount",
			input: CreditInput{UserID: uuid.New(), Amount: -3, Type: enums.CreditTransactionTypePurchase},
		},
		{
			name:  "usage type on credit path",
			input: CreditInput{UserID: uuid.New(), Amount: 5, Type: enums.CreditTransactionTypeUsage},
		},
		{
			name:  "unknown type",
			input: CreditInput{UserID: uuid.New(), Amount: 5, Type: enums.CreditTransactionType("bonus")},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Credit(context.Background(), tc.input); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestService_CreditDuplicateExternalRef(t *testing.T) {
	userID := uuid.New()
	repo := &fakeRepository{
		insertFn: func(ctx context.Context, txn *models.CreditTransaction) error {
			return &pgconn.PgError{Code: "23505", ConstraintName: "idx_credit_transactions_external_ref"}
		},
		balanceFn: func(ctx context.Context, id uuid.UUID) (int, error) {
			return 42, nil
		},
	}
	svc := newTestService(t, repo, 0)

	balance, err := svc.Credit(context.Background(), CreditInput{
		UserID:      userID,
		Amount:      10,
		Type:        enums.CreditTransactionTypePurchase,
		ExternalRef: "cs_test_replayed",
	})
	if err != nil {
		t.Fatalf("duplicate external ref should be idempotent, got %v", err)
	}
	if balance != 42 {
		t.Fatalf("expected current balance 42, got %d", balance)
	}
}

func TestService_Debit(t *testing.T) {
	userID := uuid.New()

	var inserted *models.CreditTransaction
	repo := &fakeRepository{
		debitFn: func(ctx context.Context, id uuid.UUID, amount int) (bool, error) {
			if amount != 3 {
				t.Fatalf("expected debit of 3, got %d", amount)
			}
			return true, nil
		},
		insertFn: func(ctx context.Context, txn *models.CreditTransaction) error {
			inserted = txn
			return nil
		},
		balanceFn: func(ctx context.Context, id uuid.UUID) (int, error) {
			return 7, nil
		},
	}
	svc := newTestService(t, repo, 0)

	balance, err := svc.Debit(context.Background(), DebitInput{
		UserID:      userID,
		Amount:      3,
		Description: "symbol analysis",
	})
	if err != nil {
		t.Fatalf("Debit error: %v", err)
	}
	if balance != 7 {
		t.Fatalf("expected balance 7, got %d", balance)
	}
	if inserted == nil {
		t.Fatal("expected a usage transaction to be written")
	}
	if inserted.Amount != -3 {
		t.Fatalf("usage transactions must store negative amounts, got %d", inserted.Amount)
	}
	if inserted.Type != enums.CreditTransactionTypeUsage {
		t.Fatalf("expected usage type, got %s", inserted.Type)
	}
}

func TestService_DebitInsufficientCredits(t *testing.T) {
	userID := uuid.New()

	inserts := 0
	repo := &fakeRepository{
		debitFn: func(ctx context.Context, id uuid.UUID, amount int) (bool, error) {
			return false, nil
		},
		insertFn: func(ctx context.Context, txn *models.CreditTransaction) error {
			inserts++
			return nil
		},
		balanceFn: func(ctx context.Context, id uuid.UUID) (int, error) {
			return 2, nil
		},
	}
	svc := newTestService(t, repo, 0)

	_, err := svc.Debit(context.Background(), DebitInput{UserID: userID, Amount: 5})
	if !pkgerrors.IsCode(err, pkgerrors.CodeInsufficientCredits) {
		t.Fatalf("expected insufficient credits error, got %v", err)
	}
	if inserts != 0 {
		t.Fatalf("rejected debit must not write a transaction, wrote %d", inserts)
	}

	typed := pkgerrors.As(err)
	details, ok := typed.Details().(InsufficientCreditsDetails)
	if !ok {
		t.Fatalf("expected insufficient credits details, got %T", typed.Details())
	}
	if details.Required != 5 || details.Available != 2 {
		t.Fatalf("unexpected details: %+v", details)
	}
}

func TestService_DebitValidation(t *testing.T) {
	svc := newTestService(t, &fakeRepository{}, 0)

	if _, err := svc.Debit(context.Background(), DebitInput{UserID: uuid.Nil, Amount: 5}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for missing user, got %v", err)
	}
	if _, err := svc.Debit(context.Background(), DebitInput{UserID: uuid.New(), Amount: 0}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for zero amount, got %v", err)
	}
}

func TestService_GrantSignup(t *testing.T) {
	userID := uuid.New()

	var inserted *models.CreditTransaction
	repo := &fakeRepository{
		insertFn: func(ctx context.Context, txn *models.CreditTransaction) error {
			inserted = txn
			return nil
		},
		balanceFn: func(ctx context.Context, id uuid.UUID) (int, error) {
			return 10, nil
		},
	}
	svc := newTestService(t, repo, 10)

	balance, err := svc.GrantSignup(context.Background(), userID)
	if err != nil {
		t.Fatalf("GrantSignup error: %v", err)
	}
	if balance != 10 {
		t.Fatalf("expected balance 10, got %d", balance)
	}
	if inserted == nil || inserted.Type != enums.CreditTransactionTypeFree || inserted.Amount != 10 {
		t.Fatalf("unexpected signup grant transaction: %+v", inserted)
	}
}

func TestService_GrantSignupDisabled(t *testing.T) {
	repo := &fakeRepository{
		insertFn: func(ctx context.Context, txn *models.CreditTransaction) error {
			t.Fatal("zero grant must not write a transaction")
			return nil
		},
		balanceFn: func(ctx context.Context, id uuid.UUID) (int, error) {
			return 0, nil
		},
	}
	svc := newTestService(t, repo, 0)

	balance, err := svc.GrantSignup(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("GrantSignup error: %v", err)
	}
	if balance != 0 {
		t.Fatalf("expected balance 0, got %d", balance)
	}
}

func TestService_GetBalanceUnknownUser(t *testing.T) {
	repo := &fakeRepository{
		balanceFn: func(ctx context.Context, id uuid.UUID) (int, error) {
			return 0, gorm.ErrRecordNotFound
		},
	}
	svc := newTestService(t, repo, 0)

	if _, err := svc.GetBalance(context.Background(), uuid.New()); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}
