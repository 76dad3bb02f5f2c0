package credits

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupCreditsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:creditsrepo?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	users := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL,
  email TEXT NOT NULL,
  credit_balance INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  last_seen_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	if err := db.Exec(users).Error; err != nil {
		t.Fatalf("create users table: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, balance int) uuid.UUID {
	t.Helper()
	id := uuid.New()
	err := db.Exec(
		`INSERT INTO users (id, username, email, credit_balance) VALUES (?, ?, ?, ?)`,
		id, "u_"+id.String()[:8], id.String()[:8]+"@example.org", balance,
	).Error
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return id
}

func TestRepository_DebitBalanceConditional(t *testing.T) {
	db := setupCreditsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := seedUser(t, db, 15)

	applied, err := repo.DebitBalance(ctx, userID, 10)
	if err != nil {
		t.Fatalf("DebitBalance error: %v", err)
	}
	if !applied {
		t.Fatal("expected first debit of 10 from 15 to apply")
	}

	// The predicate sees the already decremented balance, so the same debit
	// must now be refused without touching the row.
	applied, err = repo.DebitBalance(ctx, userID, 10)
	if err != nil {
		t.Fatalf("DebitBalance error: %v", err)
	}
	if applied {
		t.Fatal("debit of 10 from 5 must not apply")
	}

	balance, err := repo.GetBalance(ctx, userID)
	if err != nil {
		t.Fatalf("GetBalance error: %v", err)
	}
	if balance != 5 {
		t.Fatalf("expected balance 5 after one applied debit, got %d", balance)
	}
}

func TestRepository_DebitBalanceExactFunds(t *testing.T) {
	db := setupCreditsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := seedUser(t, db, 3)

	applied, err := repo.DebitBalance(ctx, userID, 3)
	if err != nil {
		t.Fatalf("DebitBalance error: %v", err)
	}
	if !applied {
		t.Fatal("debit of the exact balance must apply")
	}

	balance, err := repo.GetBalance(ctx, userID)
	if err != nil {
		t.Fatalf("GetBalance error: %v", err)
	}
	if balance != 0 {
		t.Fatalf("expected balance 0, got %d", balance)
	}
}

func TestRepository_AddBalance(t *testing.T) {
	db := setupCreditsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := seedUser(t, db, 2)

	if err := repo.AddBalance(ctx, userID, 8); err != nil {
		t.Fatalf("AddBalance error: %v", err)
	}
	balance, err := repo.GetBalance(ctx, userID)
	if err != nil {
		t.Fatalf("GetBalance error: %v", err)
	}
	if balance != 10 {
		t.Fatalf("expected balance 10, got %d", balance)
	}

	if err := repo.AddBalance(ctx, uuid.New(), 8); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected record not found for unknown user, got %v", err)
	}
}
