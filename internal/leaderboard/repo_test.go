package leaderboard

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/voynichlabs/voynich-backend/pkg/enums"
	"github.com/voynichlabs/voynich-backend/pkg/pagination"
)

func setupLeaderboardTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:leaderboardrepo?mode=memory&cache=shared"), &gorm.Config{})
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
	entries := `
CREATE TABLE IF NOT EXISTS leaderboard_entries (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id TEXT NOT NULL,
  timeframe TEXT NOT NULL,
  date DATE NOT NULL,
  score INTEGER NOT NULL DEFAULT 0,
  annotation_count INTEGER NOT NULL DEFAULT 0,
  upvotes_received INTEGER NOT NULL DEFAULT 0,
  rank INTEGER,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (user_id, timeframe, date)
);`
	for _, ddl := range []string{users, entries} {
		if err := db.Exec(ddl).Error; err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	return db
}

func seedRankedUser(t *testing.T, db *gorm.DB, username string, timeframe enums.Timeframe, date string, score int) uuid.UUID {
	t.Helper()
	id := uuid.New()
	err := db.Exec(
		`INSERT INTO users (id, username, email) VALUES (?, ?, ?)`,
		id, username, username+"@example.org",
	).Error
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	err = db.Exec(
		`INSERT INTO leaderboard_entries (user_id, timeframe, date, score, upvotes_received) VALUES (?, ?, ?, ?, ?)`,
		id, timeframe, date, score, score,
	).Error
	if err != nil {
		t.Fatalf("seed leaderboard entry: %v", err)
	}
	return id
}

func TestRepository_RecomputeRanksDense(t *testing.T) {
	db := setupLeaderboardTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	date := time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC)
	day := date.Format("2006-01-02")
	aliceID := seedRankedUser(t, db, "ranks_alice", enums.TimeframeDaily, day, 10)
	bobID := seedRankedUser(t, db, "ranks_bob", enums.TimeframeDaily, day, 10)
	carolID := seedRankedUser(t, db, "ranks_carol", enums.TimeframeDaily, day, 5)
	// A neighboring bucket must keep its own ranking untouched.
	seedRankedUser(t, db, "ranks_dave", enums.TimeframeWeekly, day, 99)

	if err := repo.RecomputeRanks(ctx, enums.TimeframeDaily, date); err != nil {
		t.Fatalf("RecomputeRanks error: %v", err)
	}

	got, err := repo.ListBucket(ctx, enums.TimeframeDaily, date, pagination.Params{Limit: 10})
	if err != nil {
		t.Fatalf("ListBucket error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 ranked entries, got %d", len(got))
	}

	// Tied scores share rank 1, the next score gets rank 2 with no gap.
	byUser := map[uuid.UUID]RankedEntry{}
	for _, entry := range got {
		byUser[entry.UserID] = entry
	}
	if byUser[aliceID].Rank != 1 || byUser[bobID].Rank != 1 {
		t.Fatalf("tied top scores must share rank 1: %+v", got)
	}
	if byUser[carolID].Rank != 2 {
		t.Fatalf("expected dense rank 2 for third entry, got %+v", byUser[carolID])
	}

	var weekly struct {
		Rank *int `gorm:"column:rank"`
	}
	err = db.Raw(
		`SELECT rank FROM leaderboard_entries WHERE timeframe = ? AND date = ?`,
		enums.TimeframeWeekly, day,
	).Scan(&weekly).Error
	if err != nil {
		t.Fatalf("read weekly rank: %v", err)
	}
	if weekly.Rank != nil {
		t.Fatalf("recompute must not rank other buckets, got %d", *weekly.Rank)
	}
}

func TestRepository_UpsertEntryAccumulates(t *testing.T) {
	db := setupLeaderboardTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	err := db.Exec(
		`INSERT INTO users (id, username, email) VALUES (?, ?, ?)`,
		userID, "upsert_erin", "upsert_erin@example.org",
	).Error
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}

	date := time.Date(2026, 2, 4, 0, 0, 0, 0, time.UTC)
	if err := repo.UpsertEntry(ctx, userID, enums.TimeframeMonthly, date, Delta{Score: 2, AnnotationCount: 1}); err != nil {
		t.Fatalf("UpsertEntry insert error: %v", err)
	}
	if err := repo.UpsertEntry(ctx, userID, enums.TimeframeMonthly, date, Delta{Score: 3, UpvotesReceived: 1}); err != nil {
		t.Fatalf("UpsertEntry update error: %v", err)
	}

	var row struct {
		Count           int `gorm:"column:count"`
		Score           int `gorm:"column:score"`
		AnnotationCount int `gorm:"column:annotation_count"`
		UpvotesReceived int `gorm:"column:upvotes_received"`
	}
	err = db.Raw(
		`SELECT COUNT(*) AS count, MAX(score) AS score, MAX(annotation_count) AS annotation_count, MAX(upvotes_received) AS upvotes_received
		 FROM leaderboard_entries WHERE user_id = ? AND timeframe = ?`,
		userID, enums.TimeframeMonthly,
	).Scan(&row).Error
	if err != nil {
		t.Fatalf("read entry: %v", err)
	}
	if row.Count != 1 {
		t.Fatalf("repeat contribution must hit the same row, got %d rows", row.Count)
	}
	if row.Score != 5 || row.AnnotationCount != 1 || row.UpvotesReceived != 1 {
		t.Fatalf("deltas must accumulate, got %+v", row)
	}
}
