package leaderboard

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/voynichlabs/voynich-backend/pkg/db/models"
	"github.com/voynichlabs/voynich-backend/pkg/enums"
	"github.com/voynichlabs/voynich-backend/pkg/pagination"
)

// RankedEntry is one leaderboard row joined with its username.
type RankedEntry struct {
	UserID          uuid.UUID `gorm:"column:user_id" json:"user_id"`
	Username        string    `gorm:"column:username" json:"username"`
	Score           int       `gorm:"column:score" json:"score"`
	AnnotationCount int       `gorm:"column:annotation_count" json:"annotation_count"`
	UpvotesReceived int       `gorm:"column:upvotes_received" json:"upvotes_received"`
	Rank            int       `gorm:"column:rank" json:"rank"`
}

// Repository manages leaderboard entries for one timeframe bucket at a time.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// LockBucket serializes concurrent contributions to one bucket for the
	// rest of the current transaction, so ranks are never computed from a
	// snapshot missing a concurrent upsert.
	LockBucket(ctx context.Context, timeframe enums.Timeframe, date time.Time) error
	UpsertEntry(ctx context.Context, userID uuid.UUID, timeframe enums.Timeframe, date time.Time, delta Delta) error
	RecomputeRanks(ctx context.Context, timeframe enums.Timeframe, date time.Time) error
	ListBucket(ctx context.Context, timeframe enums.Timeframe, date time.Time, page pagination.Params) ([]RankedEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a leaderboard repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) LockBucket(ctx context.Context, timeframe enums.Timeframe, date time.Time) error {
	return r.db.WithContext(ctx).Exec(
		`SELECT pg_advisory_xact_lock(hashtext(? || ?))`,
		string(timeframe), date.Format("2006-01-02"),
	).Error
}

func (r *repository) UpsertEntry(ctx context.Context, userID uuid.UUID, timeframe enums.Timeframe, date time.Time, delta Delta) error {
	entry := models.LeaderboardEntry{
		UserID:          userID,
		Timeframe:       timeframe,
		Date:            date,
		Score:           delta.Score,
		AnnotationCount: delta.AnnotationCount,
		UpvotesReceived: delta.UpvotesReceived,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "timeframe"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]any{
			"score":            gorm.Expr("leaderboard_entries.score + EXCLUDED.score"),
			"annotation_count": gorm.Expr("leaderboard_entries.annotation_count + EXCLUDED.annotation_count"),
			"upvotes_received": gorm.Expr("leaderboard_entries.upvotes_received + EXCLUDED.upvotes_received"),
			"updated_at":       gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(&entry).Error
}

func (r *repository) RecomputeRanks(ctx context.Context, timeframe enums.Timeframe, date time.Time) error {
	// Dense ranking over the whole bucket in one statement. Tied scores
	// share a rank.
	return r.db.WithContext(ctx).Exec(
		`UPDATE leaderboard_entries AS le
		 SET rank = ranked.r
		 FROM (
			SELECT id, DENSE_RANK() OVER (ORDER BY score DESC) AS r
			FROM leaderboard_entries
			WHERE timeframe = ? AND date = ?
		 ) ranked
		 WHERE le.id = ranked.id`,
		timeframe, date.Format("2006-01-02"),
	).Error
}

func (r *repository) ListBucket(ctx context.Context, timeframe enums.Timeframe, date time.Time, page pagination.Params) ([]RankedEntry, error) {
	page = pagination.Normalize(page)
	var entries []RankedEntry
	err := r.db.WithContext(ctx).Raw(
		`SELECT le.user_id, u.username, le.score, le.annotation_count, le.upvotes_received, le.rank
		 FROM leaderboard_entries le
		 JOIN users u ON u.id = le.user_id
		 WHERE le.timeframe = ? AND le.date = ? AND le.rank IS NOT NULL
		 ORDER BY le.score DESC, le.user_id ASC
		 LIMIT ? OFFSET ?`,
		timeframe, date.Format("2006-01-02"), page.Limit, page.Offset,
	).Scan(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
