package leaderboard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voynichlabs/voynich-backend/pkg/enums"
	pkgerrors "github.com/voynichlabs/voynich-backend/pkg/errors"
	"github.com/voynichlabs/voynich-backend/pkg/metrics"
	"github.com/voynichlabs/voynich-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Delta is the increment a single contribution applies to a user's entry in
// every timeframe bucket.
type Delta struct {
	Score           int
	AnnotationCount int
	UpvotesReceived int
}

func (d Delta) isZero() bool {
	return d.Score == 0 && d.AnnotationCount == 0 && d.UpvotesReceived == 0
}

// Snapshot is the ranked state of one timeframe bucket.
type Snapshot struct {
	Timeframe  enums.Timeframe `json:"timeframe"`
	BucketDate time.Time       `json:"bucket_date"`
	Entries    []RankedEntry   `json:"entries"`
}

// Service maintains leaderboard entries across the four timeframe buckets.
// Every contribution lands in all four buckets and finishes with a full
// rank recompute for each, inside one transaction, so callers never read a
// stale rank after a contribution settles.
type Service interface {
	Contribute(ctx context.Context, userID uuid.UUID, delta Delta) error
	GetLeaderboard(ctx context.Context, timeframe enums.Timeframe, page pagination.Params) (*Snapshot, error)
}

// ServiceParams groups dependencies for the leaderboard service.
type ServiceParams struct {
	Repo     Repository
	TxRunner txRunner
	Metrics  *metrics.EngineMetrics
	// Now overrides the clock, primarily for tests. Defaults to time.Now.
	Now func() time.Time
}

type service struct {
	repo    Repository
	tx      txRunner
	metrics *metrics.EngineMetrics
	now     func() time.Time
}

// NewService wires a leaderboard service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("leaderboard repository required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:    params.Repo,
		tx:      params.TxRunner,
		metrics: params.Metrics,
		now:     now,
	}, nil
}

func (s *service) Contribute(ctx context.Context, userID uuid.UUID, delta Delta) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if delta.isZero() {
		return nil
	}

	now := s.now()
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		for _, timeframe := range enums.Timeframes {
			bucket := BucketStart(timeframe, now)
			if err := repo.LockBucket(ctx, timeframe, bucket); err != nil {
				return err
			}
			if err := repo.UpsertEntry(ctx, userID, timeframe, bucket, delta); err != nil {
				return err
			}
			if err := repo.RecomputeRanks(ctx, timeframe, bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply leaderboard contribution")
	}

	for _, timeframe := range enums.Timeframes {
		s.metrics.ObserveRankRecompute(string(timeframe))
	}
	return nil
}

func (s *service) GetLeaderboard(ctx context.Context, timeframe enums.Timeframe, page pagination.Params) (*Snapshot, error) {
	if !timeframe.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid timeframe %q", timeframe))
	}

	bucket := BucketStart(timeframe, s.now())
	entries, err := s.repo.ListBucket(ctx, timeframe, bucket, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list leaderboard bucket")
	}
	if entries == nil {
		entries = []RankedEntry{}
	}
	return &Snapshot{
		Timeframe:  timeframe,
		BucketDate: bucket,
		Entries:    entries,
	}, nil
}
