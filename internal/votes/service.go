package votes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voynichlabs/voynich-backend/internal/leaderboard"
	"github.com/voynichlabs/voynich-backend/pkg/db/models"
	"github.com/voynichlabs/voynich-backend/pkg/enums"
	pkgerrors "github.com/voynichlabs/voynich-backend/pkg/errors"
	"github.com/voynichlabs/voynich-backend/pkg/logger"
	"github.com/voynichlabs/voynich-backend/pkg/metrics"
)

// Outcome labels what a cast actually did to the stored vote.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeSwitched  Outcome = "switched"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type contributor interface {
	Contribute(ctx context.Context, userID uuid.UUID, delta leaderboard.Delta) error
}

type activityRecorder interface {
	RecordVoteCast(ctx context.Context, userID uuid.UUID, targetType enums.VoteTargetType, targetID int64, metadata json.RawMessage) error
}

// CastVoteInput identifies the voter, the target, and the direction.
type CastVoteInput struct {
	TargetType enums.VoteTargetType
	TargetID   int64
	UserID     uuid.UUID
	VoteType   enums.VoteType
}

// VoteResult reports the target's counters after the cast settled.
type VoteResult struct {
	TargetType enums.VoteTargetType `json:"target_type"`
	TargetID   int64                `json:"target_id"`
	Upvotes    int                  `json:"upvotes"`
	Downvotes  int                  `json:"downvotes"`
	Score      int                  `json:"score"`
	UserVote   enums.VoteType       `json:"user_vote"`
	Outcome    Outcome              `json:"outcome"`
}

// Service records votes and keeps the target counters consistent with the
// vote rows. The same algorithm serves every target type.
type Service interface {
	CastVote(ctx context.Context, input CastVoteInput) (*VoteResult, error)
}

// ServiceParams groups dependencies for the votes service.
type ServiceParams struct {
	Repo        Repository
	TxRunner    txRunner
	Leaderboard contributor
	Activity    activityRecorder
	Logger      *logger.Logger
	Metrics     *metrics.EngineMetrics
}

type service struct {
	repo        Repository
	tx          txRunner
	leaderboard contributor
	activity    activityRecorder
	logger      *logger.Logger
	metrics     *metrics.EngineMetrics
}

// NewService wires a votes service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("votes repository required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:        params.Repo,
		tx:          params.TxRunner,
		leaderboard: params.Leaderboard,
		activity:    params.Activity,
		logger:      params.Logger,
		metrics:     params.Metrics,
	}, nil
}

func (s *service) CastVote(ctx context.Context, input CastVoteInput) (*VoteResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.TargetID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "target id is required")
	}
	if !input.TargetType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid vote target type %q", input.TargetType))
	}
	if !input.VoteType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid vote type %q", input.VoteType))
	}

	var result VoteResult
	var authorID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		target, err := repo.GetTargetState(ctx, input.TargetType, input.TargetID)
		if err != nil {
			return err
		}
		authorID = target.AuthorID

		existing, err := repo.FindVote(ctx, input.TargetType, input.TargetID, input.UserID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		outcome := OutcomeCreated
		switch {
		case existing == nil:
			vote := &models.Vote{
				TargetType: input.TargetType,
				TargetID:   input.TargetID,
				UserID:     input.UserID,
				VoteType:   input.VoteType,
			}
			if err := repo.InsertVote(ctx, vote); err != nil {
				return err
			}
			up, down := deltaFor(input.VoteType, 1)
			if err := repo.ApplyCounterDelta(ctx, input.TargetType, input.TargetID, up, down, input.VoteType.ScoreDelta()); err != nil {
				return err
			}

		case existing.VoteType == input.VoteType:
			outcome = OutcomeUnchanged

		default:
			// Direction switch: remove the old row, insert the new one, and
			// move both counters plus the doubled score delta in one update.
			if err := repo.DeleteVote(ctx, existing.ID); err != nil {
				return err
			}
			vote := &models.Vote{
				TargetType: input.TargetType,
				TargetID:   input.TargetID,
				UserID:     input.UserID,
				VoteType:   input.VoteType,
			}
			if err := repo.InsertVote(ctx, vote); err != nil {
				return err
			}
			oldUp, oldDown := deltaFor(existing.VoteType, -1)
			newUp, newDown := deltaFor(input.VoteType, 1)
			if err := repo.ApplyCounterDelta(ctx, input.TargetType, input.TargetID, oldUp+newUp, oldDown+newDown, 2*input.VoteType.ScoreDelta()); err != nil {
				return err
			}
			outcome = OutcomeSwitched
		}

		state, err := repo.GetTargetState(ctx, input.TargetType, input.TargetID)
		if err != nil {
			return err
		}
		result = VoteResult{
			TargetType: input.TargetType,
			TargetID:   input.TargetID,
			Upvotes:    state.Upvotes,
			Downvotes:  state.Downvotes,
			Score:      state.Score,
			UserVote:   input.VoteType,
			Outcome:    outcome,
		}
		return nil
	})
	if err != nil {
		// A concurrent identical cast lost the race on the unique index. The
		// vote it wanted already exists, so report the settled state.
		if pkgerrors.IsUniqueViolation(err, "idx_votes_target_user") {
			return s.settledResult(ctx, input)
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "vote target not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record vote")
	}

	s.metrics.ObserveVote(string(input.TargetType), string(result.Outcome))

	// The vote is committed. Failing the request now would make the client
	// retry a cast that already landed, which reports "unchanged" and loses
	// the side effects for good. Log and move on instead.
	if result.Outcome == OutcomeCreated && input.VoteType == enums.VoteTypeUpvote && s.leaderboard != nil {
		// A fresh upvote credits the content's author, never the voter.
		err := s.leaderboard.Contribute(ctx, authorID, leaderboard.Delta{Score: 1, UpvotesReceived: 1})
		if err != nil && s.logger != nil {
			s.logger.Error(ctx, "leaderboard contribution after vote", err)
		}
	}

	if result.Outcome != OutcomeUnchanged && s.activity != nil {
		metadata, _ := json.Marshal(map[string]string{"vote_type": string(input.VoteType)})
		if err := s.activity.RecordVoteCast(ctx, input.UserID, input.TargetType, input.TargetID, metadata); err != nil && s.logger != nil {
			s.logger.Warn(ctx, fmt.Sprintf("vote activity record failed: %v", err))
		}
	}

	return &result, nil
}

func (s *service) settledResult(ctx context.Context, input CastVoteInput) (*VoteResult, error) {
	state, err := s.repo.GetTargetState(ctx, input.TargetType, input.TargetID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vote target")
	}
	return &VoteResult{
		TargetType: input.TargetType,
		TargetID:   input.TargetID,
		Upvotes:    state.Upvotes,
		Downvotes:  state.Downvotes,
		Score:      state.Score,
		UserVote:   input.VoteType,
		Outcome:    OutcomeUnchanged,
	}, nil
}

func deltaFor(voteType enums.VoteType, sign int) (up, down int) {
	if voteType == enums.VoteTypeUpvote {
		return sign, 0
	}
	return 0, sign
}
