package votes

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voynichlabs/voynich-backend/pkg/db/models"
	"github.com/voynichlabs/voynich-backend/pkg/enums"
)

// targetTable describes one votable table so a single algorithm can serve
// every target type. Annotations track a combined score column, blog posts
// only track the raw counters.
type targetTable struct {
	model     any
	authorCol string
	hasScore  bool
}

var targetTables = map[enums.VoteTargetType]targetTable{
	enums.VoteTargetTypeAnnotation: {model: &models.Annotation{}, authorCol: "user_id", hasScore: true},
	enums.VoteTargetTypeBlogPost:   {model: &models.BlogPost{}, authorCol: "author_id", hasScore: false},
}

// TargetState is a snapshot of a votable row's author and cached counters.
type TargetState struct {
	AuthorID  uuid.UUID `gorm:"column:author_id"`
	Upvotes   int       `gorm:"column:upvotes"`
	Downvotes int       `gorm:"column:downvotes"`
	Score     int       `gorm:"column:score"`
}

// Repository manages vote rows and the denormalized counters on their targets.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindVote(ctx context.Context, targetType enums.VoteTargetType, targetID int64, userID uuid.UUID) (*models.Vote, error)
	InsertVote(ctx context.Context, vote *models.Vote) error
	DeleteVote(ctx context.Context, id int64) error
	// ApplyCounterDelta adjusts the target's cached counters in one statement
	// so observers never see a partially applied switch.
	ApplyCounterDelta(ctx context.Context, targetType enums.VoteTargetType, targetID int64, upDelta, downDelta, scoreDelta int) error
	GetTargetState(ctx context.Context, targetType enums.VoteTargetType, targetID int64) (*TargetState, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a vote repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindVote(ctx context.Context, targetType enums.VoteTargetType, targetID int64, userID uuid.UUID) (*models.Vote, error) {
	var vote models.Vote
	err := r.db.WithContext(ctx).
		Where("target_type = ? AND target_id = ? AND user_id = ?", targetType, targetID, userID).
		Take(&vote).Error
	if err != nil {
		return nil, err
	}
	return &vote, nil
}

func (r *repository) InsertVote(ctx context.Context, vote *models.Vote) error {
	return r.db.WithContext(ctx).Create(vote).Error
}

func (r *repository) DeleteVote(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&models.Vote{}, id).Error
}

func (r *repository) ApplyCounterDelta(ctx context.Context, targetType enums.VoteTargetType, targetID int64, upDelta, downDelta, scoreDelta int) error {
	tbl, ok := targetTables[targetType]
	if !ok {
		return fmt.Errorf("unknown vote target type %q", targetType)
	}

	updates := map[string]any{
		"upvotes":   gorm.Expr("upvotes + ?", upDelta),
		"downvotes": gorm.Expr("downvotes + ?", downDelta),
	}
	if tbl.hasScore {
		updates["score"] = gorm.Expr("score + ?", scoreDelta)
	}

	result := r.db.WithContext(ctx).
		Model(tbl.model).
		Where("id = ?", targetID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) GetTargetState(ctx context.Context, targetType enums.VoteTargetType, targetID int64) (*TargetState, error) {
	tbl, ok := targetTables[targetType]
	if !ok {
		return nil, fmt.Errorf("unknown vote target type %q", targetType)
	}

	scoreExpr := "0 AS score"
	if tbl.hasScore {
		scoreExpr = "score"
	}

	var state TargetState
	result := r.db.WithContext(ctx).
		Model(tbl.model).
		Select(fmt.Sprintf("%s AS author_id, upvotes, downvotes, %s", tbl.authorCol, scoreExpr)).
		Where("id = ?", targetID).
		Scan(&state)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &state, nil
}
