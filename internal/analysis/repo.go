package analysis

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voynichlabs/voynich-backend/pkg/db/models"
	"github.com/voynichlabs/voynich-backend/pkg/pagination"
)

// Usage aggregates one user's analysis consumption.
type Usage struct {
	RequestCount     int `gorm:"column:request_count" json:"request_count"`
	PromptTokens     int `gorm:"column:prompt_tokens" json:"prompt_tokens"`
	CompletionTokens int `gorm:"column:completion_tokens" json:"completion_tokens"`
	CreditsSpent     int `gorm:"column:credits_spent" json:"credits_spent"`
}

// Repository persists analysis results.
type Repository interface {
	Insert(ctx context.Context, result *models.AnalysisResult) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.AnalysisResult, error)
	GetByShareToken(ctx context.Context, token string) (*models.AnalysisResult, error)
	ListForUser(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]models.AnalysisResult, error)
	UsageForUser(ctx context.Context, userID uuid.UUID) (*Usage, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an analysis repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, result *models.AnalysisResult) error {
	return r.db.WithContext(ctx).Create(result).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.AnalysisResult, error) {
	var result models.AnalysisResult
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&result).Error
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *repository) GetByShareToken(ctx context.Context, token string) (*models.AnalysisResult, error) {
	var result models.AnalysisResult
	err := r.db.WithContext(ctx).
		Where("share_token = ? AND is_public = ?", token, true).
		Take(&result).Error
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *repository) ListForUser(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]models.AnalysisResult, error) {
	page = pagination.Normalize(page)
	var results []models.AnalysisResult
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (r *repository) UsageForUser(ctx context.Context, userID uuid.UUID) (*Usage, error) {
	var usage Usage
	err := r.db.WithContext(ctx).
		Model(&models.AnalysisResult{}).
		Where("user_id = ?", userID).
		Select(`COUNT(*) AS request_count,
			COALESCE(SUM(prompt_tokens), 0) AS prompt_tokens,
			COALESCE(SUM(completion_tokens), 0) AS completion_tokens,
			COALESCE(SUM(cost_credits), 0) AS credits_spent`).
		Take(&usage).Error
	if err != nil {
		return nil, err
	}
	return &usage, nil
}
