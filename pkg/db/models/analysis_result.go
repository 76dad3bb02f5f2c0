package models

import (
	"time"

	"github.com/google/uuid"
)

// AnalysisResult persists the outcome of one AI analysis request.
// ShareToken is set only for public results.
type AnalysisResult struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID           uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	Model            string    `gorm:"column:model;type:text;not null"`
	Prompt           string    `gorm:"column:prompt;type:text;not null"`
	ReferenceContext string    `gorm:"column:reference_context;type:text"`
	ResultText       string    `gorm:"column:result_text;type:text;not null"`
	PromptTokens     int       `gorm:"column:prompt_tokens;not null;default:0"`
	CompletionTokens int       `gorm:"column:completion_tokens;not null;default:0"`
	CostCredits      int       `gorm:"column:cost_credits;not null"`
	IsPublic         bool      `gorm:"column:is_public;not null;default:false"`
	ShareToken       *string   `gorm:"column:share_token;uniqueIndex:idx_analysis_results_share_token,where:share_token IS NOT NULL"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
}
