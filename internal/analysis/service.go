package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/voynichlabs/voynich-backend/internal/activity"
	"github.com/voynichlabs/voynich-backend/internal/credits"
	"github.com/voynichlabs/voynich-backend/internal/references"
	"github.com/voynichlabs/voynich-backend/pkg/db/models"
	"github.com/voynichlabs/voynich-backend/pkg/enums"
	pkgerrors "github.com/voynichlabs/voynich-backend/pkg/errors"
	"github.com/voynichlabs/voynich-backend/pkg/logger"
	"github.com/voynichlabs/voynich-backend/pkg/metrics"
	"github.com/voynichlabs/voynich-backend/pkg/openai"
	"github.com/voynichlabs/voynich-backend/pkg/pagination"
	"github.com/voynichlabs/voynich-backend/pkg/security"
)

const baseSystemPrompt = "You are a research assistant for Voynich manuscript scholarship. " +
	"Ground every claim in the referenced material when it is provided, and say so plainly when the evidence is insufficient."

type ledger interface {
	Debit(ctx context.Context, input credits.DebitInput) (int, error)
	Credit(ctx context.Context, input credits.CreditInput) (int, error)
}

type invoker interface {
	Invoke(ctx context.Context, inv openai.Invocation) (*openai.Completion, error)
}

type recorder interface {
	Record(ctx context.Context, input activity.RecordInput) (*models.ActivityFeedEntry, error)
}

// RequestInput is one analysis request as submitted by a researcher.
type RequestInput struct {
	UserID      uuid.UUID
	Prompt      string
	Model       string
	Temperature float32
	MaxTokens   int
	IsPublic    bool
	// References attached explicitly by the client, merged with the tokens
	// extracted from the prompt text.
	References []references.Reference
}

// RequestOutput carries the persisted result plus the post-debit balance.
type RequestOutput struct {
	Result     *models.AnalysisResult `json:"result"`
	NewBalance int                    `json:"new_balance"`
}

// Service orchestrates the analysis request flow: resolve references, debit
// credits, invoke the model, persist the result, and record activity. Each
// step is checked before the next; a debit failure stops everything.
type Service interface {
	Request(ctx context.Context, input RequestInput) (*RequestOutput, error)
	GetResult(ctx context.Context, id uuid.UUID, requesterID uuid.UUID) (*models.AnalysisResult, error)
	GetShared(ctx context.Context, shareToken string) (*models.AnalysisResult, error)
	ListForUser(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]models.AnalysisResult, error)
	UsageForUser(ctx context.Context, userID uuid.UUID) (*Usage, error)
}

// ServiceParams groups dependencies for the analysis service.
type ServiceParams struct {
	Repo          Repository
	Resolver      references.Resolver
	Ledger        ledger
	Invoker       invoker
	Activity      recorder
	Logger        *logger.Logger
	Metrics       *metrics.EngineMetrics
	InvokeTimeout time.Duration
}

type service struct {
	repo          Repository
	resolver      references.Resolver
	ledger        ledger
	invoker       invoker
	activity      recorder
	logger        *logger.Logger
	metrics       *metrics.EngineMetrics
	invokeTimeout time.Duration
}

// NewService wires an analysis service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("analysis repository required")
	}
	if params.Resolver == nil {
		return nil, fmt.Errorf("reference resolver required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("credit ledger required")
	}
	if params.Invoker == nil {
		return nil, fmt.Errorf("model invoker required")
	}
	if params.InvokeTimeout <= 0 {
		params.InvokeTimeout = 120 * time.Second
	}
	return &service{
		repo:          params.Repo,
		resolver:      params.Resolver,
		ledger:        params.Ledger,
		invoker:       params.Invoker,
		activity:      params.Activity,
		logger:        params.Logger,
		metrics:       params.Metrics,
		invokeTimeout: params.InvokeTimeout,
	}, nil
}

func (s *service) Request(ctx context.Context, input RequestInput) (*RequestOutput, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.Prompt == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "prompt is required")
	}
	cost, ok := CostFor(input.Model)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported model %q", input.Model)).
			WithDetails(map[string]any{"supported_models": SupportedModels()})
	}

	refs := references.Merge(references.Extract(input.Prompt), input.References)
	resolved, err := s.resolver.Resolve(ctx, refs)
	if err != nil {
		return nil, err
	}
	contextBlock := references.RenderContext(resolved)

	newBalance, err := s.ledger.Debit(ctx, credits.DebitInput{
		UserID:      input.UserID,
		Amount:      cost,
		Description: fmt.Sprintf("analysis (%s)", input.Model),
	})
	if err != nil {
		// Insufficient credits rejects the request before any provider call.
		return nil, err
	}

	systemPrompt := baseSystemPrompt
	if contextBlock != "" {
		systemPrompt = systemPrompt + "\n\n" + contextBlock
	}

	invokeCtx, cancel := context.WithTimeout(ctx, s.invokeTimeout)
	defer cancel()

	started := time.Now()
	completion, err := s.invoker.Invoke(invokeCtx, openai.Invocation{
		SystemPrompt: systemPrompt,
		UserPrompt:   input.Prompt,
		Model:        input.Model,
		Temperature:  input.Temperature,
		MaxTokens:    input.MaxTokens,
	})
	// Past this point the debit already happened, so settlement (refund,
	// persistence, activity) must run even when the caller's context is
	// already canceled. A disconnect must not strand the debit.
	settleCtx := context.WithoutCancel(ctx)
	if err != nil {
		s.metrics.ObserveAIFailure(input.Model)
		return nil, s.refundAfterFailure(settleCtx, input, cost, err)
	}
	s.metrics.ObserveAIInvocation(input.Model, time.Since(started))

	result := &models.AnalysisResult{
		UserID:           input.UserID,
		Model:            input.Model,
		Prompt:           input.Prompt,
		ReferenceContext: contextBlock,
		ResultText:       completion.Text,
		PromptTokens:     completion.PromptTokens,
		CompletionTokens: completion.CompletionTokens,
		CostCredits:      cost,
		IsPublic:         input.IsPublic,
	}
	if input.IsPublic {
		token, err := security.NewShareToken()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate share token")
		}
		result.ShareToken = &token
	}
	if err := s.repo.Insert(settleCtx, result); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist analysis result")
	}

	if s.activity != nil {
		metadata, _ := json.Marshal(map[string]any{"model": input.Model, "cost": cost})
		_, err := s.activity.Record(settleCtx, activity.RecordInput{
			UserID:     input.UserID,
			Type:       enums.ActivityTypeAnalysisCreated,
			EntityID:   result.ID.String(),
			EntityType: "analysis_result",
			IsPublic:   input.IsPublic,
			Metadata:   metadata,
		})
		if err != nil && s.logger != nil {
			// The result is already persisted and paid for. Losing the feed
			// entry is not worth failing the whole request.
			s.logger.Warn(ctx, fmt.Sprintf("analysis activity record failed: %v", err))
		}
	}

	return &RequestOutput{Result: result, NewBalance: newBalance}, nil
}

// refundAfterFailure compensates a debit whose analysis never produced a
// result. The invocation failure is always surfaced; a failed refund is
// joined onto it rather than swallowed.
func (s *service) refundAfterFailure(ctx context.Context, input RequestInput, cost int, invokeErr error) error {
	_, refundErr := s.ledger.Credit(ctx, credits.CreditInput{
		UserID:      input.UserID,
		Amount:      cost,
		Type:        enums.CreditTransactionTypeRefund,
		Description: fmt.Sprintf("refund: failed analysis (%s)", input.Model),
	})
	if refundErr != nil && s.logger != nil {
		s.logger.Error(ctx, "refund after failed analysis", refundErr)
	}
	return pkgerrors.Wrap(pkgerrors.CodeAIInvocation, multierr.Append(invokeErr, refundErr), "model invocation failed").
		WithDetails(map[string]any{"refunded": refundErr == nil})
}

func (s *service) GetResult(ctx context.Context, id uuid.UUID, requesterID uuid.UUID) (*models.AnalysisResult, error) {
	result, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "analysis result not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load analysis result")
	}
	if result.UserID != requesterID && !result.IsPublic {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "analysis result is private")
	}
	return result, nil
}

func (s *service) GetShared(ctx context.Context, shareToken string) (*models.AnalysisResult, error) {
	if len(shareToken) != security.ShareTokenLength {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "analysis result not found")
	}
	result, err := s.repo.GetByShareToken(ctx, shareToken)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "analysis result not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shared analysis result")
	}
	return result, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]models.AnalysisResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	results, err := s.repo.ListForUser(ctx, userID, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list analysis results")
	}
	return results, nil
}

func (s *service) UsageForUser(ctx context.Context, userID uuid.UUID) (*Usage, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	usage, err := s.repo.UsageForUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate usage")
	}
	return usage, nil
}
