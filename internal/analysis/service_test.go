package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/voynichlabs/voynich-backend/internal/activity"
	"github.com/voynichlabs/voynich-backend/internal/credits"
	"github.com/voynichlabs/voynich-backend/internal/references"
	"github.com/voynichlabs/voynich-backend/pkg/db/models"
	"github.com/voynichlabs/voynich-backend/pkg/enums"
	pkgerrors "github.com/voynichlabs/voynich-backend/pkg/errors"
	"github.com/voynichlabs/voynich-backend/pkg/openai"
	"github.com/voynichlabs/voynich-backend/pkg/pagination"
	"github.com/voynichlabs/voynich-backend/pkg/security"
)

type fakeRepo struct {
	inserted []*models.AnalysisResult
	byID     map[uuid.UUID]*models.AnalysisResult
}

func (f *fakeRepo) Insert(ctx context.Context, result *models.AnalysisResult) error {
	result.ID = uuid.New()
	f.inserted = append(f.inserted, result)
	return nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.AnalysisResult, error) {
	if result, ok := f.byID[id]; ok {
		return result, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "missing")
}

func (f *fakeRepo) GetByShareToken(ctx context.Context, token string) (*models.AnalysisResult, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "missing")
}

func (f *fakeRepo) ListForUser(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]models.AnalysisResult, error) {
	return nil, nil
}

func (f *fakeRepo) UsageForUser(ctx context.Context, userID uuid.UUID) (*Usage, error) {
	return &Usage{}, nil
}

type fakeResolver struct {
	resolved []references.ResolvedReference
	seen     []references.Reference
}

func (f *fakeResolver) Resolve(ctx context.Context, refs []references.Reference) ([]references.ResolvedReference, error) {
	f.seen = refs
	return f.resolved, nil
}

type fakeLedger struct {
	balance int
	debits  []credits.DebitInput
	credits []credits.CreditInput
}

func (f *fakeLedger) Debit(ctx context.Context, input credits.DebitInput) (int, error) {
	if input.Amount > f.balance {
		return 0, pkgerrors.New(pkgerrors.CodeInsufficientCredits, "insufficient credits")
	}
	f.balance -= input.Amount
	f.debits = append(f.debits, input)
	return f.balance, nil
}

func (f *fakeLedger) Credit(ctx context.Context, input credits.CreditInput) (int, error) {
	f.balance += input.Amount
	f.credits = append(f.credits, input)
	return f.balance, nil
}

type fakeInvoker struct {
	completion *openai.Completion
	err        error
	calls      []openai.Invocation
}

func (f *fakeInvoker) Invoke(ctx context.Context, inv openai.Invocation) (*openai.Completion, error) {
	f.calls = append(f.calls, inv)
	if f.err != nil {
		return nil, f.err
	}
	return f.completion, nil
}

type fakeRecorder struct {
	records []activity.RecordInput
}

func (f *fakeRecorder) Record(ctx context.Context, input activity.RecordInput) (*models.ActivityFeedEntry, error) {
	f.records = append(f.records, input)
	return &models.ActivityFeedEntry{}, nil
}

type testDeps struct {
	repo     *fakeRepo
	resolver *fakeResolver
	ledger   *fakeLedger
	invoker  *fakeInvoker
	recorder *fakeRecorder
}

func newTestService(t *testing.T, deps testDeps) Service {
	t.Helper()
	if deps.repo == nil {
		deps.repo = &fakeRepo{}
	}
	if deps.resolver == nil {
		deps.resolver = &fakeResolver{}
	}
	if deps.ledger == nil {
		deps.ledger = &fakeLedger{balance: 100}
	}
	if deps.invoker == nil {
		deps.invoker = &fakeInvoker{completion: &openai.Completion{Text: "analysis text"}}
	}
	params := ServiceParams{
		Repo:     deps.repo,
		Resolver: deps.resolver,
		Ledger:   deps.ledger,
		Invoker:  deps.invoker,
	}
	if deps.recorder != nil {
		params.Activity = deps.recorder
	}
	svc, err := NewService(params)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc
}

func TestService_RequestFlow(t *testing.T) {
	// Balance 12, cost 3, {page5} resolves, {symbol9} was deleted.
	resolver := &fakeResolver{
		resolved: []references.ResolvedReference{
			{Type: references.RefTypePage, ID: 5, FolioNumber: "78r", Section: "herbal"},
		},
	}
	ledger := &fakeLedger{balance: 12}
	invoker := &fakeInvoker{completion: &openai.Completion{Text: "the glyph clusters...", PromptTokens: 120, CompletionTokens: 300}}
	repo := &fakeRepo{}
	recorder := &fakeRecorder{}
	svc := newTestService(t, testDeps{repo: repo, resolver: resolver, ledger: ledger, invoker: invoker, recorder: recorder})

	out, err := svc.Request(context.Background(), RequestInput{
		UserID: uuid.New(),
		Prompt: "compare {page5} with {symbol9}",
		Model:  "gpt-4o",
	})
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}

	if out.NewBalance != 9 {
		t.Fatalf("expected balance 9 after debit, got %d", out.NewBalance)
	}
	if len(ledger.debits) != 1 || ledger.debits[0].Amount != 3 {
		t.Fatalf("expected one debit of 3, got %+v", ledger.debits)
	}

	// Both tokens reach the resolver, only the surviving page renders.
	if len(resolver.seen) != 2 {
		t.Fatalf("expected 2 extracted references, got %v", resolver.seen)
	}
	if len(invoker.calls) != 1 {
		t.Fatalf("expected one invocation, got %d", len(invoker.calls))
	}
	system := invoker.calls[0].SystemPrompt
	if !strings.Contains(system, "folio 78r") {
		t.Fatalf("system prompt missing page context:\n%s", system)
	}
	if strings.Contains(system, "Symbol") {
		t.Fatalf("dropped reference must not render:\n%s", system)
	}

	if len(repo.inserted) != 1 {
		t.Fatalf("expected one persisted result, got %d", len(repo.inserted))
	}
	result := repo.inserted[0]
	if result.ResultText != "the glyph clusters..." || result.CostCredits != 3 {
		t.Fatalf("unexpected persisted result: %+v", result)
	}
	if result.PromptTokens != 120 || result.CompletionTokens != 300 {
		t.Fatalf("token usage not persisted: %+v", result)
	}
	if result.ShareToken != nil {
		t.Fatal("private result must not get a share token")
	}

	if len(recorder.records) != 1 || recorder.records[0].Type != enums.ActivityTypeAnalysisCreated {
		t.Fatalf("expected analysis_created activity, got %+v", recorder.records)
	}
	if recorder.records[0].EntityID != result.ID.String() {
		t.Fatalf("activity must reference the persisted result, got %q", recorder.records[0].EntityID)
	}
}

func TestService_RequestPublicGetsShareToken(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(t, testDeps{repo: repo})

	_, err := svc.Request(context.Background(), RequestInput{
		UserID:   uuid.New(),
		Prompt:   "what plant is on folio 33v?",
		Model:    "gpt-4o-mini",
		IsPublic: true,
	})
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	result := repo.inserted[0]
	if result.ShareToken == nil {
		t.Fatal("public result must get a share token")
	}
	if len(*result.ShareToken) != security.ShareTokenLength {
		t.Fatalf("unexpected token length %d", len(*result.ShareToken))
	}
}

func TestService_RequestInsufficientCredits(t *testing.T) {
	ledger := &fakeLedger{balance: 1}
	invoker := &fakeInvoker{completion: &openai.Completion{Text: "x"}}
	repo := &fakeRepo{}
	recorder := &fakeRecorder{}
	svc := newTestService(t, testDeps{repo: repo, ledger: ledger, invoker: invoker, recorder: recorder})

	_, err := svc.Request(context.Background(), RequestInput{
		UserID: uuid.New(),
		Prompt: "prompt",
		Model:  "gpt-4o",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeInsufficientCredits) {
		t.Fatalf("expected insufficient credits error, got %v", err)
	}

	// Rejection stops the whole flow.
	if len(invoker.calls) != 0 {
		t.Fatal("rejected request must not invoke the model")
	}
	if len(repo.inserted) != 0 {
		t.Fatal("rejected request must not persist a result")
	}
	if len(recorder.records) != 0 {
		t.Fatal("rejected request must not record activity")
	}
}

func TestService_RequestRefundsOnInvocationFailure(t *testing.T) {
	ledger := &fakeLedger{balance: 10}
	invoker := &fakeInvoker{err: errors.New("connection reset")}
	repo := &fakeRepo{}
	svc := newTestService(t, testDeps{repo: repo, ledger: ledger, invoker: invoker})

	_, err := svc.Request(context.Background(), RequestInput{
		UserID: uuid.New(),
		Prompt: "prompt",
		Model:  "gpt-4o",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeAIInvocation) {
		t.Fatalf("expected invocation error, got %v", err)
	}

	if len(ledger.credits) != 1 {
		t.Fatalf("expected one refund, got %+v", ledger.credits)
	}
	refund := ledger.credits[0]
	if refund.Type != enums.CreditTransactionTypeRefund || refund.Amount != 3 {
		t.Fatalf("unexpected refund: %+v", refund)
	}
	if ledger.balance != 10 {
		t.Fatalf("refund must restore the balance, got %d", ledger.balance)
	}
	if len(repo.inserted) != 0 {
		t.Fatal("failed invocation must not persist a result")
	}
}

// ctxBoundLedger refuses to work on a dead context, the way a real
// database-backed ledger would.
type ctxBoundLedger struct {
	fakeLedger
}

func (f *ctxBoundLedger) Credit(ctx context.Context, input credits.CreditInput) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return f.fakeLedger.Credit(ctx, input)
}

type cancelingInvoker struct {
	cancel context.CancelFunc
}

func (f *cancelingInvoker) Invoke(ctx context.Context, inv openai.Invocation) (*openai.Completion, error) {
	// The caller disconnects mid-invocation.
	f.cancel()
	return nil, context.Canceled
}

func TestService_RequestRefundsAfterCallerDisconnect(t *testing.T) {
	// The debit happened before the caller went away, so the refund must
	// still reach the ledger even though the request context is dead.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ledger := &ctxBoundLedger{fakeLedger: fakeLedger{balance: 12}}
	svc, err := NewService(ServiceParams{
		Repo:     &fakeRepo{},
		Resolver: &fakeResolver{},
		Ledger:   ledger,
		Invoker:  &cancelingInvoker{cancel: cancel},
	})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	_, err = svc.Request(ctx, RequestInput{
		UserID: uuid.New(),
		Prompt: "prompt",
		Model:  "gpt-4o",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeAIInvocation) {
		t.Fatalf("expected invocation error, got %v", err)
	}

	if len(ledger.credits) != 1 || ledger.credits[0].Type != enums.CreditTransactionTypeRefund {
		t.Fatalf("expected one refund despite the dead context, got %+v", ledger.credits)
	}
	if ledger.balance != 12 {
		t.Fatalf("refund must restore the balance, got %d", ledger.balance)
	}

	details, ok := pkgerrors.As(err).Details().(map[string]any)
	if !ok || details["refunded"] != true {
		t.Fatalf("error must report the refund, got %+v", details)
	}
}

func TestService_RequestValidation(t *testing.T) {
	svc := newTestService(t, testDeps{})

	tests := []struct {
		name  string
		input RequestInput
	}{
		{name: "missing user", input: RequestInput{Prompt: "p", Model: "gpt-4o"}},
		{name: "empty prompt", input: RequestInput{UserID: uuid.New(), Model: "gpt-4o"}},
		{name: "unknown model", input: RequestInput{UserID: uuid.New(), Prompt: "p", Model: "claude-3"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Request(context.Background(), tc.input); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestService_GetResultVisibility(t *testing.T) {
	ownerID := uuid.New()
	privateID := uuid.New()
	publicID := uuid.New()
	repo := &fakeRepo{
		byID: map[uuid.UUID]*models.AnalysisResult{
			privateID: {ID: privateID, UserID: ownerID, IsPublic: false},
			publicID:  {ID: publicID, UserID: ownerID, IsPublic: true},
		},
	}
	svc := newTestService(t, testDeps{repo: repo})

	if _, err := svc.GetResult(context.Background(), privateID, ownerID); err != nil {
		t.Fatalf("owner must read own private result: %v", err)
	}
	if _, err := svc.GetResult(context.Background(), privateID, uuid.New()); !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden for stranger, got %v", err)
	}
	if _, err := svc.GetResult(context.Background(), publicID, uuid.New()); err != nil {
		t.Fatalf("public result must be readable: %v", err)
	}
}

func TestService_GetSharedRejectsMalformedToken(t *testing.T) {
	svc := newTestService(t, testDeps{})

	if _, err := svc.GetShared(context.Background(), "short"); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for malformed token, got %v", err)
	}
}
