package stripewebhook

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/voynichlabs/voynich-backend/internal/activity"
	"github.com/voynichlabs/voynich-backend/internal/credits"
	"github.com/voynichlabs/voynich-backend/pkg/db/models"
	"github.com/voynichlabs/voynich-backend/pkg/enums"
	pkgerrors "github.com/voynichlabs/voynich-backend/pkg/errors"
)

type fakeLedger struct {
	inputs []credits.CreditInput
}

func (f *fakeLedger) Credit(ctx context.Context, input credits.CreditInput) (int, error) {
	f.inputs = append(f.inputs, input)
	return 25, nil
}

type fakeRecorder struct {
	records []activity.RecordInput
}

func (f *fakeRecorder) Record(ctx context.Context, input activity.RecordInput) (*models.ActivityFeedEntry, error) {
	f.records = append(f.records, input)
	return &models.ActivityFeedEntry{}, nil
}

func checkoutEvent(t *testing.T, session map[string]any) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(session)
	if err != nil {
		t.Fatalf("marshal session: %v", err)
	}
	return &stripe.Event{
		ID:   "evt_test_1",
		Type: stripe.EventTypeCheckoutSessionCompleted,
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestService_HandleCheckoutCompleted(t *testing.T) {
	ledger := &fakeLedger{}
	recorder := &fakeRecorder{}
	svc, err := NewService(ServiceParams{Ledger: ledger, Activity: recorder})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	userID := uuid.New()
	event := checkoutEvent(t, map[string]any{
		"id": "cs_test_abc",
		"metadata": map[string]string{
			"user_id":       userID.String(),
			"credit_amount": "25",
		},
	})

	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent error: %v", err)
	}

	if len(ledger.inputs) != 1 {
		t.Fatalf("expected one credit, got %d", len(ledger.inputs))
	}
	input := ledger.inputs[0]
	if input.UserID != userID || input.Amount != 25 {
		t.Fatalf("unexpected credit input: %+v", input)
	}
	if input.Type != enums.CreditTransactionTypePurchase {
		t.Fatalf("expected purchase type, got %s", input.Type)
	}
	if input.ExternalRef != "cs_test_abc" {
		t.Fatalf("session id must become the external ref, got %q", input.ExternalRef)
	}

	if len(recorder.records) != 1 || recorder.records[0].Type != enums.ActivityTypeCreditsPurchased {
		t.Fatalf("expected credits_purchased activity, got %+v", recorder.records)
	}
	if recorder.records[0].IsPublic {
		t.Fatal("purchase activity must be private")
	}
}

func TestService_HandleEventIgnoresOtherTypes(t *testing.T) {
	ledger := &fakeLedger{}
	svc, err := NewService(ServiceParams{Ledger: ledger})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	event := &stripe.Event{
		Type: stripe.EventTypeInvoicePaid,
		Data: &stripe.EventData{Raw: json.RawMessage(`{}`)},
	}
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unrelated events must be acknowledged, got %v", err)
	}
	if len(ledger.inputs) != 0 {
		t.Fatal("unrelated events must not credit anyone")
	}
}

func TestService_HandleCheckoutMissingMetadata(t *testing.T) {
	svc, err := NewService(ServiceParams{Ledger: &fakeLedger{}})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	tests := []struct {
		name    string
		session map[string]any
	}{
		{
			name:    "missing user id",
			session: map[string]any{"id": "cs_1", "metadata": map[string]string{"credit_amount": "10"}},
		},
		{
			name:    "missing amount",
			session: map[string]any{"id": "cs_2", "metadata": map[string]string{"user_id": uuid.NewString()}},
		},
		{
			name:    "non-numeric amount",
			session: map[string]any{"id": "cs_3", "metadata": map[string]string{"user_id": uuid.NewString(), "credit_amount": "lots"}},
		},
		{
			name:    "zero amount",
			session: map[string]any{"id": "cs_4", "metadata": map[string]string{"user_id": uuid.NewString(), "credit_amount": "0"}},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.HandleEvent(context.Background(), checkoutEvent(t, tc.session))
			if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

type fakeStore struct {
	keys map[string]bool
}

func (f *fakeStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if f.keys == nil {
		f.keys = map[string]bool{}
	}
	if f.keys[key] {
		return false, nil
	}
	f.keys[key] = true
	return true, nil
}

func (f *fakeStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.keys, key)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func TestIdempotencyGuard(t *testing.T) {
	guard, err := NewIdempotencyGuard(&fakeStore{}, time.Hour, "stripe")
	if err != nil {
		t.Fatalf("unexpected guard error: %v", err)
	}

	seen, err := guard.CheckAndMark(context.Background(), "evt_1")
	if err != nil {
		t.Fatalf("CheckAndMark error: %v", err)
	}
	if seen {
		t.Fatal("first delivery must not be marked as seen")
	}

	seen, err = guard.CheckAndMark(context.Background(), "evt_1")
	if err != nil {
		t.Fatalf("CheckAndMark error: %v", err)
	}
	if !seen {
		t.Fatal("replayed delivery must be marked as seen")
	}

	if err := guard.Delete(context.Background(), "evt_1"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	seen, err = guard.CheckAndMark(context.Background(), "evt_1")
	if err != nil {
		t.Fatalf("CheckAndMark error: %v", err)
	}
	if seen {
		t.Fatal("released event must be processable again")
	}
}
