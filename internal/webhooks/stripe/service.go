package stripewebhook

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/voynichlabs/voynich-backend/internal/activity"
	"github.com/voynichlabs/voynich-backend/internal/credits"
	"github.com/voynichlabs/voynich-backend/pkg/db/models"
	"github.com/voynichlabs/voynich-backend/pkg/enums"
	pkgerrors "github.com/voynichlabs/voynich-backend/pkg/errors"
)

type ledger interface {
	Credit(ctx context.Context, input credits.CreditInput) (int, error)
}

type recorder interface {
	Record(ctx context.Context, input activity.RecordInput) (*models.ActivityFeedEntry, error)
}

type ServiceParams struct {
	Ledger   ledger
	Activity recorder
}

// Service turns confirmed checkout sessions into credit purchases. Checkout
// sessions carry the buyer's user id and the purchased credit amount in
// their metadata; the session id becomes the ledger's external reference so
// a replayed delivery can never double-credit.
type Service struct {
	ledger   ledger
	activity recorder
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "credit ledger required")
	}
	return &Service{
		ledger:   params.Ledger,
		activity: params.Activity,
	}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode checkout session")
		}
		return s.creditPurchase(ctx, &session)
	default:
		// Unsubscribed event types acknowledge without effect.
		return nil
	}
}

func (s *Service) creditPurchase(ctx context.Context, session *stripe.CheckoutSession) error {
	if session == nil || session.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout session id missing")
	}

	userID, err := uuid.Parse(session.Metadata["user_id"])
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "checkout session user id")
	}
	amount, err := strconv.Atoi(session.Metadata["credit_amount"])
	if err != nil || amount <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout session credit amount missing or invalid")
	}

	newBalance, err := s.ledger.Credit(ctx, credits.CreditInput{
		UserID:      userID,
		Amount:      amount,
		Type:        enums.CreditTransactionTypePurchase,
		Description: "credit purchase",
		ExternalRef: session.ID,
	})
	if err != nil {
		return err
	}

	if s.activity != nil {
		metadata, _ := json.Marshal(map[string]any{"amount": amount, "new_balance": newBalance})
		_, err := s.activity.Record(ctx, activity.RecordInput{
			UserID:     userID,
			Type:       enums.ActivityTypeCreditsPurchased,
			EntityID:   session.ID,
			EntityType: "checkout_session",
			IsPublic:   false,
			Metadata:   metadata,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
