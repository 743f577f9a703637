package payment

import (
	"context"
	"encoding/json"
	defError "errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"gorm.io/gorm"

	"govbid/internal/domain"
	"govbid/internal/errors"
	"govbid/internal/logger"
)

const eventCheckoutCompleted = "checkout.session.completed"

type BidStore interface {
	FindOwned(ctx context.Context, bidID, userID uuid.UUID) (*domain.Bid, error)
	MarkPaid(ctx context.Context, bidID, userID uuid.UUID, sessionID string, paidAt time.Time) (int64, error)
}

type Service interface {
	CreateCheckout(ctx context.Context, bidID, userID uuid.UUID) (*CheckoutSession, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type DefaultService struct {
	bids          BidStore
	provider      Provider
	webhookSecret string
	log           *logger.Logger

	now func() time.Time
}

// NewService wires checkout and webhook handling. provider may be nil when
// payments are not configured.
func NewService(bids BidStore, provider Provider, webhookSecret string, log *logger.Logger) Service {
	return &DefaultService{
		bids:          bids,
		provider:      provider,
		webhookSecret: webhookSecret,
		log:           log.With("service", "PaymentService"),
		now:           time.Now,
	}
}

func (s *DefaultService) CreateCheckout(ctx context.Context, bidID, userID uuid.UUID) (*CheckoutSession, error) {
	bid, err := s.bids.FindOwned(ctx, bidID, userID)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Bid not found", err)
		}
		return nil, err
	}
	if s.provider == nil {
		return nil, errors.New(http.StatusInternalServerError, "Stripe not configured", nil)
	}

	session, err := s.provider.CreateCheckoutSession(ctx, CheckoutRequest{
		BidID:    bid.ID,
		UserID:   userID,
		BidTitle: bid.Title,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("checkout session created", "bid_id", bidID, "session_id", session.SessionID)
	return session, nil
}

// HandleWebhook verifies the signature over the raw payload before looking
// at the event.
func (s *DefaultService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.webhookSecret == "" {
		return errors.New(http.StatusInternalServerError, "Webhook secret not configured", nil)
	}
	if signature == "" {
		return errors.BadRequest("Missing stripe-signature header", nil)
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return errors.BadRequest("Invalid signature", err)
	}

	if string(event.Type) != eventCheckoutCompleted {
		s.log.Debug("ignoring stripe event", "type", event.Type)
		return nil
	}

	if event.Data == nil {
		return errors.BadRequest("Invalid event payload", nil)
	}
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return errors.BadRequest("Invalid event payload", err)
	}

	bidID, okBid := uuidOrNil(session.Metadata["bidId"])
	userID, okUser := uuidOrNil(session.Metadata["userId"])
	if !okBid || !okUser {
		s.log.Warn("checkout completed without bid metadata", "session_id", session.ID)
		return nil
	}

	n, err := s.bids.MarkPaid(ctx, bidID, userID, session.ID, s.now().UTC())
	if err != nil {
		return err
	}
	if n == 0 {
		s.log.Warn("checkout completed for unknown bid", "bid_id", bidID, "session_id", session.ID)
		return nil
	}

	s.log.Info("bid paid", "bid_id", bidID, "session_id", session.ID)
	return nil
}

func uuidOrNil(s string) (uuid.UUID, bool) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
