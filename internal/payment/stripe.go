package payment

import (
	"context"
	defError "errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"govbid/internal/errors"
)

type CheckoutRequest struct {
	BidID    uuid.UUID
	UserID   uuid.UUID
	BidTitle string
}

type CheckoutSession struct {
	URL       string `json:"url"`
	SessionID string `json:"sessionId"`
}

// Provider creates hosted checkout sessions.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
}

type StripeConfig struct {
	SecretKey string
	PriceID   string
	SiteURL   string
	// Backends overrides the API transport in tests.
	Backends *stripe.Backends
}

type stripeProvider struct {
	api     *client.API
	priceID string
	siteURL string
}

// NewStripeProvider returns nil when no secret key is configured.
func NewStripeProvider(cfg StripeConfig) Provider {
	if cfg.SecretKey == "" {
		return nil
	}
	api := &client.API{}
	api.Init(cfg.SecretKey, cfg.Backends)
	return &stripeProvider{
		api:     api,
		priceID: cfg.PriceID,
		siteURL: strings.TrimRight(cfg.SiteURL, "/"),
	}
}

func (p *stripeProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(p.priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(p.siteURL + "/bid/" + req.BidID.String() + "?paid=1"),
		CancelURL:         stripe.String(p.siteURL + "/bid/" + req.BidID.String()),
		ClientReferenceID: stripe.String(req.BidID.String()),
	}
	params.Context = ctx
	params.AddMetadata("bidId", req.BidID.String())
	params.AddMetadata("userId", req.UserID.String())

	s, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, processorError(err)
	}
	return &CheckoutSession{URL: s.URL, SessionID: s.ID}, nil
}

// processorError keeps Stripe's status code and message for the caller.
func processorError(err error) error {
	var stripeErr *stripe.Error
	if defError.As(err, &stripeErr) {
		status := stripeErr.HTTPStatusCode
		if status < http.StatusBadRequest {
			status = http.StatusBadGateway
		}
		msg := stripeErr.Msg
		if msg == "" {
			msg = "Failed to create checkout session"
		}
		return errors.New(status, msg, err)
	}
	return errors.New(http.StatusBadGateway, "Failed to create checkout session", err)
}
