package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"govbid/internal/bid"
	"govbid/internal/domain"
	apiError "govbid/internal/errors"
	"govbid/internal/logger"
	"govbid/internal/testutil"
)

const testWebhookSecret = "whsec_test_secret"

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CheckoutSession), args.Error(1)
}

type serviceFixture struct {
	repo     bid.BidRepository
	provider *MockProvider
	service  *DefaultService
	bid      *domain.Bid
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	repo := bid.NewRepository(testutil.NewDB(t))
	b := &domain.Bid{UserID: uuid.New(), Title: "Cloud Migration", Status: domain.BidStatusDraft, PWinScore: 20}
	require.NoError(t, repo.Create(context.Background(), b))

	provider := new(MockProvider)
	svc := NewService(repo, provider, testWebhookSecret, logger.Nop()).(*DefaultService)
	return &serviceFixture{repo: repo, provider: provider, service: svc, bid: b}
}

func sign(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func completedEvent(sessionID string, bidID, userID string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "evt_1",
		"object": "event",
		"type": "checkout.session.completed",
		"api_version": "2020-08-27",
		"data": {"object": {"id": %q, "object": "checkout.session", "metadata": {"bidId": %q, "userId": %q}}}
	}`, sessionID, bidID, userID))
}

func requireStatus(t *testing.T, err error, status int) {
	t.Helper()
	var apiErr *apiError.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, status, apiErr.Status)
}

func TestCreateCheckout_Success(t *testing.T) {
	f := newServiceFixture(t)
	f.provider.On("CreateCheckoutSession", mock.Anything, CheckoutRequest{
		BidID: f.bid.ID, UserID: f.bid.UserID, BidTitle: "Cloud Migration",
	}).Return(&CheckoutSession{URL: "https://checkout.stripe.com/c/pay/cs_1", SessionID: "cs_1"}, nil)

	session, err := f.service.CreateCheckout(context.Background(), f.bid.ID, f.bid.UserID)
	require.NoError(t, err)
	assert.Equal(t, "cs_1", session.SessionID)
	f.provider.AssertExpectations(t)
}

func TestCreateCheckout_NotOwned(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.service.CreateCheckout(context.Background(), f.bid.ID, uuid.New())
	requireStatus(t, err, http.StatusNotFound)
	f.provider.AssertNotCalled(t, "CreateCheckoutSession")
}

func TestCreateCheckout_ProcessorErrorPropagates(t *testing.T) {
	f := newServiceFixture(t)
	f.provider.On("CreateCheckoutSession", mock.Anything, mock.Anything).
		Return(nil, apiError.New(http.StatusPaymentRequired, "Your card was declined.", nil))

	_, err := f.service.CreateCheckout(context.Background(), f.bid.ID, f.bid.UserID)
	requireStatus(t, err, http.StatusPaymentRequired)
	assert.EqualError(t, err, "Your card was declined.")
}

func TestCreateCheckout_NotConfigured(t *testing.T) {
	f := newServiceFixture(t)
	svc := NewService(f.repo, nil, testWebhookSecret, logger.Nop())

	_, err := svc.CreateCheckout(context.Background(), f.bid.ID, f.bid.UserID)
	requireStatus(t, err, http.StatusInternalServerError)
}

func TestHandleWebhook_MarksBidPaid(t *testing.T) {
	f := newServiceFixture(t)
	paidAt := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	f.service.now = func() time.Time { return paidAt }

	payload := completedEvent("cs_live_1", f.bid.ID.String(), f.bid.UserID.String())
	require.NoError(t, f.service.HandleWebhook(context.Background(), payload, sign(payload, testWebhookSecret, time.Now())))

	got, err := f.repo.FindOwned(context.Background(), f.bid.ID, f.bid.UserID)
	require.NoError(t, err)
	assert.Equal(t, domain.BidStatusInReview, got.Status)
	assert.Equal(t, "cs_live_1", got.StripeSessionID)
	require.NotNil(t, got.PaidAt)
	assert.True(t, paidAt.Equal(got.PaidAt.UTC()))
}

func TestHandleWebhook_RejectsBadSignatures(t *testing.T) {
	f := newServiceFixture(t)
	payload := completedEvent("cs_1", f.bid.ID.String(), f.bid.UserID.String())

	tests := []struct {
		name      string
		signature string
	}{
		{"missing", ""},
		{"wrong secret", sign(payload, "whsec_other", time.Now())},
		{"stale", sign(payload, testWebhookSecret, time.Now().Add(-time.Hour))},
		{"garbage", "not-a-signature"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.service.HandleWebhook(context.Background(), payload, tt.signature)
			requireStatus(t, err, http.StatusBadRequest)
		})
	}

	got, err := f.repo.FindOwned(context.Background(), f.bid.ID, f.bid.UserID)
	require.NoError(t, err)
	assert.Equal(t, domain.BidStatusDraft, got.Status)
	assert.Nil(t, got.PaidAt)
}

func TestHandleWebhook_TamperedPayload(t *testing.T) {
	f := newServiceFixture(t)
	signed := completedEvent("cs_1", uuid.NewString(), f.bid.UserID.String())
	sig := sign(signed, testWebhookSecret, time.Now())
	tampered := completedEvent("cs_1", f.bid.ID.String(), f.bid.UserID.String())

	err := f.service.HandleWebhook(context.Background(), tampered, sig)
	requireStatus(t, err, http.StatusBadRequest)

	got, err := f.repo.FindOwned(context.Background(), f.bid.ID, f.bid.UserID)
	require.NoError(t, err)
	assert.Equal(t, domain.BidStatusDraft, got.Status)
}

func TestHandleWebhook_ScopedToOwner(t *testing.T) {
	f := newServiceFixture(t)
	payload := completedEvent("cs_1", f.bid.ID.String(), uuid.NewString())

	require.NoError(t, f.service.HandleWebhook(context.Background(), payload, sign(payload, testWebhookSecret, time.Now())))

	got, err := f.repo.FindOwned(context.Background(), f.bid.ID, f.bid.UserID)
	require.NoError(t, err)
	assert.Equal(t, domain.BidStatusDraft, got.Status)
}

func TestHandleWebhook_IgnoresOtherEventsAndMissingMetadata(t *testing.T) {
	f := newServiceFixture(t)

	other := []byte(`{"id":"evt_2","object":"event","type":"payment_intent.created","data":{"object":{"id":"pi_1","object":"payment_intent"}}}`)
	require.NoError(t, f.service.HandleWebhook(context.Background(), other, sign(other, testWebhookSecret, time.Now())))

	noMeta := completedEvent("cs_2", "", f.bid.UserID.String())
	require.NoError(t, f.service.HandleWebhook(context.Background(), noMeta, sign(noMeta, testWebhookSecret, time.Now())))

	got, err := f.repo.FindOwned(context.Background(), f.bid.ID, f.bid.UserID)
	require.NoError(t, err)
	assert.Equal(t, domain.BidStatusDraft, got.Status)
}

func TestHandleWebhook_SecretNotConfigured(t *testing.T) {
	f := newServiceFixture(t)
	svc := NewService(f.repo, nil, "", logger.Nop())

	err := svc.HandleWebhook(context.Background(), []byte(`{}`), "t=1,v1=00")
	requireStatus(t, err, http.StatusInternalServerError)
}
