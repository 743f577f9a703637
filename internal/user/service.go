package user

import (
	"context"
	"encoding/json"
	defError "errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"govbid/auth"
	"govbid/internal/domain"
	"govbid/internal/errors"
	"govbid/internal/logger"
	"govbid/internal/whitelist"
)

// Revoker invalidates a token id until it would have expired anyway
type Revoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
}

// Service defines the interface for profile and preference logic
type Service interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input map[string]any) (*domain.Profile, error)
	GetNotificationPreferences(ctx context.Context, userID uuid.UUID) (*domain.NotificationPreferences, error)
	UpdateNotificationPreferences(ctx context.Context, userID uuid.UUID, input NotificationInput) (*domain.NotificationPreferences, error)
	Logout(ctx context.Context, claims *auth.Claims) error
}

// NotificationInput is a preferences update; a nil field takes its default
type NotificationInput struct {
	BidStatusUpdates *bool `json:"bid_status_updates"`
	DueDateReminders *bool `json:"due_date_reminders"`
	RFPMatches       *bool `json:"rfp_matches"`
	WeeklySummary    *bool `json:"weekly_summary"`
}

// DefaultService implements Service
type DefaultService struct {
	repository ProfileRepository
	revoker    Revoker
	log        *logger.Logger
}

// NewService creates a new user service
func NewService(repository ProfileRepository, revoker Revoker, log *logger.Logger) Service {
	return &DefaultService{
		repository: repository,
		revoker:    revoker,
		log:        log.With("service", "UserService"),
	}
}

// GetProfile returns the saved profile, or nil when the user has none yet
func (s *DefaultService) GetProfile(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	profile, err := s.repository.FindProfile(ctx, userID)
	if defError.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.New(500, "Failed to load profile", err)
	}
	return profile, nil
}

// UpdateProfile writes the allowed fields present in input
func (s *DefaultService) UpdateProfile(ctx context.Context, userID uuid.UUID, input map[string]any) (*domain.Profile, error) {
	fields := whitelist.Filter(input, whitelist.ProfileFields)

	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, errors.BadRequest("Invalid request body", err)
	}
	var profile domain.Profile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, errors.BadRequest("Invalid request body", err)
	}
	profile.ID = userID

	if err := s.repository.UpsertProfile(ctx, &profile, whitelist.ProfileFields.Keys(fields)); err != nil {
		return nil, errors.New(500, "Failed to save profile", err)
	}

	saved, err := s.repository.FindProfile(ctx, userID)
	if err != nil {
		return nil, errors.New(500, "Failed to load profile", err)
	}
	return saved, nil
}

// GetNotificationPreferences returns the saved preferences or the defaults
func (s *DefaultService) GetNotificationPreferences(ctx context.Context, userID uuid.UUID) (*domain.NotificationPreferences, error) {
	prefs, err := s.repository.FindNotificationPreferences(ctx, userID)
	if defError.Is(err, gorm.ErrRecordNotFound) {
		defaults := domain.DefaultNotificationPreferences(userID)
		return &defaults, nil
	}
	if err != nil {
		return nil, errors.New(500, "Failed to process notification preferences", err)
	}
	return prefs, nil
}

// UpdateNotificationPreferences replaces all four preferences
func (s *DefaultService) UpdateNotificationPreferences(ctx context.Context, userID uuid.UUID, input NotificationInput) (*domain.NotificationPreferences, error) {
	prefs := domain.DefaultNotificationPreferences(userID)
	if input.BidStatusUpdates != nil {
		prefs.BidStatusUpdates = *input.BidStatusUpdates
	}
	if input.DueDateReminders != nil {
		prefs.DueDateReminders = *input.DueDateReminders
	}
	if input.RFPMatches != nil {
		prefs.RFPMatches = *input.RFPMatches
	}
	if input.WeeklySummary != nil {
		prefs.WeeklySummary = *input.WeeklySummary
	}

	if err := s.repository.UpsertNotificationPreferences(ctx, &prefs); err != nil {
		return nil, errors.New(500, "Failed to process notification preferences", err)
	}

	saved, err := s.repository.FindNotificationPreferences(ctx, userID)
	if err != nil {
		return nil, errors.New(500, "Failed to process notification preferences", err)
	}
	return saved, nil
}

// Logout revokes the presented access token
func (s *DefaultService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil || claims.ExpiresAt == nil {
		return errors.Unauthorized("Unauthorized", nil)
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	if err := s.revoker.Revoke(ctx, claims.ID, ttl); err != nil {
		s.log.Warn("token revocation failed", "error", err)
		return errors.Internal(err)
	}
	return nil
}
