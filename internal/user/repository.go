package user

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"govbid/internal/domain"
)

// ProfileRepository defines the interface for profile and preference data access
type ProfileRepository interface {
	FindProfile(ctx context.Context, userID uuid.UUID) (*domain.Profile, error)
	UpsertProfile(ctx context.Context, profile *domain.Profile, columns []string) error
	FindNotificationPreferences(ctx context.Context, userID uuid.UUID) (*domain.NotificationPreferences, error)
	UpsertNotificationPreferences(ctx context.Context, prefs *domain.NotificationPreferences) error
}

// ProfileRepositoryImpl implements ProfileRepository
type ProfileRepositoryImpl struct {
	db *gorm.DB
}

// NewRepository creates a new profile repository
func NewRepository(db *gorm.DB) ProfileRepository {
	return &ProfileRepositoryImpl{db: db}
}

// FindProfile finds the profile of a user
func (r *ProfileRepositoryImpl) FindProfile(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	var profile domain.Profile
	if err := r.db.WithContext(ctx).Where("id = ?", userID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpsertProfile inserts the profile or overwrites the given columns of an
// existing one
func (r *ProfileRepositoryImpl) UpsertProfile(ctx context.Context, profile *domain.Profile, columns []string) error {
	now := time.Now().UTC()
	profile.CreatedAt = now
	profile.UpdatedAt = now

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(append(append([]string{}, columns...), "updated_at")),
	}).Create(profile).Error
}

// FindNotificationPreferences finds the saved preferences of a user
func (r *ProfileRepositoryImpl) FindNotificationPreferences(ctx context.Context, userID uuid.UUID) (*domain.NotificationPreferences, error) {
	var prefs domain.NotificationPreferences
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&prefs).Error; err != nil {
		return nil, err
	}
	return &prefs, nil
}

// UpsertNotificationPreferences saves every preference of a user
func (r *ProfileRepositoryImpl) UpsertNotificationPreferences(ctx context.Context, prefs *domain.NotificationPreferences) error {
	now := time.Now().UTC()
	prefs.CreatedAt = now
	prefs.UpdatedAt = now

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"bid_status_updates", "due_date_reminders", "rfp_matches", "weekly_summary", "updated_at",
		}),
	}).Create(prefs).Error
}
