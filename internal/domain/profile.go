package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Profile is keyed by the identity provider's user id.
type Profile struct {
	ID                     uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	FullName               string                      `json:"full_name"`
	JobTitle               string                      `json:"job_title"`
	CompanyName            string                      `json:"company_name"`
	DUNSNumber             string                      `gorm:"column:duns_number" json:"duns_number"`
	UEI                    string                      `gorm:"column:uei" json:"uei"`
	CAGECode               string                      `gorm:"column:cage_code" json:"cage_code"`
	PrimaryNAICS           string                      `gorm:"column:primary_naics" json:"primary_naics"`
	SetAsideQualifications datatypes.JSONSlice[string] `json:"set_aside_qualifications"`
	CreatedAt              time.Time                   `json:"created_at"`
	UpdatedAt              time.Time                   `json:"updated_at"`
}

type NotificationPreferences struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	BidStatusUpdates bool      `json:"bid_status_updates"`
	DueDateReminders bool      `json:"due_date_reminders"`
	RFPMatches       bool      `gorm:"column:rfp_matches" json:"rfp_matches"`
	WeeklySummary    bool      `json:"weekly_summary"`
	CreatedAt        time.Time `json:"-"`
	UpdatedAt        time.Time `json:"-"`
}

func (n *NotificationPreferences) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// DefaultNotificationPreferences is what a user gets before saving any choice.
func DefaultNotificationPreferences(userID uuid.UUID) NotificationPreferences {
	return NotificationPreferences{
		UserID:           userID,
		BidStatusUpdates: true,
		DueDateReminders: true,
		RFPMatches:       false,
		WeeklySummary:    false,
	}
}
