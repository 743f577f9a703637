package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Bid lifecycle statuses
const (
	BidStatusDraft     = "draft"
	BidStatusInReview  = "in_review"
	BidStatusSubmitted = "submitted"
	BidStatusWon       = "won"
	BidStatusLost      = "lost"
)

var BidStatuses = []string{BidStatusDraft, BidStatusInReview, BidStatusSubmitted, BidStatusWon, BidStatusLost}

// Compliance statuses
const (
	ComplianceCompliant = "compliant"
	CompliancePartial   = "partial"
	ComplianceMissing   = "missing"
)

// Supporting document categories
const (
	DocTypePastPerformance     = "past-performance"
	DocTypeCapabilityStatement = "capability-statement"
	DocTypeTeamResumes         = "team-resumes"
	DocTypeCertifications      = "certifications"
)

var DocTypes = []string{DocTypePastPerformance, DocTypeCapabilityStatement, DocTypeTeamResumes, DocTypeCertifications}

type Bid struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID             uuid.UUID  `gorm:"type:uuid;index;not null" json:"user_id"`
	Title              string     `json:"title"`
	SolicitationNumber string     `json:"solicitation_number"`
	Agency             string     `json:"agency"`
	NAICSCode          string     `gorm:"column:naics_code" json:"naics_code"`
	SetAside           string     `json:"set_aside"`
	Status             string     `gorm:"not null;default:draft" json:"status"`
	PWinScore          int        `gorm:"column:pwin_score;not null;default:20" json:"pwin_score"`
	ComplianceScore    int        `gorm:"not null;default:0" json:"compliance_score"`
	EstimatedValueMin  float64    `json:"estimated_value_min"`
	EstimatedValueMax  float64    `json:"estimated_value_max"`
	DueDate            *Date      `json:"due_date"`
	RFPFilePath        string     `gorm:"column:rfp_file_path" json:"rfp_file_path"`
	RFPURL             string     `gorm:"column:rfp_url" json:"rfp_url"`
	RawRFPText         string     `gorm:"column:raw_rfp_text;type:text" json:"raw_rfp_text,omitempty"`
	ExecutiveSummary   string     `gorm:"type:text" json:"executive_summary,omitempty"`
	FullProposal       string     `gorm:"type:text" json:"full_proposal,omitempty"`
	PaidAt             *time.Time `json:"paid_at"`
	StripeSessionID    string     `json:"stripe_session_id,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`

	ComplianceItems []ComplianceItem `gorm:"constraint:OnDelete:CASCADE" json:"compliance_items,omitempty"`
	Documents       []BidDocument    `gorm:"constraint:OnDelete:CASCADE" json:"bid_documents,omitempty"`
}

func (b *Bid) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// ComplianceItem is one extracted requirement of a bid's RFP.
type ComplianceItem struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BidID         uuid.UUID `gorm:"type:uuid;index;not null" json:"bid_id"`
	UserID        uuid.UUID `gorm:"type:uuid;not null" json:"user_id"`
	RequirementID string    `json:"requirement_id"`
	Requirement   string    `gorm:"type:text" json:"requirement"`
	Status        string    `gorm:"not null;default:missing" json:"status"`
	Section       string    `json:"section"`
	CreatedAt     time.Time `json:"created_at"`
}

func (c *ComplianceItem) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// BidDocument records the latest supporting file uploaded for one category.
type BidDocument struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BidID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_bid_documents_bid_doc_type" json:"bid_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null" json:"user_id"`
	DocType   string    `gorm:"not null;uniqueIndex:idx_bid_documents_bid_doc_type" json:"doc_type"`
	FilePath  string    `json:"file_path"`
	FileName  string    `json:"file_name"`
	CreatedAt time.Time `json:"created_at"`
}

func (d *BidDocument) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
