package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	JobKindParseRFP         = "parse_rfp"
	JobKindGenerateProposal = "generate_proposal"
)

const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusSucceeded = "succeeded"
	JobStatusFailed    = "failed"
)

// PipelineJob is one unit of asynchronous pipeline work for a bid.
type PipelineJob struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	BidID       uuid.UUID  `gorm:"type:uuid;index;not null" json:"bid_id"`
	UserID      uuid.UUID  `gorm:"type:uuid;not null" json:"user_id"`
	Kind        string     `gorm:"not null" json:"kind"`
	Status      string     `gorm:"index;not null;default:pending" json:"status"`
	Attempts    int        `gorm:"not null;default:0" json:"attempts"`
	LastError   string     `gorm:"type:text" json:"last_error,omitempty"`
	RFPFilePath string     `gorm:"column:rfp_file_path" json:"-"`
	RFPURL      string     `gorm:"column:rfp_url" json:"-"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (j *PipelineJob) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}

func (j *PipelineJob) Terminal() bool {
	return j.Status == JobStatusSucceeded || j.Status == JobStatusFailed
}
