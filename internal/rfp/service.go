package rfp

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"govbid/internal/domain"
	"govbid/internal/errors"
	"govbid/internal/fetch"
	"govbid/internal/logger"
	"govbid/internal/scoring"
	"govbid/internal/storage"
	"govbid/internal/upload"
)

type BidCreator interface {
	Create(ctx context.Context, bid *domain.Bid) error
}

type Enqueuer interface {
	Enqueue(ctx context.Context, job *domain.PipelineJob) error
}

type Service interface {
	Ingest(ctx context.Context, userID uuid.UUID, file *upload.File, rfpURL string) (*IngestResult, error)
}

type IngestResult struct {
	Bid   *domain.Bid `json:"bid"`
	BidID uuid.UUID   `json:"bidId"`
	// JobID is nil when the parse job could not be queued.
	JobID *uuid.UUID `json:"jobId"`
}

type DefaultService struct {
	bids     BidCreator
	store    storage.Store
	enqueuer Enqueuer
	table    scoring.Table
	log      *logger.Logger

	now func() time.Time
}

func NewService(bids BidCreator, store storage.Store, enqueuer Enqueuer, table scoring.Table, log *logger.Logger) Service {
	return &DefaultService{
		bids:     bids,
		store:    store,
		enqueuer: enqueuer,
		table:    table,
		log:      log.With("service", "RFPService"),
		now:      time.Now,
	}
}

// Ingest stores the RFP file, if any, creates a draft bid for it and queues
// the parse. A failed enqueue is logged; the bid is still returned.
func (s *DefaultService) Ingest(ctx context.Context, userID uuid.UUID, file *upload.File, rfpURL string) (*IngestResult, error) {
	rfpURL = strings.TrimSpace(rfpURL)
	if rfpURL != "" && !fetch.ValidURL(rfpURL) {
		return nil, errors.BadRequest("Invalid RFP URL", nil)
	}

	var key string
	if file != nil {
		if err := file.Validate(); err != nil {
			return nil, err
		}
		data, err := file.Read()
		if err != nil {
			return nil, err
		}

		key = fmt.Sprintf("%s/%d.%s", userID, s.now().UnixMilli(), file.Ext())
		if err := s.store.Upload(ctx, storage.BucketRFP, key, bytes.NewReader(data), file.StoredContentType(data)); err != nil {
			return nil, errors.New(500, "Failed to upload RFP", err)
		}
	}

	bid := &domain.Bid{
		UserID:          userID,
		Title:           placeholderTitle(file, rfpURL),
		Status:          domain.BidStatusDraft,
		RFPFilePath:     key,
		RFPURL:          rfpURL,
		PWinScore:       s.table.Score(nil),
		ComplianceScore: 0,
	}
	if err := s.bids.Create(ctx, bid); err != nil {
		if key != "" {
			if delErr := s.store.Delete(ctx, storage.BucketRFP, key); delErr != nil {
				s.log.Error("Failed to remove orphaned RFP upload", "key", key, "error", delErr)
			}
		}
		return nil, errors.New(500, "Failed to create bid", err)
	}

	result := &IngestResult{Bid: bid, BidID: bid.ID}

	job := &domain.PipelineJob{
		BidID:       bid.ID,
		UserID:      userID,
		Kind:        domain.JobKindParseRFP,
		RFPFilePath: key,
		RFPURL:      rfpURL,
	}
	if err := s.enqueuer.Enqueue(ctx, job); err != nil {
		s.log.Error("Failed to queue RFP parse", "bid_id", bid.ID, "error", err)
		return result, nil
	}
	result.JobID = &job.ID

	s.log.Info("RFP ingested", "bid_id", bid.ID, "job_id", job.ID, "from_file", key != "")
	return result, nil
}

func placeholderTitle(file *upload.File, rfpURL string) string {
	switch {
	case file != nil && file.Name != "":
		return file.Name
	case rfpURL != "":
		return rfpURL
	}
	return "New RFP"
}
