package pipeline

import (
	"context"
	defError "errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"govbid/internal/domain"
	"govbid/internal/errors"
)

type Service interface {
	ListJobs(ctx context.Context, bidID, userID uuid.UUID) ([]domain.PipelineJob, error)
}

type DefaultService struct {
	bids BidStore
	jobs JobRepository
}

func NewService(bids BidStore, jobs JobRepository) Service {
	return &DefaultService{bids: bids, jobs: jobs}
}

func (s *DefaultService) ListJobs(ctx context.Context, bidID, userID uuid.UUID) ([]domain.PipelineJob, error) {
	if _, err := s.bids.FindOwned(ctx, bidID, userID); err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Bid not found", err)
		}
		return nil, err
	}

	jobs, err := s.jobs.ListByBid(ctx, bidID, userID)
	if err != nil {
		return nil, errors.New(500, "Failed to load jobs", err)
	}
	return jobs, nil
}
