package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"govbid/internal/domain"
)

// ErrLeaseLost means another worker claimed the job since it was loaded.
var ErrLeaseLost = errors.New("job lease lost")

type JobRepository interface {
	Create(ctx context.Context, job *domain.PipelineJob) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.PipelineJob, error)
	ListByBid(ctx context.Context, bidID, userID uuid.UUID) ([]domain.PipelineJob, error)
	// ListUnfinished returns pending jobs and running jobs whose lease was
	// last renewed before staleBefore.
	ListUnfinished(ctx context.Context, staleBefore time.Time) ([]domain.PipelineJob, error)
	// Claim moves job to running when it is still in the state it was loaded
	// in and is either pending or running with an expired lease. It reports
	// false when another worker got there first.
	Claim(ctx context.Context, job *domain.PipelineJob, staleBefore time.Time) (bool, error)
	// Renew extends the lease of a running job; ErrLeaseLost if it was reclaimed.
	Renew(ctx context.Context, job *domain.PipelineJob) error
	MarkSucceeded(ctx context.Context, job *domain.PipelineJob) error
	// MarkFailed records runErr; the job goes back to pending when retry is set.
	MarkFailed(ctx context.Context, job *domain.PipelineJob, runErr error, retry bool) error
}

type JobRepositoryImpl struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) JobRepository {
	return &JobRepositoryImpl{db: db}
}

func (r *JobRepositoryImpl) Create(ctx context.Context, job *domain.PipelineJob) error {
	now := time.Now().UTC()
	job.Status = domain.JobStatusPending
	job.CreatedAt = now
	job.UpdatedAt = now
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *JobRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*domain.PipelineJob, error) {
	var job domain.PipelineJob
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *JobRepositoryImpl) ListByBid(ctx context.Context, bidID, userID uuid.UUID) ([]domain.PipelineJob, error) {
	jobs := []domain.PipelineJob{}
	err := r.db.WithContext(ctx).
		Where("bid_id = ? AND user_id = ?", bidID, userID).
		Order("created_at ASC").
		Find(&jobs).Error
	return jobs, err
}

func (r *JobRepositoryImpl) ListUnfinished(ctx context.Context, staleBefore time.Time) ([]domain.PipelineJob, error) {
	jobs := []domain.PipelineJob{}
	err := r.db.WithContext(ctx).
		Where("(status = ? OR (status = ? AND updated_at < ?))",
			domain.JobStatusPending, domain.JobStatusRunning, staleBefore.UTC()).
		Order("created_at ASC").
		Find(&jobs).Error
	return jobs, err
}

func (r *JobRepositoryImpl) Claim(ctx context.Context, job *domain.PipelineJob, staleBefore time.Time) (bool, error) {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&domain.PipelineJob{}).
		Where("id = ? AND attempts = ?", job.ID, job.Attempts).
		Where("(status = ? OR (status = ? AND updated_at < ?))",
			domain.JobStatusPending, domain.JobStatusRunning, staleBefore.UTC()).
		Updates(map[string]any{
			"status":     domain.JobStatusRunning,
			"attempts":   gorm.Expr("attempts + 1"),
			"started_at": now,
			"updated_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	job.Status = domain.JobStatusRunning
	job.Attempts++
	job.StartedAt = &now
	job.UpdatedAt = now
	return true, nil
}

func (r *JobRepositoryImpl) Renew(ctx context.Context, job *domain.PipelineJob) error {
	now := time.Now().UTC()
	res := r.owned(ctx, job).Update("updated_at", now)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrLeaseLost
	}
	job.UpdatedAt = now
	return nil
}

// owned scopes an update to the attempt this worker claimed.
func (r *JobRepositoryImpl) owned(ctx context.Context, job *domain.PipelineJob) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&domain.PipelineJob{}).
		Where("id = ? AND status = ? AND attempts = ?", job.ID, domain.JobStatusRunning, job.Attempts)
}

func (r *JobRepositoryImpl) MarkSucceeded(ctx context.Context, job *domain.PipelineJob) error {
	now := time.Now().UTC()
	res := r.owned(ctx, job).Updates(map[string]any{
		"status":      domain.JobStatusSucceeded,
		"last_error":  "",
		"finished_at": now,
		"updated_at":  now,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrLeaseLost
	}

	job.Status = domain.JobStatusSucceeded
	job.LastError = ""
	job.FinishedAt = &now
	job.UpdatedAt = now
	return nil
}

func (r *JobRepositoryImpl) MarkFailed(ctx context.Context, job *domain.PipelineJob, runErr error, retry bool) error {
	now := time.Now().UTC()
	status := domain.JobStatusPending
	updates := map[string]any{
		"last_error": runErr.Error(),
		"updated_at": now,
	}
	if !retry {
		status = domain.JobStatusFailed
		updates["finished_at"] = now
	}
	updates["status"] = status

	res := r.owned(ctx, job).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrLeaseLost
	}

	job.Status = status
	job.LastError = runErr.Error()
	job.UpdatedAt = now
	if !retry {
		job.FinishedAt = &now
	}
	return nil
}
