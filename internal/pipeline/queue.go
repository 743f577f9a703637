package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"govbid/internal/domain"
	"govbid/internal/events"
	"govbid/internal/logger"
	"govbid/internal/worker"
)

// JobHandler performs one attempt of a job. It must be safe to run again
// for the same bid.
type JobHandler func(ctx context.Context, job *domain.PipelineJob) error

// Submitter is the worker pool surface the queue needs.
type Submitter interface {
	Submit(t worker.Task) error
}

// Publisher receives every job status transition.
type Publisher interface {
	Publish(ctx context.Context, ev events.JobEvent)
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Queue runs pipeline jobs on the worker pool with at-least-once delivery.
// Every job is a database row before it is submitted, and failed attempts are
// resubmitted until MaxAttempts. A run first claims its row, so several
// instances sharing a database never execute the same attempt twice. The
// claim is a lease renewed while the handler runs; Recover picks up pending
// rows and running rows whose lease expired.
type Queue struct {
	repo        JobRepository
	pool        Submitter
	publisher   Publisher
	handlers    map[string]JobHandler
	maxAttempts int
	tracer      trace.Tracer
	log         *logger.Logger

	// Backoff is the delay before retry number attempt.
	Backoff func(attempt int) time.Duration
	// Lease is how long a running job may go unrenewed before another
	// worker may take it over. It is renewed every Lease/3.
	Lease time.Duration

	mu      sync.Mutex
	timers  map[uuid.UUID]*time.Timer
	stopped bool
}

func NewQueue(repo JobRepository, pool Submitter, publisher Publisher, maxAttempts int, log *logger.Logger) *Queue {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Queue{
		repo:        repo,
		pool:        pool,
		publisher:   publisher,
		handlers:    make(map[string]JobHandler),
		maxAttempts: maxAttempts,
		tracer:      otel.Tracer("govbid/pipeline"),
		log:         log.With("component", "PipelineQueue"),
		Backoff: func(attempt int) time.Duration {
			return time.Duration(attempt*attempt) * 2 * time.Second
		},
		Lease:  5 * time.Minute,
		timers: make(map[uuid.UUID]*time.Timer),
	}
}

func (q *Queue) Register(kind string, h JobHandler) {
	q.handlers[kind] = h
}

// Enqueue persists job as pending and hands it to the pool. A job that is
// persisted but cannot be submitted stays pending for Recover, so only a
// persistence failure is returned.
func (q *Queue) Enqueue(ctx context.Context, job *domain.PipelineJob) error {
	if _, ok := q.handlers[job.Kind]; !ok {
		return fmt.Errorf("no handler registered for job kind %q", job.Kind)
	}
	if err := q.repo.Create(ctx, job); err != nil {
		return err
	}
	q.publish(ctx, job)

	if err := q.submit(job.ID); err != nil {
		q.log.Warn("Job persisted but not submitted", "job_id", job.ID, "kind", job.Kind, "error", err)
	}
	return nil
}

// Recover resubmits pending jobs and running jobs whose lease expired. It is
// safe to call while other instances work the same table.
func (q *Queue) Recover(ctx context.Context) (int, error) {
	jobs, err := q.repo.ListUnfinished(ctx, q.staleBefore())
	if err != nil {
		return 0, err
	}

	n := 0
	for _, job := range jobs {
		if err := q.submit(job.ID); err != nil {
			q.log.Warn("Could not resubmit job", "job_id", job.ID, "error", err)
			continue
		}
		n++
	}
	if n > 0 {
		q.log.Info("Recovered unfinished pipeline jobs", "count", n)
	}
	return n, nil
}

// Stop cancels pending retry timers. Jobs whose retry was cancelled stay
// pending in the database.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.stopped = true
	for id, t := range q.timers {
		t.Stop()
		delete(q.timers, id)
	}
}

func (q *Queue) submit(id uuid.UUID) error {
	return q.pool.Submit(func(ctx context.Context) error {
		return q.run(ctx, id)
	})
}

func (q *Queue) run(ctx context.Context, id uuid.UUID) error {
	job, err := q.repo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load job %s: %w", id, err)
	}
	if job.Terminal() {
		return nil
	}

	ctx, span := q.tracer.Start(ctx, "pipeline."+job.Kind, trace.WithAttributes(
		attribute.String("job.id", job.ID.String()),
		attribute.String("bid.id", job.BidID.String()),
	))
	defer span.End()

	claimed, err := q.repo.Claim(ctx, job, q.staleBefore())
	if err != nil {
		span.RecordError(err)
		return err
	}
	if !claimed {
		q.log.Debug("Job claimed by another worker", "job_id", job.ID, "kind", job.Kind)
		return nil
	}
	q.publish(ctx, job)
	span.SetAttributes(attribute.Int("job.attempt", job.Attempts))

	stopRenew := q.renewLease(ctx, *job)
	runErr := q.invoke(ctx, job)
	stopRenew()

	if runErr == nil {
		if err := q.repo.MarkSucceeded(ctx, job); err != nil {
			return q.leaseError(job, err)
		}
		q.publish(ctx, job)
		q.log.Info("Pipeline job succeeded", "job_id", job.ID, "kind", job.Kind, "bid_id", job.BidID, "attempts", job.Attempts)
		return nil
	}

	span.RecordError(runErr)
	span.SetStatus(codes.Error, runErr.Error())

	var perm *permanentError
	retry := job.Attempts < q.maxAttempts && !errors.As(runErr, &perm)
	if err := q.repo.MarkFailed(ctx, job, runErr, retry); err != nil {
		return q.leaseError(job, err)
	}
	q.publish(ctx, job)

	if retry {
		q.log.Warn("Pipeline job failed, retrying", "job_id", job.ID, "kind", job.Kind, "attempt", job.Attempts, "error", runErr)
		q.scheduleRetry(job.ID, job.Attempts)
		return nil
	}
	q.log.Error("Pipeline job failed", "job_id", job.ID, "kind", job.Kind, "attempts", job.Attempts, "error", runErr)
	return runErr
}

func (q *Queue) staleBefore() time.Time {
	return time.Now().Add(-q.Lease)
}

// renewLease keeps the claim on job alive until the returned stop is called.
func (q *Queue) renewLease(ctx context.Context, job domain.PipelineJob) (stop func()) {
	interval := q.Lease / 3
	if interval <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := q.repo.Renew(ctx, &job); err != nil {
					q.log.Warn("Job lease not renewed", "job_id", job.ID, "error", err)
					if errors.Is(err, ErrLeaseLost) {
						return
					}
				}
			}
		}
	}()

	return func() {
		close(done)
		wg.Wait()
	}
}

// leaseError drops the outcome of an attempt whose row was reclaimed.
func (q *Queue) leaseError(job *domain.PipelineJob, err error) error {
	if errors.Is(err, ErrLeaseLost) {
		q.log.Warn("Job reclaimed by another worker; result discarded", "job_id", job.ID, "kind", job.Kind, "attempt", job.Attempts)
		return nil
	}
	return err
}

func (q *Queue) invoke(ctx context.Context, job *domain.PipelineJob) (err error) {
	h, ok := q.handlers[job.Kind]
	if !ok {
		return Permanent(fmt.Errorf("no handler registered for job kind %q", job.Kind))
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job handler panicked: %v", r)
		}
	}()
	return h(ctx, job)
}

func (q *Queue) scheduleRetry(id uuid.UUID, attempt int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return
	}
	q.timers[id] = time.AfterFunc(q.Backoff(attempt), func() {
		q.mu.Lock()
		delete(q.timers, id)
		q.mu.Unlock()
		if err := q.submit(id); err != nil {
			q.log.Warn("Retry not submitted; job stays pending", "job_id", id, "error", err)
		}
	})
}

func (q *Queue) publish(ctx context.Context, job *domain.PipelineJob) {
	if q.publisher == nil {
		return
	}
	q.publisher.Publish(ctx, events.JobEvent{
		JobID:    job.ID,
		BidID:    job.BidID,
		UserID:   job.UserID,
		Kind:     job.Kind,
		Status:   job.Status,
		Attempts: job.Attempts,
		Error:    job.LastError,
	})
}
