package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"govbid/internal/bid"
	"govbid/internal/domain"
	"govbid/internal/events"
	"govbid/internal/llm"
	"govbid/internal/testutil"
)

type fakeLLM struct {
	mu      sync.Mutex
	prompts []llm.Request
	reply   func(req llm.Request) (string, error)
}

func (f *fakeLLM) GenerateText(ctx context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, req)
	f.mu.Unlock()
	return f.reply(req)
}

type fakeFetcher struct {
	text string
	err  error
}

func (f *fakeFetcher) FetchText(ctx context.Context, rawURL string) (string, error) {
	return f.text, f.err
}

type fakeEnqueuer struct {
	mu   sync.Mutex
	jobs []*domain.PipelineJob
}

func (f *fakeEnqueuer) Enqueue(ctx context.Context, job *domain.PipelineJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
	return nil
}

type fakeProfiles struct {
	profile *domain.Profile
}

func (f *fakeProfiles) FindProfile(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	if f.profile == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.profile, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.JobEvent
}

func (r *recordingPublisher) Publish(ctx context.Context, ev events.JobEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingPublisher) statuses() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Status)
	}
	return out
}

var errLLMDown = errors.New("llm down")

func isSummaryPrompt(req llm.Request) bool {
	return strings.Contains(req.Prompt, "executive summary")
}

// seedBid stores a fresh draft bid for a new owner.
func seedBid(t *testing.T, gdb *gorm.DB) (bid.BidRepository, *domain.Bid) {
	t.Helper()
	repo := bid.NewRepository(gdb)
	b := &domain.Bid{UserID: uuid.New(), Title: "New RFP", Status: domain.BidStatusDraft, PWinScore: 20}
	require.NoError(t, repo.Create(context.Background(), b))
	return repo, b
}

func newTestDB(t *testing.T) *gorm.DB {
	return testutil.NewDB(t)
}
