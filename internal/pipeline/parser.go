package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"govbid/internal/domain"
	"govbid/internal/fetch"
	"govbid/internal/llm"
	"govbid/internal/logger"
	"govbid/internal/storage"
)

// BidStore is the part of the bid repository the pipelines use.
type BidStore interface {
	FindOwned(ctx context.Context, bidID, userID uuid.UUID) (*domain.Bid, error)
	UpdateFields(ctx context.Context, bidID, userID uuid.UUID, columns []string, values *domain.Bid) error
	ListComplianceItems(ctx context.Context, bidID uuid.UUID) ([]domain.ComplianceItem, error)
	ReplaceComplianceItems(ctx context.Context, bidID, userID uuid.UUID, items []domain.ComplianceItem) error
}

type Enqueuer interface {
	Enqueue(ctx context.Context, job *domain.PipelineJob) error
}

// parsedColumns are the bid columns a parse may write.
var parsedColumns = []string{
	"title", "solicitation_number", "agency", "naics_code", "set_aside",
	"due_date", "estimated_value_min", "estimated_value_max", "raw_rfp_text",
}

// Parser turns an ingested RFP into bid metadata and a compliance checklist,
// then queues the proposal draft.
type Parser struct {
	bids     BidStore
	store    storage.Store
	fetcher  fetch.Client
	llm      llm.Client
	model    string
	prompts  Prompts
	enqueuer Enqueuer
	log      *logger.Logger

	now func() time.Time
}

// NewParser builds a parser. client may be nil, in which case every RFP gets
// the placeholder extraction.
func NewParser(bids BidStore, store storage.Store, fetcher fetch.Client, client llm.Client, model string, prompts Prompts, enqueuer Enqueuer, log *logger.Logger) *Parser {
	return &Parser{
		bids:     bids,
		store:    store,
		fetcher:  fetcher,
		llm:      client,
		model:    model,
		prompts:  prompts,
		enqueuer: enqueuer,
		log:      log.With("component", "RFPParser"),
		now:      time.Now,
	}
}

// Handle is the parse_rfp job handler.
func (p *Parser) Handle(ctx context.Context, job *domain.PipelineJob) error {
	if _, err := p.bids.FindOwned(ctx, job.BidID, job.UserID); err != nil {
		return permanentIfMissing(err)
	}

	raw := p.rawText(ctx, job)
	ex := p.extract(ctx, job, raw)

	if err := p.bids.UpdateFields(ctx, job.BidID, job.UserID, parsedColumns, ex.bidValues(raw)); err != nil {
		return permanentIfMissing(err)
	}

	items := ex.complianceItems()
	if err := p.bids.ReplaceComplianceItems(ctx, job.BidID, job.UserID, items); err != nil {
		return err
	}
	p.log.Info("RFP parsed", "bid_id", job.BidID, "requirements", len(items))

	return p.enqueuer.Enqueue(ctx, &domain.PipelineJob{
		BidID:  job.BidID,
		UserID: job.UserID,
		Kind:   domain.JobKindGenerateProposal,
	})
}

// rawText reads the stored file or the source URL. Failures degrade to an
// empty text or a placeholder that names the URL.
func (p *Parser) rawText(ctx context.Context, job *domain.PipelineJob) string {
	switch {
	case job.RFPFilePath != "":
		data, err := p.store.Download(ctx, storage.BucketRFP, job.RFPFilePath)
		if err != nil {
			p.log.Warn("RFP download failed", "bid_id", job.BidID, "error", err)
			return ""
		}
		return decodeText(data)
	case job.RFPURL != "":
		text, err := p.fetcher.FetchText(ctx, job.RFPURL)
		if err != nil {
			p.log.Warn("RFP fetch failed", "bid_id", job.BidID, "error", err)
			return "RFP from URL: " + job.RFPURL
		}
		return text
	}
	return ""
}

func (p *Parser) extract(ctx context.Context, job *domain.PipelineJob, raw string) *extraction {
	if p.llm == nil {
		return placeholderExtraction(job.RFPFilePath, p.now())
	}
	if len([]rune(raw)) <= minLLMTextLen {
		// too little text to analyse; record that instead of inventing data
		return emptyExtraction()
	}

	prompt, err := render(p.prompts.Extract, PromptData{RFPText: truncate(raw, promptTextCap)})
	if err != nil {
		p.log.Error("Extraction prompt failed to render", "error", err)
		return placeholderExtraction(job.RFPFilePath, p.now())
	}

	reply, err := p.llm.GenerateText(ctx, llm.Request{
		Model:     p.model,
		MaxTokens: p.prompts.ExtractMaxTokens,
		Prompt:    prompt,
	})
	if err != nil {
		p.log.Warn("RFP extraction call failed, using placeholder", "bid_id", job.BidID, "error", err)
		return placeholderExtraction(job.RFPFilePath, p.now())
	}

	ex, err := parseExtraction(reply)
	if err != nil {
		p.log.Warn("RFP extraction reply unusable, using placeholder", "bid_id", job.BidID, "error", err)
		return placeholderExtraction(job.RFPFilePath, p.now())
	}
	return ex
}

// permanentIfMissing stops retries for a bid that no longer exists.
func permanentIfMissing(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Permanent(err)
	}
	return err
}
