package pipeline

import (
	"context"
	"errors"
	"math"
	"strings"
	"text/template"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"govbid/internal/domain"
	"govbid/internal/llm"
	"govbid/internal/logger"
)

type ProfileFinder interface {
	FindProfile(ctx context.Context, userID uuid.UUID) (*domain.Profile, error)
}

var draftedColumns = []string{"executive_summary", "full_proposal", "compliance_score", "status"}

// Drafter writes the executive summary and full proposal for a parsed bid.
type Drafter struct {
	bids     BidStore
	profiles ProfileFinder
	llm      llm.Client
	model    string
	prompts  Prompts
	log      *logger.Logger
}

func NewDrafter(bids BidStore, profiles ProfileFinder, client llm.Client, model string, prompts Prompts, log *logger.Logger) *Drafter {
	return &Drafter{
		bids:     bids,
		profiles: profiles,
		llm:      client,
		model:    model,
		prompts:  prompts,
		log:      log.With("component", "ProposalDrafter"),
	}
}

// Handle is the generate_proposal job handler.
func (d *Drafter) Handle(ctx context.Context, job *domain.PipelineJob) error {
	bid, err := d.bids.FindOwned(ctx, job.BidID, job.UserID)
	if err != nil {
		return permanentIfMissing(err)
	}
	items, err := d.bids.ListComplianceItems(ctx, bid.ID)
	if err != nil {
		return err
	}
	company, err := d.companyName(ctx, job.UserID)
	if err != nil {
		return err
	}

	data := PromptData{
		Title:              bid.Title,
		Agency:             bid.Agency,
		SolicitationNumber: bid.SolicitationNumber,
		NAICSCode:          bid.NAICSCode,
		SetAside:           bid.SetAside,
		Company:            company,
	}

	var summary, proposal string
	if d.llm != nil {
		summary, proposal = d.generate(ctx, job, data)
	} else {
		if summary, err = render(d.prompts.FallbackSummary, data); err != nil {
			return Permanent(err)
		}
		if proposal, err = render(d.prompts.FallbackProposal, data); err != nil {
			return Permanent(err)
		}
	}

	values := &domain.Bid{
		ExecutiveSummary: summary,
		FullProposal:     proposal,
		ComplianceScore:  ComplianceScore(items),
		Status:           domain.BidStatusDraft,
	}
	if err := d.bids.UpdateFields(ctx, job.BidID, job.UserID, draftedColumns, values); err != nil {
		return permanentIfMissing(err)
	}

	d.log.Info("Proposal drafted", "bid_id", job.BidID, "compliance_score", values.ComplianceScore)
	return nil
}

// generate runs both completions concurrently. A failed call leaves its
// field empty.
func (d *Drafter) generate(ctx context.Context, job *domain.PipelineJob, data PromptData) (summary, proposal string) {
	var g errgroup.Group
	g.Go(func() error {
		summary = d.complete(ctx, job, "executive_summary", d.prompts.Summary, d.prompts.SummaryMaxTokens, data)
		return nil
	})
	g.Go(func() error {
		proposal = d.complete(ctx, job, "full_proposal", d.prompts.Proposal, d.prompts.ProposalMaxTokens, data)
		return nil
	})
	g.Wait()
	return summary, proposal
}

func (d *Drafter) complete(ctx context.Context, job *domain.PipelineJob, field string, t *template.Template, maxTokens int, data PromptData) string {
	prompt, err := render(t, data)
	if err != nil {
		d.log.Error("Draft prompt failed to render", "field", field, "error", err)
		return ""
	}
	text, err := d.llm.GenerateText(ctx, llm.Request{Model: d.model, MaxTokens: maxTokens, Prompt: prompt})
	if err != nil {
		d.log.Warn("Draft call failed", "bid_id", job.BidID, "field", field, "error", err)
		return ""
	}
	return text
}

func (d *Drafter) companyName(ctx context.Context, userID uuid.UUID) (string, error) {
	profile, err := d.profiles.FindProfile(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return defaultCompany, nil
	}
	if err != nil {
		return "", err
	}
	if name := strings.TrimSpace(profile.CompanyName); name != "" {
		return name, nil
	}
	return defaultCompany, nil
}

// ComplianceScore is the rounded percentage of compliant items, 0 for none.
func ComplianceScore(items []domain.ComplianceItem) int {
	if len(items) == 0 {
		return 0
	}
	compliant := 0
	for _, it := range items {
		if it.Status == domain.ComplianceCompliant {
			compliant++
		}
	}
	return int(math.Round(100 * float64(compliant) / float64(len(items))))
}
