package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"govbid/internal/domain"
	"govbid/internal/llm"
	"govbid/internal/logger"
)

func seedItems(t *testing.T, repo BidStore, b *domain.Bid, compliant, total int) {
	t.Helper()
	items := make([]domain.ComplianceItem, total)
	for i := range items {
		items[i] = domain.ComplianceItem{RequirementID: fmt.Sprintf("REQ-%03d", i+1), Requirement: "req", Status: domain.ComplianceMissing}
		if i < compliant {
			items[i].Status = domain.ComplianceCompliant
		}
	}
	require.NoError(t, repo.ReplaceComplianceItems(context.Background(), b.ID, b.UserID, items))
}

func TestDrafter_FallbackTemplates(t *testing.T) {
	gdb := newTestDB(t)
	repo, b := seedBid(t, gdb)
	require.NoError(t, repo.UpdateFields(context.Background(), b.ID, b.UserID,
		[]string{"title", "agency", "solicitation_number", "status"},
		&domain.Bid{Title: "Cloud Migration", Agency: "GSA", SolicitationNumber: "47QTCA-25-R-0001", Status: domain.BidStatusInReview}))
	seedItems(t, repo, b, 3, 7)

	d := NewDrafter(repo, &fakeProfiles{}, nil, "draft-model", DefaultPrompts(), logger.Nop())
	require.NoError(t, d.Handle(context.Background(), &domain.PipelineJob{BidID: b.ID, UserID: b.UserID}))

	got, err := repo.FindOwned(context.Background(), b.ID, b.UserID)
	require.NoError(t, err)
	assert.Equal(t, 43, got.ComplianceScore)
	assert.Equal(t, domain.BidStatusDraft, got.Status)
	assert.Contains(t, got.ExecutiveSummary, `Your Company is pleased to submit this proposal in response to Solicitation No. 47QTCA-25-R-0001, "Cloud Migration" issued by GSA.`)
	assert.Contains(t, got.FullProposal, "1.0 Technical Approach")
	assert.Contains(t, got.FullProposal, "5.0 Quality Assurance")
}

func TestDrafter_UsesProfileCompany(t *testing.T) {
	gdb := newTestDB(t)
	repo, b := seedBid(t, gdb)
	profiles := &fakeProfiles{profile: &domain.Profile{ID: b.UserID, CompanyName: "Acme Federal"}}

	client := &fakeLLM{reply: func(req llm.Request) (string, error) {
		if isSummaryPrompt(req) {
			return "summary text", nil
		}
		return "proposal text", nil
	}}
	d := NewDrafter(repo, profiles, client, "draft-model", DefaultPrompts(), logger.Nop())
	require.NoError(t, d.Handle(context.Background(), &domain.PipelineJob{BidID: b.ID, UserID: b.UserID}))

	require.Len(t, client.prompts, 2)
	for _, req := range client.prompts {
		assert.Contains(t, req.Prompt, "Company: Acme Federal")
		assert.Equal(t, "draft-model", req.Model)
		if isSummaryPrompt(req) {
			assert.Equal(t, 600, req.MaxTokens)
		} else {
			assert.Equal(t, 2000, req.MaxTokens)
		}
	}

	got, err := repo.FindOwned(context.Background(), b.ID, b.UserID)
	require.NoError(t, err)
	assert.Equal(t, "summary text", got.ExecutiveSummary)
	assert.Equal(t, "proposal text", got.FullProposal)
	assert.Equal(t, 0, got.ComplianceScore)
}

func TestDrafter_FailedCallLeavesFieldEmpty(t *testing.T) {
	gdb := newTestDB(t)
	repo, b := seedBid(t, gdb)

	client := &fakeLLM{reply: func(req llm.Request) (string, error) {
		if isSummaryPrompt(req) {
			return "", errLLMDown
		}
		return "proposal text", nil
	}}
	d := NewDrafter(repo, &fakeProfiles{}, client, "draft-model", DefaultPrompts(), logger.Nop())
	require.NoError(t, d.Handle(context.Background(), &domain.PipelineJob{BidID: b.ID, UserID: b.UserID}))

	got, err := repo.FindOwned(context.Background(), b.ID, b.UserID)
	require.NoError(t, err)
	assert.Empty(t, got.ExecutiveSummary)
	assert.Equal(t, "proposal text", got.FullProposal)
}

func TestComplianceScore(t *testing.T) {
	items := func(statuses ...string) []domain.ComplianceItem {
		out := make([]domain.ComplianceItem, len(statuses))
		for i, s := range statuses {
			out[i].Status = s
		}
		return out
	}

	tests := []struct {
		name  string
		items []domain.ComplianceItem
		want  int
	}{
		{"none", nil, 0},
		{"all missing", items("missing", "missing"), 0},
		{"partial does not count", items("compliant", "partial"), 50},
		{"two of three", items("compliant", "compliant", "missing"), 67},
		{"all compliant", items("compliant"), 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComplianceScore(tt.items))
		})
	}
}
