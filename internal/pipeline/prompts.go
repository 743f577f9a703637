package pipeline

import (
	"strings"
	"text/template"
)

// PromptData is what every prompt and fallback template can reference.
type PromptData struct {
	Title              string
	Agency             string
	SolicitationNumber string
	NAICSCode          string
	SetAside           string
	Company            string
	RFPText            string
}

// Prompts holds the prompt templates and their token budgets. Build one with
// DefaultPrompts and override fields as needed.
type Prompts struct {
	Extract          *template.Template
	ExtractMaxTokens int

	Summary          *template.Template
	SummaryMaxTokens int

	Proposal          *template.Template
	ProposalMaxTokens int

	// used when no LLM is configured
	FallbackSummary  *template.Template
	FallbackProposal *template.Template
}

func DefaultPrompts() Prompts {
	return Prompts{
		Extract:           template.Must(template.New("extract").Parse(extractPrompt)),
		ExtractMaxTokens:  1024,
		Summary:           template.Must(template.New("summary").Parse(summaryPrompt)),
		SummaryMaxTokens:  600,
		Proposal:          template.Must(template.New("proposal").Parse(proposalPrompt)),
		ProposalMaxTokens: 2000,
		FallbackSummary:   template.Must(template.New("fallback_summary").Parse(fallbackSummary)),
		FallbackProposal:  template.Must(template.New("fallback_proposal").Parse(fallbackProposal)),
	}
}

func render(t *template.Template, data PromptData) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

const extractPrompt = `You are a government contracting expert. Analyze the following RFP text and extract structured data.

Respond with only valid JSON. No markdown, no explanation, just the raw JSON object.

Return a JSON object with these exact fields:
{
  "title": "The full title of the solicitation",
  "solicitation_number": "The solicitation/RFP number",
  "agency": "The issuing government agency",
  "naics_code": "The NAICS code if mentioned",
  "set_aside": "Set-aside designation (e.g., Small Business Set-Aside, 8(a), etc.) or empty string",
  "due_date": "The proposal due date in YYYY-MM-DD format or null",
  "estimated_value_min": The minimum contract value as a number (0 if not stated),
  "estimated_value_max": The maximum contract value as a number (0 if not stated),
  "compliance_requirements": [
    {
      "requirement_id": "REQ-001",
      "requirement": "Description of compliance requirement",
      "status": "missing",
      "section": "Volume I or relevant section"
    }
  ]
}

Extract 5-10 key compliance requirements from the RFP. Set all statuses to "missing" initially.

RFP Text (first 8000 chars):
{{.RFPText}}`

const summaryPrompt = `You are a professional government proposal writer. Write a compelling executive summary for this government contract proposal.

Solicitation: {{.Title}}
Agency: {{.Agency}}
Solicitation Number: {{.SolicitationNumber}}
NAICS Code: {{.NAICSCode}}
Set-Aside: {{.SetAside}}
Company: {{.Company}}

Write a 3-4 paragraph executive summary that is professional, compelling, and highlights key qualifications. Do not use placeholders; write actual persuasive content. Keep it under 400 words.`

const proposalPrompt = `You are a professional government proposal writer. Write a comprehensive proposal draft for this government contract.

Solicitation: {{.Title}}
Agency: {{.Agency}}
Solicitation Number: {{.SolicitationNumber}}
Company: {{.Company}}
Set-Aside: {{.SetAside}}

Write sections:
1.0 Technical Approach
2.0 Management Approach
3.0 Staffing Plan
4.0 Past Performance Summary
5.0 Quality Assurance

Each section should be substantive (150-200 words). Use professional government contracting language.`

const fallbackSummary = `{{.Company}} is pleased to submit this proposal in response to Solicitation No. {{.SolicitationNumber}}, "{{.Title}}" issued by {{.Agency}}.

With deep expertise in federal contracting and a proven track record of delivering mission-critical solutions, {{.Company}} is uniquely positioned to meet all stated requirements while providing exceptional value to the government.

Our approach leverages a proven methodology that has been successfully deployed across numerous federal engagements. Our team of cleared professionals holds extensive certifications and brings decades of combined experience supporting federal missions.

We are committed to delivering on-time, within budget, and in full compliance with all applicable regulations including FAR, DFARS, and agency-specific requirements.`

const fallbackProposal = `1.0 Technical Approach

{{.Company}} will employ a comprehensive technical approach tailored specifically to the requirements outlined in {{.SolicitationNumber}}. Our methodology is grounded in federal best practices and proven frameworks that ensure successful delivery.

2.0 Management Approach

Our management structure provides clear lines of authority and accountability. The Program Manager will serve as the single point of contact for all contract matters and will maintain direct communication with the Contracting Officer's Representative (COR).

3.0 Staffing Plan

{{.Company}} will staff this contract with qualified, cleared personnel who meet or exceed all requirements. Key personnel have been identified and are committed to this effort from day one of contract award.

4.0 Past Performance Summary

{{.Company}} has successfully performed on contracts of similar scope, complexity, and dollar value for federal agencies. Our past performance demonstrates consistent delivery of high-quality results.

5.0 Quality Assurance

We maintain a robust Quality Management System aligned with ISO 9001 standards. All deliverables undergo rigorous review before submission to ensure they meet or exceed contract requirements.`
