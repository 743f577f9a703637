package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"

	"govbid/internal/domain"
)

const (
	// minLLMTextLen is the raw text length below which extraction is skipped.
	minLLMTextLen  = 50
	emptyTitle     = "RFP Analysis"
	promptTextCap  = 8000
	rawTextCap     = 50000
	defaultTitle   = "New RFP"
	defaultCompany = "Your Company"
)

var errNoJSON = errors.New("no JSON object in reply")

type requirement struct {
	RequirementID string `json:"requirement_id"`
	Requirement   string `json:"requirement"`
	Status        string `json:"status"`
	Section       string `json:"section"`
}

// extraction is the structured record pulled out of an RFP.
type extraction struct {
	Title                  string        `json:"title"`
	SolicitationNumber     string        `json:"solicitation_number"`
	Agency                 string        `json:"agency"`
	NAICSCode              looseString   `json:"naics_code"`
	SetAside               string        `json:"set_aside"`
	DueDate                *string       `json:"due_date"`
	EstimatedValueMin      looseNumber   `json:"estimated_value_min"`
	EstimatedValueMax      looseNumber   `json:"estimated_value_max"`
	ComplianceRequirements []requirement `json:"compliance_requirements"`
}

// looseString accepts a JSON string or number.
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*s = looseString(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = looseString(n.String())
	return nil
}

// looseNumber accepts a JSON number, a numeric string like "1,500,000" or null.
type looseNumber float64

func (n *looseNumber) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*n = 0
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*n = looseNumber(f)
		return nil
	}
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	// values like "$1.5M" or "TBD" are dropped rather than failing the reply
	str = strings.NewReplacer(",", "", "$", "", " ", "").Replace(str)
	f, err := strconv.ParseFloat(str, 64)
	if err != nil {
		*n = 0
		return nil
	}
	*n = looseNumber(f)
	return nil
}

// parseExtraction decodes the model's reply, tolerating a markdown fence or
// prose around the JSON object.
func parseExtraction(reply string) (*extraction, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return nil, errNoJSON
	}

	var ex extraction
	if err := json.Unmarshal([]byte(reply[start:end+1]), &ex); err != nil {
		return nil, err
	}
	return &ex, nil
}

// emptyExtraction is the record for an RFP with too little text to analyse.
func emptyExtraction() *extraction {
	return &extraction{Title: emptyTitle}
}

// placeholderExtraction is the deterministic record used when no model is
// available or its reply is unusable.
func placeholderExtraction(rfpFilePath string, now time.Time) *extraction {
	title := defaultTitle
	if rfpFilePath != "" {
		base := path.Base(rfpFilePath)
		if name := strings.TrimSuffix(base, path.Ext(base)); name != "" && name != "." && name != "/" {
			title = name
		}
	}

	ms := strconv.FormatInt(now.UnixMilli(), 10)
	if len(ms) > 8 {
		ms = ms[len(ms)-8:]
	}
	due := now.AddDate(0, 0, 30).Format(domain.DateLayout)

	return &extraction{
		Title:              title,
		SolicitationNumber: "SOL-" + ms,
		Agency:             "Federal Agency",
		NAICSCode:          "541512",
		SetAside:           "Small Business Set-Aside",
		DueDate:            &due,
		EstimatedValueMin:  1000000,
		EstimatedValueMax:  5000000,
		ComplianceRequirements: []requirement{
			{RequirementID: "REQ-001", Requirement: "Technical Approach & Methodology", Section: "Volume I"},
			{RequirementID: "REQ-002", Requirement: "Past Performance Documentation (FAR 15.305)", Section: "Volume II"},
			{RequirementID: "REQ-003", Requirement: "Key Personnel Resumes", Section: "Volume III"},
			{RequirementID: "REQ-004", Requirement: "Cost/Price Proposal (SF 1449)", Section: "Volume IV"},
			{RequirementID: "REQ-005", Requirement: "Small Business Subcontracting Plan", Section: "Volume V"},
			{RequirementID: "REQ-006", Requirement: "Organizational Conflict of Interest Statement", Section: "Attachment A"},
			{RequirementID: "REQ-007", Requirement: "Quality Assurance Surveillance Plan (QASP)", Section: "Volume I"},
		},
	}
}

// bidValues maps an extraction onto the bid columns the parser owns.
func (ex *extraction) bidValues(rawText string) *domain.Bid {
	values := &domain.Bid{
		Title:              strings.TrimSpace(ex.Title),
		SolicitationNumber: strings.TrimSpace(ex.SolicitationNumber),
		Agency:             strings.TrimSpace(ex.Agency),
		NAICSCode:          strings.TrimSpace(string(ex.NAICSCode)),
		SetAside:           strings.TrimSpace(ex.SetAside),
		EstimatedValueMin:  float64(ex.EstimatedValueMin),
		EstimatedValueMax:  float64(ex.EstimatedValueMax),
		RawRFPText:         truncate(rawText, rawTextCap),
	}
	if values.Title == "" {
		values.Title = defaultTitle
	}
	if ex.DueDate != nil {
		if d, err := domain.ParseDate(*ex.DueDate); err == nil {
			values.DueDate = d
		}
	}
	return values
}

func (ex *extraction) complianceItems() []domain.ComplianceItem {
	items := make([]domain.ComplianceItem, 0, len(ex.ComplianceRequirements))
	for i, r := range ex.ComplianceRequirements {
		text := strings.TrimSpace(r.Requirement)
		if text == "" {
			continue
		}
		id := strings.TrimSpace(r.RequirementID)
		if id == "" {
			id = fmt.Sprintf("REQ-%03d", i+1)
		}
		status := r.Status
		if !slices.Contains([]string{domain.ComplianceCompliant, domain.CompliancePartial, domain.ComplianceMissing}, status) {
			status = domain.ComplianceMissing
		}
		items = append(items, domain.ComplianceItem{
			RequirementID: id,
			Requirement:   text,
			Status:        status,
			Section:       strings.TrimSpace(r.Section),
		})
	}
	return items
}

// decodeText turns a stored RFP into text. Text formats are used as is;
// binary formats keep only their printable runs.
func decodeText(data []byte) string {
	mt := mimetype.Detect(data)
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return strings.ToValidUTF8(strings.ReplaceAll(string(data), "\x00", ""), "")
		}
	}
	return printableRuns(data, 4)
}

func printableRuns(data []byte, minRun int) string {
	var out, run strings.Builder
	runLen := 0
	flush := func() {
		if runLen >= minRun {
			if out.Len() > 0 {
				out.WriteByte(' ')
			}
			out.WriteString(strings.TrimSpace(run.String()))
		}
		run.Reset()
		runLen = 0
	}

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		data = data[size:]
		if r != utf8.RuneError && (unicode.IsPrint(r) || r == '\n' || r == '\t') {
			run.WriteRune(r)
			runLen++
			continue
		}
		flush()
	}
	flush()
	return out.String()
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
