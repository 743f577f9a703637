// Package whitelist restricts client-supplied field maps to the columns a
// caller is allowed to write, so computed or sensitive columns such as
// pwin_score, compliance_score, paid_at and stripe_session_id can never be
// mass-assigned.
package whitelist

// Fields is an allow list of JSON keys.
type Fields []string

var BidCreateFields = Fields{
	"title",
	"status",
	"solicitation_number",
	"agency",
	"naics_code",
	"set_aside",
	"due_date",
	"estimated_value_min",
	"estimated_value_max",
	"rfp_file_path",
	"rfp_url",
}

var BidUpdateFields = Fields{
	"title",
	"status",
	"solicitation_number",
	"agency",
	"naics_code",
	"set_aside",
	"due_date",
	"estimated_value_min",
	"estimated_value_max",
}

var ProfileFields = Fields{
	"full_name",
	"job_title",
	"company_name",
	"duns_number",
	"uei",
	"cage_code",
	"primary_naics",
	"set_aside_qualifications",
}

// Filter returns the entries of input whose key is allowed. Keys absent from
// input stay absent; nil input gives an empty map.
func Filter(input map[string]any, allowed Fields) map[string]any {
	out := make(map[string]any, len(allowed))
	for _, key := range allowed {
		if v, ok := input[key]; ok {
			out[key] = v
		}
	}
	return out
}

// Keys lists the keys of m in allow-list order.
func (f Fields) Keys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for _, key := range f {
		if _, ok := m[key]; ok {
			keys = append(keys, key)
		}
	}
	return keys
}
