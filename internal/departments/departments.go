// Package departments is the single source of truth for the fixed set of
// handling departments. Both the classifier prompt and label validation
// consume this registry so the two can never drift.
package departments

import "strings"

// OutOfScope is the sentinel label for submissions that are not genuine
// government-service complaints.
const OutOfScope = "out_of_scope"

const (
	Administration   = "Administration"
	Civil            = "Civil"
	Education        = "Education"
	Electrical       = "Electrical"
	Finance          = "Finance"
	HealthSanitation = "Health & Sanitation"
	HR               = "HR"
	IT               = "IT"
	Maintenance      = "Maintenance"
	PublicSafety     = "Public Safety"
	RoadTransport    = "Road & Transport"
	Security         = "Security"
	WasteManagement  = "Waste Management"
	Water            = "Water"
)

// All holds the fixed 14-entry department enumeration.
var All = []string{
	Administration,
	Civil,
	Education,
	Electrical,
	Finance,
	HealthSanitation,
	HR,
	IT,
	Maintenance,
	PublicSafety,
	RoadTransport,
	Security,
	WasteManagement,
	Water,
}

var known = func() map[string]struct{} {
	m := make(map[string]struct{}, len(All))
	for _, name := range All {
		m[name] = struct{}{}
	}
	return m
}()

// IsValid reports whether name exactly matches one of the known departments.
func IsValid(name string) bool {
	_, ok := known[name]
	return ok
}

// IsOutOfScope reports whether label is the out-of-scope sentinel,
// case-insensitively and ignoring surrounding whitespace.
func IsOutOfScope(label string) bool {
	return strings.EqualFold(strings.TrimSpace(label), OutOfScope)
}

// PromptList returns the enumeration as a comma-separated list for prompt
// construction.
func PromptList() string {
	return strings.Join(All, ", ")
}
