package model

import (
	"fmt"
	"regexp"
	"strings"
)

// RequirementCategory classifies an extracted RFP requirement.
type RequirementCategory string

const (
	CategoryMandatory          RequirementCategory = "mandatory"
	CategoryOptional           RequirementCategory = "optional"
	CategoryEvaluationCriteria RequirementCategory = "evaluation_criteria"
	CategoryDeliverable        RequirementCategory = "deliverable"
)

// Requirement is a single obligation extracted from RFP text. Instances are
// created once during extraction and never mutated afterwards.
type Requirement struct {
	ID               string              `json:"id"`
	Text             string              `json:"text"`
	Category         RequirementCategory `json:"category"`
	Priority         int                 `json:"priority"` // 1=critical .. 5=optional
	SectionReference string              `json:"section_reference,omitempty"`
	Keywords         []string            `json:"keywords,omitempty"`
	IsMandatory      bool                `json:"is_mandatory"`
}

// RequirementID formats a stable sequential requirement token ("R001", "R002", ...).
func RequirementID(n int) string {
	return fmt.Sprintf("R%03d", n)
}

// MatchesKeywords reports whether text contains any of the requirement's keywords.
func (r Requirement) MatchesKeywords(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range r.Keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

var keywordPattern = regexp.MustCompile(`\b[A-Z][a-z]+\b|\b[A-Z]{2,}\b`)

// ExtractKeywords pulls up to five distinct capitalized terms from requirement
// text, used for matrix rendering and gap notes.
func ExtractKeywords(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, w := range keywordPattern.FindAllString(text, -1) {
		if seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
		if len(out) == 5 {
			break
		}
	}
	return out
}

// PriorityWeight returns the scoring weight for a priority level. Weight is
// inversely proportional to the numeric priority so critical requirements
// dominate the compliance score. Out-of-range priorities clamp to [1,5].
func PriorityWeight(priority int) float64 {
	if priority < 1 {
		priority = 1
	}
	if priority > 5 {
		priority = 5
	}
	return 1.0 / float64(priority)
}
