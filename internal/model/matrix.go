package model

import (
	"fmt"
	"sort"
	"strings"
)

// ComplianceStatus classifies how well a proposal section addresses a requirement.
type ComplianceStatus string

const (
	StatusFullyCompliant     ComplianceStatus = "fully_compliant"
	StatusPartiallyCompliant ComplianceStatus = "partially_compliant"
	StatusNonCompliant       ComplianceStatus = "non_compliant"
	StatusNotAddressed       ComplianceStatus = "not_addressed"
)

// StatusWeight returns the scoring weight for a compliance status.
func StatusWeight(s ComplianceStatus) float64 {
	switch s {
	case StatusFullyCompliant:
		return 1.0
	case StatusPartiallyCompliant:
		return 0.5
	default:
		return 0.0
	}
}

// RequirementMapping links one requirement to the proposal section that
// addresses it. At most one mapping exists per requirement; a requirement
// without a mapping is NotAddressed.
type RequirementMapping struct {
	RequirementID    string           `json:"requirement_id"`
	ProposalSection  string           `json:"proposal_section"`
	ComplianceStatus ComplianceStatus `json:"compliance_status"`
	ResponseText     string           `json:"response_text,omitempty"`
	SectionReference string           `json:"section_reference,omitempty"`
	Confidence       float64          `json:"confidence"` // 0.0-1.0
	GapNotes         string           `json:"gap_notes,omitempty"`
}

// ComplianceMatrix holds the ordered requirements of a run together with
// their section mappings. A matrix is immutable once built; each refinement
// iteration produces a new instance.
type ComplianceMatrix struct {
	Requirements []Requirement        `json:"requirements"`
	Mappings     []RequirementMapping `json:"mappings"`
}

// NewComplianceMatrix builds a matrix, discarding duplicate mappings so the
// one-mapping-per-requirement invariant holds.
func NewComplianceMatrix(requirements []Requirement, mappings []RequirementMapping) *ComplianceMatrix {
	seen := make(map[string]bool, len(mappings))
	kept := make([]RequirementMapping, 0, len(mappings))
	for _, m := range mappings {
		if seen[m.RequirementID] {
			continue
		}
		seen[m.RequirementID] = true
		kept = append(kept, m)
	}
	return &ComplianceMatrix{Requirements: requirements, Mappings: kept}
}

// mappingFor returns the mapping for a requirement id, or a synthetic
// NotAddressed mapping when none exists.
func (m *ComplianceMatrix) mappingFor(reqID string) RequirementMapping {
	for _, mp := range m.Mappings {
		if mp.RequirementID == reqID {
			return mp
		}
	}
	return RequirementMapping{
		RequirementID:    reqID,
		ProposalSection:  "N/A",
		ComplianceStatus: StatusNotAddressed,
		Confidence:       0,
	}
}

// Score computes the weighted compliance score in [0,100]:
//
//	100 × Σ statusWeight(status)·priorityWeight(priority) / Σ priorityWeight(priority)
//
// An empty matrix scores 100.
func (m *ComplianceMatrix) Score() float64 {
	if len(m.Requirements) == 0 {
		return 100.0
	}
	var num, den float64
	for _, r := range m.Requirements {
		pw := PriorityWeight(r.Priority)
		den += pw
		num += StatusWeight(m.mappingFor(r.ID).ComplianceStatus) * pw
	}
	if den == 0 {
		return 100.0
	}
	return 100.0 * num / den
}

// Gaps returns requirements whose status is NonCompliant or NotAddressed,
// ordered by priority then id.
func (m *ComplianceMatrix) Gaps() []Requirement {
	var gaps []Requirement
	for _, r := range m.Requirements {
		switch m.mappingFor(r.ID).ComplianceStatus {
		case StatusNonCompliant, StatusNotAddressed:
			gaps = append(gaps, r)
		}
	}
	sort.SliceStable(gaps, func(i, j int) bool {
		if gaps[i].Priority != gaps[j].Priority {
			return gaps[i].Priority < gaps[j].Priority
		}
		return gaps[i].ID < gaps[j].ID
	})
	return gaps
}

// IsFullyCompliant reports whether every requirement is fully addressed.
func (m *ComplianceMatrix) IsFullyCompliant() bool {
	for _, r := range m.Requirements {
		if m.mappingFor(r.ID).ComplianceStatus != StatusFullyCompliant {
			return false
		}
	}
	return true
}

// Markdown renders the matrix as a markdown table with a trailing gap list.
func (m *ComplianceMatrix) Markdown() string {
	var b strings.Builder
	b.WriteString("# Compliance Matrix\n\n")
	fmt.Fprintf(&b, "**Overall Compliance**: %.1f%%\n\n", m.Score())
	b.WriteString("| Req ID | Category | Requirement | Status | Proposal Section | Confidence |\n")
	b.WriteString("|--------|----------|-------------|--------|------------------|------------|\n")
	for _, r := range m.Requirements {
		mp := m.mappingFor(r.ID)
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %.2f |\n",
			r.ID, r.Category, truncate(r.Text, 60), mp.ComplianceStatus, mp.ProposalSection, mp.Confidence)
	}

	gaps := m.Gaps()
	if len(gaps) > 0 {
		b.WriteString("\n## Gaps\n\n| Req ID | Category | Requirement |\n|--------|----------|-------------|\n")
		for _, r := range gaps {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", r.ID, r.Category, truncate(r.Text, 80))
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
