package compliance

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kplw-group/proposal-cli/internal/llm"
	"github.com/kplw-group/proposal-cli/internal/model"
)

const mapperRole = "Compliance Mapper"

const mapperInstructions = `You map RFP requirements to the proposal sections that address them.

Given one requirement and the proposal's sections, identify which section addresses it, how
completely, and with what confidence. Respond using exactly this format:

SECTION: <section name, or NONE>
STATUS: <FULLY_COMPLIANT|PARTIALLY_COMPLIANT|NON_COMPLIANT|NOT_ADDRESSED>
CONFIDENCE: <0.0-1.0>
EVIDENCE: <the sentence(s) from the section that address the requirement, or empty>`

// sectionExcerptLimit bounds per-section content included in mapping prompts.
const sectionExcerptLimit = 1500

// Mapper builds a compliance matrix by asking, one generation call per
// requirement, which proposal section addresses it.
type Mapper struct {
	router *llm.Router
}

// NewMapper creates a Mapper bound to the router.
func NewMapper(router *llm.Router) *Mapper {
	return &Mapper{router: router}
}

// Map builds the matrix for the given requirements against the proposal
// sections. Requirements whose mapping response cannot be parsed are left
// unmapped and therefore default to NotAddressed with confidence 0. A
// generation failure aborts the build.
func (m *Mapper) Map(ctx context.Context, requirements []model.Requirement, sections []Section, stage string) (*model.ComplianceMatrix, error) {
	var mappings []model.RequirementMapping

	for _, req := range requirements {
		res, err := m.router.Route(ctx, llm.Request{
			System:      mapperInstructions,
			Prompt:      mappingPrompt(req, sections),
			Temperature: 0.1,
			MaxTokens:   1024,
		}, mapperRole, "mapping", stage)
		if err != nil {
			return nil, eris.Wrapf(err, "compliance: map requirement %s", req.ID)
		}

		mapping, ok := parseMapping(req.ID, res.Text)
		if !ok {
			zap.L().Warn("unparsable mapping response, leaving requirement unmapped",
				zap.String("requirement_id", req.ID))
			continue
		}
		mappings = append(mappings, mapping)
	}

	return model.NewComplianceMatrix(requirements, mappings), nil
}

func mappingPrompt(req model.Requirement, sections []Section) string {
	var b strings.Builder
	fmt.Fprintf(&b, "REQUIREMENT %s (%s, priority %d):\n%s\n\nPROPOSAL SECTIONS:\n", req.ID, req.Category, req.Priority, req.Text)
	for _, s := range sections {
		content := s.Content
		if len(content) > sectionExcerptLimit {
			content = content[:sectionExcerptLimit]
		}
		fmt.Fprintf(&b, "\n## %s\n%s\n", s.Name, content)
	}
	b.WriteString("\nWhich section addresses this requirement?")
	return b.String()
}

var mappingStatuses = map[string]model.ComplianceStatus{
	"FULLY_COMPLIANT":     model.StatusFullyCompliant,
	"PARTIALLY_COMPLIANT": model.StatusPartiallyCompliant,
	"NON_COMPLIANT":       model.StatusNonCompliant,
	"NOT_ADDRESSED":       model.StatusNotAddressed,
}

var confidenceRe = regexp.MustCompile(`[0-9]*\.?[0-9]+`)

// parseMapping parses the strict SECTION/STATUS/CONFIDENCE/EVIDENCE grammar.
// A response without a recognizable STATUS line is unparsable.
func parseMapping(reqID, response string) (model.RequirementMapping, bool) {
	mapping := model.RequirementMapping{
		RequirementID:   reqID,
		ProposalSection: "N/A",
	}

	var statusSeen bool
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(strings.ToUpper(line), "SECTION:"):
			name := strings.TrimSpace(line[len("SECTION:"):])
			if name != "" && !strings.EqualFold(name, "NONE") {
				mapping.ProposalSection = name
				mapping.SectionReference = name
			}
		case strings.HasPrefix(strings.ToUpper(line), "STATUS:"):
			token := strings.ToUpper(strings.TrimSpace(line[len("STATUS:"):]))
			if status, ok := mappingStatuses[token]; ok {
				mapping.ComplianceStatus = status
				statusSeen = true
			}
		case strings.HasPrefix(strings.ToUpper(line), "CONFIDENCE:"):
			if match := confidenceRe.FindString(line); match != "" {
				if v, err := strconv.ParseFloat(match, 64); err == nil {
					mapping.Confidence = clamp01(v)
				}
			}
		case strings.HasPrefix(strings.ToUpper(line), "EVIDENCE:"):
			mapping.ResponseText = strings.TrimSpace(line[len("EVIDENCE:"):])
		}
	}

	if !statusSeen {
		return model.RequirementMapping{}, false
	}
	if mapping.ComplianceStatus == model.StatusNotAddressed {
		mapping.Confidence = 0
		mapping.GapNotes = "requirement not addressed in proposal"
	}
	return mapping, true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
