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

const extractorRole = "Compliance Extractor"

const extractorInstructions = `You are an expert at analyzing RFP documents and extracting proposal content requirements.

Extract every requirement that describes WHAT the proposal must contain or address:
mandatory content (MUST, SHALL, REQUIRED), optional content (SHOULD, MAY), deliverables,
and evaluation criteria. EXCLUDE administrative items: submission instructions, deadlines,
contact details, and document formatting rules.

Format each requirement exactly as:
ID: R###
TEXT: <requirement text>
MANDATORY: yes/no
CATEGORY: <mandatory|optional|deliverable|evaluation_criteria>
PRIORITY: <1-5>
SECTION: <RFP section reference>
---`

// rawTextLimit bounds how much RFP text is sent in the extraction prompt.
const rawTextLimit = 12000

// Extractor pulls structured requirements out of raw RFP text with a single
// generation call.
type Extractor struct {
	router *llm.Router
}

// NewExtractor creates an Extractor bound to the router.
func NewExtractor(router *llm.Router) *Extractor {
	return &Extractor{router: router}
}

// Extract runs the extraction call and parses the response into ordered
// requirements with sequential ids. Malformed response segments are skipped
// and logged; extraction only fails when the generation call itself fails.
func (e *Extractor) Extract(ctx context.Context, rawText, stage string) ([]model.Requirement, error) {
	text := rawText
	if len(text) > rawTextLimit {
		text = text[:rawTextLimit]
	}

	prompt := fmt.Sprintf("RFP DOCUMENT:\n%s\n\nExtract ALL proposal content requirements now.", text)
	res, err := e.router.Route(ctx, llm.Request{
		System:      extractorInstructions,
		Prompt:      prompt,
		Temperature: 0.2,
		MaxTokens:   8192,
	}, extractorRole, "extraction", stage)
	if err != nil {
		return nil, eris.Wrap(err, "compliance: extract requirements")
	}

	return parseRequirements(res.Text), nil
}

// parseRequirements parses the line-oriented extraction grammar: records of
// "KEY: value" lines separated by "---". A record without requirement text
// is malformed and skipped.
func parseRequirements(response string) []model.Requirement {
	var out []model.Requirement
	seq := 0

	for _, block := range strings.Split(response, "---") {
		fields := parseBlock(block)
		text := fields["TEXT"]
		if strings.TrimSpace(text) == "" {
			if strings.TrimSpace(block) != "" {
				zap.L().Debug("skipping malformed requirement segment",
					zap.String("segment", truncateForLog(block)))
			}
			continue
		}
		if isAdministrative(text) {
			zap.L().Debug("filtered administrative requirement", zap.String("text", truncateForLog(text)))
			continue
		}

		seq++
		req := model.Requirement{
			ID:               model.RequirementID(seq),
			Text:             text,
			SectionReference: fields["SECTION"],
			Keywords:         model.ExtractKeywords(text),
			Priority:         3,
		}

		if p, err := strconv.Atoi(strings.TrimSpace(strings.Trim(fields["PRIORITY"], "."))); err == nil && p >= 1 && p <= 5 {
			req.Priority = p
		}

		req.Category, req.IsMandatory = classify(text, fields)
		switch {
		case req.IsMandatory && req.Priority > 2:
			req.Priority = 2
		case !req.IsMandatory && req.Category == model.CategoryOptional && req.Priority < 4:
			req.Priority = 4
		}

		out = append(out, req)
	}
	return out
}

func parseBlock(block string) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		for _, key := range []string{"ID", "TEXT", "MANDATORY", "CATEGORY", "PRIORITY", "SECTION"} {
			prefix := key + ":"
			if strings.HasPrefix(strings.ToUpper(line), prefix) {
				fields[key] = strings.TrimSpace(line[len(prefix):])
				break
			}
		}
	}
	return fields
}

// classify infers category and mandatory flag from lexical markers in the
// requirement text, falling back to the model-declared fields.
func classify(text string, fields map[string]string) (model.RequirementCategory, bool) {
	lower := strings.ToLower(text)
	section := strings.ToLower(fields["SECTION"])

	if strings.Contains(section, "evaluation criteria") || strings.Contains(lower, "evaluation criteria") {
		return model.CategoryEvaluationCriteria, false
	}
	if mandatoryMarkers.MatchString(lower) {
		return model.CategoryMandatory, true
	}
	if optionalMarkers.MatchString(lower) {
		return model.CategoryOptional, false
	}

	switch model.RequirementCategory(strings.ToLower(fields["CATEGORY"])) {
	case model.CategoryDeliverable:
		return model.CategoryDeliverable, true
	case model.CategoryEvaluationCriteria:
		return model.CategoryEvaluationCriteria, false
	case model.CategoryOptional:
		return model.CategoryOptional, false
	}

	mandatory := !strings.Contains(strings.ToLower(fields["MANDATORY"]), "no")
	if mandatory {
		return model.CategoryMandatory, true
	}
	return model.CategoryOptional, false
}

var (
	mandatoryMarkers = regexp.MustCompile(`\b(shall|must|required|mandatory)\b`)
	optionalMarkers  = regexp.MustCompile(`\b(should|may|optional|recommended)\b`)
)

// administrativePatterns match submission/deadline/contact/formatting items
// that are about how to submit rather than what to propose.
var administrativePatterns = []*regexp.Regexp{
	regexp.MustCompile(`submit.*via.*email`),
	regexp.MustCompile(`send.*by.*email`),
	regexp.MustCompile(`upload.*to.*portal`),
	regexp.MustCompile(`\bdeadline\b`),
	regexp.MustCompile(`no later than`),
	regexp.MustCompile(`email address`),
	regexp.MustCompile(`phone number`),
	regexp.MustCompile(`page limit`),
	regexp.MustCompile(`font size`),
	regexp.MustCompile(`\bmargins?\b`),
	regexp.MustCompile(`document format`),
	regexp.MustCompile(`registration.*required`),
	regexp.MustCompile(`signature.*required`),
}

func isAdministrative(text string) bool {
	lower := strings.ToLower(text)
	for _, re := range administrativePatterns {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

func truncateForLog(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 80 {
		return s[:80] + "..."
	}
	return s
}
