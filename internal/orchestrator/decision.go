package orchestrator

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/kplw-group/proposal-cli/internal/model"
)

// Validator output grammar. The strict forms come first; looser patterns
// catch evaluations that drop the label.
var (
	scorePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)SCORE\s*:\s*(\d+)\s*/\s*100`),
		regexp.MustCompile(`(?i)SCORE\s*[:=]\s*(\d+)`),
		regexp.MustCompile(`(\d+)\s*/\s*100`),
	}
	decisionPattern = regexp.MustCompile(`(?i)DECISION\s*:\s*(VALIDATE|REVISE_CONTENT|REVISE_STRUCTURE|REORIENT)`)
)

// ParseScore extracts the numeric quality score from an evaluation,
// clamped to [0,100]. ok is false when no score pattern matches.
func ParseScore(evaluation string) (score float64, ok bool) {
	for _, re := range scorePatterns {
		if m := re.FindStringSubmatch(evaluation); m != nil {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			if n < 0 {
				n = 0
			}
			if n > 100 {
				n = 100
			}
			return float64(n), true
		}
	}
	return 0, false
}

// ParseDecision extracts the explicit routing token from an evaluation.
// ok is false when no token is present.
func ParseDecision(evaluation string) (model.Decision, bool) {
	m := decisionPattern.FindStringSubmatch(evaluation)
	if m == nil {
		return "", false
	}
	switch strings.ToUpper(m[1]) {
	case "VALIDATE":
		return model.DecisionValidate, true
	case "REVISE_CONTENT":
		return model.DecisionReviseContent, true
	case "REVISE_STRUCTURE":
		return model.DecisionReviseStructure, true
	default:
		return model.DecisionReorient, true
	}
}

// DecideFromScore derives a routing decision purely from the numeric score.
// Used when the validator emits no parsable token; an unparsable score reads
// as 0 and routes to reorientation.
func DecideFromScore(score, threshold float64) model.Decision {
	switch {
	case score >= threshold:
		return model.DecisionValidate
	case score >= 60:
		return model.DecisionReviseContent
	case score >= 40:
		return model.DecisionReviseStructure
	default:
		return model.DecisionReorient
	}
}

// Evaluate parses a validator evaluation into a score and decision. The
// explicit token wins when present; otherwise the decision falls back to the
// score thresholds.
func Evaluate(evaluation string, threshold float64) (float64, model.Decision) {
	score, _ := ParseScore(evaluation)
	if decision, ok := ParseDecision(evaluation); ok {
		return score, decision
	}
	return score, DecideFromScore(score, threshold)
}
