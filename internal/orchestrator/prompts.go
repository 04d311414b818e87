package orchestrator

import (
	"fmt"
	"strings"

	"github.com/kplw-group/proposal-cli/internal/model"
	"github.com/kplw-group/proposal-cli/internal/template"
)

// rfpExcerptLimit bounds how much raw RFP text rides along in downstream
// prompts once the requirements are extracted.
const rfpExcerptLimit = 3000

func (o *Orchestrator) analysisPrompt(state *model.ProjectState, feedback string) string {
	var b strings.Builder
	b.WriteString("RFP DOCUMENT:\n")
	b.WriteString(state.RawRFPText)
	b.WriteString("\n\nEXTRACTED REQUIREMENTS:\n")
	b.WriteString(formatRequirements(state.Requirements))
	if prior := state.Output(model.StageStrategicAnalysisDone); prior != "" && feedback != "" {
		b.WriteString("\n\nPREVIOUS ANALYSIS:\n")
		b.WriteString(prior)
		b.WriteString("\n\nVALIDATOR FEEDBACK (reorientation required):\n")
		b.WriteString(feedback)
		b.WriteString("\n\nRe-evaluate the bid strategy addressing this feedback.")
	} else {
		b.WriteString("\n\nAnalyze this RFP and produce the bid strategy.")
	}
	return b.String()
}

func (o *Orchestrator) designPrompt(state *model.ProjectState, tmpl *template.Structure, feedback string) string {
	var b strings.Builder
	if analysis := state.Output(model.StageStrategicAnalysisDone); analysis != "" {
		b.WriteString("STRATEGIC ANALYSIS:\n")
		b.WriteString(analysis)
		b.WriteString("\n\n")
	}
	b.WriteString("PROPOSAL TEMPLATE:\n")
	b.WriteString(tmpl.Outline())
	b.WriteString("\nEXTRACTED REQUIREMENTS:\n")
	b.WriteString(formatRequirements(state.Requirements))
	if prior := state.Output(model.StageStructureDesigned); prior != "" && feedback != "" {
		b.WriteString("\n\nPREVIOUS BLUEPRINT:\n")
		b.WriteString(prior)
		b.WriteString("\n\nVALIDATOR FEEDBACK (redesign required):\n")
		b.WriteString(feedback)
		b.WriteString("\n\nRedesign the proposal structure addressing this feedback.")
	} else {
		b.WriteString("\n\nDesign the section-by-section proposal blueprint.")
	}
	return b.String()
}

func (o *Orchestrator) contentPrompt(state *model.ProjectState, feedback string) string {
	var b strings.Builder
	if blueprint := state.Output(model.StageStructureDesigned); blueprint != "" {
		b.WriteString("PROPOSAL BLUEPRINT:\n")
		b.WriteString(blueprint)
		b.WriteString("\n\n")
	}
	b.WriteString("REQUIREMENTS TO ADDRESS:\n")
	b.WriteString(formatRequirements(state.Requirements))
	b.WriteString("\n\nRFP EXCERPT:\n")
	b.WriteString(excerpt(state.RawRFPText))
	if feedback != "" {
		if prior := state.Output(model.StageContentValidationLoop); prior != "" {
			b.WriteString("\n\nPREVIOUS DRAFT:\n")
			b.WriteString(prior)
		}
		b.WriteString("\n\nVALIDATOR FEEDBACK:\n")
		b.WriteString(feedback)
		b.WriteString("\n\nRevise the proposal addressing every point of feedback.")
	} else {
		b.WriteString("\n\nWrite the full proposal, one markdown section (## header) per blueprint section.")
	}
	return b.String()
}

func (o *Orchestrator) loopValidationPrompt(state *model.ProjectState, tmpl *template.Structure, content string) string {
	var b strings.Builder
	b.WriteString("PROPOSAL TO EVALUATE:\n")
	b.WriteString(content)
	b.WriteString("\n\nREQUIREMENTS IT MUST ADDRESS:\n")
	b.WriteString(formatRequirements(state.Requirements))
	if missing := tmpl.Validate(sectionNames(content)); len(missing) > 0 {
		b.WriteString("\n\nMISSING REQUIRED SECTIONS:\n")
		b.WriteString(strings.Join(missing, ", "))
	}
	b.WriteString("\n\nEvaluate quality and requirement coverage, then emit your score and decision.")
	return b.String()
}

func (o *Orchestrator) finalValidationPrompt(state *model.ProjectState) string {
	var b strings.Builder
	b.WriteString("PROPOSAL TO EVALUATE:\n")
	b.WriteString(o.latestContent(state))
	if analysis := state.Output(model.StageStrategicAnalysisDone); analysis != "" {
		b.WriteString("\n\nSTRATEGIC ANALYSIS (reference):\n")
		b.WriteString(analysis)
	}
	if state.Matrix != nil {
		b.WriteString("\n\nCOMPLIANCE MATRIX:\n")
		b.WriteString(state.Matrix.Markdown())
	}
	b.WriteString("\n\nRFP EXCERPT:\n")
	b.WriteString(excerpt(state.RawRFPText))
	b.WriteString("\n\nEvaluate this RFP response for compliance and quality, then emit your score and decision.")
	return b.String()
}

func formatRequirements(reqs []model.Requirement) string {
	if len(reqs) == 0 {
		return "(none extracted)"
	}
	var b strings.Builder
	for _, r := range reqs {
		fmt.Fprintf(&b, "- [%s] (%s, priority %d) %s\n", r.ID, r.Category, r.Priority, r.Text)
	}
	return b.String()
}

// sectionNames lists the ## headers of generated markdown content.
func sectionNames(content string) []string {
	var names []string
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "##") && !strings.HasPrefix(line, "###") {
			names = append(names, strings.TrimSpace(strings.TrimLeft(line, "#")))
		}
	}
	return names
}

func excerpt(text string) string {
	if len(text) > rfpExcerptLimit {
		return text[:rfpExcerptLimit]
	}
	return text
}
