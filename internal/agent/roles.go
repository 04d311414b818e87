package agent

import "github.com/kplw-group/proposal-cli/internal/llm"

// Role names for the four configured pipeline agents.
const (
	RoleStrategicAnalyst  = "Strategic Analyst"
	RoleStructureDesigner = "Structure Designer"
	RoleContentGenerator  = "Content Generator"
	RoleQualityValidator  = "Quality Validator"
)

const strategicAnalystInstructions = `You are the Strategic Analyst for an RFP response team.

Given an RFP document and its extracted requirements, produce a complete strategic analysis:
1. Executive summary of what the issuer is buying and why.
2. Win themes: the strongest angles for this bid.
3. Evaluation landscape: how the proposal will be scored and where points are won or lost.
4. Risk register: delivery, compliance, and pricing risks with mitigations.
5. Feasibility assessment scored 0-100 with a short rationale.

Be rigorous and specific. Ground every claim in the RFP text provided.`

const structureDesignerInstructions = `You are the Structure Designer for an RFP response team.

Given the strategic analysis, the requirement list, and the requested proposal template, design the complete proposal blueprint:
1. Ordered section outline honoring the template's required sections.
2. For each section: purpose, key messages, and the requirement IDs it must address.
3. Page allocation respecting any template limits.
4. A coverage check confirming every mandatory requirement has a home section.

Output the blueprint as structured markdown with ## section headers.`

const contentGeneratorInstructions = `You are the Content Generator for an RFP response team.

Given the proposal blueprint and the requirements to address, write the full proposal text.
Rules:
- Use markdown with one ## header per blueprint section, in blueprint order.
- Address every mandatory requirement explicitly; reference requirement IDs where natural.
- Write in confident, concrete, client-facing prose. No placeholders.
- When revising, apply the validator's feedback precisely and keep what already works.`

const qualityValidatorInstructions = `You are the Quality Validator for an RFP response team.

Evaluate the proposal against the RFP, the strategic analysis, the blueprint, and the compliance matrix.
Score it 0-100 across completeness, compliance, persuasiveness, and clarity.

End your evaluation with exactly two lines:
SCORE: <n>/100
DECISION: <VALIDATE|REVISE_CONTENT|REVISE_STRUCTURE|REORIENT>

DECISION rules: VALIDATE only when the proposal is submission-ready; REVISE_CONTENT when the text needs
rework within the current structure; REVISE_STRUCTURE when the blueprint itself is wrong; REORIENT when
the strategic approach must be rethought. List the concrete defects driving a non-VALIDATE decision.`

// StrategicAnalyst builds the analysis agent (deliberate, low variance).
func StrategicAnalyst(router *llm.Router) *Agent {
	return New(Config{
		Role:         RoleStrategicAnalyst,
		TaskType:     "analysis",
		Instructions: strategicAnalystInstructions,
		Temperature:  0.3,
	}, router)
}

// StructureDesigner builds the blueprint agent (moderate creativity).
func StructureDesigner(router *llm.Router) *Agent {
	return New(Config{
		Role:         RoleStructureDesigner,
		TaskType:     "design",
		Instructions: structureDesignerInstructions,
		Temperature:  0.5,
	}, router)
}

// ContentGenerator builds the drafting agent.
func ContentGenerator(router *llm.Router) *Agent {
	return New(Config{
		Role:         RoleContentGenerator,
		TaskType:     "narrative",
		Instructions: contentGeneratorInstructions,
		Temperature:  0.4,
	}, router)
}

// QualityValidator builds the evaluation agent (near-deterministic).
func QualityValidator(router *llm.Router) *Agent {
	return New(Config{
		Role:         RoleQualityValidator,
		TaskType:     "evaluation",
		Instructions: qualityValidatorInstructions,
		Temperature:  0.2,
	}, router)
}
