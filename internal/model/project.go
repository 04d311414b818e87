package model

import (
	"fmt"
	"time"
)

// Stage identifies a step of the RFP response pipeline. Stages are strictly
// ordered; the orchestrator never runs them out of sequence.
type Stage string

const (
	StageDocumentIngested      Stage = "document_ingested"
	StageRequirementsExtracted Stage = "requirements_extracted"
	StageStrategicAnalysisDone Stage = "strategic_analysis_done"
	StageStructureDesigned     Stage = "structure_designed"
	StageContentValidationLoop Stage = "content_validation_loop"
	StageComplianceMatrixBuilt Stage = "compliance_matrix_built"
	StageFinalValidationDone   Stage = "final_validation_done"
	StageOutputsRequested      Stage = "outputs_requested"
)

// stageProgress maps each completed stage to an overall progress percentage.
var stageProgress = map[Stage]int{
	StageDocumentIngested:      5,
	StageRequirementsExtracted: 15,
	StageStrategicAnalysisDone: 30,
	StageStructureDesigned:     40,
	StageContentValidationLoop: 65,
	StageComplianceMatrixBuilt: 80,
	StageFinalValidationDone:   90,
	StageOutputsRequested:      100,
}

// Progress returns the overall progress percentage for a stage.
func (s Stage) Progress() int {
	return stageProgress[s]
}

// Decision is the routing token emitted by the Quality Validator inside the
// content validation loop.
type Decision string

const (
	DecisionValidate        Decision = "validate"
	DecisionReviseContent   Decision = "revise_content"
	DecisionReviseStructure Decision = "revise_structure"
	DecisionReorient        Decision = "reorient"
)

// ProjectStatus is the user-visible outcome of a run.
type ProjectStatus string

const (
	StatusRunning   ProjectStatus = "running"
	StatusValidated ProjectStatus = "validated"
	StatusEscalated ProjectStatus = "escalated" // iteration budget exhausted, needs human review
	StatusFailed    ProjectStatus = "failed"
)

// Terminal reports whether the status ends a run.
func (s ProjectStatus) Terminal() bool {
	return s != StatusRunning
}

// WorkflowEvent is one append-only timestamped entry of a run's workflow log.
type WorkflowEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Stage     Stage     `json:"stage"`
	Message   string    `json:"message"`
	Iteration int       `json:"iteration,omitempty"`
	Decision  Decision  `json:"decision,omitempty"`
	Score     float64   `json:"score,omitempty"`
	Cost      float64   `json:"cost,omitempty"` // incremental cost of the event
}

// AgentOutput is one recorded stage output, insertion-ordered.
type AgentOutput struct {
	Stage Stage  `json:"stage"`
	Agent string `json:"agent"`
	Text  string `json:"text"`
}

// ProjectState is the single mutable record threaded through a run. Exactly
// one instance exists per run, owned exclusively by the orchestrator; it is
// read-only once Status leaves StatusRunning.
type ProjectState struct {
	ProjectID      string            `json:"project_id"`
	TemplateName   string            `json:"template_name"`
	RawRFPText     string            `json:"raw_rfp_text"`
	Requirements   []Requirement     `json:"requirements"`
	CurrentStage   Stage             `json:"current_stage"`
	IterationCount int               `json:"iteration_count"`
	AgentOutputs   []AgentOutput     `json:"agent_outputs"`
	Matrix         *ComplianceMatrix `json:"compliance_matrix,omitempty"`
	LastScore      float64           `json:"last_score"`
	LastDecision   Decision          `json:"last_decision,omitempty"`
	LastFeedback   string            `json:"last_feedback,omitempty"`
	CostSummary    CostSummary       `json:"cost_summary"`
	GeneratedFiles map[string]string `json:"generated_files,omitempty"` // format -> path, or "error: ..." marker
	WorkflowLog    []WorkflowEvent   `json:"workflow_log"`
	Status         ProjectStatus     `json:"status"`
	Error          string            `json:"error,omitempty"`
	StartedAt      time.Time         `json:"started_at"`
	CompletedAt    time.Time         `json:"completed_at,omitempty"`
}

// NewProjectState creates the run record for a freshly ingested RFP.
func NewProjectState(projectID, templateName, rawText string) *ProjectState {
	return &ProjectState{
		ProjectID:      projectID,
		TemplateName:   templateName,
		RawRFPText:     rawText,
		CurrentStage:   StageDocumentIngested,
		GeneratedFiles: make(map[string]string),
		Status:         StatusRunning,
		StartedAt:      time.Now().UTC(),
	}
}

// Log appends a workflow event stamped with the current stage.
func (p *ProjectState) Log(format string, args ...any) {
	p.WorkflowLog = append(p.WorkflowLog, WorkflowEvent{
		Timestamp: time.Now().UTC(),
		Stage:     p.CurrentStage,
		Message:   fmt.Sprintf(format, args...),
	})
}

// LogEvent appends a fully populated workflow event.
func (p *ProjectState) LogEvent(ev WorkflowEvent) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	if ev.Stage == "" {
		ev.Stage = p.CurrentStage
	}
	p.WorkflowLog = append(p.WorkflowLog, ev)
}

// RecordOutput stores a stage output, replacing any prior output for the same
// stage while keeping first-insertion order.
func (p *ProjectState) RecordOutput(stage Stage, agent, text string) {
	for i := range p.AgentOutputs {
		if p.AgentOutputs[i].Stage == stage {
			p.AgentOutputs[i].Agent = agent
			p.AgentOutputs[i].Text = text
			return
		}
	}
	p.AgentOutputs = append(p.AgentOutputs, AgentOutput{Stage: stage, Agent: agent, Text: text})
}

// Output returns the recorded text for a stage, or "" when absent.
func (p *ProjectState) Output(stage Stage) string {
	for _, o := range p.AgentOutputs {
		if o.Stage == stage {
			return o.Text
		}
	}
	return ""
}

// StateView is the condensed run status exposed by getState.
type StateView struct {
	ProjectID       string        `json:"project_id"`
	Stage           Stage         `json:"stage"`
	IterationCount  int           `json:"iteration_count"`
	LastScore       float64       `json:"last_score"`
	Status          ProjectStatus `json:"status"`
	ProgressPercent int           `json:"progress_percent"`
}

// View derives the condensed status record for API consumers.
func (p *ProjectState) View() StateView {
	progress := p.CurrentStage.Progress()
	if p.Status == StatusValidated {
		progress = 100
	}
	return StateView{
		ProjectID:       p.ProjectID,
		Stage:           p.CurrentStage,
		IterationCount:  p.IterationCount,
		LastScore:       p.LastScore,
		Status:          p.Status,
		ProgressPercent: progress,
	}
}
