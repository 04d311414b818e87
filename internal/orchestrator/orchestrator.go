// Package orchestrator sequences the RFP response pipeline: eight ordered
// stages with a bounded content validation loop in the middle. It owns the
// run's state record and is the only writer to it.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kplw-group/proposal-cli/internal/agent"
	"github.com/kplw-group/proposal-cli/internal/compliance"
	"github.com/kplw-group/proposal-cli/internal/cost"
	"github.com/kplw-group/proposal-cli/internal/llm"
	"github.com/kplw-group/proposal-cli/internal/model"
	"github.com/kplw-group/proposal-cli/internal/render"
	"github.com/kplw-group/proposal-cli/internal/store"
	"github.com/kplw-group/proposal-cli/internal/template"
)

const (
	defaultQualityThreshold = 82
	defaultMaxIterations    = 3
)

// Config tunes a pipeline run.
type Config struct {
	QualityThreshold float64
	MaxIterations    int
	OutputDir        string
	OutputFormats    []string
}

func (c Config) withDefaults() Config {
	if c.QualityThreshold <= 0 {
		c.QualityThreshold = defaultQualityThreshold
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = defaultMaxIterations
	}
	if c.OutputDir == "" {
		c.OutputDir = "output"
	}
	if len(c.OutputFormats) == 0 {
		c.OutputFormats = []string{"markdown"}
	}
	return c
}

// Orchestrator drives one run at a time through the pipeline stages.
type Orchestrator struct {
	analyst   *agent.Agent
	designer  *agent.Agent
	generator *agent.Agent
	validator *agent.Agent
	extractor *compliance.Extractor
	mapper    *compliance.Mapper
	ledger    *cost.Ledger
	renderer  *render.Coordinator
	store     store.Store
	cfg       Config
}

// New wires an Orchestrator over the router's agents and collaborators.
func New(router *llm.Router, ledger *cost.Ledger, st store.Store, renderer *render.Coordinator, cfg Config) *Orchestrator {
	return &Orchestrator{
		analyst:   agent.StrategicAnalyst(router),
		designer:  agent.StructureDesigner(router),
		generator: agent.ContentGenerator(router),
		validator: agent.QualityValidator(router),
		extractor: compliance.NewExtractor(router),
		mapper:    compliance.NewMapper(router),
		ledger:    ledger,
		renderer:  renderer,
		store:     st,
		cfg:       cfg.withDefaults(),
	}
}

// Run executes the full pipeline on the given state. The state always ends
// in a terminal status: Validated, Escalated, or Failed. The returned error
// is non-nil only for Failed runs.
func (o *Orchestrator) Run(ctx context.Context, state *model.ProjectState) error {
	log := zap.L().With(zap.String("project_id", state.ProjectID))
	log.Info("run starting", zap.String("template", state.TemplateName))

	err := o.runStages(ctx, log, state)
	if err != nil {
		state.Status = model.StatusFailed
		state.Error = err.Error()
		state.Log("run failed: %v", err)
		log.Error("run failed", zap.Error(err))
	}

	state.CompletedAt = time.Now().UTC()
	o.save(ctx, state)

	log.Info("run finished",
		zap.String("status", string(state.Status)),
		zap.Float64("score", state.LastScore),
		zap.Float64("total_cost", state.CostSummary.TotalCost),
	)
	return err
}

func (o *Orchestrator) runStages(ctx context.Context, log *zap.Logger, state *model.ProjectState) error {
	tmpl, err := template.Get(state.TemplateName)
	if err != nil {
		return err
	}

	// Stage 1: the document text was ingested when the state was created.
	state.Log("document ingested (%d chars)", len(state.RawRFPText))

	// Stage 2: requirement extraction.
	if err := o.enterStage(ctx, state, model.StageRequirementsExtracted); err != nil {
		return err
	}
	reqs, err := o.extractor.Extract(ctx, state.RawRFPText, string(state.CurrentStage))
	if err != nil {
		return err
	}
	state.Requirements = reqs
	state.Log("extracted %d requirements", len(reqs))
	log.Info("requirements extracted", zap.Int("count", len(reqs)))
	o.save(ctx, state)

	// Stage 3: strategic analysis.
	if err := o.enterStage(ctx, state, model.StageStrategicAnalysisDone); err != nil {
		return err
	}
	if err := o.analyze(ctx, state, ""); err != nil {
		return err
	}
	o.save(ctx, state)

	// Stage 4: structure design.
	if err := o.enterStage(ctx, state, model.StageStructureDesigned); err != nil {
		return err
	}
	if err := o.design(ctx, state, tmpl, ""); err != nil {
		return err
	}
	o.save(ctx, state)

	// Stage 5: content validation loop.
	if err := o.enterStage(ctx, state, model.StageContentValidationLoop); err != nil {
		return err
	}
	validated, err := o.validationLoop(ctx, log, state, tmpl)
	if err != nil {
		return err
	}
	o.save(ctx, state)

	// Stage 6: compliance matrix over the latest content.
	if err := o.enterStage(ctx, state, model.StageComplianceMatrixBuilt); err != nil {
		return err
	}
	sections := compliance.SplitSections(o.latestContent(state))
	matrix, err := o.mapper.Map(ctx, state.Requirements, sections, string(state.CurrentStage))
	if err != nil {
		return err
	}
	state.Matrix = matrix
	state.Log("compliance matrix built: score %.1f, %d gaps", matrix.Score(), len(matrix.Gaps()))
	log.Info("compliance matrix built", zap.Float64("compliance_score", matrix.Score()))
	o.save(ctx, state)

	// Stage 7: final validation over the full proposal plus the matrix.
	if err := o.enterStage(ctx, state, model.StageFinalValidationDone); err != nil {
		return err
	}
	if err := o.finalValidation(ctx, state); err != nil {
		return err
	}
	o.save(ctx, state)

	// Stage 8: best-effort output rendering.
	if err := o.enterStage(ctx, state, model.StageOutputsRequested); err != nil {
		return err
	}
	o.renderer.RenderAll(ctx, state, o.cfg.OutputFormats, o.cfg.OutputDir)
	state.Log("outputs requested for formats: %s", strings.Join(o.cfg.OutputFormats, ", "))

	if validated {
		state.Status = model.StatusValidated
	} else {
		state.Status = model.StatusEscalated
	}
	return nil
}

// enterStage is the per-stage boundary: the only place cancellation is
// observed. An in-flight generation call is never preempted.
func (o *Orchestrator) enterStage(ctx context.Context, state *model.ProjectState, stage model.Stage) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrapf(err, "run cancelled before stage %s", stage)
	}
	state.CurrentStage = stage
	return nil
}

// validationLoop runs the nested generate/validate machine. It returns true
// when the validator accepts the content, false when the iteration budget is
// exhausted; the bound holds regardless of what the validator emits.
func (o *Orchestrator) validationLoop(ctx context.Context, log *zap.Logger, state *model.ProjectState, tmpl *template.Structure) (bool, error) {
	feedback := ""
	for iteration := 1; iteration <= o.cfg.MaxIterations; iteration++ {
		state.IterationCount = iteration

		content, err := o.generator.Execute(ctx, state, o.contentPrompt(state, feedback))
		if err != nil {
			return false, err
		}
		state.RecordOutput(model.StageContentValidationLoop, o.generator.Role(), content)

		evaluation, err := o.validator.Execute(ctx, state, o.loopValidationPrompt(state, tmpl, content))
		if err != nil {
			return false, err
		}

		score, decision := Evaluate(evaluation, o.cfg.QualityThreshold)
		state.LastScore = score
		state.LastDecision = decision
		state.LastFeedback = evaluation
		state.LogEvent(model.WorkflowEvent{
			Stage:     model.StageContentValidationLoop,
			Message:   fmt.Sprintf("iteration %d scored %.0f/100", iteration, score),
			Iteration: iteration,
			Decision:  decision,
			Score:     score,
		})
		log.Info("validation iteration",
			zap.Int("iteration", iteration),
			zap.Float64("score", score),
			zap.String("decision", string(decision)),
		)

		if decision == model.DecisionValidate {
			return true, nil
		}
		feedback = evaluation

		switch decision {
		case model.DecisionReviseStructure:
			if err := o.design(ctx, state, tmpl, feedback); err != nil {
				return false, err
			}
		case model.DecisionReorient:
			if err := o.analyze(ctx, state, feedback); err != nil {
				return false, err
			}
			if err := o.design(ctx, state, tmpl, feedback); err != nil {
				return false, err
			}
		}
		o.save(ctx, state)
	}

	state.Log("maximum iterations (%d) reached without validation; human review required", o.cfg.MaxIterations)
	log.Warn("iteration budget exhausted", zap.Int("max_iterations", o.cfg.MaxIterations))
	return false, nil
}

func (o *Orchestrator) analyze(ctx context.Context, state *model.ProjectState, feedback string) error {
	out, err := o.analyst.Execute(ctx, state, o.analysisPrompt(state, feedback))
	if err != nil {
		return err
	}
	state.RecordOutput(model.StageStrategicAnalysisDone, o.analyst.Role(), out)
	return nil
}

func (o *Orchestrator) design(ctx context.Context, state *model.ProjectState, tmpl *template.Structure, feedback string) error {
	out, err := o.designer.Execute(ctx, state, o.designPrompt(state, tmpl, feedback))
	if err != nil {
		return err
	}
	state.RecordOutput(model.StageStructureDesigned, o.designer.Role(), out)
	return nil
}

func (o *Orchestrator) finalValidation(ctx context.Context, state *model.ProjectState) error {
	out, err := o.validator.Execute(ctx, state, o.finalValidationPrompt(state))
	if err != nil {
		return err
	}
	state.RecordOutput(model.StageFinalValidationDone, o.validator.Role(), out)
	if score, ok := ParseScore(out); ok {
		state.LastScore = score
	}
	state.Log("final validation scored %.0f/100", state.LastScore)
	return nil
}

func (o *Orchestrator) latestContent(state *model.ProjectState) string {
	return state.Output(model.StageContentValidationLoop)
}

// save snapshots the state, refreshing the ledger totals so readers see
// cost accrue between stages.
func (o *Orchestrator) save(ctx context.Context, state *model.ProjectState) {
	state.CostSummary = o.ledger.Summary()
	if err := o.store.SaveState(ctx, state); err != nil {
		zap.L().Warn("failed to save run state",
			zap.String("project_id", state.ProjectID), zap.Error(err))
	}
}
