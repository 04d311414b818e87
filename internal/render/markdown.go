package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/kplw-group/proposal-cli/internal/model"
)

// stageFiles maps pipeline stages to the markdown files their outputs land in.
var stageFiles = map[model.Stage]string{
	model.StageStrategicAnalysisDone: "01_strategic_analysis.md",
	model.StageStructureDesigned:     "02_proposal_structure.md",
	model.StageContentValidationLoop: "03_proposal_content.md",
	model.StageFinalValidationDone:   "04_final_validation.md",
}

// MarkdownRenderer writes each stage output and the compliance matrix as
// markdown files under <outputDir>/<projectId>/.
type MarkdownRenderer struct{}

// NewMarkdownRenderer returns the built-in markdown renderer.
func NewMarkdownRenderer() *MarkdownRenderer { return &MarkdownRenderer{} }

func (r *MarkdownRenderer) Format() string { return "markdown" }

// Render writes the output files and returns the path of the proposal
// content file, the primary deliverable.
func (r *MarkdownRenderer) Render(ctx context.Context, state *model.ProjectState, outputDir string) (string, error) {
	dir := filepath.Join(outputDir, state.ProjectID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrap(err, "create output directory")
	}

	primary := ""
	for _, out := range state.AgentOutputs {
		name, ok := stageFiles[out.Stage]
		if !ok {
			continue
		}
		path := filepath.Join(dir, name)
		body := fmt.Sprintf("# %s\n\n_Generated by %s_\n\n%s\n", stageTitle(out.Stage), out.Agent, out.Text)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			return "", eris.Wrapf(err, "write %s", name)
		}
		if out.Stage == model.StageContentValidationLoop {
			primary = path
		}
	}

	if state.Matrix != nil {
		path := filepath.Join(dir, "05_compliance_matrix.md")
		if err := os.WriteFile(path, []byte(state.Matrix.Markdown()), 0o644); err != nil {
			return "", eris.Wrap(err, "write compliance matrix")
		}
	}

	if primary == "" {
		return "", eris.New("no proposal content to render")
	}
	return primary, nil
}

func stageTitle(stage model.Stage) string {
	switch stage {
	case model.StageStrategicAnalysisDone:
		return "Strategic Analysis"
	case model.StageStructureDesigned:
		return "Proposal Structure"
	case model.StageContentValidationLoop:
		return "Proposal Content"
	case model.StageFinalValidationDone:
		return "Final Validation Report"
	default:
		return string(stage)
	}
}
