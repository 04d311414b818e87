package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProjectState(t *testing.T) {
	p := NewProjectState("RFP-123", "government_canada", "raw text")

	assert.Equal(t, "RFP-123", p.ProjectID)
	assert.Equal(t, StageDocumentIngested, p.CurrentStage)
	assert.Equal(t, StatusRunning, p.Status)
	assert.False(t, p.Status.Terminal())
	assert.NotNil(t, p.GeneratedFiles)
	assert.False(t, p.StartedAt.IsZero())
}

func TestProjectState_RecordOutputReplacesSameStage(t *testing.T) {
	p := NewProjectState("RFP-1", "corporate", "")
	p.RecordOutput(StageStrategicAnalysisDone, "Strategic Analyst", "v1")
	p.RecordOutput(StageStructureDesigned, "Structure Designer", "blueprint")
	p.RecordOutput(StageStrategicAnalysisDone, "Strategic Analyst", "v2")

	require.Len(t, p.AgentOutputs, 2)
	assert.Equal(t, "v2", p.Output(StageStrategicAnalysisDone))
	// Insertion order preserved across replacement.
	assert.Equal(t, StageStrategicAnalysisDone, p.AgentOutputs[0].Stage)
}

func TestProjectState_LogAppendsStampedEvents(t *testing.T) {
	p := NewProjectState("RFP-1", "corporate", "")
	p.CurrentStage = StageRequirementsExtracted
	p.Log("extracted %d requirements", 7)

	require.Len(t, p.WorkflowLog, 1)
	ev := p.WorkflowLog[0]
	assert.Equal(t, StageRequirementsExtracted, ev.Stage)
	assert.Equal(t, "extracted 7 requirements", ev.Message)
	assert.False(t, ev.Timestamp.IsZero())
}

func TestProjectState_View(t *testing.T) {
	p := NewProjectState("RFP-1", "corporate", "")
	p.CurrentStage = StageContentValidationLoop
	p.IterationCount = 2
	p.LastScore = 74

	v := p.View()
	assert.Equal(t, 65, v.ProgressPercent)
	assert.Equal(t, 2, v.IterationCount)
	assert.Equal(t, 74.0, v.LastScore)

	p.Status = StatusValidated
	assert.Equal(t, 100, p.View().ProgressPercent)
}

func TestStageProgressMonotonic(t *testing.T) {
	order := []Stage{
		StageDocumentIngested,
		StageRequirementsExtracted,
		StageStrategicAnalysisDone,
		StageStructureDesigned,
		StageContentValidationLoop,
		StageComplianceMatrixBuilt,
		StageFinalValidationDone,
		StageOutputsRequested,
	}
	prev := 0
	for _, s := range order {
		assert.Greater(t, s.Progress(), prev, "stage %s", s)
		prev = s.Progress()
	}
	assert.Equal(t, 100, StageOutputsRequested.Progress())
}

func TestRequirementID(t *testing.T) {
	assert.Equal(t, "R001", RequirementID(1))
	assert.Equal(t, "R042", RequirementID(42))
	assert.Equal(t, "R100", RequirementID(100))
}
