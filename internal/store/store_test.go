package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kplw-group/proposal-cli/internal/model"
)

func testState(projectID string) *model.ProjectState {
	state := model.NewProjectState(projectID, "corporate", "rfp text")
	state.CurrentStage = model.StageRequirementsExtracted
	state.Requirements = []model.Requirement{
		{ID: "R001", Text: "Submit a budget", Category: model.CategoryMandatory, Priority: 1, IsMandatory: true},
	}
	state.Log("requirements extracted")
	return state
}

// roundTrip exercises the full Store contract against any implementation.
func roundTrip(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.Migrate(ctx))

	_, err := s.GetState(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteState(ctx, "missing"), ErrNotFound)

	state := testState("proj-1")
	require.NoError(t, s.SaveState(ctx, state))

	got, err := s.GetState(ctx, "proj-1")
	require.NoError(t, err)
	assert.Equal(t, "proj-1", got.ProjectID)
	assert.Equal(t, model.StageRequirementsExtracted, got.CurrentStage)
	require.Len(t, got.Requirements, 1)
	assert.Equal(t, "R001", got.Requirements[0].ID)
	require.Len(t, got.WorkflowLog, 1)

	// Save again with progressed state: upsert, not duplicate.
	state.CurrentStage = model.StageContentValidationLoop
	state.Status = model.StatusValidated
	require.NoError(t, s.SaveState(ctx, state))

	got, err = s.GetState(ctx, "proj-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusValidated, got.Status)

	states, err := s.ListStates(ctx)
	require.NoError(t, err)
	require.Len(t, states, 1)

	require.NoError(t, s.DeleteState(ctx, "proj-1"))
	_, err = s.GetState(ctx, "proj-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	s := NewMemory(0)
	defer s.Close()
	roundTrip(t, s)
}

func TestMemoryStore_SnapshotIsolation(t *testing.T) {
	s := NewMemory(0)
	defer s.Close()
	ctx := context.Background()

	state := testState("proj-1")
	require.NoError(t, s.SaveState(ctx, state))

	// Mutations after save are not visible until the next save.
	state.Status = model.StatusFailed
	got, err := s.GetState(ctx, "proj-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusRunning, got.Status)
}

func TestMemoryStore_TTLExpiry(t *testing.T) {
	s := NewMemory(10 * time.Millisecond)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.SaveState(ctx, testState("proj-1")))
	time.Sleep(30 * time.Millisecond)

	_, err := s.GetState(ctx, "proj-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	s, err := NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer s.Close()
	roundTrip(t, s)
}

func TestSQLiteStore_ListOrder(t *testing.T) {
	s, err := NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()
	require.NoError(t, s.Migrate(ctx))

	older := testState("proj-old")
	older.StartedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, s.SaveState(ctx, older))
	require.NoError(t, s.SaveState(ctx, testState("proj-new")))

	states, err := s.ListStates(ctx)
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.Equal(t, "proj-new", states[0].ProjectID)
	assert.Equal(t, "proj-old", states[1].ProjectID)
}
