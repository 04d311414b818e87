// Package store persists run state snapshots. One record exists per
// projectId holding the full ProjectState as of the last completed stage.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/kplw-group/proposal-cli/internal/model"
)

// ErrNotFound is returned when no record exists for a projectId.
var ErrNotFound = eris.New("store: run not found")

// Store defines the persistence interface for run records.
type Store interface {
	// SaveState upserts the full state snapshot for its projectId.
	SaveState(ctx context.Context, state *model.ProjectState) error
	// GetState returns the last saved snapshot, or ErrNotFound.
	GetState(ctx context.Context, projectID string) (*model.ProjectState, error)
	// ListStates returns all saved snapshots, newest first.
	ListStates(ctx context.Context) ([]*model.ProjectState, error)
	// DeleteState removes the record, or returns ErrNotFound.
	DeleteState(ctx context.Context, projectID string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
