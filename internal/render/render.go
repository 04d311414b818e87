// Package render turns a finished run into output files. Markdown is built
// in; other formats are pluggable Renderer implementations resolved by
// format name. Render failures never fail the run.
package render

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kplw-group/proposal-cli/internal/model"
)

// RenderError reports a failed render for one output format.
type RenderError struct {
	Format string
	Err    error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %v", e.Format, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Renderer produces output files for one format.
type Renderer interface {
	// Format names the output format this renderer handles (e.g. "markdown").
	Format() string
	// Render writes the run's outputs and returns the primary file path.
	Render(ctx context.Context, state *model.ProjectState, outputDir string) (string, error)
}

// Coordinator dispatches render requests per requested format and records
// the outcome on the state: a file path on success, an error marker on
// failure. Formats with no registered renderer get an error marker too.
type Coordinator struct {
	renderers map[string]Renderer
}

// NewCoordinator builds a Coordinator over the given renderers.
func NewCoordinator(renderers ...Renderer) *Coordinator {
	byFormat := make(map[string]Renderer, len(renderers))
	for _, r := range renderers {
		byFormat[strings.ToLower(r.Format())] = r
	}
	return &Coordinator{renderers: byFormat}
}

// RenderAll renders every requested format, best effort. Each failure is
// isolated: it is logged, recorded on the state as an error marker, and
// does not affect the other formats or the run outcome.
func (c *Coordinator) RenderAll(ctx context.Context, state *model.ProjectState, formats []string, outputDir string) {
	for _, format := range formats {
		format = strings.ToLower(strings.TrimSpace(format))
		if format == "" {
			continue
		}

		r, ok := c.renderers[format]
		if !ok {
			state.GeneratedFiles[format] = fmt.Sprintf("error: no renderer for format %q", format)
			zap.L().Warn("no renderer registered", zap.String("format", format))
			continue
		}

		path, err := r.Render(ctx, state, outputDir)
		if err != nil {
			rerr := &RenderError{Format: format, Err: err}
			state.GeneratedFiles[format] = "error: " + rerr.Error()
			zap.L().Warn("render failed", zap.String("format", format), zap.Error(err))
			continue
		}
		state.GeneratedFiles[format] = path
		zap.L().Info("rendered output", zap.String("format", format), zap.String("path", path))
	}
}
