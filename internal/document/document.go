// Package document ingests RFP source files. PDF/DOCX extraction is an
// external collaborator behind the Parser interface; plain text and
// markdown are handled in-process.
package document

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Parser turns source files into raw RFP text.
type Parser interface {
	// Parse reads the given files and returns their concatenated text.
	Parse(ctx context.Context, paths []string) (string, error)
}

// TextParser reads plain-text and markdown files directly.
type TextParser struct{}

// NewTextParser returns the built-in text/markdown parser.
func NewTextParser() *TextParser { return &TextParser{} }

// Parse reads every file and joins the contents with a blank line. Files
// with extensions needing external extraction are rejected.
func (p *TextParser) Parse(ctx context.Context, paths []string) (string, error) {
	if len(paths) == 0 {
		return "", eris.New("document: no input files")
	}

	var parts []string
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		switch ext := strings.ToLower(filepath.Ext(path)); ext {
		case ".txt", ".md", ".markdown", "":
		default:
			return "", eris.Errorf("document: unsupported file type %s (external extraction required)", ext)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return "", eris.Wrapf(err, "document: read %s", path)
		}
		text := strings.TrimSpace(string(data))
		if text == "" {
			return "", eris.Errorf("document: %s is empty", path)
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n\n"), nil
}
