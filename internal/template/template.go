// Package template holds the predefined proposal structure templates and
// the validation helpers the structure-design stage builds on.
package template

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// Section defines one section of a proposal outline.
type Section struct {
	Name        string `json:"name"`
	Required    bool   `json:"required"`
	MaxPages    int    `json:"maxPages,omitempty"`
	Description string `json:"description,omitempty"`
	Order       int    `json:"order"`
}

// Structure defines the complete outline of a proposal for one RFP domain.
type Structure struct {
	Name         string            `json:"name"`
	DisplayName  string            `json:"displayName"`
	Sections     []Section         `json:"sections"`
	Formatting   map[string]string `json:"formatting,omitempty"`
	Instructions string            `json:"instructions,omitempty"`
}

// SectionNames returns section names in outline order.
func (s *Structure) SectionNames() []string {
	sections := append([]Section(nil), s.Sections...)
	sort.SliceStable(sections, func(i, j int) bool { return sections[i].Order < sections[j].Order })
	names := make([]string, len(sections))
	for i, sec := range sections {
		names[i] = sec.Name
	}
	return names
}

// RequiredSections returns only the sections flagged required.
func (s *Structure) RequiredSections() []Section {
	var required []Section
	for _, sec := range s.Sections {
		if sec.Required {
			required = append(required, sec)
		}
	}
	return required
}

// Validate checks the given section names against the template's required
// sections and returns the names of any that are missing, in outline order.
func (s *Structure) Validate(present []string) []string {
	seen := make(map[string]bool, len(present))
	for _, name := range present {
		seen[strings.ToLower(strings.TrimSpace(name))] = true
	}
	var missing []string
	for _, sec := range s.RequiredSections() {
		if !seen[strings.ToLower(sec.Name)] {
			missing = append(missing, sec.Name)
		}
	}
	return missing
}

// Outline renders the template as a numbered outline suitable for inclusion
// in a structure-design prompt.
func (s *Structure) Outline() string {
	var b strings.Builder
	b.WriteString(s.DisplayName + "\n")
	sections := append([]Section(nil), s.Sections...)
	sort.SliceStable(sections, func(i, j int) bool { return sections[i].Order < sections[j].Order })
	for _, sec := range sections {
		b.WriteString("  ")
		b.WriteString(sec.Name)
		if !sec.Required {
			b.WriteString(" (optional)")
		}
		if sec.Description != "" {
			b.WriteString(" - " + sec.Description)
		}
		b.WriteString("\n")
	}
	if s.Instructions != "" {
		b.WriteString("\nGuidelines: " + strings.TrimSpace(s.Instructions) + "\n")
	}
	return b.String()
}

// Get returns the named template.
func Get(name string) (*Structure, error) {
	t, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, eris.Errorf("template: unknown template %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return t, nil
}

// Names lists available template names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns all templates ordered by name.
func List() []*Structure {
	out := make([]*Structure, 0, len(registry))
	for _, name := range Names() {
		out = append(out, registry[name])
	}
	return out
}
