package compliance

import "strings"

// Section is one named slice of the generated proposal.
type Section struct {
	Name    string
	Content string
}

// SplitSections splits markdown proposal text into sections at top-level
// "##" headers. Text before the first header lands in "Introduction".
func SplitSections(proposalText string) []Section {
	var sections []Section
	current := Section{Name: "Introduction"}

	flush := func() {
		current.Content = strings.TrimSpace(current.Content)
		if current.Content != "" {
			sections = append(sections, current)
		}
	}

	for _, line := range strings.Split(proposalText, "\n") {
		if strings.HasPrefix(line, "##") && !strings.HasPrefix(line, "###") {
			flush()
			current = Section{Name: strings.TrimSpace(strings.TrimLeft(line, "#"))}
			continue
		}
		current.Content += line + "\n"
	}
	flush()

	return sections
}
