package reasoning

import (
	"regexp"
	"strings"
)

// SOAPNote is a structured clinical note. Either all four sections are
// populated, or the generation output could not be sectioned and the whole
// cleaned text is kept under Notes.
type SOAPNote struct {
	Subjective string `json:"subjective,omitempty"`
	Objective  string `json:"objective,omitempty"`
	Assessment string `json:"assessment,omitempty"`
	Plan       string `json:"plan,omitempty"`
	// Notes holds the free-text fallback when section markers were absent.
	Notes string `json:"notes,omitempty"`
}

// Structured reports whether the note carries the four SOAP sections.
func (n SOAPNote) Structured() bool {
	return n.Notes == ""
}

// Render formats the note as display text.
func (n SOAPNote) Render() string {
	if !n.Structured() {
		return "Notes: " + n.Notes
	}
	var b strings.Builder
	b.WriteString("Subjective: " + n.Subjective + "\n\n")
	b.WriteString("Objective: " + n.Objective + "\n\n")
	b.WriteString("Assessment: " + n.Assessment + "\n\n")
	b.WriteString("Plan: " + n.Plan)
	return b.String()
}

// junkMarkers indicate prompt text echoed back after the note proper.
// Everything from the first marker on is discarded.
var junkMarkers = []string{
	"Patient transcription:",
	"Generate a concise",
	"Detected emotion:",
	"The patient said:",
	"Here's a SOAP note",
	"Based on the transcription",
}

var blankRuns = regexp.MustCompile(`\n{3,}`)

// sectionNames maps recognized header names to note fields, lowercase.
var sectionNames = []string{"subjective", "objective", "assessment", "plan"}

// parseSOAP extracts the four SOAP sections from raw generation output.
// Generation output is not schema-guaranteed: when any section marker is
// missing the whole cleaned text is returned under Notes instead of failing.
func parseSOAP(raw string) SOAPNote {
	cleaned := cleanOutput(raw)

	sections := make(map[string][]string)
	current := ""
	for _, line := range strings.Split(cleaned, "\n") {
		if name, rest, ok := matchSectionHeader(line); ok {
			current = name
			if rest != "" {
				sections[current] = append(sections[current], rest)
			}
			continue
		}
		if current != "" && strings.TrimSpace(line) != "" {
			sections[current] = append(sections[current], strings.TrimSpace(line))
		}
	}

	for _, name := range sectionNames {
		if len(sections[name]) == 0 {
			return SOAPNote{Notes: cleaned}
		}
	}

	join := func(name string) string {
		return strings.Join(sections[name], "\n")
	}
	return SOAPNote{
		Subjective: join("subjective"),
		Objective:  join("objective"),
		Assessment: join("assessment"),
		Plan:       join("plan"),
	}
}

// matchSectionHeader recognizes lines like "Subjective:", "- Objective: ..."
// or "**Assessment:** ..." and returns the section name plus any trailing
// text on the same line.
func matchSectionHeader(line string) (name, rest string, ok bool) {
	s := strings.TrimSpace(line)
	s = strings.TrimPrefix(s, "- ")
	s = strings.TrimPrefix(s, "* ")
	s = strings.ReplaceAll(s, "**", "")
	s = strings.TrimPrefix(s, "#")
	s = strings.TrimSpace(strings.TrimPrefix(s, "#"))

	idx := strings.Index(s, ":")
	if idx < 0 {
		return "", "", false
	}
	header := strings.ToLower(strings.TrimSpace(s[:idx]))
	for _, candidate := range sectionNames {
		if header == candidate {
			return candidate, strings.TrimSpace(s[idx+1:]), true
		}
	}
	return "", "", false
}

// cleanOutput strips markdown emphasis, truncates echoed prompt text and
// collapses runs of blank lines.
func cleanOutput(raw string) string {
	text := raw
	for _, marker := range junkMarkers {
		if idx := strings.Index(text, marker); idx >= 0 {
			text = text[:idx]
		}
	}

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.ReplaceAll(line, "**", "")
		line = strings.ReplaceAll(line, "__", "")
		lines = append(lines, strings.TrimRight(line, " \t"))
	}

	cleaned := strings.Join(lines, "\n")
	cleaned = blankRuns.ReplaceAllString(cleaned, "\n\n")
	return strings.TrimSpace(cleaned)
}
