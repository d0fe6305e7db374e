package extractor

import (
	"regexp"
	"strings"
)

// ---------------------------------------------------------------------------
// Heading detection, generalized from document-specific framing to
// the general headings/links/tables metadata the extractor chain
// produces.
// ---------------------------------------------------------------------------

var headingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\s*(\d+\.)+(\d+)?\s+\S`),
	regexp.MustCompile(`^[A-Z][A-Z\s]{4,}$`),
	regexp.MustCompile(`^#{1,6}\s+\S`),
	regexp.MustCompile(`(?i)^(appendix|annex|schedule|exhibit)\s+[A-Z0-9]`),
	regexp.MustCompile(`(?i)^chapter\s+[IVXLCDM\d]+`),
}

// IsHeading reports whether a line of text looks like a heading.
func IsHeading(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	for _, re := range headingPatterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Cross-reference / link detection
// ---------------------------------------------------------------------------

var urlPattern = regexp.MustCompile(`https?://[^\s)\]"']+`)

var crossRefPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bsection\s+(\d+(?:\.\d+)*)`),
	regexp.MustCompile(`(?i)\bchapter\s+(\d+|[IVXLCDM]+)`),
	regexp.MustCompile(`(?i)\bappendix\s+([A-Z0-9]+)`),
	regexp.MustCompile(`(?i)\bfigure\s+(\d+(?:\.\d+)*)`),
	regexp.MustCompile(`(?i)\btable\s+(\d+(?:\.\d+)*)`),
}

// DetectLinks returns every hyperlink and structural cross-reference
// (e.g. "section 4.5", "figure 2") found in text.
func DetectLinks(text string) []string {
	var links []string
	links = append(links, urlPattern.FindAllString(text, -1)...)
	for _, re := range crossRefPatterns {
		links = append(links, re.FindAllString(text, -1)...)
	}
	return links
}

// ---------------------------------------------------------------------------
// Table detection
// ---------------------------------------------------------------------------

// DetectTables reports whether text contains at least one tabular
// block: two or more lines containing a pipe, or two or more lines with
// at least two tabs each. A dashed separator row alone is not detected.
func DetectTables(text string) bool {
	lines := strings.Split(text, "\n")
	if len(lines) >= 2 {
		pipeCount := 0
		for _, l := range lines {
			if strings.Contains(l, "|") {
				pipeCount++
			}
		}
		if pipeCount >= 2 {
			return true
		}
	}
	tabLines := 0
	for _, l := range lines {
		if strings.Count(l, "\t") >= 2 {
			tabLines++
		}
	}
	return tabLines >= 2
}

// ---------------------------------------------------------------------------
// StructureExtractor
// ---------------------------------------------------------------------------

// StructureExtractor populates the `headings`, `links`, and `tables`
// metadata keys named in §3's required-metadata list.
type StructureExtractor struct{}

func NewStructureExtractor() *StructureExtractor { return &StructureExtractor{} }

func (e *StructureExtractor) Name() string { return "structure" }

func (e *StructureExtractor) Extract(chunk Chunk) (map[string]any, error) {
	var headings []string
	for _, line := range strings.Split(chunk.Content, "\n") {
		if IsHeading(line) {
			headings = append(headings, strings.TrimSpace(line))
		}
	}
	return map[string]any{
		"headings": headings,
		"links":    DetectLinks(chunk.Content),
		"tables":   DetectTables(chunk.Content),
	}, nil
}
