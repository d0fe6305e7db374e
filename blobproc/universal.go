package blobproc

import (
	"context"
	"fmt"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// UniversalParser backs the long-tail "document-to-markdown converter"
// format capability §4.1 requires: any HTML-ish or rich-text input gets
// converted to markdown, which the Chunker's "sections" strategy can
// then split on. DefaultChain registers it for *.html, *.htm, *.xml and
// *.rtf at priority 50, after the format-specific parsers; it is not
// used for files whose extension no parser pattern matches.
type UniversalParser struct{}

func (UniversalParser) Name() string                  { return "universal" }
func (UniversalParser) SupportedExtensions() []string { return []string{"html", "htm", "xml", "rtf"} }
func (UniversalParser) MimeTypes() []string           { return []string{"text/html", "application/xml", "application/rtf"} }
func (UniversalParser) Capabilities() []string        { return []string{"text_extraction", "markdown_conversion"} }

func (UniversalParser) CanParse(filename string) bool {
	switch extensionOf(filename) {
	case "html", "htm", "xml", "rtf":
		return true
	default:
		return false
	}
}

func (UniversalParser) ParseBlob(_ context.Context, data []byte, filename string, _ map[string]any) ([]Fragment, map[string]any, error) {
	markdown, err := htmltomarkdown.ConvertString(string(data))
	if err != nil {
		return nil, nil, fmt.Errorf("converting %s to markdown: %w", filename, err)
	}
	if markdown == "" {
		return nil, nil, nil
	}
	return []Fragment{{SectionLabel: filename, Text: markdown, Metadata: map[string]any{"type": "markdown"}}},
		map[string]any{"parse_method": "universal"}, nil
}
