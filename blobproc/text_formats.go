package blobproc

import (
	"context"
	"encoding/csv"
	"fmt"
	"strings"
)

// TextParser handles plain text files natively in memory; unlike PDF/
// DOCX/XLSX it needs no path-based library, so it implements Parser
// directly rather than going through pathParserAdapter.
type TextParser struct{}

func (TextParser) Name() string                  { return "text" }
func (TextParser) SupportedExtensions() []string { return []string{"txt"} }
func (TextParser) MimeTypes() []string           { return []string{"text/plain"} }
func (TextParser) Capabilities() []string        { return []string{"text_extraction"} }

func (t TextParser) CanParse(filename string) bool {
	return extensionOf(filename) == "txt"
}

func (t TextParser) ParseBlob(_ context.Context, data []byte, filename string, _ map[string]any) ([]Fragment, map[string]any, error) {
	content := string(data)
	if content == "" {
		return nil, nil, nil
	}
	return []Fragment{{SectionLabel: filename, Text: content}}, map[string]any{"parse_method": "native"}, nil
}

// MarkdownParser passes markdown through as a single fragment; heading
// splitting is the Chunker's "sections" strategy's job (§4.1: "parsers
// MAY produce pre-chunked fragments... the Chunker is then either a
// no-op or a secondary re-split").
type MarkdownParser struct{}

func (MarkdownParser) Name() string                  { return "markdown" }
func (MarkdownParser) SupportedExtensions() []string { return []string{"md", "markdown"} }
func (MarkdownParser) MimeTypes() []string           { return []string{"text/markdown"} }
func (MarkdownParser) Capabilities() []string        { return []string{"text_extraction", "heading_extraction"} }

func (m MarkdownParser) CanParse(filename string) bool {
	ext := extensionOf(filename)
	return ext == "md" || ext == "markdown"
}

func (m MarkdownParser) ParseBlob(_ context.Context, data []byte, filename string, _ map[string]any) ([]Fragment, map[string]any, error) {
	content := string(data)
	if content == "" {
		return nil, nil, nil
	}
	return []Fragment{{SectionLabel: filename, Text: content, Metadata: map[string]any{"type": "markdown"}}},
		map[string]any{"parse_method": "native"}, nil
}

// CSVParser renders each row as a pipe-delimited line, matching the
// table rendering xlsx.go uses for spreadsheet rows.
type CSVParser struct{}

func (CSVParser) Name() string                  { return "csv" }
func (CSVParser) SupportedExtensions() []string { return []string{"csv"} }
func (CSVParser) MimeTypes() []string           { return []string{"text/csv"} }
func (CSVParser) Capabilities() []string        { return []string{"table_extraction"} }

func (c CSVParser) CanParse(filename string) bool {
	return extensionOf(filename) == "csv"
}

func (c CSVParser) ParseBlob(_ context.Context, data []byte, filename string, _ map[string]any) ([]Fragment, map[string]any, error) {
	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parsing CSV: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}

	var content strings.Builder
	for _, row := range rows {
		content.WriteString("| " + strings.Join(row, " | ") + " |\n")
	}

	return []Fragment{{
		SectionLabel: filename,
		Text:         content.String(),
		Metadata:     map[string]any{"type": "table", "row_count": len(rows)},
	}}, map[string]any{"parse_method": "native"}, nil
}
