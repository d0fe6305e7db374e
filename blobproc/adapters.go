package blobproc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ragdata-go/ragdata/llm"
	"github.com/ragdata-go/ragdata/parser"
)

// pathParserAdapter bridges the path-based parser.Parser
// implementations (PDF, DOCX, XLSX, PPTX) into the bytes-based Parser
// contract this chain requires: the format-decoding logic in
// parser/pdf.go, parser/docx.go, parser/xlsx.go and parser/pptx.go is
// reused unchanged (those libraries read from a path via zip.OpenReader
// / pdf.Open / excelize.OpenFile), bridged through a short-lived
// temp file per call.
type pathParserAdapter struct {
	name         string
	extensions   []string
	mimeTypes    []string
	capabilities []string
	inner        parser.Parser
}

func (a *pathParserAdapter) Name() string                 { return a.name }
func (a *pathParserAdapter) SupportedExtensions() []string { return a.extensions }
func (a *pathParserAdapter) MimeTypes() []string           { return a.mimeTypes }
func (a *pathParserAdapter) Capabilities() []string        { return a.capabilities }

func (a *pathParserAdapter) CanParse(filename string) bool {
	ext := extensionOf(filename)
	for _, e := range a.extensions {
		if e == ext {
			return true
		}
	}
	return false
}

func (a *pathParserAdapter) ParseBlob(ctx context.Context, data []byte, filename string, _ map[string]any) ([]Fragment, map[string]any, error) {
	tmp, err := os.CreateTemp("", "blobproc-*"+filepath.Ext(filename))
	if err != nil {
		return nil, nil, fmt.Errorf("creating temp file for %s: %w", a.name, err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := tmp.Write(data); err != nil {
		return nil, nil, fmt.Errorf("writing temp file for %s: %w", a.name, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, nil, fmt.Errorf("closing temp file for %s: %w", a.name, err)
	}

	result, err := a.inner.Parse(ctx, tmp.Name())
	if err != nil {
		return nil, nil, err
	}
	return sectionsToFragments(result.Sections), map[string]any{"parse_method": result.Method}, nil
}

func sectionsToFragments(sections []parser.Section) []Fragment {
	var out []Fragment
	for _, s := range sections {
		out = append(out, sectionToFragment(s)...)
	}
	return out
}

func sectionToFragment(s parser.Section) []Fragment {
	meta := map[string]any{"type": s.Type}
	if s.PageNumber > 0 {
		meta["page_number"] = s.PageNumber
	}
	for k, v := range s.Metadata {
		meta[k] = v
	}

	frags := []Fragment{{SectionLabel: s.Heading, Text: s.Content, Metadata: meta}}
	for _, child := range s.Children {
		frags = append(frags, sectionToFragment(child)...)
	}
	return frags
}

func extensionOf(filename string) string {
	ext := filepath.Ext(filename)
	if len(ext) > 0 && ext[0] == '.' {
		ext = ext[1:]
	}
	return ext
}

// NewPDFParser adapts parser.PDFParser (ledongthuc/pdf backed) into the
// C1 contract. When vision is non-nil, a document whose structural
// complexity score (see parser.DetectComplexity) reaches
// parser.ComplexityScore.IsComplex's threshold is sent whole to
// parser.PDFVisionParser instead of the plain text extraction.
// DetectComplexity only detects tables and multi-column layout; images
// and font variety are not measured, so escalation happens only when a
// document shows both tables and multiple columns.
func NewPDFParser(vision llm.VisionProvider) Parser {
	plain := &pathParserAdapter{
		name: "pdf", extensions: []string{"pdf"}, mimeTypes: []string{"application/pdf"},
		capabilities: []string{"text_extraction", "page_extraction", "image_extraction"},
		inner:        &parser.PDFParser{},
	}
	if vision == nil {
		return plain
	}
	return &visionEscalatingPDFParser{
		plain: plain,
		vision: &pathParserAdapter{
			name: "pdf", extensions: []string{"pdf"}, mimeTypes: []string{"application/pdf"},
			capabilities: []string{"text_extraction", "page_extraction", "image_extraction"},
			inner:        parser.NewPDFVisionParser(vision),
		},
	}
}

// visionEscalatingPDFParser runs parser.DetectComplexity against the
// blob before deciding which underlying adapter handles it: simple
// PDFs take the cheap plain-text path, structurally complex ones
// (tables together with multi-column layout) go to the vision model.
type visionEscalatingPDFParser struct {
	plain  *pathParserAdapter
	vision *pathParserAdapter
}

func (p *visionEscalatingPDFParser) Name() string                 { return p.plain.Name() }
func (p *visionEscalatingPDFParser) SupportedExtensions() []string { return p.plain.SupportedExtensions() }
func (p *visionEscalatingPDFParser) MimeTypes() []string           { return p.plain.MimeTypes() }
func (p *visionEscalatingPDFParser) Capabilities() []string {
	return append(append([]string{}, p.plain.Capabilities()...), "vision_extraction")
}
func (p *visionEscalatingPDFParser) CanParse(filename string) bool { return p.plain.CanParse(filename) }

func (p *visionEscalatingPDFParser) ParseBlob(ctx context.Context, data []byte, filename string, metadata map[string]any) ([]Fragment, map[string]any, error) {
	tmp, err := os.CreateTemp("", "blobproc-complexity-*.pdf")
	if err != nil {
		return nil, nil, fmt.Errorf("creating temp file for complexity detection: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, nil, fmt.Errorf("writing temp file for complexity detection: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, nil, fmt.Errorf("closing temp file for complexity detection: %w", err)
	}

	score, err := parser.DetectComplexity(tmp.Name())
	if err != nil || !score.IsComplex() {
		return p.plain.ParseBlob(ctx, data, filename, metadata)
	}
	return p.vision.ParseBlob(ctx, data, filename, metadata)
}

// NewDOCXParser adapts parser.DOCXParser.
func NewDOCXParser() Parser {
	return &pathParserAdapter{
		name: "docx", extensions: []string{"docx"},
		mimeTypes:    []string{"application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
		capabilities: []string{"text_extraction", "image_extraction"},
		inner:        &parser.DOCXParser{},
	}
}

// NewXLSXParser adapts parser.XLSXParser (xuri/excelize backed).
func NewXLSXParser() Parser {
	return &pathParserAdapter{
		name: "excel", extensions: []string{"xlsx", "xls"},
		mimeTypes:    []string{"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
		capabilities: []string{"table_extraction"},
		inner:        &parser.XLSXParser{},
	}
}

// NewPPTXParser adapts parser.PPTXParser.
func NewPPTXParser() Parser {
	return &pathParserAdapter{
		name: "pptx", extensions: []string{"pptx"},
		mimeTypes:    []string{"application/vnd.openxmlformats-officedocument.presentationml.presentation"},
		capabilities: []string{"text_extraction"},
		inner:        &parser.PPTXParser{},
	}
}
