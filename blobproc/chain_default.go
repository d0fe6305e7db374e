package blobproc

import (
	"github.com/ragdata-go/ragdata/llm"
	"github.com/ragdata-go/ragdata/parser"
)

// Options configures the optional parser registrations that need an
// external collaborator: LlamaParse for legacy binary office formats,
// and a vision LLM for structurally complex PDF pages. The zero value
// disables both — legacy formats fail with a configuration error and
// every PDF takes the plain-text path.
type Options struct {
	LlamaParse *parser.LlamaParseConfig
	Vision     llm.VisionProvider
}

// DefaultChain wires every required parser capability (§4.1: PDF, DOCX,
// Markdown, plain text, CSV, Excel, MSG, universal) with the priorities
// a typical data-processing strategy would configure: specific-format
// parsers before the universal long-tail converter. Equivalent to
// DefaultChainWithOptions(Options{}).
func DefaultChain() *Chain {
	return DefaultChainWithOptions(Options{})
}

// DefaultChainWithOptions is DefaultChain with the legacy/vision
// parsers enabled per opts.
func DefaultChainWithOptions(opts Options) *Chain {
	return NewChain([]Registration{
		{Parser: NewPDFParser(opts.Vision), IncludePatterns: []string{"*.pdf"}, Priority: 10},
		{Parser: NewDOCXParser(), IncludePatterns: []string{"*.docx"}, Priority: 10},
		{Parser: NewXLSXParser(), IncludePatterns: []string{"*.xlsx", "*.xls"}, Priority: 10},
		{Parser: NewPPTXParser(), IncludePatterns: []string{"*.pptx"}, Priority: 10},
		{Parser: NewLegacyParser(opts.LlamaParse), IncludePatterns: []string{"*.doc", "*.xls", "*.ppt"}, Priority: 20},
		{Parser: MSGParser{}, IncludePatterns: []string{"*.msg"}, Priority: 10},
		{Parser: MarkdownParser{}, IncludePatterns: []string{"*.md", "*.markdown"}, Priority: 10},
		{Parser: CSVParser{}, IncludePatterns: []string{"*.csv"}, Priority: 10},
		{Parser: TextParser{}, IncludePatterns: []string{"*.txt"}, Priority: 10},
		{Parser: UniversalParser{}, IncludePatterns: []string{"*.html", "*.htm", "*.xml", "*.rtf"}, Priority: 50},
	})
}
