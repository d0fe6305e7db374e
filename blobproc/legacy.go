package blobproc

import (
	"context"
	"os"
	"path/filepath"

	"github.com/ragdata-go/ragdata/parser"
)

// legacyParserAdapter routes legacy binary office formats (doc, xls,
// ppt) that have no native Go decoder: to LlamaParse's hosted
// conversion API when an API key is configured, otherwise to
// parser.LegacyParser, which fails with a message telling the caller
// to configure it. Registered at a lower priority than the OOXML
// parsers so a misidentified .xls that the native xlsx decoder already
// handles never reaches here.
type legacyParserAdapter struct {
	fallback parser.Parser
	remote   parser.Parser // nil when LlamaParse is not configured
}

// NewLegacyParser builds the doc/xls/ppt parser registration. cfg may
// be nil to run with LlamaParse disabled (every legacy file then fails
// with parser.LegacyParser's configuration error).
func NewLegacyParser(cfg *parser.LlamaParseConfig) Parser {
	a := &legacyParserAdapter{fallback: &parser.LegacyParser{}}
	if cfg != nil && cfg.APIKey != "" {
		a.remote = parser.NewLlamaParseParser(*cfg)
	}
	return a
}

func (a *legacyParserAdapter) Name() string                 { return "legacy" }
func (a *legacyParserAdapter) SupportedExtensions() []string { return []string{"doc", "xls", "ppt"} }
func (a *legacyParserAdapter) MimeTypes() []string {
	return []string{
		"application/msword",
		"application/vnd.ms-excel",
		"application/vnd.ms-powerpoint",
	}
}
func (a *legacyParserAdapter) Capabilities() []string { return []string{"text_extraction"} }

func (a *legacyParserAdapter) CanParse(filename string) bool {
	ext := extensionOf(filename)
	for _, e := range a.SupportedExtensions() {
		if e == ext {
			return true
		}
	}
	return false
}

func (a *legacyParserAdapter) ParseBlob(ctx context.Context, data []byte, filename string, metadata map[string]any) ([]Fragment, map[string]any, error) {
	inner := a.fallback
	method := "legacy_unconfigured"
	if a.remote != nil {
		inner = a.remote
		method = "llamaparse"
	}

	tmp, err := os.CreateTemp("", "blobproc-legacy-*"+filepath.Ext(filename))
	if err != nil {
		return nil, nil, err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := tmp.Write(data); err != nil {
		return nil, nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, nil, err
	}

	result, err := inner.Parse(ctx, tmp.Name())
	if err != nil {
		return nil, nil, err
	}
	return sectionsToFragments(result.Sections), map[string]any{"parse_method": method}, nil
}
