package blobproc

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ragdata-go/ragdata/ragerrors"
)

// Parser is the C1 parser contract (§4.1): name/extensions/mime types
// for discovery, CanParse for the routing glob check, and ParseBlob for
// the actual bytes-in, fragments-out conversion.
type Parser interface {
	Name() string
	SupportedExtensions() []string
	MimeTypes() []string
	Capabilities() []string
	CanParse(filename string) bool
	ParseBlob(ctx context.Context, data []byte, filename string, metadata map[string]any) ([]Fragment, map[string]any, error)
}

// Registration binds a Parser into a Chain with its routing
// configuration: include/exclude glob patterns and priority (lower
// number = tried first; ties broken by registration order, per §4.1).
type Registration struct {
	Parser          Parser
	IncludePatterns []string
	ExcludePatterns []string
	Priority        int
}

// Chain routes a file through its registered parsers in priority order
// and stops at the first one that succeeds.
type Chain struct {
	regs []Registration
}

// NewChain sorts regs by (priority, registration order) and returns a
// Chain ready to route files.
func NewChain(regs []Registration) *Chain {
	sorted := make([]Registration, len(regs))
	copy(sorted, regs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })
	return &Chain{regs: sorted}
}

// candidates returns the registrations whose patterns match filename,
// in chain order.
func (c *Chain) candidates(filename string) []Registration {
	var out []Registration
	for _, reg := range c.regs {
		if matches(filename, reg.IncludePatterns, reg.ExcludePatterns) {
			out = append(out, reg)
		}
	}
	return out
}

// AvailableParsers lists the names of every registered parser, for
// UnsupportedFileType's diagnostic payload.
func (c *Chain) AvailableParsers() []string {
	names := make([]string, len(c.regs))
	for i, r := range c.regs {
		names[i] = r.Parser.Name()
	}
	return names
}

// Route runs the §4.1 routing algorithm: filter by glob, try in
// priority order, stop at the first parser that returns ≥ 1 fragment.
func (c *Chain) Route(ctx context.Context, data []byte, filename string, metadata map[string]any) (*ParsedDocument, error) {
	candidates := c.candidates(filename)
	if len(candidates) == 0 {
		return nil, &ragerrors.UnsupportedFileType{
			Filename:         filename,
			Extension:        strings.TrimPrefix(filepath.Ext(filename), "."),
			AvailableParsers: c.AvailableParsers(),
		}
	}

	var tried []string
	var errs []error
	for _, reg := range candidates {
		fragments, docMeta, err := reg.Parser.ParseBlob(ctx, data, filename, metadata)
		tried = append(tried, reg.Parser.Name())
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if len(fragments) == 0 {
			continue
		}
		return &ParsedDocument{ParserName: reg.Parser.Name(), Fragments: fragments, Metadata: docMeta}, nil
	}

	return nil, &ragerrors.ParserFailed{Filename: filename, TriedParsers: tried, Errors: errs}
}

// matches implements the case-insensitive glob include/exclude rule
// shared by the parser chain and the extractor chain: no include
// patterns means match everything; any exclude match rejects first.
func matches(filename string, include, exclude []string) bool {
	lower := strings.ToLower(filename)
	for _, pat := range exclude {
		if ok, _ := filepath.Match(strings.ToLower(pat), lower); ok {
			return false
		}
	}
	if len(include) == 0 {
		return true
	}
	for _, pat := range include {
		if ok, _ := filepath.Match(strings.ToLower(pat), lower); ok {
			return true
		}
	}
	return false
}
