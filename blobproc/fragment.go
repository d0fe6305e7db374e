// Package blobproc implements the Parser Registry & Chain (C1) and the
// Blob Processor (C5): converting raw file bytes into stamped,
// store-ready chunks. Parser format backends (parser/pdf.go,
// parser/docx.go, parser/xlsx.go, parser/pptx.go) register into a
// glob-match + priority-sorted chain rather than a single
// extension-keyed map.
package blobproc

// Fragment is one unit of text a Parser produces from a document: a
// whole document, a page, a sheet, an email section, or a markdown
// heading's body, depending on the format.
type Fragment struct {
	SectionLabel string
	Text         string
	Metadata     map[string]any
}

// ParsedDocument is the full output of routing a file through the
// parser chain: the winning parser's fragments plus document-level
// metadata it attached (e.g. detected encoding, page count).
type ParsedDocument struct {
	ParserName string
	Fragments  []Fragment
	Metadata   map[string]any
}
