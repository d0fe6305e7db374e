// Package ragerrors defines the typed error kinds the data plane surfaces
// to its callers, per the wire-format contract in §6.7.
package ragerrors

import (
	"errors"
	"fmt"
)

// Kind tags a typed error for machine-readable dispatch (HTTP status
// mapping, batch-driver skip-vs-abort decisions, etc).
type Kind string

const (
	KindUnsupportedFileType  Kind = "unsupported_file_type"
	KindParserFailed         Kind = "parser_failed"
	KindStoreError           Kind = "store_error"
	KindInvalidArgument      Kind = "invalid_argument"
	KindTimeout              Kind = "timeout"
	KindNotFound             Kind = "not_found"
	KindContextLengthExceeded Kind = "context_length_exceeded"
)

// UnsupportedFileType is raised when no registered parser's include
// patterns match a filename.
type UnsupportedFileType struct {
	Filename         string
	Extension        string
	AvailableParsers []string
}

func (e *UnsupportedFileType) Error() string {
	return fmt.Sprintf("ragdata: unsupported file type %q (extension %q); available parsers: %v",
		e.Filename, e.Extension, e.AvailableParsers)
}

func (e *UnsupportedFileType) Kind() Kind { return KindUnsupportedFileType }

// ParserFailed is raised when every candidate parser raised an error.
type ParserFailed struct {
	Filename     string
	TriedParsers []string
	Errors       []error
}

func (e *ParserFailed) Error() string {
	return fmt.Sprintf("ragdata: parsing %q failed; tried parsers %v: %v", e.Filename, e.TriedParsers, e.Errors)
}

func (e *ParserFailed) Kind() Kind { return KindParserFailed }

func (e *ParserFailed) Unwrap() []error { return e.Errors }

// StoreError wraps a failure from the vector store abstraction.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("ragdata: store operation %q failed: %v", e.Op, e.Err)
}

func (e *StoreError) Kind() Kind  { return KindStoreError }
func (e *StoreError) Unwrap() error { return e.Err }

// InvalidArgument is raised for missing/malformed required parameters
// (e.g. query_text for reranked strategies, metadata_filter for
// MetadataFiltered).
type InvalidArgument struct {
	Parameter string
	Reason    string
}

func (e *InvalidArgument) Error() string {
	return fmt.Sprintf("ragdata: invalid argument %q: %s", e.Parameter, e.Reason)
}

func (e *InvalidArgument) Kind() Kind { return KindInvalidArgument }

// TimeoutError is raised when an outbound call exceeds its configured
// per-call timeout on a non-best-effort path.
type TimeoutError struct {
	Op      string
	Timeout string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("ragdata: operation %q timed out after %s", e.Op, e.Timeout)
}

func (e *TimeoutError) Kind() Kind { return KindTimeout }

// NotFound is raised when a named resource (strategy, model, dataset,
// database) cannot be resolved.
type NotFound struct {
	Resource string
	Name     string
}

func (e *NotFound) Error() string {
	return fmt.Sprintf("ragdata: %s %q not found", e.Resource, e.Name)
}

func (e *NotFound) Kind() Kind { return KindNotFound }

// ContextLengthExceeded is raised by LLM-backed retrieval strategies
// (MultiTurnRAG decomposition, CrossEncoderReranked) when the assembled
// prompt exceeds the model's context window.
type ContextLengthExceeded struct {
	Model     string
	TokenCount int
	Limit      int
}

func (e *ContextLengthExceeded) Error() string {
	return fmt.Sprintf("ragdata: model %q context length exceeded (%d > %d tokens)", e.Model, e.TokenCount, e.Limit)
}

func (e *ContextLengthExceeded) Kind() Kind { return KindContextLengthExceeded }

// typedError is implemented by all kinds above; used by KindOf.
type typedError interface {
	error
	Kind() Kind
}

// KindOf extracts the Kind tag from err, walking the unwrap chain. It
// returns "" if err does not carry a recognised kind.
func KindOf(err error) Kind {
	var te typedError
	if errors.As(err, &te) {
		return te.Kind()
	}
	return ""
}
