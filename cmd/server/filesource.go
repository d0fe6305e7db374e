package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ragdata-go/ragdata/lifecycle"
)

// diskSource is a content-addressed ingest.Source backed by a local
// directory: blobs are stored under their own file_hash as filename,
// alongside a small sidecar file carrying the original filename. put is
// how the ingest HTTP handler hands the server a newly uploaded file
// before enqueuing its file_hash; the preview handler does not use it.
type diskSource struct {
	dir string
}

func newDiskSource(dir string) (*diskSource, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating blob dir: %w", err)
	}
	return &diskSource{dir: dir}, nil
}

func (s *diskSource) blobPath(fileHash string) string {
	return filepath.Join(s.dir, filepath.Base(fileHash)+".blob")
}

func (s *diskSource) namePath(fileHash string) string {
	return filepath.Join(s.dir, filepath.Base(fileHash)+".name")
}

// put stores data under its own content hash and returns the
// file_hash the caller should pass to Ingest/Preview.
func (s *diskSource) put(data []byte, filename string) (string, error) {
	fileHash := lifecycle.HashBytes(data)
	if err := os.WriteFile(s.blobPath(fileHash), data, 0o644); err != nil {
		return "", fmt.Errorf("writing blob: %w", err)
	}
	if err := os.WriteFile(s.namePath(fileHash), []byte(filename), 0o644); err != nil {
		return "", fmt.Errorf("writing blob name: %w", err)
	}
	return fileHash, nil
}

func (s *diskSource) Load(_ context.Context, fileHash string) ([]byte, string, map[string]any, error) {
	data, err := os.ReadFile(s.blobPath(fileHash))
	if err != nil {
		return nil, "", nil, fmt.Errorf("loading blob %q: %w", fileHash, err)
	}
	name, err := os.ReadFile(s.namePath(fileHash))
	if err != nil {
		return nil, "", nil, fmt.Errorf("loading blob name %q: %w", fileHash, err)
	}
	return data, string(name), map[string]any{"file_hash": fileHash}, nil
}
