package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ragdata-go/ragdata"
	"github.com/ragdata-go/ragdata/ragerrors"
	"github.com/ragdata-go/ragdata/taskqueue"
	"github.com/ragdata-go/ragdata/vectorstore"
)

type handler struct {
	client *ragdata.Client
	source *diskSource
}

func newHandler(client *ragdata.Client, source *diskSource) *handler {
	return &handler{client: client, source: source}
}

// POST /ingest
// Accepts multipart file upload (stored content-addressed, then
// enqueued by its file_hash) or a JSON body naming file_hashes already
// known to the blob store.
func (h *handler) handleIngest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	var fileHashes []string
	var dataset string

	if err := r.ParseMultipartForm(100 << 20); err == nil && r.MultipartForm != nil {
		dataset = r.FormValue("dataset")
		for _, header := range r.MultipartForm.File["file"] {
			f, err := header.Open()
			if err != nil {
				writeError(w, http.StatusBadRequest, "failed to read uploaded file")
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to read uploaded file")
				slog.Error("reading uploaded file", "error", err)
				return
			}
			fileHash, err := h.source.put(data, header.Filename)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to store uploaded file")
				slog.Error("storing uploaded file", "error", err)
				return
			}
			fileHashes = append(fileHashes, fileHash)
		}
	}

	if dataset == "" {
		var req struct {
			Dataset         string         `json:"dataset"`
			FileHashes      []string       `json:"file_hashes,omitempty"`
			ParserOverrides map[string]any `json:"parser_overrides,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			dataset = req.Dataset
			fileHashes = append(fileHashes, req.FileHashes...)
		}
	}

	if dataset == "" {
		writeError(w, http.StatusBadRequest, "dataset is required")
		return
	}

	taskID, err := h.client.Ingest(ctx, dataset, fileHashes, nil)
	if err != nil {
		writeCoreAPIError(w, "ingest failed", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"task_id": taskID})
}

// GET /tasks/{id}
func (h *handler) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	record, err := h.client.Queue.Status(r.Context(), taskqueue.TaskID(id))
	if err != nil {
		writeCoreAPIError(w, "task lookup failed", err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// POST /preview
func (h *handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	var req struct {
		Database               string         `json:"database"`
		DataProcessingStrategy string         `json:"data_processing_strategy_name"`
		FileHash               string         `json:"file_hash,omitempty"`
		FileContent            string         `json:"file_content,omitempty"`
		Filename                string         `json:"filename,omitempty"`
		Metadata                map[string]any `json:"metadata,omitempty"`
		Overrides                map[string]any `json:"overrides,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	result, err := h.client.Preview(ctx, req.Database, req.DataProcessingStrategy, req.FileHash, []byte(req.FileContent), req.Filename, req.Metadata, req.Overrides)
	if err != nil {
		writeCoreAPIError(w, "preview failed", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// DELETE /datasets/{dataset}/files/{hash}
func (h *handler) handleDeleteFileChunks(w http.ResponseWriter, r *http.Request) {
	dataset := r.PathValue("dataset")
	fileHash := r.PathValue("hash")

	deleted, err := h.client.DeleteFileChunks(r.Context(), dataset, fileHash)
	if err != nil {
		writeCoreAPIError(w, "delete failed", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"deleted_count": deleted})
}

// DELETE /datasets/{dataset}
func (h *handler) handleDeleteDatasetChunks(w http.ResponseWriter, r *http.Request) {
	dataset := r.PathValue("dataset")

	result, err := h.client.DeleteDatasetChunks(r.Context(), dataset)
	if err != nil {
		writeCoreAPIError(w, "clear dataset failed", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// POST /search
func (h *handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	var req struct {
		Database           string                     `json:"database"`
		Query              string                     `json:"query"`
		TopK               int                        `json:"top_k,omitempty"`
		MinScore           float64                    `json:"min_score,omitempty"`
		MetadataFilter     vectorstore.MetadataFilter `json:"metadata_filter,omitempty"`
		RetrievalStrategy  string                     `json:"retrieval_strategy,omitempty"`
		ReturnRawDocuments bool                       `json:"return_raw_documents,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	results, err := h.client.Search(ctx, req.Database, req.Query, req.TopK, ragdata.SearchOptions{
		MinScore:           req.MinScore,
		MetadataFilter:     req.MetadataFilter,
		RetrievalStrategy:  req.RetrievalStrategy,
		ReturnRawDocuments: req.ReturnRawDocuments,
	})
	if err != nil {
		writeCoreAPIError(w, "search failed", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": fmt.Sprintf("%s", msg)})
}

// writeCoreAPIError maps a Core API error to an HTTP status using its
// ragerrors kind, falling back to 500 for anything untyped — the
// wire-level counterpart of §6.7's typed error kinds.
func writeCoreAPIError(w http.ResponseWriter, logMsg string, err error) {
	kind := ragerrors.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case ragerrors.KindNotFound:
		status = http.StatusNotFound
	case ragerrors.KindInvalidArgument, ragerrors.KindUnsupportedFileType:
		status = http.StatusBadRequest
	case ragerrors.KindTimeout:
		status = http.StatusGatewayTimeout
	}
	if err == ragdata.ErrEmptyFileHashes || err == ragdata.ErrNoFileContent || err == ragdata.ErrQueueRequired {
		status = http.StatusBadRequest
	}

	slog.Error(logMsg, "error", err, "kind", string(kind))
	writeJSON(w, status, map[string]string{"error": err.Error(), "kind": string(kind)})
}
