// Package sqlitevec is a vectorstore.Store backend over SQLite plus
// the sqlite-vec extension (connection setup, migration style, vec0
// usage).
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/ragdata-go/ragdata/ragerrors"
	"github.com/ragdata-go/ragdata/vectorstore"
)

func init() {
	sqlite_vec.Auto()
}

// Store is a single-collection sqlite-vec backed vectorstore.Store.
// The collection is namespaced by (databaseName, projectDir) and
// lives under <projectDir>/lf_data/stores/<databaseName> per §4.6.
type Store struct {
	db           *sql.DB
	embeddingDim int
	path         string
}

// Path returns the persistence layout §4.6 requires:
// <projectDir>/lf_data/stores/<databaseName>.
func Path(projectDir, databaseName string) string {
	return filepath.Join(projectDir, "lf_data", "stores", databaseName)
}

// Open creates or reuses the SQLite database backing databaseName
// under projectDir, with a vector column sized to embeddingDim.
func Open(projectDir, databaseName string, embeddingDim int) (*Store, error) {
	dir := Path(projectDir, databaseName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &ragerrors.StoreError{Op: "open", Err: fmt.Errorf("creating store directory: %w", err)}
	}
	dbPath := filepath.Join(dir, "collection.db")

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, &ragerrors.StoreError{Op: "open", Err: err}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &ragerrors.StoreError{Op: "open", Err: err}
	}

	if _, err := db.Exec(schemaSQL(embeddingDim)); err != nil {
		db.Close()
		return nil, &ragerrors.StoreError{Op: "schema", Err: err}
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &Store{db: db, embeddingDim: embeddingDim, path: dbPath}, nil
}

func schemaSQL(embeddingDim int) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS chunks (
    rowid INTEGER PRIMARY KEY,
    id TEXT NOT NULL UNIQUE,
    content TEXT NOT NULL,
    source TEXT,
    metadata TEXT NOT NULL DEFAULT '{}',
    has_embedding INTEGER NOT NULL DEFAULT 0
);

CREATE VIRTUAL TABLE IF NOT EXISTS vec_chunks USING vec0(
    embedding float[%d]
);

CREATE INDEX IF NOT EXISTS idx_chunks_id ON chunks(id);
`, embeddingDim)
}

func (s *Store) Close() error { return s.db.Close() }

// AddDocuments is all-or-nothing: it runs inside a single transaction,
// so a mid-batch failure rolls back every insert from this call
// (resolving the Open Question in §9 about partial-failure semantics).
func (s *Store) AddDocuments(ctx context.Context, chunks []vectorstore.Chunk) ([]string, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &ragerrors.StoreError{Op: "add_documents", Err: err}
	}
	defer tx.Rollback()

	var inserted []string
	for _, c := range chunks {
		var exists int
		if err := tx.QueryRowContext(ctx, "SELECT 1 FROM chunks WHERE id = ?", c.ID).Scan(&exists); err == nil {
			continue // already present — silently skipped per §4.6
		} else if err != sql.ErrNoRows {
			return nil, &ragerrors.StoreError{Op: "add_documents", Err: err}
		}

		metaJSON, err := json.Marshal(c.Metadata)
		if err != nil {
			return nil, &ragerrors.StoreError{Op: "add_documents", Err: err}
		}

		hasEmbedding := 0
		if len(c.Embedding) > 0 {
			hasEmbedding = 1
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO chunks (id, content, source, metadata, has_embedding) VALUES (?, ?, ?, ?, ?)`,
			c.ID, c.Content, c.Source, string(metaJSON), hasEmbedding)
		if err != nil {
			return nil, &ragerrors.StoreError{Op: "add_documents", Err: err}
		}
		rowID, err := res.LastInsertId()
		if err != nil {
			return nil, &ragerrors.StoreError{Op: "add_documents", Err: err}
		}

		if hasEmbedding == 1 {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO vec_chunks (rowid, embedding) VALUES (?, ?)`,
				rowID, serializeFloat32(c.Embedding)); err != nil {
				return nil, &ragerrors.StoreError{Op: "add_documents", Err: err}
			}
		}
		inserted = append(inserted, c.ID)
	}

	if err := tx.Commit(); err != nil {
		return nil, &ragerrors.StoreError{Op: "add_documents", Err: err}
	}
	return inserted, nil
}

func (s *Store) Search(ctx context.Context, queryEmbedding []float32, topK int, filter vectorstore.MetadataFilter) ([]vectorstore.Scored, error) {
	if topK <= 0 {
		topK = 10
	}

	where, args := filterClause(filter)
	query := fmt.Sprintf(`
		SELECT c.id, c.content, c.source, c.metadata, v.distance
		FROM vec_chunks v
		JOIN chunks c ON c.rowid = v.rowid
		WHERE v.embedding MATCH ? AND k = ?%s
		ORDER BY v.distance
	`, where)

	allArgs := append([]any{serializeFloat32(queryEmbedding), topK}, args...)
	rows, err := s.db.QueryContext(ctx, query, allArgs...)
	if err != nil {
		return nil, &ragerrors.StoreError{Op: "search", Err: err}
	}
	defer rows.Close()

	var out []vectorstore.Scored
	for rows.Next() {
		var chunk vectorstore.Chunk
		var metaJSON string
		var distance float64
		if err := rows.Scan(&chunk.ID, &chunk.Content, &chunk.Source, &metaJSON, &distance); err != nil {
			return nil, &ragerrors.StoreError{Op: "search", Err: err}
		}
		chunk.Metadata = decodeMetadata(metaJSON)
		out = append(out, vectorstore.Scored{Chunk: chunk, Score: 1.0 - distance})
	}
	return out, rows.Err()
}

func (s *Store) GetDocumentsByMetadata(ctx context.Context, filter vectorstore.MetadataFilter) ([]vectorstore.Chunk, error) {
	where, args := filterClause(filter)
	query := "SELECT id, content, source, metadata FROM chunks WHERE 1=1" + where
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &ragerrors.StoreError{Op: "get_documents_by_metadata", Err: err}
	}
	defer rows.Close()

	var out []vectorstore.Chunk
	for rows.Next() {
		var chunk vectorstore.Chunk
		var metaJSON string
		if err := rows.Scan(&chunk.ID, &chunk.Content, &chunk.Source, &metaJSON); err != nil {
			return nil, &ragerrors.StoreError{Op: "get_documents_by_metadata", Err: err}
		}
		chunk.Metadata = decodeMetadata(metaJSON)
		out = append(out, chunk)
	}
	return out, rows.Err()
}

func (s *Store) DeleteDocuments(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &ragerrors.StoreError{Op: "delete_documents", Err: err}
	}
	defer tx.Rollback()

	placeholders := repeatPlaceholders(len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM vec_chunks WHERE rowid IN (SELECT rowid FROM chunks WHERE id IN (%s))`, placeholders),
		args...); err != nil {
		return 0, &ragerrors.StoreError{Op: "delete_documents", Err: err}
	}

	res, err := tx.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM chunks WHERE id IN (%s)`, placeholders), args...)
	if err != nil {
		return 0, &ragerrors.StoreError{Op: "delete_documents", Err: err}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, &ragerrors.StoreError{Op: "delete_documents", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return 0, &ragerrors.StoreError{Op: "delete_documents", Err: err}
	}
	return int(affected), nil
}

func (s *Store) DeleteCollection(ctx context.Context) (bool, error) {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM vec_chunks"); err != nil {
		return false, &ragerrors.StoreError{Op: "delete_collection", Err: err}
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return false, &ragerrors.StoreError{Op: "delete_collection", Err: err}
	}
	return true, nil
}

func (s *Store) ListDocuments(ctx context.Context, limit, offset int, includeContent bool) ([]vectorstore.Chunk, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&total); err != nil {
		return nil, 0, &ragerrors.StoreError{Op: "list_documents", Err: err}
	}

	col := "content"
	if !includeContent {
		col = "''"
	}
	if limit <= 0 {
		limit = total
	}
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT id, %s, source, metadata FROM chunks ORDER BY rowid LIMIT ? OFFSET ?", col),
		limit, offset)
	if err != nil {
		return nil, 0, &ragerrors.StoreError{Op: "list_documents", Err: err}
	}
	defer rows.Close()

	var out []vectorstore.Chunk
	for rows.Next() {
		var chunk vectorstore.Chunk
		var metaJSON string
		if err := rows.Scan(&chunk.ID, &chunk.Content, &chunk.Source, &metaJSON); err != nil {
			return nil, 0, &ragerrors.StoreError{Op: "list_documents", Err: err}
		}
		chunk.Metadata = decodeMetadata(metaJSON)
		out = append(out, chunk)
	}
	return out, total, rows.Err()
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func filterClause(filter vectorstore.MetadataFilter) (string, []any) {
	if len(filter) == 0 {
		return "", nil
	}
	var sb strings.Builder
	var args []any
	for k, v := range filter {
		sb.WriteString(fmt.Sprintf(" AND json_extract(metadata, '$.%s') = ?", k))
		args = append(args, v)
	}
	return sb.String(), args
}

func decodeMetadata(raw string) map[string]any {
	if raw == "" {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return map[string]any{}
	}
	return m
}

func repeatPlaceholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "?"
	}
	return strings.Join(parts, ", ")
}

// serializeFloat32 converts a float32 slice to little-endian bytes for
// sqlite-vec.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

var _ vectorstore.Store = (*Store)(nil)
