// Package qdrant is a vectorstore.Store backend over a remote Qdrant
// server, grounded on the point/payload/filter conventions used by the
// qdrant/go-client examples in the pack (collection upsert, scroll-based
// listing, field-match filters).
package qdrant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	qc "github.com/qdrant/go-client/qdrant"

	"github.com/ragdata-go/ragdata/ragerrors"
	"github.com/ragdata-go/ragdata/vectorstore"
)

// Store is a single-collection Qdrant backed vectorstore.Store. The
// collection is namespaced by (databaseName, projectDir): the caller
// picks a collection name unique to that pair, typically
// CollectionName(projectDir, databaseName).
type Store struct {
	client         *qc.Client
	collectionName string
}

// CollectionName derives a stable Qdrant collection name for a
// (projectDir, databaseName) pair, mirroring the filesystem namespacing
// sqlitevec.Path uses for its on-disk layout.
func CollectionName(projectDir, databaseName string) string {
	return fmt.Sprintf("ragdata_%x_%s", hashPath(projectDir), databaseName)
}

// Open connects to host:port and ensures the named collection exists
// with a vector size of embeddingDim and cosine distance.
func Open(ctx context.Context, host string, port int, apiKey string, useTLS bool, collectionName string, embeddingDim int) (*Store, error) {
	client, err := qc.NewClient(&qc.Config{
		Host:                   host,
		Port:                   port,
		APIKey:                 apiKey,
		UseTLS:                 useTLS,
		SkipCompatibilityCheck: true,
	})
	if err != nil {
		return nil, &ragerrors.StoreError{Op: "open", Err: err}
	}

	s := &Store{client: client, collectionName: collectionName}
	if err := s.ensureCollection(ctx, embeddingDim); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureCollection(ctx context.Context, embeddingDim int) error {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return &ragerrors.StoreError{Op: "ensure_collection", Err: err}
	}
	for _, name := range collections {
		if name == s.collectionName {
			return nil
		}
	}
	err = s.client.CreateCollection(ctx, &qc.CreateCollection{
		CollectionName: s.collectionName,
		VectorsConfig: qc.NewVectorsConfig(&qc.VectorParams{
			Size:     uint64(embeddingDim),
			Distance: qc.Distance_Cosine,
		}),
	})
	if err != nil {
		return &ragerrors.StoreError{Op: "ensure_collection", Err: err}
	}
	return nil
}

func (s *Store) Close() error { return nil }

// AddDocuments is all-or-nothing: chunks already present (by ID) are
// skipped via a pre-check batch Get, and the remainder is upserted in a
// single call so a rejected point fails the whole batch.
func (s *Store) AddDocuments(ctx context.Context, chunks []vectorstore.Chunk) ([]string, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	ids := make([]*qc.PointId, len(chunks))
	for i, c := range chunks {
		ids[i] = pointID(c.ID)
	}
	existing, err := s.client.Get(ctx, &qc.GetPoints{
		CollectionName: s.collectionName,
		Ids:            ids,
	})
	if err != nil {
		return nil, &ragerrors.StoreError{Op: "add_documents", Err: err}
	}
	present := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		present[pointIDToString(p.GetId())] = struct{}{}
	}

	var points []*qc.PointStruct
	var inserted []string
	for _, c := range chunks {
		if _, ok := present[c.ID]; ok {
			continue
		}
		points = append(points, chunkToPoint(c))
		inserted = append(inserted, c.ID)
	}
	if len(points) == 0 {
		return nil, nil
	}

	if _, err := s.client.Upsert(ctx, &qc.UpsertPoints{
		CollectionName: s.collectionName,
		Points:         points,
	}); err != nil {
		return nil, &ragerrors.StoreError{Op: "add_documents", Err: err}
	}
	return inserted, nil
}

func (s *Store) Search(ctx context.Context, queryEmbedding []float32, topK int, filter vectorstore.MetadataFilter) ([]vectorstore.Scored, error) {
	if topK <= 0 {
		topK = 10
	}
	result, err := s.client.Query(ctx, &qc.QueryPoints{
		CollectionName: s.collectionName,
		Query:          qc.NewQuery(queryEmbedding...),
		Limit:          qc.PtrOf(uint64(topK)),
		WithPayload:    qc.NewWithPayload(true),
		Filter:         buildFilter(filter),
	})
	if err != nil {
		return nil, &ragerrors.StoreError{Op: "search", Err: err}
	}

	out := make([]vectorstore.Scored, 0, len(result))
	for _, p := range result {
		out = append(out, vectorstore.Scored{
			Chunk: payloadToChunk(pointIDToString(p.GetId()), p.GetPayload()),
			Score: float64(p.GetScore()),
		})
	}
	return out, nil
}

func (s *Store) GetDocumentsByMetadata(ctx context.Context, filter vectorstore.MetadataFilter) ([]vectorstore.Chunk, error) {
	points, err := s.client.Scroll(ctx, &qc.ScrollPoints{
		CollectionName: s.collectionName,
		Filter:         buildFilter(filter),
		Limit:          qc.PtrOf(uint32(10000)),
		WithPayload:    qc.NewWithPayload(true),
	})
	if err != nil {
		return nil, &ragerrors.StoreError{Op: "get_documents_by_metadata", Err: err}
	}
	out := make([]vectorstore.Chunk, 0, len(points))
	for _, p := range points {
		out = append(out, payloadToChunk(pointIDToString(p.GetId()), p.GetPayload()))
	}
	return out, nil
}

func (s *Store) DeleteDocuments(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	pointIDs := make([]*qc.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = pointID(id)
	}
	existing, err := s.client.Get(ctx, &qc.GetPoints{
		CollectionName: s.collectionName,
		Ids:            pointIDs,
	})
	if err != nil {
		return 0, &ragerrors.StoreError{Op: "delete_documents", Err: err}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	_, err = s.client.Delete(ctx, &qc.DeletePoints{
		CollectionName: s.collectionName,
		Points: &qc.PointsSelector{
			PointsSelectorOneOf: &qc.PointsSelector_Points{
				Points: &qc.PointsIdsList{Ids: pointIDs},
			},
		},
	})
	if err != nil {
		return 0, &ragerrors.StoreError{Op: "delete_documents", Err: err}
	}
	return len(existing), nil
}

func (s *Store) DeleteCollection(ctx context.Context) (bool, error) {
	if err := s.client.DeleteCollection(ctx, s.collectionName); err != nil {
		return false, &ragerrors.StoreError{Op: "delete_collection", Err: err}
	}
	return true, nil
}

func (s *Store) ListDocuments(ctx context.Context, limit, offset int, includeContent bool) ([]vectorstore.Chunk, int, error) {
	total, err := s.client.Count(ctx, &qc.CountPoints{CollectionName: s.collectionName})
	if err != nil {
		return nil, 0, &ragerrors.StoreError{Op: "list_documents", Err: err}
	}

	scrollLimit := uint32(limit + offset)
	if limit <= 0 || scrollLimit > 10000 {
		scrollLimit = 10000
	}
	points, err := s.client.Scroll(ctx, &qc.ScrollPoints{
		CollectionName: s.collectionName,
		Limit:          qc.PtrOf(scrollLimit),
		WithPayload:    qc.NewWithPayload(true),
	})
	if err != nil {
		return nil, 0, &ragerrors.StoreError{Op: "list_documents", Err: err}
	}

	if offset >= len(points) {
		return nil, int(total), nil
	}
	end := len(points)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	out := make([]vectorstore.Chunk, 0, end-offset)
	for _, p := range points[offset:end] {
		c := payloadToChunk(pointIDToString(p.GetId()), p.GetPayload())
		if !includeContent {
			c.Content = ""
		}
		out = append(out, c)
	}
	return out, int(total), nil
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func pointID(id string) *qc.PointId {
	if _, err := uuid.Parse(id); err == nil {
		return &qc.PointId{PointIdOptions: &qc.PointId_Uuid{Uuid: id}}
	}
	// Non-UUID chunk IDs are deterministically mapped into UUID space
	// so callers may supply any opaque string identifier.
	return &qc.PointId{PointIdOptions: &qc.PointId_Uuid{Uuid: uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String()}}
}

func pointIDToString(id *qc.PointId) string {
	if u := id.GetUuid(); u != "" {
		return u
	}
	return fmt.Sprintf("%d", id.GetNum())
}

func chunkToPoint(c vectorstore.Chunk) *qc.PointStruct {
	payload := map[string]*qc.Value{
		"chunk_id": strVal(c.ID),
		"content":  strVal(c.Content),
		"source":   strVal(c.Source),
	}
	for k, v := range c.Metadata {
		payload[k] = anyVal(v)
	}
	return &qc.PointStruct{
		Id:      pointID(c.ID),
		Vectors: qc.NewVectors(c.Embedding...),
		Payload: payload,
	}
}

func payloadToChunk(id string, payload map[string]*qc.Value) vectorstore.Chunk {
	chunk := vectorstore.Chunk{
		ID:       id,
		Metadata: map[string]any{},
	}
	for k, v := range payload {
		switch k {
		case "chunk_id":
			chunk.ID = v.GetStringValue()
		case "content":
			chunk.Content = v.GetStringValue()
		case "source":
			chunk.Source = v.GetStringValue()
		default:
			chunk.Metadata[k] = valToAny(v)
		}
	}
	return chunk
}

func buildFilter(filter vectorstore.MetadataFilter) *qc.Filter {
	if len(filter) == 0 {
		return nil
	}
	conditions := make([]*qc.Condition, 0, len(filter))
	for k, v := range filter {
		conditions = append(conditions, &qc.Condition{
			ConditionOneOf: &qc.Condition_Field{
				Field: &qc.FieldCondition{
					Key:   k,
					Match: &qc.Match{MatchValue: &qc.Match_Keyword{Keyword: fmt.Sprintf("%v", v)}},
				},
			},
		})
	}
	return &qc.Filter{Must: conditions}
}

func strVal(s string) *qc.Value {
	return &qc.Value{Kind: &qc.Value_StringValue{StringValue: s}}
}

func anyVal(v any) *qc.Value {
	switch x := v.(type) {
	case string:
		return strVal(x)
	case int:
		return &qc.Value{Kind: &qc.Value_IntegerValue{IntegerValue: int64(x)}}
	case int64:
		return &qc.Value{Kind: &qc.Value_IntegerValue{IntegerValue: x}}
	case float64:
		return &qc.Value{Kind: &qc.Value_DoubleValue{DoubleValue: x}}
	case bool:
		return &qc.Value{Kind: &qc.Value_BoolValue{BoolValue: x}}
	default:
		return strVal(fmt.Sprintf("%v", x))
	}
}

func valToAny(v *qc.Value) any {
	switch v.GetKind().(type) {
	case *qc.Value_StringValue:
		return v.GetStringValue()
	case *qc.Value_IntegerValue:
		return v.GetIntegerValue()
	case *qc.Value_DoubleValue:
		return v.GetDoubleValue()
	case *qc.Value_BoolValue:
		return v.GetBoolValue()
	default:
		return nil
	}
}

func hashPath(p string) []byte {
	sum := uuid.NewSHA1(uuid.NameSpaceDNS, []byte(p))
	return sum[:4]
}

var _ vectorstore.Store = (*Store)(nil)
