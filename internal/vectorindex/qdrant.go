// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package vectorindex

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync"

	qdrant "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/northbound/ragcore/internal/domain"
	"github.com/northbound/ragcore/internal/logging"
	"github.com/northbound/ragcore/internal/ragerrors"
)

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

// collectionName maps a (tenant, model) pair onto one Qdrant collection,
// generalizing the single fixed collection of the original single-tenant
// deployment. Names are sanitized since tenant IDs and model names are not
// guaranteed to be valid Qdrant collection identifiers.
func collectionName(tenant domain.TenantID, model string) string {
	t := nonAlnum.ReplaceAllString(string(tenant), "_")
	m := nonAlnum.ReplaceAllString(model, "_")
	return fmt.Sprintf("rag_%s_%s", t, m)
}

// pointUUID derives a deterministic, valid Qdrant point UUID from a chunk
// ID, since chunk IDs are not guaranteed to already be UUIDs.
func pointUUID(chunkID domain.ChunkID) string {
	sum := sha1.Sum([]byte(chunkID))
	hexStr := hex.EncodeToString(sum[:16])
	return fmt.Sprintf("%s-%s-%s-%s-%s", hexStr[0:8], hexStr[8:12], hexStr[12:16], hexStr[16:20], hexStr[20:32])
}

// QdrantIndex is a Qdrant-backed Index with one collection per
// (tenant, model) pair, created lazily on first write.
type QdrantIndex struct {
	collections qdrant.CollectionsClient
	points      qdrant.PointsClient

	mu      sync.Mutex
	known   map[string]bool // collection names confirmed to exist
}

// NewQdrantIndex wraps an established gRPC connection to Qdrant.
func NewQdrantIndex(conn *grpc.ClientConn) (*QdrantIndex, error) {
	if conn == nil {
		return nil, errors.New("vectorindex: gRPC connection is required")
	}
	return &QdrantIndex{
		collections: qdrant.NewCollectionsClient(conn),
		points:      qdrant.NewPointsClient(conn),
		known:       make(map[string]bool),
	}, nil
}

func (q *QdrantIndex) ensureCollection(ctx context.Context, name string, dim int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.known[name] {
		return nil
	}

	list, err := q.collections.List(ctx, &qdrant.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("vectorindex: list collections: %w", err)
	}
	for _, c := range list.Collections {
		if c.Name == name {
			q.known[name] = true
			return nil
		}
	}

	_, err = q.collections.Create(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     uint64(dim),
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("vectorindex: create collection %s: %w", name, err)
	}
	logging.Printf("vectorindex: created collection %s (dim=%d)", name, dim)
	q.known[name] = true
	return nil
}

func (q *QdrantIndex) Upsert(ctx context.Context, tenant domain.TenantID, model string, chunkID domain.ChunkID, vector []float32, metadata map[string]string) error {
	if len(vector) == 0 {
		return errors.New("vectorindex: vector cannot be empty")
	}
	name := collectionName(tenant, model)
	if err := q.ensureCollection(ctx, name, len(vector)); err != nil {
		return err
	}

	payload := map[string]*qdrant.Value{
		"chunk_id": {Kind: &qdrant.Value_StringValue{StringValue: string(chunkID)}},
	}
	for k, v := range metadata {
		payload[k] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: v}}
	}

	point := &qdrant.PointStruct{
		Id: &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{Uuid: pointUUID(chunkID)}},
		Vectors: &qdrant.Vectors{
			VectorsOptions: &qdrant.Vectors_Vector{Vector: &qdrant.Vector{Data: vector}},
		},
		Payload: payload,
	}

	_, err := q.points.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: name,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("vectorindex: upsert point %s: %w", chunkID, err)
	}
	return nil
}

func (q *QdrantIndex) Delete(ctx context.Context, tenant domain.TenantID, model string, chunkID domain.ChunkID) error {
	name := collectionName(tenant, model)
	_, err := q.points.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: name,
		Points: &qdrant.PointsSelector{PointsSelectorOneOf: &qdrant.PointsSelector_Points{
			Points: &qdrant.PointsIdsList{Ids: []*qdrant.PointId{
				{PointIdOptions: &qdrant.PointId_Uuid{Uuid: pointUUID(chunkID)}},
			}},
		}},
	})
	if err != nil {
		// Deleting from a collection that does not exist yet is not an error.
		logging.Debugf("vectorindex: delete %s in %s: %v", chunkID, name, err)
		return nil
	}
	return nil
}

func (q *QdrantIndex) DeleteDocument(ctx context.Context, tenant domain.TenantID, model string, documentID domain.DocumentID) error {
	name := collectionName(tenant, model)
	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{
			{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{
						Key:   "document_id",
						Match: &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: string(documentID)}},
					},
				},
			},
		},
	}
	_, err := q.points.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: name,
		Points: &qdrant.PointsSelector{PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
			Filter: filter,
		}},
	})
	if err != nil {
		logging.Debugf("vectorindex: delete document %s in %s: %v", documentID, name, err)
		return nil
	}
	return nil
}

func (q *QdrantIndex) TopK(ctx context.Context, tenant domain.TenantID, model string, queryVector []float32, k int, minScore float32, filter map[string]string) ([]ScoredChunk, error) {
	if k <= 0 {
		k = 10
	}
	if normZero(queryVector) {
		return nil, nil
	}

	name := collectionName(tenant, model)
	search := &qdrant.SearchPoints{
		CollectionName: name,
		Vector:         queryVector,
		Limit:          uint64(k),
		ScoreThreshold: &minScore,
		WithPayload:    &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true}},
		WithVectors:    &qdrant.WithVectorsSelector{SelectorOptions: &qdrant.WithVectorsSelector_Enable{Enable: false}},
	}
	if len(filter) > 0 {
		search.Filter = metadataFilter(filter)
	}
	result, err := q.points.Search(ctx, search)
	if err != nil {
		// An uninitialized (never-written-to) collection is a clean empty
		// result, not a failure; any other search error means the index is
		// unavailable.
		if status.Code(err) == codes.NotFound {
			logging.Debugf("vectorindex: search %s: %v", name, err)
			return nil, nil
		}
		return nil, fmt.Errorf("%w: search %s: %v", ragerrors.ErrVectorStoreUnavailable, name, err)
	}

	hits := make([]ScoredChunk, 0, len(result.Result))
	for _, sp := range result.Result {
		metadata := make(map[string]string)
		var chunkID, documentID string
		if sp.Payload != nil {
			for key, v := range sp.Payload {
				if sv := v.GetStringValue(); sv != "" {
					metadata[key] = sv
					switch key {
					case "chunk_id":
						chunkID = sv
					case "document_id":
						documentID = sv
					}
				}
			}
		}
		if chunkID == "" {
			continue
		}
		hits = append(hits, ScoredChunk{
			ChunkID:    domain.ChunkID(chunkID),
			DocumentID: domain.DocumentID(documentID),
			Score:      sp.Score,
			Metadata:   metadata,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})

	return hits, nil
}

// metadataFilter builds a conjunction of equality conditions from a plain
// key==value map, the same predicate shape DeleteDocument already uses for
// "document_id".
func metadataFilter(filter map[string]string) *qdrant.Filter {
	conds := make([]*qdrant.Condition, 0, len(filter))
	for k, v := range filter {
		conds = append(conds, &qdrant.Condition{
			ConditionOneOf: &qdrant.Condition_Field{
				Field: &qdrant.FieldCondition{
					Key:   k,
					Match: &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: v}},
				},
			},
		})
	}
	return &qdrant.Filter{Must: conds}
}

func (q *QdrantIndex) HealthCheck(ctx context.Context) error {
	_, err := q.collections.List(ctx, &qdrant.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("vectorindex: health check failed: %w", err)
	}
	return nil
}

func normZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
