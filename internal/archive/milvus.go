package archive

import (
	"context"
	"fmt"
	"strconv"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/ppiankov/precedent/internal/model"
)

const (
	milvusRowField    = "row"
	milvusVectorField = "embedding"
	milvusInsertBatch = 1000
)

// MilvusIndex serves nearest-neighbor search from a Milvus collection whose
// primary key is the metadata row number.
type MilvusIndex struct {
	client     client.Client
	collection string
	metric     Metric
	dim        int
	count      int
}

// NewMilvusIndex connects to Milvus. Call Open before searching.
func NewMilvusIndex(ctx context.Context, cfg model.MilvusConfig) (*MilvusIndex, error) {
	metric, err := ParseMetric(cfg.Metric)
	if err != nil {
		return nil, err
	}

	c, err := client.NewGrpcClient(ctx, cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	return &MilvusIndex{
		client:     c,
		collection: cfg.Collection,
		metric:     metric,
	}, nil
}

// Open loads the collection and reads its dimension and row count
func (m *MilvusIndex) Open(ctx context.Context) error {
	coll, err := m.client.DescribeCollection(ctx, m.collection)
	if err != nil {
		return fmt.Errorf("failed to describe collection %s: %w", m.collection, err)
	}
	for _, f := range coll.Schema.Fields {
		if f.Name == milvusVectorField {
			if dim, err := strconv.Atoi(f.TypeParams["dim"]); err == nil {
				m.dim = dim
			}
		}
	}

	if err := m.client.LoadCollection(ctx, m.collection, false); err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	stats, err := m.client.GetCollectionStatistics(ctx, m.collection)
	if err != nil {
		return fmt.Errorf("failed to read collection statistics: %w", err)
	}
	count, err := strconv.Atoi(stats["row_count"])
	if err != nil {
		return fmt.Errorf("invalid row_count %q: %w", stats["row_count"], err)
	}
	m.count = count
	return nil
}

// Create drops any existing collection and creates an empty one with an exact index
func (m *MilvusIndex) Create(ctx context.Context, dim int) error {
	has, err := m.client.HasCollection(ctx, m.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if has {
		if err := m.client.DropCollection(ctx, m.collection); err != nil {
			return fmt.Errorf("failed to drop collection: %w", err)
		}
	}

	schema := &entity.Schema{
		CollectionName: m.collection,
		Description:    "fact-check archive embeddings",
		Fields: []*entity.Field{
			{
				Name:       milvusRowField,
				DataType:   entity.FieldTypeInt64,
				PrimaryKey: true,
				AutoID:     false,
			},
			{
				Name:     milvusVectorField,
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": strconv.Itoa(dim),
				},
			},
		},
	}

	if err := m.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx, err := entity.NewIndexFlat(m.entityMetric())
	if err != nil {
		return fmt.Errorf("failed to build index params: %w", err)
	}
	if err := m.client.CreateIndex(ctx, m.collection, milvusVectorField, idx, false); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	m.dim = dim
	m.count = 0
	return nil
}

// Insert appends vectors. Row numbers continue from the current count.
func (m *MilvusIndex) Insert(ctx context.Context, vectors [][]float32) error {
	for start := 0; start < len(vectors); start += milvusInsertBatch {
		end := start + milvusInsertBatch
		if end > len(vectors) {
			end = len(vectors)
		}

		rows := make([]int64, 0, end-start)
		for i := start; i < end; i++ {
			rows = append(rows, int64(m.count+i))
		}

		_, err := m.client.Insert(
			ctx,
			m.collection,
			"",
			entity.NewColumnInt64(milvusRowField, rows),
			entity.NewColumnFloatVector(milvusVectorField, m.dim, vectors[start:end]),
		)
		if err != nil {
			return fmt.Errorf("failed to insert rows %d-%d: %w", start, end-1, err)
		}
	}

	if err := m.client.Flush(ctx, m.collection, false); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}
	m.count += len(vectors)
	return nil
}

// Search queries the collection. Milvus returns inner products or squared L2
// distances, the same conventions as FlatIndex.
func (m *MilvusIndex) Search(ctx context.Context, vector []float32, k int) ([]Neighbor, error) {
	if k <= 0 {
		return nil, nil
	}

	sp, err := entity.NewIndexFlatSearchParam()
	if err != nil {
		return nil, fmt.Errorf("failed to build search params: %w", err)
	}

	results, err := m.client.Search(
		ctx,
		m.collection,
		[]string{},
		"",
		[]string{milvusRowField},
		[]entity.Vector{entity.FloatVector(vector)},
		milvusVectorField,
		m.entityMetric(),
		k,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	var hits []Neighbor
	for _, sr := range results {
		ids, ok := sr.IDs.(*entity.ColumnInt64)
		if !ok {
			return nil, fmt.Errorf("unexpected id column type %T", sr.IDs)
		}
		rows := ids.Data()
		for i := 0; i < sr.ResultCount && i < len(rows) && i < len(sr.Scores); i++ {
			hits = append(hits, Neighbor{Row: int(rows[i]), Distance: sr.Scores[i]})
		}
	}
	return hits, nil
}

// Metric returns the collection metric
func (m *MilvusIndex) Metric() Metric { return m.metric }

// Len returns the collection row count read by Open
func (m *MilvusIndex) Len() int { return m.count }

// Dim returns the vector dimension, or 0 if unknown
func (m *MilvusIndex) Dim() int { return m.dim }

// Close closes the client connection
func (m *MilvusIndex) Close() error {
	return m.client.Close()
}

func (m *MilvusIndex) entityMetric() entity.MetricType {
	if m.metric == MetricL2 {
		return entity.L2
	}
	return entity.IP
}
