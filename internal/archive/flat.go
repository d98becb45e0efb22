package archive

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
)

const (
	flatVersion = 1

	// maxFlatDim bounds the vector width a header may claim
	maxFlatDim = 1 << 16

	// flatPrealloc caps the row slice allocated before any row is read
	flatPrealloc = 1 << 16
)

var flatMagic = [4]byte{'P', 'I', 'D', 'X'}

// flatHeader is the fixed-size header of the on-disk flat index
type flatHeader struct {
	Magic   [4]byte
	Version uint32
	Metric  uint32
	Dim     uint32
	Count   uint64
}

// FlatIndex is an exact brute-force index held in memory
type FlatIndex struct {
	metric  Metric
	dim     int
	vectors [][]float32
}

// NewFlatIndex creates an empty index
func NewFlatIndex(metric Metric, dim int) *FlatIndex {
	return &FlatIndex{metric: metric, dim: dim}
}

// Add appends a vector. Its row is the current length of the index.
func (f *FlatIndex) Add(vector []float32) error {
	if len(vector) != f.dim {
		return fmt.Errorf("vector has dimension %d, index expects %d", len(vector), f.dim)
	}
	f.vectors = append(f.vectors, vector)
	return nil
}

// Metric returns the index metric
func (f *FlatIndex) Metric() Metric { return f.metric }

// Len returns the number of rows
func (f *FlatIndex) Len() int { return len(f.vectors) }

// Dim returns the vector dimension
func (f *FlatIndex) Dim() int { return f.dim }

// Search scans every row. Inner product hits are ordered by descending score,
// L2 hits by ascending squared distance; ties keep row order.
func (f *FlatIndex) Search(ctx context.Context, vector []float32, k int) ([]Neighbor, error) {
	if len(vector) != f.dim {
		return nil, fmt.Errorf("query has dimension %d, index expects %d", len(vector), f.dim)
	}
	if k <= 0 || len(f.vectors) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hits := make([]Neighbor, len(f.vectors))
	for row, v := range f.vectors {
		hits[row] = Neighbor{Row: row, Distance: f.distance(vector, v)}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if f.metric == MetricInnerProduct {
			return hits[i].Distance > hits[j].Distance
		}
		return hits[i].Distance < hits[j].Distance
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

func (f *FlatIndex) distance(a, b []float32) float32 {
	var sum float32
	if f.metric == MetricInnerProduct {
		for i := range a {
			sum += a[i] * b[i]
		}
		return sum
	}
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// WriteFile persists the index
func (f *FlatIndex) WriteFile(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer func() { _ = file.Close() }()

	w := bufio.NewWriter(file)
	if err := f.write(w); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write index file: %w", err)
	}
	return file.Close()
}

func (f *FlatIndex) write(w io.Writer) error {
	metric := uint32(0)
	if f.metric == MetricL2 {
		metric = 1
	}
	header := flatHeader{
		Magic:   flatMagic,
		Version: flatVersion,
		Metric:  metric,
		Dim:     uint32(f.dim),
		Count:   uint64(len(f.vectors)),
	}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("write index header: %w", err)
	}
	for _, v := range f.vectors {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("write index vectors: %w", err)
		}
	}
	return nil
}

// ReadFlatIndex loads an index written by WriteFile
func ReadFlatIndex(path string) (*FlatIndex, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return readFlat(bufio.NewReader(file))
}

func readFlat(r io.Reader) (*FlatIndex, error) {
	var header flatHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("read index header: %w", err)
	}
	if header.Magic != flatMagic {
		return nil, errors.New("not a flat index file")
	}
	if header.Version != flatVersion {
		return nil, fmt.Errorf("unsupported index version %d", header.Version)
	}

	metric := MetricInnerProduct
	switch header.Metric {
	case 0:
	case 1:
		metric = MetricL2
	default:
		return nil, fmt.Errorf("unknown index metric code %d", header.Metric)
	}

	if header.Dim == 0 || header.Dim > maxFlatDim {
		return nil, fmt.Errorf("invalid index dimension %d", header.Dim)
	}
	rowBytes := uint64(header.Dim) * 4
	if header.Count > math.MaxInt64/rowBytes {
		return nil, fmt.Errorf("invalid index row count %d", header.Count)
	}

	idx := NewFlatIndex(metric, int(header.Dim))
	idx.vectors = make([][]float32, 0, min(header.Count, flatPrealloc))
	for i := uint64(0); i < header.Count; i++ {
		v := make([]float32, header.Dim)
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return nil, fmt.Errorf("read index row %d: %w", i, err)
		}
		idx.vectors = append(idx.vectors, v)
	}
	return idx, nil
}
