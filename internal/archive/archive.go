package archive

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/precedent/internal/model"
)

// ErrMisaligned is returned when the index and metadata table disagree on row count
var ErrMisaligned = errors.New("archive index and metadata are not row-aligned")

// Archive is the process-wide, read-only fact-check archive. It is never
// mutated after Load, so concurrent readers need no locking.
type Archive struct {
	Entries []model.ArchiveEntry
	Index   Index
	closer  func() error
}

// New wraps an index and its metadata, enforcing row alignment
func New(index Index, entries []model.ArchiveEntry) (*Archive, error) {
	if index.Len() != len(entries) {
		return nil, fmt.Errorf("%w: index has %d rows, metadata has %d", ErrMisaligned, index.Len(), len(entries))
	}
	return &Archive{Entries: entries, Index: index}, nil
}

// Load opens the archive described by cfg
func Load(ctx context.Context, cfg model.ArchiveConfig, log *zap.Logger) (*Archive, error) {
	metaPath := filepath.Join(cfg.DataDir, cfg.MetadataFile)
	entries, err := LoadMetadata(metaPath)
	if err != nil {
		return nil, err
	}

	var (
		index  Index
		closer func() error
	)
	switch strings.ToLower(cfg.Backend) {
	case "", "flat":
		flat, err := ReadFlatIndex(filepath.Join(cfg.DataDir, cfg.IndexFile))
		if err != nil {
			return nil, err
		}
		index = flat
	case "milvus":
		mv, err := NewMilvusIndex(ctx, cfg.Milvus)
		if err != nil {
			return nil, err
		}
		if err := mv.Open(ctx); err != nil {
			_ = mv.Close()
			return nil, err
		}
		index, closer = mv, mv.Close
	default:
		return nil, fmt.Errorf("unknown archive backend: %s (supported: flat, milvus)", cfg.Backend)
	}

	a, err := New(index, entries)
	if err != nil {
		if closer != nil {
			_ = closer()
		}
		return nil, err
	}
	a.closer = closer

	log.Info("archive loaded",
		zap.String("backend", cfg.Backend),
		zap.Int("entries", len(entries)),
		zap.String("metric", string(index.Metric())),
		zap.Int("dim", index.Dim()),
	)
	return a, nil
}

// Len returns the number of archive rows
func (a *Archive) Len() int {
	return len(a.Entries)
}

// Entry returns row i of the metadata table
func (a *Archive) Entry(row int) (model.ArchiveEntry, bool) {
	if row < 0 || row >= len(a.Entries) {
		return model.ArchiveEntry{}, false
	}
	return a.Entries[row], true
}

// Close releases the index backend, if it holds a connection
func (a *Archive) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer()
}
