package retrieval

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/ppiankov/precedent/internal/archive"
	"github.com/ppiankov/precedent/internal/model"
)

// stubEmbedder returns fixed vectors per text, or err for everything
type stubEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (s stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func (s stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := s.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (stubEmbedder) ModelID() string { return "stub" }

func newTestSearcher(t *testing.T, metric archive.Metric, entries []model.ArchiveEntry, vectors [][]float32, emb stubEmbedder) *Searcher {
	t.Helper()
	idx := archive.NewFlatIndex(metric, 3)
	for _, v := range vectors {
		if err := idx.Add(v); err != nil {
			t.Fatal(err)
		}
	}
	arc, err := archive.New(idx, entries)
	if err != nil {
		t.Fatal(err)
	}
	return NewSearcher(arc, emb, model.DefaultConfig(), zap.NewNop())
}

func TestSearch_InnerProduct(t *testing.T) {
	entries := []model.ArchiveEntry{
		{Claim: "taxes rose", Rating: "False", URL: "https://pf.example/1", Explanation: strings.Repeat("x", 600)},
		{Claim: "crime fell", Rating: "True", URL: "https://pf.example/2"},
		{Claim: "mirror of taxes rose", Rating: "False", URL: "https://pf.example/1"},
	}
	vectors := [][]float32{{1, 0, 0}, {0, 1, 0}, {0.8, 0.6, 0}}
	// unnormalized query must be normalized before the inner product
	s := newTestSearcher(t, archive.MetricInnerProduct, entries, vectors, stubEmbedder{
		vectors: map[string][]float32{"did taxes rise": {10, 0, 0}},
	})

	group, err := s.Search(context.Background(), "did taxes rise", 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if group.SourceName != "PolitiFact Database" {
		t.Errorf("SourceName = %q", group.SourceName)
	}
	if len(group.Results) != 2 {
		t.Fatalf("len(Results) = %d, want 2 after URL dedup", len(group.Results))
	}

	top := group.Results[0]
	if top.URL != "https://pf.example/1" || top.Claim != "taxes rose" {
		t.Errorf("top result = %+v", top)
	}
	if math.Abs(top.Similarity()-1.0) > 1e-6 {
		t.Errorf("top similarity = %v, want 1.0", top.Similarity())
	}
	if got := group.Results[1].Similarity(); math.Abs(got-0.5) > 1e-6 {
		t.Errorf("orthogonal similarity = %v, want 0.5", got)
	}
	if len(top.Explanation) != 503 || !strings.HasSuffix(top.Explanation, "...") {
		t.Errorf("explanation not truncated: len %d", len(top.Explanation))
	}
	if top.Publisher != "PolitiFact" || top.Source != "PolitiFact" {
		t.Errorf("publisher/source = %q/%q", top.Publisher, top.Source)
	}
}

func TestSearch_L2(t *testing.T) {
	entries := []model.ArchiveEntry{
		{Claim: "near", URL: "u1"},
		{Claim: "far", URL: "u2"},
	}
	vectors := [][]float32{{1, 0, 0}, {3, 0, 0}}
	s := newTestSearcher(t, archive.MetricL2, entries, vectors, stubEmbedder{
		vectors: map[string][]float32{"q": {1, 0, 0}},
	})

	group, err := s.Search(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(group.Results) != 2 || group.Results[0].Claim != "near" {
		t.Fatalf("results = %+v", group.Results)
	}
	if group.Results[0].Similarity() != 1 {
		t.Errorf("exact match similarity = %v, want 1", group.Results[0].Similarity())
	}
	if math.Abs(group.Results[1].Similarity()-0.2) > 1e-9 {
		t.Errorf("far similarity = %v, want 1/(1+4)", group.Results[1].Similarity())
	}
}

func TestSearch_EmbeddingFailureIsRetrievalError(t *testing.T) {
	entries := []model.ArchiveEntry{{Claim: "a", URL: "u"}}
	s := newTestSearcher(t, archive.MetricL2, entries, [][]float32{{1, 0, 0}}, stubEmbedder{
		err: errors.New("provider down"),
	})

	_, err := s.Search(context.Background(), "anything", 5)
	if !errors.Is(err, ErrRetrieval) {
		t.Fatalf("Search() error = %v, want ErrRetrieval", err)
	}
	var re *RetrievalError
	if !errors.As(err, &re) || re.Op != "embed" {
		t.Errorf("error = %#v, want embed RetrievalError", err)
	}
	if !strings.Contains(err.Error(), "provider down") {
		t.Errorf("error lost cause: %v", err)
	}
}

func TestSearch_IndexFailureIsRetrievalError(t *testing.T) {
	entries := []model.ArchiveEntry{{Claim: "a", URL: "u"}}
	s := newTestSearcher(t, archive.MetricL2, entries, [][]float32{{1, 0, 0}}, stubEmbedder{
		vectors: map[string][]float32{"q": {1, 0}},
	})

	_, err := s.Search(context.Background(), "q", 5)
	var re *RetrievalError
	if !errors.As(err, &re) || re.Op != "search" {
		t.Errorf("error = %v, want search RetrievalError", err)
	}
}

func TestSearch_NoMatchesIsNotAnError(t *testing.T) {
	s := newTestSearcher(t, archive.MetricL2, nil, nil, stubEmbedder{})

	group, err := s.Search(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if group.Len() != 0 {
		t.Errorf("expected empty group, got %d results", group.Len())
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	s := newTestSearcher(t, archive.MetricL2, nil, nil, stubEmbedder{})
	if _, err := s.Search(context.Background(), "  ", 5); !errors.Is(err, ErrRetrieval) {
		t.Errorf("Search() error = %v, want ErrRetrieval", err)
	}
}

func TestSearch_BoostPrepended(t *testing.T) {
	entries := []model.ArchiveEntry{
		{Claim: "unrelated", URL: "u0"},
		{Claim: "Acme Corp cut jobs", Rating: "False", URL: "u1"},
	}
	vectors := [][]float32{{1, 0, 0}, {0, 1, 0}}
	s := newTestSearcher(t, archive.MetricL2, entries, vectors, stubEmbedder{
		vectors: map[string][]float32{"Did Acme Corp cut jobs?": {1, 0, 0}},
	})

	group, err := s.Search(context.Background(), "Did Acme Corp cut jobs?", 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(group.Results) != 2 {
		t.Fatalf("len(Results) = %d, want 2", len(group.Results))
	}
	first := group.Results[0]
	if first.URL != "u1" || !first.Boosted || first.Similarity() != 0.99 {
		t.Errorf("first result = %+v, want boosted u1 at 0.99", first)
	}
	if group.Results[1].URL != "u0" {
		t.Errorf("second result = %+v", group.Results[1])
	}
}

func TestBoost_ConjunctiveAndCapped(t *testing.T) {
	var entries []model.ArchiveEntry
	var vectors [][]float32
	for i := 0; i < 15; i++ {
		entries = append(entries, model.ArchiveEntry{
			Claim: fmt.Sprintf("acme CORP claim %d", i),
			URL:   fmt.Sprintf("both-%d", i),
		})
		vectors = append(vectors, []float32{1, 0, 0})
	}
	entries = append(entries,
		model.ArchiveEntry{Claim: "Acme only", URL: "acme"},
		model.ArchiveEntry{Claim: "Corp only", Explanation: "nothing else", URL: "corp"},
		model.ArchiveEntry{Claim: "split", Explanation: "Acme and Corp in explanation", URL: "split"},
	)
	vectors = append(vectors, []float32{1, 0, 0}, []float32{1, 0, 0}, []float32{1, 0, 0})

	s := newTestSearcher(t, archive.MetricL2, entries, vectors, stubEmbedder{})

	boosted := s.Boost("Acme Corp layoffs")
	if len(boosted) != 10 {
		t.Fatalf("len(Boost) = %d, want 10", len(boosted))
	}
	for _, r := range boosted {
		if r.SimilarityScore == nil || *r.SimilarityScore != 0.99 {
			t.Errorf("%s similarity = %v, want 0.99", r.URL, r.SimilarityScore)
		}
		lower := strings.ToLower(r.Claim + " " + r.Explanation)
		if !strings.Contains(lower, "acme") || !strings.Contains(lower, "corp") {
			t.Errorf("%s does not contain both keywords", r.URL)
		}
	}

	rows := MatchAll(entries, []string{"Acme", "Corp"}, 100)
	if len(rows) != 16 || rows[15] != 17 {
		t.Errorf("MatchAll() = %v, want 15 claim rows plus the explanation row", rows)
	}
}

func TestBoost_NoKeywords(t *testing.T) {
	entries := []model.ArchiveEntry{{Claim: "anything", URL: "u"}}
	s := newTestSearcher(t, archive.MetricL2, entries, [][]float32{{1, 0, 0}}, stubEmbedder{})

	if got := s.Boost("what about lowercase only?"); got != nil {
		t.Errorf("Boost() = %v, want nil", got)
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		metric archive.Metric
		d      float32
		want   float64
	}{
		{archive.MetricInnerProduct, 1, 1},
		{archive.MetricInnerProduct, -1, 0},
		{archive.MetricInnerProduct, 0, 0.5},
		{archive.MetricL2, 0, 1},
		{archive.MetricL2, 1, 0.5},
		{archive.MetricL2, -0.5, 1},
	}

	for _, tt := range tests {
		if got := Similarity(tt.metric, tt.d); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Similarity(%s, %v) = %v, want %v", tt.metric, tt.d, got, tt.want)
		}
	}
}
