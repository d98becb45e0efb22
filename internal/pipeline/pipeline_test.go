package pipeline

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/precedent/internal/cache"
	"github.com/ppiankov/precedent/internal/model"
	"github.com/ppiankov/precedent/internal/retrieval"
)

type fakeArchive struct {
	group model.SourceGroup
	err   error
	calls int32
	wait  <-chan struct{}
}

func (f *fakeArchive) Search(ctx context.Context, query string, k int) (model.SourceGroup, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.wait != nil {
		select {
		case <-f.wait:
		case <-ctx.Done():
			return model.SourceGroup{}, ctx.Err()
		case <-time.After(2 * time.Second):
			return model.SourceGroup{}, errors.New("external search never started")
		}
	}
	return f.group, f.err
}

type fakeExternal struct {
	results  []model.SearchResult
	warnings []string
	started  chan struct{}
}

func (f *fakeExternal) Search(ctx context.Context, query string, maxResults int) ([]model.SearchResult, []string) {
	if f.started != nil {
		close(f.started)
	}
	return f.results, f.warnings
}

type fakeSpeakers struct{}

func (fakeSpeakers) Lookup(text string) *model.SpeakerProfile {
	return &model.SpeakerProfile{Speaker: "Jane Doe", TotalChecks: 3, Indicator: model.IndicatorMixed}
}

func archiveGroup() model.SourceGroup {
	return model.SourceGroup{
		SourceName: "PolitiFact Database",
		Results: []model.SearchResult{
			{Publisher: "PolitiFact", Claim: "Crime doubled", Rating: "False", URL: "https://pf.example/1", SimilarityScore: model.Score(0.91)},
		},
	}
}

func newTestEngine(arc ArchiveSearcher, ext ExternalSearcher, c cache.Cache) *Engine {
	e := NewEngine(model.DefaultConfig(), arc, ext, fakeSpeakers{}, c, nil)
	e.newID = func() string { return "test-id" }
	e.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return e
}

func TestEngine_Check(t *testing.T) {
	arc := &fakeArchive{group: archiveGroup()}
	ext := &fakeExternal{results: []model.SearchResult{
		{Publisher: "PolitiFact", Claim: "Crime doubled again", Rating: "Mostly False", URL: "https://pf.example/2"},
		{Publisher: "Snopes", Claim: "Crime doubled", Rating: "False", URL: "https://snopes.example/1"},
		{Publisher: "Snopes", Claim: "dup", Rating: "True", URL: "https://pf.example/1"},
	}}

	a, err := newTestEngine(arc, ext, nil).Check(context.Background(), "  Crime doubled in the city  ")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}

	if a.ID != "test-id" || a.Query != "Crime doubled in the city" {
		t.Errorf("ID/Query = %q/%q", a.ID, a.Query)
	}
	var names []string
	for _, g := range a.Sources {
		names = append(names, g.SourceName)
	}
	want := []string{"PolitiFact Database", "Recent PolitiFact (via external API)", "External Sources (via external API)"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("groups = %v, want %v", names, want)
	}
	if a.ResultCount() != 3 {
		t.Errorf("ResultCount = %d, want 3 (duplicate URL dropped)", a.ResultCount())
	}

	anchor, ok := a.Anchor()
	if !ok || anchor.URL != "https://pf.example/1" {
		t.Errorf("Anchor = %+v, %v", anchor, ok)
	}

	// PolitiFact: last write wins -> Mostly False (2); Snopes: False (1)
	if a.Consensus.SourceCount != 2 || a.Consensus.SourceRatings["PolitiFact"] != 2 {
		t.Errorf("Consensus = %+v", a.Consensus)
	}
	if a.Speaker == nil || a.Speaker.Speaker != "Jane Doe" {
		t.Errorf("Speaker = %+v", a.Speaker)
	}
}

func TestEngine_ArchiveFailureIsFatal(t *testing.T) {
	arc := &fakeArchive{err: &retrieval.RetrievalError{Op: "embed", Err: errors.New("provider down")}}
	ext := &fakeExternal{results: []model.SearchResult{{Publisher: "AFP", Rating: "False", URL: "https://afp.example"}}}

	_, err := newTestEngine(arc, ext, nil).Check(context.Background(), "claim")
	if !errors.Is(err, retrieval.ErrRetrieval) {
		t.Fatalf("err = %v, want ErrRetrieval", err)
	}
}

func TestEngine_EmptyArchiveIsNotAnError(t *testing.T) {
	arc := &fakeArchive{group: model.SourceGroup{SourceName: "PolitiFact Database"}}

	a, err := newTestEngine(arc, nil, nil).Check(context.Background(), "claim")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if len(a.Sources) != 1 || a.Sources[0].Len() != 0 {
		t.Errorf("Sources = %+v, want one empty archive group", a.Sources)
	}
	if _, ok := a.Anchor(); ok {
		t.Error("Anchor present for empty archive")
	}
	if a.Consensus.Agreement != model.AgreementNoStandardizableRatings || a.Consensus.SourceCount != 1 {
		t.Errorf("Consensus = %+v", a.Consensus)
	}
}

func TestEngine_SearchesRunConcurrently(t *testing.T) {
	started := make(chan struct{})
	arc := &fakeArchive{group: archiveGroup(), wait: started}
	ext := &fakeExternal{started: started}

	if _, err := newTestEngine(arc, ext, nil).Check(context.Background(), "claim"); err != nil {
		t.Fatalf("archive search did not overlap external search: %v", err)
	}
}

func TestEngine_Memoizes(t *testing.T) {
	c := cache.NewMemoryCache(time.Minute, time.Minute)
	arc := &fakeArchive{group: archiveGroup()}
	e := newTestEngine(arc, &fakeExternal{}, c)

	first, err := e.Check(context.Background(), "claim")
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.Check(context.Background(), "claim")
	if err != nil {
		t.Fatal(err)
	}

	if n := atomic.LoadInt32(&arc.calls); n != 1 {
		t.Errorf("archive searched %d times, want 1", n)
	}
	if second.ID != first.ID || second.ResultCount() != first.ResultCount() {
		t.Errorf("cached analysis differs: %+v vs %+v", second, first)
	}
}

func TestEngine_DegradedNotMemoized(t *testing.T) {
	c := cache.NewMemoryCache(time.Minute, time.Minute)
	arc := &fakeArchive{group: archiveGroup()}
	e := newTestEngine(arc, &fakeExternal{warnings: []string{"external API timed out"}}, c)

	for i := 0; i < 2; i++ {
		a, err := e.Check(context.Background(), "claim")
		if err != nil {
			t.Fatal(err)
		}
		if len(a.Warnings) != 1 {
			t.Errorf("Warnings = %v", a.Warnings)
		}
	}
	if n := atomic.LoadInt32(&arc.calls); n != 2 {
		t.Errorf("archive searched %d times, want 2", n)
	}
}

func TestEngine_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	arc := &fakeArchive{group: archiveGroup(), wait: make(chan struct{})}
	if _, err := newTestEngine(arc, nil, nil).Check(ctx, "claim"); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

type recordingObserver struct {
	cached []bool
	errs   []error
}

func (r *recordingObserver) ObserveCheck(a *model.Analysis, cached bool, err error, elapsed time.Duration) {
	r.cached = append(r.cached, cached)
	r.errs = append(r.errs, err)
}

func TestEngine_ObserverSeesEveryCheck(t *testing.T) {
	c := cache.NewMemoryCache(time.Minute, time.Minute)
	obs := &recordingObserver{}
	e := newTestEngine(&fakeArchive{group: archiveGroup()}, nil, c)
	e.SetObserver(obs)

	for i := 0; i < 2; i++ {
		if _, err := e.Check(context.Background(), "claim"); err != nil {
			t.Fatal(err)
		}
	}
	if !reflect.DeepEqual(obs.cached, []bool{false, true}) {
		t.Errorf("cached = %v, want [false true]", obs.cached)
	}

	failing := newTestEngine(&fakeArchive{err: errors.New("index offline")}, nil, nil)
	failing.SetObserver(obs)
	if _, err := failing.Check(context.Background(), "claim"); err == nil {
		t.Fatal("expected error")
	}
	if last := obs.errs[len(obs.errs)-1]; last == nil {
		t.Error("observer not told about the failure")
	}
}
