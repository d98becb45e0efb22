package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ppiankov/precedent/internal/model"
)

func analysis(warnings ...string) *model.Analysis {
	return &model.Analysis{
		Sources: []model.SourceGroup{
			{SourceName: "PolitiFact Database", Results: []model.SearchResult{{Publisher: "PolitiFact"}, {Publisher: "PolitiFact"}}},
			{SourceName: "External Sources (via external API)", Results: []model.SearchResult{{Publisher: "Snopes"}}},
		},
		Consensus: model.ConsensusReport{ConsensusLevel: 0.9, Agreement: model.AgreementStrong, SourceCount: 2},
		Speaker:   &model.SpeakerProfile{Speaker: "Jane Doe"},
		Warnings:  warnings,
	}
}

func TestObserveCheck_Statuses(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveCheck(analysis(), false, nil, 200*time.Millisecond)
	m.ObserveCheck(analysis("external API timed out"), false, nil, time.Second)
	m.ObserveCheck(analysis(), true, nil, time.Millisecond)
	m.ObserveCheck(nil, false, errors.New("archive down"), time.Second)

	tests := []struct {
		status string
		want   float64
	}{
		{StatusOK, 1},
		{StatusDegraded, 1},
		{StatusCached, 1},
		{StatusError, 1},
	}
	for _, tt := range tests {
		if got := testutil.ToFloat64(m.checks.WithLabelValues(tt.status)); got != tt.want {
			t.Errorf("checks{status=%q} = %v, want %v", tt.status, got, tt.want)
		}
	}

	// Cached and failed checks carry no new consensus data
	if got := testutil.ToFloat64(m.agreement.WithLabelValues(string(model.AgreementStrong))); got != 2 {
		t.Errorf("agreement = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.warnings); got != 1 {
		t.Errorf("warnings = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.speakers); got != 2 {
		t.Errorf("speakers = %v, want 2", got)
	}
	if n := testutil.CollectAndCount(m.duration); n != 1 {
		t.Errorf("duration series = %d, want 1", n)
	}
	if n := testutil.CollectAndCount(m.results); n != 2 {
		t.Errorf("results series = %d, want archive and external", n)
	}
}

func TestObserveCheck_NilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveCheck(analysis(), false, nil, time.Second)
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveCheck(analysis(), false, nil, time.Second)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `precedent_checks_total{status="ok"} 1`) {
		t.Errorf("metrics output missing check counter:\n%s", body)
	}
}
