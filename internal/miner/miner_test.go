package miner

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/kwscout/kw-scout/internal/collector"
	"github.com/kwscout/kw-scout/internal/pkg/errors"
	"github.com/kwscout/kw-scout/internal/pkg/logger"
	"github.com/kwscout/kw-scout/internal/store"
)

// fakeSource serves canned suggestions and records every query it gets.
type fakeSource struct {
	mu          sync.Mutex
	queries     []string
	suggestions map[string][]collector.Suggestion
	failing     map[string]bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		suggestions: make(map[string][]collector.Suggestion),
		failing:     make(map[string]bool),
	}
}

func (f *fakeSource) Suggest(_ context.Context, query, _ string) ([]collector.Suggestion, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()

	if f.failing[query] {
		return nil, errors.FetchExhaustedError(3, errors.TransientFetchError("HTTP 429", nil))
	}
	return f.suggestions[query], nil
}

func (f *fakeSource) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

func (f *fakeSource) distinctQueries() map[string]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[string]int)
	for _, q := range f.queries {
		counts[q]++
	}
	return counts
}

// fakeRepo collects observations in memory.
type fakeRepo struct {
	mu           sync.Mutex
	observations []store.KeywordObservation
}

func (r *fakeRepo) SaveObservation(_ context.Context, obs *store.KeywordObservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observations = append(r.observations, *obs)
	return nil
}

func (r *fakeRepo) KeywordExists(_ context.Context, keyword, department string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, obs := range r.observations {
		if obs.Keyword == keyword && obs.Department == department {
			return true, nil
		}
	}
	return false, nil
}

func newTestMiner(source *fakeSource, repo *fakeRepo, workers int) *Miner {
	return New(source, repo, nil, nil, logger.New("error", "text"), workers)
}

func TestMine_Depth0IssuesOneQuery(t *testing.T) {
	source := newFakeSource()
	source.suggestions["historical fiction"] = []collector.Suggestion{
		{Value: "historical fiction books", Position: 1},
	}
	repo := &fakeRepo{}

	report, err := newTestMiner(source, repo, 2).Mine(context.Background(), "historical fiction", "ebook", 0)
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}
	if report.Queries != 1 || source.queryCount() != 1 {
		t.Errorf("queries = %d (reported %d), want 1", source.queryCount(), report.Queries)
	}
	if report.Observations != 1 {
		t.Errorf("observations = %d, want 1", report.Observations)
	}
}

func TestMine_Depth1IssuesExactly27DistinctQueries(t *testing.T) {
	source := newFakeSource()
	repo := &fakeRepo{}

	report, err := newTestMiner(source, repo, 4).Mine(context.Background(), "historical fiction", "ebook", 1)
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}

	distinct := source.distinctQueries()
	if len(distinct) != 27 {
		t.Fatalf("distinct queries = %d, want exactly 27", len(distinct))
	}
	for query, count := range distinct {
		if count != 1 {
			t.Errorf("query %q issued %d times, want once", query, count)
		}
	}
	if _, ok := distinct["historical fiction"]; !ok {
		t.Error("base query missing")
	}
	for letter := 'a'; letter <= 'z'; letter++ {
		expanded := "historical fiction " + string(letter)
		if _, ok := distinct[expanded]; !ok {
			t.Errorf("suffix expansion %q missing", expanded)
		}
	}
	if report.Queries != 27 {
		t.Errorf("report.Queries = %d, want 27", report.Queries)
	}
}

func TestMine_ObservationsCarrySourceQueryAndPosition(t *testing.T) {
	source := newFakeSource()
	source.suggestions["cozy mystery"] = []collector.Suggestion{
		{Value: "cozy mystery books", Position: 1},
		{Value: "cozy mystery series", Position: 2},
	}
	source.suggestions["cozy mystery b"] = []collector.Suggestion{
		{Value: "cozy mystery books", Position: 1},
	}
	repo := &fakeRepo{}

	report, err := newTestMiner(source, repo, 1).Mine(context.Background(), "cozy mystery", "ebook", 1)
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}

	// Duplicate keyword text across parents yields multiple observations.
	if report.Observations != 3 {
		t.Fatalf("observations = %d, want 3 (no mining-time dedupe)", report.Observations)
	}
	if report.NewKeywords != 2 || report.KnownKeywords != 1 {
		t.Errorf("new = %d, known = %d, want 2 new and 1 repeat sighting",
			report.NewKeywords, report.KnownKeywords)
	}

	bySource := map[string][]store.KeywordObservation{}
	for _, obs := range repo.observations {
		bySource[obs.SourceQuery] = append(bySource[obs.SourceQuery], obs)
	}
	if len(bySource["cozy mystery"]) != 2 {
		t.Errorf("base query observations = %d, want 2", len(bySource["cozy mystery"]))
	}
	for _, obs := range bySource["cozy mystery"] {
		if obs.Position < 1 {
			t.Errorf("position = %d, want 1-based", obs.Position)
		}
	}
}

func TestMine_FailedQueryIsSkippedNotFatal(t *testing.T) {
	source := newFakeSource()
	source.failing["space opera f"] = true
	source.suggestions["space opera"] = []collector.Suggestion{
		{Value: "space opera books", Position: 1},
	}
	repo := &fakeRepo{}

	report, err := newTestMiner(source, repo, 4).Mine(context.Background(), "space opera", "ebook", 1)
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}
	if report.Queries != 27 {
		t.Errorf("queries = %d, want full run despite failure", report.Queries)
	}
	if report.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", report.Skipped)
	}
	if report.Observations != 1 {
		t.Errorf("observations = %d, want partial results kept", report.Observations)
	}
}

func TestMine_Depth2DeduplicatesQueries(t *testing.T) {
	source := newFakeSource()
	// Both expansions surface the same suggestion, and one suggestion
	// equals the seed itself.
	source.suggestions["vikings"] = []collector.Suggestion{
		{Value: "vikings history", Position: 1},
		{Value: "vikings", Position: 2},
	}
	source.suggestions["vikings h"] = []collector.Suggestion{
		{Value: "vikings history", Position: 1},
	}
	repo := &fakeRepo{}

	_, err := newTestMiner(source, repo, 1).Mine(context.Background(), "vikings", "ebook", 2)
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}

	for query, count := range source.distinctQueries() {
		if count != 1 {
			t.Errorf("query %q issued %d times, want deduplicated within the run", query, count)
		}
	}
}

func TestMine_CancellationStopsNewQueries(t *testing.T) {
	source := newFakeSource()
	repo := &fakeRepo{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := newTestMiner(source, repo, 1).Mine(ctx, "historical fiction", "ebook", 1)
	if err == nil {
		t.Fatal("Mine with cancelled context returned nil error")
	}
	if report == nil {
		t.Fatal("report = nil, want partial report even on cancellation")
	}
	if source.queryCount() > 1 {
		t.Errorf("queries after cancel = %d, want prompt stop", source.queryCount())
	}
}

func TestExpansionQueries(t *testing.T) {
	base := expansionQueries("seed", false)
	if len(base) != 1 || base[0] != "seed" {
		t.Errorf("expansionQueries(seed, false) = %v, want just the base", base)
	}

	expanded := expansionQueries("seed", true)
	if len(expanded) != 27 {
		t.Fatalf("expanded = %d queries, want 27", len(expanded))
	}
	if expanded[0] != "seed" || expanded[1] != "seed a" || expanded[26] != "seed z" {
		t.Errorf("expanded = [%s ... %s], want base then a-z suffixes",
			expanded[0], expanded[26])
	}
	for _, q := range expanded[1:] {
		if !strings.HasPrefix(q, "seed ") {
			t.Errorf("expansion %q does not extend the base", q)
		}
	}
}
