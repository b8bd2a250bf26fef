package tracker

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/kwscout/kw-scout/internal/collector"
	"github.com/kwscout/kw-scout/internal/estimator"
	"github.com/kwscout/kw-scout/internal/pkg/errors"
	"github.com/kwscout/kw-scout/internal/pkg/logger"
	"github.com/kwscout/kw-scout/internal/store"
)

type fakeSource struct {
	pages   map[string]*collector.ProductPage
	failing map[string]bool
	fetched []string
}

func (s *fakeSource) FetchProduct(_ context.Context, bookID string) (*collector.ProductPage, error) {
	s.fetched = append(s.fetched, bookID)
	if s.failing[bookID] {
		return nil, errors.FetchExhaustedError(3, errors.TransientFetchError("status 503", nil))
	}
	page, ok := s.pages[bookID]
	if !ok {
		return nil, errors.PermanentFetchError("listing not found", nil)
	}
	return page, nil
}

type fakeRepo struct {
	books     map[string]*store.TrackedBook
	snapshots map[string][]store.BookSnapshot
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		books:     map[string]*store.TrackedBook{},
		snapshots: map[string][]store.BookSnapshot{},
	}
}

func (r *fakeRepo) AddBook(_ context.Context, book *store.TrackedBook) (*store.TrackedBook, error) {
	id := strings.ToUpper(strings.TrimSpace(book.BookID))
	stored := *book
	stored.BookID = id
	stored.AddedAt = time.Now()
	r.books[id] = &stored
	return &stored, nil
}

func (r *fakeRepo) GetBook(_ context.Context, bookID string) (*store.TrackedBook, error) {
	book, ok := r.books[strings.ToUpper(strings.TrimSpace(bookID))]
	if !ok {
		return nil, errors.NotFoundError("book")
	}
	return book, nil
}

func (r *fakeRepo) RemoveBook(_ context.Context, bookID string) error {
	id := strings.ToUpper(strings.TrimSpace(bookID))
	if _, ok := r.books[id]; !ok {
		return errors.NotFoundError("book")
	}
	delete(r.books, id)
	delete(r.snapshots, id)
	return nil
}

func (r *fakeRepo) ListBooks(_ context.Context, department string) ([]store.TrackedBook, error) {
	var out []store.TrackedBook
	for _, book := range r.books {
		if department == "" || book.Department == department {
			out = append(out, *book)
		}
	}
	return out, nil
}

func (r *fakeRepo) SaveSnapshot(_ context.Context, snap *store.BookSnapshot) error {
	r.snapshots[snap.BookID] = append(r.snapshots[snap.BookID], *snap)
	return nil
}

func (r *fakeRepo) LatestSnapshot(_ context.Context, bookID string) (*store.BookSnapshot, error) {
	history := r.snapshots[strings.ToUpper(strings.TrimSpace(bookID))]
	if len(history) == 0 {
		return nil, errors.NotFoundError("snapshot")
	}
	latest := history[len(history)-1]
	return &latest, nil
}

func newTracker(repo *fakeRepo, source *fakeSource) *Tracker {
	return New(repo, source, estimator.New(), nil, nil, logger.New("error", "text"))
}

func TestSnapshot_CapturesAndEstimates(t *testing.T) {
	repo := newFakeRepo()
	source := &fakeSource{pages: map[string]*collector.ProductPage{
		"B0TEST1": {BookID: "B0TEST1", Rank: 1000, Price: 4.99, ReviewCount: 42, Rating: 4.5},
	}}
	tr := newTracker(repo, source)

	if _, err := tr.Add(context.Background(), "b0test1", "My Book", "ebook", true); err != nil {
		t.Fatalf("Add: %v", err)
	}

	result, err := tr.Snapshot(context.Background(), "B0TEST1")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	snap := result.Snapshot
	if snap.Rank != 1000 || snap.Price != 4.99 || snap.ReviewCount != 42 {
		t.Errorf("snapshot = %+v, want page attributes carried over", snap)
	}

	want := estimator.New().Estimate(1000, "ebook").DailySales
	if snap.EstDailySales != want {
		t.Errorf("EstDailySales = %v, want %v from the ebook curve", snap.EstDailySales, want)
	}

	if result.Previous != nil {
		t.Errorf("Previous = %+v, want nil on first capture", result.Previous)
	}
	if len(repo.snapshots["B0TEST1"]) != 1 {
		t.Errorf("stored snapshots = %d, want 1", len(repo.snapshots["B0TEST1"]))
	}
}

func TestSnapshot_RankDeltaAgainstPrevious(t *testing.T) {
	repo := newFakeRepo()
	source := &fakeSource{pages: map[string]*collector.ProductPage{
		"B0TEST1": {BookID: "B0TEST1", Rank: 5000, Price: 4.99},
	}}
	tr := newTracker(repo, source)

	if _, err := tr.Add(context.Background(), "B0TEST1", "My Book", "ebook", false); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := tr.Snapshot(context.Background(), "B0TEST1"); err != nil {
		t.Fatalf("first Snapshot: %v", err)
	}

	// The book climbs from 5000 to 2000.
	source.pages["B0TEST1"].Rank = 2000
	result, err := tr.Snapshot(context.Background(), "B0TEST1")
	if err != nil {
		t.Fatalf("second Snapshot: %v", err)
	}

	if result.Previous == nil || result.Previous.Rank != 5000 {
		t.Fatalf("Previous = %+v, want first capture", result.Previous)
	}
	if result.RankDelta != 3000 {
		t.Errorf("RankDelta = %d, want positive 3000 for a climb", result.RankDelta)
	}
}

func TestSnapshot_UnknownBook(t *testing.T) {
	tr := newTracker(newFakeRepo(), &fakeSource{})

	_, err := tr.Snapshot(context.Background(), "B0MISSING")
	if !errors.IsNotFound(err) {
		t.Fatalf("err = %v, want NOT_FOUND for untracked book", err)
	}
}

func TestSnapshotAll_FailedFetchDoesNotAbortRun(t *testing.T) {
	repo := newFakeRepo()
	source := &fakeSource{
		pages: map[string]*collector.ProductPage{
			"B0GOOD1": {BookID: "B0GOOD1", Rank: 100, Price: 2.99},
			"B0GOOD2": {BookID: "B0GOOD2", Rank: 200, Price: 3.99},
		},
		failing: map[string]bool{"B0BAD00": true},
	}
	tr := newTracker(repo, source)

	for _, id := range []string{"B0GOOD1", "B0BAD00", "B0GOOD2"} {
		if _, err := tr.Add(context.Background(), id, "", "ebook", false); err != nil {
			t.Fatalf("Add(%s): %v", id, err)
		}
	}

	results, err := tr.SnapshotAll(context.Background(), "ebook")
	if err != nil {
		t.Fatalf("SnapshotAll: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d, want every tracked book attempted", len(results))
	}

	var captured, failed int
	for _, result := range results {
		if result.Err != nil {
			failed++
			if !errors.IsExhausted(result.Err) {
				t.Errorf("failure = %v, want the fetch error surfaced", result.Err)
			}
			continue
		}
		captured++
	}
	if captured != 2 || failed != 1 {
		t.Errorf("captured = %d failed = %d, want 2/1", captured, failed)
	}
	if len(repo.snapshots["B0BAD00"]) != 0 {
		t.Errorf("failed book has %d snapshots, want none", len(repo.snapshots["B0BAD00"]))
	}
}

func TestSnapshotAll_DepartmentFilter(t *testing.T) {
	repo := newFakeRepo()
	source := &fakeSource{pages: map[string]*collector.ProductPage{
		"B0EBOOK": {BookID: "B0EBOOK", Rank: 100},
		"B0PRINT": {BookID: "B0PRINT", Rank: 100},
	}}
	tr := newTracker(repo, source)

	if _, err := tr.Add(context.Background(), "B0EBOOK", "", "ebook", false); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := tr.Add(context.Background(), "B0PRINT", "", "print", false); err != nil {
		t.Fatalf("Add: %v", err)
	}

	results, err := tr.SnapshotAll(context.Background(), "print")
	if err != nil {
		t.Fatalf("SnapshotAll: %v", err)
	}
	if len(results) != 1 || results[0].Book.BookID != "B0PRINT" {
		t.Errorf("results = %+v, want only the print book", results)
	}
}

func TestSnapshotAll_CancelledContext(t *testing.T) {
	repo := newFakeRepo()
	tr := newTracker(repo, &fakeSource{})

	if _, err := tr.Add(context.Background(), "B0TEST1", "", "ebook", false); err != nil {
		t.Fatalf("Add: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := tr.SnapshotAll(ctx, "ebook"); err == nil {
		t.Fatal("SnapshotAll with cancelled context returned nil error")
	}
}

func TestRemove_Untracked(t *testing.T) {
	tr := newTracker(newFakeRepo(), &fakeSource{})
	if err := tr.Remove(context.Background(), "B0MISSING"); !errors.IsNotFound(err) {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
}
