// Package tracker follows marketplace listings over time, capturing rank,
// price, and review snapshots that feed the competition signal.
package tracker

import (
	"context"
	"time"

	"github.com/kwscout/kw-scout/internal/bus"
	"github.com/kwscout/kw-scout/internal/collector"
	"github.com/kwscout/kw-scout/internal/estimator"
	"github.com/kwscout/kw-scout/internal/metrics"
	"github.com/kwscout/kw-scout/internal/pkg/errors"
	"github.com/kwscout/kw-scout/internal/pkg/logger"
	"github.com/kwscout/kw-scout/internal/store"
)

// Repository is the slice of storage the tracker uses.
type Repository interface {
	AddBook(ctx context.Context, book *store.TrackedBook) (*store.TrackedBook, error)
	GetBook(ctx context.Context, bookID string) (*store.TrackedBook, error)
	RemoveBook(ctx context.Context, bookID string) error
	ListBooks(ctx context.Context, department string) ([]store.TrackedBook, error)
	SaveSnapshot(ctx context.Context, snap *store.BookSnapshot) error
	LatestSnapshot(ctx context.Context, bookID string) (*store.BookSnapshot, error)
}

// Result is one book's snapshot outcome within a capture run.
type Result struct {
	Book     store.TrackedBook
	Snapshot *store.BookSnapshot
	Previous *store.BookSnapshot // nil on first capture

	// RankDelta is previous rank minus current rank: positive means the
	// book climbed. Zero when there is no previous capture.
	RankDelta int

	Err error
}

// Tracker captures listing snapshots.
type Tracker struct {
	repo   Repository
	source collector.ProductSource
	est    *estimator.Estimator
	events bus.Bus
	pipe   *metrics.Pipeline
	log    *logger.Logger
	now    func() time.Time
}

// New creates a tracker. events may be nil.
func New(repo Repository, source collector.ProductSource, est *estimator.Estimator, events bus.Bus, pipe *metrics.Pipeline, log *logger.Logger) *Tracker {
	if pipe == nil {
		pipe = metrics.NewPipeline()
	}
	return &Tracker{
		repo:   repo,
		source: source,
		est:    est,
		events: events,
		pipe:   pipe,
		log:    log,
		now:    time.Now,
	}
}

// Add puts a listing under tracking.
func (t *Tracker) Add(ctx context.Context, bookID, title, department string, isOwn bool) (*store.TrackedBook, error) {
	return t.repo.AddBook(ctx, &store.TrackedBook{
		BookID:     bookID,
		Title:      title,
		Department: department,
		IsOwn:      isOwn,
	})
}

// Remove stops tracking a listing.
func (t *Tracker) Remove(ctx context.Context, bookID string) error {
	return t.repo.RemoveBook(ctx, bookID)
}

// List returns tracked listings, optionally filtered by department.
func (t *Tracker) List(ctx context.Context, department string) ([]store.TrackedBook, error) {
	return t.repo.ListBooks(ctx, department)
}

// Snapshot captures one book's current state and appends it to history.
func (t *Tracker) Snapshot(ctx context.Context, bookID string) (*Result, error) {
	book, err := t.repo.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	result := t.capture(ctx, *book)
	if result.Err != nil {
		return nil, result.Err
	}
	return result, nil
}

// SnapshotAll captures every tracked book in a department. A failed fetch
// for one book is recorded in its result and never aborts the rest; the
// error returned is only the context's own.
func (t *Tracker) SnapshotAll(ctx context.Context, department string) ([]Result, error) {
	books, err := t.repo.ListBooks(ctx, department)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(books))
	for _, book := range books {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		result := t.capture(ctx, book)
		if result.Err != nil {
			t.log.Warn("snapshot failed, continuing with remaining books",
				"book_id", book.BookID, "error", result.Err)
		}
		results = append(results, *result)
	}

	return results, nil
}

func (t *Tracker) capture(ctx context.Context, book store.TrackedBook) *Result {
	result := &Result{Book: book}

	page, err := t.source.FetchProduct(ctx, book.BookID)
	if err != nil {
		result.Err = err
		return result
	}

	if prev, err := t.repo.LatestSnapshot(ctx, book.BookID); err == nil {
		result.Previous = prev
	} else if !errors.IsNotFound(err) {
		result.Err = err
		return result
	}

	demand := t.est.Estimate(page.Rank, book.Department)
	snap := &store.BookSnapshot{
		BookID:        book.BookID,
		Rank:          page.Rank,
		Price:         page.Price,
		ReviewCount:   page.ReviewCount,
		Rating:        page.Rating,
		EstDailySales: demand.DailySales,
		CapturedAt:    t.now(),
	}
	if err := t.repo.SaveSnapshot(ctx, snap); err != nil {
		result.Err = err
		return result
	}

	result.Snapshot = snap
	if result.Previous != nil && result.Previous.Rank > 0 && snap.Rank > 0 {
		result.RankDelta = result.Previous.Rank - snap.Rank
	}

	t.pipe.Record(t.pipe.Snapshots)
	t.publish(ctx, snap)

	return result
}

func (t *Tracker) publish(ctx context.Context, snap *store.BookSnapshot) {
	if t.events == nil {
		return
	}
	event := bus.NewEvent(bus.TopicSnapshotCaptured, "tracker", snap)
	if err := t.events.Publish(ctx, bus.TopicSnapshotCaptured, event); err != nil {
		t.log.Warn("event publish failed", "topic", bus.TopicSnapshotCaptured, "error", err)
	}
}
