// Package miner expands seed keywords breadth-first through the
// autocomplete source.
//
// Depth 0 issues one query for the seed itself. Depth 1 adds one query per
// single-letter suffix, giving exactly 27 queries per seed; callers budget
// rate limits against that contract. Depth 2 repeats the depth-1 expansion
// on every unique suggestion found, deduplicating (query, department) pairs
// within the run.
package miner

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kwscout/kw-scout/internal/bus"
	"github.com/kwscout/kw-scout/internal/collector"
	"github.com/kwscout/kw-scout/internal/metrics"
	"github.com/kwscout/kw-scout/internal/pkg/errors"
	"github.com/kwscout/kw-scout/internal/pkg/logger"
	"github.com/kwscout/kw-scout/internal/store"
)

const alphabet = "abcdefghijklmnopqrstuvwxyz"

// MaxDepth bounds the expansion depth.
const MaxDepth = 2

// Repository is the slice of storage the miner writes through.
type Repository interface {
	SaveObservation(ctx context.Context, obs *store.KeywordObservation) error
	KeywordExists(ctx context.Context, keyword, department string) (bool, error)
}

// Report summarizes one mining run. Skipped counts queries that failed after
// the fetch client's own retry budget; they never abort the run.
type Report struct {
	Seed          string
	Department    string
	Depth         int
	Queries       int
	Skipped       int
	Observations  int
	NewKeywords   int
	KnownKeywords int
	Duration      time.Duration
}

// Miner drives breadth-first keyword expansion.
type Miner struct {
	source  collector.Autocomplete
	repo    Repository
	events  bus.Bus
	pipe    *metrics.Pipeline
	log     *logger.Logger
	workers int
	now     func() time.Time
}

// New creates a miner. events may be nil when no bus is wired.
func New(source collector.Autocomplete, repo Repository, events bus.Bus, pipe *metrics.Pipeline, log *logger.Logger, workers int) *Miner {
	if workers < 1 {
		workers = 1
	}
	if pipe == nil {
		pipe = metrics.NewPipeline()
	}
	return &Miner{
		source:  source,
		repo:    repo,
		events:  events,
		pipe:    pipe,
		log:     log,
		workers: workers,
		now:     time.Now,
	}
}

// queryResult carries one query's suggestions to the next frontier level.
type queryResult struct {
	query       string
	depth       int
	suggestions []collector.Suggestion
	skipped     bool
}

// Mine expands a seed keyword to the given depth and persists every
// observation as it is discovered.
//
// Queries that fail after the fetch client's retries are logged and skipped;
// a single failed expansion never aborts the run. Cancelling ctx stops new
// queries promptly; observations already persisted remain valid. The only
// error returned is the context's own.
func (m *Miner) Mine(ctx context.Context, seed, department string, depth int) (*Report, error) {
	if depth < 0 {
		depth = 0
	}
	if depth > MaxDepth {
		depth = MaxDepth
	}

	started := m.now()
	log := m.log.WithKeyword(seed, department)
	report := &Report{Seed: seed, Department: department, Depth: depth}

	seen := map[string]struct{}{}
	frontier := expansionQueries(seed, depth >= 1)
	markSeen(seen, frontier, department)

	// Breadth-first by level: run the whole frontier, then build the next
	// one from the unique suggestions discovered.
	level := 0
	for len(frontier) > 0 {
		results, err := m.runLevel(ctx, frontier, department, level, report)
		if err != nil {
			report.Duration = m.now().Sub(started)
			return report, err
		}

		if level++; level >= depth {
			break
		}

		frontier = m.nextFrontier(results, department, seen)
	}

	report.Duration = m.now().Sub(started)
	log.Info("mining run completed",
		"depth", depth,
		"queries", report.Queries,
		"skipped", report.Skipped,
		"observations", report.Observations,
		"new_keywords", report.NewKeywords,
		"duration", report.Duration,
	)

	m.publish(ctx, bus.TopicMineCompleted, *report)
	return report, nil
}

// runLevel fetches one frontier level with a bounded worker pool.
func (m *Miner) runLevel(ctx context.Context, queries []string, department string, depth int, report *Report) ([]queryResult, error) {
	results := make([]queryResult, len(queries))
	var mu sync.Mutex // guards report counters

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)

	for i, query := range queries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			result := m.runQuery(gctx, query, department, depth)

			mu.Lock()
			report.Queries++
			if result.skipped {
				report.Skipped++
			}
			mu.Unlock()

			results[i] = result
			return gctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}

	// Persist in frontier order so observation order reflects discovery
	// order within the level.
	for _, result := range results {
		if err := m.persist(ctx, result, department, report); err != nil {
			return results, err
		}
	}

	return results, nil
}

// runQuery issues one autocomplete query. Failures are terminal skips.
func (m *Miner) runQuery(ctx context.Context, query, department string, depth int) queryResult {
	m.pipe.Record(m.pipe.Queries)

	suggestions, err := m.source.Suggest(ctx, query, department)
	if err != nil {
		if ctx.Err() != nil {
			return queryResult{query: query, depth: depth, skipped: true}
		}
		m.pipe.Record(m.pipe.Skips)
		m.log.Warn("query skipped after fetch failure",
			"query", query,
			"department", department,
			"exhausted", errors.IsExhausted(err),
			"error", err,
		)
		return queryResult{query: query, depth: depth, skipped: true}
	}

	return queryResult{query: query, depth: depth, suggestions: suggestions}
}

// persist writes one query's observations and tallies new vs known keywords.
func (m *Miner) persist(ctx context.Context, result queryResult, department string, report *Report) error {
	for _, s := range result.suggestions {
		known, err := m.repo.KeywordExists(ctx, s.Value, department)
		if err != nil {
			return err
		}

		obs := &store.KeywordObservation{
			Keyword:     s.Value,
			Department:  department,
			SourceQuery: result.query,
			Depth:       result.depth,
			Position:    s.Position,
			ObservedAt:  m.now(),
		}
		if err := m.repo.SaveObservation(ctx, obs); err != nil {
			return err
		}

		m.pipe.Record(m.pipe.Observations)
		report.Observations++
		if known {
			report.KnownKeywords++
		} else {
			report.NewKeywords++
			m.pipe.Record(m.pipe.NewKeywords)
		}

		m.publish(ctx, bus.TopicMineObservation, obs)
	}
	return nil
}

// nextFrontier builds the next level's queries from unique suggestions,
// each expanded base-plus-suffixes like the seed was.
func (m *Miner) nextFrontier(results []queryResult, department string, seen map[string]struct{}) []string {
	var next []string
	for _, result := range results {
		for _, s := range result.suggestions {
			for _, query := range expansionQueries(s.Value, true) {
				key := frontierKey(query, department)
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				next = append(next, query)
			}
		}
	}
	return next
}

// expansionQueries returns the base query plus, when expand is set, one
// query per single-letter suffix.
func expansionQueries(base string, expand bool) []string {
	queries := make([]string, 0, 1+len(alphabet))
	queries = append(queries, base)
	if expand {
		for _, letter := range alphabet {
			queries = append(queries, base+" "+string(letter))
		}
	}
	return queries
}

func markSeen(seen map[string]struct{}, queries []string, department string) {
	for _, query := range queries {
		seen[frontierKey(query, department)] = struct{}{}
	}
}

func frontierKey(query, department string) string {
	return query + "\x00" + department
}

func (m *Miner) publish(ctx context.Context, topic string, payload any) {
	if m.events == nil {
		return
	}
	if err := m.events.Publish(ctx, topic, bus.NewEvent(topic, "miner", payload)); err != nil {
		m.log.Warn("event publish failed", "topic", topic, "error", err)
	}
}
