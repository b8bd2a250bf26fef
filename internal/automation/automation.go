// Package automation orchestrates the recurring pipeline run: capture book
// snapshots, re-mine stored seeds, then recompute every keyword score. Each
// stage tolerates partial failure; a run only aborts when its context does.
package automation

import (
	"context"
	"fmt"
	"time"

	"github.com/kwscout/kw-scout/internal/miner"
	"github.com/kwscout/kw-scout/internal/pkg/logger"
	"github.com/kwscout/kw-scout/internal/store"
	"github.com/kwscout/kw-scout/internal/tracker"
)

// BookSnapshotter captures tracked-book snapshots.
type BookSnapshotter interface {
	SnapshotAll(ctx context.Context, department string) ([]tracker.Result, error)
}

// SeedSource lists the seeds to re-mine and records completed runs.
type SeedSource interface {
	List(ctx context.Context, department string) ([]store.SeedKeyword, error)
	MarkMined(ctx context.Context, keyword, department string, minedAt time.Time) error
}

// KeywordMiner expands one seed.
type KeywordMiner interface {
	Mine(ctx context.Context, seed, department string, depth int) (*miner.Report, error)
}

// Scorer recomputes scores for a whole department.
type Scorer interface {
	ScoreAll(ctx context.Context, department string, asOf time.Time) (scored, skipped int, err error)
}

// Options shape one run.
type Options struct {
	Department string
	Depth      int
}

// Summary reports what a run accomplished and what it had to skip.
type Summary struct {
	StartedAt time.Time
	Duration  time.Duration

	SnapshotsCaptured int
	SnapshotsFailed   int

	SeedsMined   int
	SeedsFailed  int
	Queries      int
	Observations int
	NewKeywords  int

	KeywordsScored  int
	KeywordsSkipped int

	// Failures carries one message per non-fatal stage error.
	Failures []string
}

// Runner executes pipeline runs.
type Runner struct {
	books  BookSnapshotter
	seeds  SeedSource
	miner  KeywordMiner
	scorer Scorer
	log    *logger.Logger
	now    func() time.Time
}

// New creates a runner.
func New(books BookSnapshotter, seeds SeedSource, km KeywordMiner, scorer Scorer, log *logger.Logger) *Runner {
	return &Runner{
		books:  books,
		seeds:  seeds,
		miner:  km,
		scorer: scorer,
		log:    log,
		now:    time.Now,
	}
}

// Run executes one full pipeline pass.
func (r *Runner) Run(ctx context.Context, opts Options) (*Summary, error) {
	started := r.now()
	summary := &Summary{StartedAt: started}

	r.log.Info("pipeline run started", "department", opts.Department, "depth", opts.Depth)

	if err := r.snapshotStage(ctx, opts, summary); err != nil {
		return summary, err
	}
	if err := r.miningStage(ctx, opts, summary); err != nil {
		return summary, err
	}
	if err := r.scoringStage(ctx, opts, summary); err != nil {
		return summary, err
	}

	summary.Duration = r.now().Sub(started)
	r.log.Info("pipeline run finished",
		"duration", summary.Duration,
		"snapshots", summary.SnapshotsCaptured,
		"seeds", summary.SeedsMined,
		"scored", summary.KeywordsScored,
		"failures", len(summary.Failures),
	)

	return summary, nil
}

// Loop runs the pipeline at a fixed interval until the context ends. The
// first run starts immediately.
func (r *Runner) Loop(ctx context.Context, interval time.Duration, opts Options) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := r.Run(ctx, opts); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.log.Error("pipeline run failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r *Runner) snapshotStage(ctx context.Context, opts Options, summary *Summary) error {
	results, err := r.books.SnapshotAll(ctx, opts.Department)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		summary.Failures = append(summary.Failures, fmt.Sprintf("snapshot stage: %v", err))
		return nil
	}

	for _, result := range results {
		if result.Err != nil {
			summary.SnapshotsFailed++
			summary.Failures = append(summary.Failures,
				fmt.Sprintf("snapshot %s: %v", result.Book.BookID, result.Err))
			continue
		}
		summary.SnapshotsCaptured++
	}
	return nil
}

func (r *Runner) miningStage(ctx context.Context, opts Options, summary *Summary) error {
	seedList, err := r.seeds.List(ctx, opts.Department)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		summary.Failures = append(summary.Failures, fmt.Sprintf("listing seeds: %v", err))
		return nil
	}

	for _, seed := range seedList {
		report, err := r.miner.Mine(ctx, seed.Keyword, seed.Department, opts.Depth)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			summary.SeedsFailed++
			summary.Failures = append(summary.Failures,
				fmt.Sprintf("mining %q: %v", seed.Keyword, err))
			continue
		}

		summary.SeedsMined++
		summary.Queries += report.Queries
		summary.Observations += report.Observations
		summary.NewKeywords += report.NewKeywords

		if err := r.seeds.MarkMined(ctx, seed.Keyword, seed.Department, r.now()); err != nil {
			summary.Failures = append(summary.Failures,
				fmt.Sprintf("marking %q mined: %v", seed.Keyword, err))
		}
	}
	return nil
}

func (r *Runner) scoringStage(ctx context.Context, opts Options, summary *Summary) error {
	scored, skipped, err := r.scorer.ScoreAll(ctx, opts.Department, r.now())
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		summary.Failures = append(summary.Failures, fmt.Sprintf("scoring stage: %v", err))
		return nil
	}

	summary.KeywordsScored = scored
	summary.KeywordsSkipped = skipped
	return nil
}
