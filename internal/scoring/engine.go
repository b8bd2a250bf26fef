// Package scoring fuses mining, competition, advertising, and search-volume
// evidence into one 0-100 composite score per keyword.
//
// Missing signals are never penalized directly: the weight table is keyed by
// which signals are present and renormalized to sum 1, so a keyword with
// only mining data is scored on the same scale as one with all four. Every
// computation appends a fresh timestamped record with the exact signal set
// used, so consumers can tell poor opportunity from data starvation.
package scoring

import (
	"context"
	"math"
	"time"

	"github.com/kwscout/kw-scout/internal/bus"
	"github.com/kwscout/kw-scout/internal/collector"
	"github.com/kwscout/kw-scout/internal/estimator"
	"github.com/kwscout/kw-scout/internal/metrics"
	"github.com/kwscout/kw-scout/internal/pkg/errors"
	"github.com/kwscout/kw-scout/internal/pkg/logger"
	"github.com/kwscout/kw-scout/internal/store"
)

// Repository is the slice of storage the engine reads evidence from and
// writes scores through.
type Repository interface {
	AggregateKeyword(ctx context.Context, keyword, department string) (*store.KeywordAggregate, error)
	ListKeywords(ctx context.Context, department string) ([]store.KeywordAggregate, error)
	LatestSnapshots(ctx context.Context, department string) ([]store.BookSnapshot, error)
	AdsAggregate(ctx context.Context, keyword string) (*store.AdsAggregate, error)
	AdsKeywords(ctx context.Context) ([]store.AdsAggregate, error)
	SaveScore(ctx context.Context, score *store.KeywordScore) error
}

// Engine computes and persists composite keyword scores.
type Engine struct {
	repo   Repository
	est    *estimator.Estimator
	volume collector.VolumeProvider // may be nil
	events bus.Bus                  // may be nil
	pipe   *metrics.Pipeline
	log    *logger.Logger
}

// New creates a scoring engine. volume and events may be nil.
func New(repo Repository, est *estimator.Estimator, volume collector.VolumeProvider, events bus.Bus, pipe *metrics.Pipeline, log *logger.Logger) *Engine {
	if pipe == nil {
		pipe = metrics.NewPipeline()
	}
	return &Engine{
		repo:   repo,
		est:    est,
		volume: volume,
		events: events,
		pipe:   pipe,
		log:    log,
	}
}

// Score gathers all available evidence for a keyword as of the given time,
// computes the composite, and persists a fresh timestamped record.
//
// Scoring is deterministic for identical stored inputs and asOf; only the
// persisted record is new. A keyword with no evidence in any signal
// category returns a scoring data gap error.
func (e *Engine) Score(ctx context.Context, keyword, department string, asOf time.Time) (*store.KeywordScore, error) {
	signals, err := e.gather(ctx, keyword, department)
	if err != nil {
		return nil, err
	}

	score, err := Compute(keyword, department, signals, asOf)
	if err != nil {
		return nil, err
	}

	if err := e.repo.SaveScore(ctx, score); err != nil {
		return nil, err
	}

	e.pipe.Record(e.pipe.Scores)
	e.publish(ctx, score)
	return score, nil
}

// ScoreAll scores every keyword with any evidence in a department: the
// mined corpus plus keywords that only exist in advertising history. Data
// gaps on individual keywords are counted and skipped, never fatal.
func (e *Engine) ScoreAll(ctx context.Context, department string, asOf time.Time) (scored, skipped int, err error) {
	keywords, err := e.repo.ListKeywords(ctx, department)
	if err != nil {
		return 0, 0, err
	}

	targets := make(map[string]struct{}, len(keywords))
	for _, agg := range keywords {
		targets[agg.Keyword] = struct{}{}
	}

	// Ads-only keywords still deserve a score.
	adsKeywords, err := e.repo.AdsKeywords(ctx)
	if err != nil {
		return 0, 0, err
	}
	for _, agg := range adsKeywords {
		targets[agg.Keyword] = struct{}{}
	}

	for keyword := range targets {
		if err := ctx.Err(); err != nil {
			return scored, skipped, err
		}

		if _, err := e.Score(ctx, keyword, department, asOf); err != nil {
			if errors.Is(err, errors.CodeScoringDataGap) {
				skipped++
				continue
			}
			return scored, skipped, err
		}
		scored++
	}

	e.log.Info("scoring run completed",
		"department", department,
		"scored", scored,
		"skipped", skipped,
	)
	return scored, skipped, nil
}

// Signals bundles the evidence gathered for one keyword. Nil members are
// absent signal categories.
type Signals struct {
	Mining      *MiningSignal
	Competition *CompetitionSignal
	Ads         *AdsSignal
	Volume      *VolumeSignal
}

// Set returns the signal combination present.
func (s Signals) Set() SignalSet {
	var set SignalSet
	if s.Mining != nil {
		set |= SignalMining
	}
	if s.Competition != nil {
		set |= SignalCompetition
	}
	if s.Ads != nil {
		set |= SignalAds
	}
	if s.Volume != nil {
		set |= SignalVolume
	}
	return set
}

// gather collects whatever evidence exists; absence is not an error.
func (e *Engine) gather(ctx context.Context, keyword, department string) (Signals, error) {
	var signals Signals

	agg, err := e.repo.AggregateKeyword(ctx, keyword, department)
	switch {
	case err == nil:
		signals.Mining = &MiningSignal{
			BestPosition: agg.BestPosition,
			Observations: agg.Observations,
			LastSeen:     agg.LastSeen,
		}
	case !errors.IsNotFound(err):
		return signals, err
	}

	snapshots, err := e.repo.LatestSnapshots(ctx, department)
	if err != nil {
		return signals, err
	}
	if len(snapshots) > 0 {
		competition := &CompetitionSignal{}
		for _, snap := range snapshots {
			demand := e.est.Estimate(snap.Rank, department)
			competition.Competitors = append(competition.Competitors, Competitor{
				DailySales:  demand.DailySales,
				ReviewCount: snap.ReviewCount,
				Price:       snap.Price,
			})
		}
		signals.Competition = competition
	}

	ads, err := e.repo.AdsAggregate(ctx, keyword)
	if err != nil {
		return signals, err
	}
	if ads != nil {
		signals.Ads = &AdsSignal{
			Impressions: ads.Impressions,
			Clicks:      ads.Clicks,
			Orders:      ads.Orders,
			Spend:       ads.Spend,
			Sales:       ads.Sales,
		}
	}

	if e.volume != nil && e.volume.Available() {
		est, err := e.volume.Volume(ctx, keyword)
		switch {
		case err != nil:
			// Provider failure downgrades to an absent signal.
			e.log.Warn("volume lookup failed, scoring without it",
				"keyword", keyword, "error", err)
		case est.Confidence != collector.VolumeConfidenceNone:
			signals.Volume = &VolumeSignal{MonthlyVolume: est.MonthlyVolume}
		}
	}

	return signals, nil
}

// Compute turns gathered signals into a score record. Pure; exported so
// callers with pre-gathered evidence can score without storage.
func Compute(keyword, department string, signals Signals, asOf time.Time) (*store.KeywordScore, error) {
	present := signals.Set()
	if present == 0 {
		return nil, errors.ScoringDataGapError(keyword)
	}

	weights := Weights(present)
	score := &store.KeywordScore{
		Keyword:    keyword,
		Department: department,
		ComputedAt: asOf,
	}

	var composite float64
	if signals.Mining != nil {
		score.Mining = signals.Mining.Subscore(asOf)
		score.UsedMining = true
		composite += weights.Mining * score.Mining
	}
	if signals.Competition != nil {
		score.Competition = signals.Competition.Subscore()
		score.UsedCompetition = true
		composite += weights.Competition * score.Competition
	}
	if signals.Ads != nil {
		score.Ads = signals.Ads.Subscore()
		score.UsedAds = true
		composite += weights.Ads * score.Ads
	}
	if signals.Volume != nil {
		score.Volume = signals.Volume.Subscore()
		score.UsedVolume = true
		composite += weights.Volume * score.Volume
	}

	score.Score = int(math.Max(0, math.Min(100, math.Round(composite))))
	return score, nil
}

func (e *Engine) publish(ctx context.Context, score *store.KeywordScore) {
	if e.events == nil {
		return
	}
	event := bus.NewEvent(bus.TopicScoreComputed, "scoring", score)
	if err := e.events.Publish(ctx, bus.TopicScoreComputed, event); err != nil {
		e.log.Warn("event publish failed", "topic", bus.TopicScoreComputed, "error", err)
	}
}
