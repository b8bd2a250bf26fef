// Package analytics derives gap and trend reports from persisted history.
// Both operations are pure reads; nothing here mutates stored data.
package analytics

import (
	"context"
	"sort"
	"time"

	"github.com/kwscout/kw-scout/internal/pkg/logger"
	"github.com/kwscout/kw-scout/internal/store"
)

// Repository is the slice of storage analytics reads from.
type Repository interface {
	AdsKeywords(ctx context.Context) ([]store.AdsAggregate, error)
	ScoresSince(ctx context.Context, department string, since time.Time) ([]store.KeywordScore, error)
}

// Gap is a keyword with advertising exposure but no conversions: spend that
// bought impressions and produced nothing.
type Gap struct {
	Keyword     string
	Impressions int64
	Clicks      int64
	Spend       float64
}

// Direction labels a trend delta.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionFlat Direction = "flat"
)

// flatBand is the score delta treated as noise rather than movement.
const flatBand = 2

// Trend is one keyword's score movement across a window, comparing the
// newest in-window record against the oldest.
type Trend struct {
	Keyword   string
	Oldest    int
	Newest    int
	Delta     int
	Direction Direction
}

// Analyzer computes gap and trend reports.
type Analyzer struct {
	repo Repository
	log  *logger.Logger
}

// New creates an analyzer.
func New(repo Repository, log *logger.Logger) *Analyzer {
	return &Analyzer{repo: repo, log: log}
}

// Gaps returns keywords with impressions > 0 and orders == 0, ranked by
// spend descending, surfacing wasted advertising spend.
func (a *Analyzer) Gaps(ctx context.Context) ([]Gap, error) {
	aggs, err := a.repo.AdsKeywords(ctx)
	if err != nil {
		return nil, err
	}

	var gaps []Gap
	for _, agg := range aggs {
		if agg.Impressions > 0 && agg.Orders == 0 {
			gaps = append(gaps, Gap{
				Keyword:     agg.Keyword,
				Impressions: agg.Impressions,
				Clicks:      agg.Clicks,
				Spend:       agg.Spend,
			})
		}
	}

	// AdsKeywords already orders by spend descending; keep it explicit so
	// the contract does not silently depend on the storage layer.
	sort.SliceStable(gaps, func(i, j int) bool { return gaps[i].Spend > gaps[j].Spend })

	a.log.Debug("gap report computed", "keywords", len(aggs), "gaps", len(gaps))
	return gaps, nil
}

// Trends compares each keyword's newest in-window score against its oldest.
// Keywords with fewer than two in-window records are omitted: a single
// point has no direction. Results are ordered by delta descending.
func (a *Analyzer) Trends(ctx context.Context, department string, windowDays int) ([]Trend, error) {
	if windowDays < 1 {
		windowDays = 1
	}
	since := time.Now().AddDate(0, 0, -windowDays)

	scores, err := a.repo.ScoresSince(ctx, department, since)
	if err != nil {
		return nil, err
	}

	// ScoresSince is ordered oldest first, so the first record per keyword
	// is its oldest and the last its newest.
	oldest := map[string]int{}
	newest := map[string]int{}
	counts := map[string]int{}
	for _, score := range scores {
		if _, seen := oldest[score.Keyword]; !seen {
			oldest[score.Keyword] = score.Score
		}
		newest[score.Keyword] = score.Score
		counts[score.Keyword]++
	}

	var trends []Trend
	for keyword, count := range counts {
		if count < 2 {
			continue
		}

		delta := newest[keyword] - oldest[keyword]
		direction := DirectionFlat
		switch {
		case delta > flatBand:
			direction = DirectionUp
		case delta < -flatBand:
			direction = DirectionDown
		}

		trends = append(trends, Trend{
			Keyword:   keyword,
			Oldest:    oldest[keyword],
			Newest:    newest[keyword],
			Delta:     delta,
			Direction: direction,
		})
	}

	sort.Slice(trends, func(i, j int) bool {
		if trends[i].Delta != trends[j].Delta {
			return trends[i].Delta > trends[j].Delta
		}
		return trends[i].Keyword < trends[j].Keyword
	})

	return trends, nil
}
