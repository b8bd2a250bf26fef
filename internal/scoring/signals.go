package scoring

import (
	"math"
	"time"
)

// Signal transform tuning. Each transform maps its raw evidence onto
// [0, 100] monotonically; the constants pick where the curve saturates.
const (
	positionDecay    = 0.30 // per suggestion position past the first
	frequencyHalf    = 5.0  // observations at which frequency reaches half score
	staleAfter       = 30 * 24 * time.Hour
	stalePenalty     = 0.8
	demandHalfSales  = 10.0  // competitor daily sales at which demand opportunity halves
	reviewsHalfCount = 150.0 // competitor review count at which saturation halves
	targetConversion = 0.20  // orders per click treated as a perfect ad signal
	targetCTR        = 0.10  // clicks per impression treated as a perfect ad signal
	volumeLogCeiling = 6.0   // log10 of the monthly volume mapped to 100
)

// MiningSignal aggregates autocomplete evidence for one keyword.
type MiningSignal struct {
	BestPosition int
	Observations int
	LastSeen     time.Time
}

// Subscore maps mining evidence onto [0, 100]. Better (lower) suggestion
// positions and more observations raise it; keywords not seen within 30
// days of asOf are discounted.
func (s *MiningSignal) Subscore(asOf time.Time) float64 {
	if s.BestPosition < 1 {
		return 0
	}

	position := 100 / (1 + positionDecay*float64(s.BestPosition-1))
	frequency := 100 * float64(s.Observations) / (float64(s.Observations) + frequencyHalf)

	score := 0.7*position + 0.3*frequency
	if asOf.Sub(s.LastSeen) > staleAfter {
		score *= stalePenalty
	}
	return clamp(score)
}

// Competitor is one tracked book's latest profile.
type Competitor struct {
	DailySales  float64
	ReviewCount int
	Price       float64
}

// CompetitionSignal profiles the tracked books competing in the keyword's
// department.
type CompetitionSignal struct {
	Competitors []Competitor
}

// Subscore maps competitor strength onto [0, 100] as opportunity: lower
// competitor demand and review saturation mean more room, hence a higher
// score.
func (s *CompetitionSignal) Subscore() float64 {
	if len(s.Competitors) == 0 {
		return 0
	}

	var totalSales, totalReviews float64
	for _, c := range s.Competitors {
		totalSales += c.DailySales
		totalReviews += float64(c.ReviewCount)
	}
	n := float64(len(s.Competitors))
	avgSales := totalSales / n
	avgReviews := totalReviews / n

	demand := 100 * demandHalfSales / (demandHalfSales + avgSales)
	saturation := 100 * reviewsHalfCount / (reviewsHalfCount + avgReviews)

	return clamp(0.6*demand + 0.4*saturation)
}

// AdsSignal sums advertising performance for one keyword.
type AdsSignal struct {
	Impressions int64
	Clicks      int64
	Orders      int64
	Spend       float64
	Sales       float64
}

// Subscore maps advertising performance onto [0, 100]. Orders per click
// dominates; clickthrough rate contributes the rest. A keyword with
// impressions but no clicks scores 0: exposure without engagement is not
// evidence of opportunity.
func (s *AdsSignal) Subscore() float64 {
	if s.Impressions <= 0 {
		return 0
	}

	ctr := float64(s.Clicks) / float64(s.Impressions)
	ctrScore := 100 * math.Min(1, ctr/targetCTR)

	var convScore float64
	if s.Clicks > 0 {
		conversion := float64(s.Orders) / float64(s.Clicks)
		convScore = 100 * math.Min(1, conversion/targetConversion)
	}

	return clamp(0.7*convScore + 0.3*ctrScore)
}

// VolumeSignal is the paid provider's monthly search volume.
type VolumeSignal struct {
	MonthlyVolume int64
}

// Subscore maps monthly volume onto [0, 100] on a log scale, saturating at
// one million searches per month.
func (s *VolumeSignal) Subscore() float64 {
	if s.MonthlyVolume <= 0 {
		return 0
	}
	return clamp(100 * math.Log10(1+float64(s.MonthlyVolume)) / volumeLogCeiling)
}

func clamp(score float64) float64 {
	return math.Max(0, math.Min(100, score))
}
