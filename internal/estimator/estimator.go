// Package estimator converts an observed sales rank into an estimated
// demand figure.
//
// Rank and unit sales follow an inverse power law within a category, so the
// model holds a small calibration table per category and interpolates
// log-log between the two nearest points. Beyond the table's bounds it
// extrapolates with the end segment's slope, clamped to sane limits. The
// estimator is a pure function with no network or storage dependency.
package estimator

import (
	"math"
	"sort"
)

// Confidence grades an estimate.
type Confidence string

const (
	ConfidenceNone Confidence = "none"
	ConfidenceLow  Confidence = "low"
	ConfidenceHigh Confidence = "high"
)

// Demand is an estimated sales figure for one rank observation.
type Demand struct {
	DailySales float64
	Confidence Confidence
}

// point is one calibration sample: at this rank, roughly this many unit
// sales per day.
type point struct {
	rank  float64
	sales float64
}

// calibration is a category's sample set, sorted by rank ascending with
// strictly decreasing sales.
type calibration []point

// Calibration samples per category, drawn from published rank-to-sales
// observations for the US marketplace. Values are coarse by nature; the
// model only promises monotonicity and the right order of magnitude.
var categoryTables = map[string]calibration{
	"ebook": {
		{1, 3500}, {5, 2000}, {10, 1250}, {50, 500}, {100, 300},
		{500, 100}, {1000, 60}, {5000, 18}, {10000, 10},
		{50000, 2.5}, {100000, 1.2}, {300000, 0.3},
	},
	"print": {
		{1, 2500}, {10, 800}, {100, 180}, {1000, 45},
		{10000, 8}, {100000, 0.8}, {500000, 0.1},
	},
}

// genericTable is the cross-category fallback for unknown categories.
var genericTable = calibration{
	{1, 3000}, {10, 1000}, {100, 250}, {1000, 50},
	{10000, 9}, {100000, 1.0},
}

// Extrapolation clamps.
const (
	salesFloor       = 0.01
	salesCeilingMult = 1.5 // of the best calibrated value
)

// Estimator estimates daily sales from sales rank.
type Estimator struct {
	tables  map[string]calibration
	generic calibration
}

// New returns an estimator with the built-in calibration tables.
func New() *Estimator {
	return &Estimator{tables: categoryTables, generic: genericTable}
}

// Categories lists the categories with dedicated calibration tables.
func (e *Estimator) Categories() []string {
	names := make([]string, 0, len(e.tables))
	for name := range e.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Estimate returns the daily-sales estimate for a rank within a category.
//
// Rank <= 0 is the unranked sentinel and yields zero demand with confidence
// "none". Unknown categories fall back to the generic table with confidence
// capped at "low", as do ranks outside the calibrated span.
func (e *Estimator) Estimate(rank int, category string) Demand {
	if rank <= 0 {
		return Demand{DailySales: 0, Confidence: ConfidenceNone}
	}

	table, known := e.tables[category]
	if !known {
		table = e.generic
	}

	sales, interpolated := table.salesAt(float64(rank))

	confidence := ConfidenceHigh
	if !known || !interpolated {
		confidence = ConfidenceLow
	}
	return Demand{DailySales: sales, Confidence: confidence}
}

// salesAt evaluates the calibration curve at rank. The boolean reports
// whether rank fell inside the calibrated span (true) or required
// extrapolation (false).
func (c calibration) salesAt(rank float64) (float64, bool) {
	first, last := c[0], c[len(c)-1]

	switch {
	case rank < first.rank:
		sales := extrapolate(c[0], c[1], rank)
		return min(sales, first.sales*salesCeilingMult), false
	case rank > last.rank:
		sales := extrapolate(c[len(c)-2], last, rank)
		return max(sales, salesFloor), false
	}

	// Binary search for the segment containing rank.
	hi := sort.Search(len(c), func(i int) bool { return c[i].rank >= rank })
	if c[hi].rank == rank {
		return c[hi].sales, true
	}
	return interpolate(c[hi-1], c[hi], rank), true
}

// interpolate evaluates the log-log line through a and b at rank.
func interpolate(a, b point, rank float64) float64 {
	t := (math.Log(rank) - math.Log(a.rank)) / (math.Log(b.rank) - math.Log(a.rank))
	logSales := math.Log(a.sales) + t*(math.Log(b.sales)-math.Log(a.sales))
	return math.Exp(logSales)
}

// extrapolate continues the log-log line through the end segment (a, b).
func extrapolate(a, b point, rank float64) float64 {
	return interpolate(a, b, rank)
}

// Royalty bands for digital list prices.
const (
	royaltyHigh    = 0.70
	royaltyLow     = 0.35
	royaltyBandMin = 2.99
	royaltyBandMax = 9.99
)

// MonthlyRevenue converts a daily-sales estimate and list price into
// estimated monthly author revenue using the standard royalty bands: 70%
// inside the $2.99-$9.99 window, 35% outside it.
func MonthlyRevenue(dailySales, price float64) float64 {
	if dailySales <= 0 || price <= 0 {
		return 0
	}
	royalty := royaltyLow
	if price >= royaltyBandMin && price <= royaltyBandMax {
		royalty = royaltyHigh
	}
	return dailySales * 30 * price * royalty
}

// Velocity labels a daily-sales estimate for human-readable reports.
func Velocity(dailySales float64) string {
	switch {
	case dailySales >= 100:
		return "very hot"
	case dailySales >= 25:
		return "hot"
	case dailySales >= 5:
		return "steady"
	case dailySales >= 1:
		return "slow"
	case dailySales > 0:
		return "trickle"
	default:
		return "none"
	}
}
