package estimator

import (
	"math"
	"testing"
)

func TestEstimate_UnrankedSentinel(t *testing.T) {
	e := New()
	for _, rank := range []int{0, -1, -100} {
		d := e.Estimate(rank, "ebook")
		if d.DailySales != 0 || d.Confidence != ConfidenceNone {
			t.Errorf("Estimate(%d) = %+v, want zero demand with confidence none", rank, d)
		}
	}
}

func TestEstimate_CalibratedPointsExact(t *testing.T) {
	e := New()
	tests := []struct {
		rank  int
		sales float64
	}{
		{1, 3500},
		{100, 300},
		{10000, 10},
		{300000, 0.3},
	}
	for _, tt := range tests {
		d := e.Estimate(tt.rank, "ebook")
		if d.DailySales != tt.sales {
			t.Errorf("Estimate(%d).DailySales = %v, want calibrated %v", tt.rank, d.DailySales, tt.sales)
		}
		if d.Confidence != ConfidenceHigh {
			t.Errorf("Estimate(%d).Confidence = %v, want high", tt.rank, d.Confidence)
		}
	}
}

func TestEstimate_InterpolationBetweenPoints(t *testing.T) {
	e := New()

	// Between the (1000, 60) and (5000, 18) samples.
	d := e.Estimate(2000, "ebook")
	if d.DailySales >= 60 || d.DailySales <= 18 {
		t.Errorf("Estimate(2000).DailySales = %v, want strictly between neighbors (18, 60)", d.DailySales)
	}
	if d.Confidence != ConfidenceHigh {
		t.Errorf("Confidence = %v, want high inside calibrated span", d.Confidence)
	}

	// Log-log interpolation at the geometric midpoint of the ranks gives
	// the geometric midpoint of the sales values.
	mid := e.Estimate(int(math.Sqrt(1000*5000)), "ebook")
	want := math.Sqrt(60 * 18)
	if math.Abs(mid.DailySales-want)/want > 0.02 {
		t.Errorf("geometric midpoint sales = %v, want about %v", mid.DailySales, want)
	}
}

func TestEstimate_ExtrapolationBeyondTable(t *testing.T) {
	e := New()

	// ebook is calibrated up to rank 300,000.
	d := e.Estimate(500000, "ebook")
	if d.Confidence != ConfidenceLow {
		t.Errorf("Confidence = %v, want low when extrapolated", d.Confidence)
	}
	if d.DailySales >= 0.3 {
		t.Errorf("DailySales = %v, want below the last calibrated value 0.3", d.DailySales)
	}
	if d.DailySales < salesFloor {
		t.Errorf("DailySales = %v, want clamped at floor %v", d.DailySales, salesFloor)
	}

	// Deep extrapolation hits the floor instead of going to zero.
	deep := e.Estimate(100000000, "ebook")
	if deep.DailySales != salesFloor {
		t.Errorf("deep extrapolation = %v, want floor %v", deep.DailySales, salesFloor)
	}
}

func TestEstimate_UnknownCategoryFallsBack(t *testing.T) {
	e := New()

	d := e.Estimate(100, "audiobook")
	if d.Confidence != ConfidenceLow {
		t.Errorf("Confidence = %v, want low on generic fallback", d.Confidence)
	}
	if d.DailySales != 250 {
		t.Errorf("DailySales = %v, want generic table value 250", d.DailySales)
	}
}

func TestEstimate_MonotonicAcrossFullDomain(t *testing.T) {
	e := New()
	categories := append(e.Categories(), "unknown-category")

	for _, category := range categories {
		prev := math.Inf(1)
		// Sweep log-spaced ranks across and beyond every table.
		for rank := 1; rank <= 10000000; rank = rank*3/2 + 1 {
			d := e.Estimate(rank, category)
			if d.DailySales > prev {
				t.Fatalf("category %s: Estimate(%d) = %v exceeds previous %v; model must be monotonic",
					category, rank, d.DailySales, prev)
			}
			prev = d.DailySales
		}
	}
}

func TestMonthlyRevenue_RoyaltyBands(t *testing.T) {
	tests := []struct {
		name       string
		dailySales float64
		price      float64
		want       float64
	}{
		{"in band gets 70 percent", 10, 4.99, 10 * 30 * 4.99 * 0.70},
		{"band floor", 10, 2.99, 10 * 30 * 2.99 * 0.70},
		{"band ceiling", 10, 9.99, 10 * 30 * 9.99 * 0.70},
		{"below band gets 35 percent", 10, 0.99, 10 * 30 * 0.99 * 0.35},
		{"above band gets 35 percent", 10, 14.99, 10 * 30 * 14.99 * 0.35},
		{"no sales no revenue", 0, 4.99, 0},
		{"free book no revenue", 10, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MonthlyRevenue(tt.dailySales, tt.price)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("MonthlyRevenue(%v, %v) = %v, want %v", tt.dailySales, tt.price, got, tt.want)
			}
		})
	}
}

func TestVelocity(t *testing.T) {
	tests := []struct {
		dailySales float64
		want       string
	}{
		{500, "very hot"},
		{100, "very hot"},
		{30, "hot"},
		{10, "steady"},
		{2, "slow"},
		{0.3, "trickle"},
		{0, "none"},
	}
	for _, tt := range tests {
		if got := Velocity(tt.dailySales); got != tt.want {
			t.Errorf("Velocity(%v) = %q, want %q", tt.dailySales, got, tt.want)
		}
	}
}
