package scoring

// SignalSet is a bit set of the signal categories present for a keyword.
type SignalSet uint8

const (
	SignalMining SignalSet = 1 << iota
	SignalCompetition
	SignalAds
	SignalVolume
)

// Has reports whether the set contains the given signal.
func (s SignalSet) Has(signal SignalSet) bool {
	return s&signal != 0
}

// WeightVector assigns one weight per signal category, in the order mining,
// competition, ads, volume. Absent signals carry weight 0.
type WeightVector struct {
	Mining      float64
	Competition float64
	Ads         float64
	Volume      float64
}

// weightTable enumerates the policy for every non-empty signal combination.
// Advertising evidence is the strongest opportunity indicator when present;
// mining breadth and paid volume follow; competition profiling refines.
// Each row is renormalized to sum 1 before use, so rows only need to encode
// the relative emphasis among the signals they include.
var weightTable = map[SignalSet]WeightVector{
	// Single signal: that signal carries everything.
	SignalMining:      {Mining: 1},
	SignalCompetition: {Competition: 1},
	SignalAds:         {Ads: 1},
	SignalVolume:      {Volume: 1},

	// Pairs.
	SignalMining | SignalCompetition: {Mining: 0.55, Competition: 0.45},
	SignalMining | SignalAds:         {Mining: 0.40, Ads: 0.60},
	SignalMining | SignalVolume:      {Mining: 0.55, Volume: 0.45},
	SignalCompetition | SignalAds:    {Competition: 0.35, Ads: 0.65},
	SignalCompetition | SignalVolume: {Competition: 0.50, Volume: 0.50},
	SignalAds | SignalVolume:         {Ads: 0.65, Volume: 0.35},

	// Triples.
	SignalMining | SignalCompetition | SignalAds:    {Mining: 0.30, Competition: 0.25, Ads: 0.45},
	SignalMining | SignalCompetition | SignalVolume: {Mining: 0.40, Competition: 0.30, Volume: 0.30},
	SignalMining | SignalAds | SignalVolume:         {Mining: 0.30, Ads: 0.45, Volume: 0.25},
	SignalCompetition | SignalAds | SignalVolume:    {Competition: 0.25, Ads: 0.45, Volume: 0.30},

	// Full house.
	SignalMining | SignalCompetition | SignalAds | SignalVolume: {
		Mining: 0.25, Competition: 0.20, Ads: 0.35, Volume: 0.20,
	},
}

// Weights returns the renormalized weight vector for a signal combination.
// The result always sums to 1 for any non-empty set; the empty set returns
// the zero vector.
func Weights(present SignalSet) WeightVector {
	row, ok := weightTable[present]
	if !ok {
		return WeightVector{}
	}

	total := row.Mining + row.Competition + row.Ads + row.Volume
	if total == 0 {
		return WeightVector{}
	}
	return WeightVector{
		Mining:      row.Mining / total,
		Competition: row.Competition / total,
		Ads:         row.Ads / total,
		Volume:      row.Volume / total,
	}
}

// Sum returns the total of all weights.
func (w WeightVector) Sum() float64 {
	return w.Mining + w.Competition + w.Ads + w.Volume
}
