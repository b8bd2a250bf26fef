package store

import "time"

// SeedKeyword is a user-supplied starting phrase for mining. Identity is
// (keyword, department); seeds are never mutated after creation.
type SeedKeyword struct {
	ID         int64
	Keyword    string
	Department string
	CreatedAt  time.Time

	// LastMinedAt is zero until the seed's first mining run completes.
	LastMinedAt time.Time
}

// KeywordObservation is one autocomplete sighting of a keyword. Append-only;
// the same keyword text may be observed many times and is aggregated at read
// time, never merged.
type KeywordObservation struct {
	ID          int64
	Keyword     string
	Department  string
	SourceQuery string
	Depth       int
	Position    int // 1-based rank within the source query's suggestions
	ObservedAt  time.Time
}

// KeywordAggregate is the read-time rollup of all observations for one
// (keyword, department).
type KeywordAggregate struct {
	Keyword        string
	Department     string
	Observations   int
	BestPosition   int
	LatestPosition int
	FirstSeen      time.Time
	LastSeen       time.Time
}

// TrackedBook is a marketplace listing under rank tracking.
type TrackedBook struct {
	ID         int64
	BookID     string
	Title      string
	Department string
	IsOwn      bool
	AddedAt    time.Time
}

// BookSnapshot is one point-in-time capture of a tracked book. Append-only;
// ordering by CapturedAt defines the book's trend sequence. Rank 0 means
// unranked.
type BookSnapshot struct {
	ID            int64
	BookID        string
	Rank          int
	Price         float64
	ReviewCount   int
	Rating        float64
	EstDailySales float64
	CapturedAt    time.Time
}

// AdsSearchTermRecord is one imported advertising performance row, joined to
// the keyword corpus on normalized keyword text.
type AdsSearchTermRecord struct {
	ID          int64
	Keyword     string
	Campaign    string
	Impressions int64
	Clicks      int64
	Orders      int64
	Spend       float64
	Sales       float64
	StartDate   time.Time
	EndDate     time.Time
	ImportedAt  time.Time
}

// AdsAggregate sums advertising performance across all imported rows for one
// keyword.
type AdsAggregate struct {
	Keyword     string
	Impressions int64
	Clicks      int64
	Orders      int64
	Spend       float64
	Sales       float64
}

// KeywordScore is one composite scoring result. Recomputations append fresh
// timestamped records; history is never overwritten.
type KeywordScore struct {
	ID         int64
	Keyword    string
	Department string
	Score      int

	// Per-signal sub-scores, each in [0, 100]. Only meaningful when the
	// matching Used flag is set.
	Mining      float64
	Competition float64
	Ads         float64
	Volume      float64

	UsedMining      bool
	UsedCompetition bool
	UsedAds         bool
	UsedVolume      bool

	ComputedAt time.Time
}
