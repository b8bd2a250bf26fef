// Package collector provides typed clients for external signal sources.
//
// Every collector goes through the resilient fetch client, so rate limiting,
// retries, and endpoint rotation are uniform across sources. The scoring
// engine depends only on the typed records returned here, never on which
// collector produced them.
package collector

import (
	"context"
)

// Rate limiter source names, one bucket per collector.
const (
	SourceAutocomplete = "autocomplete"
	SourceProduct      = "product"
	SourceVolume       = "volume"
)

// Suggestion is one autocomplete completion with its 1-based rank position.
type Suggestion struct {
	Value    string
	Position int
}

// Autocomplete returns marketplace search-bar completions for a query.
type Autocomplete interface {
	Suggest(ctx context.Context, query, department string) ([]Suggestion, error)
}

// ProductPage holds the attributes captured from one product lookup.
type ProductPage struct {
	BookID      string
	Title       string
	Rank        int // 0 means unranked (below measurable threshold)
	Price       float64
	ReviewCount int
	Rating      float64
}

// ProductSource fetches current attributes for a marketplace listing.
type ProductSource interface {
	FetchProduct(ctx context.Context, bookID string) (*ProductPage, error)
}

// VolumeConfidence grades a search-volume estimate.
type VolumeConfidence string

const (
	VolumeConfidenceNone VolumeConfidence = "none"
	VolumeConfidenceLow  VolumeConfidence = "low"
	VolumeConfidenceHigh VolumeConfidence = "high"
)

// VolumeEstimate is a monthly search-volume figure from a paid provider.
type VolumeEstimate struct {
	Keyword       string
	MonthlyVolume int64
	Confidence    VolumeConfidence
}

// VolumeProvider is the optional paid search-volume source. Implementations
// must degrade gracefully: when credentials are absent, lookups return empty
// results rather than errors.
type VolumeProvider interface {
	Available() bool
	Volume(ctx context.Context, keyword string) (*VolumeEstimate, error)
	BulkVolume(ctx context.Context, keywords []string) (map[string]int64, error)
}

// departmentAliases maps user-facing department names to the marketplace
// search alias used on the wire.
var departmentAliases = map[string]string{
	"ebook": "digital-text",
	"print": "stripbooks",
	"all":   "aps",
}

// DepartmentAlias resolves a department name to its wire alias. Unknown
// departments pass through unchanged so power users can supply raw aliases.
func DepartmentAlias(department string) string {
	if alias, ok := departmentAliases[department]; ok {
		return alias
	}
	return department
}
