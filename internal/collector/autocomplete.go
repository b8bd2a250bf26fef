package collector

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/kwscout/kw-scout/internal/fetch"
	"github.com/kwscout/kw-scout/internal/pkg/errors"
	"github.com/kwscout/kw-scout/internal/pkg/logger"
)

// AutocompleteClient mines the marketplace suggestion endpoint.
type AutocompleteClient struct {
	baseURL       string
	marketplaceID string
	fetcher       *fetch.Client
	log           *logger.Logger
}

// NewAutocompleteClient creates an autocomplete collector.
func NewAutocompleteClient(baseURL, marketplaceID string, fetcher *fetch.Client, log *logger.Logger) *AutocompleteClient {
	return &AutocompleteClient{
		baseURL:       baseURL,
		marketplaceID: marketplaceID,
		fetcher:       fetcher,
		log:           log.WithSource(SourceAutocomplete),
	}
}

// suggestionPayload mirrors the completion endpoint's response shape.
type suggestionPayload struct {
	Suggestions []struct {
		Value string `json:"value"`
	} `json:"suggestions"`
}

// Suggest returns the ordered completions for a query, normalized to
// lowercase trimmed text with 1-based positions.
func (c *AutocompleteClient) Suggest(ctx context.Context, query, department string) ([]Suggestion, error) {
	params := url.Values{}
	params.Set("mid", c.marketplaceID)
	params.Set("alias", DepartmentAlias(department))
	params.Set("prefix", query)

	body, err := c.fetcher.Do(ctx, fetch.Request{
		Source: SourceAutocomplete,
		URL:    c.baseURL,
		Query:  params,
	})
	if err != nil {
		return nil, err
	}

	var payload suggestionPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.PermanentFetchError("malformed suggestion payload", err)
	}

	suggestions := make([]Suggestion, 0, len(payload.Suggestions))
	for i, s := range payload.Suggestions {
		value := strings.ToLower(strings.TrimSpace(s.Value))
		if value == "" {
			continue
		}
		suggestions = append(suggestions, Suggestion{
			Value:    value,
			Position: i + 1,
		})
	}

	c.log.Debug("suggestions fetched", "query", query, "count", len(suggestions))
	return suggestions, nil
}
