package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kwscout/kw-scout/internal/fetch"
	"github.com/kwscout/kw-scout/internal/pkg/errors"
	"github.com/kwscout/kw-scout/internal/pkg/logger"
)

// ProductClient fetches listing attributes from the product summary endpoint.
type ProductClient struct {
	baseURL string
	fetcher *fetch.Client
	log     *logger.Logger
}

// NewProductClient creates a product page collector.
func NewProductClient(baseURL string, fetcher *fetch.Client, log *logger.Logger) *ProductClient {
	return &ProductClient{
		baseURL: baseURL,
		fetcher: fetcher,
		log:     log.WithSource(SourceProduct),
	}
}

// productPayload mirrors the product summary response shape.
type productPayload struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	SalesRank   int     `json:"sales_rank"`
	Price       float64 `json:"price"`
	ReviewCount int     `json:"review_count"`
	Rating      float64 `json:"rating"`
}

// FetchProduct returns the current attributes for a listing. A rank of 0 in
// the result means the listing is below the measurable rank threshold.
func (c *ProductClient) FetchProduct(ctx context.Context, bookID string) (*ProductPage, error) {
	bookID = strings.ToUpper(strings.TrimSpace(bookID))
	if bookID == "" {
		return nil, errors.ValidationError("book ID must not be empty")
	}

	body, err := c.fetcher.Do(ctx, fetch.Request{
		Source: SourceProduct,
		URL:    fmt.Sprintf("%s/%s", c.baseURL, bookID),
	})
	if err != nil {
		return nil, err
	}

	// Bot checks come back as an HTML interstitial instead of the payload.
	if bytes.Contains(body, []byte("captcha")) {
		return nil, errors.PermanentFetchError("bot check page served instead of product data", nil)
	}

	var payload productPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.PermanentFetchError("malformed product payload", err)
	}

	page := &ProductPage{
		BookID:      bookID,
		Title:       payload.Title,
		Rank:        payload.SalesRank,
		Price:       payload.Price,
		ReviewCount: payload.ReviewCount,
		Rating:      payload.Rating,
	}
	if page.Rank < 0 {
		page.Rank = 0
	}

	c.log.Debug("product fetched", "book_id", bookID, "rank", page.Rank)
	return page, nil
}
