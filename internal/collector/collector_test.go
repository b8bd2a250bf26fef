package collector

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"

	"github.com/kwscout/kw-scout/internal/fetch"
	"github.com/kwscout/kw-scout/internal/pkg/errors"
	"github.com/kwscout/kw-scout/internal/pkg/logger"
)

type nopLimiter struct{}

func (nopLimiter) Acquire(context.Context, string) error { return nil }

func newTestFetcher(t *testing.T) *fetch.Client {
	t.Helper()

	cfg := fetch.DefaultConfig()
	cfg.MaxAttempts = 1
	c, err := fetch.New(cfg, nopLimiter{}, logger.New("error", "text"))
	if err != nil {
		t.Fatalf("fetch.New: %v", err)
	}

	httpmock.ActivateNonDefault(c.HTTPClient())
	t.Cleanup(httpmock.DeactivateAndReset)

	return c
}

func TestDepartmentAlias(t *testing.T) {
	tests := []struct {
		department string
		want       string
	}{
		{"ebook", "digital-text"},
		{"print", "stripbooks"},
		{"all", "aps"},
		{"digital-text", "digital-text"},
		{"stripbooks-intl-ship", "stripbooks-intl-ship"},
	}
	for _, tt := range tests {
		if got := DepartmentAlias(tt.department); got != tt.want {
			t.Errorf("DepartmentAlias(%q) = %q, want %q", tt.department, got, tt.want)
		}
	}
}

func TestSuggest_NormalizesAndOrders(t *testing.T) {
	fetcher := newTestFetcher(t)
	client := NewAutocompleteClient("https://example.com/suggestions", "ATVPDKIKX0DER", fetcher, logger.New("error", "text"))

	httpmock.RegisterResponder("GET", "https://example.com/suggestions",
		func(req *http.Request) (*http.Response, error) {
			q := req.URL.Query()
			if q.Get("mid") != "ATVPDKIKX0DER" {
				return httpmock.NewStringResponse(400, "missing mid"), nil
			}
			if q.Get("alias") != "digital-text" {
				return httpmock.NewStringResponse(400, "wrong alias"), nil
			}
			if q.Get("prefix") != "cozy mystery" {
				return httpmock.NewStringResponse(400, "wrong prefix"), nil
			}
			return httpmock.NewStringResponse(200, `{"suggestions":[
				{"value":"Cozy Mystery Books "},
				{"value":"cozy mystery series"},
				{"value":"  "},
				{"value":"cozy mystery with cats"}
			]}`), nil
		})

	got, err := client.Suggest(context.Background(), "cozy mystery", "ebook")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}

	want := []Suggestion{
		{Value: "cozy mystery books", Position: 1},
		{Value: "cozy mystery series", Position: 2},
		{Value: "cozy mystery with cats", Position: 4},
	}
	if len(got) != len(want) {
		t.Fatalf("suggestions = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("suggestion[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestSuggest_MalformedPayload(t *testing.T) {
	fetcher := newTestFetcher(t)
	client := NewAutocompleteClient("https://example.com/suggestions", "ATVPDKIKX0DER", fetcher, logger.New("error", "text"))

	httpmock.RegisterResponder("GET", "https://example.com/suggestions",
		httpmock.NewStringResponder(200, "<html>maintenance</html>"))

	_, err := client.Suggest(context.Background(), "cozy mystery", "ebook")
	if !errors.Is(err, errors.CodePermanentFetch) {
		t.Fatalf("err = %v, want PERMANENT_FETCH", err)
	}
}

func TestFetchProduct(t *testing.T) {
	fetcher := newTestFetcher(t)
	client := NewProductClient("https://example.com/products", fetcher, logger.New("error", "text"))

	httpmock.RegisterResponder("GET", "https://example.com/products/B0TESTBOOK",
		httpmock.NewStringResponder(200, `{
			"id": "B0TESTBOOK",
			"title": "The Lighthouse Keeper",
			"sales_rank": 4521,
			"price": 4.99,
			"review_count": 312,
			"rating": 4.4
		}`))

	got, err := client.FetchProduct(context.Background(), "  b0testbook ")
	if err != nil {
		t.Fatalf("FetchProduct: %v", err)
	}
	if got.BookID != "B0TESTBOOK" {
		t.Errorf("BookID = %q, want normalized uppercase", got.BookID)
	}
	if got.Rank != 4521 || got.Price != 4.99 || got.ReviewCount != 312 {
		t.Errorf("page = %+v, want payload fields carried over", got)
	}
}

func TestFetchProduct_EmptyID(t *testing.T) {
	fetcher := newTestFetcher(t)
	client := NewProductClient("https://example.com/products", fetcher, logger.New("error", "text"))

	_, err := client.FetchProduct(context.Background(), "   ")
	if !errors.Is(err, errors.CodeValidation) {
		t.Fatalf("err = %v, want VALIDATION", err)
	}
}

func TestFetchProduct_BotCheck(t *testing.T) {
	fetcher := newTestFetcher(t)
	client := NewProductClient("https://example.com/products", fetcher, logger.New("error", "text"))

	httpmock.RegisterResponder("GET", "https://example.com/products/B0TESTBOOK",
		httpmock.NewStringResponder(200, `<html><form action="/errors/validateCaptcha"></form></html>`))

	_, err := client.FetchProduct(context.Background(), "B0TESTBOOK")
	if !errors.Is(err, errors.CodePermanentFetch) {
		t.Fatalf("err = %v, want PERMANENT_FETCH on bot check", err)
	}
}

func TestVolume_UnconfiguredReturnsEmpty(t *testing.T) {
	fetcher := newTestFetcher(t)
	client := NewVolumeClient("https://api.example.com", "", "", fetcher, logger.New("error", "text"))

	if client.Available() {
		t.Fatal("Available() = true without credentials")
	}

	volumes, err := client.BulkVolume(context.Background(), []string{"cozy mystery"})
	if err != nil {
		t.Fatalf("BulkVolume: %v", err)
	}
	if len(volumes) != 0 {
		t.Errorf("volumes = %v, want empty map when unconfigured", volumes)
	}

	est, err := client.Volume(context.Background(), "cozy mystery")
	if err != nil {
		t.Fatalf("Volume: %v", err)
	}
	if est.Confidence != VolumeConfidenceNone || est.MonthlyVolume != 0 {
		t.Errorf("estimate = %+v, want zero estimate with confidence none", est)
	}
}

func TestBulkVolume(t *testing.T) {
	fetcher := newTestFetcher(t)
	client := NewVolumeClient("https://api.example.com", "login", "key", fetcher, logger.New("error", "text"))

	httpmock.RegisterResponder("POST", "https://api.example.com/keywords_data/amazon/search_volume/live",
		func(req *http.Request) (*http.Response, error) {
			if req.Header.Get("Authorization") == "" {
				return httpmock.NewStringResponse(401, "no auth"), nil
			}
			var payload []struct {
				Keywords []string `json:"keywords"`
			}
			if err := json.NewDecoder(req.Body).Decode(&payload); err != nil || len(payload) != 1 {
				return httpmock.NewStringResponse(400, "bad payload"), nil
			}
			return httpmock.NewStringResponse(200, `{
				"status_code": 20000,
				"tasks": [{"result": [{"items": [
					{"keyword": "Cozy Mystery", "search_volume": 33100},
					{"keyword": "space opera", "search_volume": 8100}
				]}]}]
			}`), nil
		})

	volumes, err := client.BulkVolume(context.Background(), []string{"cozy mystery", "space opera"})
	if err != nil {
		t.Fatalf("BulkVolume: %v", err)
	}
	if volumes["cozy mystery"] != 33100 {
		t.Errorf("volume[cozy mystery] = %d, want 33100 with normalized key", volumes["cozy mystery"])
	}
	if volumes["space opera"] != 8100 {
		t.Errorf("volume[space opera] = %d, want 8100", volumes["space opera"])
	}
	if client.EstimatedSpend() <= 0 {
		t.Errorf("EstimatedSpend() = %v, want positive after billed lookup", client.EstimatedSpend())
	}
}

func TestBulkVolume_ProviderError(t *testing.T) {
	fetcher := newTestFetcher(t)
	client := NewVolumeClient("https://api.example.com", "login", "key", fetcher, logger.New("error", "text"))

	httpmock.RegisterResponder("POST", "https://api.example.com/keywords_data/amazon/search_volume/live",
		httpmock.NewStringResponder(200, `{"status_code": 40200, "status_message": "payment required"}`))

	_, err := client.BulkVolume(context.Background(), []string{"cozy mystery"})
	if !errors.Is(err, errors.CodePermanentFetch) {
		t.Fatalf("err = %v, want PERMANENT_FETCH on provider error status", err)
	}
}
