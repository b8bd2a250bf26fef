package collector

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/kwscout/kw-scout/internal/fetch"
	"github.com/kwscout/kw-scout/internal/pkg/errors"
	"github.com/kwscout/kw-scout/internal/pkg/logger"
)

// Approximate provider billing, tracked per session so runs can report
// estimated spend.
const (
	costPerTask    = 0.01
	costPerKeyword = 0.0001
)

// bulkVolumeBatchSize is the provider's per-request keyword limit.
const bulkVolumeBatchSize = 1000

// VolumeClient talks to the paid search-volume API. All lookups return empty
// results with an info log when credentials are not configured, so the rest
// of the pipeline never needs to special-case the provider's absence.
type VolumeClient struct {
	baseURL string
	login   string
	apiKey  string
	fetcher *fetch.Client
	log     *logger.Logger

	mu    sync.Mutex
	spend float64
}

// NewVolumeClient creates the paid volume collector. Empty credentials are
// allowed and produce an unavailable client.
func NewVolumeClient(baseURL, login, apiKey string, fetcher *fetch.Client, log *logger.Logger) *VolumeClient {
	return &VolumeClient{
		baseURL: baseURL,
		login:   login,
		apiKey:  apiKey,
		fetcher: fetcher,
		log:     log.WithSource(SourceVolume),
	}
}

// Available reports whether credentials are configured.
func (c *VolumeClient) Available() bool {
	return c.login != "" && c.apiKey != ""
}

// EstimatedSpend returns the estimated provider cost accrued this session.
func (c *VolumeClient) EstimatedSpend() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.spend
}

func (c *VolumeClient) addSpend(items int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.spend += costPerTask + float64(items)*costPerKeyword
}

// volumeResponse mirrors the provider's task envelope.
type volumeResponse struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
	Tasks         []struct {
		Result []struct {
			Items []struct {
				Keyword      string `json:"keyword"`
				SearchVolume int64  `json:"search_volume"`
			} `json:"items"`
		} `json:"result"`
	} `json:"tasks"`
}

// Volume returns the monthly search-volume estimate for one keyword.
// Returns a zero estimate with confidence "none" when unavailable.
func (c *VolumeClient) Volume(ctx context.Context, keyword string) (*VolumeEstimate, error) {
	keyword = strings.ToLower(strings.TrimSpace(keyword))

	volumes, err := c.BulkVolume(ctx, []string{keyword})
	if err != nil {
		return nil, err
	}

	vol, ok := volumes[keyword]
	if !ok {
		return &VolumeEstimate{Keyword: keyword, Confidence: VolumeConfidenceNone}, nil
	}
	return &VolumeEstimate{
		Keyword:       keyword,
		MonthlyVolume: vol,
		Confidence:    VolumeConfidenceHigh,
	}, nil
}

// BulkVolume returns monthly volumes for many keywords, batching requests
// to the provider's per-call limit. Missing keywords are absent from the map.
func (c *VolumeClient) BulkVolume(ctx context.Context, keywords []string) (map[string]int64, error) {
	if !c.Available() {
		c.log.Info("volume provider not configured, skipping lookup")
		return map[string]int64{}, nil
	}
	if len(keywords) == 0 {
		return map[string]int64{}, nil
	}

	volumes := make(map[string]int64)
	for start := 0; start < len(keywords); start += bulkVolumeBatchSize {
		end := min(start+bulkVolumeBatchSize, len(keywords))

		batch, err := c.fetchBatch(ctx, keywords[start:end])
		if err != nil {
			return nil, err
		}
		for kw, vol := range batch {
			volumes[kw] = vol
		}
	}

	c.log.Debug("bulk volume fetched", "keywords", len(keywords), "resolved", len(volumes))
	return volumes, nil
}

func (c *VolumeClient) fetchBatch(ctx context.Context, keywords []string) (map[string]int64, error) {
	payload, err := json.Marshal([]map[string]any{{
		"keywords":      keywords,
		"language_code": "en",
		"location_code": 2840,
	}})
	if err != nil {
		return nil, errors.InternalError("marshaling volume request", err)
	}

	header := http.Header{}
	header.Set("Authorization", "Basic "+c.basicAuth())
	header.Set("Content-Type", "application/json")

	body, err := c.fetcher.Do(ctx, fetch.Request{
		Source: SourceVolume,
		Method: http.MethodPost,
		URL:    c.baseURL + "/keywords_data/amazon/search_volume/live",
		Header: header,
		Body:   payload,
	})
	if err != nil {
		return nil, err
	}

	var resp volumeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.PermanentFetchError("malformed volume payload", err)
	}
	if resp.StatusCode != 0 && resp.StatusCode != 20000 {
		return nil, errors.PermanentFetchError(
			"volume provider error: "+resp.StatusMessage, nil)
	}

	volumes := make(map[string]int64)
	for _, task := range resp.Tasks {
		for _, result := range task.Result {
			c.addSpend(len(result.Items))
			for _, item := range result.Items {
				kw := strings.ToLower(strings.TrimSpace(item.Keyword))
				if kw != "" {
					volumes[kw] = item.SearchVolume
				}
			}
		}
	}

	return volumes, nil
}

func (c *VolumeClient) basicAuth() string {
	return base64.StdEncoding.EncodeToString([]byte(c.login + ":" + c.apiKey))
}
