package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ericli/autotrader/model"
)

const DefaultBaseURL = "https://api.polygon.io"

// BarSource fetches minute bars for one symbol over a bounded time window.
type BarSource interface {
	MinuteBars(ctx context.Context, symbol string, start, end time.Time) ([]model.MarketBar, error)
}

// ProviderClient is the aggregates REST client for the market-data provider.
type ProviderClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewProviderClient(apiKey, baseURL string) *ProviderClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &ProviderClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

type aggsResponse struct {
	Ticker  string `json:"ticker"`
	Status  string `json:"status"`
	Results []struct {
		Timestamp int64   `json:"t"` // epoch milliseconds
		Close     float64 `json:"c"`
		Volume    float64 `json:"v"`
	} `json:"results"`
}

// MinuteBars requests one-minute aggregates for [start, end). Bars come back
// in the provider's chronological order.
func (p *ProviderClient) MinuteBars(ctx context.Context, symbol string, start, end time.Time) ([]model.MarketBar, error) {
	u := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/1/minute/%d/%d?apiKey=%s",
		p.baseURL, url.PathEscape(symbol), start.UnixMilli(), end.UnixMilli(), url.QueryEscape(p.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider returned status %d for %s", resp.StatusCode, symbol)
	}

	var aggs aggsResponse
	if err := json.NewDecoder(resp.Body).Decode(&aggs); err != nil {
		return nil, fmt.Errorf("failed to decode aggregates for %s: %w", symbol, err)
	}

	bars := make([]model.MarketBar, 0, len(aggs.Results))
	for _, r := range aggs.Results {
		bars = append(bars, model.MarketBar{
			Timestamp: time.UnixMilli(r.Timestamp),
			Symbol:    symbol,
			Price:     r.Close,
			Volume:    int64(r.Volume),
		})
	}
	return bars, nil
}
