package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ericli/autotrader/common"
)

const DefaultBaseURL = "https://paper-api.alpaca.markets"

// Credentials authenticate every brokerage request.
type Credentials struct {
	Key    string
	Secret string
}

// CredentialsFromEnv reads APCA_API_KEY_ID / APCA_API_SECRET_KEY.
func CredentialsFromEnv() Credentials {
	key, _ := common.GetEnv("APCA_API_KEY_ID", "")
	secret, _ := common.GetEnv("APCA_API_SECRET_KEY", "")
	return Credentials{Key: key, Secret: secret}
}

// Client is a thin JSON client for the brokerage REST API. All calls block
// until the broker responds or the HTTP timeout fires.
type Client struct {
	httpClient *http.Client
	baseURL    string
	creds      Credentials
}

func NewClient(creds Credentials, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		creds:      creds,
	}
}

// APIError is the broker's error body for a non-2xx response.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       int    `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("broker: %s (http %d)", e.Message, e.StatusCode)
}

// Position is a broker-tracked holding of one symbol, valued in dollars.
type Position struct {
	Symbol      string  `json:"symbol"`
	Qty         float64 `json:"qty,string"`
	MarketValue float64 `json:"market_value,string"`
}

// Bar is one minute aggregate from the broker's data feed.
type Bar struct {
	Timestamp time.Time `json:"t"`
	Open      float64   `json:"o"`
	High      float64   `json:"h"`
	Low       float64   `json:"l"`
	Close     float64   `json:"c"`
	Volume    int64     `json:"v"`
}

type latestBarResponse struct {
	Symbol string `json:"symbol"`
	Bar    Bar    `json:"bar"`
}

// Order mirrors the broker's order resource. FilledAvgPrice is null until
// the first fill.
type Order struct {
	ID             string   `json:"id"`
	ClientOrderID  string   `json:"client_order_id"`
	Symbol         string   `json:"symbol"`
	Side           string   `json:"side"`
	Type           string   `json:"type"`
	Qty            float64  `json:"qty,string"`
	FilledQty      float64  `json:"filled_qty,string"`
	FilledAvgPrice *float64 `json:"filled_avg_price,string"`
	Status         string   `json:"status"`
}

// OrderPayload is the submit-order request body.
type OrderPayload struct {
	Symbol        string   `json:"symbol"`
	Qty           float64  `json:"qty,string"`
	Side          string   `json:"side"`
	Type          string   `json:"type"`
	LimitPrice    *float64 `json:"limit_price,string,omitempty"`
	StopPrice     *float64 `json:"stop_price,string,omitempty"`
	TimeInForce   string   `json:"time_in_force"`
	ClientOrderID string   `json:"client_order_id,omitempty"`
}

// GetPosition returns the open position for symbol, or nil when none exists.
// A missing position is not an error; only transport and auth failures are.
func (c *Client) GetPosition(ctx context.Context, symbol string) (*Position, error) {
	var pos Position
	err := c.do(ctx, http.MethodGet, "/v2/positions/"+url.PathEscape(symbol), nil, &pos)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pos, nil
}

// GetLatestBar returns the most recent minute bar for symbol.
func (c *Client) GetLatestBar(ctx context.Context, symbol string) (*Bar, error) {
	var resp latestBarResponse
	err := c.do(ctx, http.MethodGet, "/v2/stocks/"+url.PathEscape(symbol)+"/bars/latest", nil, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.Bar, nil
}

func (c *Client) SubmitOrder(ctx context.Context, payload OrderPayload) (*Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodPost, "/v2/orders", payload, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodGet, "/v2/orders/"+url.PathEscape(orderID), nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	return c.do(ctx, http.MethodDelete, "/v2/orders/"+url.PathEscape(orderID), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("APCA-API-KEY-ID", c.creds.Key)
	req.Header.Set("APCA-API-SECRET-KEY", c.creds.Secret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		data, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(data, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
			if apiErr.Message == "" {
				apiErr.Message = http.StatusText(resp.StatusCode)
			}
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}
