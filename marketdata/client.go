package marketdata

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ericli/autotrader/model"
)

const (
	// The provider caps a single aggregates request at 1000 minutes.
	fetchWindow = 1000 * time.Minute

	// Fixed pause between consecutive symbol chunks in FetchAll, to stay
	// under the provider's rate limit.
	chunkPause = 200 * time.Millisecond
)

// Client pulls minute bars for a configured symbol list and keeps a
// last-seen-bar cache per symbol. Remote failures never escape its public
// operations; they degrade to empty results.
type Client struct {
	source    BarSource
	symbols   []string
	batchSize int

	mu   sync.Mutex
	last map[string]model.MarketBar

	pause func(time.Duration)
}

// New builds a Client backed by the provider REST API.
func New(cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return newClient(cfg, NewProviderClient(cfg.APIKey, cfg.BaseURL)), nil
}

// NewWithSource is New with a caller-supplied bar source.
func NewWithSource(cfg Config, source BarSource) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return newClient(cfg, source), nil
}

func newClient(cfg Config, source BarSource) *Client {
	return &Client{
		source:    source,
		symbols:   cfg.Symbols,
		batchSize: cfg.BatchSize,
		last:      make(map[string]model.MarketBar),
		pause:     time.Sleep,
	}
}

func (cfg Config) validate() error {
	if cfg.APIKey == "" {
		return fmt.Errorf("marketdata: api key is required")
	}
	if len(cfg.Symbols) == 0 {
		return fmt.Errorf("marketdata: at least one symbol is required")
	}
	if cfg.BatchSize < 1 {
		return fmt.Errorf("marketdata: batch size must be positive, got %d", cfg.BatchSize)
	}
	return nil
}

// Symbols returns the configured symbol list in order.
func (c *Client) Symbols() []string {
	return c.symbols
}

// FetchBars requests minute bars for one symbol from start up to the
// provider window limit. Remote failures are soft: logged and returned as an
// empty result, never as an error.
func (c *Client) FetchBars(ctx context.Context, symbol string, start time.Time) []model.MarketBar {
	bars, err := c.source.MinuteBars(ctx, symbol, start, start.Add(fetchWindow))
	if err != nil {
		slog.Error("MARKETDATA: error fetching bars", "symbol", symbol, "error", err)
		return nil
	}
	return bars
}

// FetchBatch fetches every symbol in the slice concurrently and concatenates
// the results. Per-symbol bar order is preserved; since FetchBars cannot
// fail, neither can this.
func (c *Client) FetchBatch(ctx context.Context, symbols []string, start time.Time) []model.MarketBar {
	results := make([][]model.MarketBar, len(symbols))

	wg := &sync.WaitGroup{}
	for i, symbol := range symbols {
		i, symbol := i, symbol
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = c.FetchBars(ctx, symbol, start)
		}()
	}
	wg.Wait()

	var out []model.MarketBar
	for _, bars := range results {
		out = append(out, bars...)
	}
	return out
}

// FetchAll walks the full symbol list in consecutive chunks of the
// configured batch size, pausing between chunks, and accumulates every bar
// into one Frame. Chunks run strictly sequentially.
func (c *Client) FetchAll(ctx context.Context, start time.Time) *Frame {
	frame := NewFrame()

	for i := 0; i < len(c.symbols); i += c.batchSize {
		if i > 0 {
			c.pause(chunkPause)
		}
		end := min(i+c.batchSize, len(c.symbols))
		for _, bar := range c.FetchBatch(ctx, c.symbols[i:end], start) {
			frame.Append(bar)
		}
	}
	return frame
}

// UpdateCache records bar as the latest observation for its symbol.
func (c *Client) UpdateCache(bar model.MarketBar) {
	c.mu.Lock()
	c.last[bar.Symbol] = bar
	c.mu.Unlock()
}

// LastBar returns the most recently cached bar for symbol.
func (c *Client) LastBar(symbol string) (model.MarketBar, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	bar, ok := c.last[symbol]
	return bar, ok
}
