package marketdata

import (
	"context"
	"log/slog"
	"time"

	"github.com/ericli/autotrader/model"
)

const (
	DefaultRefreshInterval = 5 * time.Second

	// How far back the refresher looks when asking for the newest bar.
	refreshLookback = 5 * time.Minute
)

// BarPublisher receives freshly observed bars for downstream consumers.
type BarPublisher interface {
	PublishBar(bar model.MarketBar) error
}

// Refresher periodically pulls the newest bar for every configured symbol,
// updates the client's last-bar cache and, when a publisher is attached,
// forwards the bar to the event bus. Fetch failures are soft and skip the
// symbol until the next tick.
type Refresher struct {
	client    *Client
	interval  time.Duration
	publisher BarPublisher

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// NewRefresher builds a Refresher. publisher may be nil to disable
// publishing.
func NewRefresher(client *Client, interval time.Duration, publisher BarPublisher) *Refresher {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Refresher{
		client:    client,
		interval:  interval,
		publisher: publisher,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

func (r *Refresher) Start() { go r.loop() }

func (r *Refresher) Stop() {
	close(r.stopCh)
	<-r.stoppedCh
}

func (r *Refresher) loop() {
	defer close(r.stoppedCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.refresh(context.Background())
		case <-r.stopCh:
			return
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	start := time.Now().Add(-refreshLookback)

	for _, symbol := range r.client.Symbols() {
		bars := r.client.FetchBars(ctx, symbol, start)
		if len(bars) == 0 {
			continue
		}

		latest := bars[len(bars)-1]
		r.client.UpdateCache(latest)

		if r.publisher == nil {
			continue
		}
		if err := r.publisher.PublishBar(latest); err != nil {
			slog.Warn("MARKETDATA: failed to publish bar", "symbol", symbol, "error", err)
		}
	}
}
