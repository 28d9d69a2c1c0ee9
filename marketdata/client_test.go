package marketdata

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ericli/autotrader/model"
)

type stubSource struct {
	mu     sync.Mutex
	bars   map[string][]model.MarketBar
	errs   map[string]error
	calls  []string
	starts []time.Time
	ends   []time.Time
}

func (s *stubSource) MinuteBars(_ context.Context, symbol string, start, end time.Time) ([]model.MarketBar, error) {
	s.mu.Lock()
	s.calls = append(s.calls, symbol)
	s.starts = append(s.starts, start)
	s.ends = append(s.ends, end)
	s.mu.Unlock()

	if err := s.errs[symbol]; err != nil {
		return nil, err
	}
	return s.bars[symbol], nil
}

func barsFor(symbol string, n int) []model.MarketBar {
	base := time.Date(2026, 8, 28, 14, 30, 0, 0, time.UTC)
	out := make([]model.MarketBar, n)
	for i := range out {
		out[i] = model.MarketBar{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Symbol:    symbol,
			Price:     100 + float64(i),
			Volume:    int64(1000 * (i + 1)),
		}
	}
	return out
}

func TestNewValidation(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{APIKey: "k", Symbols: []string{"AAPL"}, BatchSize: 1}, false},
		{"empty api key", Config{Symbols: []string{"AAPL"}, BatchSize: 1}, true},
		{"empty symbols", Config{APIKey: "k", BatchSize: 1}, true},
		{"zero batch size", Config{APIKey: "k", Symbols: []string{"AAPL"}}, true},
		{"negative batch size", Config{APIKey: "k", Symbols: []string{"AAPL"}, BatchSize: -2}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.cfg)
			if tc.wantErr && err == nil {
				t.Error("expected a configuration error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestFetchBarsRequestsProviderWindow(t *testing.T) {
	src := &stubSource{bars: map[string][]model.MarketBar{"AAPL": barsFor("AAPL", 3)}}
	c, err := NewWithSource(Config{APIKey: "k", Symbols: []string{"AAPL"}, BatchSize: 1}, src)
	if err != nil {
		t.Fatal(err)
	}

	start := time.Date(2026, 8, 28, 14, 30, 0, 0, time.UTC)
	bars := c.FetchBars(context.Background(), "AAPL", start)

	if len(bars) != 3 {
		t.Fatalf("expected 3 bars, got %d", len(bars))
	}
	if got := src.ends[0].Sub(src.starts[0]); got != 1000*time.Minute {
		t.Errorf("expected a 1000-minute window, got %v", got)
	}
	if !src.starts[0].Equal(start) {
		t.Errorf("window must begin at start, got %v", src.starts[0])
	}
}

func TestFetchBarsRemoteFailureIsSoft(t *testing.T) {
	src := &stubSource{errs: map[string]error{"AAPL": errors.New("rate limited")}}
	c, _ := NewWithSource(Config{APIKey: "k", Symbols: []string{"AAPL"}, BatchSize: 1}, src)

	if bars := c.FetchBars(context.Background(), "AAPL", time.Now()); len(bars) != 0 {
		t.Errorf("expected empty result on remote failure, got %d bars", len(bars))
	}
}

func TestFetchBatchConcatenatesPerSymbolOrder(t *testing.T) {
	src := &stubSource{
		bars: map[string][]model.MarketBar{
			"AAPL": barsFor("AAPL", 2),
			"TSLA": barsFor("TSLA", 3),
		},
		errs: map[string]error{"MSFT": errors.New("provider error")},
	}
	c, _ := NewWithSource(Config{APIKey: "k", Symbols: []string{"AAPL", "MSFT", "TSLA"}, BatchSize: 3}, src)

	out := c.FetchBatch(context.Background(), []string{"AAPL", "MSFT", "TSLA"}, time.Now())

	if len(out) != 5 {
		t.Fatalf("expected 5 bars (failing symbol contributes none), got %d", len(out))
	}
	// Per-symbol chronological order survives the fan-out join.
	for _, symbol := range []string{"AAPL", "TSLA"} {
		var prev time.Time
		for _, bar := range out {
			if bar.Symbol != symbol {
				continue
			}
			if bar.Timestamp.Before(prev) {
				t.Errorf("bars for %s out of order", symbol)
			}
			prev = bar.Timestamp
		}
	}
}

func TestFetchAllChunksSequentiallyWithPauses(t *testing.T) {
	symbols := []string{"AAPL", "MSFT", "TSLA", "AMZN", "GOOG"}
	src := &stubSource{bars: map[string][]model.MarketBar{}}
	for _, s := range symbols {
		src.bars[s] = barsFor(s, 2)
	}

	c, _ := NewWithSource(Config{APIKey: "k", Symbols: symbols, BatchSize: 2}, src)
	var pauses []time.Duration
	c.pause = func(d time.Duration) { pauses = append(pauses, d) }

	frame := c.FetchAll(context.Background(), time.Now())

	// ceil(5/2) = 3 chunks, so 2 pauses between them.
	if len(pauses) != 2 {
		t.Errorf("expected 2 inter-chunk pauses, got %d", len(pauses))
	}
	for _, p := range pauses {
		if p != chunkPause {
			t.Errorf("expected fixed %v pause, got %v", chunkPause, p)
		}
	}
	if len(src.calls) != len(symbols) {
		t.Errorf("expected one fetch per symbol, got %d", len(src.calls))
	}
	if frame.Len() != 10 {
		t.Fatalf("expected 10 rows, got %d", frame.Len())
	}

	// Row reconstruction keeps each symbol's internal ordering.
	last := map[string]time.Time{}
	for i := 0; i < frame.Len(); i++ {
		row := frame.Row(i)
		if prev, ok := last[row.Symbol]; ok && row.Timestamp.Before(prev) {
			t.Errorf("rows for %s out of order", row.Symbol)
		}
		last[row.Symbol] = row.Timestamp
	}
	if len(last) != len(symbols) {
		t.Errorf("expected rows for %d symbols, got %d", len(symbols), len(last))
	}
}

func TestUpdateCacheOverwrites(t *testing.T) {
	c, _ := NewWithSource(Config{APIKey: "k", Symbols: []string{"AAPL"}, BatchSize: 1}, &stubSource{})

	if _, ok := c.LastBar("AAPL"); ok {
		t.Fatal("cache must start empty")
	}

	first := barsFor("AAPL", 1)[0]
	second := first
	second.Price = 123.45
	second.Timestamp = first.Timestamp.Add(time.Minute)

	c.UpdateCache(first)
	c.UpdateCache(second)

	got, ok := c.LastBar("AAPL")
	if !ok || got.Price != 123.45 {
		t.Errorf("expected latest bar to win, got %+v", got)
	}
}
