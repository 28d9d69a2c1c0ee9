package execution

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ericli/autotrader/broker"
	"github.com/ericli/autotrader/model"
)

// TradingAPI is the brokerage surface the executor needs. *broker.Client
// satisfies it; tests use fakes.
type TradingAPI interface {
	GetPosition(ctx context.Context, symbol string) (*broker.Position, error)
	GetLatestBar(ctx context.Context, symbol string) (*broker.Bar, error)
	SubmitOrder(ctx context.Context, payload broker.OrderPayload) (*broker.Order, error)
	GetOrder(ctx context.Context, orderID string) (*broker.Order, error)
	CancelOrder(ctx context.Context, orderID string) error
}

// EventSink receives successful order outcomes for downstream consumers.
type EventSink interface {
	PublishOrder(result model.OrderResult) error
}

// Executor validates and submits orders against the brokerage, enforcing the
// static risk limits before every submission attempt and retrying broker
// failures with a fixed delay. Submitted results are cached by broker order
// id for fast status lookup; failed and rejected results never enter the
// cache.
type Executor struct {
	api    TradingAPI
	cfg    Config
	events EventSink

	mu    sync.Mutex
	cache map[string]*model.OrderResult

	sleep func(time.Duration)
}

func New(cfg Config, api TradingAPI) *Executor {
	return &Executor{
		api:   api,
		cfg:   cfg.withDefaults(),
		cache: make(map[string]*model.OrderResult),
		sleep: time.Sleep,
	}
}

// SetEventSink attaches an optional event bus sink. A nil sink disables
// publishing.
func (e *Executor) SetEventSink(sink EventSink) {
	e.events = sink
}

// SubmitOrder runs the submission state machine: fetch current price, run
// risk checks, submit. Price unavailability and risk rejection are terminal
// and not retried; only broker submit errors are, up to MaxRetries attempts
// total with a fixed delay, re-evaluating price and risk on every attempt
// since the price may have moved. Nothing escapes as an error; callers
// branch on Status and Err of the result.
func (e *Executor) SubmitOrder(ctx context.Context, req model.OrderRequest) model.OrderResult {
	if req.TimeInForce == "" {
		req.TimeInForce = "day"
	}
	// Stable across retries so the broker can dedup a replayed submit.
	clientOrderID := uuid.NewString()

	var lastErr error
	for attempt := 1; attempt <= e.cfg.MaxRetries; attempt++ {
		price, ok := e.currentPrice(ctx, req.Symbol)
		if !ok {
			return terminalResult(req, model.StatusFailed, "could not get current price")
		}

		if reason, ok := e.checkRiskLimits(ctx, req, price); !ok {
			slog.Warn("EXECUTOR: order rejected", "symbol", req.Symbol, "reason", reason)
			return terminalResult(req, model.StatusRejected, reason)
		}

		order, err := e.api.SubmitOrder(ctx, buildPayload(req, clientOrderID))
		if err == nil {
			result := resultFromOrder(order)
			e.mu.Lock()
			e.cache[order.ID] = &result
			e.mu.Unlock()

			slog.Info("EXECUTOR: order submitted",
				"orderId", order.ID,
				"symbol", req.Symbol,
				"side", req.Side,
				"status", order.Status,
			)
			e.publish(result)
			return result
		}

		lastErr = err
		if attempt < e.cfg.MaxRetries {
			slog.Warn("EXECUTOR: order attempt failed, retrying",
				"symbol", req.Symbol,
				"attempt", attempt,
				"error", err,
			)
			e.sleep(e.cfg.RetryDelay)
		}
	}

	slog.Error("EXECUTOR: all order attempts failed", "symbol", req.Symbol, "error", lastErr)
	return terminalResult(req, model.StatusFailed, lastErr.Error())
}

// OrderStatus returns the tracked result for an order id, hitting the broker
// only on a cache miss. The bool reports whether a result could be produced;
// a failed broker lookup is logged and reported as absent, not raised.
func (e *Executor) OrderStatus(ctx context.Context, orderID string) (*model.OrderResult, bool) {
	e.mu.Lock()
	if cached, ok := e.cache[orderID]; ok {
		e.mu.Unlock()
		return cached, true
	}
	e.mu.Unlock()

	order, err := e.api.GetOrder(ctx, orderID)
	if err != nil {
		slog.Error("EXECUTOR: error getting order status", "orderId", orderID, "error", err)
		return nil, false
	}

	result := resultFromOrder(order)
	e.mu.Lock()
	e.cache[orderID] = &result
	e.mu.Unlock()
	return &result, true
}

// CancelOrder asks the broker to cancel an order and reports whether the
// call succeeded. On success any cached result is marked canceled in place;
// on failure the cache is left untouched.
func (e *Executor) CancelOrder(ctx context.Context, orderID string) bool {
	if err := e.api.CancelOrder(ctx, orderID); err != nil {
		slog.Error("EXECUTOR: error canceling order", "orderId", orderID, "error", err)
		return false
	}

	var canceled *model.OrderResult
	e.mu.Lock()
	if cached, ok := e.cache[orderID]; ok {
		cached.Status = model.StatusCanceled
		copied := *cached
		canceled = &copied
	}
	e.mu.Unlock()

	if canceled != nil {
		e.publish(*canceled)
	}
	return true
}

// checkRiskLimits applies the static dollar ceilings against the current
// price. Returns a human-readable reason when the order must be rejected.
// A position lookup failure fails the check rather than counting as an
// empty position.
func (e *Executor) checkRiskLimits(ctx context.Context, req model.OrderRequest, price float64) (string, bool) {
	orderValue := req.Quantity * price
	if orderValue > e.cfg.MaxSingleOrder {
		return fmt.Sprintf("order value %.2f exceeds single order limit %.2f", orderValue, e.cfg.MaxSingleOrder), false
	}

	position, err := e.api.GetPosition(ctx, req.Symbol)
	if err != nil {
		slog.Error("EXECUTOR: position lookup failed during risk check", "symbol", req.Symbol, "error", err)
		return "could not verify current position", false
	}

	var current float64
	if position != nil {
		current = position.MarketValue
	}

	newValue := current + orderValue
	if req.Side == model.SideSell {
		newValue = current - orderValue
	}
	if math.Abs(newValue) > e.cfg.MaxPositionSize {
		return fmt.Sprintf("new position value %.2f would exceed position limit %.2f", newValue, e.cfg.MaxPositionSize), false
	}
	return "", true
}

func (e *Executor) currentPrice(ctx context.Context, symbol string) (float64, bool) {
	bar, err := e.api.GetLatestBar(ctx, symbol)
	if err != nil {
		slog.Error("EXECUTOR: error getting price", "symbol", symbol, "error", err)
		return 0, false
	}
	if bar == nil || bar.Close == 0 {
		return 0, false
	}
	return bar.Close, true
}

func (e *Executor) publish(result model.OrderResult) {
	if e.events == nil {
		return
	}
	if err := e.events.PublishOrder(result); err != nil {
		slog.Warn("EXECUTOR: failed to publish order event", "orderId", result.OrderID, "error", err)
	}
}

func buildPayload(req model.OrderRequest, clientOrderID string) broker.OrderPayload {
	return broker.OrderPayload{
		Symbol:        req.Symbol,
		Qty:           req.Quantity,
		Side:          string(req.Side),
		Type:          string(req.Type),
		LimitPrice:    req.LimitPrice,
		StopPrice:     req.StopPrice,
		TimeInForce:   req.TimeInForce,
		ClientOrderID: clientOrderID,
	}
}

func resultFromOrder(order *broker.Order) model.OrderResult {
	var avgPrice float64
	if order.FilledAvgPrice != nil {
		avgPrice = *order.FilledAvgPrice
	}
	return model.OrderResult{
		OrderID:        order.ID,
		Status:         order.Status,
		FilledQty:      order.FilledQty,
		FilledAvgPrice: avgPrice,
		Symbol:         order.Symbol,
		Side:           model.Side(order.Side),
	}
}

func terminalResult(req model.OrderRequest, status, errMsg string) model.OrderResult {
	return model.OrderResult{
		Status: status,
		Symbol: req.Symbol,
		Side:   req.Side,
		Err:    errMsg,
	}
}
