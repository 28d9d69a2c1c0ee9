package model

import "time"

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

type OrderType string

const (
	OrderTypeMarket    OrderType = "market"
	OrderTypeLimit     OrderType = "limit"
	OrderTypeStop      OrderType = "stop"
	OrderTypeStopLimit OrderType = "stop_limit"
)

// Statuses synthesized locally; everything else in OrderResult.Status mirrors
// the brokerage status vocabulary verbatim.
const (
	StatusFailed   = "failed"
	StatusRejected = "rejected"
	StatusCanceled = "canceled"
)

// MarketBar is one aggregated price observation for a symbol at one-minute
// granularity. Immutable once constructed.
type MarketBar struct {
	Timestamp time.Time `json:"ts"`
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Volume    int64     `json:"volume"`
}

// OrderRequest describes a desired trade. Read-only to the executor.
type OrderRequest struct {
	Symbol      string    `json:"symbol"`
	Side        Side      `json:"side"`
	Quantity    float64   `json:"quantity"`
	Type        OrderType `json:"type"`
	LimitPrice  *float64  `json:"limitPrice,omitempty"`
	StopPrice   *float64  `json:"stopPrice,omitempty"`
	TimeInForce string    `json:"timeInForce,omitempty"`
}

// OrderResult is the outcome of a submission or a status query. OrderID is
// empty when the broker never accepted the order. Only Status is mutated
// after construction (cancellation path).
type OrderResult struct {
	OrderID        string  `json:"orderId"`
	Status         string  `json:"status"`
	FilledQty      float64 `json:"filledQty"`
	FilledAvgPrice float64 `json:"filledAvgPrice"`
	Symbol         string  `json:"symbol"`
	Side           Side    `json:"side"`
	Err            string  `json:"error,omitempty"`
}
