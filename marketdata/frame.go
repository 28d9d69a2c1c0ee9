package marketdata

import (
	"time"

	"github.com/ericli/autotrader/model"
)

// Frame accumulates bars in column form, one slice per field with rows
// aligned by index. It is the tabular return shape of FetchAll.
type Frame struct {
	Timestamps []time.Time
	Symbols    []string
	Prices     []float64
	Volumes    []int64
}

func NewFrame() *Frame {
	return &Frame{}
}

func (f *Frame) Append(bar model.MarketBar) {
	f.Timestamps = append(f.Timestamps, bar.Timestamp)
	f.Symbols = append(f.Symbols, bar.Symbol)
	f.Prices = append(f.Prices, bar.Price)
	f.Volumes = append(f.Volumes, bar.Volume)
}

func (f *Frame) Len() int {
	return len(f.Symbols)
}

// Row reconstructs the bar stored at index i.
func (f *Frame) Row(i int) model.MarketBar {
	return model.MarketBar{
		Timestamp: f.Timestamps[i],
		Symbol:    f.Symbols[i],
		Price:     f.Prices[i],
		Volume:    f.Volumes[i],
	}
}
