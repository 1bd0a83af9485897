package models

import (
	"sort"
	"time"
)

// PriceBar represents one daily OHLCV bar for a stock
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// IntradayBar represents one intraday candle at minute granularity
type IntradayBar struct {
	Time   time.Time `json:"datetime"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// SortBarsDescending orders bars newest first
func SortBarsDescending(bars []PriceBar) {
	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Date.After(bars[j].Date)
	})
}

// ReverseBars returns a reversed copy of bars
func ReverseBars(bars []PriceBar) []PriceBar {
	out := make([]PriceBar, len(bars))
	for i, b := range bars {
		out[len(bars)-1-i] = b
	}
	return out
}
