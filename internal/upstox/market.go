package upstox

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/trogers1052/stock-screener/internal/models"
)

const dateLayout = "2006-01-02"

// IntradayInterval maps a minute granularity to the upstream interval name.
// Only 1 and 30 minutes are offered; anything else falls back to 1 minute.
func IntradayInterval(minutes int) string {
	if minutes == 30 {
		return "30minute"
	}
	return "1minute"
}

type candlePayload struct {
	Candles [][]any `json:"candles"`
}

// HistoricalDaily fetches daily candles between from and to, newest first
func (c *Client) HistoricalDaily(ctx context.Context, instrumentKey string, from, to time.Time) ([]models.PriceBar, error) {
	path := fmt.Sprintf("/v2/historical-candle/%s/day/%s/%s",
		url.PathEscape(instrumentKey), to.Format(dateLayout), from.Format(dateLayout))

	data, err := c.get(ctx, c.httpClient, path, nil)
	if err != nil {
		return nil, err
	}

	var payload candlePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode candles: %w", err)
	}

	bars := make([]models.PriceBar, 0, len(payload.Candles))
	for _, raw := range payload.Candles {
		ts, o, h, l, cl, v, ok := parseCandle(raw)
		if !ok || len(ts) < len(dateLayout) {
			continue
		}
		date, err := time.Parse(dateLayout, ts[:len(dateLayout)])
		if err != nil {
			continue
		}
		bars = append(bars, models.PriceBar{Date: date, Open: o, High: h, Low: l, Close: cl, Volume: v})
	}
	if len(bars) == 0 {
		return nil, &APIError{Kind: ErrNoData, Message: "no historical candles"}
	}
	models.SortBarsDescending(bars)
	return bars, nil
}

// Intraday fetches today's candles at the given minute granularity, newest first
func (c *Client) Intraday(ctx context.Context, instrumentKey string, intervalMinutes int) ([]models.IntradayBar, error) {
	path := fmt.Sprintf("/v2/historical-candle/intraday/%s/%s",
		url.PathEscape(instrumentKey), IntradayInterval(intervalMinutes))

	data, err := c.get(ctx, c.httpClient, path, nil)
	if err != nil {
		return nil, err
	}

	var payload candlePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode candles: %w", err)
	}

	bars := make([]models.IntradayBar, 0, len(payload.Candles))
	for _, raw := range payload.Candles {
		ts, o, h, l, cl, v, ok := parseCandle(raw)
		if !ok {
			continue
		}
		at, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			continue
		}
		bars = append(bars, models.IntradayBar{Time: at, Open: o, High: h, Low: l, Close: cl, Volume: v})
	}
	if len(bars) == 0 {
		return nil, &APIError{Kind: ErrNoData, Message: "no candle data available"}
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.After(bars[j].Time) })
	return bars, nil
}

// LTP returns the last traded price of an instrument
func (c *Client) LTP(ctx context.Context, instrumentKey string) (float64, error) {
	query := url.Values{}
	query.Set("instrument_key", instrumentKey)

	data, err := c.get(ctx, c.httpClient, "/v2/market-quote/ltp", query)
	if err != nil {
		return 0, err
	}

	var quotes map[string]struct {
		LastPrice *float64 `json:"last_price"`
	}
	if err := json.Unmarshal(data, &quotes); err != nil {
		return 0, fmt.Errorf("failed to decode ltp: %w", err)
	}

	keys := make([]string, 0, len(quotes))
	for k := range quotes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if p := quotes[k].LastPrice; p != nil {
			return *p, nil
		}
	}
	return 0, &APIError{Kind: ErrNoData, Message: "LTP not found in response"}
}

// parseCandle unpacks [timestamp, open, high, low, close, volume, ...]
func parseCandle(raw []any) (ts string, open, high, low, close float64, volume int64, ok bool) {
	if len(raw) < 6 {
		return "", 0, 0, 0, 0, 0, false
	}
	ts, ok = raw[0].(string)
	if !ok {
		return "", 0, 0, 0, 0, 0, false
	}
	vals := make([]float64, 5)
	for i := range vals {
		f, isNum := raw[i+1].(float64)
		if !isNum {
			return "", 0, 0, 0, 0, 0, false
		}
		vals[i] = f
	}
	return ts, vals[0], vals[1], vals[2], vals[3], int64(vals[4]), true
}
