package upstox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/trogers1052/stock-screener/internal/models"
)

// OptionContracts lists the option contracts on an underlying, optionally
// limited to one expiry. HTTP 429 is retried with a pause between attempts.
func (c *Client) OptionContracts(ctx context.Context, instrumentKey, expiry string) ([]models.OptionContract, error) {
	query := url.Values{}
	query.Set("instrument_key", instrumentKey)
	if expiry != "" {
		query.Set("expiry_date", expiry)
	}

	var (
		data json.RawMessage
		err  error
	)
	for attempt := 1; attempt <= contractAttempts; attempt++ {
		data, err = c.get(ctx, c.heavy, "/v2/option/contract", query)
		if err == nil || !errors.Is(err, ErrRateLimited) || attempt == contractAttempts {
			break
		}
		c.log.Warn().Str("instrument_key", instrumentKey).Int("attempt", attempt).Msg("option contracts rate limited, retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.retryPause):
		}
	}
	if err != nil {
		return nil, err
	}

	var contracts []models.OptionContract
	if err := json.Unmarshal(data, &contracts); err != nil {
		return nil, fmt.Errorf("failed to decode option contracts: %w", err)
	}
	return contracts, nil
}

type marketData struct {
	LTP         float64 `json:"ltp"`
	Volume      float64 `json:"volume"`
	OI          float64 `json:"oi"`
	OIDayChange float64 `json:"oi_day_change"`
	BidPrice    float64 `json:"bid_price"`
	AskPrice    float64 `json:"ask_price"`
}

type optionGreeks struct {
	IV    float64 `json:"iv"`
	Delta float64 `json:"delta"`
	Theta float64 `json:"theta"`
	Gamma float64 `json:"gamma"`
	Vega  float64 `json:"vega"`
}

type optionSide struct {
	InstrumentKey string        `json:"instrument_key"`
	MarketData    *marketData   `json:"market_data"`
	Greeks        *optionGreeks `json:"option_greeks"`
}

type chainRow struct {
	Expiry              string      `json:"expiry"`
	StrikePrice         float64     `json:"strike_price"`
	UnderlyingSpotPrice *float64    `json:"underlying_spot_price"`
	CallOptions         *optionSide `json:"call_options"`
	PutOptions          *optionSide `json:"put_options"`
}

// OptionChain fetches the chain for one expiry and flattens it into call and
// put entries with their greeks
func (c *Client) OptionChain(ctx context.Context, instrumentKey, expiry string) (*models.OptionChain, error) {
	query := url.Values{}
	query.Set("instrument_key", instrumentKey)
	query.Set("expiry_date", expiry)

	data, err := c.get(ctx, c.heavy, "/v2/option/chain", query)
	if err != nil {
		return nil, err
	}

	var rows []chainRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode option chain: %w", err)
	}
	if len(rows) == 0 {
		return nil, &APIError{Kind: ErrNoData, Message: fmt.Sprintf("no option chain data for expiry %s", expiry)}
	}

	chain := &models.OptionChain{Entries: make([]models.OptionChainEntry, 0, len(rows)*2)}
	for _, row := range rows {
		if chain.SpotPrice == nil && row.UnderlyingSpotPrice != nil && *row.UnderlyingSpotPrice != 0 {
			spot := *row.UnderlyingSpotPrice
			chain.SpotPrice = &spot
		}
		if e, ok := flattenSide(row, row.CallOptions, models.OptionTypeCall); ok {
			chain.Entries = append(chain.Entries, e)
		}
		if e, ok := flattenSide(row, row.PutOptions, models.OptionTypePut); ok {
			chain.Entries = append(chain.Entries, e)
		}
	}
	return chain, nil
}

func flattenSide(row chainRow, side *optionSide, optionType string) (models.OptionChainEntry, bool) {
	if side == nil || side.MarketData == nil {
		return models.OptionChainEntry{}, false
	}
	md := side.MarketData
	g := side.Greeks
	if g == nil {
		g = &optionGreeks{}
	}
	return models.OptionChainEntry{
		StrikePrice:   row.StrikePrice,
		Expiry:        row.Expiry,
		OptionType:    optionType,
		OI:            md.OI,
		OIChange:      md.OIDayChange,
		Volume:        md.Volume,
		LTP:           md.LTP,
		BidPrice:      md.BidPrice,
		AskPrice:      md.AskPrice,
		IV:            g.IV,
		Delta:         g.Delta,
		Theta:         g.Theta,
		Gamma:         g.Gamma,
		Vega:          g.Vega,
		InstrumentKey: side.InstrumentKey,
	}, true
}

// Expiries returns the distinct contract expiries in ascending order
func Expiries(contracts []models.OptionContract) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, c := range contracts {
		if c.Expiry == "" {
			continue
		}
		if _, ok := seen[c.Expiry]; ok {
			continue
		}
		seen[c.Expiry] = struct{}{}
		out = append(out, c.Expiry)
	}
	sort.Strings(out)
	return out
}
