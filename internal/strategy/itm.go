// Package strategy turns flagged symbols into priced option trade decisions:
// nearest expiry, closest in-the-money contract, buy limit and sell target.
package strategy

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/trogers1052/stock-screener/internal/models"
)

// ErrNoITMContract is returned when no contract of the requested type is in
// the money
var ErrNoITMContract = errors.New("no ITM contract")

// FindClosestITM returns the in-the-money contract of optionType whose strike
// is nearest to price. Calls are ITM below price, puts above. Ties keep input
// order.
func FindClosestITM(contracts []models.OptionContract, optionType string, price float64) (*models.OptionContract, error) {
	type candidate struct {
		contract models.OptionContract
		distance float64
	}

	var itm []candidate
	for _, c := range contracts {
		if c.InstrumentType != optionType {
			continue
		}
		switch optionType {
		case models.OptionTypeCall:
			if c.StrikePrice < price {
				itm = append(itm, candidate{c, price - c.StrikePrice})
			}
		case models.OptionTypePut:
			if c.StrikePrice > price {
				itm = append(itm, candidate{c, c.StrikePrice - price})
			}
		}
	}
	if len(itm) == 0 {
		return nil, ErrNoITMContract
	}

	sort.SliceStable(itm, func(i, j int) bool { return itm[i].distance < itm[j].distance })
	best := itm[0].contract
	return &best, nil
}

// SizeTrade prices the entry and exit from the option's last traded price
func SizeTrade(ltp, buyBufferPct, profitTargetPct float64) (buyLimit, sellTarget decimal.Decimal) {
	hundred := decimal.NewFromInt(100)
	p := decimal.NewFromFloat(ltp)
	one := decimal.NewFromInt(1)

	buyLimit = p.Mul(one.Add(decimal.NewFromFloat(buyBufferPct).Div(hundred))).Round(2)
	sellTarget = p.Mul(one.Add(decimal.NewFromFloat(profitTargetPct).Div(hundred))).Round(2)
	return buyLimit, sellTarget
}

// NearestExpiry returns the earliest expiry among contracts
func NearestExpiry(contracts []models.OptionContract) (string, bool) {
	nearest := ""
	for _, c := range contracts {
		if c.Expiry == "" {
			continue
		}
		if nearest == "" || c.Expiry < nearest {
			nearest = c.Expiry
		}
	}
	return nearest, nearest != ""
}

// OptionTypeFor maps a trend to the option side it trades
func OptionTypeFor(t models.Trend) (string, bool) {
	switch t {
	case models.TrendBullish:
		return models.OptionTypeCall, true
	case models.TrendBearish:
		return models.OptionTypePut, true
	}
	return "", false
}
