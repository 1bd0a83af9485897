package models

// OptionContract is a read-only snapshot of one listed option contract
type OptionContract struct {
	Name             string  `json:"name"`
	Segment          string  `json:"segment"`
	Exchange         string  `json:"exchange"`
	Expiry           string  `json:"expiry"`
	Weekly           bool    `json:"weekly"`
	InstrumentKey    string  `json:"instrument_key"`
	ExchangeToken    string  `json:"exchange_token"`
	TradingSymbol    string  `json:"trading_symbol"`
	TickSize         float64 `json:"tick_size"`
	LotSize          int     `json:"lot_size"`
	InstrumentType   string  `json:"instrument_type"`
	FreezeQuantity   float64 `json:"freeze_quantity"`
	UnderlyingKey    string  `json:"underlying_key"`
	UnderlyingType   string  `json:"underlying_type"`
	UnderlyingSymbol string  `json:"underlying_symbol"`
	StrikePrice      float64 `json:"strike_price"`
	MinimumLot       int     `json:"minimum_lot"`
}

// OptionChainEntry is one side (call or put) of a strike in an option chain
type OptionChainEntry struct {
	StrikePrice   float64 `json:"strike_price"`
	Expiry        string  `json:"expiry"`
	OptionType    string  `json:"option_type"`
	OI            float64 `json:"oi"`
	OIChange      float64 `json:"oi_change"`
	Volume        float64 `json:"volume"`
	LTP           float64 `json:"ltp"`
	BidPrice      float64 `json:"bid_price"`
	AskPrice      float64 `json:"ask_price"`
	IV            float64 `json:"iv"`
	Delta         float64 `json:"delta"`
	Theta         float64 `json:"theta"`
	Gamma         float64 `json:"gamma"`
	Vega          float64 `json:"vega"`
	InstrumentKey string  `json:"instrument_key"`
}

// OptionChain is a flattened option chain with the underlying spot price
type OptionChain struct {
	Entries   []OptionChainEntry `json:"chain"`
	SpotPrice *float64           `json:"spot_price"`
}
