package models

// IndicatorPoint is a price bar plus the indicator values computed at its index.
// A nil field means at least one window it depends on lacked history there.
type IndicatorPoint struct {
	PriceBar
	MACD        *float64 `json:"macd"`
	MACDSignal  *float64 `json:"macd_signal"`
	MACDHist    *float64 `json:"macd_hist"`
	TenkanSen   *float64 `json:"tenkan_sen"`
	KijunSen    *float64 `json:"kijun_sen"`
	SenkouSpanA *float64 `json:"senkou_span_a"`
	SenkouSpanB *float64 `json:"senkou_span_b"`
	ChikouSpan  *float64 `json:"chikou_span"`
}
