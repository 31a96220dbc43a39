package model

// Candle is a single OHLCV price bar. Timestamp is epoch milliseconds,
// normalized at ingestion regardless of the provider's native unit.
type Candle struct {
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    int64   `json:"volume"`
	Timestamp int64   `json:"datetime"`
}

// CandleSeries is the ordered history of candles for one symbol, persisted as
// a single document. Timestamps are non-decreasing; the series only ever
// grows by appending.
type CandleSeries []Candle

// Last returns the newest candle, or false for an empty series.
func (s CandleSeries) Last() (Candle, bool) {
	if len(s) == 0 {
		return Candle{}, false
	}
	return s[len(s)-1], true
}
