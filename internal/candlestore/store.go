// Package candlestore holds the incremental-fetch policy for candle series:
// when a symbol has no history do one full fetch, when the newest candle has
// aged past the staleness window append a single fresh bar, otherwise leave
// the series alone for this cycle.
package candlestore

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/goshlanguage/mate/internal/model"
	"github.com/goshlanguage/mate/internal/sink"
)

// StalenessWindow is the minimum age the newest candle must reach before a
// refresh fetch is attempted.
const StalenessWindow = 8 * time.Hour

// Action is the fetch decision for one symbol this cycle.
type Action int

const (
	// Skip means the stored series is fresh enough; no remote call is made.
	Skip Action = iota
	// FetchFull means the series is empty and needs a full historical fetch.
	FetchFull
	// FetchLatest means only the single most recent bar should be appended.
	FetchLatest
)

// Store loads and saves candle series through the state sink. It never
// removes or reorders candles, it only replaces an empty series or appends.
type Store struct {
	state sink.Sink
}

func New(state sink.Sink) *Store {
	return &Store{state: state}
}

// Load reads the persisted series for a symbol. A missing or empty document
// is an empty series, not an error.
func (s *Store) Load(symbol string) (model.CandleSeries, error) {
	data, ok, err := s.state.Read(sink.EquityDailyKey(symbol))
	if err != nil {
		return nil, errors.Wrapf(err, "load series for %s", symbol)
	}
	if !ok {
		return nil, nil
	}

	var series model.CandleSeries
	if err := json.Unmarshal(data, &series); err != nil {
		return nil, errors.Wrapf(err, "decode series for %s", symbol)
	}
	return series, nil
}

// Save marshals and overwrites the document for a symbol.
func (s *Store) Save(symbol string, series model.CandleSeries) error {
	data, err := json.Marshal(series)
	if err != nil {
		return errors.Wrapf(err, "encode series for %s", symbol)
	}
	return s.state.Write(sink.EquityDailyKey(symbol), data)
}

// Plan decides the fetch strategy for one symbol. Timestamps are epoch
// milliseconds, so the window cutoff is compared in milliseconds.
func Plan(series model.CandleSeries, now time.Time) Action {
	last, ok := series.Last()
	if !ok {
		return FetchFull
	}
	if last.Timestamp < now.Add(-StalenessWindow).UnixMilli() {
		return FetchLatest
	}
	return Skip
}

// Append adds one candle, preserving the non-decreasing timestamp invariant.
func Append(series model.CandleSeries, c model.Candle) (model.CandleSeries, error) {
	if last, ok := series.Last(); ok && c.Timestamp < last.Timestamp {
		return series, errors.Errorf("candle timestamp %d regresses behind stored %d", c.Timestamp, last.Timestamp)
	}
	return append(series, c), nil
}
