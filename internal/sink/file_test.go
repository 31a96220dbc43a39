package sink

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goshlanguage/mate/internal/model"
)

func TestFileSink_ReadAbsent(t *testing.T) {
	s, err := NewFileSink(t.TempDir())
	require.NoError(t, err)

	data, ok, err := s.Read(EquityDailyKey("MSFT"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, data)
}

func TestFileSink_WriteCreatesSubtree(t *testing.T) {
	root := t.TempDir()
	s, err := NewFileSink(root)
	require.NoError(t, err)

	require.NoError(t, s.Write(CryptoTickKey("XXBTZUSD", "20220301"), []byte(`{}`)))

	_, err = os.Stat(filepath.Join(root, "crypto", "tick", "XXBTZUSD", "20220301.json"))
	require.NoError(t, err)
}

func TestFileSink_CandleSeriesRoundTrip(t *testing.T) {
	s, err := NewFileSink(t.TempDir())
	require.NoError(t, err)

	series := model.CandleSeries{
		{Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 100, Timestamp: 1646092800000},
		{Open: 1.5, High: 3, Low: 1, Close: 2.5, Volume: 250, Timestamp: 1646179200000},
	}
	data, err := json.Marshal(series)
	require.NoError(t, err)
	require.NoError(t, s.Write(EquityDailyKey("MSFT"), data))

	got, ok, err := s.Read(EquityDailyKey("MSFT"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, data, got)

	var decoded model.CandleSeries
	require.NoError(t, json.Unmarshal(got, &decoded))
	assert.Equal(t, series, decoded)
}

func TestFileSink_RequiresRoot(t *testing.T) {
	_, err := NewFileSink("")
	require.Error(t, err)
}

func TestObjectKeys(t *testing.T) {
	assert.Equal(t, "equity-daily-MSFT-20220301.json", ObjectEquityDailyKey("MSFT", "20220301"))
	assert.Equal(t, "crypto-tick-XXBTZUSD-20220301.json", ObjectCryptoTickKey("XXBTZUSD", "20220301"))
	assert.Equal(t, "equity/daily/MSFT.json", EquityDailyKey("MSFT"))
	assert.Equal(t, "crypto/tick/XXBTZUSD/20220301.json", CryptoTickKey("XXBTZUSD", "20220301"))
}
