package account

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKrakenAccount(t *testing.T, handler http.Handler) (*KrakenAccount, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	secret := base64.StdEncoding.EncodeToString([]byte("hunter2"))
	a, err := NewKrakenAccount("Kraken", 2, "api-key", secret)
	require.NoError(t, err)
	a.cli.SetBaseURL(srv.URL)
	a.nonce = func() int64 { return 1646092800000 }
	return a, srv
}

func writeKraken(w http.ResponseWriter, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	data, _ := json.Marshal(result)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error":  []string{},
		"result": json.RawMessage(data),
	})
}

func TestKraken_GetBalanceAggregation(t *testing.T) {
	a, _ := testKrakenAccount(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/0/private/Balance":
			assert.NotEmpty(t, r.Header.Get("API-Key"))
			assert.NotEmpty(t, r.Header.Get("API-Sign"))
			writeKraken(w, map[string]string{"ZUSD": "100.0", "XXBT": "0.5"})
		case "/0/public/Ticker":
			assert.Equal(t, "XXBTZUSD", r.URL.Query().Get("pair"))
			writeKraken(w, map[string]interface{}{
				"XXBTZUSD": map[string][]string{"c": {"30000.0", "0.1"}},
			})
		default:
			http.NotFound(w, r)
		}
	}))

	balance, err := a.GetBalance()
	require.NoError(t, err)
	assert.Equal(t, 15100.0, balance)
}

func TestKraken_GetBalanceSpotPriceFailure(t *testing.T) {
	a, _ := testKrakenAccount(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/0/private/Balance":
			writeKraken(w, map[string]string{"XXBT": "0.5"})
		default:
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"error": []string{"EQuery:Unknown asset pair"},
			})
		}
	}))

	_, err := a.GetBalance()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unknown asset pair")
}

func TestKraken_GetTicks(t *testing.T) {
	a, _ := testKrakenAccount(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/0/public/Ticker", r.URL.Path)
		assert.Equal(t, "XXBTZUSD,XETHZUSD", r.URL.Query().Get("pair"))
		writeKraken(w, map[string]interface{}{
			"XXBTZUSD": map[string][]string{"c": {"30000.0", "0.1"}},
			"XETHZUSD": map[string][]string{"c": {"2000.0", "1.0"}},
		})
	}))

	ticks, err := a.GetTicks([]string{"XXBTZUSD", "XETHZUSD"})
	require.NoError(t, err)
	require.Len(t, ticks, 2)
	assert.Contains(t, string(ticks["XXBTZUSD"]), "30000.0")
}

func TestTickerPair(t *testing.T) {
	cases := []struct {
		asset string
		pair  string
	}{
		{"ZUSD", ""},
		{"ZUSD.S", ""},
		{"ATOM", "ATOMUSD"},
		{"ATOM.S", "ATOMUSD"},
		{"XXDG", "XDGUSD"},
		{"XXBT", "XXBTZUSD"},
		{"DOT.S", "DOTZUSD"},
	}
	for _, tc := range cases {
		t.Run(tc.asset, func(t *testing.T) {
			assert.Equal(t, tc.pair, TickerPair(tc.asset))
		})
	}
}

func TestKraken_RequiresCredentials(t *testing.T) {
	_, err := NewKrakenAccount("Kraken", 0, "", "")
	require.Error(t, err)

	_, err = NewKrakenAccount("Kraken", 0, "key", "not//base64??")
	require.Error(t, err)
}

func TestKraken_UnsupportedCapabilities(t *testing.T) {
	a, _ := testKrakenAccount(t, http.NotFoundHandler())

	_, err := a.GetPriceHistory("MSFT")
	assert.ErrorIs(t, err, ErrUnsupported)
	_, err = a.GetLatestBar("MSFT")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestKraken_SignIsDeterministic(t *testing.T) {
	secret := base64.StdEncoding.EncodeToString([]byte("hunter2"))
	a, err := NewKrakenAccount("Kraken", 0, "key", secret)
	require.NoError(t, err)

	sign := func() string {
		return a.sign("/0/private/Balance", url.Values{"nonce": {"42"}})
	}
	assert.Equal(t, sign(), sign())
}
