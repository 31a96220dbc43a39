package aggregator

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goshlanguage/mate/internal/auth"
	"github.com/goshlanguage/mate/internal/model"
)

func staticToken(token string) *auth.TokenCache {
	return auth.NewTokenCache(func() (string, int64, error) {
		return token, 3600, nil
	})
}

func TestClient_GetAccounts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/accounts/", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(accountsResponse{Accounts: []model.RemoteAccount{
			{ID: 1, Name: "My kraken account", Vendor: "kraken", ClientKey: "key", ClientSecret: "enc"},
		}})
	}))
	defer srv.Close()

	// Trailing slash on the host must not produce a double slash in paths.
	c := NewClient(srv.URL+"/", staticToken("tok"))
	accounts, err := c.GetAccounts()
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "kraken", accounts[0].Vendor)
	assert.Equal(t, 1, accounts[0].ID)
}

func TestClient_SubmitBalances(t *testing.T) {
	var got model.BalancePayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/accounts/balance/", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, staticToken("tok"))
	err := c.SubmitBalances(model.BalancePayload{Balances: []model.BalanceRecord{
		{AccountID: 1, Balance: 15100.0},
	}})
	require.NoError(t, err)
	require.Len(t, got.Balances, 1)
	assert.Equal(t, 15100.0, got.Balances[0].Balance)
}

func TestClient_SubmitBalancesErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, staticToken("tok"))
	err := c.SubmitBalances(model.BalancePayload{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestClient_SubmitBalancesTokenFailure(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	c := NewClient(srv.URL, auth.NewTokenCache(func() (string, int64, error) {
		return "", 0, assert.AnError
	}))
	err := c.SubmitBalances(model.BalancePayload{})
	require.Error(t, err)
	assert.Zero(t, calls, "no request should be sent without a token")
}
