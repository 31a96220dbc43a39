package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goshlanguage/mate/internal/config"
)

func TestApplyFlags_AccountsOverrideConfig(t *testing.T) {
	flagAccounts = []string{"kraken"}
	t.Cleanup(func() { flagAccounts = nil })

	cfg := &config.Config{
		Accounts: []config.AccountConfig{
			{Name: "My kraken account", Vendor: "kraken"},
			{Name: "My brokerage account", Vendor: "tdameritrade"},
		},
	}
	applyFlags(cfg)

	// Like every other flag, -a replaces the config value; listing kraken in
	// both places must not poll the account twice per cycle.
	require.Len(t, cfg.Accounts, 1)
	assert.Equal(t, "kraken", cfg.Accounts[0].Vendor)
}

func TestApplyFlags_NoFlagsKeepConfig(t *testing.T) {
	cfg := &config.Config{
		Accounts: []config.AccountConfig{{Name: "My kraken account", Vendor: "kraken"}},
	}
	cfg.Watchlist.Stocks = []string{"MSFT"}
	cfg.Schedule.PollCron = "@every 1h"

	applyFlags(cfg)

	require.Len(t, cfg.Accounts, 1)
	assert.Equal(t, []string{"MSFT"}, cfg.Watchlist.Stocks)
	assert.Equal(t, "@every 1h", cfg.Schedule.PollCron)
}
