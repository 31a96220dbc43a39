// Package account implements the provider capability surface the collector
// polls: balances, candle history, and tick quotes, with one concrete client
// per vendor.
package account

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/goshlanguage/mate/internal/model"
)

// Kind differentiates what kind of account is being managed. The collector
// dispatches on it, so adding a vendor means adding a variant here plus one
// client implementation, never touching the orchestrator.
type Kind int

const (
	Brokerage Kind = iota
	Exchange
)

// ErrUnsupported is returned by capability methods a vendor does not provide.
var ErrUnsupported = errors.New("operation not supported by this account vendor")

// Account is the capability surface the collector depends on. Every remote
// call returns an error instead of panicking; a single failing call must
// never take down the polling loop.
type Account interface {
	Name() string
	Vendor() string
	Kind() Kind
	// DatabaseID is the aggregator's id for this account, zero when the
	// account is configured locally.
	DatabaseID() int

	GetBalance() (float64, error)
	GetPriceHistory(symbol string) ([]model.Candle, error)
	GetLatestBar(symbol string) (model.Candle, error)
	GetTicks(pairs []string) (map[string]json.RawMessage, error)
}

// Credentials carries the env-sourced provider secrets, used when an account
// definition does not bring its own key and secret.
type Credentials struct {
	TDAClientID     string
	TDARefreshToken string
	KrakenAPIKey    string
	KrakenAPISecret string
}

// New is the account factory. Missing credentials are a configuration error:
// the process should refuse to start rather than fail every cycle.
func New(name, vendor string, databaseID int, key, secret string, env Credentials) (Account, error) {
	switch strings.ToLower(vendor) {
	case VendorTDAmeritrade:
		if key == "" || secret == "" {
			key, secret = env.TDAClientID, env.TDARefreshToken
		}
		return NewTDAmeritradeAccount(name, databaseID, key, secret)
	case VendorKraken:
		if key == "" || secret == "" {
			key, secret = env.KrakenAPIKey, env.KrakenAPISecret
		}
		return NewKrakenAccount(name, databaseID, key, secret)
	default:
		return nil, errors.Errorf("unsupported account vendor %q", vendor)
	}
}
