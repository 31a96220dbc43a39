package account

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/goshlanguage/mate/internal/auth"
	"github.com/goshlanguage/mate/internal/model"
)

const (
	VendorTDAmeritrade = "tdameritrade"

	tdaBaseURL = "https://api.tdameritrade.com"
	tdaTimeout = 30 * time.Second

	// Full history depth. EMA-style indicators downstream want several years
	// of daily bars to converge, so a fresh symbol imports 3 years.
	tdaFullHistoryPeriod = "3"
	// A latest-bar fetch asks for one month and keeps the newest candle.
	tdaLatestBarPeriod = "1"
)

// TDAmeritradeAccount is the brokerage variant. Access tokens are short-lived
// and renewed through the refresh-token grant via a TokenCache owned by the
// client.
type TDAmeritradeAccount struct {
	name         string
	databaseID   int
	clientID     string
	refreshToken string

	cli   *resty.Client
	token *auth.TokenCache
}

func NewTDAmeritradeAccount(name string, databaseID int, clientID, refreshToken string) (*TDAmeritradeAccount, error) {
	if clientID == "" || refreshToken == "" {
		return nil, errors.New("tdameritrade requires TDA_CLIENT_ID and TDA_REFRESH_TOKEN")
	}

	a := &TDAmeritradeAccount{
		name:         name,
		databaseID:   databaseID,
		clientID:     clientID,
		refreshToken: refreshToken,
		cli: resty.New().
			SetBaseURL(tdaBaseURL).
			SetTimeout(tdaTimeout),
	}
	a.token = auth.NewTokenCache(a.renewAccessToken)
	return a, nil
}

func (a *TDAmeritradeAccount) Name() string { return a.name }
func (a *TDAmeritradeAccount) Vendor() string { return VendorTDAmeritrade }
func (a *TDAmeritradeAccount) Kind() Kind { return Brokerage }
func (a *TDAmeritradeAccount) DatabaseID() int { return a.databaseID }

type tdaTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (a *TDAmeritradeAccount) renewAccessToken() (string, int64, error) {
	var body tdaTokenResponse
	resp, err := a.cli.R().
		SetFormData(map[string]string{
			"grant_type":    "refresh_token",
			"refresh_token": a.refreshToken,
			"client_id":     a.clientID,
		}).
		SetResult(&body).
		Post("/v1/oauth2/token")
	if err != nil {
		return "", 0, errors.Wrap(err, "tdameritrade token exchange")
	}
	if resp.IsError() {
		return "", 0, errors.Errorf("tdameritrade token exchange returned %s", resp.Status())
	}
	return body.AccessToken, body.ExpiresIn, nil
}

type tdaBalances struct {
	CashBalance float64 `json:"cashBalance"`
}

type tdaSecuritiesAccount struct {
	AccountID       string      `json:"accountId"`
	Type            string      `json:"type"`
	IsDayTrader     bool        `json:"isDayTrader"`
	CurrentBalances tdaBalances `json:"currentBalances"`
}

type tdaAccount struct {
	SecuritiesAccount tdaSecuritiesAccount `json:"securitiesAccount"`
}

// GetBalance returns the current cash balance of the margin account profile.
func (a *TDAmeritradeAccount) GetBalance() (float64, error) {
	token, err := a.token.Token()
	if err != nil {
		return 0, errors.Wrap(err, "tdameritrade access token")
	}

	var accounts []tdaAccount
	resp, err := a.cli.R().
		SetAuthToken(token).
		SetResult(&accounts).
		Get("/v1/accounts")
	if err != nil {
		return 0, errors.Wrap(err, "get accounts")
	}
	if resp.IsError() {
		return 0, errors.Errorf("get accounts returned %s", resp.Status())
	}
	if len(accounts) == 0 {
		return 0, errors.New("no securities accounts returned")
	}

	sa := accounts[0].SecuritiesAccount
	log.Debugf("tdameritrade account %s cash balance: %.2f", sa.AccountID, sa.CurrentBalances.CashBalance)
	return sa.CurrentBalances.CashBalance, nil
}

// GetPriceHistory fetches the full daily history for a symbol, 3 years deep.
func (a *TDAmeritradeAccount) GetPriceHistory(symbol string) ([]model.Candle, error) {
	return a.priceHistory(symbol, "year", tdaFullHistoryPeriod)
}

// GetLatestBar fetches one month of daily bars and returns the newest one.
func (a *TDAmeritradeAccount) GetLatestBar(symbol string) (model.Candle, error) {
	candles, err := a.priceHistory(symbol, "month", tdaLatestBarPeriod)
	if err != nil {
		return model.Candle{}, err
	}
	if len(candles) == 0 {
		return model.Candle{}, errors.Errorf("no candles returned for %s", symbol)
	}
	return candles[len(candles)-1], nil
}

// GetTicks is an exchange capability; brokerage accounts do not provide it.
func (a *TDAmeritradeAccount) GetTicks([]string) (map[string]json.RawMessage, error) {
	return nil, errors.Wrap(ErrUnsupported, "tdameritrade ticks")
}

type tdaCandle struct {
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   int64   `json:"volume"`
	Datetime int64   `json:"datetime"`
}

type tdaPriceHistory struct {
	Symbol  string      `json:"symbol"`
	Empty   bool        `json:"empty"`
	Candles []tdaCandle `json:"candles"`
}

// priceHistory calls the pricehistory endpoint with daily frequency. Vendor
// timestamps are already epoch milliseconds, the normalized unit.
func (a *TDAmeritradeAccount) priceHistory(symbol, periodType, period string) ([]model.Candle, error) {
	token, err := a.token.Token()
	if err != nil {
		return nil, errors.Wrap(err, "tdameritrade access token")
	}

	var body tdaPriceHistory
	resp, err := a.cli.R().
		SetAuthToken(token).
		SetQueryParams(map[string]string{
			"periodType":    periodType,
			"period":        period,
			"frequencyType": "daily",
			"frequency":     "1",
		}).
		SetResult(&body).
		Get(fmt.Sprintf("/v1/marketdata/%s/pricehistory", url.PathEscape(symbol)))
	if err != nil {
		return nil, errors.Wrapf(err, "price history for %s", symbol)
	}
	if resp.IsError() {
		return nil, errors.Errorf("price history for %s returned %s", symbol, resp.Status())
	}

	candles := make([]model.Candle, 0, len(body.Candles))
	for _, c := range body.Candles {
		candles = append(candles, model.Candle{
			Open:      c.Open,
			High:      c.High,
			Low:       c.Low,
			Close:     c.Close,
			Volume:    c.Volume,
			Timestamp: c.Datetime,
		})
	}
	return candles, nil
}
