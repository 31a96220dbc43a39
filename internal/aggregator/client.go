// Package aggregator is the HTTP client for the remote aggregation service:
// account definitions come down via GET /accounts/, balance observations go
// up via PUT /accounts/balance/.
package aggregator

import (
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/goshlanguage/mate/internal/auth"
	"github.com/goshlanguage/mate/internal/model"
)

const clientTimeout = 30 * time.Second

// Client talks to the aggregator API. Balance submission is bearer
// authenticated through the credential cache; account listing is not.
type Client struct {
	cli   *resty.Client
	token *auth.TokenCache
}

func NewClient(host string, token *auth.TokenCache) *Client {
	return &Client{
		cli: resty.New().
			SetBaseURL(strings.TrimSuffix(host, "/")).
			SetTimeout(clientTimeout),
		token: token,
	}
}

type accountsResponse struct {
	Accounts []model.RemoteAccount `json:"accounts"`
}

// GetAccounts fetches the account definitions when accounts are sourced from
// the API instead of local configuration.
func (c *Client) GetAccounts() ([]model.RemoteAccount, error) {
	var body accountsResponse
	resp, err := c.cli.R().
		SetResult(&body).
		Get("/accounts/")
	if err != nil {
		return nil, errors.Wrap(err, "get accounts")
	}
	if resp.IsError() {
		return nil, errors.Errorf("get accounts returned %s", resp.Status())
	}
	log.Debugf("aggregator returned %d accounts", len(body.Accounts))
	return body.Accounts, nil
}

// SubmitBalances PUTs one cycle's balance observations.
func (c *Client) SubmitBalances(payload model.BalancePayload) error {
	token, err := c.token.Token()
	if err != nil {
		return errors.Wrap(err, "aggregator token")
	}

	resp, err := c.cli.R().
		SetAuthToken(token).
		SetBody(payload).
		Put("/accounts/balance/")
	if err != nil {
		return errors.Wrap(err, "submit balances")
	}
	if resp.IsError() {
		return errors.Errorf("submit balances returned %s", resp.Status())
	}
	return nil
}
