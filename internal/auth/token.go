package auth

import (
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const exchangeTimeout = 30 * time.Second

// RenewFunc performs a token exchange and returns the new access token plus
// its lifetime in seconds.
type RenewFunc func() (token string, expiresIn int64, err error)

// TokenCache holds a bearer token and its absolute expiry. A fresh cache is
// constructed already expired (the Unix epoch) so the first Token call always
// performs a renewal instead of handing out an empty token.
//
// The cache is mutated in place and is not safe for concurrent use; the
// polling loop is single-threaded.
type TokenCache struct {
	accessToken string
	expiry      time.Time
	renew       RenewFunc
	now         func() time.Time
}

// NewTokenCache returns a cache that renews through the given exchange.
func NewTokenCache(renew RenewFunc) *TokenCache {
	return &TokenCache{
		expiry: time.Unix(0, 0),
		renew:  renew,
		now:    time.Now,
	}
}

// Token returns the cached token while it is still valid, renewing it
// otherwise. Renewal failures propagate to the caller; there is no internal
// retry, the next scheduled cycle is the retry.
func (t *TokenCache) Token() (string, error) {
	if t.now().Before(t.expiry) {
		return t.accessToken, nil
	}

	log.Debugf("bearer token expired at %s, renewing", t.expiry.Format(time.RFC3339))
	token, expiresIn, err := t.renew()
	if err != nil {
		return "", errors.Wrap(err, "renew token")
	}

	t.accessToken = token
	t.expiry = t.now().Add(time.Duration(expiresIn) * time.Second)
	log.Debugf("bearer token renewed, new expiry %s", t.expiry.Format(time.RFC3339))
	return t.accessToken, nil
}

type clientCredentialsRequest struct {
	Audience     string `json:"audience"`
	GrantType    string `json:"grant_type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// ClientCredentials returns a RenewFunc performing the OAuth
// client-credentials exchange against {authority}/oauth/token.
func ClientCredentials(authority, audience, clientID, clientSecret string) RenewFunc {
	cli := resty.New().
		SetBaseURL(NormalizeAuthority(authority)).
		SetTimeout(exchangeTimeout)

	return func() (string, int64, error) {
		var body tokenResponse
		resp, err := cli.R().
			SetBody(clientCredentialsRequest{
				Audience:     audience,
				GrantType:    "client_credentials",
				ClientID:     clientID,
				ClientSecret: clientSecret,
			}).
			SetResult(&body).
			Post("/oauth/token")
		if err != nil {
			return "", 0, errors.Wrap(err, "post token exchange")
		}
		if resp.IsError() {
			return "", 0, errors.Errorf("token exchange returned %s", resp.Status())
		}
		return body.AccessToken, body.ExpiresIn, nil
	}
}

// NormalizeAuthority strips a trailing slash from the authority host so path
// joins stay predictable.
func NormalizeAuthority(authority string) string {
	return strings.TrimSuffix(authority, "/")
}
