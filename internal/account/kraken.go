package account

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/goshlanguage/mate/internal/model"
)

const (
	VendorKraken = "kraken"

	krakenBaseURL = "https://api.kraken.com"
	krakenTimeout = 30 * time.Second

	refCurrency = "ZUSD"
)

// KrakenAccount is the exchange variant. Public endpoints (ticker) are
// unauthenticated; private endpoints are signed with the API secret.
type KrakenAccount struct {
	name       string
	databaseID int
	key        string
	secret     []byte

	cli   *resty.Client
	nonce func() int64
}

func NewKrakenAccount(name string, databaseID int, key, secret string) (*KrakenAccount, error) {
	if key == "" || secret == "" {
		return nil, errors.New("kraken requires KRAKEN_API_KEY and KRAKEN_API_SECRET")
	}
	decoded, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return nil, errors.Wrap(err, "kraken secret is not valid base64")
	}

	return &KrakenAccount{
		name:       name,
		databaseID: databaseID,
		key:        key,
		secret:     decoded,
		cli: resty.New().
			SetBaseURL(krakenBaseURL).
			SetTimeout(krakenTimeout),
		nonce: func() int64 { return time.Now().UnixNano() },
	}, nil
}

func (a *KrakenAccount) Name() string { return a.name }
func (a *KrakenAccount) Vendor() string { return VendorKraken }
func (a *KrakenAccount) Kind() Kind { return Exchange }
func (a *KrakenAccount) DatabaseID() int { return a.databaseID }

// krakenEnvelope wraps every Kraken response; a populated error list means
// the call failed even under HTTP 200.
type krakenEnvelope struct {
	Error  []string        `json:"error"`
	Result json.RawMessage `json:"result"`
}

// GetBalance sums per-asset holdings converted to the reference currency via
// each asset's current spot price. The reference currency itself contributes
// directly without a conversion call.
func (a *KrakenAccount) GetBalance() (float64, error) {
	holdings, err := a.accountBalance()
	if err != nil {
		return 0, err
	}

	// Deterministic iteration keeps spot-price call order stable across runs.
	assets := make([]string, 0, len(holdings))
	for asset := range holdings {
		assets = append(assets, asset)
	}
	sort.Strings(assets)
	log.Debugf("kraken holdings for %s: %s", a.name, strings.Join(assets, ", "))

	total := decimal.Zero
	for _, asset := range assets {
		pair := TickerPair(asset)
		if pair == "" {
			total = total.Add(holdings[asset])
			continue
		}

		spot, err := a.spotPrice(pair)
		if err != nil {
			return 0, errors.Wrapf(err, "spot price for %s", pair)
		}
		log.Debugf("spot price for %s: %s", pair, spot)
		total = total.Add(holdings[asset].Mul(spot))
	}

	return total.InexactFloat64(), nil
}

// GetTicks fetches current quote data for the whole watch-list in one batched
// call and returns the raw vendor payload per pair.
func (a *KrakenAccount) GetTicks(pairs []string) (map[string]json.RawMessage, error) {
	result, err := a.public("/0/public/Ticker", url.Values{"pair": {strings.Join(pairs, ",")}})
	if err != nil {
		return nil, err
	}

	ticks := map[string]json.RawMessage{}
	if err := json.Unmarshal(result, &ticks); err != nil {
		return nil, errors.Wrap(err, "decode ticker response")
	}
	return ticks, nil
}

// GetPriceHistory is a brokerage capability; the exchange variant collects
// tick snapshots instead.
func (a *KrakenAccount) GetPriceHistory(string) ([]model.Candle, error) {
	return nil, errors.Wrap(ErrUnsupported, "kraken price history")
}

func (a *KrakenAccount) GetLatestBar(string) (model.Candle, error) {
	return model.Candle{}, errors.Wrap(ErrUnsupported, "kraken latest bar")
}

// TickerPair maps a held asset to the trading pair used to price it in the
// reference currency. Staked assets carry a suffix (".S") the ticker endpoint
// does not accept, and a few assets use vendor-specific pair names.
// An empty return means the asset is the reference currency itself.
func TickerPair(asset string) string {
	if i := strings.IndexByte(asset, '.'); i >= 0 {
		asset = asset[:i]
	}
	switch asset {
	case refCurrency:
		return ""
	case "ATOM":
		return "ATOMUSD"
	case "XXDG":
		return "XDGUSD"
	default:
		return asset + refCurrency
	}
}

func (a *KrakenAccount) accountBalance() (map[string]decimal.Decimal, error) {
	result, err := a.private("/0/private/Balance", url.Values{})
	if err != nil {
		return nil, err
	}

	raw := map[string]string{}
	if err := json.Unmarshal(result, &raw); err != nil {
		return nil, errors.Wrap(err, "decode balance response")
	}

	holdings := make(map[string]decimal.Decimal, len(raw))
	for asset, amount := range raw {
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, errors.Wrapf(err, "parse balance for %s", asset)
		}
		holdings[asset] = d
	}
	return holdings, nil
}

type krakenTicker struct {
	// c holds [price, lot volume] for the most recent trade.
	Close []string `json:"c"`
}

func (a *KrakenAccount) spotPrice(pair string) (decimal.Decimal, error) {
	result, err := a.public("/0/public/Ticker", url.Values{"pair": {pair}})
	if err != nil {
		return decimal.Zero, err
	}

	tickers := map[string]krakenTicker{}
	if err := json.Unmarshal(result, &tickers); err != nil {
		return decimal.Zero, errors.Wrap(err, "decode ticker response")
	}

	ticker, ok := tickers[pair]
	if !ok || len(ticker.Close) == 0 {
		return decimal.Zero, errors.Errorf("no ticker data for %s", pair)
	}
	return decimal.NewFromString(ticker.Close[0])
}

func (a *KrakenAccount) public(path string, query url.Values) (json.RawMessage, error) {
	var body krakenEnvelope
	resp, err := a.cli.R().
		SetQueryParamsFromValues(query).
		SetResult(&body).
		Get(path)
	return unwrapKraken(&body, resp, err, path)
}

// private signs the request per Kraken's scheme: API-Sign is the HMAC-SHA512
// of path + SHA256(nonce + POST data), keyed with the base64-decoded secret.
func (a *KrakenAccount) private(path string, form url.Values) (json.RawMessage, error) {
	form.Set("nonce", strconv.FormatInt(a.nonce(), 10))

	var body krakenEnvelope
	resp, err := a.cli.R().
		SetHeader("API-Key", a.key).
		SetHeader("API-Sign", a.sign(path, form)).
		SetFormDataFromValues(form).
		SetResult(&body).
		Post(path)
	return unwrapKraken(&body, resp, err, path)
}

func (a *KrakenAccount) sign(path string, form url.Values) string {
	digest := sha256.Sum256([]byte(form.Get("nonce") + form.Encode()))
	mac := hmac.New(sha512.New, a.secret)
	mac.Write([]byte(path))
	mac.Write(digest[:])
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func unwrapKraken(body *krakenEnvelope, resp *resty.Response, err error, path string) (json.RawMessage, error) {
	if err != nil {
		return nil, errors.Wrapf(err, "kraken %s", path)
	}
	if resp.IsError() {
		return nil, errors.Errorf("kraken %s returned %s", path, resp.Status())
	}
	if len(body.Error) > 0 {
		return nil, errors.Errorf("kraken %s: %s", path, strings.Join(body.Error, "; "))
	}
	return body.Result, nil
}
