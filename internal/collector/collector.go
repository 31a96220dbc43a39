// Package collector runs the polling cycle: for every configured account it
// collects balances and price or tick data and commits the results through
// the configured sinks. A failing unit of work (one symbol, one pair, one
// balance submission) is logged and skipped, never aborting the rest of the
// cycle.
package collector

import (
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/goshlanguage/mate/internal/account"
	"github.com/goshlanguage/mate/internal/aggregator"
	"github.com/goshlanguage/mate/internal/candlestore"
	"github.com/goshlanguage/mate/internal/model"
	"github.com/goshlanguage/mate/internal/recorder"
	"github.com/goshlanguage/mate/internal/sink"
)

// Collector owns the account list and the sinks. It is stateless across
// cycles: all incremental state lives in the documents the state sink holds,
// so a restart resumes from persisted data.
type Collector struct {
	accounts []account.Account
	store    *candlestore.Store
	state    sink.Sink
	objects  sink.Sink          // nil when object storage is not configured
	agg      *aggregator.Client // nil when no aggregator is configured
	rec      recorder.Recorder

	stocks []string
	crypto []string

	// running rejects overlapping cycles. The token caches and the
	// read-merge-write sink documents assume one cycle at a time.
	running sync.Mutex

	now func() time.Time
}

// New wires a collector. A nil state sink degrades to the noop sink: data is
// fetched and discarded, which still exercises provider connectivity.
func New(accounts []account.Account, state, objects sink.Sink, agg *aggregator.Client, rec recorder.Recorder, stocks, crypto []string) *Collector {
	if state == nil {
		state = sink.NewNoopSink()
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Collector{
		accounts: accounts,
		store:    candlestore.New(state),
		state:    state,
		objects:  objects,
		agg:      agg,
		rec:      rec,
		stocks:   stocks,
		crypto:   crypto,
		now:      time.Now,
	}
}

// Update runs one polling cycle. Accounts are visited in configuration
// order, sequentially; providers are rate limited and the data volume is
// small, so fairness beats throughput here. A call arriving while a cycle
// is already in flight returns immediately without doing any work.
func (c *Collector) Update() {
	if !c.running.TryLock() {
		log.Warn("collection cycle already in flight, skipping trigger")
		return
	}
	defer c.running.Unlock()

	cycleID := uuid.NewString()
	started := c.now()
	clog := log.WithField("cycle", cycleID)
	clog.Info("starting collection cycle")

	var ok, failed int
	for _, acct := range c.accounts {
		alog := clog.WithFields(log.Fields{
			"account": acct.Name(),
			"vendor":  acct.Vendor(),
		})

		if c.agg != nil {
			if err := c.submitBalance(cycleID, acct); err != nil {
				alog.WithError(err).Error("balance submission failed")
				failed++
			} else {
				ok++
			}
		}

		switch acct.Kind() {
		case account.Brokerage:
			alog.Info("collecting equity data")
			for _, symbol := range c.stocks {
				if err := c.updateSymbol(acct, symbol); err != nil {
					alog.WithError(err).WithField("symbol", symbol).Error("symbol update failed")
					failed++
					continue
				}
				ok++
			}
		case account.Exchange:
			alog.Info("collecting crypto tick data")
			o, f := c.updatePairs(alog, acct)
			ok, failed = ok+o, failed+f
		}
	}

	if err := c.rec.RecordCycle(&recorder.CycleRun{
		CycleID:     cycleID,
		StartedAt:   started,
		FinishedAt:  c.now(),
		UnitsOK:     ok,
		UnitsFailed: failed,
	}); err != nil {
		clog.WithError(err).Warn("recording cycle failed")
	}
	clog.WithFields(log.Fields{"ok": ok, "failed": failed}).Info("collection cycle finished")
}

// submitBalance fetches one account's balance and hands it to the aggregator
// and the local history recorder.
func (c *Collector) submitBalance(cycleID string, acct account.Account) error {
	balance, err := acct.GetBalance()
	if err != nil {
		return errors.Wrap(err, "fetch balance")
	}

	observed := c.now()
	if err := c.agg.SubmitBalances(model.BalancePayload{
		Balances: []model.BalanceRecord{{
			AccountID:  acct.DatabaseID(),
			Balance:    balance,
			ObservedAt: observed,
		}},
	}); err != nil {
		return err
	}

	if err := c.rec.RecordBalance(&recorder.BalanceObservation{
		CycleID:     cycleID,
		AccountName: acct.Name(),
		Vendor:      acct.Vendor(),
		Balance:     balance,
		ObservedAt:  observed,
	}); err != nil {
		log.WithError(err).Warn("recording balance failed")
	}
	return nil
}

// updateSymbol applies the incremental fetch policy for one symbol and
// persists the series when it changed.
func (c *Collector) updateSymbol(acct account.Account, symbol string) error {
	series, err := c.store.Load(symbol)
	if err != nil {
		return err
	}

	switch candlestore.Plan(series, c.now()) {
	case candlestore.FetchFull:
		full, err := acct.GetPriceHistory(symbol)
		if err != nil {
			return errors.Wrap(err, "full history fetch")
		}
		series = model.CandleSeries(full)
		log.Infof("fetched %d candles for %s", len(series), symbol)

	case candlestore.FetchLatest:
		bar, err := acct.GetLatestBar(symbol)
		if err != nil {
			// Existing state stays untouched; the symbol is retried next cycle.
			return errors.Wrap(err, "latest bar fetch")
		}
		if series, err = candlestore.Append(series, bar); err != nil {
			return err
		}
		log.Infof("appended fresh candle for %s", symbol)

	case candlestore.Skip:
		log.Debugf("series for %s within staleness window, skipping", symbol)
		return nil
	}

	if err := c.store.Save(symbol, series); err != nil {
		return err
	}

	data, err := json.Marshal(series)
	if err != nil {
		return errors.Wrapf(err, "encode series for %s", symbol)
	}
	c.writeObject(sink.ObjectEquityDailyKey(symbol, c.dayStamp()), data)
	return nil
}

// updatePairs performs the batched tick fetch for the whole watch-list and
// merges each pair's payload into its day-partitioned snapshot.
func (c *Collector) updatePairs(alog *log.Entry, acct account.Account) (ok, failed int) {
	if len(c.crypto) == 0 {
		return 0, 0
	}

	ticks, err := acct.GetTicks(c.crypto)
	if err != nil {
		alog.WithError(err).Error("tick fetch failed")
		return 0, len(c.crypto)
	}

	day := c.dayStamp()
	stamp := strconv.FormatInt(c.now().Unix(), 10)

	for _, pair := range c.crypto {
		payload, found := ticks[pair]
		if !found {
			alog.WithField("pair", pair).Warn("no tick data returned")
			failed++
			continue
		}
		if err := c.mergeTick(pair, day, stamp, payload); err != nil {
			alog.WithError(err).WithField("pair", pair).Error("tick update failed")
			failed++
			continue
		}
		ok++
	}
	return ok, failed
}

func (c *Collector) mergeTick(pair, day, stamp string, payload json.RawMessage) error {
	key := sink.CryptoTickKey(pair, day)

	snapshot := model.TickSnapshot{}
	data, found, err := c.state.Read(key)
	if err != nil {
		return err
	}
	if found {
		if err := json.Unmarshal(data, &snapshot); err != nil {
			return errors.Wrapf(err, "decode snapshot for %s", pair)
		}
	}
	snapshot[stamp] = payload

	data, err = json.Marshal(snapshot)
	if err != nil {
		return errors.Wrapf(err, "encode snapshot for %s", pair)
	}
	if err := c.state.Write(key, data); err != nil {
		return err
	}

	c.writeObject(sink.ObjectCryptoTickKey(pair, day), data)
	return nil
}

// writeObject commits a document to object storage. Failures are logged and
// non-fatal: the state sink's copy is already committed.
func (c *Collector) writeObject(key string, data []byte) {
	if c.objects == nil {
		return
	}
	if err := c.objects.Write(key, data); err != nil {
		log.WithError(err).WithField("key", key).Error("object storage write failed")
	}
}

func (c *Collector) dayStamp() string {
	return c.now().UTC().Format("20060102")
}
