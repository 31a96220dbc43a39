package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/goshlanguage/mate/internal/account"
	"github.com/goshlanguage/mate/internal/aggregator"
	"github.com/goshlanguage/mate/internal/auth"
	"github.com/goshlanguage/mate/internal/collector"
	"github.com/goshlanguage/mate/internal/config"
	"github.com/goshlanguage/mate/internal/recorder"
	"github.com/goshlanguage/mate/internal/scheduler"
	"github.com/goshlanguage/mate/internal/secret"
	"github.com/goshlanguage/mate/internal/sink"
)

var (
	cfgPath      string
	verbosity    int
	flagAccounts []string
	flagStocks   []string
	flagCrypto   []string
	flagAPIHost  string
	flagFilepath string
	flagS3Bucket string
	flagS3Proto  string
	flagS3Region string
	flagPollCron string
	runOnStart   bool
)

var rootCmd = &cobra.Command{
	Use:     "mate-collector",
	Short:   "collects data for local caching",
	Version: "0.1.0",
	RunE:    run,
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&cfgPath, "config", "c", "configs/config.yaml", "config file")
	f.CountVarP(&verbosity, "verbose", "v", "increase log verbosity")
	f.StringSliceVarP(&flagAccounts, "accounts", "a", nil, "enable an account vendor (tdameritrade, kraken)")
	f.StringSliceVarP(&flagStocks, "stock", "s", nil, "stock symbol to watch")
	f.StringSliceVar(&flagCrypto, "crypto", nil, "crypto pair to watch")
	f.StringVar(&flagAPIHost, "api-host", "", "aggregator API host")
	f.StringVar(&flagFilepath, "filepath", "", "root directory for the filesystem sink")
	f.StringVar(&flagS3Bucket, "s3-bucket", "", "object storage bucket")
	f.StringVar(&flagS3Proto, "s3-proto", "", "object storage protocol (http or https)")
	f.StringVar(&flagS3Region, "s3-region", "", "object storage region")
	f.StringVar(&flagPollCron, "poll-cron", "", `poll schedule, e.g. "@every 1h"`)
	f.BoolVar(&runOnStart, "run-on-start", false, "run one collection cycle immediately")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	setLogLevel(verbosity)
	log.Info("mate-collector starting")

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "config validation")
	}

	secrets, err := config.LoadSecrets()
	if err != nil {
		return err
	}

	agg := buildAggregator(cfg, secrets)
	accounts, err := buildAccounts(cfg, secrets, agg)
	if err != nil {
		return err
	}

	state, objects, err := buildSinks(cfg, secrets)
	if err != nil {
		return err
	}

	rec := buildRecorder(cfg)
	defer rec.Close()

	col := collector.New(accounts, state, objects, agg, rec,
		cfg.Watchlist.Stocks, cfg.Watchlist.Crypto)

	sched := scheduler.New(col)
	if err := sched.Register(cfg.Schedule.PollCron); err != nil {
		return err
	}

	// The startup cycle runs to completion before cron starts firing, so it
	// can never overlap a scheduled cycle.
	if runOnStart || cfg.Schedule.RunOnStart {
		sched.RunNow()
	}

	sched.Start()
	defer sched.Stop()

	log.Infof("mate-collector running, polling %s", cfg.Schedule.PollCron)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, stopping")
	return nil
}

func setLogLevel(v int) {
	switch v {
	case 0:
		log.SetLevel(log.InfoLevel)
	case 1:
		log.SetLevel(log.DebugLevel)
	default:
		log.SetLevel(log.TraceLevel)
	}
}

func applyFlags(cfg *config.Config) {
	if len(flagAccounts) > 0 {
		cfg.Accounts = nil
		for _, vendor := range flagAccounts {
			cfg.Accounts = append(cfg.Accounts, config.AccountConfig{Name: vendor, Vendor: vendor})
		}
	}
	if len(flagStocks) > 0 {
		cfg.Watchlist.Stocks = flagStocks
	}
	if len(flagCrypto) > 0 {
		cfg.Watchlist.Crypto = flagCrypto
	}
	if flagAPIHost != "" {
		cfg.API.Host = flagAPIHost
	}
	if flagFilepath != "" {
		cfg.Storage.Filepath = flagFilepath
	}
	if flagS3Bucket != "" {
		cfg.Storage.S3Bucket = flagS3Bucket
	}
	if flagS3Proto != "" {
		cfg.Storage.S3Proto = flagS3Proto
	}
	if flagS3Region != "" {
		cfg.Storage.S3Region = flagS3Region
	}
	if flagPollCron != "" {
		cfg.Schedule.PollCron = flagPollCron
	}
}

func buildAggregator(cfg *config.Config, secrets config.Secrets) *aggregator.Client {
	if cfg.API.Host == "" {
		return nil
	}
	token := auth.NewTokenCache(auth.ClientCredentials(
		cfg.API.Authority,
		secrets.MateClientID,
		secrets.MateClientKey,
		secrets.MateClientSecret,
	))
	return aggregator.NewClient(cfg.API.Host, token)
}

// buildAccounts constructs provider clients from local configuration, or from
// the aggregator when an API host is set. Bad credentials are fatal here:
// better to refuse to start than to fail every cycle.
func buildAccounts(cfg *config.Config, secrets config.Secrets, agg *aggregator.Client) ([]account.Account, error) {
	env := account.Credentials{
		TDAClientID:     secrets.TDAClientID,
		TDARefreshToken: secrets.TDARefreshToken,
		KrakenAPIKey:    secrets.KrakenAPIKey,
		KrakenAPISecret: secrets.KrakenAPISecret,
	}

	if agg != nil {
		log.Info("configuring accounts from the API")
		remote, err := agg.GetAccounts()
		if err != nil {
			return nil, errors.Wrap(err, "fetch accounts from aggregator")
		}

		accounts := make([]account.Account, 0, len(remote))
		for _, r := range remote {
			log.Infof("setting up %s account %s", r.Vendor, r.Name)
			decrypted, err := secret.Decrypt(r.ClientSecret, secrets.MateSalt)
			if err != nil {
				return nil, errors.Wrapf(err, "decrypt secret for account %s", r.Name)
			}
			a, err := account.New(r.Name, r.Vendor, r.ID, r.ClientKey, decrypted, env)
			if err != nil {
				return nil, err
			}
			accounts = append(accounts, a)
		}
		return accounts, nil
	}

	log.Info("configuring accounts from local configuration")
	accounts := make([]account.Account, 0, len(cfg.Accounts))
	for _, ac := range cfg.Accounts {
		log.Infof("setting up %s account %s", ac.Vendor, ac.Name)
		a, err := account.New(ac.Name, ac.Vendor, 0, "", "", env)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, nil
}

func buildSinks(cfg *config.Config, secrets config.Secrets) (state, objects sink.Sink, err error) {
	if cfg.Storage.Filepath != "" {
		fs, err := sink.NewFileSink(cfg.Storage.Filepath)
		if err != nil {
			return nil, nil, err
		}
		state = fs
		log.Infof("filesystem sink: %s", cfg.Storage.Filepath)
	}

	if cfg.Storage.S3Bucket != "" {
		s3, err := sink.NewS3Sink(sink.S3Config{
			Bucket:    cfg.Storage.S3Bucket,
			Proto:     cfg.Storage.S3Proto,
			Region:    cfg.Storage.S3Region,
			Endpoint:  secrets.BucketHost,
			AccessKey: secrets.BucketAccessKey,
			SecretKey: secrets.BucketSecretKey,
		})
		if err != nil {
			return nil, nil, err
		}
		objects = s3
		log.Infof("object storage sink: %s", cfg.Storage.S3Bucket)
	}

	if state == nil && objects == nil {
		log.Warn("no sinks configured, collected data will be discarded")
	}
	return state, objects, nil
}

func buildRecorder(cfg *config.Config) recorder.Recorder {
	if cfg.Database.SQLitePath == "" {
		return recorder.NewNoopRecorder()
	}
	rec, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
	if err != nil {
		log.WithError(err).Warn("init sqlite recorder failed, using noop")
		return recorder.NewNoopRecorder()
	}
	return rec
}
