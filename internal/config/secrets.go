package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// Secrets carries every credential the collector can need, resolved once at
// startup from the environment and threaded through constructors explicitly.
// None of these values appear in config files, logs, or persisted documents.
type Secrets struct {
	TDAClientID     string `envconfig:"TDA_CLIENT_ID"`
	TDARefreshToken string `envconfig:"TDA_REFRESH_TOKEN"`
	KrakenAPIKey    string `envconfig:"KRAKEN_API_KEY"`
	KrakenAPISecret string `envconfig:"KRAKEN_API_SECRET"`

	// Aggregator client-credentials grant. MateClientID doubles as the
	// token audience.
	MateClientID     string `envconfig:"MATE_CLIENT_ID"`
	MateClientKey    string `envconfig:"MATE_CLIENT_KEY"`
	MateClientSecret string `envconfig:"MATE_CLIENT_SECRET"`
	// MateSalt decrypts client secrets served by the aggregator.
	MateSalt string `envconfig:"MATE_SALT"`

	BucketHost      string `envconfig:"BUCKET_HOST"`
	BucketAccessKey string `envconfig:"AWS_ACCESS_KEY_ID"`
	BucketSecretKey string `envconfig:"AWS_SECRET_ACCESS_KEY"`
}

// LoadSecrets resolves secrets from the environment, reading a local .env
// first when one exists.
func LoadSecrets() (Secrets, error) {
	_ = godotenv.Load()

	var s Secrets
	if err := envconfig.Process("", &s); err != nil {
		return s, errors.Wrap(err, "process environment")
	}
	return s, nil
}
