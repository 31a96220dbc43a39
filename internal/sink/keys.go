package sink

import "fmt"

// Filesystem layout: equity/daily/{symbol}.json holds the full candle series,
// crypto/tick/{pair}/{YYYYMMDD}.json holds one day of tick snapshots.

func EquityDailyKey(symbol string) string {
	return fmt.Sprintf("equity/daily/%s.json", symbol)
}

func CryptoTickKey(pair, day string) string {
	return fmt.Sprintf("crypto/tick/%s/%s.json", pair, day)
}

// Object storage uses flat day-stamped keys instead of a directory tree.

func ObjectEquityDailyKey(symbol, day string) string {
	return fmt.Sprintf("equity-daily-%s-%s.json", symbol, day)
}

func ObjectCryptoTickKey(pair, day string) string {
	return fmt.Sprintf("crypto-tick-%s-%s.json", pair, day)
}
