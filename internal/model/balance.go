package model

import "time"

// BalanceRecord is one balance observation for one account. Records are
// transient: constructed during a cycle, handed to the aggregator and the
// recorder, never retained across cycles.
type BalanceRecord struct {
	AccountID  int       `json:"account_id"`
	Balance    float64   `json:"balance"`
	ObservedAt time.Time `json:"-"`
}

// BalancePayload is the wire shape of PUT /accounts/balance/.
type BalancePayload struct {
	Balances []BalanceRecord `json:"balances"`
}
