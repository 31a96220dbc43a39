package model

import "encoding/json"

// TickSnapshot accumulates provider tick payloads for one pair within a
// day-partitioned document, keyed by epoch seconds. Payloads are opaque to
// the collector and stored verbatim.
type TickSnapshot map[string]json.RawMessage
