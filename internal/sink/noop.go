package sink

// NoopSink keeps nothing. With no file or object sink configured the
// collector still exercises provider connectivity, it just discards the data.
type NoopSink struct{}

func NewNoopSink() *NoopSink { return &NoopSink{} }

func (s *NoopSink) Name() string { return "noop" }

func (s *NoopSink) Read(string) ([]byte, bool, error) { return nil, false, nil }

func (s *NoopSink) Write(string, []byte) error { return nil }
