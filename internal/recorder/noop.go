package recorder

// NoopRecorder is a no-op implementation used when no history database is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRun(_ *RunEvent) error               { return nil }
func (n *NoopRecorder) RecordCoinResult(_ *CoinResultEvent) error { return nil }
func (n *NoopRecorder) Close() error                              { return nil }
