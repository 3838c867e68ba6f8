package cache

// Stats is a point-in-time snapshot of cache counters.
// Expired is non-zero only for a TTLCache.
type Stats struct {
	Hits    uint64
	Misses  uint64
	Expired uint64
	// HitRate is Hits / (Hits + Misses), 0 before any Get has run.
	HitRate  float64
	Size     int
	Capacity int
}

// NoopMetrics is a drop-in Metrics implementation that does nothing.
// It is safe for concurrent use and intended as the default when
// no observability backend is configured.
type NoopMetrics struct{}

func (NoopMetrics) Hit()              {}
func (NoopMetrics) Miss()             {}
func (NoopMetrics) Evict(EvictReason) {}
func (NoopMetrics) Size(entries int)  {}

// Ensure NoopMetrics implements the Metrics interface at compile time.
var _ Metrics = NoopMetrics{}
