package asyncproc

import "time"

// Config holds a DriverCoordinator's configuration.
type Config struct {
	// PoolSize is async_pool_size: N worker threads per driver. Zero
	// disables asynchrony — callbacks run synchronously on the driver
	// thread when dispatched. Their events are not finalized in that same
	// step: finalization happens on the driver's next drain pass (the next
	// Process, tick or FlushAndAwait), as on the async path. Default: 0.
	PoolSize int

	// FlushInterval is async_flush_interval_ms: the periodic tick period
	// that drains both queues when no new input record arrives.
	// Default: 10ms.
	FlushInterval time.Duration

	// MaxEventsPerKey is async_max_events_per_key: the per-key depth cap
	// enforced by SchedulingQueue. Must be >= 1.
	// Default: 1.
	MaxEventsPerKey int

	// DriverID identifies the driver session for pool.Registry lookup, so
	// every processor instance sharing a DriverID shares one worker pool.
	DriverID string

	// ReadYourWrites opts an event's store.get calls into observing that
	// same event's own earlier writes via a per-event scratch overlay.
	// Never lets one event observe another's writes. Default: false.
	ReadYourWrites bool
}

// defaultConfig centralizes default values, applied by both New (when cfg
// is nil) and the options builder base.
func defaultConfig() Config {
	return Config{
		PoolSize:        0,
		FlushInterval:   10 * time.Millisecond,
		MaxEventsPerKey: 1,
	}
}

// validateConfig enforces the constraints on the abstract configuration
// keys.
func validateConfig(cfg *Config) error {
	if cfg.PoolSize < 0 {
		return newError(KindProgramming, errInvalidConfig("async_pool_size must be >= 0"))
	}
	if cfg.MaxEventsPerKey < 1 {
		return newError(KindProgramming, errInvalidConfig("async_max_events_per_key must be >= 1"))
	}
	if cfg.FlushInterval < 0 {
		return newError(KindProgramming, errInvalidConfig("async_flush_interval_ms must be >= 0"))
	}
	return nil
}

type configError string

func (e configError) Error() string { return string(e) }

func errInvalidConfig(msg string) error { return configError(msg) }
