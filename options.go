package asyncproc

import (
	"fmt"
	"time"
)

// Option configures a DriverCoordinator. Pass options as the trailing
// arguments of New to construct one via options, mirroring the teacher's functional-options
// idiom (options.go).
type Option func(*Config)

// WithPoolSize sets async_pool_size. n == 0 selects the synchronous
// fallback path: callbacks run on the driver thread when dispatched, and
// their events are finalized on the driver's next drain pass, not in the
// same step.
func WithPoolSize(n int) Option {
	return func(c *Config) { c.PoolSize = n }
}

// WithFlushInterval sets async_flush_interval_ms.
func WithFlushInterval(d time.Duration) Option {
	return func(c *Config) { c.FlushInterval = d }
}

// WithMaxEventsPerKey sets async_max_events_per_key. Must be >= 1.
func WithMaxEventsPerKey(n int) Option {
	return func(c *Config) { c.MaxEventsPerKey = n }
}

// WithDriverID sets the driver session identity used for pool.Registry
// lookup, so every processor instance on the same driver shares one
// worker pool.
func WithDriverID(id string) Option {
	return func(c *Config) { c.DriverID = id }
}

// WithReadYourWrites opts into the per-event scratch overlay, letting a
// store.get inside a callback observe that same event's own earlier
// writes before they are replayed on the driver thread.
func WithReadYourWrites(enabled bool) Option {
	return func(c *Config) { c.ReadYourWrites = enabled }
}

// buildConfig applies opts over defaultConfig and validates the result,
// panicking on a nil option or an invalid resulting config — mirroring the
// teacher's NewOptions panic-on-misconfiguration behavior at construction
// time, since these are programmer errors, not runtime conditions.
func buildConfig(opts ...Option) Config {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			panic("asyncproc: nil option")
		}
		opt(&cfg)
	}
	if err := validateConfig(&cfg); err != nil {
		panic(fmt.Errorf("asyncproc: invalid config: %w", err))
	}
	return cfg
}

// ConfigFromHostProperties bridges the host's app_configs string map into
// a Config, reading the abstract configuration keys by name. Unrecognized
// keys are ignored; missing keys keep their default. This supplements the
// options-based constructor for hosts that only expose configuration as a
// flat string map.
func ConfigFromHostProperties(props map[string]string) (Config, error) {
	cfg := defaultConfig()

	if v, ok := props["async_pool_size"]; ok {
		n, err := parseNonNegativeInt(v)
		if err != nil {
			return Config{}, newError(KindProgramming, fmt.Errorf("async_pool_size: %w", err))
		}
		cfg.PoolSize = n
	}
	if v, ok := props["async_flush_interval_ms"]; ok {
		n, err := parseNonNegativeInt(v)
		if err != nil {
			return Config{}, newError(KindProgramming, fmt.Errorf("async_flush_interval_ms: %w", err))
		}
		cfg.FlushInterval = time.Duration(n) * time.Millisecond
	}
	if v, ok := props["async_max_events_per_key"]; ok {
		n, err := parseNonNegativeInt(v)
		if err != nil {
			return Config{}, newError(KindProgramming, fmt.Errorf("async_max_events_per_key: %w", err))
		}
		cfg.MaxEventsPerKey = n
	}
	if v, ok := props["driver_id"]; ok {
		cfg.DriverID = v
	}
	if v, ok := props["async_read_your_writes"]; ok {
		cfg.ReadYourWrites = v == "true"
	}

	if err := validateConfig(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parseNonNegativeInt(s string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("must be >= 0: %q", s)
	}
	return n, nil
}
