package asyncproc

import "testing"

func TestValidateConfig_Defaults(t *testing.T) {
	cfg := defaultConfig()
	if err := validateConfig(&cfg); err != nil {
		t.Fatalf("validateConfig returned error for defaults: %v", err)
	}
}

func TestDefaultConfig_Values(t *testing.T) {
	cfg := defaultConfig()
	if cfg.PoolSize != 0 {
		t.Fatalf("PoolSize default = %d; want 0", cfg.PoolSize)
	}
	if cfg.MaxEventsPerKey != 1 {
		t.Fatalf("MaxEventsPerKey default = %d; want 1", cfg.MaxEventsPerKey)
	}
	if cfg.ReadYourWrites != false {
		t.Fatalf("ReadYourWrites default = %v; want false", cfg.ReadYourWrites)
	}
}

func TestValidateConfig_RejectsNegativePoolSize(t *testing.T) {
	cfg := defaultConfig()
	cfg.PoolSize = -1
	if err := validateConfig(&cfg); err == nil {
		t.Fatal("expected error for negative PoolSize, got nil")
	}
}

func TestValidateConfig_RejectsZeroMaxEventsPerKey(t *testing.T) {
	cfg := defaultConfig()
	cfg.MaxEventsPerKey = 0
	if err := validateConfig(&cfg); err == nil {
		t.Fatal("expected error for MaxEventsPerKey < 1, got nil")
	}
}

func TestValidateConfig_RejectsNegativeFlushInterval(t *testing.T) {
	cfg := defaultConfig()
	cfg.FlushInterval = -1
	if err := validateConfig(&cfg); err == nil {
		t.Fatal("expected error for negative FlushInterval, got nil")
	}
}
