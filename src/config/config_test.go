package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	// Empty values fall back to the defaults in the typed getters.
	for _, key := range []string{"HORIZON_DAYS", "PROJECTION_INTERVAL", "AUTH_DISABLED"} {
		t.Setenv(key, "")
	}
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:3000")
	t.Setenv("NOTIFY_PROVIDER", "none")

	LoadConfig()
	if Cfg.HorizonDays != 30 {
		t.Errorf("HorizonDays = %d, want 30", Cfg.HorizonDays)
	}
	if Cfg.ProjectionInterval != time.Hour {
		t.Errorf("ProjectionInterval = %s, want 1h", Cfg.ProjectionInterval)
	}
	if Cfg.AuthDisabled {
		t.Error("AuthDisabled should default to false")
	}
	if !reflect.DeepEqual(Cfg.AllowedOrigins, []string{"http://localhost:3000"}) {
		t.Errorf("AllowedOrigins = %v", Cfg.AllowedOrigins)
	}
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_DRIVER", "Memory")
	t.Setenv("HORIZON_DAYS", "60")
	t.Setenv("PROJECTION_INTERVAL", "0")
	t.Setenv("PROJECTION_WORKERS", "0")
	t.Setenv("VIEW_CACHE_TTL", "30s")
	t.Setenv("AUTH_DISABLED", "true")
	t.Setenv("RATE_LIMIT_PER_SECOND", "-5")
	t.Setenv("ALLOWED_ORIGINS", " http://a.test , ,http://b.test")
	t.Setenv("NOTIFY_PROVIDER", "none")

	LoadConfig()
	if Cfg.Port != "9090" || Cfg.DatabaseDriver != "memory" {
		t.Errorf("Port/Driver = %s/%s", Cfg.Port, Cfg.DatabaseDriver)
	}
	if Cfg.HorizonDays != 60 {
		t.Errorf("HorizonDays = %d", Cfg.HorizonDays)
	}
	if Cfg.ProjectionInterval != 0 {
		t.Errorf("PROJECTION_INTERVAL=0 should disable the ticker, got %s", Cfg.ProjectionInterval)
	}
	if Cfg.ProjectionWorkers != 1 {
		t.Errorf("ProjectionWorkers = %d, want clamp to 1", Cfg.ProjectionWorkers)
	}
	if Cfg.ViewCacheTTL != 30*time.Second {
		t.Errorf("ViewCacheTTL = %s", Cfg.ViewCacheTTL)
	}
	if !Cfg.AuthDisabled {
		t.Error("AuthDisabled should be true")
	}
	if Cfg.RateLimitPerSecond != 10 {
		t.Errorf("invalid rate limit should fall back to 10, got %v", Cfg.RateLimitPerSecond)
	}
	if !reflect.DeepEqual(Cfg.AllowedOrigins, []string{"http://a.test", "http://b.test"}) {
		t.Errorf("AllowedOrigins = %v", Cfg.AllowedOrigins)
	}
}

func TestNegativeHorizonFallsBack(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("NOTIFY_PROVIDER", "none")
	t.Setenv("HORIZON_DAYS", "-3")

	LoadConfig()
	if Cfg.HorizonDays != 30 {
		t.Errorf("HorizonDays = %d, want 30", Cfg.HorizonDays)
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "banana")
	if got := getEnvAsDuration("TEST_DURATION", time.Minute); got != time.Minute {
		t.Errorf("invalid duration should fall back, got %s", got)
	}
	t.Setenv("TEST_DURATION", "90m")
	if got := getEnvAsDuration("TEST_DURATION", time.Minute); got != 90*time.Minute {
		t.Errorf("got %s, want 90m", got)
	}
}
