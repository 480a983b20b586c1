package config

import (
	"testing"
	"time"
)

func TestLoadClientFromEnvironment(t *testing.T) {
	t.Setenv("AKSJERADAR_URL", "https://aksjeradar.test")
	t.Setenv("AKSJERADAR_POLL_INTERVAL", "45")
	t.Setenv("AKSJERADAR_CACHE_TTL", "2s")
	t.Setenv("AKSJERADAR_PREFS", "/tmp/prefs.yaml")

	c := LoadClient()
	if c.BaseURL != "https://aksjeradar.test" || c.PrefsPath != "/tmp/prefs.yaml" {
		t.Errorf("client = %+v", c)
	}
	if c.PollInterval != 45*time.Second || c.CacheTTL != 2*time.Second {
		t.Errorf("durations = %v, %v", c.PollInterval, c.CacheTTL)
	}
}

func TestInvalidDurationFallsBack(t *testing.T) {
	t.Setenv("BROADCAST_INTERVAL", "soon")
	if got := getDurationWithDefault("BROADCAST_INTERVAL", 30*time.Second); got != 30*time.Second {
		t.Errorf("got %v", got)
	}
}

func TestCSRFKeyDefaultsToSecret(t *testing.T) {
	t.Setenv("SECRET_KEY", "hemmelig")
	cfg := Load()
	if string(cfg.JWT.CSRFKey) != "hemmelig" || cfg.Server.Port == "" {
		t.Errorf("jwt = %+v", cfg.JWT)
	}
}
