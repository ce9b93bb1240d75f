package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Store != "memory" || cfg.LockBackend != "memory" || cfg.EventBroker != "log" {
		t.Fatalf("unexpected backends %q/%q/%q", cfg.Store, cfg.LockBackend, cfg.EventBroker)
	}
	if cfg.DefaultHourlyRate.Amount != 3000 || cfg.DefaultHourlyRate.Currency != "EUR" {
		t.Fatalf("unexpected default rate %s", cfg.DefaultHourlyRate)
	}
	if len(cfg.RetryBackoff) != 3 || cfg.RetryBackoff[2] != 30*time.Second {
		t.Fatalf("unexpected backoff %v", cfg.RetryBackoff)
	}
	if cfg.UsesRedis() {
		t.Fatal("memory defaults must not need redis")
	}
}

func TestLoad_ParsesOverrides(t *testing.T) {
	t.Setenv("STORE", "mongo")
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("LOCK_BACKEND", "redis")
	t.Setenv("STRIPE_ACCOUNTS", "p1=acct_1, p2=acct_2")
	t.Setenv("WALL_CLOCK_TZ", "Europe/Berlin")
	t.Setenv("RATE_LIMIT_ENABLED", "off")
	t.Setenv("PAYOUT_READY_PROVIDERS", "p1,p2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.StripeAccounts["p2"] != "acct_2" {
		t.Fatalf("unexpected accounts %v", cfg.StripeAccounts)
	}
	if cfg.Location.String() != "Europe/Berlin" {
		t.Fatalf("unexpected location %s", cfg.Location)
	}
	if cfg.RateLimitEnabled || !cfg.UsesRedis() || len(cfg.PayoutReadyProviders) != 2 {
		t.Fatalf("unexpected config %#v", cfg)
	}
}

func TestLoad_RejectsInvalid(t *testing.T) {
	cases := map[string]map[string]string{
		"mongo without uri":   {"STORE": "mongo"},
		"unknown broker":      {"EVENT_BROKER": "nats"},
		"kafka without hosts": {"EVENT_BROKER": "kafka"},
		"stripe without key":  {"PAYOUT_MODE": "stripe"},
		"bad duration":        {"LOCK_TTL": "soon"},
		"bad pair":            {"STRIPE_ACCOUNTS": "p1"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
