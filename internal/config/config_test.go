package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.GinMode != "release" {
		t.Errorf("GinMode = %q, want release", cfg.GinMode)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.DBPath != "fulfillment.db" {
		t.Errorf("DBPath = %q, want fulfillment.db", cfg.DBPath)
	}
	if cfg.Stripe.WebhookTolerance != 5*time.Minute {
		t.Errorf("WebhookTolerance = %v, want 5m", cfg.Stripe.WebhookTolerance)
	}
	if cfg.Fees.DefaultBps != 290 || cfg.Fees.DefaultFixedCents != 25 {
		t.Errorf("fee defaults = %d/%d, want 290/25", cfg.Fees.DefaultBps, cfg.Fees.DefaultFixedCents)
	}
	if cfg.RateRPS != 25.0 || cfg.RateBurst != 50 {
		t.Errorf("rate defaults = %v/%d, want 25/50", cfg.RateRPS, cfg.RateBurst)
	}
}

func TestLoad_RequiresWebhookSecret(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when STRIPE_WEBHOOK_SECRET is unset")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "WARNING")
	t.Setenv("GIN_MODE", "bogus")
	t.Setenv("FEE_DEFAULT_BPS", "150")
	t.Setenv("STRIPE_WEBHOOK_TOLERANCE", "2m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn (normalized)", cfg.LogLevel)
	}
	if cfg.GinMode != "release" {
		t.Errorf("GinMode = %q, want release (normalized)", cfg.GinMode)
	}
	if cfg.Fees.DefaultBps != 150 {
		t.Errorf("DefaultBps = %d, want 150", cfg.Fees.DefaultBps)
	}
	if cfg.Stripe.WebhookTolerance != 2*time.Minute {
		t.Errorf("WebhookTolerance = %v, want 2m", cfg.Stripe.WebhookTolerance)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := map[string]string{
		"LOG_LEVEL":                "verbose",
		"STRIPE_WEBHOOK_TOLERANCE": "-1m",
		"RATE_BURST":               "0",
		"OTEL_TRACES_SAMPLER_ARG":  "1.5",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")
			t.Setenv(key, val)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", key, val)
			}
		})
	}
}
