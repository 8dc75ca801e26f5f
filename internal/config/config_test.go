package config

import "testing"

func baseEnv() map[string]string {
	return map[string]string{
		"DATABASE_URL": "postgres://localhost:5432/pricing",
		"REDIS_URL":    "redis://localhost:6379/0",
		"JWT_SECRET":   "secret",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(baseEnv())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr() != ":8080" {
		t.Fatalf("expected default addr :8080, got %s", cfg.HTTPAddr())
	}
	if cfg.TaxRateBps != 0 {
		t.Fatalf("expected default tax 0 bps, got %d", cfg.TaxRateBps)
	}
	if cfg.QuoteRateLimitMax != 60 {
		t.Fatalf("expected default quote rate limit 60, got %d", cfg.QuoteRateLimitMax)
	}
	if cfg.CurrencyCode != "BDT" {
		t.Fatalf("expected default currency BDT, got %s", cfg.CurrencyCode)
	}
}

func TestLoadRequiresDatabase(t *testing.T) {
	env := baseEnv()
	env["DATABASE_URL"] = ""
	if _, err := LoadForTests(env); err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
}

func TestLoadRejectsNegativeTax(t *testing.T) {
	env := baseEnv()
	env["PRICING_TAX_RATE_BPS"] = "-5"
	if _, err := LoadForTests(env); err == nil {
		t.Fatal("expected error for negative tax rate")
	}
}
