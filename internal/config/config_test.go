package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
database:
  url: postgres://localhost/dailyquote
razorpay:
  key_id: rzp_test_abc
  key_secret: shh
twilio:
  account_sid: AC123
  auth_token: token
  whatsapp_from: "+14155238886"
`

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Razorpay.BaseURL != "https://api.razorpay.com" {
		t.Errorf("Razorpay.BaseURL = %q", cfg.Razorpay.BaseURL)
	}
	if cfg.Razorpay.SubscriptionAmount != 9900 {
		t.Errorf("SubscriptionAmount = %d, want 9900", cfg.Razorpay.SubscriptionAmount)
	}
	if cfg.Razorpay.Currency != "INR" {
		t.Errorf("Currency = %q, want INR", cfg.Razorpay.Currency)
	}
	if cfg.Twilio.Timeout() != 30*time.Second {
		t.Errorf("Twilio.Timeout() = %v, want 30s", cfg.Twilio.Timeout())
	}
	if cfg.Broadcast.HourUTC != 6 || cfg.Broadcast.MinuteUTC != 0 {
		t.Errorf("broadcast fire time = %02d:%02d, want 06:00", cfg.Broadcast.HourUTC, cfg.Broadcast.MinuteUTC)
	}
	if cfg.Broadcast.LockTTL() != 30*time.Minute {
		t.Errorf("LockTTL = %v, want 30m", cfg.Broadcast.LockTTL())
	}
}

func TestLoadExplicitValues(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig+`
server:
  port: 9090
broadcast:
  enabled: true
  hour_utc: 1
  minute_utc: 30
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if !cfg.Broadcast.Enabled {
		t.Error("Broadcast.Enabled = false, want true")
	}
	if cfg.Broadcast.HourUTC != 1 || cfg.Broadcast.MinuteUTC != 30 {
		t.Errorf("broadcast fire time = %02d:%02d, want 01:30", cfg.Broadcast.HourUTC, cfg.Broadcast.MinuteUTC)
	}
}

func TestLoadMidnightFireTime(t *testing.T) {
	// An explicit 00:00 UTC fire time must not be overridden by the 06:00
	// default.
	cfg, err := Load(writeConfig(t, minimalConfig+`
broadcast:
  hour_utc: 0
  minute_utc: 0
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Broadcast.HourUTC != 0 || cfg.Broadcast.MinuteUTC != 0 {
		t.Errorf("broadcast fire time = %02d:%02d, want 00:00", cfg.Broadcast.HourUTC, cfg.Broadcast.MinuteUTC)
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://prod/dailyquote")
	t.Setenv("RAZORPAY_KEY_SECRET", "env-secret")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("BROADCAST_INTERNAL_TOKEN", "internal-token")

	cfg, err := LoadFromEnv(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}

	if cfg.Database.URL != "postgres://prod/dailyquote" {
		t.Errorf("Database.URL = %q", cfg.Database.URL)
	}
	if cfg.Razorpay.KeySecret != "env-secret" {
		t.Errorf("KeySecret = %q, want env override", cfg.Razorpay.KeySecret)
	}
	if !cfg.Redis.Enabled || cfg.Redis.Addr != "redis:6379" {
		t.Errorf("Redis = %+v, want enabled at redis:6379", cfg.Redis)
	}
	if cfg.Auth.InternalToken != "internal-token" {
		t.Errorf("InternalToken = %q", cfg.Auth.InternalToken)
	}
}

func TestValidate(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate on complete config: %v", err)
	}

	cfg.Razorpay.KeySecret = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Validate passed with empty razorpay key secret")
	}

	cfg.Razorpay.KeySecret = "shh"
	cfg.Twilio.WhatsAppFrom = "not-a-number"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate passed with non-E.164 whatsapp_from")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load of missing file returned nil error")
	}
}
