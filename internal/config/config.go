package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Razorpay  RazorpayConfig  `yaml:"razorpay"`
	Twilio    TwilioConfig    `yaml:"twilio"`
	Auth      AuthConfig      `yaml:"auth"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with environment override
func (c ServerConfig) GetHost() string {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	URL string `yaml:"url" validate:"required"`
}

// RedisConfig holds the optional Redis connection for the broadcast run lock
type RedisConfig struct {
	Addr    string `yaml:"addr"`
	Enabled bool   `yaml:"enabled"`
}

// RazorpayConfig holds Razorpay API credentials and the subscription plan price
type RazorpayConfig struct {
	KeyID          string `yaml:"key_id" validate:"required"`
	KeySecret      string `yaml:"key_secret" validate:"required"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	// Plan price in the minor currency unit (paise). Never taken from the client.
	SubscriptionAmount int64  `yaml:"subscription_amount"`
	Currency           string `yaml:"currency"`
}

// Timeout returns the configured timeout as a duration
func (c RazorpayConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// TwilioConfig holds Twilio API credentials for WhatsApp delivery
type TwilioConfig struct {
	AccountSID     string `yaml:"account_sid" validate:"required"`
	AuthToken      string `yaml:"auth_token" validate:"required"`
	WhatsAppFrom   string `yaml:"whatsapp_from" validate:"required,e164"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration
func (c TwilioConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// AuthConfig holds the external auth service used to resolve bearer tokens
type AuthConfig struct {
	BaseURL        string `yaml:"base_url"`
	ServiceKey     string `yaml:"service_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	// InternalToken authorizes scheduler-to-server calls (broadcast trigger).
	InternalToken string `yaml:"internal_token"`
}

// Timeout returns the configured timeout as a duration
func (c AuthConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// BroadcastConfig holds daily broadcast scheduling settings.
// The fire time is interpreted in UTC, matching quote date selection.
type BroadcastConfig struct {
	Enabled    bool `yaml:"enabled"`
	HourUTC    int  `yaml:"hour_utc" validate:"gte=0,lte=23"`
	MinuteUTC  int  `yaml:"minute_utc" validate:"gte=0,lte=59"`
	LockTTLMin int  `yaml:"lock_ttl_minutes"`
}

// LockTTL returns the broadcast run lock TTL as a duration
func (c BroadcastConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLMin) * time.Minute
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	// Seeded before unmarshal so an explicit "hour_utc: 0" survives; a
	// zero-check afterwards could not tell midnight from an absent field.
	cfg.Broadcast.HourUTC = 6
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Razorpay.BaseURL == "" {
		cfg.Razorpay.BaseURL = "https://api.razorpay.com"
	}
	if cfg.Razorpay.TimeoutSeconds == 0 {
		cfg.Razorpay.TimeoutSeconds = 30
	}
	if cfg.Razorpay.SubscriptionAmount == 0 {
		cfg.Razorpay.SubscriptionAmount = 9900 // Rs.99 in paise
	}
	if cfg.Razorpay.Currency == "" {
		cfg.Razorpay.Currency = "INR"
	}
	if cfg.Twilio.BaseURL == "" {
		cfg.Twilio.BaseURL = "https://api.twilio.com"
	}
	if cfg.Twilio.TimeoutSeconds == 0 {
		cfg.Twilio.TimeoutSeconds = 30
	}
	if cfg.Auth.TimeoutSeconds == 0 {
		cfg.Auth.TimeoutSeconds = 10
	}
	if cfg.Broadcast.LockTTLMin == 0 {
		cfg.Broadcast.LockTTLMin = 30
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It loads a .env file (if present) before reading env vars, so secrets
// can live in .env locally and in real env vars in production.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("RAZORPAY_KEY_ID"); v != "" {
		cfg.Razorpay.KeyID = v
	}
	if v := os.Getenv("RAZORPAY_KEY_SECRET"); v != "" {
		cfg.Razorpay.KeySecret = v
	}
	if v := os.Getenv("TWILIO_ACCOUNT_SID"); v != "" {
		cfg.Twilio.AccountSID = v
	}
	if v := os.Getenv("TWILIO_AUTH_TOKEN"); v != "" {
		cfg.Twilio.AuthToken = v
	}
	if v := os.Getenv("TWILIO_WHATSAPP_FROM"); v != "" {
		cfg.Twilio.WhatsAppFrom = v
	}
	if v := os.Getenv("AUTH_BASE_URL"); v != "" {
		cfg.Auth.BaseURL = v
	}
	if v := os.Getenv("AUTH_SERVICE_KEY"); v != "" {
		cfg.Auth.ServiceKey = v
	}
	if v := os.Getenv("BROADCAST_INTERNAL_TOKEN"); v != "" {
		cfg.Auth.InternalToken = v
	}

	return cfg, nil
}

// Validate checks that every credential the core workflows depend on is set.
// A missing Razorpay secret would otherwise surface only when the first
// payment callback arrives, which is far too late.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	return nil
}
