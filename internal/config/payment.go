package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	defaultGatewayBaseURL = "https://api.razorpay.com/v1"
	defaultGatewayTimeout = "10s"
)

// PaymentConfig carries the gateway credentials and both signing secrets.
// The checkout secret authenticates browser-returned verification data, the
// webhook secret authenticates server-to-server deliveries. They bound two
// different trust relationships and are never interchangeable, so a dedicated
// webhook secret is required unconditionally — there is no fallback to the
// checkout secret.
type PaymentConfig struct {
	KeyID          string
	KeySecret      string
	WebhookSecret  string
	GatewayBaseURL string
	GatewayTimeout time.Duration
}

func LoadPaymentConfig() (*PaymentConfig, error) {
	cfg := &PaymentConfig{
		KeyID:          strings.TrimSpace(os.Getenv("RAZORPAY_KEY_ID")),
		KeySecret:      strings.TrimSpace(os.Getenv("RAZORPAY_KEY_SECRET")),
		WebhookSecret:  strings.TrimSpace(os.Getenv("RAZORPAY_WEBHOOK_SECRET")),
		GatewayBaseURL: strings.TrimSpace(getEnv("RAZORPAY_BASE_URL", defaultGatewayBaseURL)),
	}

	var err error
	cfg.GatewayTimeout, err = parseDurationEnv("RAZORPAY_TIMEOUT", defaultGatewayTimeout)
	if err != nil {
		return nil, err
	}

	if cfg.KeyID == "" {
		return nil, fmt.Errorf("RAZORPAY_KEY_ID must be set")
	}
	if cfg.KeySecret == "" {
		return nil, fmt.Errorf("RAZORPAY_KEY_SECRET must be set")
	}
	if cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("RAZORPAY_WEBHOOK_SECRET must be set")
	}
	if cfg.WebhookSecret == cfg.KeySecret {
		return nil, fmt.Errorf("RAZORPAY_WEBHOOK_SECRET must differ from RAZORPAY_KEY_SECRET")
	}
	if cfg.GatewayTimeout <= 0 {
		return nil, fmt.Errorf("RAZORPAY_TIMEOUT must be > 0")
	}

	return cfg, nil
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
