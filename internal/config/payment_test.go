package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setPaymentEnv(t *testing.T) {
	t.Helper()
	t.Setenv("RAZORPAY_KEY_ID", "rzp_test_key")
	t.Setenv("RAZORPAY_KEY_SECRET", "checkout-secret")
	t.Setenv("RAZORPAY_WEBHOOK_SECRET", "webhook-secret")
	t.Setenv("RAZORPAY_BASE_URL", "")
	t.Setenv("RAZORPAY_TIMEOUT", "")
}

func TestLoadPaymentConfig_Defaults(t *testing.T) {
	setPaymentEnv(t)

	cfg, err := LoadPaymentConfig()
	require.NoError(t, err)
	assert.Equal(t, "rzp_test_key", cfg.KeyID)
	assert.Equal(t, "https://api.razorpay.com/v1", cfg.GatewayBaseURL)
	assert.Equal(t, 10*time.Second, cfg.GatewayTimeout)
}

func TestLoadPaymentConfig_Overrides(t *testing.T) {
	setPaymentEnv(t)
	t.Setenv("RAZORPAY_BASE_URL", "http://localhost:9090/v1")
	t.Setenv("RAZORPAY_TIMEOUT", "3s")

	cfg, err := LoadPaymentConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9090/v1", cfg.GatewayBaseURL)
	assert.Equal(t, 3*time.Second, cfg.GatewayTimeout)
}

func TestLoadPaymentConfig_MissingSecrets(t *testing.T) {
	cases := []string{"RAZORPAY_KEY_ID", "RAZORPAY_KEY_SECRET", "RAZORPAY_WEBHOOK_SECRET"}
	for _, name := range cases {
		t.Run(name, func(t *testing.T) {
			setPaymentEnv(t)
			t.Setenv(name, "")

			_, err := LoadPaymentConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), name)
		})
	}
}

func TestLoadPaymentConfig_SharedSecretRejected(t *testing.T) {
	setPaymentEnv(t)
	t.Setenv("RAZORPAY_WEBHOOK_SECRET", "checkout-secret")

	_, err := LoadPaymentConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must differ")
}

func TestLoadPaymentConfig_BadTimeout(t *testing.T) {
	setPaymentEnv(t)
	t.Setenv("RAZORPAY_TIMEOUT", "soon")

	_, err := LoadPaymentConfig()
	assert.Error(t, err)
}
