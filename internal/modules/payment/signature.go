package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// checkoutDigest computes the hex HMAC-SHA256 the gateway's checkout SDK
// returns to the browser: HMAC(checkoutSecret, orderID + "|" + paymentID).
func checkoutDigest(secret, gatewayOrderID, gatewayPaymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyCheckoutSignature checks a client-returned confirmation triple under
// the checkout secret. Comparison is constant time.
func VerifyCheckoutSignature(secret, gatewayOrderID, gatewayPaymentID, signature string) bool {
	expected := checkoutDigest(secret, gatewayOrderID, gatewayPaymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyWebhookSignature checks a server-to-server delivery under the webhook
// secret. The digest is computed over the exact raw body bytes, so callers
// must not parse or re-serialize the body before verification.
func VerifyWebhookSignature(secret string, rawBody []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
