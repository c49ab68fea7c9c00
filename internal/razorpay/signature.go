package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Signature computes the hex HMAC-SHA256 digest Razorpay produces for a
// completed payment: the shared key secret over "orderID|paymentID".
func Signature(orderID, paymentID, keySecret string) string {
	mac := hmac.New(sha256.New, []byte(keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether the supplied callback signature matches
// the one the provider would have produced for this order/payment pair.
// The comparison is constant-time. An empty secret never verifies.
func VerifySignature(orderID, paymentID, signature, keySecret string) bool {
	if keySecret == "" || signature == "" {
		return false
	}
	expected, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hmac.Equal(mac.Sum(nil), expected)
}
