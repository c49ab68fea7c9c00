package razorpay

import "testing"

func TestSignature_KnownVector(t *testing.T) {
	// Digest verified against an independent HMAC-SHA256 implementation.
	got := Signature("order_Nf3TTEODkCNNFe", "pay_Nf3UAxO0fjRjBF", "test_key_secret")
	want := "0a683c2c24e26d33e3dbd468fd9c8ec2d0bb786aad61fd960eb06fe586d3c5cf"
	if got != want {
		t.Errorf("Signature() = %s, want %s", got, want)
	}
}

func TestVerifySignature(t *testing.T) {
	const (
		orderID   = "order_A"
		paymentID = "pay_B"
		secret    = "s3cr3t"
		valid     = "5d33b96455a6ead0af3c0f6572b254947c79433521179346d4ecc511f37da2fb"
	)

	tests := []struct {
		name      string
		signature string
		secret    string
		want      bool
	}{
		{"valid signature", valid, secret, true},
		{"one hex digit altered", "4d33b96455a6ead0af3c0f6572b254947c79433521179346d4ecc511f37da2fb", secret, false},
		{"truncated", valid[:40], secret, false},
		{"not hex", "zz" + valid[2:], secret, false},
		{"empty signature", "", secret, false},
		{"wrong secret", valid, "other", false},
		{"empty secret never verifies", valid, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifySignature(orderID, paymentID, tt.signature, tt.secret); got != tt.want {
				t.Errorf("VerifySignature() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVerifySignature_RoundTrip(t *testing.T) {
	sig := Signature("order_x", "pay_y", "k")
	if !VerifySignature("order_x", "pay_y", sig, "k") {
		t.Error("freshly computed signature did not verify")
	}
	if VerifySignature("order_x", "pay_z", sig, "k") {
		t.Error("signature verified for a different payment id")
	}
}
