package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrInvalidSignature is returned when a payment proof fails verification.
// Verification is terminal: a failed proof is never retried.
var ErrInvalidSignature = errors.New("payment signature verification failed")

// Proof is the triple the gateway hands the buyer's browser after a
// successful charge.
type Proof struct {
	OrderID   string
	PaymentID string
	Signature string
}

// Verifier checks payment proofs server-side against the gateway key secret.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a verifier for the given gateway key secret.
func NewVerifier(keySecret string) *Verifier {
	return &Verifier{secret: []byte(keySecret)}
}

// Verify checks that the proof signature is the HMAC-SHA256 of
// "<order_id>|<payment_id>" under the key secret, the gateway's documented
// signing scheme. Comparison is constant-time.
func (v *Verifier) Verify(p Proof) error {
	if p.OrderID == "" || p.PaymentID == "" || p.Signature == "" {
		return ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(p.OrderID + "|" + p.PaymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(p.Signature)) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign produces the signature the gateway would attach to a proof. Used by
// tests and the local development gateway.
func (v *Verifier) Sign(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}
