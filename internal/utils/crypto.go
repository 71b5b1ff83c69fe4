// internal/utils/crypto.go
package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

var ErrMalformedSignatureInput = errors.New("order id, payment id and secret are required")

// SignPayment returns the lowercase hex HMAC-SHA256 of "orderID|paymentID",
// the signature a gateway attaches to a payment callback.
func SignPayment(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyPaymentSignature reports whether signature authenticates the
// (orderID, paymentID) pair under secret. A mismatch, including a signature
// that is not valid hex, is (false, nil); an error means the input itself was
// unusable.
func VerifyPaymentSignature(orderID, paymentID, signature, secret string) (bool, error) {
	if orderID == "" || paymentID == "" || secret == "" {
		return false, ErrMalformedSignatureInput
	}

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false, nil
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hmac.Equal(mac.Sum(nil), provided), nil
}
