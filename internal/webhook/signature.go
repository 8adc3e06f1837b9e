package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

const HeaderSignature = "X-Vapi-Signature"

var (
	ErrSignatureMissing = errors.New("signature header missing")
	ErrSignatureInvalid = errors.New("signature mismatch")
)

// Verifier checks "sha256=<hex>" HMAC signatures over the raw body.
// A zero Verifier accepts everything.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) Verifier {
	return Verifier{secret: []byte(secret)}
}

func (v Verifier) Enabled() bool { return len(v.secret) > 0 }

func (v Verifier) Verify(body []byte, header string) error {
	if !v.Enabled() {
		return nil
	}
	header = strings.TrimSpace(header)
	if header == "" {
		return ErrSignatureMissing
	}
	got, err := hex.DecodeString(strings.TrimPrefix(header, "sha256="))
	if err != nil {
		return ErrSignatureInvalid
	}
	if !hmac.Equal(got, v.sign(body)) {
		return ErrSignatureInvalid
	}
	return nil
}

// Sign returns the header value for body.
func (v Verifier) Sign(body []byte) string {
	return "sha256=" + hex.EncodeToString(v.sign(body))
}

func (v Verifier) sign(body []byte) []byte {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	return mac.Sum(nil)
}
