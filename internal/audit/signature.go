package audit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/cryptoutil"
)

// Signer creates and verifies HMAC-SHA256 signatures over audit records so
// tampering with the stored trail is detectable.
type Signer struct {
	key []byte
}

// NewSigner creates an HMAC-SHA256 signer. The key may be raw text or a hex
// string and must resolve to at least 32 bytes.
func NewSigner(key string) (*Signer, error) {
	raw := cryptoutil.KeyBytes(key)
	if len(raw) < 32 {
		return nil, fmt.Errorf("signing key must be at least 32 bytes (got %d)", len(raw))
	}
	return &Signer{key: raw}, nil
}

// Sign returns the HMAC-SHA256 signature for data.
func (s *Signer) Sign(data []byte) string {
	h := hmac.New(sha256.New, s.key)
	h.Write(data)
	return "hmac-sha256:" + hex.EncodeToString(h.Sum(nil))
}

// Verify reports whether signature is valid for data.
func (s *Signer) Verify(data []byte, signature string) bool {
	return hmac.Equal([]byte(s.Sign(data)), []byte(signature))
}
