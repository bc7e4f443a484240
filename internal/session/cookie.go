package session

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

const keyInfo = "eselector session cookie v1"

// Signer signs and verifies session cookie values of the form id.signature.
type Signer struct {
	key []byte
}

// NewSigner derives the signing key from secret. An empty secret gets a
// random one, so cookies do not survive a restart.
func NewSigner(secret string) (*Signer, error) {
	ikm := []byte(secret)
	if secret == "" {
		ikm = make([]byte, 32)
		if _, err := rand.Read(ikm); err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("HKDF key derivation failed: %w", err)
	}
	return &Signer{key: key}, nil
}

// NewID returns a fresh session id.
func NewID() string {
	return uuid.NewString()
}

// Sign returns the cookie value for id.
func (s *Signer) Sign(id string) string {
	return id + "." + base64.RawURLEncoding.EncodeToString(s.mac(id))
}

// Verify returns the session id carried by value when its signature checks
// out and the id is a UUID.
func (s *Signer) Verify(value string) (string, bool) {
	i := strings.LastIndexByte(value, '.')
	if i <= 0 {
		return "", false
	}
	id, sig := value[:i], value[i+1:]
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	got, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return "", false
	}
	if !hmac.Equal(got, s.mac(id)) {
		return "", false
	}
	return id, true
}

func (s *Signer) mac(id string) []byte {
	m := hmac.New(sha256.New, s.key)
	m.Write([]byte(id))
	return m.Sum(nil)
}
