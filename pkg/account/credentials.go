package account

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// DigestEncoding selects how a password digest is rendered to text
type DigestEncoding int

const (
	DigestHex DigestEncoding = iota
	DigestBase64
)

func (e DigestEncoding) String() string {
	switch e {
	case DigestHex:
		return "hex"
	case DigestBase64:
		return "base64"
	default:
		return fmt.Sprintf("DigestEncoding(%d)", int(e))
	}
}

// ParseDigestEncoding accepts "hex" or "base64" (case-insensitive)
func ParseDigestEncoding(s string) (DigestEncoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hex", "":
		return DigestHex, nil
	case "base64":
		return DigestBase64, nil
	default:
		return DigestHex, fmt.Errorf("unsupported digest encoding: %s (supported: hex, base64)", s)
	}
}

// CredentialHelper generates salts and salted password digests
type CredentialHelper interface {
	GenerateSalt() (string, error)
	Digest(plaintext, salt string, encoding DigestEncoding) (string, error)
}

// Argon2CredentialHelper implements CredentialHelper using Argon2id
type Argon2CredentialHelper struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
	saltLength  uint32
	keyLength   uint32
}

// NewArgon2CredentialHelper creates a helper with default Argon2id parameters
func NewArgon2CredentialHelper() *Argon2CredentialHelper {
	return &Argon2CredentialHelper{
		memory:      19 * 1024, // 19MB
		iterations:  2,
		parallelism: 1,
		saltLength:  16,
		keyLength:   32,
	}
}

// GenerateSalt returns a random salt encoded as URL-safe base64
func (h *Argon2CredentialHelper) GenerateSalt() (string, error) {
	salt := make([]byte, h.saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(salt), nil
}

// Digest derives a key from plaintext and salt and renders it with the given encoding.
// The same inputs always produce the same digest.
func (h *Argon2CredentialHelper) Digest(plaintext, salt string, encoding DigestEncoding) (string, error) {
	if plaintext == "" {
		return "", errors.New("password cannot be empty")
	}
	if salt == "" {
		return "", errors.New("salt cannot be empty")
	}

	key := argon2.IDKey(
		[]byte(plaintext),
		[]byte(salt),
		h.iterations,
		h.memory,
		h.parallelism,
		h.keyLength,
	)

	switch encoding {
	case DigestHex:
		return hex.EncodeToString(key), nil
	case DigestBase64:
		return base64.StdEncoding.EncodeToString(key), nil
	default:
		return "", fmt.Errorf("unsupported digest encoding: %s", encoding)
	}
}
