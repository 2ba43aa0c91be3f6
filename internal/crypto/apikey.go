// Package crypto provides API-key hashing for request authentication. Keys
// are never stored in the clear: configuration carries a PBKDF2 hash and
// incoming keys are re-derived and compared in constant time.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// pbkdf2Iterations is the OWASP-recommended minimum for HMAC-SHA256.
	pbkdf2Iterations = 480_000
	// saltLen is the random salt length in bytes.
	saltLen = 16
	// keyLen is the derived key length in bytes.
	keyLen = 32
	// hashScheme tags the encoded format so it can evolve later.
	hashScheme = "pbkdf2"
)

// ErrBadHashFormat is returned when a stored hash string does not parse.
var ErrBadHashFormat = errors.New("crypto: malformed api key hash")

// HashAPIKey derives a salted PBKDF2-HMAC-SHA256 hash of key, encoded as
// "pbkdf2$<iterations>$<salt-b64>$<key-b64>". The output goes into
// configuration; VerifyAPIKey checks candidates against it.
func HashAPIKey(key string) (string, error) {
	if key == "" {
		return "", errors.New("crypto: api key must not be empty")
	}
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("crypto: generate salt: %w", err)
	}
	derived := pbkdf2.Key([]byte(key), salt, pbkdf2Iterations, keyLen, sha256.New)
	return fmt.Sprintf("%s$%d$%s$%s",
		hashScheme,
		pbkdf2Iterations,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(derived),
	), nil
}

// VerifyAPIKey reports whether candidate matches the stored encoded hash.
// The comparison is constant time; parse failures return ErrBadHashFormat.
func VerifyAPIKey(encoded, candidate string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 4 || parts[0] != hashScheme {
		return false, ErrBadHashFormat
	}
	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations <= 0 {
		return false, ErrBadHashFormat
	}
	salt, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return false, ErrBadHashFormat
	}
	want, err := base64.StdEncoding.DecodeString(parts[3])
	if err != nil || len(want) == 0 {
		return false, ErrBadHashFormat
	}
	got := pbkdf2.Key([]byte(candidate), salt, iterations, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
