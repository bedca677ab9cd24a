package identity

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	argonTime    = 10
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltLen      = 16

	keyPrefix = "ak_"
	keyBytes  = 32
)

// GenerateApiKey returns a new plaintext key in the form "ak_<base64url>",
// with 256 bits of entropy from crypto/rand.
func GenerateApiKey() (string, error) {
	buf := make([]byte, keyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return keyPrefix + base64.RawURLEncoding.EncodeToString(buf), nil
}

// LookupHash returns the deterministic sha256 hex digest used as the
// indexed candidate-lookup key for a plaintext api key.
func LookupHash(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// HashApiKey produces a PHC-style argon2id hash of a plaintext key, in the
// same "$argon2id$v=19$m=...,t=...,p=...$salt$hash" encoding read by
// VerifyApiKey.
func HashApiKey(plaintext string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("hash api key: %w", err)
	}
	hash := argon2.IDKey([]byte(plaintext), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return fmt.Sprintf(
		"$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// VerifyApiKey reports whether plaintext matches the PHC-encoded hash.
func VerifyApiKey(plaintext, encoded string) bool {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" || parts[2] != "v=19" {
		return false
	}

	params := strings.Split(parts[3], ",")
	if len(params) != 3 {
		return false
	}
	m, ok := strings.CutPrefix(params[0], "m=")
	if !ok {
		return false
	}
	t, ok := strings.CutPrefix(params[1], "t=")
	if !ok {
		return false
	}
	p, ok := strings.CutPrefix(params[2], "p=")
	if !ok {
		return false
	}

	m64, err := strconv.ParseUint(m, 10, 32)
	if err != nil {
		return false
	}
	t64, err := strconv.ParseUint(t, 10, 32)
	if err != nil {
		return false
	}
	p64, err := strconv.ParseUint(p, 10, 8)
	if err != nil {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}

	check := argon2.IDKey([]byte(plaintext), salt, uint32(t64), uint32(m64), uint8(p64), uint32(len(hash)))
	return subtle.ConstantTimeCompare(hash, check) == 1
}
