package warden

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
	"golang.org/x/text/unicode/norm"
)

// Current scrypt parameters. The derived key is 64 bytes and the salt 16
// bytes; hashes are stored as "s2:" + hex(salt) + ":" + hex(key).
const (
	scryptN      = 16384
	scryptR      = 16
	scryptP      = 1
	scryptKeyLen = 64
	saltLen      = 16

	hashVersionPrefix = "s2"

	// The two-part legacy format used r=8. Records written before the
	// versioned format still verify; new hashes are never written this way.
	legacyScryptR = 8
)

// HashPassword normalizes the password (Unicode NFKC), derives a 64-byte
// scrypt key under a fresh random salt and returns the versioned hash string.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	key, err := deriveKey(password, hex.EncodeToString(salt), scryptR)
	if err != nil {
		return "", err
	}
	return hashVersionPrefix + ":" + hex.EncodeToString(salt) + ":" + hex.EncodeToString(key), nil
}

// VerifyPassword reports whether password matches the stored hash. Both the
// versioned three-part format and the legacy two-part format are accepted;
// unrecognized formats verify as false. The comparison of the derived key
// against the stored key is constant-time.
func VerifyPassword(hash, password string) bool {
	parts := strings.Split(hash, ":")
	switch len(parts) {
	case 3:
		if parts[0] != hashVersionPrefix {
			return false
		}
		return verifyParts(parts[1], parts[2], password, scryptR)
	case 2:
		return verifyParts(parts[0], parts[1], password, legacyScryptR)
	default:
		return false
	}
}

func verifyParts(salt, storedKey, password string, r int) bool {
	want, err := hex.DecodeString(storedKey)
	if err != nil {
		return false
	}
	got, err := deriveKey(password, salt, r)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(got, want) == 1
}

// deriveKey runs scrypt over the NFKC-normalized password. The salt is mixed
// in as its hex string form, matching how historical hashes were produced.
func deriveKey(password, hexSalt string, r int) ([]byte, error) {
	normalized := norm.NFKC.String(password)
	key, err := scrypt.Key([]byte(normalized), []byte(hexSalt), scryptN, r, scryptP, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("scrypt failed: %w", err)
	}
	return key, nil
}
