package warden

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// idAlphabet is the fixed alphabet for generated identifiers. Session IDs
// must survive cookie values, URLs and log lines unescaped, so the alphabet
// is lowercase alphanumeric only.
const idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Session IDs are 40 characters over a 36-symbol alphabet, roughly 206 bits
// of entropy. The ID is the only secret tying a cookie to a session.
const sessionIDLength = 40

// GenerateID returns an n-character random string drawn from the fixed
// lowercase-alphanumeric alphabet using crypto/rand. It panics only if the
// system's entropy source is broken, in which case nothing here is safe.
func GenerateID(n int) string {
	max := big.NewInt(int64(len(idAlphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(fmt.Sprintf("warden: entropy source failed: %v", err))
		}
		out[i] = idAlphabet[idx.Int64()]
	}
	return string(out)
}
