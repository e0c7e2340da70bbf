package util

import (
	"crypto/rand"
	"encoding/hex"
)

// RandomString returns n bytes of randomness, hex-encoded (2n characters).
func RandomString(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}
