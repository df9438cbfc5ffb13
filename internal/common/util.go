package common

import "crypto/rand"

// GenerateRandByteArray returns size cryptographically random bytes.
// Panics if the system random source fails, which is unrecoverable anyway.
func GenerateRandByteArray(size int) []byte {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}
