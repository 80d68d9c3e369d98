package fairness

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// HashServerSeed returns the commitment published before a server seed is used.
func HashServerSeed(serverSeed string) string {
	sum := blake2b.Sum256([]byte(serverSeed))
	return hex.EncodeToString(sum[:])
}

// VerifyCommitment reports whether serverSeed matches a published hash.
func VerifyCommitment(serverSeed, hash string) bool {
	return subtle.ConstantTimeCompare([]byte(HashServerSeed(serverSeed)), []byte(hash)) == 1
}

func NewServerSeed() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate server seed: %w", err)
	}
	return hex.EncodeToString(b), nil
}
