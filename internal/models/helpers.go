package models

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

func GenerateSessionID() string {
	return fmt.Sprintf("bet_%s_%s",
		time.Now().UTC().Format("20060102"),
		uuid.New().String())
}

func GenerateConnectionID() string {
	return "conn_" + uuid.New().String()
}

func GenerateClientSeed() (string, error) {
	bytes := make([]byte, 16)
	_, err := rand.Read(bytes)
	if err != nil {
		return "", fmt.Errorf("failed to generate client seed: %v", err)
	}
	return hex.EncodeToString(bytes), nil
}

// RoundKey identifies the ledger entry for round idx of a session. attempt
// changes after a voided settlement so the retry gets a fresh key.
func RoundKey(sessionID string, idx, attempt int) string {
	return settlementKey(fmt.Sprintf("%s:%d", sessionID, idx), attempt)
}

func CashoutKey(sessionID string, attempt int) string {
	return settlementKey(sessionID+":cashout", attempt)
}

func ExpireKey(sessionID string, attempt int) string {
	return settlementKey(sessionID+":expire", attempt)
}

func settlementKey(base string, attempt int) string {
	if attempt == 0 {
		return base
	}
	return fmt.Sprintf("%s#%d", base, attempt)
}
