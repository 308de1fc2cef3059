package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// NormalizeText lowercases and collapses whitespace so that trivially
// different renderings of the same text hash identically.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// ContentHash is the deterministic digest of normalized text used for
// duplicate detection during ingestion.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(NormalizeText(text)))
	return hex.EncodeToString(sum[:])
}

// Fingerprint derives a cache key from the normalized message and the
// relevant slice of conversation history.
func Fingerprint(message string, historySlice []string) string {
	h := sha256.New()
	h.Write([]byte(NormalizeText(message)))
	for _, part := range historySlice {
		h.Write([]byte{0})
		h.Write([]byte(NormalizeText(part)))
	}
	return hex.EncodeToString(h.Sum(nil))
}
