package knol

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// Normalize cleans question text so that trivially different copies of the
// same question (case, spacing, line endings) compare equal.
func Normalize(question string) string {
	q := strings.ToLower(question)
	q = strings.ReplaceAll(q, "\r\n", "\n")
	return strings.Join(strings.Fields(q), " ")
}

// Hash normalizes a question and returns its SHA-256 hash as a hex string.
func Hash(question string) string {
	hashBytes := sha256.Sum256([]byte(Normalize(question)))
	return fmt.Sprintf("%x", hashBytes)
}
