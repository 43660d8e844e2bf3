package observability

import (
	"crypto/sha256"
	"encoding/hex"
)

// RedactToken returns a short, stable fingerprint of a bearer token that is
// safe to log. The token itself must never be logged.
func RedactToken(token string) string {
	if token == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(token))
	return "tok_" + hex.EncodeToString(sum[:4])
}

// RedactPassword is the placeholder logged in place of any password.
func RedactPassword() string { return "[REDACTED_PASSWORD]" }
