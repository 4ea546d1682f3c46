package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// sessionTokenBytes gives 256 bits of entropy, well past the 128-bit floor
// required for an unguessable public credential.
const sessionTokenBytes = 32

// GenerateSessionToken generates a cryptographically random, URL-safe
// session token.
func GenerateSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
