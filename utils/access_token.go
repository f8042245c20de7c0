package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// AccessTokenBytes is the amount of randomness behind every access token (256 bits).
const AccessTokenBytes = 32

// NewAccessToken returns a 64 character hex string drawn from crypto/rand.
func NewAccessToken() (string, error) {
	buf := make([]byte, AccessTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
