// Package auth provides Binance API authentication using HMAC-SHA256
// request signatures.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Credentials holds the API key pair used to sign requests. Read-only scope
// is sufficient; the pair is never persisted by this process.
type Credentials struct {
	APIKey    string
	APISecret string
}

// NewCredentials validates and wraps an API key pair.
func NewCredentials(apiKey, apiSecret string) (*Credentials, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if apiSecret == "" {
		return nil, fmt.Errorf("API secret is required")
	}
	return &Credentials{APIKey: apiKey, APISecret: apiSecret}, nil
}

// Sign computes the hex-encoded HMAC-SHA256 signature of the encoded query
// string, as required by Binance SIGNED endpoints.
func (c *Credentials) Sign(query string) string {
	mac := hmac.New(sha256.New, []byte(c.APISecret))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}
