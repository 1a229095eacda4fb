package pagacollect

import (
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"net/http"
)

// Header names sent with every request
const (
	HeaderHash          = "hash"
	HeaderAuthorization = "Authorization"
)

// Signer computes the authentication headers and endpoint URLs for a set of
// credentials. It holds no mutable state.
type Signer struct {
	clientID string
	password string
	apiKey   string
	origin   string
}

// NewSigner creates a signer from the client configuration
func NewSigner(cfg *ClientConfig) *Signer {
	origin := cfg.BaseURL
	if origin == "" {
		origin = LiveOrigin
		if cfg.Test {
			origin = TestOrigin
		}
	}
	return &Signer{
		clientID: cfg.ClientID,
		password: cfg.Password,
		apiKey:   cfg.APIKey,
		origin:   origin,
	}
}

// BaseURL returns the full URL for an endpoint path
func (s *Signer) BaseURL(endpoint string) string {
	return s.origin + endpoint
}

// Authorization returns the HTTP Basic authorization value
func (s *Signer) Authorization() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(s.clientID+":"+s.password))
}

// Hash computes the lowercase hex SHA-512 digest of input followed by the API key
func (s *Signer) Hash(input string) string {
	sum := sha512.Sum512([]byte(input + s.apiKey))
	return hex.EncodeToString(sum[:])
}

// Headers builds the request headers for the given hash input
func (s *Signer) Headers(hashInput string) http.Header {
	h := make(http.Header, 4)
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")
	h.Set(HeaderAuthorization, s.Authorization())
	h.Set(HeaderHash, s.Hash(hashInput))
	return h
}
