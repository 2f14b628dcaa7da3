// Package auth implements the access-code gate of the hybrid survey.
//
// The gate is a UX barrier, not authentication: codes are compared in
// plaintext and the session copy is only base64 encoded.
package auth

import (
	"encoding/base64"
	"strings"
	"sync"
)

// CookieName is the session cookie holding the encoded access code
const CookieName = "evalauth"

// FallbackCodes are used when auth_config.json cannot be loaded
var FallbackCodes = []string{"NOVELTY2025", "EVAL2025", "ICLR2025"}

// Gate checks access codes against a configured list
type Gate struct {
	mu    sync.RWMutex
	codes []string
}

// NewGate creates a gate; an empty list falls back to FallbackCodes
func NewGate(codes []string) *Gate {
	g := &Gate{}
	g.SetCodes(codes)
	return g
}

// SetCodes replaces the accepted codes
func (g *Gate) SetCodes(codes []string) {
	cleaned := make([]string, 0, len(codes))
	for _, c := range codes {
		if c = strings.TrimSpace(c); c != "" {
			cleaned = append(cleaned, c)
		}
	}
	if len(cleaned) == 0 {
		cleaned = append(cleaned, FallbackCodes...)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.codes = cleaned
}

// Codes returns a copy of the accepted codes
func (g *Gate) Codes() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, len(g.codes))
	copy(out, g.codes)
	return out
}

// Authenticate reports whether code matches a configured code, ignoring case
func (g *Gate) Authenticate(code string) bool {
	code = strings.TrimSpace(code)
	if code == "" {
		return false
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, c := range g.codes {
		if strings.EqualFold(c, code) {
			return true
		}
	}
	return false
}

// Restore re-authenticates from an encoded session token.
// Undecodable tokens return false; the caller should clear the cookie.
func (g *Gate) Restore(token string) bool {
	code, err := Decode(token)
	if err != nil {
		return false
	}
	return g.Authenticate(code)
}

// Encode returns the reversible session form of an access code
func Encode(code string) string {
	return base64.StdEncoding.EncodeToString([]byte(code))
}

// Decode reverses Encode
func Decode(token string) (string, error) {
	b, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
