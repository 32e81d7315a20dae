package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// TokenManager issues and validates opaque session tokens for
// authenticated connections. It is the bus-facing analogue of a join
// token manager: tokens are random, bear an expiry, and carry no
// structure the holder can inspect.
type TokenManager struct {
	mu     sync.RWMutex
	tokens map[string]session
}

type session struct {
	user      string
	expiresAt time.Time
}

// NewTokenManager constructs an empty TokenManager.
func NewTokenManager() *TokenManager {
	return &TokenManager{tokens: make(map[string]session)}
}

// Issue generates a fresh token bound to user, valid for ttl.
func (tm *TokenManager) Issue(user string, ttl time.Duration) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("security: generate token: %w", err)
	}
	token := hex.EncodeToString(buf)

	tm.mu.Lock()
	tm.tokens[token] = session{user: user, expiresAt: time.Now().Add(ttl)}
	tm.mu.Unlock()

	return token, nil
}

// Validate returns the user a token was issued for, or false if the
// token is unknown or expired.
func (tm *TokenManager) Validate(token string) (string, bool) {
	tm.mu.RLock()
	s, ok := tm.tokens[token]
	tm.mu.RUnlock()
	if !ok {
		return "", false
	}
	if time.Now().After(s.expiresAt) {
		tm.Revoke(token)
		return "", false
	}
	return s.user, true
}

// Revoke invalidates a token immediately.
func (tm *TokenManager) Revoke(token string) {
	tm.mu.Lock()
	delete(tm.tokens, token)
	tm.mu.Unlock()
}

// Sweep removes every expired token. Intended to be called
// periodically by a long-running process.
func (tm *TokenManager) Sweep() {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	now := time.Now()
	for token, s := range tm.tokens {
		if now.After(s.expiresAt) {
			delete(tm.tokens, token)
		}
	}
}
