// Package auth issues and verifies the signed session cookies the messaging
// API requires. It stands in for the site's account system: the API only
// needs a user ID out of a cookie, never the account details behind it.
package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Manager signs and verifies session tokens with an HMAC-SHA256 secret.
type Manager struct {
	secret []byte
	maxAge time.Duration
}

// New builds a session manager. An empty secret gets a random one, which
// invalidates all sessions on restart.
func New(secret string, maxAge time.Duration) (*Manager, error) {
	if strings.TrimSpace(secret) == "" {
		generated := make([]byte, 32)
		if _, err := rand.Read(generated); err != nil {
			return nil, fmt.Errorf("generate auth secret: %w", err)
		}
		secret = base64.RawURLEncoding.EncodeToString(generated)
	}
	return &Manager{secret: []byte(secret), maxAge: maxAge}, nil
}

// MaxAge returns the configured session lifetime.
func (m *Manager) MaxAge() time.Duration {
	return m.maxAge
}

// Issue creates a session token for a user ID.
func (m *Manager) Issue(userID int64, now time.Time) (string, error) {
	if userID <= 0 {
		return "", errors.New("user id is required")
	}
	payload := strconv.FormatInt(userID, 10) + "|" + strconv.FormatInt(now.Unix(), 10)
	token := payload + "|" + m.sign(payload)
	return base64.RawURLEncoding.EncodeToString([]byte(token)), nil
}

// Parse verifies a token and returns the user ID it was issued for.
func (m *Manager) Parse(token string, now time.Time) (int64, error) {
	if token == "" {
		return 0, errors.New("missing session token")
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0, errors.New("invalid session token")
	}
	parts := strings.Split(string(raw), "|")
	if len(parts) != 3 {
		return 0, errors.New("invalid session token")
	}
	payload := parts[0] + "|" + parts[1]
	if !m.verify(payload, parts[2]) {
		return 0, errors.New("invalid session token")
	}
	userID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || userID <= 0 {
		return 0, errors.New("invalid session token")
	}
	issued, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, errors.New("invalid session token")
	}
	if now.Sub(time.Unix(issued, 0)) > m.maxAge {
		return 0, errors.New("session expired")
	}
	return userID, nil
}

func (m *Manager) sign(payload string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (m *Manager) verify(payload, signature string) bool {
	expected := m.sign(payload)
	return hmac.Equal([]byte(expected), []byte(signature))
}
