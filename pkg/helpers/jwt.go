package helpers

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionManager mints and validates signed session tokens. Tokens are
// stateless: nothing server-side can revoke one before it expires.
type SessionManager struct {
	Secret []byte
	TTL    time.Duration
	now    func() time.Time
}

var defaultManager *SessionManager

func NewSessionManager(secret string, ttl time.Duration) *SessionManager {
	m := &SessionManager{
		Secret: []byte(secret),
		TTL:    ttl,
		now:    time.Now,
	}
	defaultManager = m
	return m
}

// DefaultSessions returns the last constructed SessionManager (used for auto-wiring routes)
func DefaultSessions() *SessionManager { return defaultManager }

// SessionClaims embeds identity and role; none of them is secret.
type SessionClaims struct {
	AccountID   string `json:"id"`
	DisplayName string `json:"name"`
	Role        string `json:"role"`
	jwt.RegisteredClaims
}

// Mint signs a token for the account valid for TTL
func (m *SessionManager) Mint(accountID, displayName, role string) (string, time.Time, error) {
	if accountID == "" {
		return "", time.Time{}, errors.New("account id is required")
	}
	now := m.clock()
	exp := now.Add(m.TTL)
	claims := &SessionClaims{
		AccountID:   accountID,
		DisplayName: displayName,
		Role:        role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(m.Secret)
	return s, exp, err
}

func (m *SessionManager) Parse(tokenStr string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.Secret, nil
	}, jwt.WithTimeFunc(m.clock))
	if err != nil {
		return nil, err
	}
	if !tkn.Valid || claims.AccountID == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func (m *SessionManager) clock() time.Time {
	if m.now == nil {
		return time.Now()
	}
	return m.now()
}
