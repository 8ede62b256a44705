package service

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/aman-churiwal/redaction-gateway/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoSecret         = errors.New("session signing secret is not configured")
	ErrTokenExpired     = errors.New("session token expired")
	ErrIssuerMismatch   = errors.New("session token issuer mismatch")
	ErrClaimsIncomplete = errors.New("session token is missing required claims")
	ErrTokenInvalid     = errors.New("session token invalid")
)

// Claims carried by a tenant session token. The subject is the tenant's
// long-lived credential; the display attributes ride along so handlers
// don't need a registry lookup to label responses.
type SessionClaims struct {
	TeamAbbr     string `json:"team_abbr"`
	TeamFullName string `json:"team_full_name"`
	jwt.RegisteredClaims
}

type SessionService struct {
	secret []byte // Stored in env (JWT_SECRET)
	issuer string
	ttl    time.Duration
}

// Creates the session service. An empty secret gets replaced by an
// ephemeral one so the server still runs; sessions then reset on restart.
func NewSessionService(secret, issuer string, ttl time.Duration) *SessionService {
	if secret == "" {
		secret = ephemeralSecret()
		log.Println("JWT_SECRET not set; generated ephemeral secret. Sessions will reset on restart. Configure JWT_SECRET env for persistence.")
	}

	return &SessionService{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
	}
}

func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// Issues a signed session token for a verified tenant entry.
func (s *SessionService) Issue(entry *models.TenantEntry) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrNoSecret
	}

	now := time.Now()
	claims := SessionClaims{
		TeamAbbr:     entry.Abbr,
		TeamFullName: entry.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   entry.Token,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	return signed, nil
}

// Validates a session token and returns its claims. Each rejection
// reason maps to a distinct sentinel so the middleware can answer with
// a machine-readable code.
func (s *SessionService) Verify(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}

	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithExpirationRequired())

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenInvalidIssuer):
			return nil, ErrIssuerMismatch
		case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
			return nil, ErrClaimsIncomplete
		default:
			return nil, ErrTokenInvalid
		}
	}

	// The parser only enforces exp; require the rest of the claim set too.
	if claims.IssuedAt == nil || claims.Issuer == "" || claims.Subject == "" {
		return nil, ErrClaimsIncomplete
	}

	return claims, nil
}

func ephemeralSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		// rand.Read only fails if the OS entropy source is broken
		panic(fmt.Sprintf("failed to generate ephemeral secret: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
