// Package token issues and verifies the service's stateless JWTs.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/accountd/accountd/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

const defaultTTL = 2 * time.Hour

// Claims is the decoded payload of a verified token. LastLogin is the
// freshness marker (epoch seconds of the login that issued the token);
// it is zero for reset tokens.
type Claims struct {
	UserID    string
	Email     string
	LastLogin int64
}

type Service struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewService(key []byte) *Service {
	return &Service{key: key, ttl: defaultTTL, now: time.Now}
}

// IssueAccessToken signs {user_id, email, lastLogin} with a 2-hour expiry.
// The freshness marker comes from the user's LastLogin when set, otherwise
// from the current time; embedding it in the signed token is what lets a new
// login invalidate every previously issued token without a revocation list.
func (s *Service) IssueAccessToken(user *domain.User) (string, error) {
	now := s.now()

	marker, ok := user.FreshnessMarker()
	if !ok {
		marker = now.Unix()
	}

	claims := jwt.MapClaims{
		"user_id":   user.ID,
		"email":     user.Email,
		"lastLogin": marker,
		"iat":       now.Unix(),
		"exp":       now.Add(s.ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// IssueResetToken signs {user_id} with a 2-hour expiry. The token carries no
// freshness marker and no single-use guarantee beyond its expiry.
func (s *Service) IssueResetToken(userID string) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"iat":     now.Unix(),
		"exp":     now.Add(s.ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign reset token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the decoded claims.
// Any failure maps to domain.ErrTokenInvalid.
func (s *Service) Verify(raw string) (Claims, error) {
	parsed, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.key, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return Claims{}, domain.ErrTokenInvalid
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, domain.ErrTokenInvalid
	}

	userID, ok := mapClaims["user_id"].(string)
	if !ok || userID == "" {
		return Claims{}, domain.ErrTokenInvalid
	}

	claims := Claims{UserID: userID}
	if email, ok := mapClaims["email"].(string); ok {
		claims.Email = email
	}
	// JSON numbers decode as float64.
	if marker, ok := mapClaims["lastLogin"].(float64); ok {
		claims.LastLogin = int64(marker)
	}
	return claims, nil
}
