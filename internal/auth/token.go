package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	WorkerIssuer     = "worker"
	DefaultWorkerTTL = 15 * time.Minute
)

var ErrInvalidToken = errors.New("invalid worker token")

// WorkerClaims authorize processing of a single job. Subject is the job ID.
type WorkerClaims struct {
	jwt.RegisteredClaims
}

// TokenSigner issues and checks HS256 worker tokens.
type TokenSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenSigner(secret string, ttl time.Duration) *TokenSigner {
	if ttl <= 0 {
		ttl = DefaultWorkerTTL
	}
	return &TokenSigner{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *TokenSigner) Sign(jobID string) (string, error) {
	if jobID == "" {
		return "", fmt.Errorf("sign worker token: empty job id")
	}
	now := s.now()
	claims := WorkerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    WorkerIssuer,
			Subject:   jobID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign worker token: %w", err)
	}
	return signed, nil
}

// Verify returns the job ID a valid token was issued for.
func (s *TokenSigner) Verify(tokenString string) (string, error) {
	claims := &WorkerClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(WorkerIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
