package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/domain"
)

// Session is an issued operator session token.
type Session struct {
	Token     string
	Username  string
	ExpiresAt time.Time
}

// EnsureAdmin creates the bootstrap operator account if it does not exist.
// An existing password is never overwritten.
func (s *Service) EnsureAdmin(ctx context.Context) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(s.config.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	if err := s.store.EnsureAdmin(ctx, s.config.AdminUsername, string(hash)); err != nil {
		return fmt.Errorf("failed to ensure admin: %w", err)
	}
	return nil
}

// Login checks the operator credential and issues a signed session.
func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*Session, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, domain.Invalid("username and password are required")
	}

	admin, err := s.store.GetAdmin(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}
	if admin == nil {
		return nil, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	return s.issueSession(admin.Username)
}

func (s *Service) issueSession(username string) (*Session, error) {
	now := s.now()
	expires := now.Add(s.config.SessionTTL)
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
		ID:        uuid.NewString(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.SessionSecret))
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}
	return &Session{Token: token, Username: username, ExpiresAt: expires}, nil
}

// VerifySession validates a session token and returns the operator name.
func (s *Service) VerifySession(token string) (string, error) {
	if token == "" {
		return "", domain.ErrInvalidCredentials
	}
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.config.SessionSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		if err == nil {
			err = errors.New("invalid token")
		}
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidCredentials, err)
	}
	return claims.Subject, nil
}
