// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Connectix Contributors

// Package token issues and verifies signed, time-bound bearer tokens.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Purpose binds a token to the flow that issued it.
type Purpose string

// Token purposes.
const (
	PurposeSession       Purpose = "session"
	PurposeEmailVerify   Purpose = "email_verify"
	PurposePasswordReset Purpose = "password_reset"
)

// Default lifetimes per purpose.
const (
	DefaultSessionTTL     = time.Hour
	DefaultEmailVerifyTTL = 24 * time.Hour
	DefaultResetTTL       = 5 * time.Minute
)

// MinSecretLength is the shortest accepted HS256 signing secret in bytes.
const MinSecretLength = 32

// Error codes returned by Verify.
const (
	CodeExpired         = "TOKEN_EXPIRED"
	CodeMalformed       = "TOKEN_MALFORMED"
	CodePurposeMismatch = "TOKEN_PURPOSE_MISMATCH"
)

const issuer = "connectix"

// Claims is the signed token payload.
type Claims struct {
	jwt.RegisteredClaims
	Purpose Purpose `json:"purpose"`
	Email   string  `json:"email,omitempty"`
}

// Grant describes a token to issue. A zero TTL selects the purpose default.
type Grant struct {
	Subject string
	Purpose Purpose
	Email   string
	TTL     time.Duration
}

// Config holds the signing secret and default lifetimes. It is loaded once at
// startup and never changes afterwards.
type Config struct {
	Secret         []byte
	SessionTTL     time.Duration
	EmailVerifyTTL time.Duration
	ResetTTL       time.Duration

	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// Service signs and verifies HS256 tokens.
type Service struct {
	secret []byte
	ttl    map[Purpose]time.Duration
	now    func() time.Time
}

// NewService creates a Service from cfg.
func NewService(cfg Config) (*Service, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, oops.Code("TOKEN_CONFIG_INVALID").
			With("min_length", MinSecretLength).
			Errorf("signing secret must be at least %d bytes", MinSecretLength)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)

	return &Service{
		secret: secret,
		ttl: map[Purpose]time.Duration{
			PurposeSession:       orDefault(cfg.SessionTTL, DefaultSessionTTL),
			PurposeEmailVerify:   orDefault(cfg.EmailVerifyTTL, DefaultEmailVerifyTTL),
			PurposePasswordReset: orDefault(cfg.ResetTTL, DefaultResetTTL),
		},
		now: now,
	}, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// TTL returns the default lifetime for purpose.
func (s *Service) TTL(purpose Purpose) time.Duration {
	return s.ttl[purpose]
}

// Issue signs a token for g.
func (s *Service) Issue(g Grant) (string, error) {
	if g.Subject == "" {
		return "", oops.Code("TOKEN_ISSUE_FAILED").Errorf("token subject cannot be empty")
	}
	ttl, ok := s.ttl[g.Purpose]
	if !ok {
		return "", oops.Code("TOKEN_ISSUE_FAILED").With("purpose", string(g.Purpose)).Errorf("unknown token purpose")
	}
	if g.TTL > 0 {
		ttl = g.TTL
	}

	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ulid.Make().String(),
			Issuer:    issuer,
			Subject:   g.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Purpose: g.Purpose,
		Email:   g.Email,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", oops.Code("TOKEN_ISSUE_FAILED").With("purpose", string(g.Purpose)).Wrap(err)
	}
	return signed, nil
}

// Verify checks the signature, expiry and purpose of raw and returns its claims.
func (s *Service) Verify(raw string, expected Purpose) (*Claims, error) {
	if raw == "" {
		return nil, oops.Code(CodeMalformed).Errorf("token cannot be empty")
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, oops.Code(CodeExpired).Wrap(err)
		}
		return nil, oops.Code(CodeMalformed).Wrap(err)
	}

	if claims.Subject == "" {
		return nil, oops.Code(CodeMalformed).Errorf("token has no subject")
	}
	if claims.Purpose != expected {
		return nil, oops.Code(CodePurposeMismatch).
			With("expected", string(expected)).
			With("actual", string(claims.Purpose)).
			Errorf("token purpose mismatch")
	}
	return claims, nil
}
