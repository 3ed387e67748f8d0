// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Connectix Contributors

// Package totp provides time-based one-time password enrollment and
// verification.
package totp

import (
	"errors"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/samber/oops"
)

// Defaults match common authenticator apps.
const (
	DefaultIssuer     = "Connectix"
	DefaultPeriod     = 30
	DefaultSecretSize = 20
)

// Config configures a Service.
type Config struct {
	Issuer     string
	Period     uint
	SecretSize uint

	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// Enrollment is a freshly generated shared secret.
type Enrollment struct {
	// Secret is the base32 shared secret.
	Secret string
	// URL is the otpauth:// provisioning URI.
	URL string
}

// Service generates and verifies TOTP codes with six digits and SHA1.
type Service struct {
	issuer     string
	period     uint
	secretSize uint
	now        func() time.Time
}

// NewService creates a Service, filling unset fields with defaults.
func NewService(cfg Config) *Service {
	s := &Service{
		issuer:     cfg.Issuer,
		period:     cfg.Period,
		secretSize: cfg.SecretSize,
		now:        cfg.Now,
	}
	if s.issuer == "" {
		s.issuer = DefaultIssuer
	}
	if s.period == 0 {
		s.period = DefaultPeriod
	}
	if s.secretSize == 0 {
		s.secretSize = DefaultSecretSize
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Generate creates a new secret scoped to the issuer and accountName.
func (s *Service) Generate(accountName string) (*Enrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: accountName,
		Period:      s.period,
		SecretSize:  s.secretSize,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, oops.Code("TOTP_GENERATE_FAILED").With("account", accountName).Wrap(err)
	}
	return &Enrollment{Secret: key.Secret(), URL: key.URL()}, nil
}

// Validate reports whether code is the code for the current time step.
// Codes from adjacent steps are rejected.
func (s *Service) Validate(code, secret string) (bool, error) {
	ok, err := totp.ValidateCustom(code, secret, s.now().UTC(), s.opts())
	if err != nil {
		if errors.Is(err, otp.ErrValidateInputInvalidLength) {
			return false, nil
		}
		return false, oops.Code("TOTP_VALIDATE_FAILED").Wrap(err)
	}
	return ok, nil
}

// CodeAt returns the code for secret at t.
func (s *Service) CodeAt(secret string, t time.Time) (string, error) {
	code, err := totp.GenerateCodeCustom(secret, t.UTC(), s.opts())
	if err != nil {
		return "", oops.Code("TOTP_GENERATE_FAILED").Wrap(err)
	}
	return code, nil
}

// Period returns the time step length.
func (s *Service) Period() time.Duration {
	return time.Duration(s.period) * time.Second
}

func (s *Service) opts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    s.period,
		Skew:      0,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}
