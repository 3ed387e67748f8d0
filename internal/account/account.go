// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Connectix Contributors

package account

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Step is a registration stage.
type Step string

// Registration steps in the only order they may be taken.
const (
	Step1         Step = "1"
	Step2         Step = "2"
	Step3         Step = "3"
	StepCompleted Step = "completed"
)

var stepRank = map[Step]int{
	Step1:         1,
	Step2:         2,
	Step3:         3,
	StepCompleted: 4,
}

// Valid reports whether s is a known step.
func (s Step) Valid() bool {
	_, ok := stepRank[s]
	return ok
}

// Before reports whether s comes strictly before other.
func (s Step) Before(other Step) bool {
	return stepRank[s] < stepRank[other]
}

// ParseStep parses the persisted form of a step.
func ParseStep(s string) (Step, error) {
	step := Step(s)
	if !step.Valid() {
		return "", oops.Code("ACCOUNT_INVALID_STEP").With("step", s).Errorf("unknown registration step %q", s)
	}
	return step, nil
}

// Profile holds the free-form fields collected in steps 2 and 3.
type Profile struct {
	Username   string
	Gender     string
	State      string
	StageName  string
	MusicStyle string
}

// Account is a user account record.
type Account struct {
	ID               ulid.ULID
	Email            string
	Name             string
	PasswordHash     string
	Verified         bool
	VerificationCode *string
	TwoFASecret      *string
	Step             Step
	Profile          Profile
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewAccount creates an unverified step 1 account with a pending verification code.
func NewAccount(name, email, passwordHash, verificationCode string) (*Account, error) {
	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("ACCOUNT_INVALID_HASH").Errorf("password hash cannot be empty")
	}
	if !ValidVerificationCode(verificationCode) {
		return nil, oops.Code("ACCOUNT_INVALID_VERIFICATION_CODE").Errorf("verification code must be 4 digits in [1000,9999]")
	}
	now := time.Now().UTC()
	code := verificationCode
	return &Account{
		ID:               ulid.Make(),
		Email:            email,
		Name:             strings.TrimSpace(name),
		PasswordHash:     passwordHash,
		VerificationCode: &code,
		Step:             Step1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// PendingCode returns the verification code if one is outstanding.
func (a *Account) PendingCode() (string, bool) {
	if a.VerificationCode == nil {
		return "", false
	}
	return *a.VerificationCode, true
}

// HasTwoFA reports whether a TOTP secret is enrolled.
func (a *Account) HasTwoFA() bool {
	return a.TwoFASecret != nil && *a.TwoFASecret != ""
}

// MarkVerified sets the verified flag, clears the pending code and moves to step 2.
func (a *Account) MarkVerified() error {
	a.Verified = true
	a.VerificationCode = nil
	if a.Step == Step1 {
		return a.Advance(Step2)
	}
	a.touch()
	return nil
}

// Advance moves the account to next. Steps never move backwards and cannot
// leave step 1 before the email is verified.
func (a *Account) Advance(next Step) error {
	if !next.Valid() {
		return oops.Code("ACCOUNT_INVALID_STEP").With("step", string(next)).Errorf("unknown registration step")
	}
	if next.Before(a.Step) {
		return oops.Code("ACCOUNT_STEP_REGRESSION").
			With("from", string(a.Step)).
			With("to", string(next)).
			Errorf("registration step cannot move backwards")
	}
	if next != Step1 && !a.Verified {
		return oops.Code("ACCOUNT_STEP_UNVERIFIED").
			With("to", string(next)).
			Errorf("email must be verified before leaving step 1")
	}
	a.Step = next
	a.touch()
	return nil
}

// SetTwoFASecret enrolls (or replaces) the TOTP secret.
func (a *Account) SetTwoFASecret(secret string) {
	a.TwoFASecret = &secret
	a.touch()
}

// SetPasswordHash replaces the stored password hash.
func (a *Account) SetPasswordHash(hash string) {
	a.PasswordHash = hash
	a.touch()
}

func (a *Account) touch() {
	a.UpdatedAt = time.Now().UTC()
}

// Summary is the client-safe view of an account. It never carries the
// password hash, verification code or TOTP secret.
type Summary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Username   string `json:"username,omitempty"`
	StageName  string `json:"stagename,omitempty"`
	MusicStyle string `json:"musicstyle,omitempty"`
	Verified   bool   `json:"verified"`
	Step       Step   `json:"registrationStep"`
	TwoFA      bool   `json:"twoFAEnabled"`
}

// Summary returns the sanitized view of a.
func (a *Account) Summary() Summary {
	return Summary{
		ID:         a.ID.String(),
		Name:       a.Name,
		Email:      a.Email,
		Username:   a.Profile.Username,
		StageName:  a.Profile.StageName,
		MusicStyle: a.Profile.MusicStyle,
		Verified:   a.Verified,
		Step:       a.Step,
		TwoFA:      a.HasTwoFA(),
	}
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks that email is a bare RFC 5322 address.
func ValidateEmail(email string) error {
	if email == "" {
		return oops.Code(CodeInvalidInput).Errorf("Email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return oops.Code(CodeInvalidInput).With("email", email).Errorf("Invalid email address")
	}
	return nil
}

// Repository is the Account Record Store.
type Repository interface {
	// Create inserts a new account. Returns ErrDuplicateEmail when the email
	// is taken; the check is atomic with the insert.
	Create(ctx context.Context, account *Account) error

	// GetByID retrieves an account by ID. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id ulid.ULID) (*Account, error)

	// GetByEmail retrieves an account by email (case-insensitive).
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// Update overwrites an existing account.
	Update(ctx context.Context, account *Account) error
}
