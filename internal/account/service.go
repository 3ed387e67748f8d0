// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Connectix Contributors

package account

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/connectix/connectix/internal/token"
)

// DefaultRegistrationTTL is the lifetime of the token issued once the email is verified.
const DefaultRegistrationTTL = 24 * time.Hour

// Deps are the collaborators a Service needs. All fields are required.
type Deps struct {
	Accounts Repository
	Hasher   PasswordHasher
	Tokens   Tokens
	TOTP     TwoFactor
	Renderer ProvisioningRenderer
	Notifier Notifier
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithBaseURL sets the public URL that links in notifications point at.
func WithBaseURL(baseURL string) Option {
	return func(s *Service) {
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithRegistrationTTL sets the lifetime of the token issued on email verification.
func WithRegistrationTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.registrationTTL = ttl
		}
	}
}

// WithEventRecorder sets the recorder for authentication outcomes.
func WithEventRecorder(rec EventRecorder) Option {
	return func(s *Service) {
		if rec != nil {
			s.events = rec
		}
	}
}

// Service drives accounts through registration, login, password recovery and
// two-factor enrollment.
type Service struct {
	accounts Repository
	hasher   PasswordHasher
	tokens   Tokens
	totp     TwoFactor
	renderer ProvisioningRenderer
	notifier Notifier

	logger          *slog.Logger
	events          EventRecorder
	baseURL         string
	registrationTTL time.Duration
}

// NewService creates a Service. Returns an error if a dependency is missing.
func NewService(deps Deps, opts ...Option) (*Service, error) {
	switch {
	case deps.Accounts == nil:
		return nil, oops.Code("ACCOUNT_SERVICE_INVALID").Errorf("account repository is required")
	case deps.Hasher == nil:
		return nil, oops.Code("ACCOUNT_SERVICE_INVALID").Errorf("password hasher is required")
	case deps.Tokens == nil:
		return nil, oops.Code("ACCOUNT_SERVICE_INVALID").Errorf("token service is required")
	case deps.TOTP == nil:
		return nil, oops.Code("ACCOUNT_SERVICE_INVALID").Errorf("totp service is required")
	case deps.Renderer == nil:
		return nil, oops.Code("ACCOUNT_SERVICE_INVALID").Errorf("provisioning renderer is required")
	case deps.Notifier == nil:
		return nil, oops.Code("ACCOUNT_SERVICE_INVALID").Errorf("notifier is required")
	}

	s := &Service{
		accounts:        deps.Accounts,
		hasher:          deps.Hasher,
		tokens:          deps.Tokens,
		totp:            deps.TOTP,
		renderer:        deps.Renderer,
		notifier:        deps.Notifier,
		logger:          slog.Default(),
		events:          nopRecorder{},
		registrationTTL: DefaultRegistrationTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RegisterInput is the first registration step.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Register creates a step 1 account and mails its verification code.
//
// If the notification fails the account is still persisted and the error has
// code CodeNotificationFailed.
func (s *Service) Register(ctx context.Context, in RegisterInput) (ulid.ULID, error) {
	email := NormalizeEmail(in.Email)
	if strings.TrimSpace(in.Name) == "" || email == "" || in.Password == "" {
		return ulid.ULID{}, oops.Code(CodeInvalidInput).Errorf("Name, email and password are required")
	}
	if err := ValidateEmail(email); err != nil {
		return ulid.ULID{}, err
	}
	if err := ValidatePassword(in.Password); err != nil {
		return ulid.ULID{}, err
	}

	_, err := s.accounts.GetByEmail(ctx, email)
	switch {
	case err == nil:
		s.events.RecordAuthEvent("register", "duplicate")
		return ulid.ULID{}, oops.Code(CodeDuplicateIdentity).Errorf("Email already exists.")
	case !errors.Is(err, ErrNotFound):
		return ulid.ULID{}, oops.Code("ACCOUNT_REGISTER_FAILED").
			With("operation", "get account by email").
			Wrap(err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return ulid.ULID{}, oops.Code("ACCOUNT_REGISTER_FAILED").With("operation", "hash password").Wrap(err)
	}
	code, err := GenerateVerificationCode()
	if err != nil {
		return ulid.ULID{}, oops.Code("ACCOUNT_REGISTER_FAILED").With("operation", "generate code").Wrap(err)
	}
	acc, err := NewAccount(in.Name, email, hash, code)
	if err != nil {
		return ulid.ULID{}, oops.Code("ACCOUNT_REGISTER_FAILED").With("operation", "new account").Wrap(err)
	}

	if err := s.accounts.Create(ctx, acc); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			s.events.RecordAuthEvent("register", "duplicate")
			return ulid.ULID{}, oops.Code(CodeDuplicateIdentity).Errorf("Email already exists.")
		}
		return ulid.ULID{}, oops.Code("ACCOUNT_REGISTER_FAILED").With("operation", "create account").Wrap(err)
	}

	if err := s.notifier.SendPlain(ctx, acc.Email, "Email Verification", s.verificationBody(acc, code)); err != nil {
		return ulid.ULID{}, oops.Code(CodeNotificationFailed).
			With("operation", "send verification code").
			With("account_id", acc.ID.String()).
			Wrap(err)
	}

	s.events.RecordAuthEvent("register", "success")
	s.logger.InfoContext(ctx, "account registered", "account_id", acc.ID.String())
	return acc.ID, nil
}

func (s *Service) verificationBody(acc *Account, code string) string {
	body := "Your verification code is: " + code
	if s.baseURL == "" {
		return body
	}
	link, err := s.tokens.Issue(token.Grant{Subject: acc.ID.String(), Purpose: token.PurposeEmailVerify})
	if err != nil {
		s.logger.Warn("best-effort verification link failed",
			"operation", "issue email verify token",
			"account_id", acc.ID.String(),
			"error", err)
		return body
	}
	return body + "\n\nOr verify your email by opening: " + s.baseURL + "/verify-email/" + link
}

// Verification is the result of a successful email verification.
type Verification struct {
	AccountID ulid.ULID
	Token     string
}

// VerifyEmailCode checks the submitted code and moves the account to step 2.
// The code is compared exactly, without normalization.
func (s *Service) VerifyEmailCode(ctx context.Context, email, code string) (*Verification, error) {
	acc, err := s.accounts.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, s.lookupError(err, "User not found", "ACCOUNT_VERIFY_FAILED")
	}

	pending, ok := acc.PendingCode()
	if !ok || subtle.ConstantTimeCompare([]byte(pending), []byte(code)) != 1 {
		s.events.RecordAuthEvent("verify_email", "invalid_code")
		return nil, oops.Code(CodeInvalidCode).Errorf("Invalid verification code")
	}

	if err := acc.MarkVerified(); err != nil {
		return nil, oops.Code("ACCOUNT_VERIFY_FAILED").With("operation", "mark verified").Wrap(err)
	}
	if err := s.accounts.Update(ctx, acc); err != nil {
		return nil, oops.Code("ACCOUNT_VERIFY_FAILED").With("operation", "update account").Wrap(err)
	}

	tok, err := s.tokens.Issue(token.Grant{
		Subject: acc.ID.String(),
		Purpose: token.PurposeSession,
		TTL:     s.registrationTTL,
	})
	if err != nil {
		return nil, oops.Code("ACCOUNT_VERIFY_FAILED").With("operation", "issue token").Wrap(err)
	}

	s.events.RecordAuthEvent("verify_email", "success")
	return &Verification{AccountID: acc.ID, Token: tok}, nil
}

// VerifyEmailToken verifies an email-verify token and marks the account verified.
func (s *Service) VerifyEmailToken(ctx context.Context, raw string) error {
	claims, err := s.tokens.Verify(raw, token.PurposeEmailVerify)
	if err != nil {
		return invalidToken(err)
	}
	id, err := ulid.Parse(claims.Subject)
	if err != nil {
		return oops.Code(CodeInvalidOrExpiredToken).Errorf("Invalid or expired token.")
	}
	acc, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return s.lookupError(err, "User not found", "ACCOUNT_VERIFY_FAILED")
	}
	if err := acc.MarkVerified(); err != nil {
		return oops.Code("ACCOUNT_VERIFY_FAILED").With("operation", "mark verified").Wrap(err)
	}
	if err := s.accounts.Update(ctx, acc); err != nil {
		return oops.Code("ACCOUNT_VERIFY_FAILED").With("operation", "update account").Wrap(err)
	}
	return nil
}

// ProfileInput is the second registration step.
type ProfileInput struct {
	AccountID string
	Username  string
	Gender    string
	State     string
}

// UpdateProfile stores the step 2 profile fields and moves the account to step 3.
func (s *Service) UpdateProfile(ctx context.Context, in ProfileInput) (ulid.ULID, error) {
	const msg = "Invalid user or email not verified"

	id, err := ulid.Parse(in.AccountID)
	if err != nil {
		return ulid.ULID{}, oops.Code(CodeInvalidState).With("account_id", in.AccountID).Errorf(msg)
	}
	acc, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ulid.ULID{}, oops.Code(CodeInvalidState).With("account_id", in.AccountID).Errorf(msg)
		}
		return ulid.ULID{}, oops.Code("ACCOUNT_UPDATE_FAILED").With("operation", "get account").Wrap(err)
	}
	if !acc.Verified {
		return ulid.ULID{}, oops.Code(CodeInvalidState).With("account_id", in.AccountID).Errorf(msg)
	}
	if StepCompleted == acc.Step {
		return ulid.ULID{}, oops.Code(CodeInvalidState).
			With("account_id", in.AccountID).
			Errorf("Registration already completed")
	}

	acc.Profile.Username = strings.TrimSpace(in.Username)
	acc.Profile.Gender = strings.TrimSpace(in.Gender)
	acc.Profile.State = strings.TrimSpace(in.State)
	if err := acc.Advance(Step3); err != nil {
		return ulid.ULID{}, oops.Code(CodeInvalidState).With("cause", err.Error()).Errorf(msg)
	}
	if err := s.accounts.Update(ctx, acc); err != nil {
		return ulid.ULID{}, oops.Code("ACCOUNT_UPDATE_FAILED").With("operation", "update account").Wrap(err)
	}
	return acc.ID, nil
}

// CompleteInput is the final registration step.
type CompleteInput struct {
	AccountID  string
	StageName  string
	MusicStyle string
}

// CompleteRegistration stores the stage identity, marks registration complete
// and sends the welcome message.
func (s *Service) CompleteRegistration(ctx context.Context, in CompleteInput) (*Summary, error) {
	const msg = "Invalid user or previous steps not completed"

	id, err := ulid.Parse(in.AccountID)
	if err != nil {
		return nil, oops.Code(CodeNotFound).With("account_id", in.AccountID).Errorf(msg)
	}
	acc, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, s.lookupError(err, msg, "ACCOUNT_COMPLETE_FAILED")
	}
	if acc.Step.Before(Step3) {
		return nil, oops.Code(CodeInvalidState).
			With("account_id", in.AccountID).
			With("step", string(acc.Step)).
			Errorf(msg)
	}

	acc.Profile.StageName = strings.TrimSpace(in.StageName)
	acc.Profile.MusicStyle = strings.TrimSpace(in.MusicStyle)
	if err := acc.Advance(StepCompleted); err != nil {
		return nil, oops.Code(CodeInvalidState).With("cause", err.Error()).Errorf(msg)
	}
	if err := s.accounts.Update(ctx, acc); err != nil {
		return nil, oops.Code("ACCOUNT_COMPLETE_FAILED").With("operation", "update account").Wrap(err)
	}

	err = s.notifier.SendTemplate(ctx, acc.Email, "Welcome to our Company", TemplateWelcome, map[string]any{
		"name": acc.Name,
	})
	if err != nil {
		return nil, oops.Code(CodeNotificationFailed).
			With("operation", "send welcome message").
			With("account_id", acc.ID.String()).
			Wrap(err)
	}

	s.events.RecordAuthEvent("register_complete", "success")
	summary := acc.Summary()
	return &summary, nil
}

// LoginResult is the outcome of a successful credential check. When
// TwoFARequired is set, Token is empty and the caller must finish with
// VerifyTwoFALogin.
type LoginResult struct {
	TwoFARequired bool
	Token         string
	Account       Summary
}

// Login checks credentials and issues a session token unless 2FA is enrolled.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	acc, err := s.accounts.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.events.RecordAuthEvent("login", "not_found")
		}
		return nil, s.lookupError(err, "User with the email or password not found", "ACCOUNT_LOGIN_FAILED")
	}
	if !acc.Verified {
		s.events.RecordAuthEvent("login", "unverified")
		return nil, oops.Code(CodeEmailNotVerified).Errorf("Please verify your email before logging in")
	}

	ok, err := s.hasher.Verify(password, acc.PasswordHash)
	if err != nil {
		return nil, oops.Code("ACCOUNT_LOGIN_FAILED").With("operation", "verify password").Wrap(err)
	}
	if !ok {
		s.events.RecordAuthEvent("login", "invalid_password")
		return nil, oops.Code(CodeInvalidPassword).Errorf("Invalid Password")
	}

	if acc.HasTwoFA() {
		s.events.RecordAuthEvent("login", "2fa_required")
		return &LoginResult{TwoFARequired: true}, nil
	}

	return s.startSession(ctx, acc, "login")
}

func (s *Service) startSession(ctx context.Context, acc *Account, event string) (*LoginResult, error) {
	tok, err := s.tokens.Issue(token.Grant{Subject: acc.ID.String(), Purpose: token.PurposeSession})
	if err != nil {
		return nil, oops.Code("ACCOUNT_LOGIN_FAILED").With("operation", "issue session token").Wrap(err)
	}
	s.events.RecordAuthEvent(event, "success")
	s.logger.InfoContext(ctx, "session issued", "account_id", acc.ID.String(), "via", event)
	return &LoginResult{Token: tok, Account: acc.Summary()}, nil
}

// ForgotPassword issues a password-reset token and mails the reset link.
// The link is returned for callers that deliver it themselves.
func (s *Service) ForgotPassword(ctx context.Context, email string) (string, error) {
	acc, err := s.accounts.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return "", s.lookupError(err, "User with this email does not exist.", "ACCOUNT_FORGOT_FAILED")
	}

	tok, err := s.tokens.Issue(token.Grant{
		Subject: acc.ID.String(),
		Purpose: token.PurposePasswordReset,
		Email:   acc.Email,
	})
	if err != nil {
		return "", oops.Code("ACCOUNT_FORGOT_FAILED").With("operation", "issue reset token").Wrap(err)
	}

	link := s.baseURL + "/reset-password/" + acc.ID.String() + "/" + tok
	err = s.notifier.SendTemplate(ctx, acc.Email, "Reset Your Password", TemplateForgetPassword, map[string]any{
		"resetLink": link,
	})
	if err != nil {
		return "", oops.Code(CodeNotificationFailed).
			With("operation", "send reset link").
			With("account_id", acc.ID.String()).
			Wrap(err)
	}

	s.events.RecordAuthEvent("password_reset_request", "success")
	return link, nil
}

// CheckResetLink verifies a reset link without changing any state.
func (s *Service) CheckResetLink(ctx context.Context, accountID, raw string) error {
	_, err := s.resetTarget(ctx, accountID, raw)
	return err
}

// ResetPassword re-verifies the reset link and replaces the password.
func (s *Service) ResetPassword(ctx context.Context, accountID, raw, newPassword string) error {
	acc, err := s.resetTarget(ctx, accountID, raw)
	if err != nil {
		return err
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	if err := s.replacePassword(ctx, acc, newPassword); err != nil {
		return err
	}
	s.events.RecordAuthEvent("password_reset", "success")
	return nil
}

func (s *Service) resetTarget(ctx context.Context, accountID, raw string) (*Account, error) {
	const msg = "User does not exists."

	id, err := ulid.Parse(accountID)
	if err != nil {
		return nil, oops.Code(CodeNotFound).With("account_id", accountID).Errorf(msg)
	}
	acc, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, s.lookupError(err, msg, "ACCOUNT_RESET_FAILED")
	}

	claims, err := s.tokens.Verify(raw, token.PurposePasswordReset)
	if err != nil {
		return nil, invalidToken(err)
	}
	if claims.Subject != acc.ID.String() {
		return nil, oops.Code(CodeInvalidOrExpiredToken).
			With("reason", "subject mismatch").
			Errorf("Invalid or expired token.")
	}
	return acc, nil
}

// ChangePassword replaces the password of the account the session token
// belongs to after re-checking the current password.
func (s *Service) ChangePassword(ctx context.Context, sessionToken, currentPassword, newPassword string) error {
	id, err := s.Authenticate(ctx, sessionToken)
	if err != nil {
		return err
	}
	acc, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return s.lookupError(err, "User does not exist.", "ACCOUNT_CHANGE_PASSWORD_FAILED")
	}

	ok, err := s.hasher.Verify(currentPassword, acc.PasswordHash)
	if err != nil {
		return oops.Code("ACCOUNT_CHANGE_PASSWORD_FAILED").With("operation", "verify password").Wrap(err)
	}
	if !ok {
		return oops.Code(CodeIncorrectPassword).Errorf("Incorrect current password.")
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	if err := s.replacePassword(ctx, acc, newPassword); err != nil {
		return err
	}
	s.events.RecordAuthEvent("password_change", "success")
	return nil
}

func (s *Service) replacePassword(ctx context.Context, acc *Account, password string) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return oops.Code("ACCOUNT_PASSWORD_UPDATE_FAILED").With("operation", "hash password").Wrap(err)
	}
	acc.SetPasswordHash(hash)
	if err := s.accounts.Update(ctx, acc); err != nil {
		return oops.Code("ACCOUNT_PASSWORD_UPDATE_FAILED").With("operation", "update account").Wrap(err)
	}
	return nil
}

// Authenticate resolves a session token to its account ID.
func (s *Service) Authenticate(_ context.Context, sessionToken string) (ulid.ULID, error) {
	if sessionToken == "" {
		return ulid.ULID{}, oops.Code(CodeUnauthenticated).Errorf("No token provided.")
	}
	claims, err := s.tokens.Verify(sessionToken, token.PurposeSession)
	if err != nil {
		return ulid.ULID{}, oops.Code(CodeUnauthenticated).
			With("reason", codeOf(err)).
			Errorf("Invalid or expired token.")
	}
	id, err := ulid.Parse(claims.Subject)
	if err != nil {
		return ulid.ULID{}, oops.Code(CodeUnauthenticated).Errorf("Invalid or expired token.")
	}
	return id, nil
}

// Account returns the summary of an account.
func (s *Service) Account(ctx context.Context, id ulid.ULID) (*Summary, error) {
	acc, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, s.lookupError(err, "User not found", "ACCOUNT_GET_FAILED")
	}
	summary := acc.Summary()
	return &summary, nil
}

// lookupError converts a repository lookup failure into either a NotFound
// error with the given message or an internal error with failCode.
func (s *Service) lookupError(err error, notFoundMsg, failCode string) error {
	if errors.Is(err, ErrNotFound) {
		return oops.Code(CodeNotFound).Errorf("%s", notFoundMsg)
	}
	return oops.Code(failCode).With("operation", "get account").Wrap(err)
}

func invalidToken(err error) error {
	return oops.Code(CodeInvalidOrExpiredToken).
		With("reason", codeOf(err)).
		Errorf("Invalid or expired token.")
}

func codeOf(err error) string {
	if oopsErr, ok := oops.AsOops(err); ok {
		if code, ok := oopsErr.Code().(string); ok {
			return code
		}
	}
	return ""
}
