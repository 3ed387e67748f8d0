// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Connectix Contributors

package account

import (
	"context"

	"github.com/samber/oops"
)

// TwoFAEnrollment is what a client needs to add the account to an
// authenticator app.
type TwoFAEnrollment struct {
	Secret string
	URL    string
	QRCode string
}

// EnableTwoFA generates and stores a new TOTP secret for the account,
// replacing any existing one. The secret is persisted before the QR code is
// rendered, so a rendering failure still leaves the new secret enrolled.
func (s *Service) EnableTwoFA(ctx context.Context, email string) (*TwoFAEnrollment, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, oops.Code(CodeInvalidInput).Errorf("Email is required")
	}
	acc, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return nil, s.lookupError(err, "User not found", "ACCOUNT_2FA_FAILED")
	}

	enrollment, err := s.totp.Generate(acc.Email)
	if err != nil {
		return nil, oops.Code("ACCOUNT_2FA_FAILED").With("operation", "generate secret").Wrap(err)
	}
	acc.SetTwoFASecret(enrollment.Secret)
	if err := s.accounts.Update(ctx, acc); err != nil {
		return nil, oops.Code("ACCOUNT_2FA_FAILED").With("operation", "update account").Wrap(err)
	}

	qr, err := s.renderer.Render(enrollment.URL)
	if err != nil {
		return nil, oops.Code(CodeRenderingFailed).
			With("account_id", acc.ID.String()).
			Wrapf(err, "Error generating QR code")
	}

	s.events.RecordAuthEvent("2fa_enable", "success")
	return &TwoFAEnrollment{Secret: enrollment.Secret, URL: enrollment.URL, QRCode: qr}, nil
}

// VerifyTwoFA checks a TOTP code against the enrolled secret.
func (s *Service) VerifyTwoFA(ctx context.Context, email, code string) error {
	if _, err := s.checkTOTP(ctx, email, code, "2fa_verify"); err != nil {
		return err
	}
	s.events.RecordAuthEvent("2fa_verify", "success")
	return nil
}

// VerifyTwoFALogin checks a TOTP code and issues a session token. It is the
// second half of a login that returned TwoFARequired.
func (s *Service) VerifyTwoFALogin(ctx context.Context, email, code string) (*LoginResult, error) {
	acc, err := s.checkTOTP(ctx, email, code, "2fa_login")
	if err != nil {
		return nil, err
	}
	return s.startSession(ctx, acc, "2fa_login")
}

func (s *Service) checkTOTP(ctx context.Context, email, code, event string) (*Account, error) {
	email = NormalizeEmail(email)
	if email == "" || code == "" {
		return nil, oops.Code(CodeInvalidInput).Errorf("Email and token are required")
	}
	acc, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return nil, s.lookupError(err, "User or secret not found", "ACCOUNT_2FA_FAILED")
	}
	if !acc.HasTwoFA() {
		return nil, oops.Code(CodeNotFound).Errorf("User or secret not found")
	}

	ok, err := s.totp.Validate(code, *acc.TwoFASecret)
	if err != nil {
		return nil, oops.Code("ACCOUNT_2FA_FAILED").With("operation", "validate code").Wrap(err)
	}
	if !ok {
		s.events.RecordAuthEvent(event, "invalid_code")
		return nil, oops.Code(CodeInvalidTOTP).Errorf("Invalid token")
	}
	return acc, nil
}
