// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Connectix Contributors

package account

import (
	"context"

	"github.com/connectix/connectix/internal/token"
	"github.com/connectix/connectix/internal/totp"
)

// Notification template names.
const (
	TemplateWelcome        = "welcomeMessage"
	TemplateForgetPassword = "forgetPassword"
)

// Tokens issues and verifies signed bearer tokens.
type Tokens interface {
	Issue(g token.Grant) (string, error)
	Verify(raw string, purpose token.Purpose) (*token.Claims, error)
}

// TwoFactor generates and checks TOTP secrets.
type TwoFactor interface {
	Generate(accountName string) (*totp.Enrollment, error)
	Validate(code, secret string) (bool, error)
}

// ProvisioningRenderer turns a TOTP provisioning URI into a scannable image.
type ProvisioningRenderer interface {
	Render(uri string) (string, error)
}

// Notifier delivers messages to account holders.
type Notifier interface {
	// SendPlain sends a plain text message.
	SendPlain(ctx context.Context, to, subject, body string) error

	// SendTemplate renders the named template with data and sends it.
	SendTemplate(ctx context.Context, to, subject, template string, data map[string]any) error
}

// EventRecorder counts authentication outcomes.
type EventRecorder interface {
	RecordAuthEvent(event, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RecordAuthEvent(string, string) {}
