// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Connectix Contributors

package account

import (
	"errors"

	"github.com/samber/oops"
)

// ErrNotFound is returned by repositories when a requested account does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned by repositories when an insert collides with
// an existing email.
var ErrDuplicateEmail = errors.New("duplicate email")

// Error codes returned by Service.
const (
	CodeDuplicateIdentity     = "ACCOUNT_DUPLICATE_IDENTITY"
	CodeWeakPassword          = "ACCOUNT_WEAK_PASSWORD"
	CodeNotFound              = "ACCOUNT_NOT_FOUND"
	CodeInvalidCode           = "ACCOUNT_INVALID_CODE"
	CodeInvalidState          = "ACCOUNT_INVALID_STATE"
	CodeEmailNotVerified      = "ACCOUNT_EMAIL_NOT_VERIFIED"
	CodeInvalidPassword       = "ACCOUNT_INVALID_PASSWORD"
	CodeInvalidOrExpiredToken = "ACCOUNT_INVALID_OR_EXPIRED_TOKEN"
	CodeInvalidTOTP           = "ACCOUNT_INVALID_TOTP"
	CodeUnauthenticated       = "ACCOUNT_UNAUTHENTICATED"
	CodeIncorrectPassword     = "ACCOUNT_INCORRECT_PASSWORD"
	CodeNotificationFailed    = "ACCOUNT_NOTIFICATION_FAILED"
	CodeRenderingFailed       = "ACCOUNT_RENDERING_FAILED"
	CodeInvalidInput          = "ACCOUNT_INVALID_INPUT"
)

// Kind is the client-facing classification of a Service error.
type Kind string

// Error kinds. KindInternal covers every unexpected collaborator failure.
const (
	KindDuplicateIdentity     Kind = "DuplicateIdentity"
	KindWeakPassword          Kind = "WeakPassword"
	KindNotFound              Kind = "NotFound"
	KindInvalidCode           Kind = "InvalidCode"
	KindInvalidState          Kind = "InvalidState"
	KindEmailNotVerified      Kind = "EmailNotVerified"
	KindInvalidPassword       Kind = "InvalidPassword"
	KindInvalidOrExpiredToken Kind = "InvalidOrExpiredToken"
	KindInvalidToken          Kind = "InvalidToken"
	KindUnauthenticated       Kind = "Unauthenticated"
	KindIncorrectPassword     Kind = "IncorrectPassword"
	KindNotificationFailed    Kind = "NotificationFailed"
	KindRenderingFailed       Kind = "RenderingFailed"
	KindInvalidInput          Kind = "InvalidInput"
	KindInternal              Kind = "Internal"
)

var kindByCode = map[string]Kind{
	CodeDuplicateIdentity:     KindDuplicateIdentity,
	CodeWeakPassword:          KindWeakPassword,
	CodeNotFound:              KindNotFound,
	CodeInvalidCode:           KindInvalidCode,
	CodeInvalidState:          KindInvalidState,
	CodeEmailNotVerified:      KindEmailNotVerified,
	CodeInvalidPassword:       KindInvalidPassword,
	CodeInvalidOrExpiredToken: KindInvalidOrExpiredToken,
	CodeInvalidTOTP:           KindInvalidToken,
	CodeUnauthenticated:       KindUnauthenticated,
	CodeIncorrectPassword:     KindIncorrectPassword,
	CodeNotificationFailed:    KindNotificationFailed,
	CodeRenderingFailed:       KindRenderingFailed,
	CodeInvalidInput:          KindInvalidInput,
}

// KindOf classifies err. Errors without a known code are KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return KindInternal
	}
	code, _ := oopsErr.Code().(string)
	if kind, ok := kindByCode[code]; ok {
		return kind
	}
	return KindInternal
}

// Public reports whether the message of an error of this kind may be shown to
// clients verbatim.
func (k Kind) Public() bool {
	switch k {
	case KindInternal, KindNotificationFailed, KindRenderingFailed, "":
		return false
	default:
		return true
	}
}
