// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Connectix Contributors

package account_test

import (
	"errors"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"

	"github.com/connectix/connectix/internal/account"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want account.Kind
	}{
		{"nil", nil, ""},
		{"plain error", errors.New("boom"), account.KindInternal},
		{"unknown code", oops.Code("SOMETHING_ELSE").Errorf("boom"), account.KindInternal},
		{"not found", oops.Code(account.CodeNotFound).Errorf("User not found"), account.KindNotFound},
		{"totp maps to invalid token", oops.Code(account.CodeInvalidTOTP).Errorf("Invalid token"), account.KindInvalidToken},
		{
			"notification failure wraps codeless cause",
			oops.Code(account.CodeNotificationFailed).Wrap(errors.New("smtp down")),
			account.KindNotificationFailed,
		},
		{
			"deepest code wins",
			oops.Code("ACCOUNT_REGISTER_FAILED").Wrap(oops.Code(account.CodeDuplicateIdentity).Errorf("dup")),
			account.KindDuplicateIdentity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, account.KindOf(tt.err))
		})
	}
}

func TestKind_Public(t *testing.T) {
	assert.True(t, account.KindNotFound.Public())
	assert.True(t, account.KindWeakPassword.Public())
	assert.False(t, account.KindInternal.Public())
	assert.False(t, account.KindNotificationFailed.Public())
	assert.False(t, account.KindRenderingFailed.Public())
}
