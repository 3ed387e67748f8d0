// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Connectix Contributors

package account

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"

	"github.com/samber/oops"
)

// MinPasswordLength is the shortest password accepted.
const MinPasswordLength = 8

// PasswordSymbols is the symbol set a password must draw at least one character from.
const PasswordSymbols = "@#$%^&*!"

// WeakPasswordMessage is the client-facing explanation of the password policy.
const WeakPasswordMessage = "Password must contain at least one lowercase letter, one uppercase letter, " +
	"one digit, one symbol (@#$%^&*!), and have a minimum length of 8 characters"

// ValidatePassword enforces the password policy. Passwords may only contain
// ASCII letters, digits and PasswordSymbols, and need at least one of each
// class plus MinPasswordLength characters overall.
func ValidatePassword(password string) error {
	var lower, upper, digit, symbol bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(PasswordSymbols, r):
			symbol = true
		default:
			return oops.Code(CodeWeakPassword).Errorf("%s", WeakPasswordMessage)
		}
	}
	if len(password) < MinPasswordLength || !lower || !upper || !digit || !symbol {
		return oops.Code(CodeWeakPassword).Errorf("%s", WeakPasswordMessage)
	}
	return nil
}

// Verification codes are uniformly drawn from [minCode, maxCode].
const (
	minCode = 1000
	maxCode = 9999
)

// GenerateVerificationCode returns a uniformly random 4-digit code.
func GenerateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(maxCode-minCode+1))
	if err != nil {
		return "", oops.Code("ACCOUNT_CODE_GENERATE_FAILED").Wrap(err)
	}
	return strconv.FormatInt(n.Int64()+minCode, 10), nil
}

// ValidVerificationCode reports whether code has the generated shape.
func ValidVerificationCode(code string) bool {
	if len(code) != 4 {
		return false
	}
	n, err := strconv.Atoi(code)
	return err == nil && n >= minCode && n <= maxCode
}
