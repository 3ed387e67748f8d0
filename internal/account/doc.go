// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Connectix Contributors

// Package account implements the Connectix account lifecycle.
//
// # Domain Types
//
// Account is the persisted record. New accounts should be created with
// NewAccount, which validates the email and password hash and generates the
// pending verification code. Step is the registration stage and only moves
// forward: Step1 -> Step2 -> Step3 -> StepCompleted.
//
// # Services
//
// Service drives an account through registration, login, password recovery
// and two-factor enrollment. It depends on collaborators declared in this
// package (Repository, PasswordHasher, Tokens, TwoFactor, Notifier) and is
// created with NewService, which validates that every dependency is present.
//
// # Errors
//
// Every failure returned by Service carries a samber/oops code from the
// Code* constants. KindOf classifies an error into the public taxonomy.
package account
