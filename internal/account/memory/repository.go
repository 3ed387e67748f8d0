// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Connectix Contributors

// Package memory implements account.Repository in process memory. It backs
// local development and the HTTP tests; data does not survive a restart.
package memory

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/connectix/connectix/internal/account"
)

// Repository is a mutex-guarded account store keyed by ID with an email index.
type Repository struct {
	mu      sync.RWMutex
	byID    map[ulid.ULID]*account.Account
	byEmail map[string]ulid.ULID
}

// NewRepository creates an empty Repository.
func NewRepository() *Repository {
	return &Repository{
		byID:    make(map[ulid.ULID]*account.Account),
		byEmail: make(map[string]ulid.ULID),
	}
}

// Create stores a copy of acc. The email check and the insert happen under
// one lock.
func (r *Repository) Create(_ context.Context, acc *account.Account) error {
	email := account.NormalizeEmail(acc.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[email]; taken {
		return oops.Code("ACCOUNT_RECORD_DUPLICATE").With("email", email).Wrap(account.ErrDuplicateEmail)
	}
	if _, taken := r.byID[acc.ID]; taken {
		return oops.Code("ACCOUNT_RECORD_CREATE_FAILED").With("id", acc.ID.String()).Errorf("account id already exists")
	}
	r.byID[acc.ID] = clone(acc)
	r.byEmail[email] = acc.ID
	return nil
}

// GetByID returns a copy of the account with id.
func (r *Repository) GetByID(_ context.Context, id ulid.ULID) (*account.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	acc, ok := r.byID[id]
	if !ok {
		return nil, oops.Code("ACCOUNT_RECORD_NOT_FOUND").With("id", id.String()).Wrap(account.ErrNotFound)
	}
	return clone(acc), nil
}

// GetByEmail returns a copy of the account with email, ignoring case.
func (r *Repository) GetByEmail(_ context.Context, email string) (*account.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[account.NormalizeEmail(email)]
	if !ok {
		return nil, oops.Code("ACCOUNT_RECORD_NOT_FOUND").With("email", email).Wrap(account.ErrNotFound)
	}
	return clone(r.byID[id]), nil
}

// Update replaces the stored account.
func (r *Repository) Update(_ context.Context, acc *account.Account) error {
	email := account.NormalizeEmail(acc.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.byID[acc.ID]
	if !ok {
		return oops.Code("ACCOUNT_RECORD_NOT_FOUND").With("id", acc.ID.String()).Wrap(account.ErrNotFound)
	}
	oldEmail := account.NormalizeEmail(old.Email)
	if email != oldEmail {
		if _, taken := r.byEmail[email]; taken {
			return oops.Code("ACCOUNT_RECORD_DUPLICATE").With("email", email).Wrap(account.ErrDuplicateEmail)
		}
		delete(r.byEmail, oldEmail)
		r.byEmail[email] = acc.ID
	}
	r.byID[acc.ID] = clone(acc)
	return nil
}

// Len returns the number of stored accounts.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// clone copies acc so callers never share pointers with the store.
func clone(acc *account.Account) *account.Account {
	c := *acc
	if acc.VerificationCode != nil {
		v := *acc.VerificationCode
		c.VerificationCode = &v
	}
	if acc.TwoFASecret != nil {
		v := *acc.TwoFASecret
		c.TwoFASecret = &v
	}
	return &c
}

var _ account.Repository = (*Repository)(nil)
