// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Connectix Contributors

// Package postgres implements account.Repository on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/connectix/connectix/internal/account"
)

// Querier is the subset of *pgxpool.Pool the repository uses.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const selectAccount = `
	SELECT id, email, name, password_hash, verified, verification_code,
	       two_fa_secret, registration_step, username, gender, state,
	       stage_name, music_style, created_at, updated_at
	FROM accounts`

// Repository implements account.Repository using PostgreSQL.
type Repository struct {
	db Querier
}

// NewRepository creates a new Repository.
func NewRepository(db Querier) *Repository {
	return &Repository{db: db}
}

// Create stores a new account. A unique violation on the email index is
// reported as account.ErrDuplicateEmail.
func (r *Repository) Create(ctx context.Context, acc *account.Account) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO accounts (
			id, email, name, password_hash, verified, verification_code,
			two_fa_secret, registration_step, username, gender, state,
			stage_name, music_style, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		acc.ID.String(),
		acc.Email,
		acc.Name,
		acc.PasswordHash,
		acc.Verified,
		acc.VerificationCode,
		acc.TwoFASecret,
		string(acc.Step),
		acc.Profile.Username,
		acc.Profile.Gender,
		acc.Profile.State,
		acc.Profile.StageName,
		acc.Profile.MusicStyle,
		acc.CreatedAt,
		acc.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return oops.Code("ACCOUNT_RECORD_DUPLICATE").
			With("email", acc.Email).
			Wrap(account.ErrDuplicateEmail)
	}
	if err != nil {
		return oops.Code("ACCOUNT_RECORD_CREATE_FAILED").
			With("operation", "insert account").
			With("id", acc.ID.String()).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves an account by ID.
func (r *Repository) GetByID(ctx context.Context, id ulid.ULID) (*account.Account, error) {
	row := r.db.QueryRow(ctx, selectAccount+` WHERE id = $1`, id.String())

	acc, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_RECORD_NOT_FOUND").
			With("id", id.String()).
			Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_RECORD_GET_FAILED").
			With("operation", "get account by id").
			With("id", id.String()).
			Wrap(err)
	}
	return acc, nil
}

// GetByEmail retrieves an account by email (case-insensitive).
func (r *Repository) GetByEmail(ctx context.Context, email string) (*account.Account, error) {
	row := r.db.QueryRow(ctx, selectAccount+` WHERE LOWER(email) = LOWER($1)`, email)

	acc, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_RECORD_NOT_FOUND").
			With("email", email).
			Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_RECORD_GET_FAILED").
			With("operation", "get account by email").
			With("email", email).
			Wrap(err)
	}
	return acc, nil
}

// Update overwrites every mutable column of an existing account.
func (r *Repository) Update(ctx context.Context, acc *account.Account) error {
	result, err := r.db.Exec(ctx, `
		UPDATE accounts SET
			email = $2,
			name = $3,
			password_hash = $4,
			verified = $5,
			verification_code = $6,
			two_fa_secret = $7,
			registration_step = $8,
			username = $9,
			gender = $10,
			state = $11,
			stage_name = $12,
			music_style = $13,
			updated_at = $14
		WHERE id = $1
	`,
		acc.ID.String(),
		acc.Email,
		acc.Name,
		acc.PasswordHash,
		acc.Verified,
		acc.VerificationCode,
		acc.TwoFASecret,
		string(acc.Step),
		acc.Profile.Username,
		acc.Profile.Gender,
		acc.Profile.State,
		acc.Profile.StageName,
		acc.Profile.MusicStyle,
		acc.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return oops.Code("ACCOUNT_RECORD_DUPLICATE").
			With("email", acc.Email).
			Wrap(account.ErrDuplicateEmail)
	}
	if err != nil {
		return oops.Code("ACCOUNT_RECORD_UPDATE_FAILED").
			With("operation", "update account").
			With("id", acc.ID.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_RECORD_NOT_FOUND").
			With("id", acc.ID.String()).
			Wrap(account.ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// scanAccount scans one row. Scan errors, pgx.ErrNoRows included, are
// returned unwrapped.
func scanAccount(row pgx.Row) (*account.Account, error) {
	var (
		idStr     string
		stepStr   string
		acc       account.Account
		createdAt time.Time
		updatedAt time.Time
	)

	err := row.Scan(
		&idStr,
		&acc.Email,
		&acc.Name,
		&acc.PasswordHash,
		&acc.Verified,
		&acc.VerificationCode,
		&acc.TwoFASecret,
		&stepStr,
		&acc.Profile.Username,
		&acc.Profile.Gender,
		&acc.Profile.State,
		&acc.Profile.StageName,
		&acc.Profile.MusicStyle,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		// QueryRow defers query errors to Scan; callers add the lookup context.
		return nil, err //nolint:wrapcheck // wrapped once by the caller
	}

	acc.ID, err = ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("ACCOUNT_RECORD_INVALID_ID").
			With("id", idStr).
			Wrap(err)
	}
	acc.Step, err = account.ParseStep(stepStr)
	if err != nil {
		return nil, oops.Code("ACCOUNT_RECORD_INVALID_STEP").
			With("id", idStr).
			Wrap(err)
	}
	acc.CreatedAt = createdAt.UTC()
	acc.UpdatedAt = updatedAt.UTC()
	return &acc, nil
}

// Compile-time interface check.
var _ account.Repository = (*Repository)(nil)
