// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Connectix Contributors

// Package mocks provides testify mocks for the account service collaborators.
package mocks

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/connectix/connectix/internal/account"
	"github.com/connectix/connectix/internal/token"
	"github.com/connectix/connectix/internal/totp"
)

type testingT interface {
	mock.TestingT
	Cleanup(func())
}

// MockRepository is a mock account.Repository.
type MockRepository struct {
	mock.Mock
}

// NewMockRepository creates a MockRepository that asserts its expectations on cleanup.
func NewMockRepository(t testingT) *MockRepository {
	m := &MockRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockRepository) Create(ctx context.Context, acc *account.Account) error {
	args := m.Called(ctx, acc)
	return args.Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id ulid.ULID) (*account.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockRepository) GetByEmail(ctx context.Context, email string) (*account.Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, acc *account.Account) error {
	args := m.Called(ctx, acc)
	return args.Error(0)
}

// MockPasswordHasher is a mock account.PasswordHasher.
type MockPasswordHasher struct {
	mock.Mock
}

// NewMockPasswordHasher creates a MockPasswordHasher that asserts its expectations on cleanup.
func NewMockPasswordHasher(t testingT) *MockPasswordHasher {
	m := &MockPasswordHasher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockPasswordHasher) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *MockPasswordHasher) Verify(password, hash string) (bool, error) {
	args := m.Called(password, hash)
	return args.Bool(0), args.Error(1)
}

// MockTokens is a mock account.Tokens.
type MockTokens struct {
	mock.Mock
}

// NewMockTokens creates a MockTokens that asserts its expectations on cleanup.
func NewMockTokens(t testingT) *MockTokens {
	m := &MockTokens{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockTokens) Issue(g token.Grant) (string, error) {
	args := m.Called(g)
	return args.String(0), args.Error(1)
}

func (m *MockTokens) Verify(raw string, purpose token.Purpose) (*token.Claims, error) {
	args := m.Called(raw, purpose)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*token.Claims), args.Error(1)
}

// MockTwoFactor is a mock account.TwoFactor.
type MockTwoFactor struct {
	mock.Mock
}

// NewMockTwoFactor creates a MockTwoFactor that asserts its expectations on cleanup.
func NewMockTwoFactor(t testingT) *MockTwoFactor {
	m := &MockTwoFactor{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockTwoFactor) Generate(accountName string) (*totp.Enrollment, error) {
	args := m.Called(accountName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*totp.Enrollment), args.Error(1)
}

func (m *MockTwoFactor) Validate(code, secret string) (bool, error) {
	args := m.Called(code, secret)
	return args.Bool(0), args.Error(1)
}

// MockProvisioningRenderer is a mock account.ProvisioningRenderer.
type MockProvisioningRenderer struct {
	mock.Mock
}

// NewMockProvisioningRenderer creates a MockProvisioningRenderer that asserts its expectations on cleanup.
func NewMockProvisioningRenderer(t testingT) *MockProvisioningRenderer {
	m := &MockProvisioningRenderer{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockProvisioningRenderer) Render(uri string) (string, error) {
	args := m.Called(uri)
	return args.String(0), args.Error(1)
}

// MockNotifier is a mock account.Notifier.
type MockNotifier struct {
	mock.Mock
}

// NewMockNotifier creates a MockNotifier that asserts its expectations on cleanup.
func NewMockNotifier(t testingT) *MockNotifier {
	m := &MockNotifier{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockNotifier) SendPlain(ctx context.Context, to, subject, body string) error {
	args := m.Called(ctx, to, subject, body)
	return args.Error(0)
}

func (m *MockNotifier) SendTemplate(ctx context.Context, to, subject, template string, data map[string]any) error {
	args := m.Called(ctx, to, subject, template, data)
	return args.Error(0)
}

// MockEventRecorder is a mock account.EventRecorder.
type MockEventRecorder struct {
	mock.Mock
}

// NewMockEventRecorder creates a MockEventRecorder that asserts its expectations on cleanup.
func NewMockEventRecorder(t testingT) *MockEventRecorder {
	m := &MockEventRecorder{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockEventRecorder) RecordAuthEvent(event, outcome string) {
	m.Called(event, outcome)
}

var (
	_ account.Repository           = (*MockRepository)(nil)
	_ account.PasswordHasher       = (*MockPasswordHasher)(nil)
	_ account.Tokens               = (*MockTokens)(nil)
	_ account.TwoFactor            = (*MockTwoFactor)(nil)
	_ account.ProvisioningRenderer = (*MockProvisioningRenderer)(nil)
	_ account.Notifier             = (*MockNotifier)(nil)
	_ account.EventRecorder        = (*MockEventRecorder)(nil)
)
