// Package mocks holds testify mocks shared by service and handler tests.
package mocks

import (
	"context"

	"github.com/amirasaad/ledger/pkg/domain/account"
	repo "github.com/amirasaad/ledger/pkg/repository/account"
	"github.com/stretchr/testify/mock"
)

// AccountRepository is a testify mock of the account repository.
type AccountRepository struct {
	mock.Mock
}

// NewAccountRepository creates a mock that asserts its expectations on cleanup.
func NewAccountRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *AccountRepository {
	m := &AccountRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *AccountRepository) Create(ctx context.Context, acct account.Account) error {
	args := m.Called(ctx, acct)
	return args.Error(0)
}

func (m *AccountRepository) Update(ctx context.Context, accts ...account.Account) error {
	args := m.Called(ctx, accts)
	return args.Error(0)
}

func (m *AccountRepository) Get(ctx context.Context, uid account.UID) (account.Account, error) {
	args := m.Called(ctx, uid)
	acct, _ := args.Get(0).(account.Account)
	return acct, args.Error(1)
}

func (m *AccountRepository) MaxUID(ctx context.Context) (account.UID, error) {
	args := m.Called(ctx)
	uid, _ := args.Get(0).(account.UID)
	return uid, args.Error(1)
}

var _ repo.Repository = (*AccountRepository)(nil)
