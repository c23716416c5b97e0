package account

import (
	"context"
	"fmt"
	"sync"

	"github.com/amirasaad/ledger/pkg/domain/account"
	repo "github.com/amirasaad/ledger/pkg/repository/account"
)

// MemoryRepository keeps accounts in a map guarded by a RWMutex.
type MemoryRepository struct {
	mu       sync.RWMutex
	accounts map[account.UID]account.Account
	maxUID   account.UID
}

// NewMemory creates an empty in-memory account repository.
func NewMemory() *MemoryRepository {
	return &MemoryRepository{
		accounts: make(map[account.UID]account.Account),
	}
}

// Create implements account.Repository.
func (r *MemoryRepository) Create(_ context.Context, acct account.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.accounts[acct.UID]; exists {
		return repo.ErrAlreadyExists
	}
	r.accounts[acct.UID] = acct
	if acct.UID > r.maxUID {
		r.maxUID = acct.UID
	}
	return nil
}

// Update implements account.Repository.
func (r *MemoryRepository) Update(_ context.Context, accts ...account.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, acct := range accts {
		if _, exists := r.accounts[acct.UID]; !exists {
			return fmt.Errorf("%w: %s", account.ErrAccountNotFound, acct.UID)
		}
	}
	for _, acct := range accts {
		stored := r.accounts[acct.UID]
		stored.Balance = acct.Balance
		r.accounts[acct.UID] = stored
	}
	return nil
}

// Get implements account.Repository.
func (r *MemoryRepository) Get(_ context.Context, uid account.UID) (account.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	acct, exists := r.accounts[uid]
	if !exists {
		return account.Account{}, account.ErrAccountNotFound
	}
	return acct, nil
}

// MaxUID implements account.Repository.
func (r *MemoryRepository) MaxUID(_ context.Context) (account.UID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.maxUID, nil
}

// Len returns the number of stored accounts.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.accounts)
}

var _ repo.Repository = (*MemoryRepository)(nil)
