// Package account defines the storage contract for ledger accounts.
package account

import (
	"context"
	"errors"

	"github.com/amirasaad/ledger/pkg/domain/account"
)

// ErrAlreadyExists is returned when an account with the same uid is already stored.
var ErrAlreadyExists = errors.New("account already exists")

// Repository defines the interface for account data access operations.
// Implementations must be safe for concurrent use. They do no locking
// on behalf of callers: serializing updates to one account is the job of
// the lock coordinator.
type Repository interface {
	// Create stores a new account. Returns ErrAlreadyExists for a duplicate uid.
	Create(ctx context.Context, acct account.Account) error

	// Update replaces the stored balances of every given account as one
	// unit: either all are written or none is. Returns
	// account.ErrAccountNotFound if any uid is unknown.
	Update(ctx context.Context, accts ...account.Account) error

	// Get retrieves a snapshot of the account.
	// Returns account.ErrAccountNotFound if the uid is unknown.
	Get(ctx context.Context, uid account.UID) (account.Account, error)

	// MaxUID returns the highest stored uid, or 0 for an empty store.
	MaxUID(ctx context.Context) (account.UID, error)
}
