package account

import (
	"context"
	"errors"
	"fmt"

	infrarepo "github.com/amirasaad/ledger/infra/repository"
	"github.com/amirasaad/ledger/pkg/domain/account"
	"github.com/amirasaad/ledger/pkg/money"
	repo "github.com/amirasaad/ledger/pkg/repository/account"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

// New creates an account repository backed by the provided *gorm.DB.
func New(db *gorm.DB) repo.Repository {
	return &repository{db: db}
}

// Migrate creates or updates the accounts table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Account{})
}

// Create implements account.Repository.
func (r *repository) Create(ctx context.Context, acct account.Account) error {
	m := mapDomainToModel(acct)
	return infrarepo.WrapError(func() error {
		return r.db.WithContext(ctx).Create(&m).Error
	})
}

// Update implements account.Repository.
func (r *repository) Update(ctx context.Context, accts ...account.Account) error {
	if len(accts) == 1 {
		return updateBalance(r.db.WithContext(ctx), accts[0])
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, acct := range accts {
			if err := updateBalance(tx, acct); err != nil {
				return err
			}
		}
		return nil
	})
}

func updateBalance(db *gorm.DB, acct account.Account) error {
	res := db.Model(&Account{}).
		Where("uid = ?", int64(acct.UID)).
		Update("balance", acct.Balance.Amount())
	if res.Error != nil {
		return infrarepo.MapGormErrorToDomain(res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", account.ErrAccountNotFound, acct.UID)
	}
	return nil
}

// Get implements account.Repository.
func (r *repository) Get(ctx context.Context, uid account.UID) (account.Account, error) {
	var m Account
	err := infrarepo.WrapError(func() error {
		return r.db.WithContext(ctx).First(&m, "uid = ?", int64(uid)).Error
	})
	if err != nil {
		return account.Account{}, err
	}
	return mapModelToDomain(m)
}

// MaxUID implements account.Repository.
func (r *repository) MaxUID(ctx context.Context) (account.UID, error) {
	var maxUID int64
	err := r.db.WithContext(ctx).
		Model(&Account{}).
		Select("COALESCE(MAX(uid), 0)").
		Scan(&maxUID).Error
	if err != nil {
		return 0, infrarepo.MapGormErrorToDomain(err)
	}
	return account.UID(maxUID), nil
}

func mapDomainToModel(acct account.Account) Account {
	return Account{
		UID:       int64(acct.UID),
		Balance:   acct.Balance.Amount(),
		Currency:  string(acct.Currency()),
		CreatedAt: acct.CreatedAt,
	}
}

func mapModelToDomain(m Account) (account.Account, error) {
	balance, err := money.New(m.Balance, money.Code(m.Currency))
	if err != nil {
		return account.Account{}, errors.Join(errCorruptRecord, err)
	}
	return account.New().
		WithUID(account.UID(m.UID)).
		WithBalance(balance).
		WithCreatedAt(m.CreatedAt).
		Build()
}

var errCorruptRecord = errors.New("corrupt account record")
