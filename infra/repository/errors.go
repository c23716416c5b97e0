// Package repository holds helpers shared by the gorm-backed repositories.
package repository

import (
	"errors"
	"fmt"

	"github.com/amirasaad/ledger/pkg/domain/account"
	repo "github.com/amirasaad/ledger/pkg/repository/account"
	"gorm.io/gorm"
)

var gormToDomain = []struct {
	gorm   error
	domain error
}{
	{gorm.ErrDuplicatedKey, repo.ErrAlreadyExists},
	{gorm.ErrRecordNotFound, account.ErrAccountNotFound},
}

// MapGormErrorToDomain replaces a GORM error anywhere in err's chain with
// the matching domain error. The GORM error stays wrapped for logging.
// Errors with no domain meaning are returned unchanged.
func MapGormErrorToDomain(err error) error {
	if err == nil {
		return nil
	}
	for _, m := range gormToDomain {
		if errors.Is(err, m.gorm) {
			return fmt.Errorf("%w: %w", m.domain, err)
		}
	}
	return err
}

// WrapError runs op and maps its error.
func WrapError(op func() error) error {
	return MapGormErrorToDomain(op())
}
