package account

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account represents an account record in the database.
// The balance is stored as decimal text so no backend rounds it.
type Account struct {
	UID       int64           `gorm:"column:uid;primaryKey;autoIncrement:false"`
	Balance   decimal.Decimal `gorm:"type:text;not null"`
	Currency  string          `gorm:"type:varchar(3);not null;default:'USD'"`
	CreatedAt time.Time       `gorm:"not null"`
	UpdatedAt time.Time
}

// TableName specifies the table name for the Account model.
func (Account) TableName() string {
	return "accounts"
}
