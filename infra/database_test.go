package infra

import (
	"testing"

	"github.com/amirasaad/ledger/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialector(t *testing.T) {
	assert.Equal(t, "postgres", dialector("postgres://u@localhost/db").Name())
	assert.Equal(t, "postgres", dialector("postgresql://u@localhost/db").Name())
	assert.Equal(t, "sqlite", dialector("sqlite::memory:").Name())
	assert.Equal(t, "sqlite", dialector("file::memory:?cache=shared").Name())
}

func TestNewDBConnection(t *testing.T) {
	_, err := NewDBConnection(&config.DB{}, "test")
	require.Error(t, err)

	db, err := NewDBConnection(&config.DB{Url: "sqlite::memory:"}, "test")
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.NoError(t, sqlDB.Ping())
	assert.NoError(t, sqlDB.Close())
}
