package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditopts "github.com/kart-io/sentinel-rag/pkg/options/audit"
)

func TestOpenSQLiteMemory(t *testing.T) {
	opts := auditopts.NewOptions()
	opts.DSN = "file::memory:"
	opts.MaxOpenConnections = 1

	db, err := Open(context.Background(), opts)
	require.NoError(t, err)
	defer func() { _ = Close(db) }()

	var one int
	require.NoError(t, db.Raw("SELECT 1").Scan(&one).Error)
	assert.Equal(t, 1, one)
}

func TestOpenUnsupportedDriver(t *testing.T) {
	opts := auditopts.NewOptions()
	opts.Driver = "oracle"
	_, err := Open(context.Background(), opts)
	assert.Error(t, err)
}

func TestOpenNilOptions(t *testing.T) {
	_, err := Open(context.Background(), nil)
	assert.Error(t, err)
}
