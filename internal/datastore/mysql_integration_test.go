//go:build integration

package datastore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/roboweedmaps/rwm-dataset/internal/conf"
)

func TestMySQLFetchAnnotations(t *testing.T) {
	ctx := context.Background()

	ctr, err := tcmysql.Run(ctx, "mysql:8.0.36",
		tcmysql.WithDatabase("rwm"),
		tcmysql.WithUsername("rwm"),
		tcmysql.WithPassword("rwm-test"),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)

	store, err := Open(conf.Database{
		Driver:   DriverMySQL,
		Server:   host,
		Port:     port.Int(),
		Name:     "rwm",
		User:     "rwm",
		Password: "rwm-test",
		Timeout:  30 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	seedSchema(t, store.DB())

	rows, err := store.FetchAnnotations(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "SOLTU", rows[2].ClassCode, "EPPO codes are trimmed")
	assert.True(t, rows[0].IsGrown)

	report, err := store.Inspect(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.MissingBoxRows)
}
