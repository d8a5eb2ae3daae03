package core_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/invload/internal/core"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// newTestPool starts a PostgreSQL container with the loader schema.
func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("invload_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		tcpostgres.WithInitScripts(filepath.Join("testdata", "schema.sql")),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "Failed to get connection string")

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err, "Failed to connect")
	t.Cleanup(pool.Close)

	return pool
}

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func countRows(t *testing.T, pool *pgxpool.Pool, table string) int {
	t.Helper()
	var n int
	require.NoError(t, pool.QueryRow(context.Background(), "SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestLoader_Integration(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	loader := core.NewLoader(core.PoolConnector{Pool: pool}, core.LoaderConfig{AuditModule: "IT"})

	dir := writeFiles(t, map[string]string{
		"p_categories.csv": "category_id,name\n1,Tools\n",
		"p_products.csv": "product_id,name,category_id,unit,vat_rate,active\n" +
			"10,Hammer,1,pcs,0.23,\n" +
			"11,Ghost,999,pcs,0.23,Y\n",
		"p_suppliers.csv":  "supplier_id,name,nip,phone,email,active\n5,Acme,,,,y\n",
		"p_warehouses.csv": "\xEF\xBB\xBFwarehouse_id,name,city\n7,Main,Gdansk\n",
		"p_product_batches.csv": "batch_id,product_id,supplier_id,warehouse_id,batch_code,received_date,expire_date,buy_price,qty_received\n" +
			"100,10,5,7,B-1,2024-01-15,,12.50,40\n" +
			"100,10,5,7,B-2,2024-01-16,,1.00,1\n" +
			"101,10,5,7,B-3,2024-01-17,,1.00,1\n",
	})

	t.Run("categories then products", func(t *testing.T) {
		res, err := loader.LoadFile(ctx, filepath.Join(dir, "p_categories.csv"), core.KindCategory)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Good)

		res, err = loader.LoadFile(ctx, filepath.Join(dir, "p_products.csv"), core.KindProduct)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Good)
		assert.Equal(t, 1, res.Bad)

		var active string
		require.NoError(t, pool.QueryRow(ctx, "SELECT active FROM p_products WHERE product_id = 10").Scan(&active))
		assert.Equal(t, "Y", active)
	})

	t.Run("invalid row is audited", func(t *testing.T) {
		entries, err := loader.Audit().Recent(ctx, pool, 10)
		require.NoError(t, err)

		var found bool
		for _, e := range entries {
			if e.Action == string(core.ActionRowInvalid) && strings.Contains(e.Details, "category_id does not exist in p_categories") {
				found = true
				assert.Equal(t, "IT", e.Module)
			}
		}
		assert.True(t, found, "ROW_INVALID record for the unknown category")
	})

	t.Run("duplicate key aborts and keeps earlier rows", func(t *testing.T) {
		_, err := loader.LoadFile(ctx, filepath.Join(dir, "p_suppliers.csv"), core.KindSupplier)
		require.NoError(t, err)
		_, err = loader.LoadFile(ctx, filepath.Join(dir, "p_warehouses.csv"), core.KindWarehouse)
		require.NoError(t, err)

		res, err := loader.LoadFile(ctx, filepath.Join(dir, "p_product_batches.csv"), core.KindBatch)
		var insertErr *core.InsertError
		require.True(t, errors.As(err, &insertErr), "want *InsertError, got %v", err)
		assert.Equal(t, 2, insertErr.Row)
		assert.Equal(t, "DB001", core.MapDBError(err).Code)
		assert.Equal(t, 1, res.Good)

		assert.Equal(t, 1, countRows(t, pool, "p_product_batches"))

		entries, err := loader.Audit().Recent(ctx, pool, 1)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, string(core.ActionDBError), entries[0].Action)
		assert.Contains(t, entries[0].Details, "P_PRODUCT_BATCHES row=2")
	})
}

func TestRunner_Integration(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	loader := core.NewLoader(core.PoolConnector{Pool: pool}, core.LoaderConfig{})

	dir := writeFiles(t, map[string]string{
		"p_categories.csv": "category_id,name\n1,Tools\n2,Garden\n",
		"p_products.csv":   "product_id,name,category_id,unit\n10,Hammer,1,pcs\n11,Rake,2,pcs\n",
	})

	cycle, err := core.NewRunner(loader, dir, nil).RunOnce(ctx)
	require.NoError(t, err)

	good, bad := cycle.Totals()
	assert.Equal(t, 4, good)
	assert.Equal(t, 0, bad)
	assert.Equal(t, 2, countRows(t, pool, "p_products"))

	var ends int
	require.NoError(t, pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM audit_log WHERE action = 'END_FILE' AND module = $1",
		core.DefaultAuditModule).Scan(&ends))
	assert.Equal(t, 2, ends)
}
