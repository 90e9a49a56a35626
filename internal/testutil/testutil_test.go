package testutil_test

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/fieldsync/ormgen/internal/testutil"
	"github.com/fieldsync/ormgen/orm"
)

func TestQueryLog(t *testing.T) {
	t.Parallel()

	var log testutil.QueryLog
	log.Log(t.Context(), "SELECT 1")
	log.Log(t.Context(), "SELECT 2", 1, 2)

	assert.Equal(t, 2, log.Len())
	assert.Equal(t, []string{"SELECT 1", "SELECT 2"}, log.Queries())
	assert.Equal(t, []string{"SELECT 2"}, log.Since(1))
	assert.Nil(t, log.Since(2))
}

func TestTxRollsBack(t *testing.T) {
	t.Parallel()

	sqlDB, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	_, err = sqlDB.Exec("CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT)")
	require.NoError(t, err)
	db := orm.New(sqlDB, orm.SQLite)

	t.Run("insert", func(t *testing.T) {
		tx := testutil.Tx(t, db)
		_, err := tx.ExecContext(t.Context(), "INSERT INTO items (name) VALUES (?)", "a")
		require.NoError(t, err)
	})

	var n int
	require.NoError(t, sqlDB.QueryRow("SELECT COUNT(*) FROM items").Scan(&n))
	assert.Zero(t, n)
}
