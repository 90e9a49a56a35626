package refresh_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldsync/ormgen/internal/refresh"
	"github.com/fieldsync/ormgen/orm"
)

func TestOpenSQLiteMigrates(t *testing.T) {
	t.Parallel()

	db := openSQLite(t)
	ctx := t.Context()

	n, err := refresh.Primaries(db).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	// applying the schema twice is a no-op
	require.NoError(t, refresh.Migrate(ctx, db.Raw(), orm.SQLite))
}

func TestForeignKeyEnforced(t *testing.T) {
	t.Parallel()

	db := openSQLite(t)
	err := refresh.Primaries(db).Create(t.Context(), &refresh.Primary{Name: "p", Value: "v", RelatedID: 42})
	require.Error(t, err)
}

func TestMigrateUnsupportedDialect(t *testing.T) {
	t.Parallel()

	db := openSQLite(t)
	err := refresh.Migrate(t.Context(), db.Raw(), nil)
	require.Error(t, err)
}
