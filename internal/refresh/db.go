package refresh

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/fieldsync/ormgen/orm"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrate applies the fixture schema for d to db.
func Migrate(ctx context.Context, db *sql.DB, d orm.Dialect) error {
	dialect, dir, err := gooseDialect(d)
	if err != nil {
		return err
	}
	sub, err := fs.Sub(migrationsFS, "migrations/"+dir)
	if err != nil {
		return fmt.Errorf("migrations for %s: %w", dir, err)
	}
	provider, err := goose.NewProvider(dialect, db, sub)
	if err != nil {
		return fmt.Errorf("creating migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

func gooseDialect(d orm.Dialect) (goose.Dialect, string, error) {
	switch d {
	case orm.SQLite:
		return goose.DialectSQLite3, "sqlite", nil
	case orm.PostgreSQL:
		return goose.DialectPostgres, "postgres", nil
	case orm.MySQL:
		return goose.DialectMySQL, "mysql", nil
	default:
		return "", "", fmt.Errorf("unsupported dialect %T", d)
	}
}

// Open connects to an existing database with driverName and applies the
// fixture schema.
func Open(ctx context.Context, driverName, dsn string, d orm.Dialect) (*orm.DB, error) {
	sqlDB, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	if err := Migrate(ctx, sqlDB, d); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return orm.New(sqlDB, d), nil
}

// OpenSQLite opens a SQLite database at dsn (":memory:" for a private
// in-memory one) and applies the fixture schema.
func OpenSQLite(ctx context.Context, dsn string) (*orm.DB, error) {
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// an in-memory database lives only as long as its one connection
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if _, err := sqlDB.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if err := Migrate(ctx, sqlDB, orm.SQLite); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return orm.New(sqlDB, orm.SQLite), nil
}
