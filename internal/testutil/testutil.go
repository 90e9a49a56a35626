// Package testutil holds helpers shared by database-backed tests.
package testutil

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/fieldsync/ormgen/orm"
)

// Tx begins a transaction on db and rolls it back when the test finishes,
// so every row the test writes disappears afterwards.
func Tx(t testing.TB, db *orm.DB) *orm.Tx {
	t.Helper()

	tx, err := db.Begin(t.Context())
	if err != nil {
		t.Fatalf("begin transaction: %v", err)
	}
	t.Cleanup(func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Errorf("rollback: %v", err)
		}
	})
	return tx
}

// QueryLog is an orm.Logger that records every statement it sees.
type QueryLog struct {
	mu      sync.Mutex
	queries []string
}

var _ orm.Logger = (*QueryLog)(nil)

func (l *QueryLog) Log(_ context.Context, query string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.queries = append(l.queries, query)
}

// Len returns the number of statements recorded so far.
func (l *QueryLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queries)
}

// Queries returns a copy of the recorded statements.
func (l *QueryLog) Queries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.queries)
}

// Since returns the statements recorded after the first n.
func (l *QueryLog) Since(n int) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n >= len(l.queries) {
		return nil
	}
	return slices.Clone(l.queries[n:])
}
