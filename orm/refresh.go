package orm

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/fieldsync/ormgen/internal/naming"
)

// fieldRef is a resolved field name: the column that stores it and, for
// belongs_to relations, the relation that must be reloaded with it.
type fieldRef struct {
	column   string
	relation string
}

// Refresh reloads fields of t from the row identified by t's primary key.
//
// With no fields, every column is reloaded, every registered belongs_to
// relation is reloaded and all deferred columns become loaded. With fields,
// only those are reloaded; other fields keep their in-memory values.
//
// A field may be given as a column ("related_id"), a Go field name
// ("RelatedID") or a relation name ("Related" or "related"). A relation and
// its foreign key are interchangeable: both reload the key column and then
// the related value. Unknown names fail with ErrInvalidField before any
// query runs. On any error, including ErrNotFound for a row that no longer
// exists or a failing relation preloader, t is left untouched.
func (q *Query[T]) Refresh(ctx context.Context, t *T, fields ...string) error {
	if t == nil {
		return errors.New("orm: Refresh requires a non-nil value")
	}

	columns, relations, err := q.refreshTargets(fields)
	if err != nil {
		return err
	}

	pkVal, err := q.pkValue(t)
	if err != nil {
		return err
	}

	v, err := q.reload(ctx, t, pkVal, columns)
	if err != nil {
		return err
	}

	if st := stateOf(&v); st != nil {
		if len(fields) == 0 {
			st.reset()
		} else {
			st.markLoaded(columns)
		}
	}

	if len(relations) > 0 {
		items := []T{v}
		for _, rel := range relations {
			fn, ok := q.preloaders[rel]
			if !ok {
				continue
			}
			if err := fn(ctx, q.db, items); err != nil {
				return err
			}
		}
		v = items[0]
	}

	*t = v
	return nil
}

// LoadDeferred loads the named fields of t if they are deferred, or every
// deferred field when none are named, using a single Refresh. It runs no
// query when nothing requested is deferred or when T does not embed State.
func (q *Query[T]) LoadDeferred(ctx context.Context, t *T, fields ...string) error {
	if t == nil {
		return errors.New("orm: LoadDeferred requires a non-nil value")
	}
	st := stateOf(t)
	if st == nil {
		return nil
	}

	var columns []string
	if len(fields) == 0 {
		columns = st.Deferred()
	} else {
		for _, f := range fields {
			ref, err := q.resolveField(f)
			if err != nil {
				return err
			}
			if st.IsDeferred(ref.column) && !slices.Contains(columns, ref.column) {
				columns = append(columns, ref.column)
			}
		}
	}
	if len(columns) == 0 {
		return nil
	}
	return q.Refresh(ctx, t, columns...)
}

// refreshTargets resolves fields to the columns to SELECT and the
// relations to reload afterwards.
func (q *Query[T]) refreshTargets(fields []string) ([]string, []string, error) {
	if len(fields) == 0 {
		return q.columns, slices.Sorted(maps.Keys(q.foreignKeys)), nil
	}

	var columns, relations []string
	for _, f := range fields {
		ref, err := q.resolveField(f)
		if err != nil {
			return nil, nil, err
		}
		if !slices.Contains(columns, ref.column) {
			columns = append(columns, ref.column)
		}
		if ref.relation != "" && !slices.Contains(relations, ref.relation) {
			relations = append(relations, ref.relation)
		}
	}
	return columns, relations, nil
}

// resolveField maps a column, Go field or relation name to its column.
func (q *Query[T]) resolveField(name string) (fieldRef, error) {
	snake := naming.CamelToSnake(name)
	for _, candidate := range []string{name, snake} {
		if slices.Contains(q.columns, candidate) {
			return fieldRef{column: candidate, relation: q.relationFor(candidate)}, nil
		}
	}
	for rel, col := range q.foreignKeys {
		if name == rel || snake == naming.CamelToSnake(rel) {
			return fieldRef{column: col, relation: rel}, nil
		}
	}
	return fieldRef{}, fmt.Errorf("%w: %s has no field %q", ErrInvalidField, q.table, name)
}

func (q *Query[T]) resolveColumns(fields []string) (map[string]bool, error) {
	cols := make(map[string]bool, len(fields))
	for _, f := range fields {
		ref, err := q.resolveField(f)
		if err != nil {
			return nil, err
		}
		cols[ref.column] = true
	}
	return cols, nil
}

func (q *Query[T]) relationFor(column string) string {
	for rel, col := range q.foreignKeys {
		if col == column {
			return rel
		}
	}
	return ""
}

func (q *Query[T]) pkValue(t *T) (any, error) {
	cols, vals := q.colValPairs(t, true)
	for i, col := range cols {
		if col == q.pk {
			return vals[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s has no column %q", ErrMissingPrimaryKey, q.table, q.pk)
}

// reload selects columns of the row whose primary key is pk and returns a
// copy of *t with those columns overwritten.
func (q *Query[T]) reload(ctx context.Context, t *T, pk any, columns []string) (T, error) {
	sel := q.quoteColumns(columns)
	q2 := q.base()
	q2.selects = &sel
	q2.wheres = []whereClause{{q.qi(q.pk) + " = ?", []any{pk}}}
	one := 1
	q2.limit = &one

	query, args := q2.buildSelect()
	query, args = q2.rewrite(query, args)

	var zero T
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return zero, err //nolint:wrapcheck // pass through
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return zero, err //nolint:wrapcheck // pass through
		}
		return zero, ErrNotFound
	}
	v := *t
	if err := q.scan(rows, &v); err != nil {
		return zero, err
	}
	if err := rows.Close(); err != nil {
		return zero, err //nolint:wrapcheck // pass through
	}
	return v, nil
}
