package orm

import (
	"context"
	"fmt"
)

// LoadFunc fetches the related rows whose key column holds one of keys.
// Generated preloaders pass a closure over the target's query factory.
type LoadFunc[C any, K comparable] func(ctx context.Context, keys []K) ([]C, error)

// PreloadOne fills a single-valued relation (belongs_to or has_one) on every
// parent. key returns the value to look up for a parent, or false when the
// parent has nothing to look up, such as a nil foreign key. relatedKey returns
// the matching value on a loaded row. assign receives nil for parents whose
// row was not found.
func PreloadOne[P, C any, K comparable](
	ctx context.Context,
	parents []P,
	key func(*P) (K, bool),
	load LoadFunc[C, K],
	relatedKey func(*C) K,
	assign func(*P, *C),
) error {
	if len(parents) == 0 {
		return nil
	}
	keys := collectKeys(parents, key)
	byKey := make(map[K]*C, len(keys))
	if len(keys) > 0 {
		related, err := load(ctx, keys)
		if err != nil {
			return err
		}
		for i := range related {
			byKey[relatedKey(&related[i])] = &related[i]
		}
	}
	for i := range parents {
		k, ok := key(&parents[i])
		if !ok {
			assign(&parents[i], nil)
			continue
		}
		assign(&parents[i], byKey[k])
	}
	return nil
}

// PreloadMany fills a has_many relation. Every loaded row is grouped under
// its foreign key, and each parent receives the group matching its own key,
// in load order. Parents without rows receive nil.
func PreloadMany[P, C any, K comparable](
	ctx context.Context,
	parents []P,
	key func(*P) K,
	load LoadFunc[C, K],
	foreignKey func(*C) K,
	assign func(*P, []C),
) error {
	if len(parents) == 0 {
		return nil
	}
	keys := collectKeys(parents, func(p *P) (K, bool) { return key(p), true })
	related, err := load(ctx, keys)
	if err != nil {
		return err
	}
	groups := make(map[K][]C)
	for _, r := range related {
		fk := foreignKey(&r)
		groups[fk] = append(groups[fk], r)
	}
	for i := range parents {
		assign(&parents[i], groups[key(&parents[i])])
	}
	return nil
}

// JoinTable names the table linking both sides of a many_to_many relation.
type JoinTable struct {
	Name         string // "user_tags"
	SourceColumn string // column holding the parent key, "user_id"
	TargetColumn string // column holding the target key, "tag_id"
}

// PreloadManyToMany fills a many_to_many relation through jt. It reads the
// link rows for all parents, loads each distinct target once and hands every
// parent its targets in link order. Links to missing targets are skipped.
func PreloadManyToMany[P, C any, K, TK comparable](
	ctx context.Context,
	db Querier,
	parents []P,
	jt JoinTable,
	key func(*P) K,
	load LoadFunc[C, TK],
	targetKey func(*C) TK,
	assign func(*P, []C),
) error {
	if len(parents) == 0 {
		return nil
	}
	keys := collectKeys(parents, func(p *P) (K, bool) { return key(p), true })
	links, err := QueryJoinTable[K, TK](ctx, db, jt.Name, jt.SourceColumn, jt.TargetColumn, keys)
	if err != nil {
		return err
	}

	targets := make(map[TK]C)
	if ids := UniqueTargets(links); len(ids) > 0 {
		related, err := load(ctx, ids)
		if err != nil {
			return err
		}
		for _, r := range related {
			targets[targetKey(&r)] = r
		}
	}

	bySource := GroupBySource(links)
	for i := range parents {
		var items []C
		for _, id := range bySource[key(&parents[i])] {
			if r, ok := targets[id]; ok {
				items = append(items, r)
			}
		}
		assign(&parents[i], items)
	}
	return nil
}

// JoinPair is one link row of a join table.
type JoinPair[S, T comparable] struct {
	Source S
	Target T
}

// QueryJoinTable reads the link rows of table whose sourceCol is in sources.
func QueryJoinTable[S, T comparable](
	ctx context.Context, db Querier, table, sourceCol, targetCol string, sources []S,
) ([]JoinPair[S, T], error) {
	if len(sources) == 0 {
		return nil, nil
	}
	d := db.dialect()
	args := make([]any, len(sources))
	for i, s := range sources {
		args[i] = s
	}
	query := rewritePlaceholders(d, fmt.Sprintf(
		"SELECT %s, %s FROM %s WHERE %s IN (%s)",
		d.QuoteIdent(sourceCol), d.QuoteIdent(targetCol), d.QuoteIdent(table), d.QuoteIdent(sourceCol),
		repeatJoin("?", len(sources)),
	))

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("orm: read join table %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var links []JoinPair[S, T]
	for rows.Next() {
		var l JoinPair[S, T]
		if err := rows.Scan(&l.Source, &l.Target); err != nil {
			return nil, fmt.Errorf("orm: scan join table %s: %w", table, err)
		}
		links = append(links, l)
	}
	return links, rows.Err() //nolint:wrapcheck // pass through
}

// UniqueTargets returns the distinct targets of links in first-seen order.
func UniqueTargets[S, T comparable](links []JoinPair[S, T]) []T {
	return collectKeys(links, func(l *JoinPair[S, T]) (T, bool) { return l.Target, true })
}

// GroupBySource maps each source to its targets in link order.
func GroupBySource[S, T comparable](links []JoinPair[S, T]) map[S][]T {
	m := make(map[S][]T)
	for _, l := range links {
		m[l.Source] = append(m[l.Source], l.Target)
	}
	return m
}

// collectKeys returns the distinct keys of items in first-seen order.
func collectKeys[E any, K comparable](items []E, key func(*E) (K, bool)) []K {
	seen := make(map[K]struct{}, len(items))
	keys := make([]K, 0, len(items))
	for i := range items {
		k, ok := key(&items[i])
		if !ok {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}
