package orm

import (
	"maps"
	"slices"
)

// State tracks which columns of a loaded model value are deferred, i.e.
// were left out of the SELECT by Only or Defer and still hold zero values.
// Models opt in by embedding it:
//
//	type Primary struct {
//		orm.State
//		ID   int
//		Name string
//	}
//
// The zero State means "fully loaded". The underlying set is replaced on
// every change, never mutated, so copies of a model value never affect
// each other.
type State struct {
	deferred map[string]struct{}
}

// ORMState returns s. It is promoted to models embedding State.
func (s *State) ORMState() *State { return s }

// Deferred returns the deferred column names in sorted order.
func (s *State) Deferred() []string {
	return slices.Sorted(maps.Keys(s.deferred))
}

// IsDeferred reports whether column has not been loaded yet.
func (s *State) IsDeferred(column string) bool {
	_, ok := s.deferred[column]
	return ok
}

// Loaded reports whether no column is deferred.
func (s *State) Loaded() bool { return len(s.deferred) == 0 }

func (s *State) deferColumns(columns []string) {
	next := make(map[string]struct{}, len(s.deferred)+len(columns))
	maps.Copy(next, s.deferred)
	for _, c := range columns {
		next[c] = struct{}{}
	}
	s.deferred = next
}

func (s *State) markLoaded(columns []string) {
	if len(s.deferred) == 0 {
		return
	}
	next := maps.Clone(s.deferred)
	for _, c := range columns {
		delete(next, c)
	}
	if len(next) == 0 {
		next = nil
	}
	s.deferred = next
}

func (s *State) reset() { s.deferred = nil }

type stateful interface {
	ORMState() *State
}

// stateOf returns the State embedded in *T, or nil when T does not track
// deferred columns.
func stateOf[T any](t *T) *State {
	if s, ok := any(t).(stateful); ok {
		return s.ORMState()
	}
	return nil
}
