// Package refresh holds the models and database setup used to exercise
// Query.Refresh and deferred loading against every supported dialect.
package refresh

import "github.com/fieldsync/ormgen/orm"

//go:generate go run github.com/fieldsync/ormgen --source=$GOFILE

type Secondary struct {
	ID   int    `db:"id,primaryKey"`
	Name string `db:"name"`
}

// Primary references exactly one Secondary through related_id.
type Primary struct {
	orm.State

	ID        int        `db:"id,primaryKey"`
	Name      string     `db:"name"`
	Value     string     `db:"value"`
	RelatedID int        `db:"related_id"`
	Related   *Secondary `rel:"belongs_to,foreign_key:related_id"`
}
