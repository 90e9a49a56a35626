package testdata

import "github.com/fieldsync/ormgen/orm"

type Secondary struct {
	ID   int    `db:"id,primaryKey"`
	Name string `db:"name"`
}

type Primary struct {
	orm.State

	ID        int        `db:"id,primaryKey"`
	Name      string     `db:"name"`
	Value     int        `db:"value"`
	RelatedID *int       `db:"related_id"`
	Related   *Secondary `rel:"belongs_to,foreign_key:related_id"`
}
