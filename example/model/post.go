package model

import "github.com/fieldsync/ormgen/orm"

//go:generate go tool ormgen --source=$GOFILE --destination=../query

// Post embeds orm.State so that bodies can be deferred when listing.
type Post struct {
	orm.State

	ID     int
	UserID int
	Title  string
	Body   string
	User   *User `rel:"belongs_to,foreign_key:user_id"`
}
