package invalid

type Tag struct {
	ID    int
	Posts []Post `rel:"belongs_to_many,foreign_key:tag_id"`
}
