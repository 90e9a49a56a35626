package invalid

type Comment struct {
	ID     int
	PostID int
	Post   *Post `rel:"belongs_to"`
}

type Post struct {
	ID int
}
