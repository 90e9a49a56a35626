package testdata

type Writer struct {
	ID      int64
	Name    string
	Labels  []Label  `rel:"many_to_many,foreign_key:writer_id,join_table:writer_labels,references:label_code"`
	Profile *Profile `rel:"has_one,foreign_key:writer_id"`
}

type Label struct {
	Code  string `db:"code,primaryKey"`
	Title string
}

type Profile struct {
	ID       int
	WriterID int64
	Bio      string
}
