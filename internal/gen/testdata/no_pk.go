package testdata

type NoPK struct {
	Name  string `db:"name"`
	Value string `db:"value"`
}
