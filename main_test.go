package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const modelSource = `package model

type Secondary struct {
	ID   int    ` + "`db:\"id,primaryKey\"`" + `
	Name string ` + "`db:\"name\"`" + `
}

type Primary struct {
	ID        int        ` + "`db:\"id,primaryKey\"`" + `
	Name      string     ` + "`db:\"name\"`" + `
	RelatedID *int       ` + "`db:\"related_id\"`" + `
	Related   *Secondary ` + "`rel:\"belongs_to,foreign_key:related_id\"`" + `
}
`

func writeModule(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/app\n"), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "model"), 0o755))
	src := filepath.Join(root, "model", "models.go")
	require.NoError(t, os.WriteFile(src, []byte(modelSource), 0o600))
	return src
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	t.Parallel()

	out, err := run(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, "ormgen dev\n", out)
}

func TestGenerateAllTypes(t *testing.T) {
	t.Parallel()

	src := writeModule(t)
	out, err := run(t, "--source", src)
	require.NoError(t, err)

	want := filepath.Join(filepath.Dir(src), "models_gen.go")
	assert.Contains(t, out, want)

	code, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.Contains(t, string(code), "package model")
	assert.Contains(t, string(code), "func Secondaries(db orm.Querier) *orm.Query[Secondary]")
	assert.Contains(t, string(code), "func Primaries(db orm.Querier) *orm.Query[Primary]")
}

func TestGenerateSingleTypeWithTable(t *testing.T) {
	t.Parallel()

	src := writeModule(t)
	_, err := run(t, "--source", src, "--type", "Primary", "--table", "fixture_primary")
	require.NoError(t, err)

	code, err := os.ReadFile(filepath.Join(filepath.Dir(src), "primary_gen.go"))
	require.NoError(t, err)
	assert.Contains(t, string(code), `orm.ResolveTableName[Primary]("fixture_primary")`)
	// The peer struct is only used for join scanning.
	assert.NotContains(t, string(code), "func Secondaries(")
	assert.Contains(t, string(code), `case "Related__name":`)
}

func TestGenerateDestination(t *testing.T) {
	t.Parallel()

	src := writeModule(t)
	dest := filepath.Join(filepath.Dir(filepath.Dir(src)), "query")
	_, err := run(t, "--source", src, "--destination", dest)
	require.NoError(t, err)

	code, err := os.ReadFile(filepath.Join(dest, "models_gen.go"))
	require.NoError(t, err)
	assert.Contains(t, string(code), "package query")
	assert.Contains(t, string(code), `"example.com/app/model"`)
	assert.Contains(t, string(code), "*orm.Query[model.Primary]")
}

func TestGenerateErrors(t *testing.T) {
	t.Parallel()

	src := writeModule(t)
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing source", []string{"--source", ""}, "--source is required"},
		{"table without type", []string{"--source", src, "--table", "x"}, "--table requires --type"},
		{"unknown type", []string{"--source", src, "--type", "Nope"}, "type Nope not found"},
		{"unreadable source", []string{"--source", filepath.Join(t.TempDir(), "missing.go")}, "parse:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := run(t, tt.args...)
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.want), "error %q should contain %q", err, tt.want)
		})
	}
}
