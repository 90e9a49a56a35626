package gen

import (
	"strings"
	"text/template"
)

var fileTmpl = template.Must(template.New("file").
	Funcs(template.FuncMap{"hasPrefix": strings.HasPrefix}).
	Parse(fileTemplate + queryTemplates + preloadTemplates))

const fileTemplate = `// Code generated by ormgen; DO NOT EDIT.
package {{.Package}}

import (
	{{- if .HasRelations}}
	"context"
	{{- end}}
	"database/sql"
	{{- if .HasTimestamps}}
	"time"
	{{- end}}

	"github.com/fieldsync/ormgen/orm"
	{{- if .HasRelations}}
	"github.com/fieldsync/ormgen/scope"
	{{- end}}
	{{- with .SourceImport}}
	"{{.}}"
	{{- end}}
	{{- range .ExtraImports}}
	{{.Alias}} "{{.Path}}"
	{{- end}}
)
{{range .Structs}}
{{- template "factory" .}}
{{- template "scan" .}}
{{- template "values" .}}
{{- template "timestamps" .}}
{{- range .Relations}}
{{- template "preload" .}}
{{- end}}
{{end}}`

const queryTemplates = `
{{- define "newQuery"}}orm.NewQuery[{{.TypeName}}](
		db, orm.ResolveTableName[{{.TypeName}}]("{{.TableName}}"), {{.ColumnsVar}}, "{{.PK.Column}}",
		{{.ScanFunc}}, {{.ColValFunc}}, {{if .IsIntPK}}{{.SetPKFunc}}{{else}}nil{{end}},
	){{end}}

{{- define "factory"}}
// {{.FactoryName}} returns a new Query for the {{.TableName}} table.
func {{.FactoryName}}(db orm.Querier) *orm.Query[{{.TypeName}}] {
	{{- if not .NeedsBuilder}}
	return {{template "newQuery" .}}
}
	{{- else}}
	q := {{template "newQuery" .}}
	{{- range .Relations}}
	{{- if .JoinTargetTable}}
	q.RegisterJoin("{{.FieldName}}", orm.JoinConfig{
		TargetTable: orm.ResolveTableName[{{.TargetType}}]("{{.JoinTargetTable}}"), TargetColumn: "{{.JoinTargetColumn}}",
		SourceTable: orm.ResolveTableName[{{.ParentType}}]("{{.JoinSourceTable}}"), SourceColumn: "{{.JoinSourceColumn}}",
		{{- with .SelectColumns}}
		SelectColumns: []string{ {{- .}}},
		{{- end}}
	})
	{{- end}}
	q.RegisterPreloader("{{.FieldName}}", {{.PreloaderName}})
	{{- if eq .RelType "belongs_to"}}
	q.RegisterForeignKey("{{.FieldName}}", "{{.ForeignKey}}")
	{{- end}}
	{{- end}}
	{{- if .HasTimestamps}}
	q.RegisterTimestamps(
		{{with .CreatedAtColumns}}[]string{ {{- .}}}{{else}}nil{{end}},
		{{if .CreatedAtFields}}{{.SetCreatedAtFunc}}{{else}}nil{{end}},
		{{if .UpdatedAtFields}}{{.SetUpdatedAtFunc}}{{else}}nil{{end}},
	)
	{{- end}}
	return q
}
	{{- end}}

var {{.ColumnsVar}} = []string{ {{- .Columns true}}}
{{end}}

{{- define "scan"}}
func {{.ScanFunc}}(rows *sql.Rows, v *{{.TypeName}}) error {
	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	{{- range .PointerJoins}}
	var {{.JoinVar}}PK {{.JoinNullType}}
	var {{.JoinVar}} {{.TargetType}}
	{{- end}}
	dest := make([]any, len(cols))
	for i, col := range cols {
		switch col {
		{{- range .ScanCases}}
		case "{{.Column}}":
			dest[i] = {{.Dest}}
		{{- end}}
		default:
			dest[i] = new(any)
		}
	}
	if err := rows.Scan(dest...); err != nil {
		return err
	}
	{{- range .PointerJoins}}
	if {{.JoinVar}}PK.Valid {
		{{.JoinVar}}.{{.TargetPKName}} = {{.TargetKeyType}}({{.JoinVar}}PK{{.JoinNullField}})
		v.{{.FieldName}} = &{{.JoinVar}}
	}
	{{- end}}
	return nil
}
{{end}}

{{- define "values"}}
func {{.ColValFunc}}(v *{{.TypeName}}, includesPK bool) ([]string, []any) {
	if includesPK {
		return []string{ {{- .Columns true}}},
			[]any{ {{- .Values true}}}
	}
	return []string{ {{- .Columns false}}},
		[]any{ {{- .Values false}}}
}
{{- if .IsIntPK}}

func {{.SetPKFunc}}(v *{{.TypeName}}, id int64) {
	v.{{.PK.Name}} = {{.PK.GoType}}(id)
}
{{- end}}
{{end}}

{{- define "timestamps"}}
{{- with .CreatedAtFields}}
func {{$.SetCreatedAtFunc}}(v *{{$.TypeName}}, now time.Time) {
	{{- range .}}
	{{- if hasPrefix .GoType "*"}}
	if v.{{.Name}} == nil {
		v.{{.Name}} = &now
	}
	{{- else}}
	if v.{{.Name}}.IsZero() {
		v.{{.Name}} = now
	}
	{{- end}}
	{{- end}}
}
{{end}}
{{- with .UpdatedAtFields}}
func {{$.SetUpdatedAtFunc}}(v *{{$.TypeName}}, now time.Time) {
	{{- range .}}
	v.{{.Name}} = {{if hasPrefix .GoType "*"}}&{{end}}now
	{{- end}}
}
{{end}}
{{- end}}
`

// Preloaders delegate to the generic helpers in package orm. The template
// only supplies typed accessors and the query that loads the targets.
const preloadTemplates = `
{{- define "preload"}}
func {{.PreloaderName}}(ctx context.Context, db orm.Querier, results []{{.ParentType}}) error {
	{{- if eq .RelType "has_many"}}
	return orm.PreloadMany[{{.ParentType}}, {{.TargetType}}, {{.KeyType}}](ctx, results,
		func(p *{{.ParentType}}) {{.KeyType}} { return p.{{.ParentPKField}} },
		{{template "load" .}},
		func(r *{{.TargetType}}) {{.KeyType}} { return r.{{.ForeignKeyField}} },
		func(p *{{.ParentType}}, rs []{{.TargetType}}) { p.{{.FieldName}} = rs },
	)
	{{- else if eq .RelType "many_to_many"}}
	return orm.PreloadManyToMany[{{.ParentType}}, {{.TargetType}}, {{.KeyType}}, {{.TargetKeyType}}](ctx, db, results,
		orm.JoinTable{Name: "{{.JoinTable}}", SourceColumn: "{{.ForeignKey}}", TargetColumn: "{{.References}}"},
		func(p *{{.ParentType}}) {{.KeyType}} { return p.{{.ParentPKField}} },
		{{template "load" .}},
		func(r *{{.TargetType}}) {{.TargetKeyType}} { return r.{{.TargetPKName}} },
		func(p *{{.ParentType}}, rs []{{.TargetType}}) { p.{{.FieldName}} = rs },
	)
	{{- else}}
	return orm.PreloadOne[{{.ParentType}}, {{.TargetType}}, {{.KeyType}}](ctx, results,
		{{template "parentKey" .}},
		{{template "load" .}},
		func(r *{{.TargetType}}) {{.KeyType}} { return r.{{.RelatedKeyField}} },
		{{template "assignOne" .}},
	)
	{{- end}}
}
{{end}}

{{- define "load"}}func(ctx context.Context, keys []{{.LoadKeyType}}) ([]{{.TargetType}}, error) {
			return {{.TargetFactory}}(db).Scopes(scope.In("{{.LoadColumn}}", keys)).All(ctx)
		}{{end}}

{{- define "parentKey"}}func(p *{{.ParentType}}) ({{.KeyType}}, bool) {
		{{- if ne .RelType "belongs_to"}}
			return p.{{.ParentPKField}}, true
		{{- else if .FKIsPointer}}
			if p.{{.ForeignKeyField}} == nil {
				var none {{.KeyType}}
				return none, false
			}
			return *p.{{.ForeignKeyField}}, true
		{{- else}}
			return p.{{.ForeignKeyField}}, true
		{{- end}}
		}{{end}}

{{- define "assignOne"}}func(p *{{.ParentType}}, r *{{.TargetType}}) {
		{{- if .IsPointer}}
			p.{{.FieldName}} = r
		{{- else}}
			if r == nil {
				p.{{.FieldName}} = {{.TargetType}}{}
				return
			}
			p.{{.FieldName}} = *r
		{{- end}}
		}{{end}}
`
