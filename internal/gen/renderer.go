package gen

import (
	"bytes"
	"errors"
	"fmt"
	"go/format"
	"strings"
	"unicode"

	"github.com/fieldsync/ormgen/internal/naming"
)

// RenderOption controls the output of RenderFile.
type RenderOption struct {
	DestPkg      string        // output package name (empty = same as source)
	SourceImport string        // import path for source package (required when DestPkg is set)
	PeerInfos    []*StructInfo // other structs in the same package (for join scan field lookups)
}

// Render generates the Go source code for a single StructInfo.
// The returned bytes are formatted by gofmt.
func Render(info *StructInfo) ([]byte, error) {
	return RenderFile([]*StructInfo{info}, RenderOption{})
}

// RenderFile generates a single Go source file for all given StructInfos.
// The returned bytes are formatted by gofmt.
func RenderFile(infos []*StructInfo, opt RenderOption) ([]byte, error) {
	if len(infos) == 0 {
		return nil, errors.New("no structs to render")
	}

	r := newRenderer(infos, opt)
	file := fileTemplateData{
		Package:      opt.DestPkg,
		SourceImport: opt.SourceImport,
	}
	if file.Package == "" {
		file.Package = infos[0].Package
	}
	for _, info := range infos {
		data, err := r.structData(info)
		if err != nil {
			return nil, err
		}
		file.HasRelations = file.HasRelations || len(data.Relations) > 0
		file.HasTimestamps = file.HasTimestamps || data.HasTimestamps
		file.Structs = append(file.Structs, data)
	}
	file.ExtraImports = r.imports.entries

	var buf bytes.Buffer
	if err := fileTmpl.Execute(&buf, file); err != nil {
		return nil, fmt.Errorf("execute template: %w", err)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("gofmt: %w", err)
	}
	return src, nil
}

// renderer carries the per-file state shared by every struct in the file.
type renderer struct {
	opt        RenderOption
	typePrefix string        // "model." when rendering into another package
	known      []*StructInfo // rendered structs plus peers
	imports    importSet
}

func newRenderer(infos []*StructInfo, opt RenderOption) *renderer {
	r := &renderer{opt: opt, known: append(append([]*StructInfo{}, infos...), opt.PeerInfos...)}
	if opt.SourceImport != "" {
		r.typePrefix = lastSegment(opt.SourceImport) + "."
	}
	return r
}

func (r *renderer) structData(info *StructInfo) (templateData, error) {
	pk, err := info.PrimaryKeyField()
	if err != nil {
		return templateData{}, err
	}
	factory := naming.SnakeToCamel(info.TableName)
	d := templateData{
		TypeName:         r.typePrefix + info.Name,
		TableName:        info.TableName,
		FactoryName:      factory,
		PK:               pk,
		Fields:           info.Fields,
		ScanFunc:         unexportedName("scan" + info.Name),
		ColValFunc:       unexportedName(info.Name + "ColumnValuePairs"),
		SetPKFunc:        unexportedName("set" + info.Name + "PK"),
		ColumnsVar:       unexportedName(factory + "Columns"),
		IsIntPK:          isIntType(pk.GoType),
		SetCreatedAtFunc: unexportedName("set" + info.Name + "CreatedAt"),
		SetUpdatedAtFunc: unexportedName("set" + info.Name + "UpdatedAt"),
	}
	for _, f := range info.Fields {
		if f.CreatedAt {
			d.CreatedAtFields = append(d.CreatedAtFields, f)
		}
		if f.UpdatedAt {
			d.UpdatedAtFields = append(d.UpdatedAtFields, f)
		}
	}
	d.HasTimestamps = len(d.CreatedAtFields) > 0 || len(d.UpdatedAtFields) > 0
	for _, rel := range info.Relations {
		d.Relations = append(d.Relations, r.relationData(info, pk, rel))
	}
	return d, nil
}

type fileTemplateData struct {
	Package       string
	SourceImport  string
	HasRelations  bool
	HasTimestamps bool
	ExtraImports  []importEntry
	Structs       []templateData
}

type templateData struct {
	TypeName         string
	TableName        string
	FactoryName      string
	PK               *FieldInfo
	Fields           []FieldInfo
	ScanFunc         string
	ColValFunc       string
	SetPKFunc        string
	ColumnsVar       string
	IsIntPK          bool
	Relations        []relationTemplateData
	SetCreatedAtFunc string
	SetUpdatedAtFunc string
	CreatedAtFields  []FieldInfo
	UpdatedAtFields  []FieldInfo
	HasTimestamps    bool
}

// NeedsBuilder reports whether the factory registers anything on the query
// beyond constructing it.
func (d templateData) NeedsBuilder() bool {
	return len(d.Relations) > 0 || d.HasTimestamps
}

// Columns renders the quoted column list, optionally without the pk.
func (d templateData) Columns(withPK bool) string {
	return d.fieldList(withPK, func(f FieldInfo) string { return `"` + f.Column + `"` })
}

// Values renders v.Field expressions matching Columns.
func (d templateData) Values(withPK bool) string {
	return d.fieldList(withPK, func(f FieldInfo) string { return "v." + f.Name })
}

func (d templateData) fieldList(withPK bool, item func(FieldInfo) string) string {
	parts := make([]string, 0, len(d.Fields))
	for _, f := range d.Fields {
		if f.PrimaryKey && !withPK {
			continue
		}
		parts = append(parts, item(f))
	}
	return strings.Join(parts, ", ")
}

// CreatedAtColumns renders the quoted insert-stamped columns.
func (d templateData) CreatedAtColumns() string {
	cols := make([]string, len(d.CreatedAtFields))
	for i, f := range d.CreatedAtFields {
		cols[i] = `"` + f.Column + `"`
	}
	return strings.Join(cols, ", ")
}

// scanCase maps one result column to the address it is scanned into.
type scanCase struct {
	Column string
	Dest   string
}

// ScanCases lists the switch arms of the scan function: own columns first,
// then the prefixed columns of joined relations.
func (d templateData) ScanCases() []scanCase {
	cases := make([]scanCase, 0, len(d.Fields))
	for _, f := range d.Fields {
		cases = append(cases, scanCase{Column: f.Column, Dest: "&v." + f.Name})
	}
	for _, rel := range d.Relations {
		for _, f := range rel.JoinScanFields {
			c := scanCase{Column: rel.FieldName + "__" + f.Column}
			switch {
			case rel.IsPointer && f.PrimaryKey:
				c.Dest = "&" + rel.JoinVar() + "PK"
			case rel.IsPointer:
				c.Dest = "&" + rel.JoinVar() + "." + f.Name
			default:
				c.Dest = "&v." + rel.FieldName + "." + f.Name
			}
			cases = append(cases, c)
		}
	}
	return cases
}

// PointerJoins returns the pointer relations scanned through a nullable pk,
// which need a temporary value before being attached.
func (d templateData) PointerJoins() []relationTemplateData {
	var out []relationTemplateData
	for _, rel := range d.Relations {
		if rel.IsPointer && len(rel.JoinScanFields) > 0 {
			out = append(out, rel)
		}
	}
	return out
}

func lastSegment(importPath string) string {
	return importPath[strings.LastIndex(importPath, "/")+1:]
}

// replaceLastSegment swaps the final element of an import path:
// "github.com/foo/model" with "query" gives "github.com/foo/query".
func replaceLastSegment(importPath, seg string) string {
	i := strings.LastIndex(importPath, "/")
	if i < 0 {
		return seg
	}
	return importPath[:i+1] + seg
}

func unexportedName(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}

func isIntType(goType string) bool {
	switch goType {
	case "int", "int8", "int16", "int32", "int64",
		"uint", "uint8", "uint16", "uint32", "uint64":
		return true
	default:
		return false
	}
}
