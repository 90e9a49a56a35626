package gen

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"path"
	"reflect"
	"strconv"
	"strings"

	"github.com/jinzhu/inflection"

	"github.com/fieldsync/ormgen/internal/naming"
)

// Relation types accepted in the `rel` struct tag.
const (
	RelBelongsTo  = "belongs_to"
	RelHasOne     = "has_one"
	RelHasMany    = "has_many"
	RelManyToMany = "many_to_many"
)

// FieldInfo holds parsed metadata for one struct field.
type FieldInfo struct {
	Name       string // Go field name, e.g. "ID"
	Column     string // DB column name from `db:"id"` tag
	GoType     string // Go type as string, e.g. "int", "string", "time.Time"
	PrimaryKey bool   // true if tag contains "primaryKey"
	CreatedAt  bool   // stamped on insert
	UpdatedAt  bool   // stamped on insert and update
}

// RelationInfo holds parsed metadata for a field with a `rel` tag.
type RelationInfo struct {
	FieldName        string // "Related"
	TargetType       string // "Secondary" (without package qualifier)
	TargetImportPath string // import path when the target lives in another package
	RelType          string // one of the Rel* constants
	ForeignKey       string // "related_id"
	IsPointer        bool   // field is *Target
	JoinTable        string // many_to_many only
	References       string // many_to_many only
}

// StructInfo holds parsed metadata for the target struct.
type StructInfo struct {
	Name      string         // Go struct name, e.g. "User"
	Package   string         // Package name, e.g. "model"
	Fields    []FieldInfo    // Non-skipped db fields
	Relations []RelationInfo // Fields with a rel tag
	TableName string         // Set by the caller (from CLI flag or InferTableName)
}

// PrimaryKeyField returns the primary key field, or an error if none or
// multiple are defined.
func (s *StructInfo) PrimaryKeyField() (*FieldInfo, error) {
	var pk *FieldInfo
	for i := range s.Fields {
		if s.Fields[i].PrimaryKey {
			if pk != nil {
				return nil, fmt.Errorf("multiple primary keys: %s and %s", pk.Name, s.Fields[i].Name)
			}
			pk = &s.Fields[i]
		}
	}
	if pk == nil {
		return nil, fmt.Errorf("no primary key defined for %s", s.Name)
	}
	return pk, nil
}

// InferTableName converts a CamelCase type name to a snake_case plural
// table name: "User" → "users", "UserProfile" → "user_profiles".
func InferTableName(typeName string) string {
	return inflection.Plural(naming.CamelToSnake(typeName))
}

// Parse reads the Go file at path and returns StructInfo for every struct
// that has at least one column field.
func Parse(filePath string) ([]*StructInfo, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filePath, nil, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("parse file: %w", err)
	}

	pkg := file.Name.Name
	imports := fileImports(file)
	var infos []*StructInfo

	ast.Inspect(file, func(n ast.Node) bool {
		ts, ok := n.(*ast.TypeSpec)
		if !ok {
			return true
		}

		st, ok := ts.Type.(*ast.StructType)
		if !ok {
			return true
		}

		fields, relations, err2 := parseStructFields(st, imports)
		if err2 != nil {
			err = fmt.Errorf("%s: %w", ts.Name.Name, err2)
			return false
		}
		if len(fields) == 0 {
			return true
		}

		infos = append(infos, &StructInfo{
			Name:      ts.Name.Name,
			Package:   pkg,
			Fields:    fields,
			Relations: relations,
		})
		return true
	})
	if err != nil {
		return nil, err
	}

	return infos, nil
}

// fileImports maps the local package name of every import to its path.
func fileImports(file *ast.File) map[string]string {
	m := make(map[string]string, len(file.Imports))
	for _, imp := range file.Imports {
		p, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			continue
		}
		name := path.Base(p)
		if imp.Name != nil {
			name = imp.Name.Name
		}
		m[name] = p
	}
	return m
}

// parseStructFields extracts column fields and relations from an AST struct type.
func parseStructFields(st *ast.StructType, imports map[string]string) ([]FieldInfo, []RelationInfo, error) {
	fields := make([]FieldInfo, 0, len(st.Fields.List))
	var relations []RelationInfo
	for _, field := range st.Fields.List {
		if rel, ok, err := parseRelation(field, imports); err != nil {
			return nil, nil, err
		} else if ok {
			relations = append(relations, rel)
			continue
		}

		fi, skip := parseField(field)
		if skip {
			continue
		}
		fields = append(fields, fi)
	}
	return fields, relations, nil
}

func parseField(field *ast.Field) (FieldInfo, bool) {
	if len(field.Names) == 0 {
		return FieldInfo{}, true // embedded field (e.g. orm.State), skip
	}

	name := field.Names[0].Name

	// Skip unexported fields.
	if !field.Names[0].IsExported() {
		return FieldInfo{}, true
	}

	goType := typeToString(field.Type)

	// Defaults: column inferred from field name, ID field is primary key,
	// CreatedAt/UpdatedAt time fields are timestamps.
	column := naming.CamelToSnake(name)
	primaryKey := name == "ID"
	isTime := goType == "time.Time" || goType == "*time.Time"
	createdAt := isTime && name == "CreatedAt"
	updatedAt := isTime && name == "UpdatedAt"

	// Override with db tag if present.
	if field.Tag != nil {
		tag := reflect.StructTag(strings.Trim(field.Tag.Value, "`"))
		if dbTag, ok := tag.Lookup("db"); ok {
			if dbTag == "-" {
				return FieldInfo{}, true // explicitly skipped
			}
			parts := strings.Split(dbTag, ",")
			if parts[0] != "" {
				column = parts[0]
			}
			for _, opt := range parts[1:] {
				switch opt {
				case "primaryKey":
					primaryKey = true
				case "createdAt":
					createdAt = true
				case "updatedAt":
					updatedAt = true
				}
			}
		}
	}

	return FieldInfo{
		Name:       name,
		Column:     column,
		GoType:     goType,
		PrimaryKey: primaryKey,
		CreatedAt:  createdAt,
		UpdatedAt:  updatedAt,
	}, false
}

// parseRelation reports whether field carries a `rel` tag and, if so,
// returns its metadata.
func parseRelation(field *ast.Field, imports map[string]string) (RelationInfo, bool, error) {
	if field.Tag == nil || len(field.Names) == 0 {
		return RelationInfo{}, false, nil
	}
	tag := reflect.StructTag(strings.Trim(field.Tag.Value, "`"))
	relTag, ok := tag.Lookup("rel")
	if !ok {
		return RelationInfo{}, false, nil
	}

	rel := RelationInfo{FieldName: field.Names[0].Name}
	parts := strings.Split(relTag, ",")
	rel.RelType = parts[0]
	switch rel.RelType {
	case RelBelongsTo, RelHasOne, RelHasMany, RelManyToMany:
	default:
		return RelationInfo{}, false, fmt.Errorf("field %s: unknown relation %q", rel.FieldName, rel.RelType)
	}

	for _, opt := range parts[1:] {
		key, value, _ := strings.Cut(opt, ":")
		switch key {
		case "foreign_key":
			rel.ForeignKey = value
		case "join_table":
			rel.JoinTable = value
		case "references":
			rel.References = value
		}
	}
	if rel.ForeignKey == "" {
		return RelationInfo{}, false, fmt.Errorf("field %s: relation requires foreign_key", rel.FieldName)
	}
	if rel.RelType == RelManyToMany && (rel.JoinTable == "" || rel.References == "") {
		return RelationInfo{}, false, fmt.Errorf("field %s: many_to_many requires join_table and references", rel.FieldName)
	}

	expr := field.Type
	if star, ok := expr.(*ast.StarExpr); ok {
		rel.IsPointer = true
		expr = star.X
	}
	if arr, ok := expr.(*ast.ArrayType); ok {
		expr = arr.Elt
	}
	switch t := expr.(type) {
	case *ast.Ident:
		rel.TargetType = t.Name
	case *ast.SelectorExpr:
		rel.TargetType = t.Sel.Name
		if x, ok := t.X.(*ast.Ident); ok {
			rel.TargetImportPath = imports[x.Name]
		}
	default:
		return RelationInfo{}, false, fmt.Errorf("field %s: unsupported relation type %s", rel.FieldName, typeToString(field.Type))
	}

	return rel, true, nil
}

func typeToString(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.SelectorExpr:
		return typeToString(t.X) + "." + t.Sel.Name
	case *ast.StarExpr:
		return "*" + typeToString(t.X)
	case *ast.ArrayType:
		if t.Len == nil {
			return "[]" + typeToString(t.Elt)
		}
		return fmt.Sprintf("[%s]%s", typeToString(t.Len), typeToString(t.Elt))
	case *ast.BasicLit:
		return t.Value
	default:
		return fmt.Sprintf("%T", expr)
	}
}
