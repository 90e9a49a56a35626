package gen

import (
	"strings"

	"github.com/fieldsync/ormgen/internal/naming"
)

type relationTemplateData struct {
	FieldName       string // "Posts"
	ParentType      string // "model.User" or "User"
	TargetType      string // "model.Post" or "Post"
	TargetFactory   string // "Posts", or "authquery.OAuthAccounts" across packages
	ForeignKey      string // "user_id"
	ForeignKeyField string // "UserID"
	FKIsPointer     bool   // belongs_to only: foreign key field is *K
	RelType         string // one of the Rel* constants
	IsPointer       bool   // relation field is *Target
	PreloaderName   string // "preloadUserPosts"
	KeyType         string // Go type of the key the parent side looks up
	ParentPKField   string // "ID"

	// Target primary key. Falls back to the "id"/"ID" convention when the
	// target struct was not parsed alongside the parent.
	TargetPKColumn string
	TargetPKName   string
	TargetKeyType  string

	JoinTable  string // many_to_many only: "user_tags"
	References string // many_to_many only: "tag_id"

	// JOIN clause metadata; empty for many_to_many.
	JoinTargetTable  string
	JoinTargetColumn string
	JoinSourceTable  string
	JoinSourceColumn string

	// Join scan support for same-package belongs_to and has_one targets.
	JoinScanFields []FieldInfo
	JoinNullType   string // "sql.NullInt64", pointer relations only
	JoinNullField  string // ".Int64", pointer relations only
}

// JoinVar is the scan function's temporary for a pointer relation.
func (rd relationTemplateData) JoinVar() string {
	return "joinScan" + rd.FieldName
}

// SelectColumns renders the quoted target columns read by a join.
func (rd relationTemplateData) SelectColumns() string {
	cols := make([]string, len(rd.JoinScanFields))
	for i, f := range rd.JoinScanFields {
		cols[i] = `"` + f.Column + `"`
	}
	return strings.Join(cols, ", ")
}

// LoadColumn is the target column the preloader filters on.
func (rd relationTemplateData) LoadColumn() string {
	switch rd.RelType {
	case RelHasMany, RelHasOne:
		return rd.ForeignKey
	default:
		return rd.TargetPKColumn
	}
}

// LoadKeyType is the Go type of the values passed to LoadColumn.
func (rd relationTemplateData) LoadKeyType() string {
	if rd.RelType == RelManyToMany {
		return rd.TargetKeyType
	}
	return rd.KeyType
}

// RelatedKeyField is the field of a loaded target matched against the
// parent's key.
func (rd relationTemplateData) RelatedKeyField() string {
	if rd.RelType == RelHasOne {
		return rd.ForeignKeyField
	}
	return rd.TargetPKName
}

func (r *renderer) relationData(info *StructInfo, pk *FieldInfo, rel RelationInfo) relationTemplateData {
	targetTable := InferTableName(rel.TargetType)
	rd := relationTemplateData{
		FieldName:       rel.FieldName,
		ParentType:      r.typePrefix + info.Name,
		TargetType:      r.typePrefix + rel.TargetType,
		TargetFactory:   naming.SnakeToCamel(targetTable),
		ForeignKey:      rel.ForeignKey,
		ForeignKeyField: naming.SnakeToCamel(rel.ForeignKey),
		RelType:         rel.RelType,
		IsPointer:       rel.IsPointer,
		PreloaderName:   unexportedName("preload" + info.Name + rel.FieldName),
		KeyType:         pk.GoType,
		ParentPKField:   pk.Name,
		TargetPKColumn:  "id",
		TargetPKName:    "ID",
		TargetKeyType:   pk.GoType,
	}

	crossPkg := rel.TargetImportPath != "" && rel.TargetImportPath != r.opt.SourceImport
	if crossPkg {
		rd.TargetType = r.imports.add(rel.TargetImportPath, r.opt.SourceImport) + "." + rel.TargetType
		if q := r.targetQueryPackage(rel.TargetImportPath); q != "" {
			rd.TargetFactory = q + "." + rd.TargetFactory
		}
	}

	var target *StructInfo
	if !crossPkg {
		target = findStructInfo(r.known, rel.TargetType)
	}
	var targetPK *FieldInfo
	if target != nil {
		if p, err := target.PrimaryKeyField(); err == nil {
			targetPK = p
			rd.TargetPKColumn, rd.TargetPKName, rd.TargetKeyType = p.Column, p.Name, p.GoType
		}
	}

	switch rel.RelType {
	case RelManyToMany:
		rd.JoinTable = rel.JoinTable
		rd.References = rel.References
		return rd
	case RelBelongsTo:
		rd.KeyType = lookupFieldType(info, rel.ForeignKey)
		if after, ok := strings.CutPrefix(rd.KeyType, "*"); ok {
			rd.FKIsPointer = true
			rd.KeyType = after
		}
		rd.JoinTargetTable, rd.JoinTargetColumn = targetTable, rd.TargetPKColumn
		rd.JoinSourceTable, rd.JoinSourceColumn = info.TableName, rel.ForeignKey
	default:
		rd.JoinTargetTable, rd.JoinTargetColumn = targetTable, rel.ForeignKey
		rd.JoinSourceTable, rd.JoinSourceColumn = info.TableName, pk.Column
	}

	if rel.RelType != RelHasMany && target != nil && targetPK != nil {
		rd.JoinScanFields = target.Fields
		if rel.IsPointer {
			rd.JoinNullType, rd.JoinNullField = nullTypeFor(targetPK.GoType)
		}
	}
	return rd
}

// targetQueryPackage returns the alias of the generated query package that
// holds the factory for a target in importPath, or "" when that factory is
// rendered into the current package.
func (r *renderer) targetQueryPackage(importPath string) string {
	if r.opt.DestPkg == "" || r.opt.SourceImport == "" {
		return ""
	}
	ext := replaceLastSegment(importPath, r.opt.DestPkg)
	own := replaceLastSegment(r.opt.SourceImport, r.opt.DestPkg)
	if ext == own {
		return ""
	}
	return r.imports.add(ext, own)
}

type importEntry struct {
	Alias string // empty means the last path segment is used as-is
	Path  string
}

// importSet collects the extra imports of a file in first-use order.
type importSet struct {
	entries []importEntry
	aliases map[string]string
}

// add registers importPath and returns the name code should use for it.
// A path whose last segment collides with ownPath's is aliased with its
// parent segment, so "github.com/x/auth/model" becomes "authmodel".
func (s *importSet) add(importPath, ownPath string) string {
	if name, ok := s.aliases[importPath]; ok {
		return name
	}
	if s.aliases == nil {
		s.aliases = make(map[string]string)
	}
	name := lastSegment(importPath)
	entry := importEntry{Path: importPath}
	if ownPath != "" && name == lastSegment(ownPath) {
		if parent := lastSegment(strings.TrimSuffix(importPath, "/"+name)); parent != importPath {
			name = parent + name
			entry.Alias = name
		}
	}
	s.aliases[importPath] = name
	s.entries = append(s.entries, entry)
	return name
}

func lookupFieldType(info *StructInfo, column string) string {
	for _, f := range info.Fields {
		if f.Column == column {
			return f.GoType
		}
	}
	return "int"
}

func findStructInfo(infos []*StructInfo, name string) *StructInfo {
	for _, info := range infos {
		if info.Name == name {
			return info
		}
	}
	return nil
}

func nullTypeFor(goType string) (nullType, nullField string) {
	if goType == "string" {
		return "sql.NullString", ".String"
	}
	return "sql.NullInt64", ".Int64"
}
