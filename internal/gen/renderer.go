package gen

import (
	"bytes"
	"fmt"
	"slices"
	"strings"
	"text/template"

	"github.com/mickamy/dieselgen/internal/config"
	"github.com/mickamy/dieselgen/internal/errs"
	"github.com/mickamy/dieselgen/internal/file"
	"github.com/mickamy/dieselgen/internal/naming"
	"github.com/mickamy/dieselgen/internal/schema"
)

// Rust renders diesel model source for a parsed table.
type Rust struct{}

var _ schema.Generator = Rust{}

// Generate returns the generated.rs contents for t. The output is
// deterministic for a given table and config.
func (Rust) Generate(t *schema.Table, cfg *config.GenerationConfig) (string, error) {
	opts := cfg.Table(t.Name)

	singular := cfg.SingularStructNames
	read := buildStruct(structRead, t, opts, singular)
	var create, update structData
	if !opts.ReadOnly {
		create = buildStruct(structCreate, t, opts, singular)
		update = buildStruct(structUpdate, t, opts, singular)
	}

	blocks := []string{file.Signature + "\n", importsBlock(t, cfg, opts, create, update)}
	if !cfg.OnceConnectionType {
		blocks = append(blocks, fmt.Sprintf("type Connection = %s;\n", cfg.Connection(opts.Async)))
	}

	for _, s := range []structData{read, create, update} {
		if len(s.Fields) == 0 {
			continue
		}
		code, err := execute("struct", s)
		if err != nil {
			return "", err
		}
		blocks = append(blocks, code)
	}

	if opts.Fns {
		if !cfg.OnceCommonStructs {
			code, err := CommonStructs(opts.Serde)
			if err != nil {
				return "", err
			}
			blocks = append(blocks, code)
		}
		impl, err := buildImpl(t, cfg, opts, read, create, update)
		if err != nil {
			return "", err
		}
		code, err := execute("impl", impl)
		if err != nil {
			return "", err
		}
		blocks = append(blocks, code)
	}

	return strings.Join(blocks, "\n"), nil
}

// CommonStructs returns the structs shared by every model.
func CommonStructs(serde bool) (string, error) {
	return execute("pagination", serde)
}

// ConnectionType returns the public Connection alias for common.rs.
func ConnectionType(cfg *config.GenerationConfig) string {
	async := cfg.Defaults.Async != nil && *cfg.Defaults.Async
	return fmt.Sprintf("/// Connection type as set in dieselgen\npub type Connection = %s;\n", cfg.Connection(async))
}

// Common returns the contents of common.rs, or "" when neither shared
// artifact is enabled.
func Common(cfg *config.GenerationConfig) (string, error) {
	if !cfg.OnceCommonStructs && !cfg.OnceConnectionType {
		return "", nil
	}
	blocks := []string{file.Signature + "\n"}
	if cfg.OnceCommonStructs {
		code, err := CommonStructs(cfg.Defaults.Serde)
		if err != nil {
			return "", err
		}
		blocks = append(blocks, code)
	}
	if cfg.OnceConnectionType {
		blocks = append(blocks, ConnectionType(cfg))
	}
	return strings.Join(blocks, "\n"), nil
}

func importsBlock(t *schema.Table, cfg *config.GenerationConfig, opts config.ResolvedTableOptions, create, update structData) string {
	lines := []string{"use crate::diesel::*;"}
	if opts.Fns {
		lines = append(lines, "use diesel::QueryResult;")
		if opts.Async {
			lines = append(lines, "use diesel_async::RunQueryDsl;")
		}
	}
	if opts.Serde {
		lines = append(lines, "use serde::{Deserialize, Serialize};")
	}
	if create.cow || update.cow {
		lines = append(lines, "use std::borrow::Cow;")
	}
	lines = append(lines, "use "+cfg.SchemaPath+"*;")

	if cfg.OnceCommonStructs && opts.Fns {
		lines = append(lines, "use "+cfg.ModelPath+"common::PaginationResult;")
	}
	if cfg.OnceConnectionType {
		lines = append(lines, "use "+cfg.ModelPath+"common::Connection;")
	}

	seen := make(map[string]bool)
	for _, fk := range t.ForeignKeys {
		if fk.Table == t.Name || seen[fk.Table] {
			continue
		}
		seen[fk.Table] = true
		lines = append(lines, fmt.Sprintf("use %s%s::%s;",
			cfg.ModelPath, naming.ModuleName(fk.Table), naming.StructName(fk.Table, cfg.SingularStructNames)))
	}
	return strings.Join(lines, "\n") + "\n"
}

type structKind int

const (
	structRead structKind = iota
	structCreate
	structUpdate
)

func (k structKind) prefix() string {
	switch k {
	case structCreate:
		return "Create"
	case structUpdate:
		return "Update"
	default:
		return ""
	}
}

type fieldData struct {
	Column string // column as declared in table!
	Name   string
	Type   string
}

type structData struct {
	Doc      string
	Attrs    []string
	Name     string
	Generics string // "<'a>" or ""
	Fields   []fieldData

	cow bool
}

// Ref is the struct type as used in a function signature.
func (s structData) Ref() string {
	if s.Generics != "" {
		return s.Name + "<'_>"
	}
	return s.Name
}

func buildStruct(kind structKind, t *schema.Table, opts config.ResolvedTableOptions, singular bool) structData {
	s := structData{Name: kind.prefix() + t.StructName}

	strType, bytesType := opts.CreateStrType, opts.CreateBytesType
	if kind == structUpdate {
		strType, bytesType = opts.UpdateStrType, opts.UpdateBytesType
	}

	lifetime := false
	allKeys := true
	for _, c := range t.Columns {
		switch kind {
		case structCreate:
			if opts.IsAutogenerated(c.Name) {
				continue
			}
		case structUpdate:
			if t.IsPrimaryKey(c.Name) {
				continue
			}
		}

		typ := baseType(c)
		if kind != structRead {
			switch typ {
			case "String":
				typ = strType.Rust()
				lifetime = lifetime || strType.Lifetime() != ""
				s.cow = s.cow || strType == config.StringCow
			case "Vec<u8>":
				typ = bytesType.Rust()
				lifetime = lifetime || bytesType.Lifetime() != ""
				s.cow = s.cow || bytesType == config.BytesCow
			}
		}
		if c.Nullable {
			typ = "Option<" + typ + ">"
		}
		if kind == structUpdate {
			typ = "Option<" + typ + ">"
		}
		if !t.IsPrimaryKey(c.Name) {
			allKeys = false
		}
		s.Fields = append(s.Fields, fieldData{Column: c.Name, Name: c.Name, Type: typ})
	}
	if lifetime {
		s.Generics = "<'a>"
	}

	switch kind {
	case structRead:
		s.Doc = fmt.Sprintf("/// Struct representing a row for table `%s`", t.Name)
	case structCreate:
		s.Doc = fmt.Sprintf("/// Create struct for [`%s`] on table `%s`", t.StructName, t.Name)
	case structUpdate:
		s.Doc = fmt.Sprintf("/// Update struct for [`%s`] on table `%s`", t.StructName, t.Name)
	}

	if opts.Tsync {
		s.Attrs = append(s.Attrs, "#[tsync::tsync]")
	}
	s.Attrs = append(s.Attrs, "#[derive("+strings.Join(derives(kind, t, opts, allKeys), ", ")+")]")

	diesel := "table_name=" + t.Name
	if kind == structRead {
		diesel += ", primary_key(" + strings.Join(t.PrimaryKeys, ",") + ")"
		for _, fk := range t.ForeignKeys {
			diesel += fmt.Sprintf(", belongs_to(%s, foreign_key=%s)", naming.StructName(fk.Table, singular), fk.Column)
		}
	}
	s.Attrs = append(s.Attrs, "#[diesel("+diesel+")]")
	return s
}

func derives(kind structKind, t *schema.Table, opts config.ResolvedTableOptions, allKeys bool) []string {
	d := []string{"Debug", "Clone"}
	if opts.Serde {
		d = append(d, "Serialize", "Deserialize")
	}
	minimal := opts.OnlyNecessaryDerives
	if !minimal || kind == structRead {
		d = append(d, "Queryable")
	}
	if !minimal || kind == structCreate {
		d = append(d, "Insertable")
	}
	if kind == structRead {
		d = append(d, "Selectable")
		if len(t.ForeignKeys) > 0 {
			d = append(d, "Identifiable", "Associations")
		}
	}
	if !allKeys && (!minimal || kind == structUpdate) {
		d = append(d, "AsChangeset")
	}
	return d
}

// baseType applies the Unsigned modifier: i32 becomes u32.
func baseType(c schema.Column) string {
	if c.Unsigned && slices.Contains([]string{"i8", "i16", "i32", "i64", "i128"}, c.Type) {
		return "u" + c.Type[1:]
	}
	return c.Type
}

type implData struct {
	StructName    string
	Table         string
	SchemaPath    string
	Async         string // " async" or ""
	Await         string // ".await" or ""
	Create        string // create struct reference, empty when there is none
	CreateName    string
	CreateDefault bool // every column is autogenerated
	Update        string
	UpdateName    string
	Deletable     bool
	KeyParams     string // "param_id: i32"
	KeyFilters    string // "filter(id.eq(param_id))"
}

func buildImpl(t *schema.Table, cfg *config.GenerationConfig, opts config.ResolvedTableOptions, read, create, update structData) (implData, error) {
	d := implData{
		StructName: t.StructName,
		Table:      t.Name,
		SchemaPath: cfg.SchemaPath,
	}
	if opts.Async {
		d.Async, d.Await = " async", ".await"
	}
	if !opts.ReadOnly {
		d.Deletable = true
		if len(create.Fields) > 0 {
			d.Create, d.CreateName = create.Ref(), create.Name
		} else {
			d.CreateDefault = true
		}
		if len(update.Fields) > 0 {
			d.Update, d.UpdateName = update.Ref(), update.Name
		}
	}

	params := make([]string, 0, len(t.PrimaryKeys))
	filters := make([]string, 0, len(t.PrimaryKeys))
	for _, pk := range t.PrimaryKeys {
		i := slices.IndexFunc(read.Fields, func(f fieldData) bool { return f.Name == pk })
		if i < 0 {
			return implData{}, errs.Otherf("primary key column %q does not exist in table %s", pk, t.Name)
		}
		params = append(params, fmt.Sprintf("param_%s: %s", pk, read.Fields[i].Type))
		filters = append(filters, fmt.Sprintf("filter(%s.eq(param_%s))", pk, pk))
	}
	d.KeyParams = strings.Join(params, ", ")
	d.KeyFilters = strings.Join(filters, ".")
	return d, nil
}

var funcMap = template.FuncMap{
	"join": strings.Join,
}

var tmpl = template.Must(template.New("gen").Funcs(funcMap).Parse(rustTemplate))

func execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("execute template %s: %w", name, err)
	}
	return buf.String(), nil
}

const rustTemplate = `
{{- define "struct" -}}
{{.Doc}}
{{join .Attrs "\n"}}
pub struct {{.Name}}{{.Generics}} {
{{- range .Fields}}
    /// Field representing column ` + "`{{.Column}}`" + `
    pub {{.Name}}: {{.Type}},
{{- end}}
}
{{end}}

{{- define "pagination" -}}
/// Result of a ` + "`.paginate`" + ` function
#[derive(Debug{{if .}}, Serialize{{end}})]
pub struct PaginationResult<T> {
    /// Result items from the current page
    pub items: Vec<T>,
    /// Count of how many items there are in total
    pub total_items: i64,
    /// Current page, 0-based index
    pub page: i64,
    /// Size of a page
    pub page_size: i64,
    /// Number of pages in total
    pub num_pages: i64,
}
{{end}}

{{- define "impl" -}}
impl {{.StructName}} {
{{- if .Create}}

    /// Insert a new row on {{.Table}} with a given [` + "`{{.CreateName}}`" + `]
    pub{{.Async}} fn create(db: &mut Connection, item: &{{.Create}}) -> QueryResult<Self> {
        use {{.SchemaPath}}{{.Table}}::dsl::*;

        insert_into({{.Table}}).values(item).get_result::<Self>(db){{.Await}}
    }
{{- else if .CreateDefault}}

    /// Insert a new row on {{.Table}} using default values
    pub{{.Async}} fn create(db: &mut Connection) -> QueryResult<Self> {
        use {{.SchemaPath}}{{.Table}}::dsl::*;

        insert_into({{.Table}}).default_values().get_result::<Self>(db){{.Await}}
    }
{{- end}}

    /// Get a specific row with the primary key
    pub{{.Async}} fn read(db: &mut Connection, {{.KeyParams}}) -> QueryResult<Self> {
        use {{.SchemaPath}}{{.Table}}::dsl::*;

        {{.Table}}.{{.KeyFilters}}.first::<Self>(db){{.Await}}
    }

    /// Paginates through the table where page is a 0-based index (i.e. page 0 is the first page)
    pub{{.Async}} fn paginate(db: &mut Connection, page: i64, page_size: i64) -> QueryResult<PaginationResult<Self>> {
        use {{.SchemaPath}}{{.Table}}::dsl::*;

        let page_size = if page_size < 1 { 1 } else { page_size };
        let total_items = {{.Table}}.count().get_result(db){{.Await}}?;
        let items = {{.Table}}.limit(page_size).offset(page * page_size).load::<Self>(db){{.Await}}?;

        Ok(PaginationResult {
            items,
            total_items,
            page,
            page_size,
            /* ceiling division of integers */
            num_pages: total_items / page_size + i64::from(total_items % page_size != 0)
        })
    }
{{- if .Update}}

    /// Update a row given the primary key with updates from [` + "`{{.UpdateName}}`" + `]
    pub{{.Async}} fn update(db: &mut Connection, {{.KeyParams}}, item: &{{.Update}}) -> QueryResult<Self> {
        use {{.SchemaPath}}{{.Table}}::dsl::*;

        diesel::update({{.Table}}.{{.KeyFilters}}).set(item).get_result(db){{.Await}}
    }
{{- end}}
{{- if .Deletable}}

    /// Delete a row with the given primary key
    pub{{.Async}} fn delete(db: &mut Connection, {{.KeyParams}}) -> QueryResult<usize> {
        use {{.SchemaPath}}{{.Table}}::dsl::*;

        diesel::delete({{.Table}}.{{.KeyFilters}}).execute(db){{.Await}}
    }
{{- end}}
}
{{end}}`
