package config

import (
	"slices"
	"strings"

	"github.com/mickamy/dieselgen/internal/errs"
)

// StringType selects the Rust type used for text fields of Create/Update structs.
type StringType int

const (
	// StringOwned uses `String`.
	StringOwned StringType = iota
	// StringStr uses `&'a str`.
	StringStr
	// StringCow uses `Cow<'a, str>`.
	StringCow
)

// Rust returns the Rust type expression.
func (s StringType) Rust() string {
	switch s {
	case StringStr:
		return "&'a str"
	case StringCow:
		return "Cow<'a, str>"
	default:
		return "String"
	}
}

// Lifetime returns the lifetime the type needs, or "".
func (s StringType) Lifetime() string {
	if s == StringOwned {
		return ""
	}
	return "'a"
}

// ParseStringType parses "string", "str" or "cow".
func ParseStringType(v string) (StringType, error) {
	switch strings.ToLower(v) {
	case "", "string":
		return StringOwned, nil
	case "str":
		return StringStr, nil
	case "cow":
		return StringCow, nil
	default:
		return StringOwned, errs.NewConfigError("string type", v, "use string, str or cow")
	}
}

// BytesType selects the Rust type used for binary fields of Create/Update structs.
type BytesType int

const (
	// BytesVec uses `Vec<u8>`.
	BytesVec BytesType = iota
	// BytesSlice uses `&'a [u8]`.
	BytesSlice
	// BytesCow uses `Cow<'a, [u8]>`.
	BytesCow
)

// Rust returns the Rust type expression.
func (b BytesType) Rust() string {
	switch b {
	case BytesSlice:
		return "&'a [u8]"
	case BytesCow:
		return "Cow<'a, [u8]>"
	default:
		return "Vec<u8>"
	}
}

// Lifetime returns the lifetime the type needs, or "".
func (b BytesType) Lifetime() string {
	if b == BytesVec {
		return ""
	}
	return "'a"
}

// ParseBytesType parses "vec", "slice" or "cow".
func ParseBytesType(v string) (BytesType, error) {
	switch strings.ToLower(v) {
	case "", "vec":
		return BytesVec, nil
	case "slice":
		return BytesSlice, nil
	case "cow":
		return BytesCow, nil
	default:
		return BytesVec, errs.NewConfigError("bytes type", v, "use vec, slice or cow")
	}
}

// TableOptions holds options for one table, or the defaults for all
// tables. Nil pointers mean "not set".
type TableOptions struct {
	Ignore               *bool
	Tsync                *bool
	Async                *bool
	OnlyNecessaryDerives *bool
	AutogeneratedColumns []string // nil means not set

	CreateStrType   *StringType
	UpdateStrType   *StringType
	CreateBytesType *BytesType
	UpdateBytesType *BytesType

	// Once true in either the table or the defaults, these stay true.
	Serde           bool
	Fns             bool
	SingleModelFile bool
	ReadOnly        bool
}

// DefaultTableOptions returns the defaults used when nothing is configured:
// serde derives and CRUD functions enabled.
func DefaultTableOptions() TableOptions {
	return TableOptions{Serde: true, Fns: true}
}

// ResolvedTableOptions is the result of layering table options over defaults.
type ResolvedTableOptions struct {
	Ignore               bool
	Tsync                bool
	Async                bool
	OnlyNecessaryDerives bool
	AutogeneratedColumns []string
	CreateStrType        StringType
	UpdateStrType        StringType
	CreateBytesType      BytesType
	UpdateBytesType      BytesType
	Serde                bool
	Fns                  bool
	SingleModelFile      bool
	ReadOnly             bool
}

// IsAutogenerated reports whether column is produced by the database.
func (o ResolvedTableOptions) IsAutogenerated(column string) bool {
	return slices.Contains(o.AutogeneratedColumns, column)
}

// GenerationConfig is the configuration threaded through parsing,
// generation and syncing. It is not modified after construction.
type GenerationConfig struct {
	// Tables holds table specific options keyed by the exact table name.
	Tables map[string]TableOptions
	// Defaults is used for every option a table does not set.
	Defaults TableOptions
	// ConnectionType is the Rust connection type alias target. When empty
	// the backend preset is used.
	ConnectionType string
	// Backend provides the default connection type.
	Backend Backend
	// SchemaPath is the diesel schema import path, e.g. "crate::schema::".
	SchemaPath string
	// ModelPath is the generated models import path, e.g. "crate::models::".
	ModelPath string
	// OnceCommonStructs generates shared structs once in common.rs.
	OnceCommonStructs bool
	// OnceConnectionType generates the Connection alias once in common.rs.
	OnceConnectionType bool
	// ReadOnlyPrefixes and ReadOnlySuffixes force matching tables readonly.
	ReadOnlyPrefixes []string
	ReadOnlySuffixes []string
	// SingularStructNames singularizes model struct names.
	SingularStructNames bool
}

// Default returns a GenerationConfig with the stock defaults.
func Default() *GenerationConfig {
	return &GenerationConfig{
		Tables:     map[string]TableOptions{},
		Defaults:   DefaultTableOptions(),
		Backend:    Postgres,
		SchemaPath: "crate::schema::",
		ModelPath:  "crate::models::",
	}
}

// Validate checks option values that cannot be represented in the types.
func (c *GenerationConfig) Validate() error {
	if c.SchemaPath != "" && !strings.HasSuffix(c.SchemaPath, "::") {
		return errs.NewConfigError("schema_path", c.SchemaPath, `must end with "::"`)
	}
	if c.ModelPath != "" && !strings.HasSuffix(c.ModelPath, "::") {
		return errs.NewConfigError("model_path", c.ModelPath, `must end with "::"`)
	}
	if c.ConnectionType == "" && c.Backend == nil {
		return errs.NewConfigError("connection_type", nil, "either a connection type or a backend is required")
	}
	return nil
}

// Connection returns the Rust connection type for the given async mode.
func (c *GenerationConfig) Connection(async bool) string {
	if c.ConnectionType != "" {
		return c.ConnectionType
	}
	return c.Backend.ConnectionType(async)
}

// Table resolves the options of the named table.
func (c *GenerationConfig) Table(name string) ResolvedTableOptions {
	table, ok := c.Tables[name]
	if !ok {
		table = c.Defaults
	}
	d := c.Defaults

	r := ResolvedTableOptions{
		Ignore:               pick(table.Ignore, d.Ignore, false),
		Tsync:                pick(table.Tsync, d.Tsync, false),
		Async:                pick(table.Async, d.Async, false),
		OnlyNecessaryDerives: pick(table.OnlyNecessaryDerives, d.OnlyNecessaryDerives, false),
		CreateStrType:        pick(table.CreateStrType, d.CreateStrType, StringOwned),
		UpdateStrType:        pick(table.UpdateStrType, d.UpdateStrType, StringOwned),
		CreateBytesType:      pick(table.CreateBytesType, d.CreateBytesType, BytesVec),
		UpdateBytesType:      pick(table.UpdateBytesType, d.UpdateBytesType, BytesVec),
		Serde:                table.Serde || d.Serde,
		Fns:                  table.Fns || d.Fns,
		SingleModelFile:      table.SingleModelFile || d.SingleModelFile,
		ReadOnly:             table.ReadOnly || d.ReadOnly,
	}
	if table.AutogeneratedColumns != nil {
		r.AutogeneratedColumns = table.AutogeneratedColumns
	} else {
		r.AutogeneratedColumns = d.AutogeneratedColumns
	}

	if hasAnyPrefix(name, c.ReadOnlyPrefixes) || hasAnySuffix(name, c.ReadOnlySuffixes) {
		r.ReadOnly = true
	}
	return r
}

func pick[T any](override, fallback *T, zero T) T {
	if override != nil {
		return *override
	}
	if fallback != nil {
		return *fallback
	}
	return zero
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, p := range suffixes {
		if strings.HasSuffix(s, p) {
			return true
		}
	}
	return false
}
