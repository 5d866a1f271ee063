package schema

import "slices"

// Column holds parsed metadata for one table column.
type Column struct {
	Name     string `yaml:"name"`               // Rust name, e.g. "type_"
	Type     string `yaml:"type"`               // Rust type, e.g. "String"
	Nullable bool   `yaml:"nullable,omitempty"` // declared as Nullable<T>
	Unsigned bool   `yaml:"unsigned,omitempty"` // declared as Unsigned<T>
	SQLName  string `yaml:"sql_name"`           // actual column name, e.g. "type"
}

// ForeignKey is a joinable! relation owned by a table.
type ForeignKey struct {
	Table  string `yaml:"table"`  // referenced table, e.g. "users"
	Column string `yaml:"column"` // local join column, e.g. "user_id"
}

// Table holds parsed metadata for one table! declaration.
type Table struct {
	Name          string       `yaml:"name"`        // as written in the schema, e.g. "tableA"
	StructName    string       `yaml:"struct_name"` // e.g. "TableA"
	Columns       []Column     `yaml:"columns"`     // declaration order
	PrimaryKeys   []string     `yaml:"primary_keys"`
	ForeignKeys   []ForeignKey `yaml:"foreign_keys,omitempty"`
	GeneratedCode string       `yaml:"-"`
}

// Column returns the column with the given Rust name.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// IsPrimaryKey reports whether name is one of the primary key columns.
func (t *Table) IsPrimaryKey(name string) bool {
	return slices.Contains(t.PrimaryKeys, name)
}

func (t *Table) addForeignKey(fk ForeignKey) {
	if !slices.Contains(t.ForeignKeys, fk) {
		t.ForeignKeys = append(t.ForeignKeys, fk)
	}
}

// Join is a parsed joinable! declaration. It is merged into the owning
// table and not kept.
type Join struct {
	Table      string // table holding the foreign key
	References string // referenced table
	Column     string // join column on Table
}
