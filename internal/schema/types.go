package schema

import (
	"strings"

	"github.com/mickamy/dieselgen/internal/config"
	"github.com/mickamy/dieselgen/internal/errs"
)

// rustTypes maps lower-cased diesel sql_types to Rust type expressions.
// Aliases such as Int4/Float8 are listed next to their canonical names.
var rustTypes = map[string]string{
	// boolean
	"bool": "bool",

	// numbers
	"tinyint":     "i8",
	"smallint":    "i16",
	"smallserial": "i16",
	"int2":        "i16",
	"int4":        "i32",
	"integer":     "i32",
	"serial":      "i32",
	"bigint":      "i64",
	"bigserial":   "i64",
	"int8":        "i64",
	"float":       "f32",
	"float4":      "f32",
	"double":      "f64",
	"float8":      "f64",
	"numeric":     "bigdecimal::BigDecimal",
	"decimal":     "bigdecimal::BigDecimal",

	// ranges
	"int4range": rangeOf("i32"),
	"int8range": rangeOf("i64"),
	"numrange":  rangeOf("bigdecimal::BigDecimal"),
	"daterange": rangeOf("chrono::NaiveDate"),
	"tsrange":   rangeOf("chrono::NaiveDateTime"),
	"tstzrange": rangeOf("chrono::DateTime<chrono::Utc>"),

	// text
	"text":       "String",
	"varchar":    "String",
	"bpchar":     "String",
	"char":       "String",
	"tinytext":   "String",
	"mediumtext": "String",
	"longtext":   "String",
	"citext":     "String",

	// bytes
	"binary":     "Vec<u8>",
	"bytea":      "Vec<u8>",
	"tinyblob":   "Vec<u8>",
	"blob":       "Vec<u8>",
	"mediumblob": "Vec<u8>",
	"longblob":   "Vec<u8>",
	"varbinary":  "Vec<u8>",
	"bit":        "Vec<u8>",

	// date & time
	"date":              "chrono::NaiveDate",
	"datetime":          "chrono::NaiveDateTime",
	"time":              "chrono::NaiveTime",
	"timestamp":         "chrono::NaiveDateTime",
	"timestamptz":       "chrono::DateTime<chrono::Utc>",
	"timestamptzsqlite": "chrono::DateTime<chrono::Utc>",

	// json
	"json":  "serde_json::Value",
	"jsonb": "serde_json::Value",

	// misc
	"uuid":     "uuid::Uuid",
	"interval": "diesel::pg::data_types::PgInterval",
	"oid":      "u32",
	"money":    "diesel::pg::data_types::PgMoney",
	"macaddr":  "[u8; 6]",
}

// unsupportedTypes are rejected outright instead of falling back.
var unsupportedTypes = map[string]string{
	"inet": "network address types are not supported yet; declare the column with a custom type instead",
	"cidr": "network address types are not supported yet; declare the column with a custom type instead",
}

func rangeOf(t string) string {
	return "(std::collections::Bound<" + t + ">, std::collections::Bound<" + t + ">)"
}

// MapType translates a diesel schema type name into a Rust type.
// Names it does not know resolve to "<schema path>sql_types::<name>",
// assuming the type is declared by hand in the schema module.
func MapType(schemaType string, cfg *config.GenerationConfig) (string, error) {
	key := strings.ToLower(schemaType)
	if msg, ok := unsupportedTypes[key]; ok {
		return "", errs.NewTypeError(schemaType, msg)
	}
	if t, ok := rustTypes[key]; ok {
		return t, nil
	}
	return cfg.SchemaPath + "sql_types::" + schemaType, nil
}
