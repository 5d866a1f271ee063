package schema_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/mickamy/dieselgen/internal/config"
	"github.com/mickamy/dieselgen/internal/errs"
	"github.com/mickamy/dieselgen/internal/schema"
)

var knownTypes = []string{"Int4", "Text", "Bool", "Int8", "Timestamptz", "Bytea", "Uuid", "Jsonb"}

func identGen() gopter.Gen {
	return gen.RegexMatch(`^[a-z][a-z0-9_]{0,11}$`)
}

// TestProperty_TypeFallback: an unknown type name never fails and always
// resolves inside the configured schema path.
func TestProperty_TypeFallback(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	cfg := config.Default()
	properties.Property("unknown names map to the sql_types passthrough", prop.ForAll(
		func(name string) bool {
			if _, err := schema.MapType(name, cfg); errors.Is(err, errs.ErrUnsupportedType) {
				return true
			}
			got, err := schema.MapType("X"+name, cfg)
			if err != nil {
				return false
			}
			// either a table hit or the passthrough; the X prefix makes hits impossible
			return got == cfg.SchemaPath+"sql_types::X"+name
		},
		gen.Identifier(),
	))

	properties.TestingRun(t)
}

// TestProperty_PrimaryKeysAreColumns: parsed tables only ever reference
// declared columns as primary keys; any other key is rejected.
func TestProperty_PrimaryKeysAreColumns(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("primary keys are a subset of columns", prop.ForAll(
		func(columns []string, keys []string) bool {
			columns = unique(columns)
			keys = unique(keys)
			if len(columns) == 0 || len(keys) == 0 {
				return true
			}

			var body strings.Builder
			for i, c := range columns {
				fmt.Fprintf(&body, "    %s -> %s,\n", c, knownTypes[i%len(knownTypes)])
			}
			src := fmt.Sprintf("diesel::table! {\n  items (%s) {\n%s  }\n}\n", strings.Join(keys, ", "), body.String())

			tables, err := schema.Parse(src, config.Default(), nil)
			allDeclared := subset(keys, columns)
			if !allDeclared {
				return errors.Is(err, errs.ErrUnsupportedSchemaFormat) && tables == nil
			}
			if err != nil || len(tables) != 1 {
				return false
			}
			for _, pk := range tables[0].PrimaryKeys {
				if _, ok := tables[0].Column(pk); !ok {
					return false
				}
			}
			return len(tables[0].Columns) == len(columns)
		},
		gen.SliceOfN(5, identGen()),
		gen.SliceOfN(2, identGen()),
	))

	properties.TestingRun(t)
}

func unique(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		// modifier names are read as flags inside a column group
		if s == "nullable" || s == "unsigned" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func subset(a, b []string) bool {
	set := make(map[string]bool, len(b))
	for _, s := range b {
		set[s] = true
	}
	for _, s := range a {
		if !set[s] {
			return false
		}
	}
	return true
}
