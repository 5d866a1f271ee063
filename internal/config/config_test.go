package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/dieselgen/internal/config"
	"github.com/mickamy/dieselgen/internal/errs"
)

func ptr[T any](v T) *T { return &v }

func TestTableDefaultsOnly(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Defaults.AutogeneratedColumns = []string{"created_at"}
	cfg.Defaults.Async = ptr(true)

	got := cfg.Table("todos")
	assert.True(t, got.Serde)
	assert.True(t, got.Fns)
	assert.True(t, got.Async)
	assert.False(t, got.Ignore)
	assert.False(t, got.ReadOnly)
	assert.Equal(t, []string{"created_at"}, got.AutogeneratedColumns)
	assert.Equal(t, config.StringOwned, got.CreateStrType)
	assert.Equal(t, config.BytesVec, got.UpdateBytesType)
}

func TestTableOverrides(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Defaults.AutogeneratedColumns = []string{"created_at"}
	cfg.Defaults.Async = ptr(true)
	cfg.Tables["users"] = config.TableOptions{
		Async:                ptr(false),
		Ignore:               ptr(true),
		AutogeneratedColumns: []string{},
		CreateStrType:        ptr(config.StringCow),
		SingleModelFile:      true,
	}

	got := cfg.Table("users")
	assert.False(t, got.Async, "explicit override wins over default")
	assert.True(t, got.Ignore)
	assert.Empty(t, got.AutogeneratedColumns, "empty list is an explicit override")
	assert.NotNil(t, got.AutogeneratedColumns)
	assert.Equal(t, config.StringCow, got.CreateStrType)
	assert.Equal(t, config.StringOwned, got.UpdateStrType)
	assert.True(t, got.SingleModelFile)
	assert.True(t, got.Serde, "monotonic flags are OR-ed with the defaults")
	assert.True(t, got.Fns)
}

func TestTableMonotonicFlags(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Defaults.ReadOnly = true
	cfg.Tables["users"] = config.TableOptions{ReadOnly: false, Serde: false}

	got := cfg.Table("users")
	assert.True(t, got.ReadOnly)
	assert.True(t, got.Serde)

	cfg = config.Default()
	cfg.Defaults.Serde = false
	cfg.Tables["users"] = config.TableOptions{Serde: true}
	assert.True(t, cfg.Table("users").Serde)
	assert.False(t, cfg.Table("posts").Serde)
}

func TestTableReadOnlyAffixes(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.ReadOnlyPrefixes = []string{"view_"}
	cfg.ReadOnlySuffixes = []string{"_log"}
	cfg.Tables["view_users"] = config.TableOptions{ReadOnly: false}

	tests := []struct {
		table string
		want  bool
	}{
		{"view_users", true},
		{"audit_log", true},
		{"users", false},
		{"log_view", false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.table, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, cfg.Table(tt.table).ReadOnly)
		})
	}
}

func TestIsAutogenerated(t *testing.T) {
	t.Parallel()

	o := config.ResolvedTableOptions{AutogeneratedColumns: []string{"id", "created_at"}}
	assert.True(t, o.IsAutogenerated("id"))
	assert.False(t, o.IsAutogenerated("text"))
}

func TestParseStringAndBytesTypes(t *testing.T) {
	t.Parallel()

	s, err := config.ParseStringType("Cow")
	require.NoError(t, err)
	assert.Equal(t, "Cow<'a, str>", s.Rust())
	assert.Equal(t, "'a", s.Lifetime())

	s, err = config.ParseStringType("")
	require.NoError(t, err)
	assert.Equal(t, "String", s.Rust())
	assert.Empty(t, s.Lifetime())

	_, err = config.ParseStringType("rope")
	assert.ErrorIs(t, err, errs.ErrInvalidConfig)

	b, err := config.ParseBytesType("slice")
	require.NoError(t, err)
	assert.Equal(t, "&'a [u8]", b.Rust())

	_, err = config.ParseBytesType("array")
	assert.ErrorIs(t, err, errs.ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	require.NoError(t, cfg.Validate())

	cfg.SchemaPath = "crate::schema"
	assert.ErrorIs(t, cfg.Validate(), errs.ErrInvalidConfig)

	cfg = config.Default()
	cfg.Backend = nil
	assert.ErrorIs(t, cfg.Validate(), errs.ErrInvalidConfig)
	cfg.ConnectionType = "diesel::PgConnection"
	assert.NoError(t, cfg.Validate())
}

func TestConnection(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	assert.Contains(t, cfg.Connection(false), "diesel::PgConnection")
	assert.Contains(t, cfg.Connection(true), "AsyncPgConnection")

	cfg.ConnectionType = "MyConn"
	assert.Equal(t, "MyConn", cfg.Connection(true))
}
