package cmd

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/dieselgen/internal/config"
	"github.com/mickamy/dieselgen/internal/errs"
	"github.com/mickamy/dieselgen/internal/syncer"
)

const testSchema = `
diesel::table! {
    users (id) {
        id -> Int4,
        name -> Text,
    }
}

diesel::table! {
    todos (id) {
        id -> Int4,
        user_id -> Int4,
        text -> Text,
    }
}

diesel::joinable!(todos -> users (user_id));
`

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootGenerate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "schema.rs")
	output := filepath.Join(dir, "models")
	writeFile(t, input, testSchema)

	got, err := run(t, "-i", input, "-o", output)
	require.NoError(t, err)
	assert.Contains(t, got, "Modified "+filepath.Join(output, "todos", "generated.rs")+"\n")
	assert.True(t, strings.HasSuffix(got, "Modified 5 files\n"))
	assert.Equal(t, "pub mod users;\npub mod todos;\n", readFile(t, filepath.Join(output, "mod.rs")))

	got, err = run(t, "-i", input, "-o", output)
	require.NoError(t, err)
	assert.Contains(t, got, "Unchanged "+filepath.Join(output, "mod.rs")+"\n")
	assert.True(t, strings.HasSuffix(got, "Modified 0 files\n"))
}

func TestRootFlags(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "schema.rs")
	output := filepath.Join(dir, "models")
	writeFile(t, input, testSchema)

	_, err := run(t,
		"-i", input, "-o", output,
		"--no-serde", "--async", "--create-str", "str",
		"-g", "id", "--readonly-suffix", "users",
		"--single-model-file", "--singular-struct-names",
		"--model-path", "crate::db::models::",
	)
	require.NoError(t, err)

	todos := readFile(t, filepath.Join(output, "todos.rs"))
	assert.NotContains(t, todos, "Serialize")
	assert.Contains(t, todos, "pub async fn read(")
	assert.Contains(t, todos, "pub struct CreateTodo<'a> {")
	assert.Contains(t, todos, "    pub text: &'a str,")
	assert.Contains(t, todos, "use crate::db::models::users::User;")

	users := readFile(t, filepath.Join(output, "users.rs"))
	assert.NotContains(t, users, "fn create(")
	assert.Contains(t, users, "pub struct User {")
}

func TestRootNoCrud(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "schema.rs")
	output := filepath.Join(dir, "models")
	writeFile(t, input, testSchema)

	_, err := run(t, "-i", input, "-o", output, "--no-crud", "-c", "MyConnection")
	require.NoError(t, err)

	todos := readFile(t, filepath.Join(output, "todos", "generated.rs"))
	assert.NotContains(t, todos, "impl Todos")
	assert.Contains(t, todos, "type Connection = MyConnection;")
}

func TestRootConfigFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "schema.rs")
	output := filepath.Join(dir, "models")
	writeFile(t, input, testSchema)
	cfgFile := filepath.Join(dir, "dieselgen.yaml")
	writeFile(t, cfgFile, `
input: `+input+`
output: `+output+`
backend: sqlite
once_common_structs: true
defaults:
  autogenerated_columns: [id]
tables:
  - name: users
    ignore: true
  - name: todos
    readonly: true
`)

	got, err := run(t, "--config", cfgFile)
	require.NoError(t, err)
	assert.Contains(t, got, "Modified "+filepath.Join(output, "common.rs")+"\n")

	assert.NoDirExists(t, filepath.Join(output, "users"))
	todos := readFile(t, filepath.Join(output, "todos", "generated.rs"))
	assert.NotContains(t, todos, "fn create(")
	assert.NotContains(t, todos, "belongs_to", "joins to ignored tables are dropped")
	assert.Contains(t, todos, "diesel::SqliteConnection")
	assert.Contains(t, readFile(t, filepath.Join(output, "common.rs")), "pub struct PaginationResult<T>")
}

func TestRootErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "schema.rs")
	writeFile(t, input, testSchema)
	output := filepath.Join(dir, "models")

	tests := []struct {
		name string
		args []string
	}{
		{"missing input", []string{"-o", output}},
		{"missing output", []string{"-i", input}},
		{"unknown backend", []string{"-i", input, "-o", output, "--backend", "oracle"}},
		{"unknown string type", []string{"-i", input, "-o", output, "--update-str", "slice"}},
		{"unknown bytes type", []string{"-i", input, "-o", output, "--create-bytes", "str"}},
		{"schema path without separator", []string{"-i", input, "-o", output, "--schema-path", "crate::schema"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := run(t, tt.args...)
			assert.ErrorIs(t, err, errs.ErrInvalidConfig)
		})
	}
}

func TestRootReportsPartialChanges(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "schema.rs")
	output := filepath.Join(dir, "models")
	writeFile(t, input, testSchema)
	writeFile(t, filepath.Join(output, "todos", "generated.rs"), "// mine\n")

	got, err := run(t, "-i", input, "-o", output)
	require.ErrorIs(t, err, errs.ErrNoFileSignature)
	assert.Contains(t, got, "Modified "+filepath.Join(output, "users", "generated.rs")+"\n")
	assert.True(t, strings.HasSuffix(got, "Modified 2 files\n"))
}

func TestInspect(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "schema.rs")
	writeFile(t, input, testSchema)

	got, err := run(t, "inspect", "-i", input, "--singular-struct-names")
	require.NoError(t, err)
	assert.Contains(t, got, "name: users")
	assert.Contains(t, got, "struct_name: Todo\n")
	assert.Contains(t, got, "primary_keys:")
	assert.Contains(t, got, "table: users")
	assert.Contains(t, got, "column: user_id")
	assert.NotContains(t, got, "Modified")
	assert.NoDirExists(t, filepath.Join(dir, "models"))
}

func TestVersion(t *testing.T) {
	t.Parallel()

	got, err := run(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, got, "dieselgen version ")
}

func TestGenerationConfig(t *testing.T) {
	t.Parallel()

	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(`
input: schema.rs
connection_type: MyConn
readonly_prefixes: [view_]
defaults:
  serde: false
  create_str: cow
tables:
  - name: tableA
    async: true
    update_bytes: slice
    single_model_file: true
`)))

	fc, err := loadFileConfig(v)
	require.NoError(t, err)
	cfg, err := fc.generationConfig()
	require.NoError(t, err)

	assert.Equal(t, "MyConn", cfg.Connection(false))
	assert.Equal(t, "crate::schema::", cfg.SchemaPath)
	assert.Equal(t, []string{"view_"}, cfg.ReadOnlyPrefixes)
	assert.False(t, cfg.Defaults.Serde)
	assert.True(t, cfg.Defaults.Fns)

	require.Contains(t, cfg.Tables, "tableA", "table names keep their case")
	a := cfg.Table("tableA")
	assert.True(t, a.Async)
	assert.True(t, a.SingleModelFile)
	assert.Equal(t, config.StringCow, a.CreateStrType)
	assert.Equal(t, config.BytesSlice, a.UpdateBytesType)
	assert.Equal(t, config.StringOwned, a.UpdateStrType)

	assert.True(t, cfg.Table("view_users").ReadOnly)
}

func TestGenerationConfigDuplicateTable(t *testing.T) {
	t.Parallel()

	fc := fileConfig{
		Backend: "postgres",
		Tables:  []tableConfig{{Name: "todos"}, {Name: "todos"}},
	}
	_, err := fc.generationConfig()
	assert.ErrorIs(t, err, errs.ErrInvalidConfig)

	fc.Tables = []tableConfig{{}}
	_, err = fc.generationConfig()
	assert.ErrorIs(t, err, errs.ErrInvalidConfig)
}

func TestReport(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	report(&buf, []syncer.Change{
		{Path: "models/todos/generated.rs", Status: syncer.Modified},
		{Path: "models/todos/mod.rs", Status: syncer.Unchanged},
		{Path: "models/users", Status: syncer.Deleted},
	})
	assert.Equal(t, `Modified models/todos/generated.rs
Unchanged models/todos/mod.rs
Deleted models/users
Modified 2 files
`, buf.String())
}

func TestWatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "schema.rs")
	output := filepath.Join(dir, "models")
	writeFile(t, input, testSchema)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	go func() {
		done <- watch(ctx, io.Discard, input, output, config.Default(), logger)
	}()

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(output, "todos", "generated.rs"))
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	writeFile(t, input, testSchema+"\ndiesel::table! {\n    tags (id) {\n        id -> Int4,\n    }\n}\n")
	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(output, "tags", "generated.rs"))
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}
