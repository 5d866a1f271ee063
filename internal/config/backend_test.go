package config_test

import (
	"errors"
	"testing"

	"github.com/mickamy/dieselgen/internal/config"
	"github.com/mickamy/dieselgen/internal/errs"
)

func TestBackendByName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want config.Backend
	}{
		{"", config.Postgres},
		{"postgres", config.Postgres},
		{"PG", config.Postgres},
		{"mysql", config.MySQL},
		{"mariadb", config.MySQL},
		{"sqlite", config.SQLite},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := config.BackendByName(tt.name)
			if err != nil {
				t.Fatalf("BackendByName(%q): %v", tt.name, err)
			}
			if got != tt.want {
				t.Errorf("BackendByName(%q) = %s, want %s", tt.name, got.Name(), tt.want.Name())
			}
		})
	}
}

func TestBackendByNameUnknown(t *testing.T) {
	t.Parallel()

	if _, err := config.BackendByName("oracle"); err == nil {
		t.Fatal("expected error for unknown backend, got nil")
	} else if !errors.Is(err, errs.ErrInvalidConfig) {
		t.Errorf("BackendByName error = %v, want config error", err)
	}
}

func TestMySQLConnectionType(t *testing.T) {
	t.Parallel()

	want := "diesel::r2d2::PooledConnection<diesel::r2d2::ConnectionManager<diesel::MysqlConnection>>"
	if got := config.MySQL.ConnectionType(false); got != want {
		t.Errorf("MySQL.ConnectionType(false) = %q, want %q", got, want)
	}
}

func TestSQLiteConnectionType(t *testing.T) {
	t.Parallel()

	want := "diesel::r2d2::PooledConnection<diesel::r2d2::ConnectionManager<diesel::SqliteConnection>>"
	if got := config.SQLite.ConnectionType(false); got != want {
		t.Errorf("SQLite.ConnectionType(false) = %q, want %q", got, want)
	}
}

func TestPostgresAsyncConnectionType(t *testing.T) {
	t.Parallel()

	want := "diesel_async::pooled_connection::deadpool::Object<diesel_async::AsyncPgConnection>"
	if got := config.Postgres.ConnectionType(true); got != want {
		t.Errorf("Postgres.ConnectionType(true) = %q, want %q", got, want)
	}
}
