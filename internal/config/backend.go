package config

import (
	"strings"

	"github.com/mickamy/dieselgen/internal/errs"
)

// Backend abstracts the differences between diesel backends that matter
// to generated code.
type Backend interface {
	// Name returns the backend name used in configuration ("postgres", ...).
	Name() string

	// ConnectionType returns the default Rust connection type. With async
	// set the diesel_async equivalent is returned.
	ConnectionType(async bool) string
}

// Postgres is the Backend for PostgreSQL.
var Postgres Backend = postgresBackend{}

// MySQL is the Backend for MySQL / MariaDB.
var MySQL Backend = mysqlBackend{}

// SQLite is the Backend for SQLite.
var SQLite Backend = sqliteBackend{}

// BackendByName returns the Backend registered under name.
func BackendByName(name string) (Backend, error) {
	switch strings.ToLower(name) {
	case "", "postgres", "postgresql", "pg":
		return Postgres, nil
	case "mysql", "mariadb":
		return MySQL, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return nil, errs.NewConfigError("backend", name, "use postgres, mysql or sqlite")
	}
}

type postgresBackend struct{}

func (postgresBackend) Name() string { return "postgres" }
func (postgresBackend) ConnectionType(async bool) string {
	if async {
		return "diesel_async::pooled_connection::deadpool::Object<diesel_async::AsyncPgConnection>"
	}
	return "diesel::r2d2::PooledConnection<diesel::r2d2::ConnectionManager<diesel::PgConnection>>"
}

type mysqlBackend struct{}

func (mysqlBackend) Name() string { return "mysql" }
func (mysqlBackend) ConnectionType(async bool) string {
	if async {
		return "diesel_async::pooled_connection::deadpool::Object<diesel_async::AsyncMysqlConnection>"
	}
	return "diesel::r2d2::PooledConnection<diesel::r2d2::ConnectionManager<diesel::MysqlConnection>>"
}

type sqliteBackend struct{}

func (sqliteBackend) Name() string { return "sqlite" }
func (sqliteBackend) ConnectionType(async bool) string {
	if async {
		return "diesel_async::sync_connection_wrapper::SyncConnectionWrapper<diesel::SqliteConnection>"
	}
	return "diesel::r2d2::PooledConnection<diesel::r2d2::ConnectionManager<diesel::SqliteConnection>>"
}
