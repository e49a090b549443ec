package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "github.com/mattn/go-sqlite3"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// GetDBPath returns the path to the default SQLite database file
func GetDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".lifebank", "lifebank.db"), nil
}

// Open opens a connection pool for driver and makes sure the schema exists.
// An empty dsn with the sqlite3 driver uses GetDBPath.
func Open(driver, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverSQLite:
		if dsn == "" {
			path, err := GetDBPath()
			if err != nil {
				return nil, err
			}
			// Ensure .lifebank directory exists
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return nil, fmt.Errorf("failed to create .lifebank directory: %w", err)
			}
			dsn = path
		}
	case DriverPostgres:
		if dsn == "" {
			return nil, fmt.Errorf("a dsn is required for the %s driver", driver)
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	if driver == DriverSQLite {
		dsn = WithForeignKeys(dsn)
	}

	database, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == DriverSQLite {
		// In-memory databases exist per connection.
		if strings.Contains(dsn, ":memory:") {
			database.SetMaxOpenConns(1)
		}
	}

	if err := InitSchema(database, driver); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return database, nil
}

// Rebind rewrites ? placeholders into the $n form postgres expects.
// Queries passed here must not contain literal question marks.
func Rebind(driver, query string) string {
	if driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// WithForeignKeys adds _foreign_keys=on to a sqlite3 dsn so every pooled
// connection enforces foreign keys, not just the first.
func WithForeignKeys(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys=") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_foreign_keys=on"
	}
	return dsn + "?_foreign_keys=on"
}
