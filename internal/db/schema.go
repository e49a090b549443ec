package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// SchemaVersion is the version recorded in schema_version for SchemaSQL.
const SchemaVersion = 1

// SchemaSQL is the complete schema for the request store. It is valid for
// both SQLite and Postgres.
//
// # Schema Drift Protection
//
// This is the SINGLE SOURCE OF TRUTH for the database schema. All tests use
// this schema via GetSchemaSQL(). If store code references a column that
// doesn't exist here, tests fail immediately with "no such column".
//
// When adding new columns or tables:
//  1. Bump SchemaVersion
//  2. Update SchemaSQL here
//  3. Run `make test` to verify alignment
const SchemaSQL = `
-- Blood requests (primary records)
CREATE TABLE IF NOT EXISTS requests (
	id BIGINT PRIMARY KEY,
	hospital_id TEXT NOT NULL,
	blood_type TEXT NOT NULL CHECK(blood_type IN ('A+', 'A-', 'B+', 'B-', 'AB+', 'AB-', 'O+', 'O-')),
	quantity_ml INTEGER NOT NULL,
	urgency TEXT NOT NULL CHECK(urgency IN ('Critical', 'Urgent', 'Normal')),
	status TEXT NOT NULL CHECK(status IN ('Pending', 'Approved', 'Fulfilled', 'Completed', 'Rejected', 'Cancelled')),
	created_at BIGINT NOT NULL,
	required_by BIGINT NOT NULL,
	fulfilled_at BIGINT,
	assigned_units TEXT NOT NULL DEFAULT '[]',
	delivery_address TEXT NOT NULL,
	metadata TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_requests_created_at ON requests(created_at);

-- Secondary indexes (hospital, blood type, status, urgency buckets)
CREATE TABLE IF NOT EXISTS request_index (
	index_name TEXT NOT NULL,
	bucket TEXT NOT NULL,
	request_id BIGINT NOT NULL REFERENCES requests(id),
	PRIMARY KEY (index_name, bucket, request_id)
);

-- Durable id counters
CREATE TABLE IF NOT EXISTS counters (
	name TEXT PRIMARY KEY,
	value BIGINT NOT NULL
);

-- Singleton settings (admin principal)
CREATE TABLE IF NOT EXISTS settings (
	name TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

-- Hospital and blood bank registries
CREATE TABLE IF NOT EXISTS principals (
	role TEXT NOT NULL CHECK(role IN ('HOSPITAL', 'BLOODBANK')),
	principal TEXT NOT NULL,
	PRIMARY KEY (role, principal)
);

CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY
);
`

// InitSchema creates the database schema and records SchemaVersion.
// Re-running it against an existing database is a no-op.
func InitSchema(database *sql.DB, driver string) error {
	for _, stmt := range SplitStatements(SchemaSQL) {
		if _, err := database.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	var current int
	if err := database.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}
	if current > SchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", current, SchemaVersion)
	}
	if current == SchemaVersion {
		return nil
	}

	if _, err := database.Exec(Rebind(driver, "INSERT INTO schema_version (version) VALUES (?)"), SchemaVersion); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return nil
}

// GetSchemaSQL returns the authoritative schema SQL for use by tests.
// Tests should use this instead of hardcoding their own schema to prevent drift.
func GetSchemaSQL() string {
	return SchemaSQL
}

// SplitStatements splits a script on semicolons, dropping comment-only and
// blank fragments.
func SplitStatements(script string) []string {
	var out []string
	for _, part := range strings.Split(script, ";") {
		var lines []string
		for _, line := range strings.Split(part, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "--") {
				continue
			}
			lines = append(lines, line)
		}
		stmt := strings.TrimSpace(strings.Join(lines, "\n"))
		if stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
