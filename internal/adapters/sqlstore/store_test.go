package sqlstore_test

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/example/lifebank/internal/adapters/sqlstore"
	"github.com/example/lifebank/internal/adapters/storetest"
	"github.com/example/lifebank/internal/db"
	"github.com/example/lifebank/internal/ports/secondary"
)

// setupTestDB creates an in-memory database with the authoritative schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := sql.Open(db.DriverSQLite, db.WithForeignKeys(":memory:"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	// Every connection to :memory: is a separate database.
	testDB.SetMaxOpenConns(1)

	if _, err := testDB.Exec(db.GetSchemaSQL()); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) secondary.RequestStore {
		return sqlstore.NewStore(setupTestDB(t), db.DriverSQLite)
	})
}

// TestPostgresStore runs against a scratch database named by
// LIFEBANK_TEST_POSTGRES_DSN. Tables are dropped before each run.
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("LIFEBANK_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("LIFEBANK_TEST_POSTGRES_DSN not set")
	}

	storetest.Run(t, func(t *testing.T) secondary.RequestStore {
		database, err := sql.Open(db.DriverPostgres, dsn)
		if err != nil {
			t.Fatalf("failed to open postgres: %v", err)
		}
		t.Cleanup(func() { database.Close() })

		for _, table := range []string{"request_index", "requests", "counters", "settings", "principals", "schema_version"} {
			if _, err := database.Exec("DROP TABLE IF EXISTS " + table); err != nil {
				t.Fatalf("failed to drop %s: %v", table, err)
			}
		}
		if err := db.InitSchema(database, db.DriverPostgres); err != nil {
			t.Fatalf("failed to init schema: %v", err)
		}
		return sqlstore.NewStore(database, db.DriverPostgres)
	})
}

func TestStore_IndexRowsReferenceRequests(t *testing.T) {
	testDB := setupTestDB(t)
	store := sqlstore.NewStore(testDB, db.DriverSQLite)
	created := storetest.Create(t, store, "HOSP-1")

	var count int
	if err := testDB.QueryRow("SELECT COUNT(*) FROM request_index WHERE request_id = ?", created.ID).Scan(&count); err != nil {
		t.Fatalf("failed to count index rows: %v", err)
	}
	if count != 4 {
		t.Errorf("request %d has %d index rows, want 4", created.ID, count)
	}

	_, err := testDB.Exec("INSERT INTO request_index (index_name, bucket, request_id) VALUES ('STATUS~REQUESTS', 'Pending', 999)")
	if err == nil {
		t.Error("index row for a missing request was accepted")
	}
}

func TestStore_ViewDoesNotWrite(t *testing.T) {
	store := sqlstore.NewStore(setupTestDB(t), db.DriverSQLite)

	err := store.View(context.Background(), func(r secondary.RequestReader) error {
		tx, ok := r.(secondary.RequestTx)
		if !ok {
			return nil
		}
		_, err := tx.NextID()
		return err
	})
	if err != nil {
		t.Fatalf("View() failed: %v", err)
	}

	err = store.View(context.Background(), func(r secondary.RequestReader) error {
		n, err := r.Counter()
		if err != nil {
			return err
		}
		if n != 0 {
			t.Errorf("Counter() after View = %d, want 0", n)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View() failed: %v", err)
	}
}
