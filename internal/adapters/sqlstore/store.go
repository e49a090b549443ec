// Package sqlstore implements the request store on database/sql. The same
// queries serve SQLite (mattn/go-sqlite3) and Postgres (pgx).
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/lifebank/internal/core/errkind"
	corerequest "github.com/example/lifebank/internal/core/request"
	"github.com/example/lifebank/internal/db"
	"github.com/example/lifebank/internal/ports/secondary"
)

const (
	counterRequests = "requests"
	settingAdmin    = "admin"
)

const requestColumns = "id, hospital_id, blood_type, quantity_ml, urgency, status, created_at, required_by, fulfilled_at, assigned_units, delivery_address, metadata"

// Store implements secondary.RequestStore with SQL transactions.
type Store struct {
	db     *sql.DB
	driver string
}

// NewStore creates a store over an open database. driver selects the
// placeholder style and must be db.DriverSQLite or db.DriverPostgres.
func NewStore(database *sql.DB, driver string) *Store {
	return &Store{db: database, driver: driver}
}

// Update runs fn inside a database transaction, committing only on success.
func (s *Store) Update(ctx context.Context, fn func(tx secondary.RequestTx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(&tx{ctx: ctx, tx: sqlTx, driver: s.driver}); err != nil {
		sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// View runs fn inside a read-only transaction that is always rolled back.
func (s *Store) View(ctx context.Context, fn func(r secondary.RequestReader) error) error {
	sqlTx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	return fn(&tx{ctx: ctx, tx: sqlTx, driver: s.driver})
}

type tx struct {
	ctx    context.Context
	tx     *sql.Tx
	driver string
}

func (t *tx) exec(query string, args ...any) error {
	_, err := t.tx.ExecContext(t.ctx, db.Rebind(t.driver, query), args...)
	return err
}

func (t *tx) queryRow(query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(t.ctx, db.Rebind(t.driver, query), args...)
}

func (t *tx) query(query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(t.ctx, db.Rebind(t.driver, query), args...)
}

func (t *tx) Get(id uint64) (*corerequest.BloodRequest, error) {
	r, err := scanRequest(t.queryRow("SELECT "+requestColumns+" FROM requests WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errkind.New(errkind.NotFound, "request %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	return r, nil
}

func (t *tx) IDsByIndex(index corerequest.Index, key string) ([]uint64, error) {
	rows, err := t.query(
		"SELECT request_id FROM request_index WHERE index_name = ? AND bucket = ? ORDER BY request_id",
		string(index), key,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query index %s: %w", index, err)
	}
	defer rows.Close()

	ids := []uint64{}
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan index row: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (t *tx) IndexBuckets(index corerequest.Index) (map[string][]uint64, error) {
	rows, err := t.query(
		"SELECT bucket, request_id FROM request_index WHERE index_name = ? ORDER BY bucket, request_id",
		string(index),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query index %s: %w", index, err)
	}
	defer rows.Close()

	buckets := make(map[string][]uint64)
	for rows.Next() {
		var (
			bucket string
			id     uint64
		)
		if err := rows.Scan(&bucket, &id); err != nil {
			return nil, fmt.Errorf("failed to scan index row: %w", err)
		}
		buckets[bucket] = append(buckets[bucket], id)
	}
	return buckets, rows.Err()
}

func (t *tx) Scan() ([]*corerequest.BloodRequest, error) {
	rows, err := t.query("SELECT " + requestColumns + " FROM requests ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	defer rows.Close()

	var out []*corerequest.BloodRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (t *tx) Counter() (uint64, error) {
	var n uint64
	err := t.queryRow("SELECT value FROM counters WHERE name = ?", counterRequests).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read request counter: %w", err)
	}
	return n, nil
}

func (t *tx) Admin() (string, bool, error) {
	var admin string
	err := t.queryRow("SELECT value FROM settings WHERE name = ?", settingAdmin).Scan(&admin)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read admin: %w", err)
	}
	return admin, true, nil
}

func (t *tx) IsAuthorized(role secondary.Role, principal string) (bool, error) {
	var count int
	err := t.queryRow(
		"SELECT COUNT(*) FROM principals WHERE role = ? AND principal = ?",
		string(role), principal,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check %s registry: %w", role, err)
	}
	return count > 0, nil
}

// NextID bumps the counter in place so concurrent Postgres transactions
// serialize on the counter row.
func (t *tx) NextID() (uint64, error) {
	if err := t.exec(
		"INSERT INTO counters (name, value) VALUES (?, 0) ON CONFLICT (name) DO NOTHING",
		counterRequests,
	); err != nil {
		return 0, fmt.Errorf("failed to seed request counter: %w", err)
	}

	var n uint64
	if err := t.queryRow(
		"UPDATE counters SET value = value + 1 WHERE name = ? RETURNING value",
		counterRequests,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to increment request counter: %w", err)
	}
	return n, nil
}

func (t *tx) Put(r *corerequest.BloodRequest) error {
	if err := r.Validate(); err != nil {
		return err
	}

	var old *corerequest.BloodRequest
	existing, err := t.Get(r.ID)
	switch {
	case err == nil:
		old = existing
	case !errors.Is(err, errkind.ErrNotFound):
		return err
	}

	units, err := json.Marshal(r.AssignedUnits)
	if err != nil {
		return fmt.Errorf("failed to encode assigned units: %w", err)
	}
	metadata, err := json.Marshal(r.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	var fulfilledAt sql.NullInt64
	if r.FulfilledAt != nil {
		fulfilledAt = sql.NullInt64{Int64: *r.FulfilledAt, Valid: true}
	}

	err = t.exec(`INSERT INTO requests (`+requestColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			hospital_id = excluded.hospital_id,
			blood_type = excluded.blood_type,
			quantity_ml = excluded.quantity_ml,
			urgency = excluded.urgency,
			status = excluded.status,
			created_at = excluded.created_at,
			required_by = excluded.required_by,
			fulfilled_at = excluded.fulfilled_at,
			assigned_units = excluded.assigned_units,
			delivery_address = excluded.delivery_address,
			metadata = excluded.metadata`,
		r.ID, r.HospitalID, string(r.BloodType), r.QuantityML, string(r.Urgency), string(r.Status),
		r.CreatedAt, r.RequiredBy, fulfilledAt, string(units), r.DeliveryAddress, string(metadata),
	)
	if err != nil {
		return fmt.Errorf("failed to store request %d: %w", r.ID, err)
	}

	diff := corerequest.DiffIndexes(old, r)
	for _, e := range diff.Remove {
		if err := t.exec(
			"DELETE FROM request_index WHERE index_name = ? AND bucket = ? AND request_id = ?",
			string(e.Index), e.Key, e.ID,
		); err != nil {
			return fmt.Errorf("failed to remove %s entry: %w", e.Index, err)
		}
	}
	for _, e := range diff.Add {
		if err := t.exec(
			"INSERT INTO request_index (index_name, bucket, request_id) VALUES (?, ?, ?)",
			string(e.Index), e.Key, e.ID,
		); err != nil {
			return fmt.Errorf("failed to add %s entry: %w", e.Index, err)
		}
	}
	return nil
}

func (t *tx) SetAdmin(principal string) error {
	if err := t.exec(
		"INSERT INTO settings (name, value) VALUES (?, ?) ON CONFLICT (name) DO UPDATE SET value = excluded.value",
		settingAdmin, principal,
	); err != nil {
		return fmt.Errorf("failed to set admin: %w", err)
	}
	return nil
}

func (t *tx) SetAuthorized(role secondary.Role, principal string, authorized bool) error {
	var err error
	if authorized {
		err = t.exec(
			"INSERT INTO principals (role, principal) VALUES (?, ?) ON CONFLICT (role, principal) DO NOTHING",
			string(role), principal,
		)
	} else {
		err = t.exec("DELETE FROM principals WHERE role = ? AND principal = ?", string(role), principal)
	}
	if err != nil {
		return fmt.Errorf("failed to update %s registry: %w", role, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*corerequest.BloodRequest, error) {
	var (
		r           corerequest.BloodRequest
		bloodType   string
		urgency     string
		status      string
		fulfilledAt sql.NullInt64
		units       string
		metadata    string
	)
	if err := row.Scan(
		&r.ID, &r.HospitalID, &bloodType, &r.QuantityML, &urgency, &status,
		&r.CreatedAt, &r.RequiredBy, &fulfilledAt, &units, &r.DeliveryAddress, &metadata,
	); err != nil {
		return nil, err
	}

	r.BloodType = corerequest.BloodType(bloodType)
	r.Urgency = corerequest.Urgency(urgency)
	r.Status = corerequest.Status(status)
	if fulfilledAt.Valid {
		ts := fulfilledAt.Int64
		r.FulfilledAt = &ts
	}
	if err := json.Unmarshal([]byte(units), &r.AssignedUnits); err != nil {
		return nil, fmt.Errorf("failed to decode assigned units of request %d: %w", r.ID, err)
	}
	if r.AssignedUnits == nil {
		r.AssignedUnits = []uint64{}
	}
	if err := json.Unmarshal([]byte(metadata), &r.Metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata of request %d: %w", r.ID, err)
	}
	return &r, nil
}

// Ensure Store implements the interface
var _ secondary.RequestStore = (*Store)(nil)
