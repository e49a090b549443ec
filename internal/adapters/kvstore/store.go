// Package kvstore implements the request store over any ordered key-value
// backend. Writes are buffered per transaction and handed to the backend in
// one Commit call.
package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/example/lifebank/internal/core/errkind"
	corerequest "github.com/example/lifebank/internal/core/request"
	"github.com/example/lifebank/internal/ports/secondary"
)

// Entry is one key-value pair returned by a scan.
type Entry struct {
	Key   Key
	Value []byte
}

// Write is one buffered mutation. Delete ignores Value.
type Write struct {
	Key    Key
	Value  []byte
	Delete bool
}

// Backend is an ordered key-value store.
type Backend interface {
	// Get returns nil, nil when key is absent.
	Get(ctx context.Context, key Key) ([]byte, error)

	// Scan returns every entry whose key extends prefix, in key order.
	Scan(ctx context.Context, prefix Key) ([]Entry, error)

	// Commit applies writes as one unit.
	Commit(ctx context.Context, writes []Write) error
}

// Store implements secondary.RequestStore on a Backend.
type Store struct {
	backend Backend
	mu      sync.RWMutex
}

// New creates a Store over backend.
func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// Update runs fn in a write transaction and commits its buffer if fn succeeds.
func (s *Store) Update(ctx context.Context, fn func(tx secondary.RequestTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := newTx(ctx, s.backend)
	if err := fn(t); err != nil {
		return err
	}
	if len(t.order) == 0 {
		return nil
	}
	if err := s.backend.Commit(ctx, t.pending()); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// View runs fn against the committed state.
func (s *Store) View(ctx context.Context, fn func(r secondary.RequestReader) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return fn(newTx(ctx, s.backend))
}

type tx struct {
	ctx     context.Context
	backend Backend
	writes  map[string]Write
	order   []string
}

func newTx(ctx context.Context, backend Backend) *tx {
	return &tx{ctx: ctx, backend: backend, writes: make(map[string]Write)}
}

func (t *tx) set(key Key, value []byte) {
	t.stage(Write{Key: key, Value: value})
}

func (t *tx) delete(key Key) {
	t.stage(Write{Key: key, Delete: true})
}

func (t *tx) stage(w Write) {
	enc := w.Key.String()
	if _, ok := t.writes[enc]; !ok {
		t.order = append(t.order, enc)
	}
	t.writes[enc] = w
}

func (t *tx) pending() []Write {
	out := make([]Write, 0, len(t.order))
	for _, enc := range t.order {
		out = append(out, t.writes[enc])
	}
	return out
}

func (t *tx) get(key Key) ([]byte, error) {
	if w, ok := t.writes[key.String()]; ok {
		if w.Delete {
			return nil, nil
		}
		return w.Value, nil
	}
	value, err := t.backend.Get(t.ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key.Type, err)
	}
	return value, nil
}

// scan merges the backend's entries with this transaction's buffer.
func (t *tx) scan(prefix Key) ([]Entry, error) {
	committed, err := t.backend.Scan(t.ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", prefix.Type, err)
	}
	if len(t.writes) == 0 {
		return committed, nil
	}

	merged := make(map[string]Entry, len(committed))
	for _, e := range committed {
		merged[e.Key.String()] = e
	}
	for enc, w := range t.writes {
		if !w.Key.HasPrefix(prefix) {
			continue
		}
		if w.Delete {
			delete(merged, enc)
			continue
		}
		merged[enc] = Entry{Key: w.Key, Value: w.Value}
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Entry, len(keys))
	for i, k := range keys {
		out[i] = merged[k]
	}
	return out, nil
}

func (t *tx) Get(id uint64) (*corerequest.BloodRequest, error) {
	data, err := t.get(requestKey(id))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, errkind.New(errkind.NotFound, "request %d not found", id)
	}
	return decodeRequest(data)
}

func (t *tx) IDsByIndex(index corerequest.Index, key string) ([]uint64, error) {
	entries, err := t.scan(indexPrefix(index, key))
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(entries))
	for _, e := range entries {
		id, err := indexEntryID(e.Key)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (t *tx) IndexBuckets(index corerequest.Index) (map[string][]uint64, error) {
	entries, err := t.scan(Key{Type: string(index)})
	if err != nil {
		return nil, err
	}
	buckets := make(map[string][]uint64)
	for _, e := range entries {
		id, err := indexEntryID(e.Key)
		if err != nil {
			return nil, err
		}
		buckets[e.Key.Attrs[0]] = append(buckets[e.Key.Attrs[0]], id)
	}
	return buckets, nil
}

func (t *tx) Scan() ([]*corerequest.BloodRequest, error) {
	entries, err := t.scan(Key{Type: KeyTypeRequest})
	if err != nil {
		return nil, err
	}
	out := make([]*corerequest.BloodRequest, 0, len(entries))
	for _, e := range entries {
		r, err := decodeRequest(e.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (t *tx) Counter() (uint64, error) {
	data, err := t.get(metaKey(metaCounter))
	if err != nil || data == nil {
		return 0, err
	}
	n, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt request counter %q: %w", data, err)
	}
	return n, nil
}

func (t *tx) Admin() (string, bool, error) {
	data, err := t.get(metaKey(metaAdmin))
	if err != nil || data == nil {
		return "", false, err
	}
	return string(data), true, nil
}

func (t *tx) IsAuthorized(role secondary.Role, principal string) (bool, error) {
	data, err := t.get(principalKey(role, principal))
	if err != nil {
		return false, err
	}
	return data != nil, nil
}

func (t *tx) NextID() (uint64, error) {
	n, err := t.Counter()
	if err != nil {
		return 0, err
	}
	n++
	t.set(metaKey(metaCounter), []byte(strconv.FormatUint(n, 10)))
	return n, nil
}

func (t *tx) Put(r *corerequest.BloodRequest) error {
	if err := r.Validate(); err != nil {
		return err
	}

	var old *corerequest.BloodRequest
	existing, err := t.get(requestKey(r.ID))
	if err != nil {
		return err
	}
	if existing != nil {
		if old, err = decodeRequest(existing); err != nil {
			return err
		}
	}

	diff := corerequest.DiffIndexes(old, r)
	for _, e := range diff.Add {
		if err := indexKey(e).Validate(); err != nil {
			return err
		}
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode request %d: %w", r.ID, err)
	}
	t.set(requestKey(r.ID), data)

	for _, e := range diff.Remove {
		t.delete(indexKey(e))
	}
	for _, e := range diff.Add {
		t.set(indexKey(e), marker)
	}
	return nil
}

func (t *tx) SetAdmin(principal string) error {
	t.set(metaKey(metaAdmin), []byte(principal))
	return nil
}

func (t *tx) SetAuthorized(role secondary.Role, principal string, authorized bool) error {
	key := principalKey(role, principal)
	if err := key.Validate(); err != nil {
		return err
	}
	if authorized {
		t.set(key, marker)
	} else {
		t.delete(key)
	}
	return nil
}

func decodeRequest(data []byte) (*corerequest.BloodRequest, error) {
	var r corerequest.BloodRequest
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode request: %w", err)
	}
	if r.AssignedUnits == nil {
		r.AssignedUnits = []uint64{}
	}
	return &r, nil
}

func indexEntryID(k Key) (uint64, error) {
	if len(k.Attrs) != 2 {
		return 0, fmt.Errorf("malformed index key %q", k.String())
	}
	return ParseID(k.Attrs[1])
}

// Ensure Store implements the interface
var _ secondary.RequestStore = (*Store)(nil)
