// Package storetest runs the same behavioural checks against every
// secondary.RequestStore implementation.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"reflect"
	"slices"
	"testing"

	"github.com/example/lifebank/internal/core/errkind"
	corerequest "github.com/example/lifebank/internal/core/request"
	"github.com/example/lifebank/internal/ports/secondary"
)

// Now is the creation time used for every generated request.
const Now int64 = 1_700_000_000

// Factory returns an empty store. Cleanup is the factory's job.
type Factory func(t *testing.T) secondary.RequestStore

// Run executes every conformance check against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("EmptyStore", func(t *testing.T) { testEmptyStore(t, newStore(t)) })
	t.Run("NextIDIsMonotonic", func(t *testing.T) { testNextID(t, newStore(t)) })
	t.Run("FailedUpdateWritesNothing", func(t *testing.T) { testRollback(t, newStore(t)) })
	t.Run("RoundTrip", func(t *testing.T) { testRoundTrip(t, newStore(t)) })
	t.Run("ReadYourWrites", func(t *testing.T) { testReadYourWrites(t, newStore(t)) })
	t.Run("IndexMovesWithStatus", func(t *testing.T) { testIndexMoves(t, newStore(t)) })
	t.Run("IndexKeyIsolation", func(t *testing.T) { testIndexIsolation(t, newStore(t)) })
	t.Run("Registry", func(t *testing.T) { testRegistry(t, newStore(t)) })
	t.Run("PutRejectsInvalid", func(t *testing.T) { testPutRejectsInvalid(t, newStore(t)) })
	t.Run("IndexesMatchFullScan", func(t *testing.T) { testIndexesMatchScan(t, newStore(t)) })
}

// NewRequest builds a valid Pending request for hospital.
func NewRequest(t *testing.T, id uint64, hospital string) *corerequest.BloodRequest {
	t.Helper()
	r, err := corerequest.New(corerequest.NewRequest{
		HospitalID:      hospital,
		BloodType:       corerequest.OPositive,
		QuantityML:      450,
		Urgency:         corerequest.UrgencyCritical,
		RequiredBy:      Now + 3600,
		DeliveryAddress: "Main Bldg",
		Metadata:        corerequest.Metadata{PatientID: "P-1", Procedure: "surgery", Notes: "cross-matched"},
	}, id, Now)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	return r
}

// Create stores a fresh request through NextID and returns it.
func Create(t *testing.T, store secondary.RequestStore, hospital string) *corerequest.BloodRequest {
	t.Helper()
	var created *corerequest.BloodRequest
	err := store.Update(context.Background(), func(tx secondary.RequestTx) error {
		id, err := tx.NextID()
		if err != nil {
			return err
		}
		created = NewRequest(t, id, hospital)
		return tx.Put(created)
	})
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	return created
}

func get(t *testing.T, store secondary.RequestStore, id uint64) (*corerequest.BloodRequest, error) {
	t.Helper()
	var found *corerequest.BloodRequest
	err := store.View(context.Background(), func(r secondary.RequestReader) error {
		var err error
		found, err = r.Get(id)
		return err
	})
	return found, err
}

func put(t *testing.T, store secondary.RequestStore, r *corerequest.BloodRequest) {
	t.Helper()
	if err := store.Update(context.Background(), func(tx secondary.RequestTx) error { return tx.Put(r) }); err != nil {
		t.Fatalf("Put(%d) failed: %v", r.ID, err)
	}
}

func ids(t *testing.T, store secondary.RequestStore, index corerequest.Index, key string) []uint64 {
	t.Helper()
	var out []uint64
	err := store.View(context.Background(), func(r secondary.RequestReader) error {
		var err error
		out, err = r.IDsByIndex(index, key)
		return err
	})
	if err != nil {
		t.Fatalf("IDsByIndex(%s, %s) failed: %v", index, key, err)
	}
	return out
}

func testEmptyStore(t *testing.T, store secondary.RequestStore) {
	if _, err := get(t, store, 1); !errors.Is(err, errkind.ErrNotFound) {
		t.Errorf("Get(1) on empty store error = %v, want NotFound", err)
	}
	err := store.View(context.Background(), func(r secondary.RequestReader) error {
		counter, err := r.Counter()
		if err != nil {
			return err
		}
		if counter != 0 {
			t.Errorf("Counter() = %d, want 0", counter)
		}
		if _, ok, err := r.Admin(); err != nil || ok {
			t.Errorf("Admin() = (_, %v, %v), want absent", ok, err)
		}
		all, err := r.Scan()
		if err != nil {
			return err
		}
		if len(all) != 0 {
			t.Errorf("Scan() returned %d requests, want 0", len(all))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
}

func testNextID(t *testing.T, store secondary.RequestStore) {
	for want := uint64(1); want <= 3; want++ {
		if got := Create(t, store, "HOSP-1").ID; got != want {
			t.Errorf("created id = %d, want %d", got, want)
		}
	}
}

func testRollback(t *testing.T, store secondary.RequestStore) {
	boom := errors.New("boom")
	err := store.Update(context.Background(), func(tx secondary.RequestTx) error {
		id, err := tx.NextID()
		if err != nil {
			return err
		}
		if err := tx.Put(NewRequest(t, id, "HOSP-1")); err != nil {
			return err
		}
		if err := tx.SetAdmin("ADMIN"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Update() error = %v, want the closure's error", err)
	}

	if _, err := get(t, store, 1); !errors.Is(err, errkind.ErrNotFound) {
		t.Errorf("rolled back request is visible: %v", err)
	}
	if got := ids(t, store, corerequest.IndexHospital, "HOSP-1"); len(got) != 0 {
		t.Errorf("rolled back index entries are visible: %v", got)
	}
	if created := Create(t, store, "HOSP-1"); created.ID != 1 {
		t.Errorf("id after rollback = %d, want 1", created.ID)
	}
}

func testRoundTrip(t *testing.T, store secondary.RequestStore) {
	created := Create(t, store, "HOSP-1")

	approved, err := created.Transition(corerequest.StatusApproved, Now+10)
	if err != nil {
		t.Fatal(err)
	}
	fulfilled, err := approved.Transition(corerequest.StatusFulfilled, Now+20)
	if err != nil {
		t.Fatal(err)
	}
	withUnits, err := fulfilled.AssignUnits([]uint64{9, 3, 7})
	if err != nil {
		t.Fatal(err)
	}
	put(t, store, withUnits)

	got, err := get(t, store, created.ID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if !reflect.DeepEqual(got, withUnits) {
		t.Errorf("Get() = %+v, want %+v", got, withUnits)
	}
	if got.FulfilledAt == nil || *got.FulfilledAt != Now+20 {
		t.Errorf("FulfilledAt = %v, want %d", got.FulfilledAt, Now+20)
	}
}

func testReadYourWrites(t *testing.T, store secondary.RequestStore) {
	err := store.Update(context.Background(), func(tx secondary.RequestTx) error {
		id, err := tx.NextID()
		if err != nil {
			return err
		}
		if err := tx.Put(NewRequest(t, id, "HOSP-1")); err != nil {
			return err
		}
		if _, err := tx.Get(id); err != nil {
			t.Errorf("Get() inside transaction: %v", err)
		}
		got, err := tx.IDsByIndex(corerequest.IndexStatus, string(corerequest.StatusPending))
		if err != nil {
			return err
		}
		if !slices.Equal(got, []uint64{id}) {
			t.Errorf("IDsByIndex() inside transaction = %v, want [%d]", got, id)
		}
		counter, err := tx.Counter()
		if err != nil {
			return err
		}
		if counter != id {
			t.Errorf("Counter() inside transaction = %d, want %d", counter, id)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
}

func testIndexMoves(t *testing.T, store secondary.RequestStore) {
	r := Create(t, store, "HOSP-1")
	approved, _ := r.Transition(corerequest.StatusApproved, Now+1)
	put(t, store, approved)

	if got := ids(t, store, corerequest.IndexStatus, "Pending"); len(got) != 0 {
		t.Errorf("Pending bucket = %v, want empty", got)
	}
	if got := ids(t, store, corerequest.IndexStatus, "Approved"); !slices.Equal(got, []uint64{r.ID}) {
		t.Errorf("Approved bucket = %v, want [%d]", got, r.ID)
	}
	for _, tc := range []struct {
		index corerequest.Index
		key   string
	}{
		{corerequest.IndexHospital, "HOSP-1"},
		{corerequest.IndexBloodType, "O+"},
		{corerequest.IndexUrgency, "Critical"},
	} {
		if got := ids(t, store, tc.index, tc.key); !slices.Equal(got, []uint64{r.ID}) {
			t.Errorf("%s/%s = %v, want [%d]", tc.index, tc.key, got, r.ID)
		}
	}
}

func testIndexIsolation(t *testing.T, store secondary.RequestStore) {
	a := Create(t, store, "HOSP-1")
	b := Create(t, store, "HOSP-10")

	if got := ids(t, store, corerequest.IndexHospital, "HOSP-1"); !slices.Equal(got, []uint64{a.ID}) {
		t.Errorf("HOSP-1 bucket = %v, want [%d]", got, a.ID)
	}
	if got := ids(t, store, corerequest.IndexHospital, "HOSP-10"); !slices.Equal(got, []uint64{b.ID}) {
		t.Errorf("HOSP-10 bucket = %v, want [%d]", got, b.ID)
	}
}

func testRegistry(t *testing.T, store secondary.RequestStore) {
	ctx := context.Background()
	err := store.Update(ctx, func(tx secondary.RequestTx) error {
		if err := tx.SetAdmin("ADMIN"); err != nil {
			return err
		}
		if err := tx.SetAuthorized(secondary.RoleHospital, "HOSP-1", true); err != nil {
			return err
		}
		return tx.SetAuthorized(secondary.RoleBloodBank, "BANK-1", true)
	})
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if err := store.Update(ctx, func(tx secondary.RequestTx) error {
		return tx.SetAuthorized(secondary.RoleHospital, "HOSP-1", false)
	}); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}

	err = store.View(ctx, func(r secondary.RequestReader) error {
		admin, ok, err := r.Admin()
		if err != nil {
			return err
		}
		if !ok || admin != "ADMIN" {
			t.Errorf("Admin() = (%q, %v), want ADMIN", admin, ok)
		}
		checks := []struct {
			role      secondary.Role
			principal string
			want      bool
		}{
			{secondary.RoleHospital, "HOSP-1", false},
			{secondary.RoleBloodBank, "BANK-1", true},
			{secondary.RoleHospital, "BANK-1", false},
		}
		for _, c := range checks {
			got, err := r.IsAuthorized(c.role, c.principal)
			if err != nil {
				return err
			}
			if got != c.want {
				t.Errorf("IsAuthorized(%s, %s) = %v, want %v", c.role, c.principal, got, c.want)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
}

func testPutRejectsInvalid(t *testing.T, store secondary.RequestStore) {
	bad := NewRequest(t, 1, "HOSP-1")
	bad.QuantityML = 10
	err := store.Update(context.Background(), func(tx secondary.RequestTx) error { return tx.Put(bad) })
	if !errors.Is(err, errkind.ErrInvalidQuantity) {
		t.Errorf("Put(invalid) error = %v, want InvalidQuantity", err)
	}
}

// testIndexesMatchScan drives a random sequence of creates and transitions
// and then rebuilds every index from the primary records.
func testIndexesMatchScan(t *testing.T, store secondary.RequestStore) {
	rng := rand.New(rand.NewSource(42))
	hospitals := []string{"HOSP-1", "HOSP-2", "HOSP-3"}
	var live []uint64

	for step := 0; step < 60; step++ {
		if len(live) == 0 || rng.Intn(3) == 0 {
			r := Create(t, store, hospitals[rng.Intn(len(hospitals))])
			live = append(live, r.ID)
			continue
		}
		id := live[rng.Intn(len(live))]
		current, err := get(t, store, id)
		if err != nil {
			t.Fatalf("Get(%d) failed: %v", id, err)
		}
		next := current.Status.Next()
		if len(next) == 0 {
			continue
		}
		moved, err := current.Transition(next[rng.Intn(len(next))], Now+int64(step))
		if err != nil {
			t.Fatalf("Transition failed: %v", err)
		}
		put(t, store, moved)
	}

	err := store.View(context.Background(), func(r secondary.RequestReader) error {
		all, err := r.Scan()
		if err != nil {
			return err
		}
		if len(all) != len(live) {
			t.Errorf("Scan() returned %d requests, want %d", len(all), len(live))
		}
		for i := 1; i < len(all); i++ {
			if all[i-1].ID >= all[i].ID {
				t.Errorf("Scan() not in id order at %d", i)
			}
		}
		expected := corerequest.BuildIndexes(all)
		for _, idx := range corerequest.Indexes {
			stored, err := r.IndexBuckets(idx)
			if err != nil {
				return err
			}
			if !reflect.DeepEqual(normalize(stored), normalize(expected[idx])) {
				t.Errorf("index %s = %v, rebuilt %v", idx, stored, expected[idx])
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
}

func normalize(buckets map[string][]uint64) map[string]string {
	out := make(map[string]string, len(buckets))
	for k, v := range buckets {
		sorted := slices.Clone(v)
		slices.Sort(sorted)
		out[k] = fmt.Sprint(sorted)
	}
	return out
}
