package app

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/example/lifebank/internal/adapters/events"
	"github.com/example/lifebank/internal/adapters/identity"
	"github.com/example/lifebank/internal/adapters/kvstore"
	corerequest "github.com/example/lifebank/internal/core/request"
	"github.com/example/lifebank/internal/ports/primary"
	"github.com/example/lifebank/internal/ports/secondary"
)

const testNow int64 = 1_700_000_000

// Ensure mockCallerIdentity implements the interface
var _ secondary.CallerIdentityProvider = (*mockCallerIdentity)(nil)

// mockCallerIdentity implements secondary.CallerIdentityProvider for testing.
type mockCallerIdentity struct {
	caller string
	err    error
}

func (m *mockCallerIdentity) GetCaller(ctx context.Context) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.caller, nil
}

// Ensure mockSnapshotSink implements the interface
var _ secondary.SnapshotSink = (*mockSnapshotSink)(nil)

// mockSnapshotSink implements secondary.SnapshotSink for testing.
type mockSnapshotSink struct {
	name     string
	data     []byte
	writeErr error
}

func (m *mockSnapshotSink) Write(ctx context.Context, name string, data []byte) (string, error) {
	if m.writeErr != nil {
		return "", m.writeErr
	}
	m.name = name
	m.data = data
	return "mock://" + name, nil
}

// testHarness wires a RequestService over an in-memory store.
type testHarness struct {
	t         *testing.T
	backend   *kvstore.MemoryBackend
	store     *kvstore.Store
	clock     *identity.FixedClock
	identity  *mockCallerIdentity
	publisher *events.Recorder
	service   *RequestServiceImpl
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()
	backend := kvstore.NewMemoryBackend()
	h := &testHarness{
		t:         t,
		backend:   backend,
		store:     kvstore.New(backend),
		clock:     &identity.FixedClock{T: testNow},
		identity:  &mockCallerIdentity{},
		publisher: events.NewRecorder(),
	}
	h.service = NewRequestService(h.store, h.clock, h.identity, h.publisher, zerolog.Nop())
	return h
}

// newInitializedHarness returns a harness with ADMIN as admin, HOSP-1
// authorized as a hospital and BANK-1 as a blood bank.
func newInitializedHarness(t *testing.T) *testHarness {
	t.Helper()
	h := newTestHarness(t)
	h.as("ADMIN")
	h.must(h.service.Initialize(context.Background(), "ADMIN"))
	h.must(h.service.AuthorizeHospital(context.Background(), "HOSP-1"))
	h.must(h.service.AuthorizeBloodBank(context.Background(), "BANK-1"))
	return h
}

func (h *testHarness) as(caller string) *testHarness {
	h.identity.caller = caller
	return h
}

func (h *testHarness) at(now int64) *testHarness {
	h.clock.T = now
	return h
}

func (h *testHarness) must(err error) {
	h.t.Helper()
	if err != nil {
		h.t.Fatalf("unexpected error: %v", err)
	}
}

// create submits a valid request as hospital and returns its id.
func (h *testHarness) create(hospital string, urgency corerequest.Urgency) uint64 {
	h.t.Helper()
	h.as(hospital)
	id, err := h.service.CreateRequest(context.Background(), validCreate(hospital, urgency, h.clock.T))
	if err != nil {
		h.t.Fatalf("CreateRequest(%s) failed: %v", hospital, err)
	}
	return id
}

func (h *testHarness) get(id uint64) *corerequest.BloodRequest {
	h.t.Helper()
	r, err := h.service.GetRequest(context.Background(), id)
	if err != nil {
		h.t.Fatalf("GetRequest(%d) failed: %v", id, err)
	}
	return r
}

func validCreate(hospital string, urgency corerequest.Urgency, now int64) primary.CreateRequestRequest {
	return primary.CreateRequestRequest{
		HospitalID:      hospital,
		BloodType:       corerequest.OPositive,
		QuantityML:      450,
		Urgency:         urgency,
		RequiredBy:      now + 3600,
		DeliveryAddress: "Main Bldg",
	}
}

var errPublish = errors.New("broker unavailable")
