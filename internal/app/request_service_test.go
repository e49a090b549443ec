package app

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/example/lifebank/internal/adapters/kvstore"
	"github.com/example/lifebank/internal/core/errkind"
	corerequest "github.com/example/lifebank/internal/core/request"
	"github.com/example/lifebank/internal/ports/secondary"
)

// ============================================================================
// Initialize and registry
// ============================================================================

func TestInitialize(t *testing.T) {
	tests := []struct {
		name    string
		caller  string
		admin   string
		setup   func(h *testHarness)
		wantErr error
	}{
		{name: "admin initializes itself", caller: "ADMIN", admin: "ADMIN"},
		{name: "caller differs from admin", caller: "HOSP-1", admin: "ADMIN", wantErr: errkind.ErrUnauthorized},
		{name: "empty admin", caller: "ADMIN", admin: "", wantErr: errkind.ErrInvalidInput},
		{
			name:   "second initialize",
			caller: "ADMIN",
			admin:  "ADMIN",
			setup: func(h *testHarness) {
				h.must(h.service.Initialize(context.Background(), "ADMIN"))
			},
			wantErr: errkind.ErrAlreadyInitialized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHarness(t).as(tt.caller)
			if tt.setup != nil {
				tt.setup(h)
			}
			err := h.service.Initialize(context.Background(), tt.admin)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Initialize() failed: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Initialize() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestInitialize_CallerLookupFails(t *testing.T) {
	h := newTestHarness(t)
	h.identity.err = errkind.New(errkind.Unauthorized, "no certificate")
	if err := h.service.Initialize(context.Background(), "ADMIN"); !errors.Is(err, errkind.ErrUnauthorized) {
		t.Errorf("Initialize() error = %v, want Unauthorized", err)
	}
}

func TestRegistry(t *testing.T) {
	h := newInitializedHarness(t)
	ctx := context.Background()

	if ok, err := h.service.IsHospitalAuthorized(ctx, "HOSP-1"); err != nil || !ok {
		t.Errorf("IsHospitalAuthorized(HOSP-1) = (%v, %v), want true", ok, err)
	}
	if ok, _ := h.service.IsHospitalAuthorized(ctx, "ADMIN"); !ok {
		t.Error("IsHospitalAuthorized(ADMIN) = false, admin is always authorized")
	}

	h.must(h.service.RevokeHospital(ctx, "HOSP-1"))
	if ok, _ := h.service.IsHospitalAuthorized(ctx, "HOSP-1"); ok {
		t.Error("IsHospitalAuthorized(HOSP-1) = true after revoke")
	}
	// Revoking again is a no-op.
	h.must(h.service.RevokeHospital(ctx, "HOSP-1"))

	h.as("HOSP-1")
	if err := h.service.AuthorizeHospital(ctx, "HOSP-2"); !errors.Is(err, errkind.ErrUnauthorized) {
		t.Errorf("AuthorizeHospital() by non-admin error = %v, want Unauthorized", err)
	}
	if err := h.service.RevokeBloodBank(ctx, "BANK-1"); !errors.Is(err, errkind.ErrUnauthorized) {
		t.Errorf("RevokeBloodBank() by non-admin error = %v, want Unauthorized", err)
	}
}

func TestRegistry_RequiresInitialization(t *testing.T) {
	h := newTestHarness(t).as("ADMIN")
	ctx := context.Background()

	if err := h.service.AuthorizeHospital(ctx, "HOSP-1"); !errors.Is(err, errkind.ErrNotInitialized) {
		t.Errorf("AuthorizeHospital() error = %v, want NotInitialized", err)
	}
	if _, err := h.service.IsHospitalAuthorized(ctx, "HOSP-1"); !errors.Is(err, errkind.ErrNotInitialized) {
		t.Errorf("IsHospitalAuthorized() error = %v, want NotInitialized", err)
	}
	if _, err := h.service.CreateRequest(ctx, validCreate("ADMIN", corerequest.UrgencyNormal, testNow)); !errors.Is(err, errkind.ErrNotInitialized) {
		t.Errorf("CreateRequest() error = %v, want NotInitialized", err)
	}
}

func TestRegistry_RejectsSeparatorInPrincipal(t *testing.T) {
	h := newInitializedHarness(t)
	ctx := context.Background()

	if err := h.service.AuthorizeHospital(ctx, "H\x00X"); !errors.Is(err, errkind.ErrInvalidInput) {
		t.Errorf("AuthorizeHospital(H\\x00X) error = %v, want InvalidInput", err)
	}

	h.as("H\x00X")
	if _, err := h.service.CreateRequest(ctx, validCreate("H\x00X", corerequest.UrgencyNormal, testNow)); !errors.Is(err, errkind.ErrInvalidInput) {
		t.Errorf("CreateRequest(H\\x00X) error = %v, want InvalidInput", err)
	}

	// The neighbouring hospital bucket stays readable.
	id := h.create("HOSP-1", corerequest.UrgencyNormal)
	ids, err := h.service.RequestIDsByIndex(ctx, corerequest.IndexHospital, "HOSP-1")
	if err != nil || !slices.Equal(ids, []uint64{id}) {
		t.Errorf("RequestIDsByIndex(HOSP-1) = (%v, %v)", ids, err)
	}
	report, err := h.service.VerifyIndexes(ctx)
	if err != nil || !report.OK() {
		t.Errorf("VerifyIndexes() = (%+v, %v), want clean", report, err)
	}
}

// ============================================================================
// CreateRequest
// ============================================================================

func TestCreateRequest(t *testing.T) {
	h := newInitializedHarness(t)

	id := h.create("HOSP-1", corerequest.UrgencyCritical)
	if id != 1 {
		t.Fatalf("first id = %d, want 1", id)
	}

	got := h.get(id)
	if got.Status != corerequest.StatusPending || got.CreatedAt != testNow || got.FulfilledAt != nil || len(got.AssignedUnits) != 0 {
		t.Errorf("created request = %+v", got)
	}

	event, ok := h.publisher.Last()
	if !ok || event.Name != secondary.EventRequestCreated || event.RequestID != id || event.EventID == "" {
		t.Fatalf("event = %+v", event)
	}
	payload, ok := event.Payload.(secondary.RequestCreatedPayload)
	if !ok || payload.HospitalID != "HOSP-1" || payload.Urgency != "Critical" || payload.CreatedAt != testNow {
		t.Errorf("payload = %+v", event.Payload)
	}

	for _, idx := range []struct {
		index corerequest.Index
		key   string
	}{
		{corerequest.IndexHospital, "HOSP-1"},
		{corerequest.IndexBloodType, "O+"},
		{corerequest.IndexStatus, "Pending"},
		{corerequest.IndexUrgency, "Critical"},
	} {
		ids, err := h.service.RequestIDsByIndex(context.Background(), idx.index, idx.key)
		if err != nil || !slices.Equal(ids, []uint64{id}) {
			t.Errorf("RequestIDsByIndex(%s, %s) = (%v, %v)", idx.index, idx.key, ids, err)
		}
	}
}

func TestCreateRequest_Errors(t *testing.T) {
	tests := []struct {
		name    string
		caller  string
		mutate  func(req *createArgs)
		wantErr error
	}{
		{name: "caller is not the hospital", caller: "HOSP-2", wantErr: errkind.ErrUnauthorized},
		{name: "hospital not authorized", caller: "HOSP-9", mutate: func(r *createArgs) { r.hospital = "HOSP-9" }, wantErr: errkind.ErrNotAuthorizedHospital},
		{name: "quantity too small", caller: "HOSP-1", mutate: func(r *createArgs) { r.quantity = 49 }, wantErr: errkind.ErrInvalidQuantity},
		{name: "quantity too large", caller: "HOSP-1", mutate: func(r *createArgs) { r.quantity = 5001 }, wantErr: errkind.ErrInvalidQuantity},
		{name: "required_by in the past", caller: "HOSP-1", mutate: func(r *createArgs) { r.requiredBy = testNow - 1 }, wantErr: errkind.ErrInvalidTimestamp},
		{name: "required_by now", caller: "HOSP-1", mutate: func(r *createArgs) { r.requiredBy = testNow }, wantErr: errkind.ErrInvalidTimestamp},
		{name: "required_by beyond 30 days", caller: "HOSP-1", mutate: func(r *createArgs) { r.requiredBy = testNow + 30*86400 + 1 }, wantErr: errkind.ErrInvalidTimestamp},
		{name: "empty address", caller: "HOSP-1", mutate: func(r *createArgs) { r.address = "" }, wantErr: errkind.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newInitializedHarness(t).as(tt.caller)
			args := createArgs{hospital: "HOSP-1", quantity: 450, requiredBy: testNow + 3600, address: "Main Bldg"}
			if tt.mutate != nil {
				tt.mutate(&args)
			}
			req := validCreate(args.hospital, corerequest.UrgencyNormal, testNow)
			req.QuantityML = args.quantity
			req.RequiredBy = args.requiredBy
			req.DeliveryAddress = args.address

			_, err := h.service.CreateRequest(context.Background(), req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CreateRequest() error = %v, want %v", err, tt.wantErr)
			}
			if len(h.publisher.Events()) != 0 {
				t.Error("event published for a rejected request")
			}

			// A rejected create must not consume an id.
			if id := h.create("HOSP-1", corerequest.UrgencyNormal); id != 1 {
				t.Errorf("next id = %d, want 1", id)
			}
		})
	}
}

type createArgs struct {
	hospital   string
	quantity   uint32
	requiredBy int64
	address    string
}

func TestCreateRequest_BoundaryValues(t *testing.T) {
	h := newInitializedHarness(t).as("HOSP-1")
	for _, q := range []uint32{50, 5000} {
		req := validCreate("HOSP-1", corerequest.UrgencyUrgent, testNow)
		req.QuantityML = q
		req.RequiredBy = testNow + 30*86400
		if _, err := h.service.CreateRequest(context.Background(), req); err != nil {
			t.Errorf("CreateRequest(quantity=%d) failed: %v", q, err)
		}
	}
}

func TestCreateRequest_AdminWithoutRegistryEntry(t *testing.T) {
	h := newInitializedHarness(t)
	if id := h.create("ADMIN", corerequest.UrgencyNormal); id != 1 {
		t.Errorf("admin request id = %d, want 1", id)
	}
}

func TestCreateRequest_PublishFailureIsNotReturned(t *testing.T) {
	h := newInitializedHarness(t)
	h.publisher.Err = errPublish

	id := h.create("HOSP-1", corerequest.UrgencyNormal)
	if h.get(id).Status != corerequest.StatusPending {
		t.Error("request not stored when publish failed")
	}
}

// ============================================================================
// Status lifecycle
// ============================================================================

func TestLifecycle_Scenario(t *testing.T) {
	h := newInitializedHarness(t)
	ctx := context.Background()
	id := h.create("HOSP-1", corerequest.UrgencyCritical)

	h.as("ADMIN").at(testNow + 60)
	h.must(h.service.ApproveRequest(ctx, id))

	h.as("BANK-1").at(testNow + 120)
	h.must(h.service.AssignBloodUnits(ctx, id, []uint64{1001, 1002}))

	event, _ := h.publisher.Last()
	if payload, ok := event.Payload.(secondary.UnitsAssignedPayload); !ok || !slices.Equal(payload.AssignedUnits, []uint64{1001, 1002}) || payload.AssignedAt != testNow+120 {
		t.Errorf("UnitsAssigned payload = %+v", event.Payload)
	}

	h.as("ADMIN").at(testNow + 1800)
	if err := h.service.UpdateRequestStatus(ctx, id, corerequest.StatusCompleted); !errors.Is(err, errkind.ErrInvalidStatusTransition) {
		t.Errorf("Approved -> Completed error = %v, want InvalidStatusTransition", err)
	}
	h.must(h.service.UpdateRequestStatus(ctx, id, corerequest.StatusFulfilled))

	got := h.get(id)
	if got.FulfilledAt == nil || *got.FulfilledAt != testNow+1800 {
		t.Errorf("FulfilledAt = %v, want %d", got.FulfilledAt, testNow+1800)
	}

	event, _ = h.publisher.Last()
	if payload, ok := event.Payload.(secondary.StatusChangedPayload); !ok || payload.OldStatus != "Approved" || payload.NewStatus != "Fulfilled" {
		t.Errorf("StatusChanged payload = %+v", event.Payload)
	}

	// Units may still be added while Fulfilled.
	h.as("BANK-1")
	h.must(h.service.AssignBloodUnits(ctx, id, []uint64{1003}))

	h.as("ADMIN").at(testNow + 2000)
	h.must(h.service.UpdateRequestStatus(ctx, id, corerequest.StatusCompleted))

	got = h.get(id)
	if got.Status != corerequest.StatusCompleted || *got.FulfilledAt != testNow+1800 || !slices.Equal(got.AssignedUnits, []uint64{1001, 1002, 1003}) {
		t.Errorf("completed request = %+v", got)
	}
	if err := h.service.UpdateRequestStatus(ctx, id, corerequest.StatusPending); !errors.Is(err, errkind.ErrInvalidStatusTransition) {
		t.Errorf("Completed -> Pending error = %v, want InvalidStatusTransition", err)
	}

	pending, _ := h.service.RequestIDsByIndex(ctx, corerequest.IndexStatus, "Pending")
	completed, _ := h.service.RequestIDsByIndex(ctx, corerequest.IndexStatus, "Completed")
	if len(pending) != 0 || !slices.Equal(completed, []uint64{id}) {
		t.Errorf("status buckets pending=%v completed=%v", pending, completed)
	}
}

func TestUpdateRequestStatus_Errors(t *testing.T) {
	h := newInitializedHarness(t)
	ctx := context.Background()
	id := h.create("HOSP-1", corerequest.UrgencyNormal)

	// Authorization is checked before the request is loaded.
	h.as("HOSP-1")
	if err := h.service.UpdateRequestStatus(ctx, 999, corerequest.StatusApproved); !errors.Is(err, errkind.ErrUnauthorized) {
		t.Errorf("non-admin on missing request error = %v, want Unauthorized", err)
	}

	h.as("ADMIN")
	if err := h.service.UpdateRequestStatus(ctx, 999, corerequest.StatusApproved); !errors.Is(err, errkind.ErrNotFound) {
		t.Errorf("missing request error = %v, want NotFound", err)
	}
	if err := h.service.UpdateRequestStatus(ctx, id, corerequest.StatusPending); !errors.Is(err, errkind.ErrInvalidStatusTransition) {
		t.Errorf("Pending -> Pending error = %v, want InvalidStatusTransition", err)
	}
	if err := h.service.UpdateRequestStatus(ctx, id, corerequest.StatusFulfilled); !errors.Is(err, errkind.ErrInvalidStatusTransition) {
		t.Errorf("Pending -> Fulfilled error = %v, want InvalidStatusTransition", err)
	}
	h.must(h.service.UpdateRequestStatus(ctx, id, corerequest.StatusRejected))
	if err := h.service.UpdateRequestStatus(ctx, id, corerequest.StatusApproved); !errors.Is(err, errkind.ErrInvalidStatusTransition) {
		t.Errorf("Rejected -> Approved error = %v, want InvalidStatusTransition", err)
	}
}

func TestApproveRequest(t *testing.T) {
	tests := []struct {
		name    string
		caller  string
		now     int64
		setup   func(h *testHarness, id uint64)
		wantErr error
	}{
		{name: "approve before deadline", caller: "ADMIN", now: testNow + 60},
		{name: "approve at deadline", caller: "ADMIN", now: testNow + 3600},
		{name: "overdue", caller: "ADMIN", now: testNow + 3601, wantErr: errkind.ErrRequestOverdue},
		{name: "not admin", caller: "HOSP-1", now: testNow, wantErr: errkind.ErrUnauthorized},
		{
			name:   "already approved",
			caller: "ADMIN",
			now:    testNow,
			setup: func(h *testHarness, id uint64) {
				h.must(h.service.ApproveRequest(context.Background(), id))
			},
			wantErr: errkind.ErrInvalidStatusTransition,
		},
		{
			// The edge is checked before the deadline.
			name:   "overdue and cancelled",
			caller: "ADMIN",
			now:    testNow + 7200,
			setup: func(h *testHarness, id uint64) {
				h.must(h.service.CancelRequest(context.Background(), id))
			},
			wantErr: errkind.ErrInvalidStatusTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newInitializedHarness(t)
			id := h.create("HOSP-1", corerequest.UrgencyUrgent)
			h.as("ADMIN")
			if tt.setup != nil {
				tt.setup(h, id)
			}

			h.as(tt.caller).at(tt.now)
			err := h.service.ApproveRequest(context.Background(), id)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("ApproveRequest() failed: %v", err)
				}
				if h.get(id).Status != corerequest.StatusApproved {
					t.Error("request not Approved")
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ApproveRequest() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCancelRequest(t *testing.T) {
	tests := []struct {
		name    string
		caller  string
		approve bool
		wantErr error
	}{
		{name: "owner cancels pending", caller: "HOSP-1"},
		{name: "owner cancels approved", caller: "HOSP-1", approve: true},
		{name: "admin cancels", caller: "ADMIN"},
		{name: "other hospital", caller: "HOSP-2", wantErr: errkind.ErrUnauthorized},
		{name: "blood bank", caller: "BANK-1", wantErr: errkind.ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newInitializedHarness(t)
			id := h.create("HOSP-1", corerequest.UrgencyNormal)
			if tt.approve {
				h.as("ADMIN")
				h.must(h.service.ApproveRequest(context.Background(), id))
			}

			h.as(tt.caller)
			err := h.service.CancelRequest(context.Background(), id)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("CancelRequest() failed: %v", err)
				}
				if h.get(id).Status != corerequest.StatusCancelled {
					t.Error("request not Cancelled")
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CancelRequest() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCancelRequest_FulfilledCannotBeCancelled(t *testing.T) {
	h := newInitializedHarness(t)
	ctx := context.Background()
	id := h.create("HOSP-1", corerequest.UrgencyNormal)
	h.as("ADMIN")
	h.must(h.service.ApproveRequest(ctx, id))
	h.must(h.service.UpdateRequestStatus(ctx, id, corerequest.StatusFulfilled))

	h.as("HOSP-1")
	if err := h.service.CancelRequest(ctx, id); !errors.Is(err, errkind.ErrInvalidStatusTransition) {
		t.Errorf("cancel Fulfilled error = %v, want InvalidStatusTransition", err)
	}
	if err := h.service.CancelRequest(ctx, 42); !errors.Is(err, errkind.ErrNotFound) {
		t.Errorf("cancel missing error = %v, want NotFound", err)
	}
}

// ============================================================================
// AssignBloodUnits
// ============================================================================

func TestAssignBloodUnits_Errors(t *testing.T) {
	tests := []struct {
		name    string
		caller  string
		approve bool
		units   []uint64
		wantErr error
	}{
		{name: "pending request", caller: "BANK-1", units: []uint64{1}, wantErr: errkind.ErrInvalidRequestState},
		{name: "unknown bank", caller: "BANK-9", approve: true, units: []uint64{1}, wantErr: errkind.ErrNotAuthorizedBloodBank},
		{name: "hospital", caller: "HOSP-1", approve: true, units: []uint64{1}, wantErr: errkind.ErrNotAuthorizedBloodBank},
		{name: "empty list", caller: "BANK-1", approve: true, units: nil, wantErr: errkind.ErrInvalidInput},
		{name: "duplicate in batch", caller: "BANK-1", approve: true, units: []uint64{7, 7}, wantErr: errkind.ErrInvalidInput},
		{name: "already assigned", caller: "BANK-1", approve: true, units: []uint64{500}, wantErr: errkind.ErrInvalidInput},
		{name: "admin may assign", caller: "ADMIN", approve: true, units: []uint64{501}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newInitializedHarness(t)
			ctx := context.Background()
			id := h.create("HOSP-1", corerequest.UrgencyCritical)
			if tt.approve {
				h.as("ADMIN")
				h.must(h.service.ApproveRequest(ctx, id))
				h.must(h.service.AssignBloodUnits(ctx, id, []uint64{500}))
			}

			h.as(tt.caller)
			err := h.service.AssignBloodUnits(ctx, id, tt.units)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("AssignBloodUnits() failed: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("AssignBloodUnits() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// ============================================================================
// Queries
// ============================================================================

func TestQueries(t *testing.T) {
	h := newInitializedHarness(t)
	ctx := context.Background()
	h.as("ADMIN")
	h.must(h.service.AuthorizeHospital(ctx, "HOSP-2"))

	h.at(testNow)
	normal := h.create("HOSP-1", corerequest.UrgencyNormal)
	h.at(testNow + 10)
	critical := h.create("HOSP-1", corerequest.UrgencyCritical)
	h.at(testNow + 20)
	urgent := h.create("HOSP-2", corerequest.UrgencyUrgent)
	h.at(testNow + 30)
	critical2 := h.create("HOSP-2", corerequest.UrgencyCritical)

	h.as("ADMIN")
	h.must(h.service.ApproveRequest(ctx, critical2))

	t.Run("pending by urgency", func(t *testing.T) {
		got, err := h.service.QueryPendingRequests(ctx, corerequest.Page{})
		if err != nil {
			t.Fatal(err)
		}
		if want := []uint64{critical, urgent, normal}; !slices.Equal(ids(got), want) {
			t.Errorf("QueryPendingRequests() = %v, want %v", ids(got), want)
		}
	})

	t.Run("hospital with status", func(t *testing.T) {
		approved := corerequest.StatusApproved
		got, err := h.service.QueryHospitalRequests(ctx, "HOSP-2", &approved, corerequest.Page{})
		if err != nil || !slices.Equal(ids(got), []uint64{critical2}) {
			t.Errorf("QueryHospitalRequests(HOSP-2, Approved) = (%v, %v)", ids(got), err)
		}
		got, _ = h.service.QueryHospitalRequests(ctx, "HOSP-1", nil, corerequest.Page{})
		if !slices.Equal(ids(got), []uint64{normal, critical}) {
			t.Errorf("QueryHospitalRequests(HOSP-1) = %v", ids(got))
		}
		got, err = h.service.QueryHospitalRequests(ctx, "HOSP-404", nil, corerequest.Page{})
		if err != nil || len(got) != 0 {
			t.Errorf("QueryHospitalRequests(unknown) = (%v, %v), want empty", ids(got), err)
		}
	})

	t.Run("date range inclusive", func(t *testing.T) {
		got, err := h.service.QueryRequestsByDateRange(ctx, testNow+10, testNow+20, nil, corerequest.Page{})
		if err != nil || !slices.Equal(ids(got), []uint64{critical, urgent}) {
			t.Errorf("QueryRequestsByDateRange() = (%v, %v)", ids(got), err)
		}
		pending := corerequest.StatusPending
		got, _ = h.service.QueryRequestsByDateRange(ctx, testNow, testNow+30, &pending, corerequest.Page{})
		if !slices.Equal(ids(got), []uint64{normal, critical, urgent}) {
			t.Errorf("QueryRequestsByDateRange(Pending) = %v", ids(got))
		}
		got, _ = h.service.QueryRequestsByDateRange(ctx, testNow+30, testNow, nil, corerequest.Page{})
		if len(got) != 0 {
			t.Errorf("inverted range = %v, want empty", ids(got))
		}
	})

	t.Run("urgency with status", func(t *testing.T) {
		got, _ := h.service.QueryRequestsByUrgency(ctx, corerequest.UrgencyCritical, nil, corerequest.Page{})
		if !slices.Equal(ids(got), []uint64{critical, critical2}) {
			t.Errorf("QueryRequestsByUrgency(Critical) = %v", ids(got))
		}
		pending := corerequest.StatusPending
		got, _ = h.service.QueryRequestsByUrgency(ctx, corerequest.UrgencyCritical, &pending, corerequest.Page{})
		if !slices.Equal(ids(got), []uint64{critical}) {
			t.Errorf("QueryRequestsByUrgency(Critical, Pending) = %v", ids(got))
		}
	})

	t.Run("pagination", func(t *testing.T) {
		got, _ := h.service.QueryRequestsByDateRange(ctx, 0, testNow+100, nil, corerequest.Page{Limit: 2, Offset: 1})
		if !slices.Equal(ids(got), []uint64{critical, urgent}) {
			t.Errorf("page(2, 1) = %v", ids(got))
		}
		got, _ = h.service.QueryRequestsByDateRange(ctx, 0, testNow+100, nil, corerequest.Page{Limit: 2, Offset: 10})
		if len(got) != 0 {
			t.Errorf("page past end = %v, want empty", ids(got))
		}
	})
}

func ids(requests []*corerequest.BloodRequest) []uint64 {
	out := make([]uint64, len(requests))
	for i, r := range requests {
		out[i] = r.ID
	}
	return out
}

// ============================================================================
// VerifyIndexes
// ============================================================================

func TestVerifyIndexes(t *testing.T) {
	h := newInitializedHarness(t)
	ctx := context.Background()
	first := h.create("HOSP-1", corerequest.UrgencyNormal)
	h.create("HOSP-1", corerequest.UrgencyCritical)
	h.as("ADMIN")
	h.must(h.service.ApproveRequest(ctx, first))

	report, err := h.service.VerifyIndexes(ctx)
	if err != nil {
		t.Fatalf("VerifyIndexes() failed: %v", err)
	}
	if !report.OK() || report.RequestCount != 2 || report.Counter != 2 || report.MaxID != 2 {
		t.Errorf("clean report = %+v", report)
	}

	// Drop request 1 from the Approved bucket behind the store's back.
	err = h.backend.Commit(ctx, []kvstore.Write{{
		Key:    kvstore.Key{Type: string(corerequest.IndexStatus), Attrs: []string{"Approved", kvstore.FormatID(first)}},
		Delete: true,
	}})
	if err != nil {
		t.Fatal(err)
	}

	report, err = h.service.VerifyIndexes(ctx)
	if err != nil {
		t.Fatalf("VerifyIndexes() failed: %v", err)
	}
	if report.OK() || len(report.Mismatches) != 1 {
		t.Fatalf("corrupted report = %+v", report)
	}
	m := report.Mismatches[0]
	if m.Index != corerequest.IndexStatus || m.Key != "Approved" || len(m.Stored) != 0 || !slices.Equal(m.Expected, []uint64{first}) {
		t.Errorf("mismatch = %+v", m)
	}
}
