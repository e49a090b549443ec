package request

import (
	"github.com/example/lifebank/internal/core/errkind"
	"github.com/example/lifebank/internal/core/validation"
)

// Metadata is free-form clinical context carried with a request. It takes
// no part in any invariant.
type Metadata struct {
	PatientID string `json:"patient_id"`
	Procedure string `json:"procedure"`
	Notes     string `json:"notes"`
}

// BloodRequest is a hospital's request for blood product.
type BloodRequest struct {
	ID              uint64    `json:"id"`
	HospitalID      string    `json:"hospital_id"`
	BloodType       BloodType `json:"blood_type"`
	QuantityML      uint32    `json:"quantity_ml"`
	Urgency         Urgency   `json:"urgency"`
	Status          Status    `json:"status"`
	CreatedAt       int64     `json:"created_at"`
	RequiredBy      int64     `json:"required_by"`
	FulfilledAt     *int64    `json:"fulfilled_at,omitempty"`
	AssignedUnits   []uint64  `json:"assigned_units"`
	DeliveryAddress string    `json:"delivery_address"`
	Metadata        Metadata  `json:"metadata"`
}

// NewRequest holds the caller-supplied fields of a request.
type NewRequest struct {
	HospitalID      string
	BloodType       BloodType
	QuantityML      uint32
	Urgency         Urgency
	RequiredBy      int64
	DeliveryAddress string
	Metadata        Metadata
}

// New builds a Pending request with CreatedAt = now. Validation runs in a fixed
// order (quantity, timestamps, delivery address, hospital) and the first
// failure wins.
func New(fields NewRequest, id uint64, now int64) (*BloodRequest, error) {
	if err := validation.ValidateQuantity(fields.QuantityML); err != nil {
		return nil, err
	}
	if err := validation.ValidateTimestamps(now, fields.RequiredBy, now); err != nil {
		return nil, err
	}
	if err := validation.ValidateDeliveryAddress(fields.DeliveryAddress); err != nil {
		return nil, err
	}
	if err := validation.ValidatePrincipal(fields.HospitalID); err != nil {
		return nil, err
	}
	if !fields.BloodType.IsValid() {
		return nil, errkind.New(errkind.InvalidInput, "unknown blood type %q", fields.BloodType)
	}
	if !fields.Urgency.IsValid() {
		return nil, errkind.New(errkind.InvalidInput, "unknown urgency %q", fields.Urgency)
	}

	return &BloodRequest{
		ID:              id,
		HospitalID:      fields.HospitalID,
		BloodType:       fields.BloodType,
		QuantityML:      fields.QuantityML,
		Urgency:         fields.Urgency,
		Status:          InitialStatus(),
		CreatedAt:       now,
		RequiredBy:      fields.RequiredBy,
		AssignedUnits:   []uint64{},
		DeliveryAddress: fields.DeliveryAddress,
		Metadata:        fields.Metadata,
	}, nil
}

// Clone returns a deep copy of r.
func (r *BloodRequest) Clone() *BloodRequest {
	c := *r
	if r.FulfilledAt != nil {
		at := *r.FulfilledAt
		c.FulfilledAt = &at
	}
	c.AssignedUnits = append([]uint64{}, r.AssignedUnits...)
	return &c
}

// Transition returns a copy of r moved to status to. Entering Fulfilled
// stamps FulfilledAt with now.
func (r *BloodRequest) Transition(to Status, now int64) (*BloodRequest, error) {
	result, err := ApplyStatusTransition(r.Status, to, now)
	if err != nil {
		return nil, err
	}

	next := r.Clone()
	next.Status = result.NewStatus
	if result.FulfilledAt != nil {
		next.FulfilledAt = result.FulfilledAt
	}
	return next, nil
}

// CanAssignUnits reports whether units may be attached in the current status.
func (r *BloodRequest) CanAssignUnits() bool {
	return r.Status == StatusApproved || r.Status == StatusFulfilled
}

// AssignUnits returns a copy of r with ids appended to AssignedUnits.
func (r *BloodRequest) AssignUnits(ids []uint64) (*BloodRequest, error) {
	if !r.CanAssignUnits() {
		return nil, errkind.New(errkind.InvalidRequestState, "cannot assign units to request %d in status %s", r.ID, r.Status)
	}
	if err := validation.ValidateUnitIDs(ids, r.AssignedUnits); err != nil {
		return nil, err
	}

	next := r.Clone()
	next.AssignedUnits = append(next.AssignedUnits, ids...)
	return next, nil
}

// Validate re-checks the invariants of a stored request.
func (r *BloodRequest) Validate() error {
	if r.ID == 0 {
		return errkind.New(errkind.InvalidInput, "request id is zero")
	}
	if err := validation.ValidatePrincipal(r.HospitalID); err != nil {
		return err
	}
	if !r.BloodType.IsValid() {
		return errkind.New(errkind.InvalidInput, "request %d: unknown blood type %q", r.ID, r.BloodType)
	}
	if !r.Urgency.IsValid() {
		return errkind.New(errkind.InvalidInput, "request %d: unknown urgency %q", r.ID, r.Urgency)
	}
	if !r.Status.IsValid() {
		return errkind.New(errkind.InvalidInput, "request %d: unknown status %q", r.ID, r.Status)
	}
	if err := validation.ValidateQuantity(r.QuantityML); err != nil {
		return err
	}
	if r.CreatedAt >= r.RequiredBy || r.RequiredBy > r.CreatedAt+validation.MaxRequestWindow {
		return errkind.New(errkind.InvalidTimestamp, "request %d: required_by %d outside window of created_at %d", r.ID, r.RequiredBy, r.CreatedAt)
	}
	if HasFulfilledAt(r.Status) != (r.FulfilledAt != nil) {
		return errkind.New(errkind.InvalidRequestState, "request %d: fulfilled_at inconsistent with status %s", r.ID, r.Status)
	}
	if err := validation.ValidateDeliveryAddress(r.DeliveryAddress); err != nil {
		return err
	}
	return nil
}

// IsOverdue reports whether the required-by time has passed.
func (r *BloodRequest) IsOverdue(now int64) bool {
	return now > r.RequiredBy
}

// TimeRemaining is the number of seconds until RequiredBy; negative once overdue.
func (r *BloodRequest) TimeRemaining(now int64) int64 {
	return r.RequiredBy - now
}

// CanFulfill reports whether r is Approved and not overdue.
func (r *BloodRequest) CanFulfill(now int64) bool {
	return r.Status == StatusApproved && !r.IsOverdue(now)
}

// SLADeadline is the latest fulfillment time allowed by the urgency.
func (r *BloodRequest) SLADeadline() int64 {
	return r.CreatedAt + r.Urgency.MaxFulfillmentSeconds()
}

// IsPastSLA reports whether an unfulfilled request has exceeded its urgency budget.
// A fulfilled request is judged by its fulfillment time.
func (r *BloodRequest) IsPastSLA(now int64) bool {
	if r.FulfilledAt != nil {
		return *r.FulfilledAt > r.SLADeadline()
	}
	return now > r.SLADeadline()
}
