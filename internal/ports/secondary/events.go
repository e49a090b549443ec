package secondary

import "context"

// EventName identifies the kind of a domain event.
type EventName string

const (
	EventRequestCreated       EventName = "RequestCreated"
	EventRequestStatusChanged EventName = "RequestStatusChanged"
	EventUnitsAssigned        EventName = "UnitsAssigned"
)

// Event is a notification emitted after a mutation commits.
type Event struct {
	EventID   string    `json:"event_id"`
	Name      EventName `json:"name"`
	RequestID uint64    `json:"request_id"`
	Payload   any       `json:"payload"`
}

// RequestCreatedPayload describes a newly created request.
type RequestCreatedPayload struct {
	HospitalID string `json:"hospital_id"`
	BloodType  string `json:"blood_type"`
	QuantityML uint32 `json:"quantity_ml"`
	Urgency    string `json:"urgency"`
	RequiredBy int64  `json:"required_by"`
	CreatedAt  int64  `json:"created_at"`
}

// StatusChangedPayload describes a status transition.
type StatusChangedPayload struct {
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
	ChangedAt int64  `json:"changed_at"`
}

// UnitsAssignedPayload carries the full unit list after an assignment.
type UnitsAssignedPayload struct {
	AssignedUnits []uint64 `json:"assigned_units"`
	AssignedAt    int64    `json:"assigned_at"`
}

// EventPublisher delivers events to whoever is listening. Delivery is
// fire-and-forget from the caller's point of view.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}
