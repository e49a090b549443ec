// Package primary defines the primary ports (driving adapters) for the application.
// These are the interfaces through which the outside world drives the application.
package primary

import (
	"context"

	corerequest "github.com/example/lifebank/internal/core/request"
)

// RequestService defines the primary port for the blood request lifecycle.
// Caller identity and time come from the service's own collaborators, never
// from the arguments.
type RequestService interface {
	// Initialize records the administering principal. It succeeds once.
	Initialize(ctx context.Context, admin string) error

	// AuthorizeHospital lets hospital create requests. Admin only.
	AuthorizeHospital(ctx context.Context, hospital string) error

	// RevokeHospital removes hospital from the registry. Admin only.
	RevokeHospital(ctx context.Context, hospital string) error

	// IsHospitalAuthorized reports whether hospital may create requests.
	IsHospitalAuthorized(ctx context.Context, hospital string) (bool, error)

	// AuthorizeBloodBank lets bank assign units. Admin only.
	AuthorizeBloodBank(ctx context.Context, bank string) error

	// RevokeBloodBank removes bank from the registry. Admin only.
	RevokeBloodBank(ctx context.Context, bank string) error

	// CreateRequest validates and stores a new Pending request and returns its id.
	CreateRequest(ctx context.Context, req CreateRequestRequest) (uint64, error)

	// UpdateRequestStatus moves a request along the lifecycle. Admin only.
	UpdateRequestStatus(ctx context.Context, id uint64, status corerequest.Status) error

	// ApproveRequest moves a Pending request to Approved unless it is overdue.
	ApproveRequest(ctx context.Context, id uint64) error

	// CancelRequest cancels a request on behalf of its hospital or the admin.
	CancelRequest(ctx context.Context, id uint64) error

	// AssignBloodUnits appends unit ids to an Approved or Fulfilled request.
	AssignBloodUnits(ctx context.Context, id uint64, unitIDs []uint64) error

	// GetRequest retrieves a request by id.
	GetRequest(ctx context.Context, id uint64) (*corerequest.BloodRequest, error)

	// RequestIDsByIndex returns the ids stored in one index bucket.
	RequestIDsByIndex(ctx context.Context, index corerequest.Index, key string) ([]uint64, error)

	// QueryHospitalRequests lists a hospital's requests, optionally filtered by status.
	QueryHospitalRequests(ctx context.Context, hospital string, status *corerequest.Status, page corerequest.Page) ([]*corerequest.BloodRequest, error)

	// QueryPendingRequests lists Pending requests, most urgent first.
	QueryPendingRequests(ctx context.Context, page corerequest.Page) ([]*corerequest.BloodRequest, error)

	// QueryRequestsByDateRange lists requests created within [start, end].
	QueryRequestsByDateRange(ctx context.Context, start, end int64, status *corerequest.Status, page corerequest.Page) ([]*corerequest.BloodRequest, error)

	// QueryRequestsByUrgency lists requests of one urgency, optionally filtered by status.
	QueryRequestsByUrgency(ctx context.Context, urgency corerequest.Urgency, status *corerequest.Status, page corerequest.Page) ([]*corerequest.BloodRequest, error)

	// VerifyIndexes rebuilds every index from a full scan and compares it
	// with what is stored.
	VerifyIndexes(ctx context.Context) (*IndexReport, error)
}

// CreateRequestRequest contains parameters for creating a blood request.
type CreateRequestRequest struct {
	HospitalID      string
	BloodType       corerequest.BloodType
	QuantityML      uint32
	Urgency         corerequest.Urgency
	RequiredBy      int64
	DeliveryAddress string
	Metadata        corerequest.Metadata
}

// IndexReport is the outcome of an index audit.
type IndexReport struct {
	RequestCount int
	Counter      uint64
	MaxID        uint64
	Invalid      []uint64 // ids whose stored record fails validation
	Mismatches   []IndexMismatch
}

// OK reports whether the audit found nothing wrong.
func (r *IndexReport) OK() bool {
	return len(r.Mismatches) == 0 && len(r.Invalid) == 0 && r.Counter >= r.MaxID
}

// IndexMismatch describes one bucket whose stored ids differ from the ids
// rebuilt from the primary records.
type IndexMismatch struct {
	Index    corerequest.Index
	Key      string
	Stored   []uint64
	Expected []uint64
}
