package secondary

import (
	"context"

	corerequest "github.com/example/lifebank/internal/core/request"
)

// Role names a principal registry kept by the store.
type Role string

const (
	// RoleHospital marks principals allowed to create requests.
	RoleHospital Role = "HOSPITAL"
	// RoleBloodBank marks principals allowed to assign units.
	RoleBloodBank Role = "BLOODBANK"
)

// RequestStore defines the secondary port for blood request persistence.
// Every mutation runs inside Update so the primary record, the four indexes,
// the id counter and the registries change together or not at all.
type RequestStore interface {
	// Update runs fn against a write transaction. When fn returns an error
	// nothing is written and that error is returned unchanged.
	Update(ctx context.Context, fn func(tx RequestTx) error) error

	// View runs fn against a read-only snapshot.
	View(ctx context.Context, fn func(r RequestReader) error) error
}

// RequestReader is the read half of a store transaction.
type RequestReader interface {
	// Get returns the request with id, or an errkind NotFound error.
	Get(id uint64) (*corerequest.BloodRequest, error)

	// IDsByIndex returns the ids in one index bucket in ascending order.
	IDsByIndex(index corerequest.Index, key string) ([]uint64, error)

	// IndexBuckets returns every non-empty bucket of an index.
	IndexBuckets(index corerequest.Index) (map[string][]uint64, error)

	// Scan returns every stored request in ascending id order.
	Scan() ([]*corerequest.BloodRequest, error)

	// Counter returns the last id handed out, 0 before the first request.
	Counter() (uint64, error)

	// Admin returns the administering principal, if one has been set.
	Admin() (string, bool, error)

	// IsAuthorized reports whether principal is registered under role.
	IsAuthorized(role Role, principal string) (bool, error)
}

// RequestTx is a write transaction.
type RequestTx interface {
	RequestReader

	// NextID increments the durable counter and returns the new value.
	NextID() (uint64, error)

	// Put stores r and moves it between index buckets as needed.
	Put(r *corerequest.BloodRequest) error

	// SetAdmin records the administering principal.
	SetAdmin(principal string) error

	// SetAuthorized adds or removes principal from the role registry.
	SetAuthorized(role Role, principal string, authorized bool) error
}
