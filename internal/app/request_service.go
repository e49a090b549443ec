package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	corerequest "github.com/example/lifebank/internal/core/request"
	"github.com/example/lifebank/internal/core/validation"
	"github.com/example/lifebank/internal/ports/primary"
	"github.com/example/lifebank/internal/ports/secondary"
)

// RequestServiceImpl implements the RequestService interface.
type RequestServiceImpl struct {
	store     secondary.RequestStore
	clock     secondary.Clock
	identity  secondary.CallerIdentityProvider
	publisher secondary.EventPublisher
	logger    zerolog.Logger
	newID     func() string
}

// RequestServiceOption customizes a RequestServiceImpl.
type RequestServiceOption func(*RequestServiceImpl)

// WithEventIDs replaces the random event id source. A host that executes the
// same operation on several nodes must derive ids from the operation itself.
func WithEventIDs(newID func() string) RequestServiceOption {
	return func(s *RequestServiceImpl) {
		s.newID = newID
	}
}

// NewRequestService creates a new RequestService with injected dependencies.
func NewRequestService(
	store secondary.RequestStore,
	clock secondary.Clock,
	identity secondary.CallerIdentityProvider,
	publisher secondary.EventPublisher,
	logger zerolog.Logger,
	opts ...RequestServiceOption,
) *RequestServiceImpl {
	s := &RequestServiceImpl{
		store:     store,
		clock:     clock,
		identity:  identity,
		publisher: publisher,
		logger:    logger.With().Str("component", "request_service").Logger(),
		newID:     func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize records the administering principal.
func (s *RequestServiceImpl) Initialize(ctx context.Context, admin string) error {
	if err := validation.ValidatePrincipal(admin); err != nil {
		return err
	}
	caller, err := s.identity.GetCaller(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve caller: %w", err)
	}

	err = s.store.Update(ctx, func(tx secondary.RequestTx) error {
		guardCtx, err := loadGuardContext(tx, caller)
		if err != nil {
			return err
		}
		if result := corerequest.CanInitialize(guardCtx, admin); !result.Allowed {
			return result.Error()
		}
		return tx.SetAdmin(admin)
	})
	if err != nil {
		return err
	}

	s.logger.Info().Str("admin", admin).Msg("engine initialized")
	return nil
}

// AuthorizeHospital adds hospital to the hospital registry.
func (s *RequestServiceImpl) AuthorizeHospital(ctx context.Context, hospital string) error {
	return s.setAuthorized(ctx, secondary.RoleHospital, hospital, true)
}

// RevokeHospital removes hospital from the hospital registry.
func (s *RequestServiceImpl) RevokeHospital(ctx context.Context, hospital string) error {
	return s.setAuthorized(ctx, secondary.RoleHospital, hospital, false)
}

// AuthorizeBloodBank adds bank to the blood-bank registry.
func (s *RequestServiceImpl) AuthorizeBloodBank(ctx context.Context, bank string) error {
	return s.setAuthorized(ctx, secondary.RoleBloodBank, bank, true)
}

// RevokeBloodBank removes bank from the blood-bank registry.
func (s *RequestServiceImpl) RevokeBloodBank(ctx context.Context, bank string) error {
	return s.setAuthorized(ctx, secondary.RoleBloodBank, bank, false)
}

func (s *RequestServiceImpl) setAuthorized(ctx context.Context, role secondary.Role, principal string, authorized bool) error {
	if err := validation.ValidatePrincipal(principal); err != nil {
		return err
	}
	caller, err := s.identity.GetCaller(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve caller: %w", err)
	}

	err = s.store.Update(ctx, func(tx secondary.RequestTx) error {
		guardCtx, err := loadGuardContext(tx, caller)
		if err != nil {
			return err
		}
		if result := corerequest.CanAdminister(guardCtx); !result.Allowed {
			return result.Error()
		}
		return tx.SetAuthorized(role, principal, authorized)
	})
	if err != nil {
		return err
	}

	s.logger.Info().Str("role", string(role)).Str("principal", principal).Bool("authorized", authorized).Msg("registry updated")
	return nil
}

// IsHospitalAuthorized reports whether hospital may create requests. The
// admin is always authorized.
func (s *RequestServiceImpl) IsHospitalAuthorized(ctx context.Context, hospital string) (bool, error) {
	var authorized bool
	err := s.store.View(ctx, func(r secondary.RequestReader) error {
		admin, ok, err := r.Admin()
		if err != nil {
			return err
		}
		if result := corerequest.RequireInitialized(corerequest.GuardContext{Admin: admin, Initialized: ok}); !result.Allowed {
			return result.Error()
		}
		if hospital == admin {
			authorized = true
			return nil
		}
		authorized, err = r.IsAuthorized(secondary.RoleHospital, hospital)
		return err
	})
	return authorized, err
}

// CreateRequest creates a new Pending request.
func (s *RequestServiceImpl) CreateRequest(ctx context.Context, req primary.CreateRequestRequest) (uint64, error) {
	if err := validation.ValidatePrincipal(req.HospitalID); err != nil {
		return 0, err
	}

	// 1. Resolve caller and ledger time
	caller, now, err := s.callerAndNow(ctx)
	if err != nil {
		return 0, err
	}

	var created *corerequest.BloodRequest
	err = s.store.Update(ctx, func(tx secondary.RequestTx) error {
		// 2. Check guard
		guardCtx, err := loadGuardContext(tx, caller)
		if err != nil {
			return err
		}
		authorized, err := tx.IsAuthorized(secondary.RoleHospital, req.HospitalID)
		if err != nil {
			return err
		}
		createCtx := corerequest.CreateContext{
			GuardContext:       guardCtx,
			HospitalID:         req.HospitalID,
			HospitalAuthorized: authorized,
		}
		if result := corerequest.CanCreateRequest(createCtx); !result.Allowed {
			return result.Error()
		}

		// 3. Generate ID and build the entity; a validation failure discards the
		// counter bump with the rest of the transaction
		id, err := tx.NextID()
		if err != nil {
			return err
		}
		created, err = corerequest.New(corerequest.NewRequest{
			HospitalID:      req.HospitalID,
			BloodType:       req.BloodType,
			QuantityML:      req.QuantityML,
			Urgency:         req.Urgency,
			RequiredBy:      req.RequiredBy,
			DeliveryAddress: req.DeliveryAddress,
			Metadata:        req.Metadata,
		}, id, now)
		if err != nil {
			return err
		}

		// 4. Store record and indexes
		return tx.Put(created)
	})
	if err != nil {
		return 0, err
	}

	// 5. Announce
	s.publish(ctx, secondary.EventRequestCreated, created.ID, secondary.RequestCreatedPayload{
		HospitalID: created.HospitalID,
		BloodType:  string(created.BloodType),
		QuantityML: created.QuantityML,
		Urgency:    string(created.Urgency),
		RequiredBy: created.RequiredBy,
		CreatedAt:  created.CreatedAt,
	})
	s.logger.Debug().Uint64("request_id", created.ID).Str("hospital", created.HospitalID).Msg("request created")
	return created.ID, nil
}

// UpdateRequestStatus moves a request to status. Admin only.
func (s *RequestServiceImpl) UpdateRequestStatus(ctx context.Context, id uint64, status corerequest.Status) error {
	return s.transition(ctx, id, status, transitionChecks{
		beforeLoad: corerequest.CanAdminister,
	})
}

// ApproveRequest moves a Pending request to Approved. Admin only; an overdue
// request is refused.
func (s *RequestServiceImpl) ApproveRequest(ctx context.Context, id uint64) error {
	return s.transition(ctx, id, corerequest.StatusApproved, transitionChecks{
		beforeLoad: corerequest.CanAdminister,
		afterEdge:  corerequest.CanApprove,
	})
}

// CancelRequest cancels a request on behalf of its hospital or the admin.
func (s *RequestServiceImpl) CancelRequest(ctx context.Context, id uint64) error {
	return s.transition(ctx, id, corerequest.StatusCancelled, transitionChecks{
		afterLoad: corerequest.CanCancelRequest,
	})
}

// transitionChecks are the guards of one status operation, by the stage at
// which they run.
type transitionChecks struct {
	beforeLoad func(corerequest.GuardContext) corerequest.GuardResult
	afterLoad  func(corerequest.GuardContext, *corerequest.BloodRequest) corerequest.GuardResult
	afterEdge  func(*corerequest.BloodRequest, int64) corerequest.GuardResult
}

// transition runs the shared load, guard, transition and store sequence.
func (s *RequestServiceImpl) transition(ctx context.Context, id uint64, to corerequest.Status, checks transitionChecks) error {
	caller, now, err := s.callerAndNow(ctx)
	if err != nil {
		return err
	}

	var before, after *corerequest.BloodRequest
	err = s.store.Update(ctx, func(tx secondary.RequestTx) error {
		guardCtx, err := loadGuardContext(tx, caller)
		if err != nil {
			return err
		}
		if result := corerequest.RequireInitialized(guardCtx); !result.Allowed {
			return result.Error()
		}
		if checks.beforeLoad != nil {
			if result := checks.beforeLoad(guardCtx); !result.Allowed {
				return result.Error()
			}
		}

		before, err = tx.Get(id)
		if err != nil {
			return err
		}
		if checks.afterLoad != nil {
			if result := checks.afterLoad(guardCtx, before); !result.Allowed {
				return result.Error()
			}
		}

		after, err = before.Transition(to, now)
		if err != nil {
			return err
		}
		if checks.afterEdge != nil {
			if result := checks.afterEdge(before, now); !result.Allowed {
				return result.Error()
			}
		}
		return tx.Put(after)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, secondary.EventRequestStatusChanged, id, secondary.StatusChangedPayload{
		OldStatus: string(before.Status),
		NewStatus: string(after.Status),
		ChangedAt: now,
	})
	s.logger.Debug().Uint64("request_id", id).Str("from", string(before.Status)).Str("to", string(after.Status)).Msg("request status changed")
	return nil
}

// AssignBloodUnits appends unitIDs to an Approved or Fulfilled request.
func (s *RequestServiceImpl) AssignBloodUnits(ctx context.Context, id uint64, unitIDs []uint64) error {
	caller, now, err := s.callerAndNow(ctx)
	if err != nil {
		return err
	}

	var updated *corerequest.BloodRequest
	err = s.store.Update(ctx, func(tx secondary.RequestTx) error {
		guardCtx, err := loadGuardContext(tx, caller)
		if err != nil {
			return err
		}
		bank, err := tx.IsAuthorized(secondary.RoleBloodBank, caller)
		if err != nil {
			return err
		}
		if result := corerequest.CanAssignUnits(corerequest.AssignContext{GuardContext: guardCtx, BloodBankAuthorized: bank}); !result.Allowed {
			return result.Error()
		}

		current, err := tx.Get(id)
		if err != nil {
			return err
		}
		updated, err = current.AssignUnits(unitIDs)
		if err != nil {
			return err
		}
		return tx.Put(updated)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, secondary.EventUnitsAssigned, id, secondary.UnitsAssignedPayload{
		AssignedUnits: updated.AssignedUnits,
		AssignedAt:    now,
	})
	s.logger.Debug().Uint64("request_id", id).Int("units", len(unitIDs)).Msg("units assigned")
	return nil
}

// GetRequest retrieves a request by id.
func (s *RequestServiceImpl) GetRequest(ctx context.Context, id uint64) (*corerequest.BloodRequest, error) {
	var found *corerequest.BloodRequest
	err := s.store.View(ctx, func(r secondary.RequestReader) error {
		var err error
		found, err = r.Get(id)
		return err
	})
	return found, err
}

// RequestIDsByIndex returns the ids in one index bucket.
func (s *RequestServiceImpl) RequestIDsByIndex(ctx context.Context, index corerequest.Index, key string) ([]uint64, error) {
	var ids []uint64
	err := s.store.View(ctx, func(r secondary.RequestReader) error {
		var err error
		ids, err = r.IDsByIndex(index, key)
		return err
	})
	return ids, err
}

// QueryHospitalRequests lists a hospital's requests.
func (s *RequestServiceImpl) QueryHospitalRequests(ctx context.Context, hospital string, status *corerequest.Status, page corerequest.Page) ([]*corerequest.BloodRequest, error) {
	requests, err := s.loadBucket(ctx, corerequest.IndexHospital, hospital)
	if err != nil {
		return nil, err
	}
	return corerequest.Paginate(corerequest.Filter(requests, corerequest.WithStatus(status)), page), nil
}

// QueryPendingRequests lists Pending requests, most urgent first.
func (s *RequestServiceImpl) QueryPendingRequests(ctx context.Context, page corerequest.Page) ([]*corerequest.BloodRequest, error) {
	requests, err := s.loadBucket(ctx, corerequest.IndexStatus, string(corerequest.StatusPending))
	if err != nil {
		return nil, err
	}
	corerequest.SortByUrgency(requests)
	return corerequest.Paginate(requests, page), nil
}

// QueryRequestsByDateRange lists requests created within [start, end].
func (s *RequestServiceImpl) QueryRequestsByDateRange(ctx context.Context, start, end int64, status *corerequest.Status, page corerequest.Page) ([]*corerequest.BloodRequest, error) {
	var requests []*corerequest.BloodRequest
	var err error
	if status != nil {
		requests, err = s.loadBucket(ctx, corerequest.IndexStatus, string(*status))
	} else {
		err = s.store.View(ctx, func(r secondary.RequestReader) error {
			var err error
			requests, err = r.Scan()
			return err
		})
	}
	if err != nil {
		return nil, err
	}
	return corerequest.Paginate(corerequest.Filter(requests, corerequest.CreatedBetween(start, end)), page), nil
}

// QueryRequestsByUrgency lists requests of one urgency.
func (s *RequestServiceImpl) QueryRequestsByUrgency(ctx context.Context, urgency corerequest.Urgency, status *corerequest.Status, page corerequest.Page) ([]*corerequest.BloodRequest, error) {
	requests, err := s.loadBucket(ctx, corerequest.IndexUrgency, string(urgency))
	if err != nil {
		return nil, err
	}
	return corerequest.Paginate(corerequest.Filter(requests, corerequest.WithStatus(status)), page), nil
}

// loadBucket resolves an index bucket into full requests in id order.
func (s *RequestServiceImpl) loadBucket(ctx context.Context, index corerequest.Index, key string) ([]*corerequest.BloodRequest, error) {
	var requests []*corerequest.BloodRequest
	err := s.store.View(ctx, func(r secondary.RequestReader) error {
		ids, err := r.IDsByIndex(index, key)
		if err != nil {
			return err
		}
		requests = make([]*corerequest.BloodRequest, 0, len(ids))
		for _, id := range ids {
			req, err := r.Get(id)
			if err != nil {
				return fmt.Errorf("index %s/%s points at request %d: %w", index, key, id, err)
			}
			requests = append(requests, req)
		}
		return nil
	})
	return requests, err
}

func (s *RequestServiceImpl) callerAndNow(ctx context.Context) (string, int64, error) {
	caller, err := s.identity.GetCaller(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("failed to resolve caller: %w", err)
	}
	now, err := s.clock.Now(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("failed to read clock: %w", err)
	}
	return caller, now, nil
}

// publish sends an event after commit. Failures are logged, never returned.
func (s *RequestServiceImpl) publish(ctx context.Context, name secondary.EventName, requestID uint64, payload any) {
	event := secondary.Event{
		EventID:   s.newID(),
		Name:      name,
		RequestID: requestID,
		Payload:   payload,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("event", string(name)).Uint64("request_id", requestID).Msg("failed to publish event")
	}
}

func loadGuardContext(r secondary.RequestReader, caller string) (corerequest.GuardContext, error) {
	admin, ok, err := r.Admin()
	if err != nil {
		return corerequest.GuardContext{}, fmt.Errorf("failed to load admin: %w", err)
	}
	return corerequest.GuardContext{Caller: caller, Admin: admin, Initialized: ok}, nil
}

// Ensure RequestServiceImpl implements the interface
var _ primary.RequestService = (*RequestServiceImpl)(nil)
