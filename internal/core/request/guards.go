package request

import (
	"fmt"

	"github.com/example/lifebank/internal/core/errkind"
)

// GuardContext is the caller and registry state a guard needs. The caller
// pre-fetches it from the store so the guards stay pure.
type GuardContext struct {
	Caller      string
	Admin       string // empty until the engine is initialized
	Initialized bool
}

// IsAdmin reports whether the caller is the administering principal.
func (ctx GuardContext) IsAdmin() bool {
	return ctx.Initialized && ctx.Caller == ctx.Admin
}

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Kind    errkind.Kind // populated when not allowed
	Reason  string       // Human-readable reason (populated when not allowed)
}

// Error returns the guard result as an errkind error if not allowed, nil otherwise.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return errkind.New(r.Kind, "%s", r.Reason)
}

func allow() GuardResult { return GuardResult{Allowed: true} }

func deny(kind errkind.Kind, format string, args ...any) GuardResult {
	return GuardResult{Allowed: false, Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// CanInitialize evaluates whether the engine can be initialized with admin.
// Rule: initialization happens exactly once, signed by the admin being set.
func CanInitialize(ctx GuardContext, admin string) GuardResult {
	if ctx.Initialized {
		return deny(errkind.AlreadyInitialized, "already initialized with admin %s", ctx.Admin)
	}
	if ctx.Caller != admin {
		return deny(errkind.Unauthorized, "caller %s cannot initialize on behalf of %s", ctx.Caller, admin)
	}
	return allow()
}

// RequireInitialized fails every operation except Initialize and reads until
// an admin exists.
func RequireInitialized(ctx GuardContext) GuardResult {
	if !ctx.Initialized {
		return deny(errkind.NotInitialized, "engine has not been initialized")
	}
	return allow()
}

// CanAdminister evaluates whether the caller may run an admin-only operation
// (registry changes and direct status updates).
func CanAdminister(ctx GuardContext) GuardResult {
	if r := RequireInitialized(ctx); !r.Allowed {
		return r
	}
	if !ctx.IsAdmin() {
		return deny(errkind.Unauthorized, "caller %s is not the admin", ctx.Caller)
	}
	return allow()
}

// CreateContext extends GuardContext with the hospital named on the request.
type CreateContext struct {
	GuardContext
	HospitalID         string
	HospitalAuthorized bool
}

// CanCreateRequest evaluates whether the caller may create a request for HospitalID.
// Rule: a hospital creates only its own requests, and must be authorized
// unless it is the admin.
func CanCreateRequest(ctx CreateContext) GuardResult {
	if r := RequireInitialized(ctx.GuardContext); !r.Allowed {
		return r
	}
	if ctx.Caller != ctx.HospitalID {
		return deny(errkind.Unauthorized, "caller %s cannot create requests for hospital %s", ctx.Caller, ctx.HospitalID)
	}
	if !ctx.HospitalAuthorized && !ctx.IsAdmin() {
		return deny(errkind.NotAuthorizedHospital, "hospital %s is not authorized", ctx.HospitalID)
	}
	return allow()
}

// CanCancelRequest evaluates whether the caller may cancel r.
// Rule: the owning hospital or the admin.
func CanCancelRequest(ctx GuardContext, r *BloodRequest) GuardResult {
	if res := RequireInitialized(ctx); !res.Allowed {
		return res
	}
	if ctx.Caller != r.HospitalID && !ctx.IsAdmin() {
		return deny(errkind.Unauthorized, "caller %s cannot cancel request %d owned by %s", ctx.Caller, r.ID, r.HospitalID)
	}
	return allow()
}

// AssignContext extends GuardContext with the caller's blood-bank standing.
type AssignContext struct {
	GuardContext
	BloodBankAuthorized bool
}

// CanAssignUnits evaluates whether the caller may attach units to a request.
// Rule: the admin or an authorized blood bank.
func CanAssignUnits(ctx AssignContext) GuardResult {
	if r := RequireInitialized(ctx.GuardContext); !r.Allowed {
		return r
	}
	if !ctx.IsAdmin() && !ctx.BloodBankAuthorized {
		return deny(errkind.NotAuthorizedBloodBank, "caller %s is not an authorized blood bank", ctx.Caller)
	}
	return allow()
}

// CanApprove evaluates whether r may be approved at now.
// Rule: an overdue request cannot be approved.
func CanApprove(r *BloodRequest, now int64) GuardResult {
	if r.IsOverdue(now) {
		return deny(errkind.RequestOverdue, "request %d was required by %d", r.ID, r.RequiredBy)
	}
	return allow()
}
