// Package cli provides thin CLI adapters that translate between CLI concerns
// and application services. Adapters handle output formatting, but delegate
// business logic to services.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	corerequest "github.com/example/lifebank/internal/core/request"
	"github.com/example/lifebank/internal/ports/primary"
)

// RequestAdapter is a thin adapter that translates CLI operations to RequestService calls.
// It depends only on the RequestService interface, enabling easy testing with mocks.
type RequestAdapter struct {
	service primary.RequestService
	out     io.Writer
	now     func() int64
}

// NewRequestAdapter creates a new RequestAdapter with the given service.
func NewRequestAdapter(service primary.RequestService, out io.Writer) *RequestAdapter {
	return &RequestAdapter{
		service: service,
		out:     out,
		now:     func() int64 { return time.Now().Unix() },
	}
}

// Initialize records the admin principal.
func (a *RequestAdapter) Initialize(ctx context.Context, admin string) error {
	if err := a.service.Initialize(ctx, admin); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "✓ Initialized with admin %s\n", admin)
	return nil
}

// AuthorizeHospital adds a hospital to the registry.
func (a *RequestAdapter) AuthorizeHospital(ctx context.Context, hospital string) error {
	if err := a.service.AuthorizeHospital(ctx, hospital); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "✓ Hospital %s authorized\n", hospital)
	return nil
}

// RevokeHospital removes a hospital from the registry.
func (a *RequestAdapter) RevokeHospital(ctx context.Context, hospital string) error {
	if err := a.service.RevokeHospital(ctx, hospital); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "✓ Hospital %s revoked\n", hospital)
	return nil
}

// CheckHospital prints whether a hospital may create requests.
func (a *RequestAdapter) CheckHospital(ctx context.Context, hospital string) error {
	ok, err := a.service.IsHospitalAuthorized(ctx, hospital)
	if err != nil {
		return err
	}
	if ok {
		fmt.Fprintf(a.out, "%s %s is authorized\n", color.New(color.FgGreen).Sprint("✓"), hospital)
	} else {
		fmt.Fprintf(a.out, "%s %s is not authorized\n", color.New(color.FgRed).Sprint("✗"), hospital)
	}
	return nil
}

// AuthorizeBloodBank adds a blood bank to the registry.
func (a *RequestAdapter) AuthorizeBloodBank(ctx context.Context, bank string) error {
	if err := a.service.AuthorizeBloodBank(ctx, bank); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "✓ Blood bank %s authorized\n", bank)
	return nil
}

// RevokeBloodBank removes a blood bank from the registry.
func (a *RequestAdapter) RevokeBloodBank(ctx context.Context, bank string) error {
	if err := a.service.RevokeBloodBank(ctx, bank); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "✓ Blood bank %s revoked\n", bank)
	return nil
}

// Create creates a request and prints its id.
func (a *RequestAdapter) Create(ctx context.Context, req primary.CreateRequestRequest) (uint64, error) {
	id, err := a.service.CreateRequest(ctx, req)
	if err != nil {
		return 0, err
	}
	fmt.Fprintf(a.out, "✓ Created request %d: %d mL %s (%s) for %s\n",
		id, req.QuantityML, req.BloodType, req.Urgency, req.HospitalID)
	return id, nil
}

// Show displays one request.
func (a *RequestAdapter) Show(ctx context.Context, id uint64) (*corerequest.BloodRequest, error) {
	r, err := a.service.GetRequest(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get request: %w", err)
	}

	fmt.Fprintf(a.out, "\nRequest:     %d\n", r.ID)
	fmt.Fprintf(a.out, "Hospital:    %s\n", r.HospitalID)
	fmt.Fprintf(a.out, "Blood type:  %s\n", r.BloodType)
	fmt.Fprintf(a.out, "Quantity:    %d mL\n", r.QuantityML)
	fmt.Fprintf(a.out, "Urgency:     %s\n", urgencyLabel(r.Urgency))
	fmt.Fprintf(a.out, "Status:      %s\n", statusLabel(r.Status))
	fmt.Fprintf(a.out, "Created:     %s\n", formatTime(r.CreatedAt))
	fmt.Fprintf(a.out, "Required by: %s\n", formatTime(r.RequiredBy))
	if r.FulfilledAt != nil {
		fmt.Fprintf(a.out, "Fulfilled:   %s\n", formatTime(*r.FulfilledAt))
	}
	if corerequest.IsActive(r.Status) {
		a.printDeadline(r)
	}
	fmt.Fprintf(a.out, "Deliver to:  %s\n", r.DeliveryAddress)
	if len(r.AssignedUnits) > 0 {
		fmt.Fprintf(a.out, "Units:       %s\n", joinIDs(r.AssignedUnits))
	}
	if r.Metadata.PatientID != "" {
		fmt.Fprintf(a.out, "Patient:     %s\n", r.Metadata.PatientID)
	}
	if r.Metadata.Procedure != "" {
		fmt.Fprintf(a.out, "Procedure:   %s\n", r.Metadata.Procedure)
	}
	if r.Metadata.Notes != "" {
		fmt.Fprintf(a.out, "Notes:       %s\n", r.Metadata.Notes)
	}
	fmt.Fprintln(a.out)

	return r, nil
}

func (a *RequestAdapter) printDeadline(r *corerequest.BloodRequest) {
	now := a.now()
	remaining := time.Duration(r.TimeRemaining(now)) * time.Second
	if r.IsOverdue(now) {
		fmt.Fprintf(a.out, "Deadline:    %s\n", color.New(color.FgRed).Sprintf("overdue by %s", -remaining))
	} else {
		fmt.Fprintf(a.out, "Deadline:    %s left\n", remaining)
	}
	canFulfill := "no"
	if r.CanFulfill(now) {
		canFulfill = "yes"
	}
	fmt.Fprintf(a.out, "Can fulfill: %s\n", canFulfill)
}

// SetStatus moves a request to status.
func (a *RequestAdapter) SetStatus(ctx context.Context, id uint64, status corerequest.Status) error {
	if err := a.service.UpdateRequestStatus(ctx, id, status); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "✓ Request %d is now %s\n", id, statusLabel(status))
	return nil
}

// Approve approves a Pending request.
func (a *RequestAdapter) Approve(ctx context.Context, id uint64) error {
	if err := a.service.ApproveRequest(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "✓ Request %d approved\n", id)
	return nil
}

// Cancel cancels a request.
func (a *RequestAdapter) Cancel(ctx context.Context, id uint64) error {
	if err := a.service.CancelRequest(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "✓ Request %d cancelled\n", id)
	return nil
}

// Assign appends blood units to a request.
func (a *RequestAdapter) Assign(ctx context.Context, id uint64, units []uint64) error {
	if err := a.service.AssignBloodUnits(ctx, id, units); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "✓ Assigned %d unit(s) to request %d\n", len(units), id)
	return nil
}

// HospitalRequests lists a hospital's requests.
func (a *RequestAdapter) HospitalRequests(ctx context.Context, hospital string, status *corerequest.Status, page corerequest.Page) error {
	found, err := a.service.QueryHospitalRequests(ctx, hospital, status, page)
	if err != nil {
		return fmt.Errorf("failed to query requests: %w", err)
	}
	a.printTable(found)
	return nil
}

// Pending lists Pending requests, most urgent first.
func (a *RequestAdapter) Pending(ctx context.Context, page corerequest.Page) error {
	found, err := a.service.QueryPendingRequests(ctx, page)
	if err != nil {
		return fmt.Errorf("failed to query requests: %w", err)
	}
	a.printTable(found)
	return nil
}

// DateRange lists requests created within [start, end].
func (a *RequestAdapter) DateRange(ctx context.Context, start, end int64, status *corerequest.Status, page corerequest.Page) error {
	found, err := a.service.QueryRequestsByDateRange(ctx, start, end, status, page)
	if err != nil {
		return fmt.Errorf("failed to query requests: %w", err)
	}
	a.printTable(found)
	return nil
}

// ByUrgency lists requests of one urgency.
func (a *RequestAdapter) ByUrgency(ctx context.Context, urgency corerequest.Urgency, status *corerequest.Status, page corerequest.Page) error {
	found, err := a.service.QueryRequestsByUrgency(ctx, urgency, status, page)
	if err != nil {
		return fmt.Errorf("failed to query requests: %w", err)
	}
	a.printTable(found)
	return nil
}

// IDs prints the raw ids of one index bucket.
func (a *RequestAdapter) IDs(ctx context.Context, index corerequest.Index, key string) error {
	ids, err := a.service.RequestIDsByIndex(ctx, index, key)
	if err != nil {
		return fmt.Errorf("failed to read index: %w", err)
	}
	if len(ids) == 0 {
		fmt.Fprintln(a.out, "No requests found")
		return nil
	}
	fmt.Fprintln(a.out, joinIDs(ids))
	return nil
}

// VerifyIndexes prints an index audit and reports whether it passed.
func (a *RequestAdapter) VerifyIndexes(ctx context.Context) (bool, error) {
	report, err := a.service.VerifyIndexes(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to verify indexes: %w", err)
	}

	fmt.Fprintf(a.out, "Requests: %d  Counter: %d  Max id: %d\n", report.RequestCount, report.Counter, report.MaxID)
	if report.OK() {
		fmt.Fprintf(a.out, "%s indexes consistent\n", color.New(color.FgGreen).Sprint("✓"))
		return true, nil
	}

	bad := color.New(color.FgRed).Sprint("✗")
	if report.Counter < report.MaxID {
		fmt.Fprintf(a.out, "%s counter %d is behind highest id %d\n", bad, report.Counter, report.MaxID)
	}
	for _, id := range report.Invalid {
		fmt.Fprintf(a.out, "%s request %d fails validation\n", bad, id)
	}
	for _, m := range report.Mismatches {
		fmt.Fprintf(a.out, "%s %s/%s stored [%s] expected [%s]\n", bad, m.Index, m.Key, joinIDs(m.Stored), joinIDs(m.Expected))
	}
	return false, nil
}

func (a *RequestAdapter) printTable(requests []*corerequest.BloodRequest) {
	if len(requests) == 0 {
		fmt.Fprintln(a.out, "No requests found")
		return
	}

	fmt.Fprintf(a.out, "\n%-6s %-12s %-5s %-7s %-10s %-11s %s\n", "ID", "HOSPITAL", "TYPE", "ML", "URGENCY", "STATUS", "REQUIRED BY")
	fmt.Fprintln(a.out, "────────────────────────────────────────────────────────────────────────────")
	for _, r := range requests {
		fmt.Fprintf(a.out, "%-6d %-12s %-5s %-7d %-10s %-11s %s\n",
			r.ID, r.HospitalID, r.BloodType, r.QuantityML,
			urgencyLabel(r.Urgency), statusLabel(r.Status), formatTime(r.RequiredBy))
	}
	fmt.Fprintln(a.out)
}

func statusLabel(s corerequest.Status) string {
	switch s {
	case corerequest.StatusPending:
		return color.New(color.FgYellow).Sprint(s)
	case corerequest.StatusApproved, corerequest.StatusFulfilled:
		return color.New(color.FgCyan).Sprint(s)
	case corerequest.StatusCompleted:
		return color.New(color.FgGreen).Sprint(s)
	case corerequest.StatusRejected, corerequest.StatusCancelled:
		return color.New(color.FgRed).Sprint(s)
	}
	return string(s)
}

func urgencyLabel(u corerequest.Urgency) string {
	if u == corerequest.UrgencyCritical {
		return color.New(color.FgHiRed, color.Bold).Sprint(u)
	}
	return string(u)
}

func formatTime(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(time.RFC3339)
}

func joinIDs(ids []uint64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ", ")
}

// ExportAdapter translates the export command to ExportService calls.
type ExportAdapter struct {
	service primary.ExportService
	out     io.Writer
}

// NewExportAdapter creates a new ExportAdapter with the given service.
func NewExportAdapter(service primary.ExportService, out io.Writer) *ExportAdapter {
	return &ExportAdapter{service: service, out: out}
}

// Export writes a snapshot and prints where it went.
func (a *ExportAdapter) Export(ctx context.Context) error {
	result, err := a.service.Export(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "✓ Exported %d request(s) to %s\n", result.RequestCount, result.Location)
	return nil
}
