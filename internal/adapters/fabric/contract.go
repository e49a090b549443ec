package fabric

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/rs/zerolog"

	"github.com/example/lifebank/internal/adapters/events"
	"github.com/example/lifebank/internal/adapters/kvstore"
	"github.com/example/lifebank/internal/app"
	corerequest "github.com/example/lifebank/internal/core/request"
	"github.com/example/lifebank/internal/ports/primary"
)

// RequestContract exposes the blood request lifecycle as chaincode
// transactions.
type RequestContract struct {
	contractapi.Contract
	logger zerolog.Logger
}

// NewRequestContract creates the contract with logger for service diagnostics.
func NewRequestContract(logger zerolog.Logger) *RequestContract {
	c := &RequestContract{logger: logger}
	c.Name = "lifebank.requests"
	return c
}

// RequestView is the ledger-facing form of a request. FulfilledAt is 0 until
// the request is fulfilled. Active, Overdue, TimeRemaining and CanFulfill are
// evaluated at the transaction timestamp.
type RequestView struct {
	ID              uint64   `json:"id"`
	HospitalID      string   `json:"hospital_id"`
	BloodType       string   `json:"blood_type"`
	QuantityML      uint32   `json:"quantity_ml"`
	Urgency         string   `json:"urgency"`
	Status          string   `json:"status"`
	CreatedAt       int64    `json:"created_at"`
	RequiredBy      int64    `json:"required_by"`
	FulfilledAt     int64    `json:"fulfilled_at"`
	AssignedUnits   []uint64 `json:"assigned_units"`
	DeliveryAddress string   `json:"delivery_address"`
	PatientID       string   `json:"patient_id"`
	Procedure       string   `json:"procedure"`
	Notes           string   `json:"notes"`
	Active          bool     `json:"active"`
	Overdue         bool     `json:"overdue"`
	TimeRemaining   int64    `json:"time_remaining"`
	CanFulfill      bool     `json:"can_fulfill"`
}

// IndexReportView is the ledger-facing form of an index audit.
type IndexReportView struct {
	OK           bool     `json:"ok"`
	RequestCount int      `json:"request_count"`
	Counter      uint64   `json:"counter"`
	MaxID        uint64   `json:"max_id"`
	Invalid      []uint64 `json:"invalid"`
	Mismatches   []string `json:"mismatches"`
}

// eventNamespace scopes event ids derived from transaction ids.
var eventNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("lifebank.requests/events"))

// TxEventIDs returns an event id source derived from txID. Every endorser of
// a proposal produces the same sequence.
func TxEventIDs(txID string) func() string {
	seq := 0
	return func() string {
		seq++
		return uuid.NewSHA1(eventNamespace, []byte(fmt.Sprintf("%s/%d", txID, seq))).String()
	}
}

func (c *RequestContract) service(ctx contractapi.TransactionContextInterface) *app.RequestServiceImpl {
	stub := ctx.GetStub()
	logger := c.logger.With().Str("tx_id", stub.GetTxID()).Logger()
	return app.NewRequestService(
		kvstore.New(NewStubBackend(stub)),
		NewTxClock(stub),
		NewClientIdentity(ctx.GetClientIdentity()),
		events.Fanout{NewStubPublisher(stub), events.NewLogPublisher(logger)},
		logger,
		app.WithEventIDs(TxEventIDs(stub.GetTxID())),
	)
}

// Initialize records admin as the administering principal. The submitter
// must be admin.
func (c *RequestContract) Initialize(ctx contractapi.TransactionContextInterface, admin string) error {
	return c.service(ctx).Initialize(context.Background(), admin)
}

// AuthorizeHospital lets hospital create requests.
func (c *RequestContract) AuthorizeHospital(ctx contractapi.TransactionContextInterface, hospital string) error {
	return c.service(ctx).AuthorizeHospital(context.Background(), hospital)
}

// RevokeHospital withdraws a hospital's authorization.
func (c *RequestContract) RevokeHospital(ctx contractapi.TransactionContextInterface, hospital string) error {
	return c.service(ctx).RevokeHospital(context.Background(), hospital)
}

// IsHospitalAuthorized reports whether hospital may create requests.
func (c *RequestContract) IsHospitalAuthorized(ctx contractapi.TransactionContextInterface, hospital string) (bool, error) {
	return c.service(ctx).IsHospitalAuthorized(context.Background(), hospital)
}

// AuthorizeBloodBank lets bank assign units.
func (c *RequestContract) AuthorizeBloodBank(ctx contractapi.TransactionContextInterface, bank string) error {
	return c.service(ctx).AuthorizeBloodBank(context.Background(), bank)
}

// RevokeBloodBank withdraws a blood bank's authorization.
func (c *RequestContract) RevokeBloodBank(ctx contractapi.TransactionContextInterface, bank string) error {
	return c.service(ctx).RevokeBloodBank(context.Background(), bank)
}

// CreateRequest creates a Pending request and returns its id.
func (c *RequestContract) CreateRequest(
	ctx contractapi.TransactionContextInterface,
	hospitalID string,
	bloodType string,
	quantityML uint32,
	urgency string,
	requiredBy int64,
	deliveryAddress string,
	patientID string,
	procedure string,
	notes string,
) (uint64, error) {
	bt, err := corerequest.ParseBloodType(bloodType)
	if err != nil {
		return 0, err
	}
	u, err := corerequest.ParseUrgency(urgency)
	if err != nil {
		return 0, err
	}

	return c.service(ctx).CreateRequest(context.Background(), primary.CreateRequestRequest{
		HospitalID:      hospitalID,
		BloodType:       bt,
		QuantityML:      quantityML,
		Urgency:         u,
		RequiredBy:      requiredBy,
		DeliveryAddress: deliveryAddress,
		Metadata: corerequest.Metadata{
			PatientID: patientID,
			Procedure: procedure,
			Notes:     notes,
		},
	})
}

// UpdateRequestStatus moves a request to status.
func (c *RequestContract) UpdateRequestStatus(ctx contractapi.TransactionContextInterface, id uint64, status string) error {
	s, err := corerequest.ParseStatus(status)
	if err != nil {
		return err
	}
	return c.service(ctx).UpdateRequestStatus(context.Background(), id, s)
}

// ApproveRequest approves a Pending request that is not overdue.
func (c *RequestContract) ApproveRequest(ctx contractapi.TransactionContextInterface, id uint64) error {
	return c.service(ctx).ApproveRequest(context.Background(), id)
}

// CancelRequest cancels a request.
func (c *RequestContract) CancelRequest(ctx contractapi.TransactionContextInterface, id uint64) error {
	return c.service(ctx).CancelRequest(context.Background(), id)
}

// AssignBloodUnits appends unit ids to a request.
func (c *RequestContract) AssignBloodUnits(ctx contractapi.TransactionContextInterface, id uint64, unitIDs []uint64) error {
	return c.service(ctx).AssignBloodUnits(context.Background(), id, unitIDs)
}

// GetRequest returns one request.
func (c *RequestContract) GetRequest(ctx contractapi.TransactionContextInterface, id uint64) (*RequestView, error) {
	r, err := c.service(ctx).GetRequest(context.Background(), id)
	if err != nil {
		return nil, err
	}
	now, err := txNow(ctx)
	if err != nil {
		return nil, err
	}
	return toView(r, now), nil
}

// GetHospitalRequests returns the ids in a hospital's bucket.
func (c *RequestContract) GetHospitalRequests(ctx contractapi.TransactionContextInterface, hospital string) ([]uint64, error) {
	return c.service(ctx).RequestIDsByIndex(context.Background(), corerequest.IndexHospital, hospital)
}

// GetRequestsByStatus returns the ids in a status bucket.
func (c *RequestContract) GetRequestsByStatus(ctx contractapi.TransactionContextInterface, status string) ([]uint64, error) {
	s, err := corerequest.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	return c.service(ctx).RequestIDsByIndex(context.Background(), corerequest.IndexStatus, string(s))
}

// GetRequestsByBloodType returns the ids in a blood type bucket.
func (c *RequestContract) GetRequestsByBloodType(ctx contractapi.TransactionContextInterface, bloodType string) ([]uint64, error) {
	bt, err := corerequest.ParseBloodType(bloodType)
	if err != nil {
		return nil, err
	}
	return c.service(ctx).RequestIDsByIndex(context.Background(), corerequest.IndexBloodType, string(bt))
}

// GetRequestsByUrgency returns the ids in an urgency bucket.
func (c *RequestContract) GetRequestsByUrgency(ctx contractapi.TransactionContextInterface, urgency string) ([]uint64, error) {
	u, err := corerequest.ParseUrgency(urgency)
	if err != nil {
		return nil, err
	}
	return c.service(ctx).RequestIDsByIndex(context.Background(), corerequest.IndexUrgency, string(u))
}

// QueryHospitalRequests pages through a hospital's requests. An empty status
// disables the filter.
func (c *RequestContract) QueryHospitalRequests(ctx contractapi.TransactionContextInterface, hospital string, status string, limit int, offset int) ([]*RequestView, error) {
	filter, err := optionalStatus(status)
	if err != nil {
		return nil, err
	}
	found, err := c.service(ctx).QueryHospitalRequests(context.Background(), hospital, filter, corerequest.Page{Limit: limit, Offset: offset})
	return toViews(ctx, found, err)
}

// QueryPendingRequests pages through Pending requests, most urgent first.
func (c *RequestContract) QueryPendingRequests(ctx contractapi.TransactionContextInterface, limit int, offset int) ([]*RequestView, error) {
	found, err := c.service(ctx).QueryPendingRequests(context.Background(), corerequest.Page{Limit: limit, Offset: offset})
	return toViews(ctx, found, err)
}

// QueryRequestsByDateRange pages through requests created in [start, end].
func (c *RequestContract) QueryRequestsByDateRange(ctx contractapi.TransactionContextInterface, start int64, end int64, status string, limit int, offset int) ([]*RequestView, error) {
	filter, err := optionalStatus(status)
	if err != nil {
		return nil, err
	}
	found, err := c.service(ctx).QueryRequestsByDateRange(context.Background(), start, end, filter, corerequest.Page{Limit: limit, Offset: offset})
	return toViews(ctx, found, err)
}

// QueryRequestsByUrgencyAndStatus pages through requests of one urgency.
func (c *RequestContract) QueryRequestsByUrgencyAndStatus(ctx contractapi.TransactionContextInterface, urgency string, status string, limit int, offset int) ([]*RequestView, error) {
	u, err := corerequest.ParseUrgency(urgency)
	if err != nil {
		return nil, err
	}
	filter, err := optionalStatus(status)
	if err != nil {
		return nil, err
	}
	found, err := c.service(ctx).QueryRequestsByUrgency(context.Background(), u, filter, corerequest.Page{Limit: limit, Offset: offset})
	return toViews(ctx, found, err)
}

// VerifyIndexes audits the indexes against the primary records.
func (c *RequestContract) VerifyIndexes(ctx contractapi.TransactionContextInterface) (*IndexReportView, error) {
	report, err := c.service(ctx).VerifyIndexes(context.Background())
	if err != nil {
		return nil, err
	}
	view := &IndexReportView{
		OK:           report.OK(),
		RequestCount: report.RequestCount,
		Counter:      report.Counter,
		MaxID:        report.MaxID,
		Invalid:      report.Invalid,
	}
	for _, m := range report.Mismatches {
		view.Mismatches = append(view.Mismatches, fmt.Sprintf("%s/%s stored=%v expected=%v", m.Index, m.Key, m.Stored, m.Expected))
	}
	return view, nil
}

func optionalStatus(s string) (*corerequest.Status, error) {
	if s == "" {
		return nil, nil
	}
	status, err := corerequest.ParseStatus(s)
	if err != nil {
		return nil, err
	}
	return &status, nil
}

func txNow(ctx contractapi.TransactionContextInterface) (int64, error) {
	return NewTxClock(ctx.GetStub()).Now(context.Background())
}

func toView(r *corerequest.BloodRequest, now int64) *RequestView {
	v := &RequestView{
		ID:              r.ID,
		HospitalID:      r.HospitalID,
		BloodType:       string(r.BloodType),
		QuantityML:      r.QuantityML,
		Urgency:         string(r.Urgency),
		Status:          string(r.Status),
		CreatedAt:       r.CreatedAt,
		RequiredBy:      r.RequiredBy,
		AssignedUnits:   r.AssignedUnits,
		DeliveryAddress: r.DeliveryAddress,
		PatientID:       r.Metadata.PatientID,
		Procedure:       r.Metadata.Procedure,
		Notes:           r.Metadata.Notes,
		Active:          corerequest.IsActive(r.Status),
		Overdue:         r.IsOverdue(now),
		TimeRemaining:   r.TimeRemaining(now),
		CanFulfill:      r.CanFulfill(now),
	}
	if r.FulfilledAt != nil {
		v.FulfilledAt = *r.FulfilledAt
	}
	return v
}

func toViews(ctx contractapi.TransactionContextInterface, rs []*corerequest.BloodRequest, err error) ([]*RequestView, error) {
	if err != nil {
		return nil, err
	}
	now, err := txNow(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*RequestView, len(rs))
	for i, r := range rs {
		out[i] = toView(r, now)
	}
	return out, nil
}
