package fabric

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hyperledger/fabric-chaincode-go/pkg/cid"
	"github.com/hyperledger/fabric-chaincode-go/shim"

	"github.com/example/lifebank/internal/ports/secondary"
)

// PrincipalAttribute is the certificate attribute that, when present, names
// the caller. Without it the caller is the certificate's unique id.
const PrincipalAttribute = "lifebank.principal"

// TxClock reads time from the transaction proposal, so every endorser agrees.
type TxClock struct {
	stub shim.ChaincodeStubInterface
}

// NewTxClock creates a clock bound to one transaction's stub.
func NewTxClock(stub shim.ChaincodeStubInterface) *TxClock {
	return &TxClock{stub: stub}
}

func (c *TxClock) Now(_ context.Context) (int64, error) {
	ts, err := c.stub.GetTxTimestamp()
	if err != nil {
		return 0, fmt.Errorf("failed to get transaction timestamp: %w", err)
	}
	return ts.GetSeconds(), nil
}

// ClientIdentity resolves the caller from the submitting client's certificate.
type ClientIdentity struct {
	id cid.ClientIdentity
}

// NewClientIdentity wraps a client identity.
func NewClientIdentity(id cid.ClientIdentity) *ClientIdentity {
	return &ClientIdentity{id: id}
}

func (c *ClientIdentity) GetCaller(_ context.Context) (string, error) {
	if principal, found, err := c.id.GetAttributeValue(PrincipalAttribute); err == nil && found && principal != "" {
		return principal, nil
	}
	id, err := c.id.GetID()
	if err != nil {
		return "", fmt.Errorf("failed to get client identity: %w", err)
	}
	return id, nil
}

// StubPublisher emits domain events as chaincode events. Fabric keeps only
// the last event set in a transaction; every operation emits at most one.
type StubPublisher struct {
	stub shim.ChaincodeStubInterface
}

// NewStubPublisher creates a publisher bound to one transaction's stub.
func NewStubPublisher(stub shim.ChaincodeStubInterface) *StubPublisher {
	return &StubPublisher{stub: stub}
}

func (p *StubPublisher) Publish(_ context.Context, event secondary.Event) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.stub.SetEvent(string(event.Name), eventJSON); err != nil {
		return fmt.Errorf("failed to emit event: %w", err)
	}
	return nil
}

var (
	_ secondary.Clock                  = (*TxClock)(nil)
	_ secondary.CallerIdentityProvider = (*ClientIdentity)(nil)
	_ secondary.EventPublisher         = (*StubPublisher)(nil)
)
