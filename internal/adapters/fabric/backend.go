// Package fabric hosts the request engine as Hyperledger Fabric chaincode.
// The world state is the kvstore backend, the transaction timestamp is the
// clock, the client certificate is the caller and chaincode events carry the
// domain events.
package fabric

import (
	"context"
	"fmt"

	"github.com/hyperledger/fabric-chaincode-go/shim"

	"github.com/example/lifebank/internal/adapters/kvstore"
)

// StubBackend reads and writes the world state through a chaincode stub.
// Atomicity comes from the ledger transaction itself.
type StubBackend struct {
	stub shim.ChaincodeStubInterface
}

// NewStubBackend creates a backend bound to one transaction's stub.
func NewStubBackend(stub shim.ChaincodeStubInterface) *StubBackend {
	return &StubBackend{stub: stub}
}

func (b *StubBackend) compositeKey(k kvstore.Key) (string, error) {
	key, err := b.stub.CreateCompositeKey(k.Type, k.Attrs)
	if err != nil {
		return "", fmt.Errorf("failed to create composite key for %s: %w", k.Type, err)
	}
	return key, nil
}

func (b *StubBackend) Get(_ context.Context, k kvstore.Key) ([]byte, error) {
	key, err := b.compositeKey(k)
	if err != nil {
		return nil, err
	}
	value, err := b.stub.GetState(key)
	if err != nil {
		return nil, fmt.Errorf("failed to read world state: %w", err)
	}
	return value, nil
}

func (b *StubBackend) Scan(_ context.Context, prefix kvstore.Key) ([]kvstore.Entry, error) {
	resultsIterator, err := b.stub.GetStateByPartialCompositeKey(prefix.Type, prefix.Attrs)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", prefix.Type, err)
	}
	defer resultsIterator.Close()

	var out []kvstore.Entry
	for resultsIterator.HasNext() {
		queryResponse, err := resultsIterator.Next()
		if err != nil {
			return nil, fmt.Errorf("failed to iterate %s: %w", prefix.Type, err)
		}
		objectType, attrs, err := b.stub.SplitCompositeKey(queryResponse.Key)
		if err != nil {
			return nil, fmt.Errorf("failed to split key: %w", err)
		}
		out = append(out, kvstore.Entry{
			Key:   kvstore.Key{Type: objectType, Attrs: attrs},
			Value: queryResponse.Value,
		})
	}
	return out, nil
}

func (b *StubBackend) Commit(_ context.Context, writes []kvstore.Write) error {
	for _, w := range writes {
		key, err := b.compositeKey(w.Key)
		if err != nil {
			return err
		}
		if w.Delete {
			if err := b.stub.DelState(key); err != nil {
				return fmt.Errorf("failed to delete from world state: %w", err)
			}
			continue
		}
		if err := b.stub.PutState(key, w.Value); err != nil {
			return fmt.Errorf("failed to put to world state: %w", err)
		}
	}
	return nil
}

// Ensure StubBackend implements the interface
var _ kvstore.Backend = (*StubBackend)(nil)
