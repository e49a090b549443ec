package secondary

import "context"

// Clock supplies the current ledger time in Unix seconds.
type Clock interface {
	Now(ctx context.Context) (int64, error)
}

// CallerIdentityProvider defines the secondary port for resolving who is
// invoking an operation.
type CallerIdentityProvider interface {
	// GetCaller returns the principal identifier of the caller.
	GetCaller(ctx context.Context) (string, error)
}
