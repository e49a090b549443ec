// Package identity resolves callers and time for processes that run outside
// a ledger, such as the CLI.
package identity

import (
	"context"
	"time"

	"github.com/example/lifebank/internal/core/errkind"
	"github.com/example/lifebank/internal/ctxutil"
	"github.com/example/lifebank/internal/ports/secondary"
)

// ContextIdentity reads the caller from the context and falls back to a
// configured default principal.
type ContextIdentity struct {
	fallback string
}

// NewContextIdentity creates a provider. fallback may be empty, in which case
// a context without a caller is rejected.
func NewContextIdentity(fallback string) *ContextIdentity {
	return &ContextIdentity{fallback: fallback}
}

func (c *ContextIdentity) GetCaller(ctx context.Context) (string, error) {
	if caller := ctxutil.CallerFromContext(ctx); caller != "" {
		return caller, nil
	}
	if c.fallback != "" {
		return c.fallback, nil
	}
	return "", errkind.New(errkind.Unauthorized, "no caller identity: set --as or principal in config")
}

// SystemClock reports wall-clock time.
type SystemClock struct{}

func (SystemClock) Now(_ context.Context) (int64, error) {
	return time.Now().Unix(), nil
}

// FixedClock always reports the same instant. Setting T moves it.
type FixedClock struct {
	T int64
}

func (c *FixedClock) Now(_ context.Context) (int64, error) {
	return c.T, nil
}

var (
	_ secondary.CallerIdentityProvider = (*ContextIdentity)(nil)
	_ secondary.Clock                  = SystemClock{}
	_ secondary.Clock                  = (*FixedClock)(nil)
)
