// Package validation holds the stateless checks that gate every mutation of a
// blood request. This is part of the Functional Core - no I/O, only pure functions.
// Every check is total over its inputs and returns nil or a single errkind error.
package validation

import (
	"strings"
	"unicode/utf8"

	"github.com/example/lifebank/internal/core/errkind"
)

const (
	// MinQuantityML is the smallest quantity a hospital may request.
	MinQuantityML uint32 = 50
	// MaxQuantityML is the largest quantity a hospital may request.
	MaxQuantityML uint32 = 5000
	// MaxDaysInFuture bounds how far ahead required_by may be.
	MaxDaysInFuture int64 = 30
	// SecondsPerDay is the ledger day length.
	SecondsPerDay int64 = 86400
	// MaxRequestWindow is MaxDaysInFuture expressed in seconds.
	MaxRequestWindow = MaxDaysInFuture * SecondsPerDay
)

// ValidateQuantity requires MinQuantityML <= q <= MaxQuantityML.
func ValidateQuantity(q uint32) error {
	if q < MinQuantityML || q > MaxQuantityML {
		return errkind.New(errkind.InvalidQuantity, "quantity %dml outside %d-%dml", q, MinQuantityML, MaxQuantityML)
	}
	return nil
}

// ValidateTimestamps requires required_by to be strictly in the future, no more
// than MaxRequestWindow ahead of now, and strictly after created_at.
func ValidateTimestamps(createdAt, requiredBy, now int64) error {
	if requiredBy <= now {
		return errkind.New(errkind.InvalidTimestamp, "required_by %d is not after now %d", requiredBy, now)
	}
	if requiredBy > now+MaxRequestWindow {
		return errkind.New(errkind.InvalidTimestamp, "required_by %d is more than %d days ahead", requiredBy, MaxDaysInFuture)
	}
	if createdAt >= requiredBy {
		return errkind.New(errkind.InvalidTimestamp, "created_at %d is not before required_by %d", createdAt, requiredBy)
	}
	return nil
}

// ValidateDeliveryAddress requires a non-blank address.
func ValidateDeliveryAddress(address string) error {
	if strings.TrimSpace(address) == "" {
		return errkind.New(errkind.InvalidInput, "delivery address is empty")
	}
	return nil
}

// ValidatePrincipal requires a non-blank principal identifier of valid UTF-8
// with no NUL byte. Principals become composite-key attributes, where NUL is
// the separator.
func ValidatePrincipal(principal string) error {
	if strings.TrimSpace(principal) == "" {
		return errkind.New(errkind.InvalidInput, "principal is empty")
	}
	if !utf8.ValidString(principal) {
		return errkind.New(errkind.InvalidInput, "principal %q is not valid UTF-8", principal)
	}
	if strings.ContainsRune(principal, 0) {
		return errkind.New(errkind.InvalidInput, "principal %q contains a NUL byte", principal)
	}
	return nil
}

// ValidateUnitIDs requires a non-empty batch with no id repeated within the
// batch or already present in existing.
func ValidateUnitIDs(ids, existing []uint64) error {
	if len(ids) == 0 {
		return errkind.New(errkind.InvalidInput, "no unit ids supplied")
	}
	seen := make(map[uint64]struct{}, len(ids)+len(existing))
	for _, id := range existing {
		seen[id] = struct{}{}
	}
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return errkind.New(errkind.InvalidInput, "unit %d already assigned", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
