// Package request contains the pure business logic for blood requests: the
// entity, its status state machine, guards, index keys and query helpers.
// This is part of the Functional Core - no I/O, only pure functions.
package request

import (
	"strings"

	"github.com/example/lifebank/internal/core/errkind"
)

// BloodType is one of the eight ABO/Rh groups.
type BloodType string

const (
	APositive  BloodType = "A+"
	ANegative  BloodType = "A-"
	BPositive  BloodType = "B+"
	BNegative  BloodType = "B-"
	ABPositive BloodType = "AB+"
	ABNegative BloodType = "AB-"
	OPositive  BloodType = "O+"
	ONegative  BloodType = "O-"
)

// BloodTypes lists every blood type in declaration order.
var BloodTypes = []BloodType{APositive, ANegative, BPositive, BNegative, ABPositive, ABNegative, OPositive, ONegative}

var bloodTypeAliases = map[string]BloodType{
	"apositive":  APositive,
	"anegative":  ANegative,
	"bpositive":  BPositive,
	"bnegative":  BNegative,
	"abpositive": ABPositive,
	"abnegative": ABNegative,
	"opositive":  OPositive,
	"onegative":  ONegative,
}

// ParseBloodType accepts the short form ("O+") or the long form ("OPositive"),
// case-insensitively.
func ParseBloodType(s string) (BloodType, error) {
	s = strings.TrimSpace(s)
	for _, bt := range BloodTypes {
		if strings.EqualFold(s, string(bt)) {
			return bt, nil
		}
	}
	if bt, ok := bloodTypeAliases[strings.ToLower(s)]; ok {
		return bt, nil
	}
	return "", errkind.New(errkind.InvalidInput, "unknown blood type %q", s)
}

// IsValid reports whether bt is one of the eight groups.
func (bt BloodType) IsValid() bool {
	switch bt {
	case APositive, ANegative, BPositive, BNegative, ABPositive, ABNegative, OPositive, ONegative:
		return true
	}
	return false
}

// Urgency is the clinical priority of a request.
type Urgency string

const (
	UrgencyCritical Urgency = "Critical"
	UrgencyUrgent   Urgency = "Urgent"
	UrgencyNormal   Urgency = "Normal"
)

// Urgencies lists every urgency from most to least urgent.
var Urgencies = []Urgency{UrgencyCritical, UrgencyUrgent, UrgencyNormal}

// ParseUrgency parses an urgency name case-insensitively.
func ParseUrgency(s string) (Urgency, error) {
	for _, u := range Urgencies {
		if strings.EqualFold(strings.TrimSpace(s), string(u)) {
			return u, nil
		}
	}
	return "", errkind.New(errkind.InvalidInput, "unknown urgency %q", s)
}

// IsValid reports whether u is a known urgency.
func (u Urgency) IsValid() bool {
	switch u {
	case UrgencyCritical, UrgencyUrgent, UrgencyNormal:
		return true
	}
	return false
}

// MaxFulfillmentSeconds is the SLA budget for the urgency.
func (u Urgency) MaxFulfillmentSeconds() int64 {
	switch u {
	case UrgencyCritical:
		return 3600
	case UrgencyUrgent:
		return 21600
	case UrgencyNormal:
		return 86400
	}
	return 0
}

// PriorityWeight orders urgencies for processing: higher is more urgent.
func (u Urgency) PriorityWeight() int {
	switch u {
	case UrgencyCritical:
		return 3
	case UrgencyUrgent:
		return 2
	case UrgencyNormal:
		return 1
	}
	return 0
}

// IsHigherThan reports whether u outranks other.
func (u Urgency) IsHigherThan(other Urgency) bool {
	return u.PriorityWeight() > other.PriorityWeight()
}

// Status is the lifecycle state of a request.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusApproved  Status = "Approved"
	StatusFulfilled Status = "Fulfilled"
	StatusCompleted Status = "Completed"
	StatusRejected  Status = "Rejected"
	StatusCancelled Status = "Cancelled"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusPending, StatusApproved, StatusFulfilled, StatusCompleted, StatusRejected, StatusCancelled}

// ParseStatus parses a status name case-insensitively.
func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if strings.EqualFold(strings.TrimSpace(s), string(st)) {
			return st, nil
		}
	}
	return "", errkind.New(errkind.InvalidInput, "unknown status %q", s)
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusFulfilled, StatusCompleted, StatusRejected, StatusCancelled:
		return true
	}
	return false
}
