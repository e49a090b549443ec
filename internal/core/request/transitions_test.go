package request

import (
	"errors"
	"testing"

	"github.com/example/lifebank/internal/core/errkind"
)

func TestCanTransition_AllPairs(t *testing.T) {
	allowed := map[Status][]Status{
		StatusPending:   {StatusApproved, StatusRejected, StatusCancelled},
		StatusApproved:  {StatusFulfilled, StatusCancelled},
		StatusFulfilled: {StatusCompleted},
	}

	for _, from := range Statuses {
		for _, to := range Statuses {
			want := false
			for _, s := range allowed[from] {
				if s == to {
					want = true
				}
			}
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestIsTerminal(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusPending, false},
		{StatusApproved, false},
		{StatusFulfilled, false},
		{StatusCompleted, true},
		{StatusRejected, true},
		{StatusCancelled, true},
	}

	for _, tt := range tests {
		if got := IsTerminal(tt.status); got != tt.want {
			t.Errorf("IsTerminal(%s) = %v, want %v", tt.status, got, tt.want)
		}
		if IsTerminal(tt.status) && len(tt.status.Next()) != 0 {
			t.Errorf("%s is terminal but Next() = %v", tt.status, tt.status.Next())
		}
	}
}

func TestApplyStatusTransition(t *testing.T) {
	const now int64 = 1_700_000_500

	tests := []struct {
		name            string
		from            Status
		to              Status
		wantErr         bool
		wantFulfilledAt bool
	}{
		{name: "pending to approved", from: StatusPending, to: StatusApproved},
		{name: "approved to fulfilled sets FulfilledAt", from: StatusApproved, to: StatusFulfilled, wantFulfilledAt: true},
		{name: "fulfilled to completed", from: StatusFulfilled, to: StatusCompleted},
		{name: "pending to fulfilled skips approval", from: StatusPending, to: StatusFulfilled, wantErr: true},
		{name: "completed is terminal", from: StatusCompleted, to: StatusPending, wantErr: true},
		{name: "self transition", from: StatusApproved, to: StatusApproved, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ApplyStatusTransition(tt.from, tt.to, now)
			if tt.wantErr {
				if !errors.Is(err, errkind.ErrInvalidStatusTransition) {
					t.Errorf("ApplyStatusTransition() error = %v, want InvalidStatusTransition", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyStatusTransition() unexpected error: %v", err)
			}
			if result.NewStatus != tt.to {
				t.Errorf("ApplyStatusTransition().NewStatus = %q, want %q", result.NewStatus, tt.to)
			}
			if tt.wantFulfilledAt {
				if result.FulfilledAt == nil || *result.FulfilledAt != now {
					t.Errorf("ApplyStatusTransition().FulfilledAt = %v, want %d", result.FulfilledAt, now)
				}
			} else if result.FulfilledAt != nil {
				t.Errorf("ApplyStatusTransition().FulfilledAt = %d, want nil", *result.FulfilledAt)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	got, err := ParseStatus("approved")
	if err != nil || got != StatusApproved {
		t.Errorf("ParseStatus(approved) = (%q, %v)", got, err)
	}
	if _, err := ParseStatus("shipped"); !errors.Is(err, errkind.ErrInvalidInput) {
		t.Errorf("ParseStatus(shipped) error = %v, want InvalidInput", err)
	}
}
