package app

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/example/lifebank/internal/core/errkind"
	corerequest "github.com/example/lifebank/internal/core/request"
	"github.com/example/lifebank/internal/ports/primary"
)

func newTestExportService(h *testHarness, sink *mockSnapshotSink) *ExportServiceImpl {
	return NewExportService(h.store, h.clock, h.identity, sink, zerolog.Nop())
}

func TestExport(t *testing.T) {
	h := newInitializedHarness(t)
	first := h.create("HOSP-1", corerequest.UrgencyCritical)
	h.create("HOSP-1", corerequest.UrgencyNormal)
	h.as("ADMIN")
	h.must(h.service.ApproveRequest(context.Background(), first))

	sink := &mockSnapshotSink{}
	result, err := newTestExportService(h, sink).Export(context.Background())
	if err != nil {
		t.Fatalf("Export() failed: %v", err)
	}
	if result.RequestCount != 2 || !strings.HasPrefix(result.Location, "mock://snapshot-1700000000-") {
		t.Errorf("Export() = %+v", result)
	}

	var snapshot primary.Snapshot
	if err := json.Unmarshal(sink.data, &snapshot); err != nil {
		t.Fatalf("snapshot is not JSON: %v", err)
	}
	if snapshot.ExportedAt != testNow || snapshot.Counter != 2 || len(snapshot.Requests) != 2 {
		t.Errorf("snapshot header = %d/%d/%d", snapshot.ExportedAt, snapshot.Counter, len(snapshot.Requests))
	}
	if got := snapshot.Indexes[corerequest.IndexStatus]["Approved"]; len(got) != 1 || got[0] != first {
		t.Errorf("status/Approved bucket = %v", got)
	}
	if got := snapshot.Indexes[corerequest.IndexHospital]["HOSP-1"]; len(got) != 2 {
		t.Errorf("hospital/HOSP-1 bucket = %v", got)
	}
}

func TestExport_Errors(t *testing.T) {
	tests := []struct {
		name    string
		caller  string
		sink    *mockSnapshotSink
		wantErr error
	}{
		{name: "non-admin", caller: "HOSP-1", sink: &mockSnapshotSink{}, wantErr: errkind.ErrUnauthorized},
		{name: "sink failure", caller: "ADMIN", sink: &mockSnapshotSink{writeErr: errors.New("bucket gone")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newInitializedHarness(t).as(tt.caller)
			_, err := newTestExportService(h, tt.sink).Export(context.Background())
			if err == nil {
				t.Fatal("Export() succeeded, want error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Export() error = %v, want %v", err, tt.wantErr)
			}
			if tt.sink.data != nil {
				t.Error("sink written despite error")
			}
		})
	}
}

func TestExport_EmptyStore(t *testing.T) {
	h := newInitializedHarness(t)
	sink := &mockSnapshotSink{}
	if _, err := newTestExportService(h, sink).Export(context.Background()); err != nil {
		t.Fatalf("Export() failed: %v", err)
	}
	if !strings.Contains(string(sink.data), `"requests": []`) {
		t.Errorf("empty snapshot = %s", sink.data)
	}
}
