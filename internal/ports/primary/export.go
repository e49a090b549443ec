package primary

import (
	"context"

	corerequest "github.com/example/lifebank/internal/core/request"
)

// ExportService defines the primary port for off-ledger snapshots.
type ExportService interface {
	// Export writes every request and every index bucket to the configured
	// sink. Admin only.
	Export(ctx context.Context) (*ExportResult, error)
}

// Snapshot is the exported document.
type Snapshot struct {
	ExportedAt int64                                     `json:"exported_at"`
	Counter    uint64                                    `json:"counter"`
	Requests   []*corerequest.BloodRequest               `json:"requests"`
	Indexes    map[corerequest.Index]map[string][]uint64 `json:"indexes"`
}

// ExportResult describes a completed export.
type ExportResult struct {
	Location     string
	RequestCount int
}
