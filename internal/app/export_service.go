package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	corerequest "github.com/example/lifebank/internal/core/request"
	"github.com/example/lifebank/internal/ports/primary"
	"github.com/example/lifebank/internal/ports/secondary"
)

// ExportServiceImpl implements the ExportService interface.
type ExportServiceImpl struct {
	store    secondary.RequestStore
	clock    secondary.Clock
	identity secondary.CallerIdentityProvider
	sink     secondary.SnapshotSink
	logger   zerolog.Logger
	newName  func(exportedAt int64) string
}

// NewExportService creates a new ExportService with injected dependencies.
func NewExportService(
	store secondary.RequestStore,
	clock secondary.Clock,
	identity secondary.CallerIdentityProvider,
	sink secondary.SnapshotSink,
	logger zerolog.Logger,
) *ExportServiceImpl {
	return &ExportServiceImpl{
		store:    store,
		clock:    clock,
		identity: identity,
		sink:     sink,
		logger:   logger.With().Str("component", "export_service").Logger(),
		newName: func(exportedAt int64) string {
			return fmt.Sprintf("snapshot-%d-%s.json", exportedAt, uuid.NewString())
		},
	}
}

// Export snapshots the store from one consistent read and hands it to the sink.
func (s *ExportServiceImpl) Export(ctx context.Context) (*primary.ExportResult, error) {
	caller, err := s.identity.GetCaller(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve caller: %w", err)
	}
	now, err := s.clock.Now(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read clock: %w", err)
	}

	snapshot := &primary.Snapshot{
		ExportedAt: now,
		Indexes:    make(map[corerequest.Index]map[string][]uint64, len(corerequest.Indexes)),
	}
	err = s.store.View(ctx, func(r secondary.RequestReader) error {
		guardCtx, err := loadGuardContext(r, caller)
		if err != nil {
			return err
		}
		if result := corerequest.CanAdminister(guardCtx); !result.Allowed {
			return result.Error()
		}

		if snapshot.Requests, err = r.Scan(); err != nil {
			return err
		}
		if snapshot.Counter, err = r.Counter(); err != nil {
			return err
		}
		for _, idx := range corerequest.Indexes {
			buckets, err := r.IndexBuckets(idx)
			if err != nil {
				return err
			}
			snapshot.Indexes[idx] = buckets
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if snapshot.Requests == nil {
		snapshot.Requests = []*corerequest.BloodRequest{}
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	location, err := s.sink.Write(ctx, s.newName(now), data)
	if err != nil {
		return nil, fmt.Errorf("failed to write snapshot: %w", err)
	}

	s.logger.Info().Str("location", location).Int("requests", len(snapshot.Requests)).Msg("snapshot exported")
	return &primary.ExportResult{Location: location, RequestCount: len(snapshot.Requests)}, nil
}

// Ensure ExportServiceImpl implements the interface
var _ primary.ExportService = (*ExportServiceImpl)(nil)
