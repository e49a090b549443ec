package app

import (
	"context"
	"slices"
	"sort"

	corerequest "github.com/example/lifebank/internal/core/request"
	"github.com/example/lifebank/internal/ports/primary"
	"github.com/example/lifebank/internal/ports/secondary"
)

// VerifyIndexes rebuilds every index from a full scan of the primary records
// and reports each bucket that differs from what the store holds.
func (s *RequestServiceImpl) VerifyIndexes(ctx context.Context) (*primary.IndexReport, error) {
	report := &primary.IndexReport{}

	err := s.store.View(ctx, func(r secondary.RequestReader) error {
		requests, err := r.Scan()
		if err != nil {
			return err
		}
		counter, err := r.Counter()
		if err != nil {
			return err
		}

		report.RequestCount = len(requests)
		report.Counter = counter
		for _, req := range requests {
			if req.ID > report.MaxID {
				report.MaxID = req.ID
			}
			if err := req.Validate(); err != nil {
				report.Invalid = append(report.Invalid, req.ID)
			}
		}

		expected := corerequest.BuildIndexes(requests)
		for _, idx := range corerequest.Indexes {
			stored, err := r.IndexBuckets(idx)
			if err != nil {
				return err
			}
			report.Mismatches = append(report.Mismatches, compareBuckets(idx, stored, expected[idx])...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !report.OK() {
		s.logger.Warn().
			Int("mismatches", len(report.Mismatches)).
			Int("invalid", len(report.Invalid)).
			Uint64("counter", report.Counter).
			Uint64("max_id", report.MaxID).
			Msg("index audit found inconsistencies")
	}
	return report, nil
}

func compareBuckets(idx corerequest.Index, stored, expected map[string][]uint64) []primary.IndexMismatch {
	keys := make(map[string]struct{}, len(stored)+len(expected))
	for k := range stored {
		keys[k] = struct{}{}
	}
	for k := range expected {
		keys[k] = struct{}{}
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	var out []primary.IndexMismatch
	for _, k := range sorted {
		got := append([]uint64(nil), stored[k]...)
		want := append([]uint64(nil), expected[k]...)
		slices.Sort(got)
		slices.Sort(want)
		if !slices.Equal(got, want) {
			out = append(out, primary.IndexMismatch{Index: idx, Key: k, Stored: got, Expected: want})
		}
	}
	return out
}
