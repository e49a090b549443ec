// Package export contains SnapshotSink implementations.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/example/lifebank/internal/ports/secondary"
)

// FileSink writes snapshots into a directory.
type FileSink struct {
	dir string
}

// NewFileSink creates a sink rooted at dir. The directory is created on
// first write.
func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir}
}

func (s *FileSink) Write(_ context.Context, name string, data []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// Ensure FileSink implements the interface
var _ secondary.SnapshotSink = (*FileSink)(nil)
