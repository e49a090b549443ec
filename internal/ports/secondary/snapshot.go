package secondary

import "context"

// SnapshotSink stores an exported snapshot under name and returns where it
// went (a path or URL).
type SnapshotSink interface {
	Write(ctx context.Context, name string, data []byte) (string, error)
}
