package ragModel

import "context"

// ChunkStore is the row access boundary for a department's index. Chunks are
// replaced wholesale on reload; the core never mutates individual rows.
type ChunkStore interface {
	ListChunks(ctx context.Context, departmentId string) ([]DocumentChunk, error)
	ReplaceChunks(ctx context.Context, departmentId string, chunks []DocumentChunk) error
	GetState(ctx context.Context, departmentId string) (DepartmentIndexState, bool, error)
	SaveState(ctx context.Context, state DepartmentIndexState) error
}
