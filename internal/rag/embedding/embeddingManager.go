package embedding

import "context"

// Embedder converts text to a fixed-length vector via a remote call. One call,
// one bounded timeout, a typed failure on error. Retry belongs to the caller.
type Embedder interface {
	Model() string
	GetEmbedding(ctx context.Context, query string) ([]float32, error)
	BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error)
}
