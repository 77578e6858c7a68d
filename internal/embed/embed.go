// Package embed converts text into fixed-dimension vectors for
// similarity search.
//
// The Embedder interface is the contract the knowledge store builds
// on: one vector per input text, same order, same dimension, and
// stable output for identical input with the same model. The
// production implementation calls the Gemini embedding API; tests use
// a deterministic in-process fake (see internal/testutil).
package embed

import (
	"context"
	"errors"
)

// VectorDimension is the embedding dimension used across the store.
// gemini-embedding-001 outputs 3072 dimensions by default but supports
// truncation via OutputDimensionality (Matryoshka Representation
// Learning). All collections must be written and queried with vectors
// from the same model and dimension; changing either requires
// re-embedding every entry.
const VectorDimension int32 = 768

var (
	// ErrModelLoad indicates the embedding model/client could not be
	// initialized. Fatal for the process unless resolved externally.
	ErrModelLoad = errors.New("embedding model unavailable")

	// ErrEncoding indicates malformed input (e.g. an empty text item).
	ErrEncoding = errors.New("cannot encode input")
)

// Embedder converts texts into embedding vectors.
//
// Implementations must return exactly one vector per input, in input
// order, all with the same dimension.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
