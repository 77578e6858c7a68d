// Package testutil provides shared test doubles: a deterministic
// in-process embedder and a scripted chat completer. None of them
// touch the network, so unit tests run without credentials.
package testutil

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
)

// EmbedderDim is the vector dimension produced by Embedder.
const EmbedderDim = 64

// Embedder is a deterministic embed.Embedder implementation.
//
// It hashes whitespace-separated tokens into a fixed-dimension bag of
// words, so identical texts always produce identical vectors and texts
// sharing tokens land close in cosine space. Good enough to exercise
// real similarity ranking without a model.
type Embedder struct {
	mu    sync.Mutex
	calls int

	// Err, when set, is returned from every Embed call.
	Err error
}

// Embed returns one vector per input text, in input order.
func (e *Embedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	if e.Err != nil {
		return nil, e.Err
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = HashVector(text)
	}
	return vectors, nil
}

// Calls reports how many times Embed has been invoked.
func (e *Embedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// HashVector maps text to a deterministic EmbedderDim-dimension vector.
func HashVector(text string) []float32 {
	vec := make([]float32, EmbedderDim)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		vec[h.Sum32()%EmbedderDim]++
	}
	// Avoid the zero vector for empty text; cosine similarity against
	// it is undefined.
	if len(strings.Fields(text)) == 0 {
		vec[0] = 1
	}
	return vec
}
