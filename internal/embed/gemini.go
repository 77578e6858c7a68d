package embed

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/queryloom/queryloom/internal/log"
)

// Gemini embeds text via the Gemini embedding API.
// Stateless per call and safe for concurrent use.
type Gemini struct {
	client *genai.Client
	model  string
	dim    int32
	logger log.Logger
}

// NewGemini creates a Gemini-backed embedder.
// Fails with ErrModelLoad when the client cannot be constructed.
func NewGemini(ctx context.Context, apiKey, model string, logger log.Logger) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: API key is required", ErrModelLoad)
	}
	if model == "" {
		model = "gemini-embedding-001"
	}
	if logger == nil {
		logger = log.NewNop()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: creating genai client: %v", ErrModelLoad, err)
	}

	return &Gemini{
		client: client,
		model:  model,
		dim:    VectorDimension,
		logger: logger,
	}, nil
}

// Embed returns one vector per input text, in input order.
// Fails with ErrEncoding when an input item is empty or whitespace.
func (g *Gemini) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("%w: item %d is empty", ErrEncoding, i)
		}
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	dim := g.dim
	resp, err := g.client.Models.EmbedContent(ctx, g.model, contents, &genai.EmbedContentConfig{
		TaskType:             "SEMANTIC_SIMILARITY",
		OutputDimensionality: &dim,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding %d texts: %w", len(texts), err)
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d",
			len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if len(emb.Values) == 0 {
			return nil, fmt.Errorf("empty embedding returned for item %d", i)
		}
		vectors[i] = emb.Values
	}

	g.logger.Debug("embedded texts", "count", len(texts), "model", g.model)
	return vectors, nil
}
