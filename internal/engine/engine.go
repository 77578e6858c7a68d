// Package engine composes retrieval and generation into the
// question→SQL pipeline.
//
// The Engine depends on two consumer-defined capabilities rather than
// concrete backends: a Retriever (the knowledge store) and a
// ChatCompleter (the LLM client). Either can be substituted without
// touching orchestration logic.
package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/queryloom/queryloom/internal/knowledge"
	"github.com/queryloom/queryloom/internal/log"
)

// Retriever is the knowledge-store capability the engine depends on.
// *knowledge.Store satisfies it.
type Retriever interface {
	Insert(ctx context.Context, collection string, entry knowledge.Entry) (string, error)
	Query(ctx context.Context, collection, text string, topK int) ([]knowledge.Result, error)
	Count(collection string) int
}

// ChatCompleter is the LLM capability the engine depends on.
// *llm.Client satisfies it.
type ChatCompleter interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Counts reports per-collection training data volume.
type Counts struct {
	DDL           int `json:"ddl"`
	Documentation int `json:"documentation"`
	Examples      int `json:"examples"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithTopK sets the per-collection retrieval depth. Default is 5.
func WithTopK(k int) Option {
	return func(e *Engine) {
		if k > 0 {
			e.topK = k
		}
	}
}

// WithLogger sets the engine's logger.
func WithLogger(logger log.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Engine generates SQL statements grounded in retrieved knowledge.
//
// An Engine is created once per credential and lives for the process
// lifetime; there is no teardown contract. A failed generation leaves
// the engine usable for subsequent calls.
type Engine struct {
	store  Retriever
	chat   ChatCompleter
	topK   int
	logger log.Logger
}

// New creates an Engine from its two capabilities.
func New(store Retriever, chat ChatCompleter, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		chat:   chat,
		topK:   5,
		logger: log.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GenerateSQL turns a natural-language question into a SQL statement.
//
// It retrieves the top-k most similar entries from each collection,
// assembles a grounded prompt, invokes the model, and extracts the
// statement from the response. Returns ("", nil) when no statement can
// be extracted — a valid outcome, not an error. Retrieval and
// completion failures propagate unchanged.
func (e *Engine) GenerateSQL(ctx context.Context, question string) (string, error) {
	if question == "" {
		return "", fmt.Errorf("question cannot be empty")
	}

	ddl, err := e.store.Query(ctx, knowledge.CollectionDDL, question, e.topK)
	if err != nil {
		return "", fmt.Errorf("retrieving schema context: %w", err)
	}
	docs, err := e.store.Query(ctx, knowledge.CollectionDocumentation, question, e.topK)
	if err != nil {
		return "", fmt.Errorf("retrieving documentation context: %w", err)
	}
	examples, err := e.store.Query(ctx, knowledge.CollectionExamples, question, e.topK)
	if err != nil {
		return "", fmt.Errorf("retrieving examples: %w", err)
	}

	prompt := buildPrompt(ddl, docs, examples, question)

	response, err := e.chat.Complete(ctx, systemInstruction, prompt)
	if err != nil {
		return "", err
	}

	sql := ExtractSQL(response)
	if sql == "" {
		e.logger.Debug("no SQL extractable from model response",
			"question", question, "response_length", len(response))
		return "", nil
	}

	e.logger.Debug("generated SQL",
		"question", question,
		"ddl_context", len(ddl), "doc_context", len(docs), "example_context", len(examples))
	return sql, nil
}

// TrainDDL adds a DDL statement to the knowledge store. The entry ID
// is derived from the content, so re-training the same statement
// overwrites instead of duplicating.
func (e *Engine) TrainDDL(ctx context.Context, ddl string) error {
	if ddl == "" {
		return fmt.Errorf("ddl cannot be empty")
	}
	_, err := e.store.Insert(ctx, knowledge.CollectionDDL, knowledge.Entry{
		ID:      contentID(ddl, "ddl"),
		Content: ddl,
	})
	if err != nil {
		return fmt.Errorf("training ddl: %w", err)
	}
	return nil
}

// TrainDocumentation adds a documentation passage to the knowledge store.
func (e *Engine) TrainDocumentation(ctx context.Context, documentation string) error {
	if documentation == "" {
		return fmt.Errorf("documentation cannot be empty")
	}
	_, err := e.store.Insert(ctx, knowledge.CollectionDocumentation, knowledge.Entry{
		ID:      contentID(documentation, "doc"),
		Content: documentation,
	})
	if err != nil {
		return fmt.Errorf("training documentation: %w", err)
	}
	return nil
}

// TrainExample adds a question→SQL pair to the knowledge store.
func (e *Engine) TrainExample(ctx context.Context, question, sql string) error {
	if question == "" || sql == "" {
		return fmt.Errorf("both question and sql are required")
	}
	content := question + "\n" + sql
	_, err := e.store.Insert(ctx, knowledge.CollectionExamples, knowledge.Entry{
		ID:      contentID(content, "sql"),
		Content: content,
		Metadata: map[string]string{
			"question": question,
			"sql":      sql,
		},
	})
	if err != nil {
		return fmt.Errorf("training example: %w", err)
	}
	return nil
}

// TrainingDataCount reports entry counts per collection. Collections
// that do not exist yet count as 0.
func (e *Engine) TrainingDataCount() Counts {
	return Counts{
		DDL:           e.store.Count(knowledge.CollectionDDL),
		Documentation: e.store.Count(knowledge.CollectionDocumentation),
		Examples:      e.store.Count(knowledge.CollectionExamples),
	}
}

// contentID derives a stable entry ID from content, scoped by kind.
func contentID(content, kind string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:16]) + "-" + kind
}
