package knowledge

// Collection names. Each holds one category of grounding material.
const (
	// CollectionDDL holds CREATE TABLE statements describing the schema.
	CollectionDDL = "ddl"

	// CollectionDocumentation holds free-text documentation passages.
	CollectionDocumentation = "documentation"

	// CollectionExamples holds question→SQL example pairs.
	CollectionExamples = "sql_examples"
)

// Collections lists all known collection names.
var Collections = []string{CollectionDDL, CollectionDocumentation, CollectionExamples}

// Entry is a single knowledge record.
//
// The embedding is derived from Content by the store's embedder; every
// entry in a collection must be embedded by the same model version
// used for querying it, so a model change requires re-training.
type Entry struct {
	ID       string            // Unique within its collection; assigned when empty
	Content  string            // DDL statement, documentation passage, or example pair
	Metadata map[string]string // Optional metadata (question, sql, ...)
}

// Result is a single search result with similarity score.
type Result struct {
	Entry      Entry
	Similarity float32 // Cosine similarity (0-1, higher = more similar)
}
