// Package knowledge provides the persistent vector store that grounds
// SQL generation.
//
// The store is an embedded chromem-go database rooted at a directory
// on disk, partitioned into three named collections (ddl,
// documentation, sql_examples). Entries are embedded on insert and
// retrieved by cosine similarity. The directory layout is owned by
// chromem-go and durable across restarts; concurrent writers from
// multiple processes are not supported and must be serialized
// externally.
package knowledge

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"

	"github.com/queryloom/queryloom/internal/embed"
	"github.com/queryloom/queryloom/internal/log"
)

// seqKey is the metadata key carrying the insertion sequence used for
// deterministic tie-breaking (earlier-inserted entries rank first).
const seqKey = "seq"

// NewEmbeddingFunc bridges an embed.Embedder to chromem-go's
// single-text EmbeddingFunc. chromem-go normalizes vectors itself, so
// no manual normalization is needed.
func NewEmbeddingFunc(embedder embed.Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		vectors, err := embedder.Embed(ctx, []string{text})
		if err != nil {
			return nil, fmt.Errorf("embed failed: %w", err)
		}
		if len(vectors) == 0 || len(vectors[0]) == 0 {
			return nil, fmt.Errorf("no embedding returned")
		}
		return vectors[0], nil
	}
}

// Store manages knowledge entries with vector search capabilities.
//
// Store is safe for concurrent use within a single process; the
// persistence directory assumes a single writer.
type Store struct {
	db      *chromem.DB
	embedFn chromem.EmbeddingFunc
	logger  log.Logger

	// Guards lazy collection creation.
	mu sync.Mutex
}

// NewStore opens (or creates) a persistent store rooted at dir.
func NewStore(dir string, embedder embed.Embedder, logger log.Logger) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("store directory is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}

	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("opening knowledge store at %q: %w", dir, err)
	}

	return &Store{
		db:      db,
		embedFn: NewEmbeddingFunc(embedder),
		logger:  logger,
	}, nil
}

// Insert adds an entry to the named collection, creating the
// collection on first use. An empty ID is assigned a UUID; inserting
// with an existing ID overwrites the previous entry rather than
// duplicating it. Returns the entry's ID.
func (s *Store) Insert(ctx context.Context, collection string, entry Entry) (string, error) {
	if err := validateCollection(collection); err != nil {
		return "", err
	}
	if entry.Content == "" {
		return "", fmt.Errorf("entry content cannot be empty")
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	metadata := make(map[string]string, len(entry.Metadata)+1)
	for k, v := range entry.Metadata {
		metadata[k] = v
	}
	metadata[seqKey] = strconv.FormatInt(time.Now().UnixNano(), 10)

	col, err := s.collection(collection, true)
	if err != nil {
		return "", err
	}

	if err := col.AddDocument(ctx, chromem.Document{
		ID:       entry.ID,
		Content:  entry.Content,
		Metadata: metadata,
	}); err != nil {
		return "", fmt.Errorf("inserting entry %q into %s: %w", entry.ID, collection, err)
	}

	s.logger.Debug("inserted knowledge entry",
		"collection", collection, "id", entry.ID, "content_length", len(entry.Content))
	return entry.ID, nil
}

// Query embeds text and returns the topK most similar entries in the
// collection, ordered by decreasing similarity. Ties are broken by
// insertion order (earlier entries first) so results are
// deterministic. A missing or empty collection yields empty results,
// not an error.
func (s *Store) Query(ctx context.Context, collection, text string, topK int) ([]Result, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	if topK < 1 {
		return nil, fmt.Errorf("topK must be positive, got %d", topK)
	}

	col, err := s.collection(collection, false)
	if err != nil {
		return nil, err
	}
	if col == nil {
		return nil, nil
	}

	// chromem errors when asked for more results than documents exist.
	n := topK
	if count := col.Count(); count < n {
		n = count
	}
	if n == 0 {
		return nil, nil
	}

	rows, err := col.Query(ctx, text, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", collection, err)
	}

	type scored struct {
		result Result
		seq    int64
	}
	ranked := make([]scored, 0, len(rows))
	for _, row := range rows {
		metadata := make(map[string]string, len(row.Metadata))
		for k, v := range row.Metadata {
			if k == seqKey {
				continue
			}
			metadata[k] = v
		}
		seq, _ := strconv.ParseInt(row.Metadata[seqKey], 10, 64)
		ranked = append(ranked, scored{
			result: Result{
				Entry: Entry{
					ID:       row.ID,
					Content:  row.Content,
					Metadata: metadata,
				},
				Similarity: row.Similarity,
			},
			seq: seq,
		})
	}

	// Deterministic ordering: similarity descending, then insertion
	// sequence ascending for equal scores.
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].result.Similarity != ranked[j].result.Similarity {
			return ranked[i].result.Similarity > ranked[j].result.Similarity
		}
		return ranked[i].seq < ranked[j].seq
	})

	results := make([]Result, len(ranked))
	for i, r := range ranked {
		results[i] = r.result
	}
	return results, nil
}

// Count returns the number of entries in the collection. Collections
// are created lazily on first insert, so a collection that does not
// exist yet counts as 0.
func (s *Store) Count(collection string) int {
	if validateCollection(collection) != nil {
		return 0
	}

	col := s.db.GetCollection(collection, s.embedFn)
	if col == nil {
		return 0
	}
	return col.Count()
}

// collection returns the named chromem collection, creating it when
// create is true. Returns (nil, nil) when the collection does not
// exist and create is false.
func (s *Store) collection(name string, create bool) (*chromem.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if col := s.db.GetCollection(name, s.embedFn); col != nil {
		return col, nil
	}
	if !create {
		return nil, nil
	}

	col, err := s.db.GetOrCreateCollection(name, nil, s.embedFn)
	if err != nil {
		return nil, fmt.Errorf("creating collection %s: %w", name, err)
	}
	return col, nil
}

func validateCollection(name string) error {
	if !slices.Contains(Collections, name) {
		return fmt.Errorf("unknown collection %q, must be one of: %v", name, Collections)
	}
	return nil
}
