package api

import (
	"sync"
	"time"
)

// historyCap bounds the in-memory query history.
const historyCap = 50

// HistoryEntry records one answered question.
type HistoryEntry struct {
	Question    string    `json:"question"`
	SQL         string    `json:"sql"`
	GeneratedAt time.Time `json:"generated_at"`

	// RowCount is set when the statement was also executed; -1 means
	// generation only.
	RowCount int `json:"row_count"`
}

// history is a bounded, newest-first record of answered questions.
// Process-local only; restarts clear it.
type history struct {
	mu      sync.Mutex
	entries []HistoryEntry
}

func (h *history) add(entry HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, entry)
	if len(h.entries) > historyCap {
		h.entries = h.entries[len(h.entries)-historyCap:]
	}
}

// list returns entries newest first.
func (h *history) list() []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]HistoryEntry, len(h.entries))
	for i, entry := range h.entries {
		out[len(h.entries)-1-i] = entry
	}
	return out
}
