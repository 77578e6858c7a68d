package api

import (
	"fmt"
	"testing"
	"time"
)

func TestHistoryBounded(t *testing.T) {
	h := &history{}
	for i := range historyCap + 10 {
		h.add(HistoryEntry{
			Question:    fmt.Sprintf("question %d", i),
			SQL:         "SELECT 1;",
			GeneratedAt: time.Now(),
			RowCount:    -1,
		})
	}

	entries := h.list()
	if len(entries) != historyCap {
		t.Fatalf("len = %d, want %d", len(entries), historyCap)
	}
	if entries[0].Question != fmt.Sprintf("question %d", historyCap+9) {
		t.Errorf("entries[0] = %q, want newest", entries[0].Question)
	}
	if entries[len(entries)-1].Question != "question 10" {
		t.Errorf("oldest retained = %q", entries[len(entries)-1].Question)
	}
}
