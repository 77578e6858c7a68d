package engine

import (
	"strings"

	"github.com/queryloom/queryloom/internal/knowledge"
)

// systemInstruction frames every generation request. It pins the
// dialect and demands a single executable statement so extraction
// stays simple.
const systemInstruction = `You are a PostgreSQL expert. Given schema context, documentation, and example question-SQL pairs, answer the user's question with exactly one executable PostgreSQL statement.

Rules:
- Respond with a single SQL statement and nothing else.
- Only reference tables and columns that appear in the provided schema.
- Prefer explicit column lists over SELECT * where the question names specific fields.
- If the question cannot be answered from the schema, say so briefly instead of inventing SQL.`

// buildPrompt assembles the grounded prompt: schema context first,
// then semantic documentation, then few-shot examples, then the
// question itself. Empty sections are omitted.
func buildPrompt(ddl, docs, examples []knowledge.Result, question string) string {
	var b strings.Builder

	if len(ddl) > 0 {
		b.WriteString("### Schema\n")
		for _, r := range ddl {
			b.WriteString(r.Entry.Content)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(docs) > 0 {
		b.WriteString("### Documentation\n")
		for _, r := range docs {
			b.WriteString(r.Entry.Content)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(examples) > 0 {
		b.WriteString("### Examples\n")
		for _, r := range examples {
			question, sql := exampleParts(r.Entry)
			b.WriteString("Question: ")
			b.WriteString(question)
			b.WriteString("\nSQL: ")
			b.WriteString(sql)
			b.WriteString("\n\n")
		}
	}

	b.WriteString("### Question\n")
	b.WriteString(question)
	b.WriteString("\n")

	return b.String()
}

// exampleParts splits an example entry into its question and SQL.
// Entries trained through TrainExample carry both in metadata; for
// anything else, fall back to the first line / remainder of content.
func exampleParts(entry knowledge.Entry) (string, string) {
	if q, ok := entry.Metadata["question"]; ok {
		if s, ok := entry.Metadata["sql"]; ok {
			return q, s
		}
	}
	question, sql, found := strings.Cut(entry.Content, "\n")
	if !found {
		return entry.Content, ""
	}
	return question, sql
}
