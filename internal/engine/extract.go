package engine

import "strings"

// sqlKeywords are the statement-leading keywords recognized during
// extraction.
var sqlKeywords = []string{
	"SELECT", "WITH", "INSERT", "UPDATE", "DELETE",
	"CREATE", "ALTER", "DROP", "EXPLAIN",
}

// ExtractSQL pulls a single SQL statement out of a model response,
// stripping markdown fencing and surrounding prose. Returns "" when no
// statement can be found (e.g. the model declined).
func ExtractSQL(response string) string {
	if block, ok := fencedBlock(response); ok {
		response = block
	}

	lines := strings.Split(response, "\n")
	start := -1
	for i, line := range lines {
		if startsWithKeyword(line) {
			start = i
			break
		}
	}
	if start == -1 {
		return ""
	}

	stmt := strings.Join(lines[start:], "\n")

	// A semicolon terminates the statement; anything after it is
	// trailing prose or a second statement the caller did not ask for.
	if idx := strings.Index(stmt, ";"); idx >= 0 {
		stmt = stmt[:idx+1]
	}

	return strings.TrimSpace(stmt)
}

// fencedBlock returns the content of the first markdown code fence
// that contains SQL, or the first fence at all when none do.
func fencedBlock(s string) (string, bool) {
	var first string
	haveFirst := false

	rest := s
	for {
		open := strings.Index(rest, "```")
		if open == -1 {
			break
		}
		rest = rest[open+3:]
		close := strings.Index(rest, "```")
		if close == -1 {
			break
		}
		block := rest[:close]
		rest = rest[close+3:]

		// Drop the language tag line (```sql, ```postgresql, ...).
		if nl := strings.Index(block, "\n"); nl >= 0 {
			firstLine := strings.TrimSpace(block[:nl])
			if firstLine != "" && !startsWithKeyword(firstLine) {
				block = block[nl+1:]
			}
		}
		block = strings.TrimSpace(block)

		if !haveFirst {
			first = block
			haveFirst = true
		}
		for _, line := range strings.Split(block, "\n") {
			if startsWithKeyword(line) {
				return block, true
			}
		}
	}

	return first, haveFirst
}

func startsWithKeyword(line string) bool {
	up := strings.ToUpper(strings.TrimSpace(line))
	for _, kw := range sqlKeywords {
		if strings.HasPrefix(up, kw+" ") || up == kw ||
			strings.HasPrefix(up, kw+"\t") || strings.HasPrefix(up, kw+"(") {
			return true
		}
	}
	return false
}
