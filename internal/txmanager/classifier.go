package txmanager

import "strings"

// IsReadOnly reports whether a SQL statement is safe to execute inside an
// isolated read-only transaction.
//
// Policy: true iff the trimmed, case-normalised statement begins with SELECT,
// WITH, or EXPLAIN, or begins with SHOW and does not contain CREATE.
//
// This is a syntactic heuristic, not a parser. A WITH clause wrapping a
// data-modifying CTE (WITH x AS (...) INSERT ...) is classified read-only;
// the read-only transaction access mode makes the database reject such a
// statement rather than execute it. This limitation is intentional and must
// not be "fixed" with stricter parsing.
func IsReadOnly(sql string) bool {
	s := strings.ToUpper(strings.TrimSpace(sql))
	switch {
	case strings.HasPrefix(s, "SELECT"),
		strings.HasPrefix(s, "WITH"),
		strings.HasPrefix(s, "EXPLAIN"):
		return true
	case strings.HasPrefix(s, "SHOW"):
		return !strings.Contains(s, "CREATE")
	default:
		return false
	}
}
