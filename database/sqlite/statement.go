package sqlite

import (
	"regexp"
	"strings"
)

// stripStringsAndComments removes string literals and comments from a
// statement so keyword detection cannot be fooled by quoted text.
// SQLite-specific: no # comments, no backslash escaping, identifiers may be
// double-quoted, backtick-quoted, or [bracketed].
func stripStringsAndComments(sql string) string {
	var result strings.Builder
	i := 0
	n := len(sql)

	for i < n {
		// Single-line comment starting with --
		if i+1 < n && sql[i] == '-' && sql[i+1] == '-' {
			for i < n && sql[i] != '\n' {
				i++
			}
			result.WriteByte(' ')
			continue
		}

		// Multi-line comment /* */
		if i+1 < n && sql[i] == '/' && sql[i+1] == '*' {
			i += 2
			for i+1 < n && !(sql[i] == '*' && sql[i+1] == '/') {
				i++
			}
			i += 2
			result.WriteByte(' ')
			continue
		}

		// Single-quoted string; '' is the only escape
		if sql[i] == '\'' {
			i++
			for i < n {
				if sql[i] == '\'' {
					if i+1 < n && sql[i+1] == '\'' {
						i += 2
						continue
					}
					i++
					break
				}
				i++
			}
			result.WriteString("''")
			continue
		}

		// Double-quoted identifier, kept verbatim
		if sql[i] == '"' {
			result.WriteByte('"')
			i++
			for i < n {
				if sql[i] == '"' {
					if i+1 < n && sql[i+1] == '"' {
						result.WriteString(`""`)
						i += 2
						continue
					}
					result.WriteByte('"')
					i++
					break
				}
				result.WriteByte(sql[i])
				i++
			}
			continue
		}

		// Backtick-quoted identifier
		if sql[i] == '`' {
			result.WriteByte('`')
			i++
			for i < n && sql[i] != '`' {
				result.WriteByte(sql[i])
				i++
			}
			if i < n {
				result.WriteByte('`')
				i++
			}
			continue
		}

		// Bracket-quoted identifier
		if sql[i] == '[' {
			result.WriteByte('[')
			i++
			for i < n && sql[i] != ']' {
				result.WriteByte(sql[i])
				i++
			}
			if i < n {
				result.WriteByte(']')
				i++
			}
			continue
		}

		result.WriteByte(sql[i])
		i++
	}

	return result.String()
}

// returningPattern matches a RETURNING keyword outside strings and comments.
var returningPattern = regexp.MustCompile(`(?i)(?:^|[^a-zA-Z_])RETURNING(?:[^a-zA-Z_]|$)`)

// isRowReturning reports whether the statement produces a result set: it
// starts with a row-producing keyword or carries a RETURNING clause. The
// decision drives whether execution materializes rows or reports an affected
// count.
func isRowReturning(sql string) bool {
	cleaned := strings.TrimSpace(stripStringsAndComments(sql))
	upper := strings.ToUpper(cleaned)

	for _, prefix := range []string{"SELECT", "WITH", "PRAGMA", "EXPLAIN", "VALUES"} {
		if upper == prefix || strings.HasPrefix(upper, prefix+" ") || strings.HasPrefix(upper, prefix+"\n") || strings.HasPrefix(upper, prefix+"(") {
			return true
		}
	}
	return returningPattern.MatchString(cleaned)
}
