// Package sql provides lexical SQL helpers: the safety deny-list, statement
// normalization, identifier and literal quoting, and injection screening.
package sql

import (
	"strings"
)

// StripTrailingSeparator trims surrounding whitespace and removes a single
// trailing semicolon. Some drivers reject it, others require it absent.
func StripTrailingSeparator(sqlQuery string) string {
	return stripTrailingSemicolon(strings.TrimSpace(sqlQuery))
}

// HasMultipleStatements reports whether, after the trailing separator is
// removed, a semicolon remains outside string literals and quoted identifiers.
// Used for diagnostics only; batches are not rejected on this basis.
func HasMultipleStatements(sqlQuery string) bool {
	return hasSemicolonOutsideStrings(StripTrailingSeparator(sqlQuery))
}

// hasSemicolonOutsideStrings returns true if the SQL contains any semicolon
// outside of string literals.
func hasSemicolonOutsideStrings(sqlQuery string) bool {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
		stateBracket
	)

	state := stateNormal
	prevChar := rune(0)

	for _, char := range sqlQuery {
		switch state {
		case stateNormal:
			switch char {
			case ';':
				return true
			case '\'':
				state = stateSingleQuote
			case '"':
				state = stateDoubleQuote
			case '[':
				state = stateBracket
			}
		case stateSingleQuote:
			// doubled '' exits and immediately re-enters, which keeps us inside
			if char == '\'' && prevChar != '\\' {
				state = stateNormal
			}
		case stateDoubleQuote:
			if char == '"' && prevChar != '\\' {
				state = stateNormal
			}
		case stateBracket:
			if char == ']' {
				state = stateNormal
			}
		}
		prevChar = char
	}

	return false
}

// stripTrailingSemicolon removes a trailing semicolon and any whitespace after it.
func stripTrailingSemicolon(sqlQuery string) string {
	sqlQuery = strings.TrimRight(sqlQuery, " \t\n\r")

	if strings.HasSuffix(sqlQuery, ";") {
		sqlQuery = strings.TrimSuffix(sqlQuery, ";")
		sqlQuery = strings.TrimRight(sqlQuery, " \t\n\r")
	}

	return sqlQuery
}
