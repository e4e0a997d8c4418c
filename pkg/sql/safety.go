package sql

import (
	"regexp"
	"slices"
	"strings"

	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

// rule is one deny-list entry matched against the uppercased statement.
// An empty dialects list applies to every dialect.
type rule struct {
	name     string
	pattern  *regexp.Regexp
	dialects []models.Dialect
}

func (r rule) appliesTo(d models.Dialect) bool {
	return len(r.dialects) == 0 || slices.Contains(r.dialects, d)
}

var denyRules = []rule{
	{name: "DROP", pattern: regexp.MustCompile(`\bDROP\s+`)},
	{name: "TRUNCATE", pattern: regexp.MustCompile(`\bTRUNCATE\s+`)},
	{name: "ALTER", pattern: regexp.MustCompile(`\bALTER\s+`)},
	{name: "GRANT", pattern: regexp.MustCompile(`\bGRANT\s+`)},
	{name: "REVOKE", pattern: regexp.MustCompile(`\bREVOKE\s+`)},
	{name: "CREATE principal or database", pattern: regexp.MustCompile(`\bCREATE\s+(USER|LOGIN|ROLE|DATABASE)\b`)},
	{
		name:     "EXEC",
		pattern:  regexp.MustCompile(`\bEXEC(UTE)?(\s+|\s*\()`),
		dialects: []models.Dialect{models.DialectMSSQL, models.DialectOracle},
	},
	{
		name:     "system procedure",
		pattern:  regexp.MustCompile(`\b(SP|XP)_\w+`),
		dialects: []models.Dialect{models.DialectMSSQL},
	},
	{
		name:     "SHUTDOWN",
		pattern:  regexp.MustCompile(`\bSHUTDOWN\b`),
		dialects: []models.Dialect{models.DialectMySQL, models.DialectOracle},
	},
	{
		name:     "RESET",
		pattern:  regexp.MustCompile(`\bRESET\s+`),
		dialects: []models.Dialect{models.DialectMySQL},
	},
	{
		name:     "CALL",
		pattern:  regexp.MustCompile(`\bCALL\s+`),
		dialects: []models.Dialect{models.DialectOracle, models.DialectPostgres, models.DialectMySQL},
	},
}

var (
	writePattern = regexp.MustCompile(`\b(UPDATE|DELETE)\s+`)
	wherePattern = regexp.MustCompile(`\bWHERE\b`)
)

// Violation names the deny rule a statement tripped.
type Violation struct {
	Rule  string
	Match string
}

func (v *Violation) Error() string {
	return "statement rejected by safety rule " + v.Rule + ": " + strings.TrimSpace(v.Match)
}

// Check runs the lexical deny-list over query and returns the first rule that
// fires, or nil when the statement is allowed.
//
// This is a keyword filter, not a parser. It can under-reject (destructive
// work hidden in a second statement of a batch, or behind comment tricks the
// patterns do not anticipate) and over-reject (a string literal that happens
// to contain a denied keyword). UPDATE and DELETE pass when a WHERE token
// appears anywhere in the text, which says nothing about which statement the
// WHERE belongs to.
func Check(query string, dialect models.Dialect) *Violation {
	upper := strings.ToUpper(query)

	for _, r := range denyRules {
		if !r.appliesTo(dialect) {
			continue
		}
		if m := r.pattern.FindString(upper); m != "" {
			return &Violation{Rule: r.name, Match: m}
		}
	}

	if m := writePattern.FindString(upper); m != "" && !wherePattern.MatchString(upper) {
		return &Violation{Rule: "unconditioned " + strings.TrimSpace(m), Match: m}
	}

	return nil
}

// IsSafe reports whether query passes every deny rule for dialect.
// Pure and deterministic; needs no connection.
func IsSafe(query string, dialect models.Dialect) bool {
	return Check(query, dialect) == nil
}
