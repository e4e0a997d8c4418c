package sql

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult describes a value libinjection flagged.
type InjectionCheckResult struct {
	Name        string // what the value was, e.g. "schema_hint"
	Value       string
	Fingerprint string // libinjection fingerprint of the detected pattern
}

// CheckValueForInjection runs libinjection over a caller-supplied value that
// will end up inside catalog SQL. Returns nil when the value looks clean.
//
// Example:
//
//	CheckValueForInjection("schema_hint", "HR")                   // nil
//	CheckValueForInjection("schema_hint", "HR' OR '1'='1")        // flagged
func CheckValueForInjection(name, value string) *InjectionCheckResult {
	if value == "" {
		return nil
	}

	isSQLi, fingerprint := libinjection.IsSQLi(value)
	if !isSQLi {
		return nil
	}

	return &InjectionCheckResult{
		Name:        name,
		Value:       value,
		Fingerprint: string(fingerprint),
	}
}
