// Package sql screens caller-supplied values before they reach a query.
package sql

import (
	"sort"

	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult describes a value that libinjection flagged.
type InjectionCheckResult struct {
	Name        string // identifier or dataset key name
	Value       string
	Fingerprint string
}

// CheckValue runs libinjection over one caller-supplied value.
// Returns nil when the value is clean.
//
//	CheckValue("vessel", "42")                   // nil
//	CheckValue("buyer", "x' OR '1'='1")          // Fingerprint "s&sos" or similar
func CheckValue(name, value string) *InjectionCheckResult {
	if value == "" {
		return nil
	}
	isSQLi, fingerprint := libinjection.IsSQLi(value)
	if !isSQLi {
		return nil
	}
	return &InjectionCheckResult{Name: name, Value: value, Fingerprint: string(fingerprint)}
}

// CheckAll screens every value in values. Results are sorted by name.
func CheckAll(values map[string]string) []*InjectionCheckResult {
	var results []*InjectionCheckResult
	for name, value := range values {
		if r := CheckValue(name, value); r != nil {
			results = append(results, r)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return results
}
