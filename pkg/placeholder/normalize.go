// Package placeholder canonicalizes template placeholder tokens and converts
// resolved values to the text that gets substituted into documents.
package placeholder

import (
	"strings"
	"unicode"
)

// FallbackKey is returned for tokens with no letters or digits.
// It starts with the separator, so no prefix rule can match it.
const FallbackKey = "_"

// Normalize canonicalizes a raw placeholder token into a comparable key.
//
// Brackets of any convention ({{x}}, {x}, [x], <<x>>, «x», %x%) and
// template filters after '|' are dropped, camelCase humps become word
// boundaries, everything is lowercased, and every run of non-alphanumeric
// characters collapses to a single underscore:
//
//	"Buyer Bank SWIFT"      -> "buyer_bank_swift"
//	"{{buyer_bank_swift}}"  -> "buyer_bank_swift"
//	"[[VesselIMONumber]]"   -> "vessel_imo_number"
//
// Normalize is idempotent and never fails.
func Normalize(raw string) string {
	if i := strings.IndexByte(raw, '|'); i >= 0 {
		raw = raw[:i]
	}

	runes := []rune(strings.TrimSpace(raw))
	var b strings.Builder
	b.Grow(len(runes) + 4)

	pendingSep := false
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			pendingSep = true
			continue
		}
		if b.Len() > 0 && (pendingSep || isHump(runes, i)) {
			b.WriteByte('_')
		}
		pendingSep = false
		b.WriteRune(unicode.ToLower(r))
	}

	if b.Len() == 0 {
		return FallbackKey
	}
	return b.String()
}

// isHump reports a camelCase word boundary before runes[i]:
// "buyerName" (lower/digit then upper) or "SWIFTCode" (end of an acronym).
// Only runes that lowercasing changes start a hump, so the lowered output never
// splits again.
func isHump(runes []rune, i int) bool {
	if i == 0 || !isCased(runes[i]) {
		return false
	}
	prev := runes[i-1]
	if unicode.IsLower(prev) || unicode.IsDigit(prev) {
		return true
	}
	if isCased(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
		return true
	}
	return false
}

// isCased reports whether r has a distinct lowercase form. unicode.IsUpper is
// wider: it includes letters such as ℂ that have none.
func isCased(r rune) bool {
	return unicode.ToLower(r) != r
}

// Tokens splits a normalized key into its words.
func Tokens(key string) []string {
	return strings.FieldsFunc(key, func(r rune) bool { return r == '_' })
}

// IsFallback reports whether key is the fallback for an unparseable token.
func IsFallback(key string) bool {
	return key == FallbackKey
}
