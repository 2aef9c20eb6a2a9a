package classifier

import (
	"sort"
	"strings"

	"github.com/jinzhu/inflection"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/models"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/placeholder"
)

// synonyms rewrite single suffix words before field lookup.
var synonyms = map[string][]string{
	"addr":        {"address"},
	"tel":         {"phone"},
	"telephone":   {"phone"},
	"mobile":      {"phone"},
	"no":          {"number"},
	"num":         {"number"},
	"nr":          {"number"},
	"nbr":         {"number"},
	"number":      {"no", "code"},
	"code":        {"number"},
	"reg":         {"registration"},
	"dwt":         {"deadweight"},
	"qty":         {"quantity"},
	"sulfur":      {"sulphur"},
	"licence":     {"license"},
	"nationality": {"flag"},
	"fullname":    {"name"},
}

// fillerWords can be dropped from either end of a suffix.
var fillerWords = map[string]bool{
	"name": true, "number": true, "no": true, "code": true, "id": true, "of": true, "the": true,
}

// relaxedFields lists candidate fields for suffix. Strategies run in a fixed
// order and the first candidate wins:
//
//  1. singular/plural form of the whole suffix
//  2. word-by-word synonym substitution
//  3. adding or dropping a filler word ("swift" <-> "swift_code")
//  4. same words in a different order ("number_imo" -> "imo_number")
//
// Within a strategy, fields are visited in declaration order.
func relaxedFields(et *models.EntityType, suffix string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(field string) {
		if field != "" && !seen[field] {
			seen[field] = true
			out = append(out, field)
		}
	}

	words := placeholder.Tokens(suffix)
	if len(words) == 0 {
		return nil
	}

	for _, variant := range inflectionVariants(words) {
		add(strictField(et, variant))
	}
	for _, variant := range synonymVariants(words) {
		add(strictField(et, variant))
	}
	for _, variant := range fillerVariants(words) {
		add(strictField(et, variant))
		add(strictField(et, inflection.Singular(variant)))
	}
	for _, f := range et.Fields {
		if sameWords(placeholder.Tokens(f.Name), words) {
			add(f.Name)
		}
	}
	return out
}

func inflectionVariants(words []string) []string {
	last := len(words) - 1
	singular := append(append([]string{}, words[:last]...), inflection.Singular(words[last]))
	plural := append(append([]string{}, words[:last]...), inflection.Plural(words[last]))
	return []string{strings.Join(singular, "_"), strings.Join(plural, "_")}
}

func synonymVariants(words []string) []string {
	variants := [][]string{{}}
	for _, w := range words {
		options := append([]string{w}, synonyms[w]...)
		next := make([][]string, 0, len(variants)*len(options))
		for _, v := range variants {
			for _, o := range options {
				next = append(next, append(append([]string{}, v...), o))
			}
		}
		variants = next
		if len(variants) > 64 {
			variants = variants[:64]
		}
	}
	out := make([]string, 0, len(variants))
	for _, v := range variants {
		out = append(out, strings.Join(v, "_"))
	}
	return out
}

func fillerVariants(words []string) []string {
	var out []string
	if len(words) > 1 && fillerWords[words[len(words)-1]] {
		out = append(out, strings.Join(words[:len(words)-1], "_"))
	}
	if len(words) > 1 && fillerWords[words[0]] {
		out = append(out, strings.Join(words[1:], "_"))
	}
	joined := strings.Join(words, "_")
	for _, f := range []string{"name", "number", "code"} {
		out = append(out, joined+"_"+f)
	}
	return out
}

func sameWords(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x := append([]string{}, a...)
	y := append([]string{}, b...)
	sort.Strings(x)
	sort.Strings(y)
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}
