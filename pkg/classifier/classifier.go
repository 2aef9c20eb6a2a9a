package classifier

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/apperrors"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/models"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/placeholder"
)

// PrefixRule maps a normalized key prefix to an entity type.
// Prefix is written in normalized form with a trailing underscore ("buyer_bank_").
type PrefixRule struct {
	Prefix     string `yaml:"prefix" json:"prefix"`
	EntityType string `yaml:"entity_type" json:"entity_type"`
	Rank       int    `yaml:"rank" json:"rank"`
}

// stem is the prefix without its trailing separator.
func (r PrefixRule) stem() string {
	return strings.TrimSuffix(r.Prefix, "_")
}

// Match is the outcome of classifying one key.
// Field is empty when the prefix matched but no field of the entity did.
type Match struct {
	EntityType *models.EntityType
	Rule       PrefixRule
	Suffix     string
	Field      string
}

// HasField reports whether the match resolved to a concrete field.
func (m Match) HasField() bool {
	return m.Field != ""
}

// Classifier performs longest-prefix classification of placeholder keys.
// It is immutable after New and safe for concurrent use.
type Classifier struct {
	registry *Registry
	rules    []PrefixRule
	logger   *zap.Logger
}

// New validates rules against registry and returns a classifier whose rules
// are ordered longest prefix first, then by descending rank.
//
// Two rules with the same prefix are allowed only when their ranks differ;
// the higher rank wins. Equal prefixes with equal ranks make the table
// ambiguous and are reported as a *apperrors.ConfigurationError.
func New(registry *Registry, rules []PrefixRule, logger *zap.Logger) (*Classifier, error) {
	if registry == nil {
		return nil, apperrors.NewConfigurationError([]string{"no entity registry"})
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var problems []string
	byPrefix := make(map[string]PrefixRule, len(rules))
	for _, rule := range rules {
		stem := rule.stem()
		if stem == "" || placeholder.Normalize(stem) != stem {
			problems = append(problems, fmt.Sprintf("prefix %q is not in normalized form", rule.Prefix))
			continue
		}
		if _, ok := registry.Get(rule.EntityType); !ok {
			problems = append(problems, fmt.Sprintf("prefix %q targets unknown entity type %q", rule.Prefix, rule.EntityType))
			continue
		}
		rule.Prefix = stem + "_"

		prev, dup := byPrefix[rule.Prefix]
		switch {
		case !dup:
			byPrefix[rule.Prefix] = rule
		case prev.EntityType == rule.EntityType && prev.Rank == rule.Rank:
			// identical rule declared twice
		case prev.Rank == rule.Rank:
			problems = append(problems, fmt.Sprintf(
				"prefix %q maps to both %q and %q with equal rank %d",
				rule.Prefix, prev.EntityType, rule.EntityType, rule.Rank))
		case rule.Rank > prev.Rank:
			byPrefix[rule.Prefix] = rule
		}
	}
	if err := apperrors.NewConfigurationError(problems); err != nil {
		return nil, err
	}

	sorted := make([]PrefixRule, 0, len(byPrefix))
	for _, r := range byPrefix {
		sorted = append(sorted, r)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if len(sorted[i].Prefix) != len(sorted[j].Prefix) {
			return len(sorted[i].Prefix) > len(sorted[j].Prefix)
		}
		if sorted[i].Rank != sorted[j].Rank {
			return sorted[i].Rank > sorted[j].Rank
		}
		return sorted[i].Prefix < sorted[j].Prefix
	})

	return &Classifier{
		registry: registry,
		rules:    sorted,
		logger:   logger.Named("classifier"),
	}, nil
}

// Registry returns the entity registry the classifier was built with.
func (c *Classifier) Registry() *Registry {
	return c.registry
}

// Rules returns the effective rules in evaluation order.
func (c *Classifier) Rules() []PrefixRule {
	out := make([]PrefixRule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Classify finds the entity type of key by longest prefix and maps the
// remaining suffix onto a field by exact name or the entity's alias table.
// The bool is false when no prefix matches.
func (c *Classifier) Classify(key string) (Match, bool) {
	m, ok := c.matchPrefix(key)
	if !ok {
		return Match{}, false
	}
	m.Field = strictField(m.EntityType, m.Suffix)
	return m, true
}

// ClassifyRelaxed is Classify with synonym, plural and affix tolerance in the
// suffix. It never changes which entity type a key belongs to.
func (c *Classifier) ClassifyRelaxed(key string) (Match, bool) {
	m, ok := c.matchPrefix(key)
	if !ok {
		return Match{}, false
	}
	if field := strictField(m.EntityType, m.Suffix); field != "" {
		m.Field = field
		return m, true
	}

	candidates := relaxedFields(m.EntityType, m.Suffix)
	if len(candidates) == 0 {
		return m, true
	}
	if len(candidates) > 1 {
		c.logger.Info("Ambiguous relaxed field match, taking first candidate",
			zap.String("key", key),
			zap.String("entity_type", m.EntityType.Name),
			zap.Strings("candidates", candidates),
			zap.String("chosen", candidates[0]))
	}
	m.Field = candidates[0]
	return m, true
}

func (c *Classifier) matchPrefix(key string) (Match, bool) {
	if placeholder.IsFallback(key) {
		return Match{}, false
	}
	for _, rule := range c.rules {
		var suffix string
		switch {
		case strings.HasPrefix(key, rule.Prefix):
			suffix = key[len(rule.Prefix):]
		case key == rule.stem():
			suffix = ""
		default:
			continue
		}
		et, _ := c.registry.Get(rule.EntityType)
		return Match{EntityType: et, Rule: rule, Suffix: suffix}, true
	}
	return Match{}, false
}

// strictField resolves suffix by exact field name, then alias. An empty suffix
// selects the entity's default field.
func strictField(et *models.EntityType, suffix string) string {
	if suffix == "" {
		return et.DefaultField
	}
	if et.HasField(suffix) {
		return suffix
	}
	if target, ok := et.Aliases[suffix]; ok {
		return target
	}
	return ""
}
