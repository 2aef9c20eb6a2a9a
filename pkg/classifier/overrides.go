package classifier

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/apperrors"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/models"
)

// Overrides is the on-disk format for operator additions to the default tables:
//
//	rules:
//	  - prefix: consignee_
//	    entity_type: buyer
//	    rank: 10
//	aliases:
//	  vessel:
//	    summer_dwt: deadweight
//	entity_types: []   # extra entity types, same schema as models.EntityType
type Overrides struct {
	Rules       []PrefixRule                 `yaml:"rules"`
	Aliases     map[string]map[string]string `yaml:"aliases"`
	EntityTypes []models.EntityType          `yaml:"entity_types"`
}

// LoadOverrides reads an overrides file. An empty path yields empty overrides.
func LoadOverrides(path string) (*Overrides, error) {
	if path == "" {
		return &Overrides{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	var ov Overrides
	if err := yaml.Unmarshal(data, &ov); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	return &ov, nil
}

// Apply merges the overrides into copies of types and rules. Aliases naming
// an entity type that does not exist are a configuration error.
func (ov *Overrides) Apply(types []models.EntityType, rules []PrefixRule) ([]models.EntityType, []PrefixRule, error) {
	outTypes := make([]models.EntityType, 0, len(types)+len(ov.EntityTypes))
	outTypes = append(outTypes, types...)
	outTypes = append(outTypes, ov.EntityTypes...)

	known := make(map[string]int, len(outTypes))
	for i, et := range outTypes {
		known[et.Name] = i
	}

	var problems []string
	for name, extra := range ov.Aliases {
		i, ok := known[name]
		if !ok {
			problems = append(problems, fmt.Sprintf("aliases given for unknown entity type %q", name))
			continue
		}
		merged := make(map[string]string, len(outTypes[i].Aliases)+len(extra))
		for k, v := range outTypes[i].Aliases {
			merged[k] = v
		}
		for k, v := range extra {
			merged[k] = v
		}
		outTypes[i].Aliases = merged
	}
	if err := apperrors.NewConfigurationError(problems); err != nil {
		return nil, nil, err
	}

	outRules := make([]PrefixRule, 0, len(rules)+len(ov.Rules))
	outRules = append(outRules, rules...)
	outRules = append(outRules, ov.Rules...)
	return outTypes, outRules, nil
}

// Build constructs the default registry and classifier, merged with the
// overrides file at path (if any). It is meant to run once at startup.
func Build(path string, logger *zap.Logger) (*Classifier, error) {
	ov, err := LoadOverrides(path)
	if err != nil {
		return nil, err
	}
	types, rules, err := ov.Apply(DefaultEntityTypes(), DefaultRules())
	if err != nil {
		return nil, err
	}
	registry, err := NewRegistry(types)
	if err != nil {
		return nil, err
	}
	return New(registry, rules, logger)
}
