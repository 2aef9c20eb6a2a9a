package services

import (
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/classifier"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/models"
)

// Promotion records one binding upgraded by the rescue pass.
type Promotion struct {
	Key  string                   `json:"key"`
	From models.BindingDescriptor `json:"from"`
	To   models.BindingDescriptor `json:"to"`
}

// Rescue re-tries database matching with relaxed suffix rules for every key
// bound to a dataset field or a synthetic value, and promotes the ones that
// now resolve to an entity field. It returns a new set; initial is not modified.
//
// Database bindings and operator bindings are never touched, so the number of
// database bindings can only grow and the number of synthetic ones only shrink.
func Rescue(initial *models.BindingSet, keys []string, c *classifier.Classifier) (*models.BindingSet, []Promotion) {
	revised := initial.Clone()

	var promotions []Promotion
	for _, key := range keys {
		current, ok := revised.Get(key)
		if !ok || !rescuable(current) {
			continue
		}
		m, ok := c.ClassifyRelaxed(key)
		if !ok || !m.HasField() {
			continue
		}
		promoted := models.DatabaseField(m.EntityType.Name, m.Field, models.BindingSourceRescue)
		revised.Put(key, promoted)
		promotions = append(promotions, Promotion{Key: key, From: current, To: promoted})
	}
	return revised, promotions
}

func rescuable(d models.BindingDescriptor) bool {
	if d.Source == models.BindingSourceOperator {
		return false
	}
	return d.Kind == models.BindingDatasetField || d.Kind == models.BindingSynthetic
}
