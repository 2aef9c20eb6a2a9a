package placeholder

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/models"
)

func TestClassifyHint(t *testing.T) {
	tests := []struct {
		key  string
		want models.SemanticCategory
	}{
		{"buyer_bank_swift", models.CategoryBanking},
		{"beneficiary_iban", models.CategoryBanking},
		{"issue_date", models.CategoryDate},
		{"laycan", models.CategoryDate},
		{"seller_address", models.CategoryAddress},
		{"registered_office", models.CategoryAddress},
		{"buyer_signatory", models.CategoryPerson},
		{"contact_person", models.CategoryPerson},
		{"buyer_name", models.CategoryCompanyName},
		{"consignee", models.CategoryCompanyName},
		{"vessel_name", models.CategoryGeneric},
		{"quantity", models.CategoryGeneric},
		{FallbackKey, models.CategoryGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyHint(tt.key))
		})
	}
}
