package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/llm"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/models"
)

type suggestionFixture struct {
	service   BindingSuggestionService
	templates *mockTemplateRepository
	bindings  *mockBindingRepository
	datasets  *mockDatasetRepository
	store     BindingStore
}

func newSuggestionFixture(t *testing.T, matcher SemanticMatcher) *suggestionFixture {
	t.Helper()
	c := newTestClassifier(t)
	f := &suggestionFixture{
		templates: newMockTemplateRepository(),
		bindings:  newMockBindingRepository(),
		datasets:  newMockDatasetRepository(),
	}
	f.store = NewBindingStore(f.bindings, f.datasets, c.Registry(), zap.NewNop())
	f.service = NewBindingSuggestionService(f.templates, f.datasets, f.store, c, matcher, zap.NewNop())
	return f
}

func TestPlaceholderKeys(t *testing.T) {
	keys := PlaceholderKeys(rawPlaceholders("{{Buyer Name}}", "{{buyer_name}}", "[[VesselIMONumber]]", "{{ }}", "<<buyerName>>"))
	assert.Equal(t, []string{"buyer_name", "vessel_imo_number", "_"}, keys)
}

func TestSuggestBindings_Pipeline(t *testing.T) {
	ctx := context.Background()
	datasetID := uuid.New()
	matcher := &stubMatcher{
		used: true,
		matches: map[string]models.BindingDescriptor{
			"signatory": models.DatabaseField("seller", "representative_name", models.BindingSourceModel),
			"ice_class": models.DatasetField(datasetID, "ice_class", models.BindingSourceModel),
		},
	}
	f := newSuggestionFixture(t, matcher)
	templateID := uuid.New()
	f.templates.placeholders[templateID] = rawPlaceholders(
		"{{buyer_name}}", "{{buyer_bank_swift}}", "{{vessel_owners}}", "{{signatory}}", "{{ice_class}}", "{{issue_date}}",
	)

	report, err := f.service.SuggestBindings(ctx, templateID)
	require.NoError(t, err)

	// prefix matches never reach the model
	assert.ElementsMatch(t, []string{"vessel_owners", "signatory", "ice_class", "issue_date"}, matcher.asked)

	want := map[string]models.BindingDescriptor{
		"buyer_name":       models.DatabaseField("buyer", "name", models.BindingSourcePrefix),
		"buyer_bank_swift": models.DatabaseField("buyer_bank", "swift_code", models.BindingSourcePrefix),
		"vessel_owners":    models.DatabaseField("vessel", "owner_name", models.BindingSourceRescue),
		"signatory":        models.DatabaseField("seller", "representative_name", models.BindingSourceModel),
		"ice_class":        models.DatasetField(datasetID, "ice_class", models.BindingSourceModel),
		"issue_date":       models.Synthetic(models.CategoryDate, models.BindingSourceHeuristic),
	}
	stored, err := f.store.Get(ctx, templateID)
	require.NoError(t, err)
	assert.Equal(t, []string{"buyer_name", "buyer_bank_swift", "vessel_owners", "signatory", "ice_class", "issue_date"}, stored.Keys())
	for key, d := range want {
		got, ok := stored.Get(key)
		require.True(t, ok, key)
		assert.Equal(t, d, got, key)
	}

	assert.Equal(t, 6, report.Placeholders)
	assert.True(t, report.ModelUsed)
	assert.Equal(t, 4, report.Counts[models.BindingDatabaseField])
	assert.Equal(t, 1, report.Counts[models.BindingDatasetField])
	assert.Equal(t, 1, report.Counts[models.BindingSynthetic])
	assert.InDelta(t, 4.0/6.0, report.DatabaseFraction, 1e-9)
	require.Len(t, report.Promotions, 1)
	assert.Equal(t, "vessel_owners", report.Promotions[0].Key)
}

func TestSuggestBindings_ModelTimeoutDegradesToRules(t *testing.T) {
	ctx := context.Background()
	client := llm.NewMockLLMClient()
	client.GenerateResponseFunc = func(ctx context.Context, _, _ string, _ float64) (*llm.GenerateResponseResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	assistant := llm.NewAssistant(client, llm.AssistantConfig{DefaultTimeout: 20 * time.Millisecond}, zap.NewNop())
	matcher := NewSemanticMatcher(assistant, newTestClassifier(t), SemanticMatcherConfig{}, zap.NewNop())

	f := newSuggestionFixture(t, matcher)
	templateID := uuid.New()
	f.templates.placeholders[templateID] = rawPlaceholders("{{vessel_name}}", "{{vessel_owners}}", "{{notify_party}}")

	report, err := f.service.SuggestBindings(ctx, templateID)
	require.NoError(t, err)

	assert.False(t, report.ModelUsed)
	assert.Equal(t, 2, report.Counts[models.BindingDatabaseField])
	assert.Equal(t, 1, report.Counts[models.BindingSynthetic])
}

func TestSuggestBindings_MaritimeTemplateResolvesWithoutModel(t *testing.T) {
	ctx := context.Background()
	f := newSuggestionFixture(t, nil)
	templateID := uuid.New()
	f.templates.placeholders[templateID] = rawPlaceholders(
		"{{vessel_name}}", "{{Vessel IMO}}", "{{vessel_flag}}", "{{vessel_dwt}}", "{{vessel_built}}",
		"{{vessel_call_sign}}", "{{vessel_loa}}", "{{vessel_beam}}", "{{vessel_draft}}", "{{vessel_owner}}",
		"{{ship_class}}",
		"{{buyer_name}}", "{{buyer_address}}", "{{buyer_country}}", "{{buyer_email}}", "{{buyer_signatory}}",
		"{{buyer_bank_name}}", "{{buyer_bank_swift}}", "{{buyer_bank_iban}}", "{{buyer_bank_account_number}}",
		"{{seller_name}}", "{{seller_reg_no}}", "{{seller_phone}}", "{{seller_representative_title}}",
		"{{seller_bank_beneficiary}}",
		"{{product_name}}", "{{product_grade}}", "{{product_qty}}", "{{product_unit_price}}", "{{cargo_sulphur}}",
		"{{loading_port_name}}", "{{loading_port_country}}", "{{discharge_port_name}}", "{{discharge_port_locode}}",
		"{{issue_date}}",
	)

	report, err := f.service.SuggestBindings(ctx, templateID)
	require.NoError(t, err)

	require.Equal(t, 35, report.Placeholders)
	assert.False(t, report.ModelUsed)
	assert.GreaterOrEqual(t, report.DatabaseFraction, 0.9)
	assert.Less(t, float64(report.Counts[models.BindingSynthetic])/float64(report.Placeholders), 0.05)

	stored, err := f.store.Get(ctx, templateID)
	require.NoError(t, err)
	built, ok := stored.Get("vessel_built")
	require.True(t, ok)
	assert.Equal(t, models.DatabaseField("vessel", "built_year", models.BindingSourcePrefix), built)
	date, ok := stored.Get("issue_date")
	require.True(t, ok)
	assert.Equal(t, models.BindingSynthetic, date.Kind)
}

func TestSuggestBindings_WithoutMatcher(t *testing.T) {
	f := newSuggestionFixture(t, nil)
	templateID := uuid.New()
	f.templates.placeholders[templateID] = rawPlaceholders("{{consignee}}")

	report, err := f.service.SuggestBindings(context.Background(), templateID)
	require.NoError(t, err)
	assert.False(t, report.ModelUsed)
	require.Len(t, report.Bindings, 1)
	assert.Equal(t, models.Synthetic(models.CategoryCompanyName, models.BindingSourceHeuristic), report.Bindings[0].Descriptor)
}

func TestSuggestBindings_PreservesOperatorBindings(t *testing.T) {
	ctx := context.Background()
	f := newSuggestionFixture(t, nil)
	templateID := uuid.New()
	f.templates.placeholders[templateID] = rawPlaceholders("{{buyer_name}}", "{{remarks}}")

	_, err := f.store.Override(ctx, templateID, "buyer_name", models.Literal("ACME Refining"))
	require.NoError(t, err)

	report, err := f.service.SuggestBindings(ctx, templateID)
	require.NoError(t, err)

	require.Len(t, report.Bindings, 2)
	assert.Equal(t, models.BindingLiteral, report.Bindings[0].Descriptor.Kind)
	assert.Equal(t, "ACME Refining", report.Bindings[0].Descriptor.Literal)
}

func TestSuggestBindings_DatasetCatalogFailure(t *testing.T) {
	matcher := &stubMatcher{}
	f := newSuggestionFixture(t, matcher)
	f.datasets.listErr = errors.New("connection reset")
	templateID := uuid.New()
	f.templates.placeholders[templateID] = rawPlaceholders("{{remarks}}")

	report, err := f.service.SuggestBindings(context.Background(), templateID)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Counts[models.BindingSynthetic])
	assert.Equal(t, []string{"remarks"}, matcher.asked)
}

func TestSuggestBindings_UnknownTemplate(t *testing.T) {
	f := newSuggestionFixture(t, nil)

	_, err := f.service.SuggestBindings(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, 0, f.bindings.replaces)
}
