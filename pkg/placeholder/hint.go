package placeholder

import (
	"strings"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/models"
)

// categoryRule maps a set of key words or phrases to a semantic category.
// Rules are checked in slice order, so banking identifiers win over the
// company words that often precede them ("buyer_bank_swift").
type categoryRule struct {
	category models.SemanticCategory
	words    []string
}

var categoryRules = []categoryRule{
	{models.CategoryBanking, []string{
		"swift", "bic", "iban", "bank", "account", "acct", "sort_code", "routing", "aba", "beneficiary_account",
	}},
	{models.CategoryDate, []string{
		"date", "dated", "eta", "etd", "eta_date", "day", "issued", "expiry", "expires", "valid_until", "deadline", "laycan", "year",
	}},
	{models.CategoryAddress, []string{
		"address", "addr", "street", "city", "postcode", "postal_code", "zip", "country", "location", "registered_office",
	}},
	{models.CategoryPerson, []string{
		"signatory", "representative", "rep", "attention", "attn", "contact", "contact_person", "master", "captain",
		"person", "title", "position", "director", "manager", "officer", "signed_by", "authorized_by", "ceo",
	}},
	{models.CategoryCompanyName, []string{
		"company", "corp", "corporation", "firm", "supplier", "consignee", "shipper", "consignor", "buyer", "seller",
		"owner", "operator", "charterer", "refinery", "broker", "agent", "notify_party", "organization", "organisation",
	}},
}

// ClassifyHint derives the semantic category of a normalized placeholder key.
func ClassifyHint(key string) models.SemanticCategory {
	if IsFallback(key) {
		return models.CategoryGeneric
	}
	padded := "_" + key + "_"
	for _, rule := range categoryRules {
		for _, w := range rule.words {
			if strings.Contains(padded, "_"+w+"_") {
				return rule.category
			}
		}
	}
	return models.CategoryGeneric
}
