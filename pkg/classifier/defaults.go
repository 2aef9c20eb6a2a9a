package classifier

import "github.com/jeanclaudder2024/document-processor-sub001/pkg/models"

func text(name string) models.EntityField {
	return models.EntityField{Name: name, Type: models.FieldTypeText}
}
func integer(name string) models.EntityField {
	return models.EntityField{Name: name, Type: models.FieldTypeInt}
}
func decimal(name string) models.EntityField {
	return models.EntityField{Name: name, Type: models.FieldTypeDecimal}
}
func list(name string) models.EntityField {
	return models.EntityField{Name: name, Type: models.FieldTypeList}
}

func companyFields() []models.EntityField {
	return []models.EntityField{
		text("name"), text("registration_number"), text("address"), text("city"), text("country"),
		text("email"), text("phone"), text("website"), text("representative_name"),
		text("representative_title"), text("tax_id"),
	}
}

func companyAliases() map[string]string {
	return map[string]string{
		"company_name":         "name",
		"company":              "name",
		"reg_no":               "registration_number",
		"registration_no":      "registration_number",
		"registration":         "registration_number",
		"rep":                  "representative_name",
		"representative":       "representative_name",
		"signatory":            "representative_name",
		"signatory_name":       "representative_name",
		"signatory_title":      "representative_title",
		"vat":                  "tax_id",
		"vat_number":           "tax_id",
		"tax_number":           "tax_id",
		"telephone":            "phone",
		"tel":                  "phone",
		"mail":                 "email",
		"web":                  "website",
		"registered_address":   "address",
		"representative_email": "email",
	}
}

func bankFields() []models.EntityField {
	return []models.EntityField{
		text("bank_name"), text("bank_address"), text("account_name"), text("account_number"),
		text("iban"), text("swift_code"), text("currency"), text("beneficiary_name"),
		text("correspondent_bank"),
	}
}

func bankAliases() map[string]string {
	return map[string]string{
		"name":           "bank_name",
		"address":        "bank_address",
		"swift":          "swift_code",
		"bic":            "swift_code",
		"swift_bic":      "swift_code",
		"bic_code":       "swift_code",
		"account":        "account_number",
		"account_no":     "account_number",
		"acct":           "account_number",
		"beneficiary":    "beneficiary_name",
		"holder":         "account_name",
		"correspondent":  "correspondent_bank",
		"iban_number":    "iban",
		"account_holder": "account_name",
	}
}

func portFields() []models.EntityField {
	return []models.EntityField{
		text("name"), text("country"), text("city"), text("unlocode"), text("terminal"),
		decimal("latitude"), decimal("longitude"),
	}
}

func portAliases() map[string]string {
	return map[string]string{
		"locode":    "unlocode",
		"code":      "unlocode",
		"port":      "name",
		"port_name": "name",
		"lat":       "latitude",
		"lon":       "longitude",
		"lng":       "longitude",
	}
}

// DefaultEntityTypes returns the maritime and commercial entity types shipped
// with the engine. Callers get a fresh copy.
func DefaultEntityTypes() []models.EntityType {
	return []models.EntityType{
		{
			Name: "vessel", KeyKind: models.KeyKindInt, Table: "vessels", KeyColumn: "id",
			Fields: []models.EntityField{
				text("name"), text("imo_number"), text("mmsi"), text("call_sign"), text("flag"),
				text("vessel_type"), integer("built_year"), decimal("deadweight"), decimal("gross_tonnage"),
				decimal("net_tonnage"), decimal("length_overall"), decimal("beam"), decimal("draft"),
				text("owner_name"), text("operator_name"), text("class_society"), text("home_port"),
			},
			DefaultField: "name",
			Aliases: map[string]string{
				"imo": "imo_number", "imo_no": "imo_number", "dwt": "deadweight", "grt": "gross_tonnage",
				"gt": "gross_tonnage", "nrt": "net_tonnage", "loa": "length_overall", "type": "vessel_type",
				"year_built": "built_year", "build_year": "built_year", "built": "built_year", "owner": "owner_name",
				"operator": "operator_name", "callsign": "call_sign", "flag_state": "flag", "class": "class_society",
				"port_of_registry": "home_port",
			},
		},
		{
			Name: "buyer", KeyKind: models.KeyKindOpaque, Table: "buyer_companies", KeyColumn: "id",
			Fields: companyFields(), DefaultField: "name", Aliases: companyAliases(),
		},
		{
			Name: "seller", KeyKind: models.KeyKindOpaque, Table: "seller_companies", KeyColumn: "id",
			Fields: companyFields(), DefaultField: "name", Aliases: companyAliases(),
		},
		{
			Name: "buyer_bank", KeyKind: models.KeyKindOpaque, Table: "buyer_bank_accounts", KeyColumn: "id",
			Fields: bankFields(), DefaultField: "bank_name", Aliases: bankAliases(),
			Owner: &models.OwnerRelation{EntityType: "buyer", OwnerColumn: "buyer_id", PrimaryColumn: "is_primary"},
		},
		{
			Name: "seller_bank", KeyKind: models.KeyKindOpaque, Table: "seller_bank_accounts", KeyColumn: "id",
			Fields: bankFields(), DefaultField: "bank_name", Aliases: bankAliases(),
			Owner: &models.OwnerRelation{EntityType: "seller", OwnerColumn: "seller_id", PrimaryColumn: "is_primary"},
		},
		{
			Name: "company", KeyKind: models.KeyKindInt, Table: "companies", KeyColumn: "id",
			Fields: []models.EntityField{
				text("name"), text("registration_number"), text("address"), text("country"),
				text("email"), text("phone"), text("ceo_name"), integer("founded_year"),
			},
			DefaultField: "name",
			Aliases: map[string]string{
				"company_name": "name", "reg_no": "registration_number", "ceo": "ceo_name",
				"telephone": "phone", "tel": "phone", "founded": "founded_year",
			},
		},
		{
			Name: "refinery", KeyKind: models.KeyKindInt, Table: "refineries", KeyColumn: "id",
			Fields: []models.EntityField{
				text("name"), text("country"), text("city"), text("address"), text("operator"),
				decimal("capacity"), list("products"),
			},
			DefaultField: "name",
			Aliases: map[string]string{
				"refinery_name": "name", "capacity_bpd": "capacity", "output": "products", "owner": "operator",
			},
		},
		{
			Name: "product", KeyKind: models.KeyKindInt, Table: "oil_products", KeyColumn: "id",
			Fields: []models.EntityField{
				text("name"), text("grade"), text("product_type"), decimal("quantity"), text("unit"),
				decimal("price"), text("currency"), decimal("density"), decimal("sulphur_content"),
				text("origin"), text("hs_code"), text("specification"),
			},
			DefaultField: "name",
			Aliases: map[string]string{
				"commodity": "name", "description": "name", "type": "product_type", "qty": "quantity",
				"uom": "unit", "unit_price": "price", "sulphur": "sulphur_content", "sulfur": "sulphur_content",
				"sulfur_content": "sulphur_content", "country_of_origin": "origin", "spec": "specification",
			},
		},
		{
			Name: "departure_port", KeyKind: models.KeyKindInt, Table: "ports", KeyColumn: "id",
			Fields: portFields(), DefaultField: "name", Aliases: portAliases(),
		},
		{
			Name: "destination_port", KeyKind: models.KeyKindInt, Table: "ports", KeyColumn: "id",
			Fields: portFields(), DefaultField: "name", Aliases: portAliases(),
		},
		{
			Name: "broker", KeyKind: models.KeyKindOpaque, Table: "broker_profiles", KeyColumn: "id",
			Fields: []models.EntityField{
				text("name"), text("company_name"), text("email"), text("phone"), text("license_number"),
				text("country"), text("address"),
			},
			DefaultField: "name",
			Aliases: map[string]string{
				"company": "company_name", "firm": "company_name", "license": "license_number",
				"licence": "license_number", "telephone": "phone", "tel": "phone",
			},
		},
	}
}

// Ranks used by the default rules. Sub-entity rules outrank their owner's.
const (
	RankEntity    = 10
	RankSubEntity = 20
)

// DefaultRules returns the prefix rules for DefaultEntityTypes.
func DefaultRules() []PrefixRule {
	return []PrefixRule{
		{Prefix: "vessel_", EntityType: "vessel", Rank: RankEntity},
		{Prefix: "ship_", EntityType: "vessel", Rank: RankEntity},
		{Prefix: "buyer_", EntityType: "buyer", Rank: RankEntity},
		{Prefix: "seller_", EntityType: "seller", Rank: RankEntity},
		{Prefix: "buyer_bank_", EntityType: "buyer_bank", Rank: RankSubEntity},
		{Prefix: "seller_bank_", EntityType: "seller_bank", Rank: RankSubEntity},
		{Prefix: "company_", EntityType: "company", Rank: RankEntity},
		{Prefix: "owner_", EntityType: "company", Rank: RankEntity},
		{Prefix: "refinery_", EntityType: "refinery", Rank: RankEntity},
		{Prefix: "product_", EntityType: "product", Rank: RankEntity},
		{Prefix: "cargo_", EntityType: "product", Rank: RankEntity},
		{Prefix: "departure_port_", EntityType: "departure_port", Rank: RankEntity},
		{Prefix: "loading_port_", EntityType: "departure_port", Rank: RankEntity},
		{Prefix: "load_port_", EntityType: "departure_port", Rank: RankEntity},
		{Prefix: "destination_port_", EntityType: "destination_port", Rank: RankEntity},
		{Prefix: "discharge_port_", EntityType: "destination_port", Rank: RankEntity},
		{Prefix: "broker_", EntityType: "broker", Rank: RankEntity},
	}
}
