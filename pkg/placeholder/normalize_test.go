package placeholder

import (
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"{{buyer_bank_swift}}", "buyer_bank_swift"},
		{"Buyer Bank SWIFT", "buyer_bank_swift"},
		{"{buyer-bank-swift}", "buyer_bank_swift"},
		{"[[VesselIMONumber]]", "vessel_imo_number"},
		{"<<Seller Name>>", "seller_name"},
		{"«loading port»", "loading_port"},
		{"%PRODUCT_QUANTITY%", "product_quantity"},
		{"{{ buyer_name | upper }}", "buyer_name"},
		{"{{  vessel__name  }}", "vessel_name"},
		{"SWIFTCode", "swift_code"},
		{"port2Name", "port2_name"},
		{"{{}}", FallbackKey},
		{"", FallbackKey},
		{"---", FallbackKey},
		{"{{Bénéficiaire}}", "bénéficiaire"},
		{"Xℂ", "xℂ"},
		{"BUYERℂ", "buyerℂ"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.raw))
		})
	}
}

func FuzzNormalize(f *testing.F) {
	for _, seed := range []string{
		"{{buyer_bank_swift}}",
		"Buyer Bank SWIFT",
		"[[VesselIMONumber]]",
		"{{ a | b }}",
		"__",
		"_",
		"ÀÉÎ őű",
		"Deadweight (MT)",
		"x1Y2z3",
		"{{buyer.bank.swift}}",
		"ǅungla",
		"Xℂ",
		"Aϒ",
		"BUYERℂ",
		"",
	} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, raw string) {
		once := Normalize(raw)
		if twice := Normalize(once); twice != once {
			t.Fatalf("Normalize(%q) = %q, but Normalize(%q) = %q", raw, once, once, twice)
		}
		for _, r := range once {
			if unicode.ToLower(r) != r {
				t.Fatalf("Normalize(%q) = %q keeps cased rune %q", raw, once, r)
			}
		}
	})
}

func TestNormalize_EquivalentSpellings(t *testing.T) {
	assert.Equal(t, Normalize("Buyer Bank SWIFT"), Normalize("{{buyer_bank_swift}}"))
	assert.Equal(t, Normalize("Seller Name"), Normalize("sellerName"))
}

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"buyer", "bank", "swift"}, Tokens("buyer_bank_swift"))
	assert.Empty(t, Tokens(FallbackKey))
}
