package services

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math/big"
	"math/rand/v2"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/jsonutil"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/llm"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/models"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/placeholder"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/prompts"
)

const maxSyntheticLength = 80

// SyntheticConfig configures the synthetic value generator.
type SyntheticConfig struct {
	// Enrich lets the assisting model replace deterministic values.
	Enrich  bool
	Timeout time.Duration
	// Now is the clock used for dates. Defaults to time.Now.
	Now func() time.Time
}

// SyntheticGenerator produces filler values for placeholders no data source answers.
// Generate is a pure function of (hint, key, seed, clock date).
type SyntheticGenerator struct {
	assistant llm.Assistant
	enrich    bool
	timeout   time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

// NewSyntheticGenerator creates a SyntheticGenerator. assistant may be nil.
func NewSyntheticGenerator(assistant llm.Assistant, cfg SyntheticConfig, logger *zap.Logger) *SyntheticGenerator {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	return &SyntheticGenerator{
		assistant: assistant,
		enrich:    cfg.Enrich,
		timeout:   cfg.Timeout,
		now:       cfg.Now,
		logger:    logger.Named("synthetic"),
	}
}

// EnrichmentEnabled reports whether Enrich will consult the model.
func (g *SyntheticGenerator) EnrichmentEnabled() bool {
	return g.enrich && g.assistant != nil && g.assistant.Available()
}

// Generate returns the deterministic value for key.
func (g *SyntheticGenerator) Generate(hint models.SemanticCategory, key, seed string) string {
	r := newSeededRand(seed, key)
	words := placeholder.Tokens(key)

	switch hint {
	case models.CategoryCompanyName:
		return companyName(r)
	case models.CategoryBanking:
		return bankingValue(r, words)
	case models.CategoryAddress:
		return addressValue(r, words)
	case models.CategoryDate:
		return dateValue(r, words, g.now())
	case models.CategoryPerson:
		return personValue(r, words)
	default:
		return genericValue(r, words)
	}
}

// Enrich asks the model for a more natural value and falls back to the
// deterministic one on any failure. The bool reports whether the model's
// value was used.
func (g *SyntheticGenerator) Enrich(ctx context.Context, hint models.SemanticCategory, key, seed string) (string, bool) {
	fallback := g.Generate(hint, key, seed)
	if !g.EnrichmentEnabled() {
		return fallback, false
	}

	answer, err := g.assistant.Generate(ctx, llm.Request{
		Purpose:     "synthetic_value",
		System:      prompts.BuildSyntheticValueSystemMessage(),
		Prompt:      prompts.BuildSyntheticValuePrompt(key, string(hint), fallback),
		Temperature: 0.7,
		Timeout:     g.timeout,
	})
	if err != nil {
		return fallback, false
	}

	value, ok := parseSyntheticAnswer(answer)
	if !ok || !plausible(value, key, hint) {
		g.logger.Debug("Discarding model synthetic value",
			zap.String("key", key),
			zap.String("category", string(hint)))
		return fallback, false
	}
	return value, true
}

func parseSyntheticAnswer(answer string) (string, bool) {
	parsed, err := llm.ParseJSONResponse[map[string]json.RawMessage](answer)
	if err != nil {
		return "", false
	}
	raw, ok := parsed["value"]
	if !ok {
		return "", false
	}
	value := strings.TrimSpace(jsonutil.FlexibleStringValue(raw))
	return value, value != ""
}

// plausible rejects values that echo the placeholder or its category.
func plausible(value, key string, hint models.SemanticCategory) bool {
	if utf8.RuneCountInString(value) > maxSyntheticLength {
		return false
	}
	norm := placeholder.Normalize(value)
	if norm == key || norm == string(hint) || strings.ContainsAny(value, "{}[]<>") {
		return false
	}
	return true
}

func newSeededRand(seed, key string) *rand.Rand {
	h1 := fnv.New64a()
	_, _ = h1.Write([]byte(seed))
	_, _ = h1.Write([]byte{0})
	_, _ = h1.Write([]byte(key))
	h2 := fnv.New64()
	_, _ = h2.Write([]byte(key))
	return rand.New(rand.NewPCG(h1.Sum64(), h2.Sum64()))
}

func pick[T any](r *rand.Rand, options []T) T {
	return options[r.IntN(len(options))]
}

func has(words []string, options ...string) bool {
	for _, w := range options {
		if slices.Contains(words, w) {
			return true
		}
	}
	return false
}

var (
	companyLead   = []string{"Meridian", "Northstar", "Atlantic", "Baltic", "Caspian", "Harbourline", "Orion", "Sable", "Trident", "Westgate", "Aurora", "Halcyon"}
	companyTrade  = []string{"Maritime", "Energy", "Petroleum", "Shipping", "Trading", "Resources", "Logistics", "Commodities"}
	companyForm   = []string{"Ltd", "LLC", "S.A.", "GmbH", "B.V.", "Pte. Ltd.", "Inc."}
	firstNames    = []string{"Anna", "James", "Sofia", "Erik", "Maria", "Daniel", "Leila", "Hiroshi", "Elena", "Omar", "Claire", "Viktor"}
	lastNames     = []string{"Hansen", "Okafor", "Petrov", "Lindqvist", "Moreau", "Tanaka", "Alvarez", "Schmidt", "Haddad", "Novak", "Brennan", "Costa"}
	jobTitles     = []string{"Managing Director", "Chief Executive Officer", "Commercial Manager", "Operations Director", "Chartering Manager", "Head of Trade Finance"}
	streetNames   = []string{"Harbour", "Wharf", "Quay", "Anchor", "Pilot", "Beacon", "Merchant", "Dock"}
	streetKinds   = []string{"Road", "Street", "Avenue", "Lane", "Boulevard"}
	bankWords     = []string{"Commercial", "Maritime", "Trade", "Merchant", "Continental", "Union"}
	genericFiller = []string{"As agreed", "As per contract", "To be confirmed", "Per charter party terms"}
)

type city struct {
	name, country, countryCode, postcode string
}

var cities = []city{
	{"Rotterdam", "Netherlands", "NL", "3011 AD"},
	{"Singapore", "Singapore", "SG", "049315"},
	{"Houston", "United States", "US", "77002"},
	{"Piraeus", "Greece", "GR", "185 38"},
	{"Geneva", "Switzerland", "CH", "1204"},
	{"London", "United Kingdom", "GB", "EC3M 4AJ"},
	{"Hamburg", "Germany", "DE", "20457"},
}

func companyName(r *rand.Rand) string {
	return fmt.Sprintf("%s %s %s", pick(r, companyLead), pick(r, companyTrade), pick(r, companyForm))
}

func personName(r *rand.Rand) string {
	return pick(r, firstNames) + " " + pick(r, lastNames)
}

func personValue(r *rand.Rand, words []string) string {
	if has(words, "title", "position", "designation", "role") {
		return pick(r, jobTitles)
	}
	return personName(r)
}

func addressValue(r *rand.Rand, words []string) string {
	c := pick(r, cities)
	switch {
	case has(words, "city", "town"):
		return c.name
	case has(words, "country"):
		return c.country
	case has(words, "postcode", "zip", "postal"):
		return c.postcode
	}
	street := fmt.Sprintf("%d %s %s", 1+r.IntN(180), pick(r, streetNames), pick(r, streetKinds))
	if c.postcode == "" {
		return fmt.Sprintf("%s, %s, %s", street, c.name, c.country)
	}
	return fmt.Sprintf("%s, %s %s, %s", street, c.postcode, c.name, c.country)
}

func dateValue(r *rand.Rand, words []string, now time.Time) string {
	if has(words, "year") {
		return fmt.Sprint(now.Year())
	}
	offset := r.IntN(30)
	if has(words, "eta", "expiry", "expires", "valid", "until", "deadline", "laycan", "delivery") {
		return now.AddDate(0, 0, offset+1).Format(placeholder.DateLayout)
	}
	return now.AddDate(0, 0, -offset).Format(placeholder.DateLayout)
}

func bankingValue(r *rand.Rand, words []string) string {
	c := pick(r, cities)
	switch {
	case has(words, "swift", "bic"):
		return swiftCode(r, c.countryCode)
	case has(words, "iban"):
		return iban(r)
	case has(words, "currency"):
		return "USD"
	case has(words, "beneficiary", "holder") || (has(words, "account") && has(words, "name")):
		return companyName(r)
	case has(words, "account", "acct"):
		return digits(r, 12)
	case has(words, "address"):
		return addressValue(r, nil)
	case has(words, "bank"):
		return fmt.Sprintf("%s %s Bank", pick(r, companyLead), pick(r, bankWords))
	}
	return iban(r)
}

func genericValue(r *rand.Rand, words []string) string {
	switch {
	case has(words, "email", "mail"):
		return fmt.Sprintf("operations@%s.com", strings.ToLower(pick(r, companyLead)))
	case has(words, "phone", "tel", "telephone", "fax", "mobile"):
		return fmt.Sprintf("+31 10 %s %s", digits(r, 3), digits(r, 4))
	case has(words, "quantity", "qty", "amount", "price", "total", "capacity", "value", "tonnage", "weight"):
		return fmt.Sprint((1 + r.IntN(99)) * 1000)
	case has(words, "currency"):
		return "USD"
	case has(words, "number", "no", "ref", "reference", "code", "id"):
		return "REF-" + upperAlnum(r, 6)
	}
	return pick(r, genericFiller)
}

func digits(r *rand.Rand, n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte(byte('0' + r.IntN(10)))
	}
	return b.String()
}

func letters(r *rand.Rand, n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte(byte('A' + r.IntN(26)))
	}
	return b.String()
}

func upperAlnum(r *rand.Rand, n int) string {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte(alphabet[r.IntN(len(alphabet))])
	}
	return b.String()
}

// swiftCode returns an 8 or 11 character BIC: bank, country, location[, branch].
func swiftCode(r *rand.Rand, countryCode string) string {
	code := letters(r, 4) + countryCode + upperAlnum(r, 2)
	if r.IntN(2) == 0 {
		code += "XXX"
	}
	return code
}

type ibanFormat struct {
	country string
	bban    func(r *rand.Rand) string
}

var ibanFormats = []ibanFormat{
	{"GB", func(r *rand.Rand) string { return letters(r, 4) + digits(r, 14) }},
	{"NL", func(r *rand.Rand) string { return letters(r, 4) + digits(r, 10) }},
	{"DE", func(r *rand.Rand) string { return digits(r, 18) }},
}

// iban returns an IBAN whose check digits satisfy ISO 13616 mod-97.
func iban(r *rand.Rand) string {
	f := pick(r, ibanFormats)
	bban := f.bban(r)
	check := 98 - mod97(ibanNumeric(bban+f.country+"00"))
	return fmt.Sprintf("%s%02d%s", f.country, check, bban)
}

// ibanNumeric replaces letters with two-digit numbers (A=10 ... Z=35).
func ibanNumeric(s string) string {
	var b strings.Builder
	for _, c := range s {
		if c >= 'A' && c <= 'Z' {
			fmt.Fprintf(&b, "%d", c-'A'+10)
		} else {
			b.WriteRune(c)
		}
	}
	return b.String()
}

func mod97(numeric string) int {
	n, _ := new(big.Int).SetString(numeric, 10)
	return int(new(big.Int).Mod(n, big.NewInt(97)).Int64())
}
