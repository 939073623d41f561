// Package match implements name canonicalization and similarity scoring for
// identity resolution. All scoring thresholds used elsewhere in the system
// live here as named constants so they stay independently testable.
package match

import "strings"

// Punctuation that carries no identity information. Stripped outright so
// dotted abbreviations collapse ("p.l.c." -> "plc", "ltd." -> "ltd").
var punctuationStripper = strings.NewReplacer(
	".", "", ",", "", ":", "", ";", "", "!", "",
	"@", "", "#", "", "$", "", "%", "", "^", "",
	"&", "", "*", "", "(", "", ")", "",
)

// Company suffix variants collapsed to one canonical spelling so that
// "ACME Ltd" and "Acme Limited" compare equal. Applied per token after
// punctuation stripping.
var suffixVariants = map[string]string{
	"ltd": "limited",
	"plc": "plc",
	"llp": "llp",
}

// NormalizeName canonicalizes a free-text company name for comparison.
// Pure and total: never fails, empty input yields the empty string.
func NormalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ""
	}
	name = punctuationStripper.Replace(name)

	tokens := strings.Fields(name)
	for i, token := range tokens {
		if canonical, ok := suffixVariants[token]; ok {
			tokens[i] = canonical
		}
	}
	return strings.Join(tokens, " ")
}

// NormalizePostcode trims and upper-cases a postcode for comparison. It does
// not validate format; an unparseable postcode still compares consistently.
func NormalizePostcode(postcode string) string {
	return strings.ToUpper(strings.TrimSpace(postcode))
}
