package match

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// Scoring thresholds. Exported as named constants (not inlined literals) so
// resolver and merge behaviour can be asserted against them in tests.
const (
	// AcceptThreshold is the minimum score at which two names are treated
	// as the same entity during offender resolution.
	AcceptThreshold = 0.7

	// LegislationAcceptThreshold gates the fuzzy fallback when resolving
	// legislation titles.
	LegislationAcceptThreshold = 0.85

	// RegistryValidationThreshold is the minimum similarity between a
	// master's name and the external registry's canonical name for a merge
	// to proceed.
	RegistryValidationThreshold = 0.9

	// EditSimilarityThreshold is the edit-distance similarity above which
	// the token score is floored at EditSimilarityFloor. Catches small
	// spelling variations that token overlap misses.
	EditSimilarityThreshold = 0.85

	// EditSimilarityFloor is the minimum score assigned when the edit
	// similarity exceeds EditSimilarityThreshold.
	EditSimilarityFloor = 0.9

	// PostcodeBoostThreshold is the minimum unadjusted score required
	// before a matching postcode adds PostcodeBoost.
	PostcodeBoostThreshold = 0.6

	// PostcodeBoost is added when both postcodes match and the score
	// already clears PostcodeBoostThreshold. Capped at 1.0.
	PostcodeBoost = 0.15
)

// Score computes a match confidence in [0,1] between two raw names,
// optionally adjusted by postcodes.
//
// Names are normalized first; equal normalized forms score 1.0. Otherwise the
// base score is token-set Jaccard similarity, floored at EditSimilarityFloor
// when the character-level edit similarity is high. Postcodes act as a
// location gate: two non-empty postcodes that differ force the score to 0,
// since the same trading name at a different site is a different legal
// entity. Matching postcodes boost an already-plausible score.
func Score(nameA, nameB, postcodeA, postcodeB string) float64 {
	normA := NormalizeName(nameA)
	normB := NormalizeName(nameB)

	var score float64
	switch {
	case normA == "" || normB == "":
		score = 0
	case normA == normB:
		score = 1.0
	default:
		score = jaccard(normA, normB)
		if editSimilarity(normA, normB) > EditSimilarityThreshold && score < EditSimilarityFloor {
			score = EditSimilarityFloor
		}
	}

	pcA := NormalizePostcode(postcodeA)
	pcB := NormalizePostcode(postcodeB)
	if pcA != "" && pcB != "" {
		if pcA != pcB {
			return 0
		}
		if score > PostcodeBoostThreshold {
			score += PostcodeBoost
			if score > 1.0 {
				score = 1.0
			}
		}
	}
	return score
}

// jaccard computes token-set similarity: |intersection| / |union| over
// whitespace-separated tokens.
func jaccard(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)

	union := len(setA)
	intersection := 0
	for token := range setB {
		if _, ok := setA[token]; ok {
			intersection++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]struct{} {
	tokens := strings.Fields(s)
	set := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		set[token] = struct{}{}
	}
	return set
}

// editSimilarity is the stronger of Jaro similarity and normalized
// Levenshtein similarity. Jaro favours transpositions in short strings;
// Levenshtein handles insertions in longer ones.
func editSimilarity(a, b string) float64 {
	jaro := jaroSimilarity(a, b)
	lev := levenshteinSimilarity(a, b)
	if lev > jaro {
		return lev
	}
	return jaro
}

func levenshteinSimilarity(a, b string) float64 {
	longest := len([]rune(a))
	if lb := len([]rune(b)); lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 1.0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(dist)/float64(longest)
}

// jaroSimilarity implements the standard Jaro metric over runes.
func jaroSimilarity(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	if string(ra) == string(rb) {
		return 1.0
	}

	window := len(ra)
	if len(rb) > window {
		window = len(rb)
	}
	window = window/2 - 1
	if window < 0 {
		window = 0
	}

	matchedA := make([]bool, len(ra))
	matchedB := make([]bool, len(rb))
	matches := 0
	for i := range ra {
		lo := i - window
		if lo < 0 {
			lo = 0
		}
		hi := i + window + 1
		if hi > len(rb) {
			hi = len(rb)
		}
		for j := lo; j < hi; j++ {
			if matchedB[j] || ra[i] != rb[j] {
				continue
			}
			matchedA[i] = true
			matchedB[j] = true
			matches++
			break
		}
	}
	if matches == 0 {
		return 0
	}

	transpositions := 0
	j := 0
	for i := range ra {
		if !matchedA[i] {
			continue
		}
		for !matchedB[j] {
			j++
		}
		if ra[i] != rb[j] {
			transpositions++
		}
		j++
	}
	transpositions /= 2

	m := float64(matches)
	return (m/float64(len(ra)) + m/float64(len(rb)) + (m-float64(transpositions))/m) / 3.0
}
