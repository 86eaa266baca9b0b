package photos

import (
	"strings"
)

type relevanceMode int

const (
	relevanceStrict relevanceMode = iota
	relevanceBrandFallback
	relevanceVisualOnly
)

const nonPhotographicPenalty = -1000

// buildTokenVariants widens one token with plural and transliteration
// variants for substring matching against candidate metadata.
func buildTokenVariants(token string) []string {
	variants := []string{token}

	switch {
	case len(token) >= 5 && strings.HasSuffix(token, "s"):
		variants = append(variants, token[:len(token)-1])
	case len(token) >= 5:
		variants = append(variants, token+"s")
	}

	switch {
	case len(token) >= 5 && strings.HasSuffix(token, "i"):
		variants = append(variants, token[:len(token)-1]+"y")
	case len(token) >= 5 && strings.HasSuffix(token, "y"):
		variants = append(variants, token[:len(token)-1]+"i")
	}

	if len(token) >= 6 && strings.HasSuffix(token, "ogo") {
		stem := token[:len(token)-3]
		variants = append(variants, stem+"yi", stem+"yy", stem+"y")
	}
	if len(token) >= 6 && (strings.HasSuffix(token, "yi") || strings.HasSuffix(token, "yy")) {
		variants = append(variants, token[:len(token)-2]+"ogo")
	}

	return variants
}

func containsAnyVariant(candidateText string, tokens []string) bool {
	for _, token := range tokens {
		for _, variant := range buildTokenVariants(token) {
			if strings.Contains(candidateText, variant) {
				return true
			}
		}
	}
	return false
}

func (v *Vocabulary) looksNonPhotographic(candidateText string) bool {
	for _, hint := range v.NonPhotoHints {
		if strings.Contains(candidateText, hint) {
			return true
		}
	}
	return false
}

func (v *Vocabulary) looksAutomotiveVisual(candidateText string) bool {
	for _, hint := range v.VisualHints {
		if strings.Contains(candidateText, hint) {
			return true
		}
	}
	return false
}

func (v *Vocabulary) looksGenericVehicle(candidateText string) bool {
	for _, hint := range v.GenericHints {
		if strings.Contains(candidateText, hint) {
			return true
		}
	}
	return false
}

// scoreCandidate ranks a candidate against the item's search tokens.
// Non-photographic material is pushed below every real photo.
func (v *Vocabulary) scoreCandidate(candidate Candidate, searchTokens []string, automotiveIntent bool) int {
	candidateText := strings.ToLower(candidate.URL + " " + candidate.AttributionURL)
	if v.looksNonPhotographic(candidateText) {
		return nonPhotographicPenalty
	}

	score := 0
	for _, token := range searchTokens {
		if len([]rune(token)) < 4 {
			continue
		}
		if !containsAnyVariant(candidateText, []string{token}) {
			continue
		}

		weight := len(token)
		if weight > 10 {
			weight = 10
		}
		score += weight
		if v.Brands[token] {
			score += 6
		} else if v.ContextTokens[token] {
			score += 3
		}
	}

	if automotiveIntent && v.looksAutomotiveVisual(candidateText) {
		score += 4
	}
	return score
}

// candidateLooksRelevant decides whether a search result plausibly shows
// what the item is about. Strict mode demands brand and model agreement
// when the tokens carry them; brand fallback settles for brand plus any
// supporting signal; visual-only trusts the upstream visual filter.
func (v *Vocabulary) candidateLooksRelevant(candidateText string, searchTokens []string, mode relevanceMode) bool {
	if mode == relevanceVisualOnly {
		return true
	}
	if len(searchTokens) == 0 {
		return false
	}

	var brandTokens, modelTokens, contextTokens, fallbackTokens []string
	for _, token := range searchTokens {
		if v.Brands[token] {
			brandTokens = append(brandTokens, token)
		}
		if v.isLikelyModelToken(token) {
			modelTokens = append(modelTokens, token)
		}
		if v.ContextTokens[token] {
			contextTokens = append(contextTokens, token)
		}
		if !v.Brands[token] && !v.ContextTokens[token] && !digitOnlyRe.MatchString(token) && len([]rune(token)) >= 4 {
			fallbackTokens = append(fallbackTokens, token)
		}
	}

	strongModelTokens := func() []string {
		var strong []string
		for _, token := range modelTokens {
			if digitRe.MatchString(token) || len([]rune(token)) >= 8 {
				strong = append(strong, token)
			}
		}
		return strong
	}

	if len(brandTokens) > 0 {
		if !containsAnyVariant(candidateText, brandTokens) {
			return false
		}

		if mode == relevanceBrandFallback {
			if len(modelTokens) > 0 && containsAnyVariant(candidateText, modelTokens) {
				return true
			}
			if len(contextTokens) > 0 && containsAnyVariant(candidateText, contextTokens) {
				return true
			}
			if len(fallbackTokens) > 0 && containsAnyVariant(candidateText, firstN(fallbackTokens, 3)) {
				return true
			}
			return v.looksGenericVehicle(candidateText)
		}

		if len(modelTokens) > 0 {
			if containsAnyVariant(candidateText, modelTokens) {
				return true
			}
			if len(strongModelTokens()) > 0 {
				// A distinctive model name is in the tokens but not in the
				// candidate: only a context match rescues the candidate.
				return len(contextTokens) > 0 && containsAnyVariant(candidateText, contextTokens)
			}
		}

		if len(contextTokens) > 0 && containsAnyVariant(candidateText, contextTokens) {
			return true
		}
		if len(fallbackTokens) > 0 && containsAnyVariant(candidateText, firstN(fallbackTokens, 3)) {
			return true
		}
		return true
	}

	if len(modelTokens) > 0 {
		if containsAnyVariant(candidateText, modelTokens) {
			return true
		}
		if len(strongModelTokens()) == 0 {
			if len(contextTokens) > 0 && containsAnyVariant(candidateText, contextTokens) {
				return true
			}
			if len(fallbackTokens) > 0 && containsAnyVariant(candidateText, firstN(fallbackTokens, 3)) {
				return true
			}
			return v.looksGenericVehicle(candidateText)
		}
		return false
	}

	if len(contextTokens) > 0 {
		return containsAnyVariant(candidateText, contextTokens)
	}
	if len(fallbackTokens) > 0 {
		return containsAnyVariant(candidateText, firstN(fallbackTokens, 3))
	}
	return false
}
