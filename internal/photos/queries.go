package photos

import (
	"strings"
)

func cleanQueries(queries []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, query := range queries {
		value := strings.TrimSpace(spaceRe.ReplaceAllString(query, " "))
		if len([]rune(value)) < 3 || !hasLetter(value) || seen[value] {
			continue
		}
		seen[value] = true
		out = append(out, value)
	}
	return out
}

func firstN(values []string, n int) []string {
	if len(values) > n {
		return values[:n]
	}
	return values
}

// buildWikimediaQueries derives the strict search cascade for one item:
// brand+model first, bare brands, compact keyword combinations, then the
// raw and normalized title.
func (v *Vocabulary) buildWikimediaQueries(title string, searchTokens []string) []string {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return nil
	}

	normalized := strings.TrimSpace(spaceRe.ReplaceAllString(nonTokenRe.ReplaceAllString(trimmed, " "), " "))
	words := strings.Fields(normalized)

	var brandTokens, modelTokens []string
	for _, token := range searchTokens {
		if v.Brands[token] {
			brandTokens = append(brandTokens, token)
		}
		if v.isLikelyModelToken(token) {
			modelTokens = append(modelTokens, token)
		}
	}
	brandTokens = firstN(brandTokens, 3)

	preferredBrand := pickPreferredBrand(brandTokens, v.Tuners)
	secondaryBrand := pickOther(brandTokens, preferredBrand)
	modelToken := ""
	if len(modelTokens) > 0 {
		modelToken = modelTokens[0]
	}

	queries := []string{
		strings.TrimSpace(preferredBrand + " " + modelToken),
		strings.TrimSpace(secondaryBrand + " " + modelToken),
		preferredBrand,
		secondaryBrand,
		strings.Join(firstN(searchTokens, 2), " "),
		strings.Join(firstN(searchTokens, 3), " "),
		strings.Join(firstN(modelTokens, 3), " "),
	}
	queries = append(queries, v.selectSignalTokens(searchTokens, 6)...)
	queries = append(queries,
		trimmed,
		normalized,
		strings.Join(firstN(words, 4), " "),
		strings.Join(firstN(words, 3), " "),
	)

	return cleanQueries(queries)
}

func pickPreferredBrand(brandTokens []string, tuners map[string]bool) string {
	// Tuner names search poorly on their own, so a manufacturer brand wins
	// when both appear.
	for _, brand := range brandTokens {
		if !tuners[brand] {
			return brand
		}
	}
	if len(brandTokens) > 0 {
		return brandTokens[0]
	}
	return ""
}

func pickOther(tokens []string, exclude string) string {
	for _, token := range tokens {
		if token != exclude {
			return token
		}
	}
	return ""
}

// buildBrandFallbackQueries loosens the search to brand-level queries when
// the strict cascade found nothing.
func (v *Vocabulary) buildBrandFallbackQueries(searchTokens []string) []string {
	var brandTokens []string
	for _, token := range searchTokens {
		if v.Brands[token] {
			brandTokens = append(brandTokens, token)
		}
	}
	brandTokens = firstN(uniqueTokens(brandTokens), 3)

	contextToken := "car"
	for _, token := range searchTokens {
		if v.ContextTokens[token] {
			contextToken = token
			break
		}
	}

	primaryModel := ""
	for _, token := range searchTokens {
		if v.isLikelyModelToken(token) {
			primaryModel = token
			break
		}
	}

	queries := append([]string{}, brandTokens...)
	for _, brand := range brandTokens {
		queries = append(queries, brand+" "+contextToken)
	}
	for _, brand := range brandTokens {
		queries = append(queries, brand+" vehicle")
	}
	for _, brand := range brandTokens {
		queries = append(queries, strings.TrimSpace(brand+" "+primaryModel))
	}

	return cleanQueries(queries)
}

// buildContextFallbackQueries combines context, model and neutral tokens
// into broader queries than the strict cascade.
func (v *Vocabulary) buildContextFallbackQueries(searchTokens []string) []string {
	var brandTokens, modelTokens, contextTokens, neutralTokens []string
	for _, token := range searchTokens {
		switch {
		case v.Brands[token]:
			brandTokens = append(brandTokens, token)
		case v.ContextTokens[token]:
			contextTokens = append(contextTokens, token)
		}
		if v.isLikelyModelToken(token) {
			modelTokens = append(modelTokens, token)
		}
		if !v.Brands[token] && !v.ContextTokens[token] && len([]rune(token)) >= 4 && !digitOnlyRe.MatchString(token) {
			neutralTokens = append(neutralTokens, token)
		}
	}

	primaryBrand := pickPreferredBrand(brandTokens, v.Tuners)
	secondaryBrand := pickOther(brandTokens, primaryBrand)
	primaryModel := ""
	if len(modelTokens) > 0 {
		primaryModel = modelTokens[0]
	}
	primaryContext := "vehicle"
	if len(contextTokens) > 0 {
		primaryContext = contextTokens[0]
	}
	secondaryContext := "car"
	if len(contextTokens) > 1 {
		secondaryContext = contextTokens[1]
	}
	firstNeutral := ""
	if len(neutralTokens) > 0 {
		firstNeutral = neutralTokens[0]
	}

	contextPair := strings.Join(firstN(contextTokens, 2), " ")
	neutralPair := strings.Join(firstN(neutralTokens, 2), " ")
	topTokens := strings.Join(firstN(searchTokens, 3), " ")

	return cleanQueries([]string{
		primaryContext,
		contextPair,
		primaryContext + " " + firstNeutral,
		secondaryContext + " " + firstNeutral,
		primaryBrand + " " + primaryModel + " " + primaryContext,
		secondaryBrand + " " + primaryModel + " " + primaryContext,
		primaryBrand + " " + primaryContext,
		secondaryBrand + " " + primaryContext,
		primaryModel + " " + primaryContext,
		neutralPair,
		neutralPair + " " + primaryContext,
		topTokens,
		topTokens + " " + secondaryContext,
	})
}

// buildTopicFallbackQueries serves items without automotive intent: signal
// tokens, their pairs and title prefixes.
func (v *Vocabulary) buildTopicFallbackQueries(title string, searchTokens []string) []string {
	signalTokens := v.selectSignalTokens(searchTokens, 8)

	var tokenPairs []string
	for i, token := range firstN(signalTokens, 4) {
		pair := token
		if i+1 < len(signalTokens) {
			pair = token + " " + signalTokens[i+1]
		}
		tokenPairs = append(tokenPairs, strings.TrimSpace(pair))
	}

	normalizedTitle := strings.TrimSpace(spaceRe.ReplaceAllString(nonTokenRe.ReplaceAllString(title, " "), " "))
	titleWords := strings.Fields(normalizedTitle)

	queries := append([]string{}, signalTokens...)
	queries = append(queries, tokenPairs...)
	queries = append(queries,
		normalizedTitle,
		strings.Join(firstN(titleWords, 4), " "),
		strings.Join(firstN(titleWords, 3), " "),
	)

	return cleanQueries(queries)
}

// rotateBySeed rotates the generic query list deterministically per item
// so consecutive fallbacks do not all pick the same stock photo.
func rotateBySeed(values []string, seedText string) []string {
	if len(values) <= 1 {
		return values
	}

	seed := 0
	for _, r := range seedText {
		seed = (seed*31 + int(r)) % 2147483647
	}
	if seed < 0 {
		seed = -seed
	}

	offset := seed % len(values)
	rotated := make([]string, 0, len(values))
	rotated = append(rotated, values[offset:]...)
	rotated = append(rotated, values[:offset]...)
	return rotated
}
