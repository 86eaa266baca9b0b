package photos

import (
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"avtopress/internal/httpx"
)

const (
	contentTokenCharLimit   = 3500
	contentSignalTokenLimit = 14
	maxRawSearchTokens      = 28
	maxSearchTokens         = 24
)

var (
	nonTokenRe  = regexp.MustCompile(`[^\pL\pN\s-]`)
	digitRe     = regexp.MustCompile(`\d`)
	digitOnlyRe = regexp.MustCompile(`^\d+$`)
	yearRe      = regexp.MustCompile(`^\d{4}$`)
	latinRe     = regexp.MustCompile(`(?i)[a-z]`)
	alnumRe     = regexp.MustCompile(`(?i)[a-z0-9]`)
	letterRe    = regexp.MustCompile(`\pL`)
	pathSepRe   = regexp.MustCompile(`[-_/]+`)
	spaceRe     = regexp.MustCompile(`\s+`)

	automotiveIntentRes = []*regexp.Regexp{
		regexp.MustCompile(`(^|[^a-z])(auto|avto|car|cars|vehicle|vehicles|suv|truck|pickup|motor|diesel|petrol|fuel|oil|benzin|sprit|verkehr)([^a-z]|$)`),
		regexp.MustCompile(`авто|автомоб|авторин|пальн|нафт|бензин|дизел`),
	}
)

func isLikelyYearToken(token string) bool {
	if !yearRe.MatchString(token) {
		return false
	}
	year, err := strconv.Atoi(token)
	return err == nil && year >= 1900 && year <= 2100
}

// ExtractSearchTokens tokenizes a title into deduplicated lowercase search
// tokens, dropping years, short numerics, short words and stopwords.
func (v *Vocabulary) ExtractSearchTokens(title string) []string {
	cleaned := nonTokenRe.ReplaceAllString(strings.ToLower(title), " ")

	seen := make(map[string]bool)
	var tokens []string
	for _, token := range strings.Fields(cleaned) {
		hasDigit := digitRe.MatchString(token)
		if isLikelyYearToken(token) {
			continue
		}
		if digitOnlyRe.MatchString(token) && len(token) < 4 {
			continue
		}
		if !hasDigit && len([]rune(token)) < 3 {
			continue
		}
		if v.StopWords[token] || seen[token] {
			continue
		}

		seen[token] = true
		tokens = append(tokens, token)
		if len(tokens) >= 20 {
			break
		}
	}
	return tokens
}

// ExtractSearchTokensFromURL tokenizes the decoded URL path, usually the
// canonical latin brand/model slug.
func (v *Vocabulary) ExtractSearchTokensFromURL(contextURL string) []string {
	if !httpx.IsHTTPURL(contextURL) {
		return nil
	}
	parsed, err := url.Parse(contextURL)
	if err != nil {
		return nil
	}
	pathText := parsed.Path
	if unescaped, err := url.PathUnescape(pathText); err == nil {
		pathText = unescaped
	}
	return v.ExtractSearchTokens(pathSepRe.ReplaceAllString(pathText, " "))
}

// ExtractSearchTokensFromContent mines additional signal tokens from the
// article text when title and URL tokens are sparse.
func (v *Vocabulary) ExtractSearchTokensFromContent(contextText string) []string {
	normalized := strings.TrimSpace(spaceRe.ReplaceAllString(contextText, " "))
	if normalized == "" {
		return nil
	}

	runes := []rune(normalized)
	if len(runes) > contentTokenCharLimit {
		runes = runes[:contentTokenCharLimit]
	}

	prioritized := v.PrioritizeSearchTokens(v.ExtractSearchTokens(string(runes)))

	var filtered []string
	for _, token := range prioritized {
		if v.Brands[token] || v.ContextTokens[token] || v.isLikelyModelToken(token) || alnumRe.MatchString(token) {
			filtered = append(filtered, token)
		}
	}

	filtered = uniqueTokens(filtered)
	if len(filtered) > contentSignalTokenLimit {
		filtered = filtered[:contentSignalTokenLimit]
	}
	return filtered
}

// isLikelyModelToken spots model designations: tokens with digits that are
// not bare years, or latin words of four-plus letters that are neither
// brand, context token nor stopword.
func (v *Vocabulary) isLikelyModelToken(token string) bool {
	if token == "" || v.Brands[token] || v.ContextTokens[token] || v.StopWords[token] {
		return false
	}

	if digitRe.MatchString(token) {
		if isLikelyYearToken(token) {
			return false
		}
		if digitOnlyRe.MatchString(token) {
			return len(token) <= 4
		}
		return true
	}

	// Latin-only on purpose: translated function words in Cyrillic must
	// not pass as model names.
	return letterRe.MatchString(token) && latinRe.MatchString(token) && len([]rune(token)) >= 4
}

// PrioritizeSearchTokens orders tokens brand first, then model, then
// context, then the rest, dropping duplicates.
func (v *Vocabulary) PrioritizeSearchTokens(tokens []string) []string {
	buckets := [][]string{nil, nil, nil, tokens}
	for _, token := range tokens {
		switch {
		case v.Brands[token]:
			buckets[0] = append(buckets[0], token)
		case v.isLikelyModelToken(token):
			buckets[1] = append(buckets[1], token)
		case v.ContextTokens[token]:
			buckets[2] = append(buckets[2], token)
		}
	}

	seen := make(map[string]bool)
	var ordered []string
	for _, bucket := range buckets {
		for _, token := range bucket {
			if token == "" || seen[token] {
				continue
			}
			seen[token] = true
			ordered = append(ordered, token)
		}
	}
	return ordered
}

// expandSearchTokenVariants adds transliterated Ukrainian case-ending
// variants so slug tokens match Commons file names.
func expandSearchTokenVariants(token string) []string {
	variants := []string{token}

	if len(token) >= 6 && strings.HasSuffix(token, "ogo") {
		stem := token[:len(token)-3]
		variants = append(variants, stem+"yi", stem+"yy", stem+"y")
	}
	if len(token) >= 6 && (strings.HasSuffix(token, "yi") || strings.HasSuffix(token, "yy")) {
		variants = append(variants, token[:len(token)-2]+"ogo")
	}

	var out []string
	for _, variant := range variants {
		if len(variant) >= 3 {
			out = append(out, variant)
		}
	}
	return out
}

func expandSearchTokens(tokens []string) []string {
	var expanded []string
	for _, token := range tokens {
		expanded = append(expanded, token)
		expanded = append(expanded, expandSearchTokenVariants(token)...)
	}
	return uniqueTokens(expanded)
}

// selectSignalTokens keeps the longest distinctive tokens, skipping
// stopwords and plain context words.
func (v *Vocabulary) selectSignalTokens(tokens []string, maxTokens int) []string {
	var candidates []string
	for _, token := range tokens {
		if len([]rune(token)) >= 4 && !v.StopWords[token] && !v.ContextTokens[token] {
			candidates = append(candidates, token)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return len(candidates[i]) > len(candidates[j])
	})

	candidates = uniqueTokens(candidates)
	if len(candidates) > maxTokens {
		candidates = candidates[:maxTokens]
	}
	return candidates
}

// hasAutomotiveIntent decides whether the item is about the vehicle domain
// at all. Without intent the generic vehicle fallback must not run.
func (v *Vocabulary) hasAutomotiveIntent(title, contextURL, contextText string, searchTokens []string) bool {
	for _, token := range searchTokens {
		if v.Brands[token] || v.ContextTokens[token] {
			return true
		}
	}

	var decodedPath string
	if httpx.IsHTTPURL(contextURL) {
		if parsed, err := url.Parse(contextURL); err == nil {
			decodedPath = parsed.Path
			if unescaped, err := url.PathUnescape(decodedPath); err == nil {
				decodedPath = unescaped
			}
		}
	}

	normalizedText := strings.ToLower(spaceRe.ReplaceAllString(contextText, " "))
	if runes := []rune(normalizedText); len(runes) > contentTokenCharLimit {
		normalizedText = string(runes[:contentTokenCharLimit])
	}

	raw := strings.ToLower(title + " " + contextURL + " " + decodedPath + " " + normalizedText)
	for _, re := range automotiveIntentRes {
		if re.MatchString(raw) {
			return true
		}
	}
	return false
}

func uniqueTokens(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" || seen[trimmed] {
			continue
		}
		seen[trimmed] = true
		out = append(out, trimmed)
	}
	return out
}

func hasLetter(value string) bool {
	for _, r := range value {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
