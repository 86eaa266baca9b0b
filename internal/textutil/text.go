// Package textutil holds the text normalization helpers shared by
// collection, translation and excerpting.
package textutil

import (
	"regexp"
	"strings"
)

var (
	emailRe        = regexp.MustCompile(`(?i)\b[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}\b`)
	contactLabelRe = regexp.MustCompile(`(?i)^(?:media|press)\s+contacts?\b[:\s-]*$`)
	phonePrefixRe  = regexp.MustCompile(`(?i)^(?:tel|phone|mobile|contact|tel\.?|telephone)[:\s-]*`)
	multiBlankRe   = regexp.MustCompile(`\n{3,}`)
	spaceTabRe     = regexp.MustCompile(`[ \t]+`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
	letterRe       = regexp.MustCompile(`\pL`)
	upperWordRe    = regexp.MustCompile(`^\p{Lu}`)
	nameWordRe     = regexp.MustCompile(`^[\pL'-]{2,}$`)
	urlRe          = regexp.MustCompile(`(?i)https?://`)
	digitRe        = regexp.MustCompile(`\d`)
	nonDigitRe     = regexp.MustCompile(`\D`)
	sentenceRe     = regexp.MustCompile(`[^.!?]+[.!?]*`)
)

// NormalizeText collapses all whitespace to single spaces.
func NormalizeText(input string) string {
	input = strings.ReplaceAll(input, "\r", "")
	input = strings.ReplaceAll(input, " ", " ")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(input, " "))
}

// NormalizeParagraph keeps paragraph breaks but collapses in-line whitespace.
func NormalizeParagraph(input string) string {
	input = strings.ReplaceAll(input, "\r", "")
	input = strings.ReplaceAll(input, " ", " ")
	input = spaceTabRe.ReplaceAllString(input, " ")
	input = multiBlankRe.ReplaceAllString(input, "\n\n")
	return strings.TrimSpace(input)
}

// NormalizeArticleContent normalizes paragraphs and removes trailing media
// contact blocks that press releases carry.
func NormalizeArticleContent(input string) string {
	return stripMediaContacts(NormalizeParagraph(input))
}

// TrimContent cuts content to maxChars, marking the cut with an ellipsis.
func TrimContent(content string, maxChars int) string {
	if content == "" {
		return ""
	}
	runes := []rune(content)
	if len(runes) <= maxChars {
		return content
	}
	return strings.TrimSpace(string(runes[:maxChars])) + "..."
}

// SplitForTranslation splits text into chunks of at most maxChars, cutting
// at the last newline when one exists past the halfway point so paragraphs
// survive chunking. Chunks are never empty.
func SplitForTranslation(text string, maxChars int) []string {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= maxChars {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + maxChars
		if end > len(runes) {
			end = len(runes)
		}

		if end < len(runes) {
			boundary := lastIndexRune(runes, '\n', end)
			if boundary > start+maxChars/2 {
				end = boundary
			}
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		start = end
	}

	return chunks
}

func lastIndexRune(runes []rune, r rune, before int) int {
	for i := before; i >= 0; i-- {
		if i < len(runes) && runes[i] == r {
			return i
		}
	}
	return -1
}

// ExcerptBySentences keeps whole sentences up to the given limits. Used for
// quote_only sources where only a bounded excerpt may be republished.
func ExcerptBySentences(content string, maxSentences, maxChars int) string {
	normalized := NormalizeArticleContent(content)
	if normalized == "" {
		return ""
	}

	sentences := sentenceRe.FindAllString(normalized, -1)
	if len(sentences) == 0 {
		sentences = []string{normalized}
	}

	var out []string
	for _, sentence := range sentences {
		if len(out) >= maxSentences {
			break
		}
		candidate := NormalizeText(sentence)
		if candidate == "" {
			continue
		}
		next := strings.Join(append(append([]string{}, out...), candidate), " ")
		if len([]rune(next)) > maxChars {
			break
		}
		out = append(out, candidate)
	}

	result := strings.TrimSpace(strings.Join(out, " "))
	if result == "" {
		return TrimContent(normalized, maxChars)
	}
	return result
}

func isLikelyPhoneLine(input string) bool {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return false
	}

	withoutPrefix := strings.TrimSpace(phonePrefixRe.ReplaceAllString(trimmed, ""))
	if withoutPrefix == "" {
		return false
	}
	if emailRe.MatchString(withoutPrefix) {
		return false
	}
	if letterRe.MatchString(withoutPrefix) {
		return false
	}

	digits := nonDigitRe.ReplaceAllString(withoutPrefix, "")
	if len(digits) < 7 || len(digits) > 18 {
		return false
	}

	return strings.ContainsAny(withoutPrefix, "+-(). \t") || strings.HasPrefix(withoutPrefix, "+")
}

func isLikelyContactNameLine(input string) bool {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" || len(trimmed) < 3 || len(trimmed) > 80 {
		return false
	}
	if emailRe.MatchString(trimmed) || digitRe.MatchString(trimmed) || urlRe.MatchString(trimmed) {
		return false
	}
	if contactLabelRe.MatchString(trimmed) {
		return false
	}

	words := strings.Fields(trimmed)
	if len(words) < 2 || len(words) > 4 {
		return false
	}

	uppercaseInitialWords := 0
	for _, word := range words {
		if !nameWordRe.MatchString(word) {
			return false
		}
		if upperWordRe.MatchString(word) {
			uppercaseInitialWords++
		}
	}

	return uppercaseInitialWords >= 2
}

func isContactInfoLine(input string) bool {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return false
	}
	if contactLabelRe.MatchString(trimmed) {
		return true
	}
	if emailRe.MatchString(trimmed) {
		return true
	}
	return isLikelyPhoneLine(trimmed)
}

// stripMediaContacts drops contact blocks: label lines, emails, phone lines
// and the personal names adjacent to them.
func stripMediaContacts(content string) string {
	if content == "" {
		return ""
	}

	lines := strings.Split(content, "\n")
	drop := make([]bool, len(lines))

	markNameNear := func(index int) {
		if index >= 0 && index < len(lines) && isLikelyContactNameLine(lines[index]) {
			drop[index] = true
		}
	}

	for index := range lines {
		if !isContactInfoLine(lines[index]) {
			continue
		}

		drop[index] = true

		markNameNear(index - 1)
		if index >= 2 && strings.TrimSpace(lines[index-1]) == "" {
			markNameNear(index - 2)
		}

		if index+1 < len(lines) && isContactInfoLine(lines[index+1]) {
			drop[index+1] = true
		}
		if index+2 < len(lines) && strings.TrimSpace(lines[index+1]) == "" && isContactInfoLine(lines[index+2]) {
			drop[index+2] = true
		}
	}

	// Sweep names that ended up sandwiched between dropped lines.
	for index := range lines {
		if drop[index] || !isLikelyContactNameLine(lines[index]) {
			continue
		}

		prevDropped := index > 0 && drop[index-1]
		nextDropped := index+1 < len(lines) && drop[index+1]
		prevGapDropped := index >= 2 && strings.TrimSpace(lines[index-1]) == "" && drop[index-2]
		nextGapDropped := index+2 < len(lines) && strings.TrimSpace(lines[index+1]) == "" && drop[index+2]

		if prevDropped || nextDropped || prevGapDropped || nextGapDropped {
			drop[index] = true
		}
	}

	var kept []string
	for index, line := range lines {
		if !drop[index] {
			kept = append(kept, line)
		}
	}

	cleaned := strings.Join(kept, "\n")
	return strings.TrimSpace(multiBlankRe.ReplaceAllString(cleaned, "\n\n"))
}
