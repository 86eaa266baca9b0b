package translate

import (
	"regexp"
	"strings"

	"avtopress/internal/textutil"
)

// Spec-sheet style blocks often survive translation as one dense line of
// "Label: value | Label: value" runs. The formatter below restores line
// structure without changing any textual content.

var (
	urlRe              = regexp.MustCompile(`(?i)https?://\S+`)
	pipeSeparatorRe    = regexp.MustCompile(`\s*\|\s*`)
	bulletSeparatorRe  = regexp.MustCompile(`\s*•\s*`)
	valueToLabelRe     = regexp.MustCompile(`([0-9$€£¥₴])\s+((?:\d+\.\s*)?[A-ZА-ЯІЇЄҐ][A-Za-zА-Яа-яІіЇїЄєҐґ0-9+/%()'’\- ]{1,42}:)`)
	inlinePlusRe       = regexp.MustCompile(`\s\+\s`)
	statLabelRe        = regexp.MustCompile(`((?:\d+\.\s*)?[A-ZА-ЯІЇЄҐ][A-Za-zА-Яа-яІіЇїЄєҐґ0-9+/%()'’\- ]{1,42}:)`)
	sentenceEndLabelRe = regexp.MustCompile(`[.!?]$`)
)

// FormatDenseContent reformats translated content that looks like a packed
// statistics block. Cosmetic only: it inserts line breaks, never words.
func FormatDenseContent(content string) string {
	normalized := textutil.NormalizeArticleContent(content)
	if normalized == "" {
		return ""
	}

	if !shouldFormatDenseContent(normalized) {
		return normalized
	}

	withSeparators := applyPrimarySeparators(normalized)
	structured := formatDenseLines(withSeparators)
	return textutil.NormalizeArticleContent(structured)
}

func isLikelyStatLabel(labelWithColon string) bool {
	label := strings.TrimSpace(strings.TrimSuffix(labelWithColon, ":"))
	if n := len([]rune(label)); n < 3 || n > 44 {
		return false
	}
	if sentenceEndLabelRe.MatchString(label) {
		return false
	}
	words := strings.Fields(label)
	return len(words) >= 1 && len(words) <= 8
}

func collectStatLabelIndexes(input string) []int {
	var indexes []int
	for _, loc := range statLabelRe.FindAllStringIndex(input, -1) {
		if isLikelyStatLabel(input[loc[0]:loc[1]]) {
			indexes = append(indexes, loc[0])
		}
	}
	return indexes
}

func shouldFormatDenseContent(content string) bool {
	signal := urlRe.ReplaceAllString(content, " ")
	labels := len(collectStatLabelIndexes(signal))
	pipes := strings.Count(signal, "|")
	bullets := strings.Count(signal, "•")
	colons := strings.Count(signal, ":")
	hasLineBreaks := strings.Contains(signal, "\n")

	if labels >= 3 && (pipes >= 1 || bullets >= 1) {
		return true
	}
	if !hasLineBreaks && labels >= 3 && colons >= 4 {
		return true
	}
	return !hasLineBreaks && colons >= 5 && (pipes >= 2 || bullets >= 2)
}

func applyPrimarySeparators(content string) string {
	out := content

	if strings.Count(out, "|") >= 2 {
		out = pipeSeparatorRe.ReplaceAllString(out, "\n")
	}
	if strings.Count(out, "•") >= 2 {
		out = bulletSeparatorRe.ReplaceAllString(out, "\n• ")
	}

	out = valueToLabelRe.ReplaceAllString(out, "$1\n$2")

	if len(out) > 220 && strings.Contains(out, " + ") {
		out = inlinePlusRe.ReplaceAllString(out, "\n\n+ ")
	}

	return out
}

func splitDenseLineByLabels(line string) []string {
	var splitPoints []int
	for _, index := range collectStatLabelIndexes(line) {
		if index > 0 {
			splitPoints = append(splitPoints, index)
		}
	}
	if len(splitPoints) == 0 {
		return []string{line}
	}

	var chunks []string
	start := 0
	for _, point := range splitPoints {
		if chunk := strings.TrimSpace(line[start:point]); chunk != "" {
			chunks = append(chunks, chunk)
		}
		start = point
	}
	if tail := strings.TrimSpace(line[start:]); tail != "" {
		chunks = append(chunks, tail)
	}

	if len(chunks) < 2 {
		return []string{line}
	}
	return chunks
}

func splitDenseLineByBullets(line string) []string {
	if strings.Count(line, "•") < 2 {
		return []string{line}
	}

	var parts []string
	for _, part := range bulletSeparatorRe.Split(line, -1) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	if len(parts) < 2 {
		return []string{line}
	}

	out := make([]string, len(parts))
	for i, part := range parts {
		if i == 0 {
			out[i] = part
		} else {
			out[i] = "- " + part
		}
	}
	return out
}

func formatDenseLines(content string) string {
	var formattedLines []string
	for _, rawLine := range strings.Split(content, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" {
			formattedLines = append(formattedLines, "")
			continue
		}

		for _, labelLine := range splitDenseLineByLabels(line) {
			formattedLines = append(formattedLines, splitDenseLineByBullets(labelLine)...)
		}
	}

	return strings.Join(formattedLines, "\n")
}
