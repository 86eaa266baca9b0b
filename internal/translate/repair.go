package translate

import (
	"context"
	"regexp"
	"strings"

	"avtopress/internal/logger"
)

const (
	maxSegmentRescuesPerText = 40
	minSegmentLetters        = 20
)

var (
	segmentRe    = regexp.MustCompile(`[^.!?\n]+[.!?]*["')\]»”]*\s*|\n+`)
	onlyNewlines = regexp.MustCompile(`^\n+$`)
	leadingWS    = regexp.MustCompile(`^\s*`)
	trailingWS   = regexp.MustCompile(`\s*$`)
)

func splitIntoSegments(text string) []string {
	segments := segmentRe.FindAllString(text, -1)
	if len(segments) == 0 {
		return []string{text}
	}
	return segments
}

// isLikelyNonUkrainianSegment flags segments that still look untranslated:
// enough letters, mostly Latin, little Cyrillic.
func isLikelyNonUkrainianSegment(segment string) bool {
	trimmed := strings.TrimSpace(segment)
	if trimmed == "" {
		return false
	}

	stats := CollectScriptStats(trimmed)
	if stats.TotalLetters < minSegmentLetters {
		return false
	}

	return stats.LatinRatio() >= 0.45 && stats.CyrillicRatio() <= 0.45
}

// isTranslationImprovement accepts a retranslation only when it measurably
// shifts the letter ratios toward the target script.
func isTranslationImprovement(original, translated string) bool {
	if translated == "" || translated == original {
		return false
	}

	before := CollectScriptStats(original)
	after := CollectScriptStats(translated)

	return after.LatinRatio() < before.LatinRatio()-0.05 ||
		after.CyrillicRatio() > before.CyrillicRatio()+0.05
}

func keepSurroundingWhitespace(original, translated string) string {
	prefix := leadingWS.FindString(original)
	suffix := trailingWS.FindString(original)
	return prefix + translated + suffix
}

// RepairMixedUkrainianText retranslates sentence-like segments that came
// back still in Latin script. Each candidate is retried with an explicit
// English source hint first, then auto-detect; either result is kept only
// if it improves the script ratios. A per-text rescue cap bounds cost.
func (e *Engine) RepairMixedUkrainianText(ctx context.Context, text string) string {
	segments := splitIntoSegments(text)
	if len(segments) == 0 {
		return text
	}

	output := make([]string, 0, len(segments))
	rescuesApplied := 0

	for _, segment := range segments {
		if onlyNewlines.MatchString(segment) || !isLikelyNonUkrainianSegment(segment) {
			output = append(output, segment)
			continue
		}

		if rescuesApplied >= maxSegmentRescuesPerText {
			output = append(output, segment)
			continue
		}

		trimmed := strings.TrimSpace(segment)
		translated := e.translateViaEndpoint(ctx, trimmed, "uk", "en")
		if !isTranslationImprovement(trimmed, translated) {
			translated = e.translateViaEndpoint(ctx, trimmed, "uk", "auto")
		}

		if isTranslationImprovement(trimmed, translated) {
			output = append(output, keepSurroundingWhitespace(segment, translated))
			rescuesApplied++
			continue
		}

		output = append(output, segment)
	}

	if rescuesApplied > 0 {
		logger.Debug("translation rescue applied", "segments", rescuesApplied)
	}

	return strings.Join(output, "")
}
