package translate

import "unicode"

// ScriptStats counts letters by script, used to decide whether a text still
// looks untranslated after a translation pass.
type ScriptStats struct {
	TotalLetters    int
	LatinLetters    int
	CyrillicLetters int
}

// CollectScriptStats tallies Latin and Cyrillic letters in text.
func CollectScriptStats(text string) ScriptStats {
	var stats ScriptStats
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		stats.TotalLetters++
		if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') {
			stats.LatinLetters++
		}
		if r >= 0x0400 && r <= 0x04FF {
			stats.CyrillicLetters++
		}
	}
	return stats
}

// LatinRatio returns the share of Latin letters among all letters.
func (s ScriptStats) LatinRatio() float64 {
	return ratio(s.LatinLetters, s.TotalLetters)
}

// CyrillicRatio returns the share of Cyrillic letters among all letters.
func (s ScriptStats) CyrillicRatio() float64 {
	return ratio(s.CyrillicLetters, s.TotalLetters)
}

func ratio(numerator, denominator int) float64 {
	if denominator == 0 {
		return 0
	}
	return float64(numerator) / float64(denominator)
}
