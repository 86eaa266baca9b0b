package photos

import (
	"regexp"
	"strings"

	"avtopress/internal/model"
)

var reusableLicenseRes = []*regexp.Regexp{
	regexp.MustCompile(`creative commons`),
	regexp.MustCompile(`cc[- ]?by[a-z0-9. -]*`),
	regexp.MustCompile(`cc0`),
	regexp.MustCompile(`public domain`),
	regexp.MustCompile(`\bpd\b`),
	regexp.MustCompile(`gfdl`),
	regexp.MustCompile(`wikimedia commons`),
}

var unknownLicenseRes = []*regexp.Regexp{
	regexp.MustCompile(`license unknown`),
	regexp.MustCompile(`unknown license`),
	regexp.MustCompile(`rights unknown`),
	regexp.MustCompile(`\bunknown\b`),
	regexp.MustCompile(`not provided`),
	regexp.MustCompile(`not specified`),
	regexp.MustCompile(`manual review`),
	regexp.MustCompile(`check original source terms`),
	regexp.MustCompile(`\bn/a\b`),
	regexp.MustCompile(`\btbd\b`),
}

var editedMarkerRes = []*regexp.Regexp{
	regexp.MustCompile(`mirror`),
	regexp.MustCompile(`flip`),
	regexp.MustCompile(`edit`),
	regexp.MustCompile(`photoshop`),
	regexp.MustCompile(`retouch`),
	regexp.MustCompile(`remix`),
	regexp.MustCompile(`upscale`),
	regexp.MustCompile(`ai[- ]?(generated|edited|enhanced|upscaled)`),
	regexp.MustCompile(`midjourney`),
	regexp.MustCompile(`stable diffusion`),
}

func matchesAny(text string, patterns []*regexp.Regexp) bool {
	for _, pattern := range patterns {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}

// IsUnknownLicenseText reports whether a license string fails to declare a
// reusable license. A recognized reusable marker wins over an unknown hint.
func IsUnknownLicenseText(license string) bool {
	lower := strings.ToLower(strings.TrimSpace(license))
	if lower == "" {
		return true
	}
	if matchesAny(lower, reusableLicenseRes) {
		return false
	}
	return matchesAny(lower, unknownLicenseRes)
}

// HasEditedOrMirroredMarkers scans the photo provenance fields for signs the
// image was altered or machine-generated.
func HasEditedOrMirroredMarkers(sourceURL, attributionURL, credit string) bool {
	haystack := strings.ToLower(sourceURL + " " + attributionURL + " " + credit)
	return matchesAny(haystack, editedMarkerRes)
}

// IsAllowedByRightsPolicy rejects photos that carry both an unclear license
// and markers of edited or AI-derived imagery.
func IsAllowedByRightsPolicy(photo model.PhotoAsset) bool {
	if IsUnknownLicenseText(photo.License) &&
		HasEditedOrMirroredMarkers(photo.SourceURL, photo.AttributionURL, photo.Credit) {
		return false
	}
	return true
}
