package textutil

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"strings"
)

var (
	nonSlugRe      = regexp.MustCompile(`[^a-z0-9]+`)
	multiDashRe    = regexp.MustCompile(`-{2,}`)
	edgeDashRe     = regexp.MustCompile(`^-+|-+$`)
	trailingDashRe = regexp.MustCompile(`-+$`)
)

// Slugify turns a title into a filesystem-safe directory name.
func Slugify(value string, maxLength int) string {
	slug := strings.ToLower(value)
	slug = nonSlugRe.ReplaceAllString(slug, "-")
	slug = edgeDashRe.ReplaceAllString(slug, "")
	slug = multiDashRe.ReplaceAllString(slug, "-")

	if slug == "" {
		return "news"
	}

	if len(slug) > maxLength {
		slug = slug[:maxLength]
	}
	slug = trailingDashRe.ReplaceAllString(slug, "")
	if slug == "" {
		return "news"
	}
	return slug
}

// ShortHash returns a short stable hex digest, used for item ids and
// directory name suffixes.
func ShortHash(value string, length int) string {
	sum := sha1.Sum([]byte(value))
	hexed := hex.EncodeToString(sum[:])
	if length > 0 && length < len(hexed) {
		return hexed[:length]
	}
	return hexed
}
