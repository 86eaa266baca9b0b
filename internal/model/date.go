package model

import (
	"strings"
	"time"
)

// ToISOOrEmpty parses a feed-provided timestamp and normalizes it to UTC
// RFC 3339. Unparseable input yields "".
func ToISOOrEmpty(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}

	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		time.RFC1123Z,
		time.RFC1123,
		time.RFC822Z,
		time.RFC822,
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
	}
	return ""
}

// ToDateOnly returns the YYYY-MM-DD part of the first parseable timestamp.
func ToDateOnly(value, fallback string) string {
	iso := ToISOOrEmpty(value)
	if iso == "" {
		iso = ToISOOrEmpty(fallback)
	}
	if iso == "" {
		return ""
	}
	return iso[:10]
}

// ToTimeOnly returns the HH:MM:SS part of the first parseable timestamp.
func ToTimeOnly(value, fallback string) string {
	iso := ToISOOrEmpty(value)
	if iso == "" {
		iso = ToISOOrEmpty(fallback)
	}
	if len(iso) < 19 {
		return ""
	}
	return iso[11:19]
}

// RunIDFromTimestamp turns an RFC 3339 timestamp into a filesystem-safe run id.
func RunIDFromTimestamp(iso string) string {
	replacer := strings.NewReplacer(":", "-", ".", "-")
	return replacer.Replace(iso)
}

// DayFromISO extracts the calendar day from an ISO-like timestamp, falling
// back to a raw prefix slice when the value does not parse.
func DayFromISO(value string) string {
	if value == "" {
		return ""
	}
	if iso := ToISOOrEmpty(value); iso != "" {
		return iso[:10]
	}
	if len(value) >= 10 {
		return value[:10]
	}
	return value
}
