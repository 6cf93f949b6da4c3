package shared

import (
	"sort"
	"strings"
)

// keySeparator joins the normalized name and artist fields of a dedup key.
// It is unlikely to occur in real track or artist names.
const keySeparator = "|||"

// NormalizeTrackKey builds the equality key used for duplicate detection:
// the lowercased, trimmed track name joined with the sorted, lowercased
// artist names. Two playlist entries with the same key are duplicates even
// when their URIs differ (e.g. album vs. single release of the same song).
func NormalizeTrackKey(name string, artists []string) string {
	parts := make([]string, 0, len(artists)+1)
	parts = append(parts, strings.ToLower(strings.TrimSpace(name)))

	normalized := make([]string, len(artists))
	for i, artist := range artists {
		normalized[i] = strings.ToLower(strings.TrimSpace(artist))
	}
	sort.Strings(normalized)

	parts = append(parts, normalized...)
	return strings.Join(parts, keySeparator)
}

// NormalizeReleaseDate pads a release date to day precision so dates of
// different precisions compare lexicographically: year-only dates become
// YYYY-01-01 and year-month dates become YYYY-MM-01.
//
// The precision hint takes priority when present ("year", "month", "day");
// otherwise the string length decides.
func NormalizeReleaseDate(date, precision string) string {
	switch precision {
	case "year":
		return date + "-01-01"
	case "month":
		return date + "-01"
	case "day":
		return date
	}

	switch len(date) {
	case 4:
		return date + "-01-01"
	case 7:
		return date + "-01"
	}
	return date
}
