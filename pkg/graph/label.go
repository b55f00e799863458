package graph

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// corporateMarkers are stripped by exact substring match.
var corporateMarkers = []string{
	"주식회사",
	"유한회사",
	"(주)",
	"(유)",
	"（주）",
	"（유）",
	"㈜",
	"㈲",
}

var parenthesized = regexp.MustCompile(`\([^)]*\)|（[^）]*）`)

// FormatName derives the display label of a company name.
//
// Corporate-form markers and any parenthesized segment are removed, then all
// whitespace. Names of seven or eight runes are wrapped onto two lines after
// the fourth rune.
func FormatName(name string) string {
	for _, m := range corporateMarkers {
		name = strings.ReplaceAll(name, m, "")
	}
	name = parenthesized.ReplaceAllString(name, "")
	name = strings.Join(strings.Fields(name), "")

	if n := utf8.RuneCountInString(name); n == 7 || n == 8 {
		r := []rune(name)
		return string(r[:4]) + "\n" + string(r[4:])
	}
	return name
}
