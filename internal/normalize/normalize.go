// Package normalize canonicalizes raw wine and producer strings into
// search-friendly names used by every downstream lookup.
package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// abbreviations maps common wine-list shorthand to its expansion.
// Matching is case-insensitive and word-boundary anchored.
var abbreviations = []struct {
	pattern  *regexp.Regexp
	expanded string
}{
	{regexp.MustCompile(`(?i)\bch[âa]?t?\.`), "Chateau"},
	{regexp.MustCompile(`(?i)\bdom\.`), "Domaine"},
	{regexp.MustCompile(`(?i)\bmais\.`), "Maison"},
	{regexp.MustCompile(`(?i)\bbourg\.`), "Bourgogne"},
	{regexp.MustCompile(`(?i)\bcdp\b`), "Chateauneuf-du-Pape"},
	{regexp.MustCompile(`(?i)\bj\.?\s?l\.?\b`), "Jean-Louis"},
	{regexp.MustCompile(`(?i)\bj\.?\s?m\.?\b`), "Jean-Marc"},
	{regexp.MustCompile(`(?i)\bj\.?\s?p\.?\b`), "Jean-Paul"},
	{regexp.MustCompile(`(?i)\bj\.?\s?f\.?\b`), "Jean-Francois"},
	{regexp.MustCompile(`(?i)\bsgn\b`), "Selection de Grains Nobles"},
	{regexp.MustCompile(`(?i)\bvv\b`), "Vieilles Vignes"},
	{regexp.MustCompile(`(?i)\bgc\b`), "Grand Cru"},
	{regexp.MustCompile(`(?i)\b1er\b`), "Premier"},
}

// shorthandVintage matches two-digit vintage shorthand like '18 or '85.
var shorthandVintage = regexp.MustCompile(`'(\d{2})\b`)

var whitespace = regexp.MustCompile(`\s+`)

// Normalize expands abbreviations, converts vintage shorthand to full
// years, and collapses whitespace. It is deterministic and idempotent;
// input with no matching rule is returned unchanged apart from
// whitespace collapsing.
func Normalize(s string) string {
	for _, ab := range abbreviations {
		s = ab.pattern.ReplaceAllString(s, ab.expanded)
	}
	s = shorthandVintage.ReplaceAllStringFunc(s, func(m string) string {
		return strconv.Itoa(ExpandVintage(m[1:]))
	})
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// ExpandVintage converts a two-digit vintage to a full year using a
// 50-year pivot: values above 50 land in the 1900s, the rest in the 2000s.
func ExpandVintage(twoDigit string) int {
	n, err := strconv.Atoi(twoDigit)
	if err != nil || n < 0 || n > 99 {
		return 0
	}
	if n > 50 {
		return 1900 + n
	}
	return 2000 + n
}

// SearchName builds the canonical search string for a wine: the
// normalized producer followed by the remainder of the normalized name,
// with any duplicated producer tokens stripped from the name.
func SearchName(producer, name string) string {
	p := Normalize(producer)
	n := Normalize(name)

	if p == "" {
		return n
	}
	if n == "" {
		return p
	}

	// Strip the producer substring out of the name so the combined
	// string does not repeat producer tokens.
	if start, end := foldIndex(n, p); start >= 0 {
		n = strings.TrimSpace(n[:start] + n[end:])
	}
	if n == "" {
		return p
	}
	return strings.TrimSpace(whitespace.ReplaceAllString(fmt.Sprintf("%s %s", p, n), " "))
}

// foldIndex locates sub in s under case folding and returns byte offsets
// into s itself. Offsets from a lowercased copy cannot be used here:
// some runes change byte length when lowercased.
func foldIndex(s, sub string) (int, int) {
	subRunes := utf8.RuneCountInString(sub)
	for start := 0; start < len(s); {
		end := start
		for n := 0; n < subRunes && end < len(s); n++ {
			_, w := utf8.DecodeRuneInString(s[end:])
			end += w
		}
		if strings.EqualFold(s[start:end], sub) {
			return start, end
		}
		_, w := utf8.DecodeRuneInString(s[start:])
		start += w
	}
	return -1, -1
}
