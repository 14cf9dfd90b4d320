package mapsurl

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// roadKeywords mark names of roads, accesses and junctions rather than named places.
var roadKeywords = []string{
	"rodovia", "estrada", "avenida", "rua", "acesso", "br-", "br ",
	"alça", "linha", "viaduto", "trevo", "marginal", "r.", "av.", "km ",
}

var multiSpace = regexp.MustCompile(`\s{2,}`)

var trademarks = strings.NewReplacer("™", "", "®", "", "©", "")

// LooksLikeRoad reports whether the name most likely refers to a road.
func LooksLikeRoad(name string) bool {
	s := strings.ToLower(strings.TrimSpace(name))
	for _, keyword := range roadKeywords {
		if strings.Contains(s, keyword) {
			return true
		}
	}

	return false
}

// CleanText normalizes a name so it can be safely written to a CSV cell.
func CleanText(text string) string {
	if text == "" {
		return text
	}

	s := trademarks.Replace(strings.ReplaceAll(text, "+", " "))
	s = norm.NFKC.String(s)
	s = strings.TrimSpace(s)
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\r', r == '\n', r == '\t':
			return ' '
		case unicode.In(r, unicode.Cc, unicode.Cf, unicode.Cs):
			return -1
		}
		return r
	}, s)
	s = multiSpace.ReplaceAllString(s, " ")

	return strings.TrimSpace(s)
}
