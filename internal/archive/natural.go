package archive

import (
	"strings"
	"unicode"
)

// naturalKey splits s into alternating text and digit runs.
// The first token is always text, possibly empty, so tokens at odd
// positions are always digit runs.
func naturalKey(s string) []string {
	var (
		tokens []string
		cur    strings.Builder
		digit  bool
	)
	for _, r := range s {
		isDigit := r >= '0' && r <= '9'
		if isDigit != digit {
			tokens = append(tokens, cur.String())
			cur.Reset()
			digit = isDigit
		}
		cur.WriteRune(r)
	}
	tokens = append(tokens, cur.String())
	return tokens
}

// NaturalLess reports whether a sorts before b in natural order:
// digit runs compare by integer value, everything else case-insensitively.
func NaturalLess(a, b string) bool {
	return naturalCompare(a, b) < 0
}

func naturalCompare(a, b string) int {
	ka, kb := naturalKey(a), naturalKey(b)
	for i := 0; i < len(ka) && i < len(kb); i++ {
		var c int
		if i%2 == 1 {
			c = compareDigits(ka[i], kb[i])
		} else {
			c = strings.Compare(lower(ka[i]), lower(kb[i]))
		}
		if c != 0 {
			return c
		}
	}
	switch {
	case len(ka) < len(kb):
		return -1
	case len(ka) > len(kb):
		return 1
	}
	return 0
}

// compareDigits compares two digit runs by value without overflowing.
func compareDigits(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

func lower(s string) string {
	return strings.Map(unicode.ToLower, s)
}
