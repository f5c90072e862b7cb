package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeText lowercases s, strips diacritics and turns punctuation into
// spaces, so "¿Qué LAPTOPS tienen?" becomes "que laptops tienen".
func NormalizeText(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Words returns the normalized words of s.
func Words(s string) []string {
	return strings.Fields(NormalizeText(s))
}

// ContainsPhrase reports whether the normalized text contains phrase as whole
// words. Both arguments must already be normalized.
func ContainsPhrase(text, phrase string) bool {
	return strings.Contains(" "+text+" ", " "+phrase+" ")
}

// SameWord matches a word against a singular keyword, accepting the Spanish
// and English plural endings.
func SameWord(word, keyword string) bool {
	return word == keyword || word == keyword+"s" || word == keyword+"es"
}
