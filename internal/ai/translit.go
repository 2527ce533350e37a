package ai

import (
	"strings"
	"unicode"
)

// GOST 7.79-2000 style transliteration table (lowercase; uppercase is
// derived by capitalizing the replacement).
var translitTable = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d",
	'е': "e", 'ё': "yo", 'ж': "zh", 'з': "z", 'и': "i",
	'й': "y", 'к': "k", 'л': "l", 'м': "m", 'н': "n",
	'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t",
	'у': "u", 'ф': "f", 'х': "kh", 'ц': "ts", 'ч': "ch",
	'ш': "sh", 'щ': "shch", 'ъ': "", 'ы': "y", 'ь': "",
	'э': "e", 'ю': "yu", 'я': "ya",
}

// HasCyrillic reports whether text contains Cyrillic characters.
func HasCyrillic(text string) bool {
	for _, r := range text {
		if unicode.Is(unicode.Cyrillic, r) {
			return true
		}
	}
	return false
}

// Transliterate converts Cyrillic characters to their Latin equivalents,
// leaving everything else (digits, spaces, Latin letters) untouched.
func Transliterate(text string) string {
	var sb strings.Builder
	for _, r := range text {
		lower := unicode.ToLower(r)
		replacement, ok := translitTable[lower]
		if !ok {
			sb.WriteRune(r)
			continue
		}
		if unicode.IsUpper(r) && replacement != "" {
			sb.WriteString(strings.ToUpper(replacement[:1]) + replacement[1:])
		} else {
			sb.WriteString(replacement)
		}
	}
	return sb.String()
}

// TransliterateProductName converts a Cyrillic product name to Latin.
// Fully Cyrillic names get each word capitalized; names mixing Latin and
// Cyrillic keep their original capitalization so brands like "iPhone"
// survive. Names without Cyrillic are returned unchanged.
func TransliterateProductName(name string) string {
	if !HasCyrillic(name) {
		return name
	}

	hasLatin := strings.ContainsFunc(name, func(r rune) bool {
		return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'
	})

	transliterated := Transliterate(name)
	if hasLatin {
		return transliterated
	}

	words := strings.Split(transliterated, " ")
	for i, word := range words {
		if word == "" {
			continue
		}
		runes := []rune(strings.ToLower(word))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
