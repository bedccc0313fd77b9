package artifacts

// cyrillicToLatin is the fixed transliteration table applied to test titles
// before slugging. It covers the Russian and Ukrainian alphabets; anything
// outside the table (and outside ASCII) is collapsed to a hyphen by the
// slugger.
var cyrillicToLatin = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d",
	'е': "e", 'ё': "yo", 'ж': "zh", 'з': "z", 'и': "i",
	'й': "y", 'к': "k", 'л': "l", 'м': "m", 'н': "n",
	'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t",
	'у': "u", 'ф': "f", 'х': "h", 'ц': "ts", 'ч': "ch",
	'ш': "sh", 'щ': "shch", 'ъ': "", 'ы': "y", 'ь': "",
	'э': "e", 'ю': "yu", 'я': "ya",
	// Ukrainian additions.
	'є': "ye", 'і': "i", 'ї': "yi", 'ґ': "g",
}

// transliterate maps Cyrillic runes to their Latin equivalents, passing every
// other rune through untouched. Uppercase Cyrillic is handled by the caller
// lower-casing first.
func transliterate(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if latin, ok := cyrillicToLatin[r]; ok {
			out = append(out, []rune(latin)...)
			continue
		}
		out = append(out, r)
	}
	return string(out)
}
