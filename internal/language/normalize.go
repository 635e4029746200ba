// Package language resolves ISO 639 language codes to English display names
// used in stream titles and default-track matching.
package language

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Unknown is returned for empty, unresolvable, or non-linguistic codes.
const Unknown = "Unknown"

// bibliographic maps ISO 639-2/B codes to their terminologic (639-2/T) form.
// x/text only indexes the terminologic variants.
var bibliographic = map[string]string{
	"alb": "sqi",
	"arm": "hye",
	"baq": "eus",
	"bur": "mya",
	"chi": "zho",
	"cze": "ces",
	"dut": "nld",
	"fre": "fra",
	"geo": "kat",
	"ger": "deu",
	"gre": "ell",
	"ice": "isl",
	"mac": "mkd",
	"mao": "mri",
	"may": "msa",
	"per": "fas",
	"rum": "ron",
	"slo": "slk",
	"tib": "bod",
	"wel": "cym",
}

// special codes that carry no language.
var nonLinguistic = map[string]bool{
	"und": true,
	"mul": true,
	"zxx": true,
	"mis": true,
}

var (
	names = display.English.Languages()
	upper = cases.Upper(language.English)
)

// Normalize returns the English name for code. Two-letter codes are read as
// ISO 639-1, three-letter codes as ISO 639-2 (terminologic or bibliographic)
// or ISO 639-3. Any other length is treated as a language name and returned
// with only its first letter upper-cased.
func Normalize(code string) string {
	code = strings.TrimSpace(code)
	switch len(code) {
	case 0:
		return Unknown
	case 2, 3:
		return lookup(strings.ToLower(code))
	default:
		return capitalize(code)
	}
}

func capitalize(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	return upper.String(string(r)) + name[size:]
}

// Equal reports whether two codes or names resolve to the same known language.
func Equal(a, b string) bool {
	na := Normalize(a)
	return na != Unknown && na == Normalize(b)
}

func lookup(code string) string {
	if nonLinguistic[code] || isPrivateUse(code) {
		return Unknown
	}
	if t, ok := bibliographic[code]; ok {
		code = t
	}
	base, err := language.ParseBase(code)
	if err != nil {
		return Unknown
	}
	name := names.Name(base)
	if name == "" {
		return Unknown
	}
	return name
}

// isPrivateUse reports whether code is in the ISO 639-2 qaa-qtz block.
func isPrivateUse(code string) bool {
	return len(code) == 3 && code[0] == 'q' && code[1] >= 'a' && code[1] <= 't'
}
