package language

import (
	"slices"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

var signedLanguages = []string{
	"ase", "gsg", "fsl", "bfi", "ils", "sgg", "ssr", "slf", "isr", "ssp", "jos",
	"rsl-by", "bqn", "csl", "csq", "cse", "dsl", "ins", "nzs", "eso", "fse", "asq",
	"gss-cy", "gss", "icl", "ise", "jsl", "lsl", "lls", "psc", "pso", "bzs", "psr",
	"rms", "rsl", "svk", "aed", "csg", "csf", "mfs", "swl", "tsm", "ukl", "pks",
}

var spokenLanguages = []string{
	"en", "de", "fr", "af", "sq", "am", "ar", "hy", "az", "eu", "be", "bn", "bs",
	"bg", "ca", "ceb", "ny", "zh", "co", "hr", "cs", "da", "nl", "eo", "et", "tl",
	"fi", "fy", "gl", "ka", "es", "el", "gu", "ht", "ha", "haw", "he", "hi", "hmn",
	"hu", "is", "ig", "id", "ga", "it", "ja", "jv", "kn", "kk", "km", "rw", "ko",
	"ku", "ky", "lo", "la", "lv", "lt", "lb", "mk", "mg", "ms", "ml", "mt", "mi",
	"mr", "mn", "my", "ne", "no", "or", "ps", "fa", "pl", "pt", "pa", "ro", "ru",
	"sm", "gd", "sr", "st", "sn", "sd", "si", "sk", "sl", "so", "su", "sw", "sv",
	"tg", "ta", "tt", "te", "th", "tr", "tk", "uk", "ur", "ug", "uz", "vi", "cy",
	"xh", "yi", "yo", "zu",
}

// CLDR has no English names for most sign language codes.
var signedNames = map[string]string{
	"ase":    "American Sign Language",
	"gsg":    "German Sign Language",
	"fsl":    "French Sign Language",
	"bfi":    "British Sign Language",
	"ils":    "International Sign",
	"sgg":    "Swiss-German Sign Language",
	"ssr":    "Swiss-French Sign Language",
	"slf":    "Swiss-Italian Sign Language",
	"isr":    "Israeli Sign Language",
	"ssp":    "Spanish Sign Language",
	"jos":    "Jordanian Sign Language",
	"rsl-by": "Belarusian Sign Language",
	"bqn":    "Bulgarian Sign Language",
	"csl":    "Chinese Sign Language",
	"csq":    "Croatian Sign Language",
	"cse":    "Czech Sign Language",
	"dsl":    "Danish Sign Language",
	"ins":    "Indian Sign Language",
	"nzs":    "New Zealand Sign Language",
	"eso":    "Estonian Sign Language",
	"fse":    "Finnish Sign Language",
	"asq":    "Austrian Sign Language",
	"gss-cy": "Cypriot Sign Language",
	"gss":    "Greek Sign Language",
	"icl":    "Icelandic Sign Language",
	"ise":    "Italian Sign Language",
	"jsl":    "Japanese Sign Language",
	"lsl":    "Latvian Sign Language",
	"lls":    "Lithuanian Sign Language",
	"psc":    "Iranian Sign Language",
	"pso":    "Polish Sign Language",
	"bzs":    "Brazilian Sign Language",
	"psr":    "Portuguese Sign Language",
	"rms":    "Romanian Sign Language",
	"rsl":    "Russian Sign Language",
	"svk":    "Slovakian Sign Language",
	"aed":    "Argentine Sign Language",
	"csg":    "Chilean Sign Language",
	"csf":    "Cuba Sign Language",
	"mfs":    "Mexican Sign Language",
	"swl":    "Swedish Sign Language",
	"tsm":    "Turkish Sign Language",
	"ukl":    "Ukrainian Sign Language",
	"pks":    "Pakistan Sign Language",
}

// Normalize lowercases a code and converts underscores to hyphens.
func Normalize(code string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(code)), "_", "-")
}

// Spoken returns the supported spoken language codes.
func Spoken() []string {
	return slices.Clone(spokenLanguages)
}

// Signed returns the supported signed language codes.
func Signed() []string {
	return slices.Clone(signedLanguages)
}

// IsSpoken reports whether code (or its base language) is a supported spoken language.
func IsSpoken(code string) bool {
	code = Normalize(code)
	return slices.Contains(spokenLanguages, code) || slices.Contains(spokenLanguages, Base(code))
}

// IsSigned reports whether code is a supported signed language.
func IsSigned(code string) bool {
	return slices.Contains(signedLanguages, Normalize(code))
}

// Base returns the primary language subtag of code ("zh-TW" -> "zh").
func Base(code string) string {
	code = Normalize(code)
	if code == "" {
		return ""
	}
	if tag, err := language.Parse(code); err == nil {
		if base, confidence := tag.Base(); confidence != language.No {
			return base.String()
		}
	}
	if idx := strings.IndexByte(code, '-'); idx > 0 {
		return code[:idx]
	}
	return code
}

// MatchesAny reports whether code equals one of the prefixes or is a regional
// variant of one ("zh-hk" matches "zh").
func MatchesAny(code string, prefixes []string) bool {
	code = Normalize(code)
	if code == "" {
		return false
	}
	for _, prefix := range prefixes {
		prefix = Normalize(prefix)
		if prefix == "" {
			continue
		}
		if code == prefix || strings.HasPrefix(code, prefix+"-") {
			return true
		}
	}
	return false
}

// DisplayName returns an English name for a spoken or signed language code.
// Unknown codes are returned unchanged.
func DisplayName(code string) string {
	code = Normalize(code)
	if name, ok := signedNames[code]; ok {
		return name
	}
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return code
}
