package segment

import (
	"strings"
	"sync"

	"github.com/rivo/uniseg"
	"golang.org/x/text/language"
)

// Abbreviations that end in a full stop but rarely end a sentence, keyed by
// base language.
var abbreviations = map[string][]string{
	"en": {"mr.", "mrs.", "ms.", "dr.", "prof.", "sr.", "jr.", "st.", "vs.", "etc.", "e.g.", "i.e.", "inc.", "no."},
	"de": {"z.b.", "bzw.", "usw.", "nr.", "dr.", "prof.", "ca.", "d.h.", "u.a."},
	"fr": {"m.", "mme.", "mlle.", "dr.", "etc.", "p.ex."},
	"es": {"sr.", "sra.", "srta.", "dr.", "etc.", "p.ej."},
	"it": {"sig.", "dott.", "ecc."},
	"nl": {"dhr.", "mevr.", "bijv.", "enz."},
	"pt": {"sr.", "sra.", "dr.", "etc."},
}

type rules struct {
	language      string
	tag           language.Tag
	abbreviations map[string]struct{}
}

// Segmenter splits text into sentences. It caches the rules of the last
// language it was asked about and rebuilds them only when the language changes.
type Segmenter struct {
	mu      sync.Mutex
	enabled bool
	last    *rules
	builds  int
}

// New returns a segmenter. When localeAware is false every call degrades to a
// single segment.
func New(localeAware bool) *Segmenter {
	return &Segmenter{enabled: localeAware}
}

// Segment splits text into sentences using the rules for lang. Concatenating
// the result reproduces text exactly. When locale-aware rules are unavailable
// the whole text is returned as one segment.
func (s *Segmenter) Segment(lang, text string) []string {
	if text == "" {
		return []string{""}
	}
	r := s.rulesFor(lang)
	if r == nil {
		return []string{text}
	}

	var sentences []string
	state := -1
	remaining := text
	for len(remaining) > 0 {
		var sentence string
		sentence, remaining, state = uniseg.FirstSentenceInString(remaining, state)
		if n := len(sentences); n > 0 && r.endsWithAbbreviation(sentences[n-1]) {
			sentences[n-1] += sentence
			continue
		}
		sentences = append(sentences, sentence)
	}
	return sentences
}

func (s *Segmenter) rulesFor(lang string) *rules {
	if s == nil || !s.enabled {
		return nil
	}
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last != nil && s.last.language == lang {
		return s.last
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return nil
	}
	base, _ := tag.Base()
	built := &rules{language: lang, tag: tag, abbreviations: map[string]struct{}{}}
	for _, abbr := range abbreviations[base.String()] {
		built.abbreviations[abbr] = struct{}{}
	}
	s.last = built
	s.builds++
	return built
}

func (r *rules) endsWithAbbreviation(sentence string) bool {
	if len(r.abbreviations) == 0 {
		return false
	}
	trimmed := strings.TrimRight(sentence, " \t\r\n ")
	if !strings.HasSuffix(trimmed, ".") {
		return false
	}
	// A line break after the full stop is a deliberate boundary.
	if strings.ContainsAny(sentence[len(trimmed):], "\r\n") {
		return false
	}
	fields := strings.Fields(trimmed)
	if len(fields) == 0 {
		return false
	}
	_, ok := r.abbreviations[strings.ToLower(fields[len(fields)-1])]
	return ok
}
