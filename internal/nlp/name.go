package nlp

import (
	"strings"
	"unicode"
)

// Words that look like names when capitalized mid-sentence but never are:
// greetings, flow keywords, gender answers, and date vocabulary.
var nameStopwords = map[string]struct{}{
	"hi": {}, "hello": {}, "hey": {}, "book": {}, "appointment": {},
	"i": {}, "im": {}, "am": {}, "pm": {}, "my": {}, "name": {}, "is": {},
	"for": {}, "at": {}, "on": {}, "the": {}, "a": {}, "an": {}, "to": {},
	"please": {}, "need": {}, "want": {}, "male": {}, "female": {}, "other": {},
	"today": {}, "tomorrow": {}, "next": {}, "this": {},
	"monday": {}, "tuesday": {}, "wednesday": {}, "thursday": {}, "friday": {},
	"saturday": {}, "sunday": {},
	"january": {}, "february": {}, "march": {}, "april": {}, "may": {},
	"june": {}, "july": {}, "august": {}, "september": {}, "october": {},
	"november": {}, "december": {},
}

// ExtractName finds the first capitalized word (plus an adjacent second
// capitalized word as last name) that is not claimed by any other
// extractor's vocabulary, including department names.
func (p *Parser) ExtractName(text string) (first, last string, ok bool) {
	deptWords := make(map[string]struct{})
	for _, name := range p.catalog.Names() {
		for _, w := range strings.Fields(strings.ToLower(name)) {
			deptWords[w] = struct{}{}
		}
	}

	tokens := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r)
	})

	isName := func(tok string) bool {
		if len(tok) < 2 {
			return false
		}
		if !unicode.IsUpper(rune(tok[0])) {
			return false
		}
		lower := strings.ToLower(tok)
		if _, stop := nameStopwords[lower]; stop {
			return false
		}
		if _, dept := deptWords[lower]; dept {
			return false
		}
		return true
	}

	for i, tok := range tokens {
		if !isName(tok) {
			continue
		}
		first = capitalize(tok)
		if i+1 < len(tokens) && isName(tokens[i+1]) {
			last = capitalize(tokens[i+1])
		}
		return first, last, true
	}
	return "", "", false
}
