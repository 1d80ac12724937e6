// Package nlp turns one free-text message into candidate booking fields.
// Every extractor is independent and best-effort: it either finds its
// field or stays silent, and never assumes another extractor succeeded.
package nlp

import (
	"regexp"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/novamed-health/booking-platform/internal/catalog"
)

// Result carries whatever the extractors recognized, absent fields nil.
type Result struct {
	Department *string
	Gender     *string
	Date       *string // YYYY-MM-DD, strictly after today
	Time       *string // HH:00, aligned to the department's slots when known
	FirstName  *string
	LastName   *string
	Phone      *string
	Email      *string
}

// Parser runs the extractor set against inbound text.
type Parser struct {
	catalog *catalog.Catalog
	dates   *when.Parser
}

// NewParser builds a parser bound to the department catalog.
func NewParser(c *catalog.Catalog) *Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &Parser{catalog: c, dates: w}
}

// Extract runs all extractors over text and merges their results. now
// anchors relative dates ("tomorrow") and the future-date check.
func (p *Parser) Extract(text string, now time.Time) Result {
	var r Result

	if d, ok := p.ExtractDepartment(text); ok {
		r.Department = &d
	}
	if g, ok := ExtractGender(text); ok {
		r.Gender = &g
	}
	if d, ok := p.ExtractDate(text, now); ok {
		r.Date = &d
	}
	if t, ok := ExtractTime(text); ok {
		// A time is only kept when it lands on a real slot of the
		// department we identified; without a department it is kept
		// as-is and validated later.
		if r.Department != nil {
			if dept, err := p.catalog.Get(*r.Department); err == nil && !catalog.HasSlot(dept, t) {
				t = ""
			}
		}
		if t != "" {
			r.Time = &t
		}
	}
	if ph, ok := ExtractPhone(text); ok {
		r.Phone = &ph
	}
	if em, ok := ExtractEmail(text); ok {
		r.Email = &em
	}
	if first, last, ok := p.ExtractName(text); ok {
		r.FirstName = &first
		if last != "" {
			r.LastName = &last
		}
	}

	return r
}

// ExtractDepartment finds a catalog department mentioned in text.
func (p *Parser) ExtractDepartment(text string) (string, bool) {
	d, ok := p.catalog.Match(text)
	if !ok {
		return "", false
	}
	return d.Name, true
}

var genderRe = regexp.MustCompile(`(?i)\b(male|female|other)\b`)

// ExtractGender matches the closed gender keyword set.
func ExtractGender(text string) (string, bool) {
	m := genderRe.FindString(text)
	if m == "" {
		return "", false
	}
	return capitalize(m), true
}

func capitalize(s string) string {
	s = strings.ToLower(s)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

var isoDateRe = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)

// ExtractDate finds a calendar date strictly after today, either as
// YYYY-MM-DD or natural language ("tomorrow", "next monday").
func (p *Parser) ExtractDate(text string, now time.Time) (string, bool) {
	if m := isoDateRe.FindString(text); m != "" {
		parsed, err := time.ParseInLocation("2006-01-02", m, now.Location())
		if err == nil && afterToday(parsed, now) {
			return m, true
		}
		return "", false
	}

	res, err := p.dates.Parse(text, now)
	if err != nil || res == nil {
		return "", false
	}
	if !afterToday(res.Time, now) {
		return "", false
	}
	return res.Time.Format("2006-01-02"), true
}

func afterToday(t, now time.Time) bool {
	y1, m1, d1 := t.Date()
	y2, m2, d2 := now.Date()
	day := time.Date(y1, m1, d1, 0, 0, 0, 0, now.Location())
	today := time.Date(y2, m2, d2, 0, 0, 0, 0, now.Location())
	return day.After(today)
}

var (
	clockRe   = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
	meridayRe = regexp.MustCompile(`(?i)\b(\d{1,2})\s*(am|pm)\b`)
)

// ExtractTime finds an HH:MM or "H am/pm" clock time and normalizes it
// to an hourly slot value. Times not on an hour boundary are rejected.
func ExtractTime(text string) (string, bool) {
	if m := clockRe.FindStringSubmatch(text); m != nil {
		h := atoi(m[1])
		min := atoi(m[2])
		if h <= 23 && min == 0 {
			return clock(h), true
		}
		return "", false
	}
	if m := meridayRe.FindStringSubmatch(text); m != nil {
		h := atoi(m[1])
		if h < 1 || h > 12 {
			return "", false
		}
		if strings.EqualFold(m[2], "pm") && h != 12 {
			h += 12
		}
		if strings.EqualFold(m[2], "am") && h == 12 {
			h = 0
		}
		return clock(h), true
	}
	return "", false
}

var phoneRe = regexp.MustCompile(`\+?\d[\d\-]{8,}\d`)

// ExtractPhone finds a phone number of at least ten digits, optionally
// prefixed with +, and normalizes it to E.164. Bare ten-digit numbers
// get the +91 country prefix, matching the registration desk's default.
func ExtractPhone(text string) (string, bool) {
	m := phoneRe.FindString(text)
	if m == "" {
		return "", false
	}
	return NormalizePhone(m)
}

// NormalizePhone validates and canonicalizes user-entered phone input.
func NormalizePhone(input string) (string, bool) {
	s := strings.TrimSpace(input)
	plus := strings.HasPrefix(s, "+")
	var digits strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if len(d) < 10 {
		return "", false
	}
	if plus || len(d) > 10 {
		return "+" + d, true
	}
	return "+91" + d, true
}

var emailRe = regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`)

// ExtractEmail finds a standard-shaped email address.
func ExtractEmail(text string) (string, bool) {
	m := emailRe.FindString(text)
	if m == "" {
		return "", false
	}
	return strings.ToLower(m), true
}

// ValidEmail reports whether s contains a standard-shaped email address.
func ValidEmail(s string) bool {
	return emailRe.MatchString(s)
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}

func clock(h int) string {
	return time.Date(0, 1, 1, h, 0, 0, 0, time.UTC).Format("15:04")
}
