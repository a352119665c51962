package media

import (
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"golang.org/x/text/unicode/norm"
)

const canonicalDateLayout = "2006-01-02"

var (
	canonicalDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	bareYearRe      = regexp.MustCompile(`^\d{4}$`)
)

// NormalizeReleaseDate turns user input into a canonical YYYY-MM-DD date.
// Rules, first match wins:
//  1. already YYYY-MM-DD: unchanged
//  2. bare YYYY: YYYY-01-01
//  3. any other string a generic date parser accepts: its calendar date
//  4. otherwise (including empty): absent, ok is false
func NormalizeReleaseDate(raw string) (date string, ok bool) {
	s := strings.TrimSpace(raw)

	switch {
	case s == "":
		return "", false
	case canonicalDateRe.MatchString(s):
		return s, true
	case bareYearRe.MatchString(s):
		return s + "-01-01", true
	}

	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return "", false
	}

	return t.Format(canonicalDateLayout), true
}

// editableDate re-expands a stored bare year for edit state. Anything else is
// returned as stored.
func editableDate(stored string) string {
	if bareYearRe.MatchString(stored) {
		return stored + "-01-01"
	}

	return stored
}

func normalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
