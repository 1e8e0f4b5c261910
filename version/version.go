// Package version compares release version strings and issue dates so that
// a displayed record can be checked against newer releases in its history.
package version

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	pdr "github.com/usnistgov/oar-pdr-sub001"
)

// token is one lexical unit of a version field: a run of digits compared
// numerically, or a run of anything else compared lexically.
type token struct {
	num   int
	str   string
	isNum bool
}

func tokenize(field string) []token {
	var tokens []token
	i := 0
	for i < len(field) {
		j := i
		if field[i] >= '0' && field[i] <= '9' {
			for j < len(field) && field[j] >= '0' && field[j] <= '9' {
				j++
			}
			n, err := strconv.Atoi(field[i:j])
			if err == nil {
				tokens = append(tokens, token{num: n, isNum: true})
			} else {
				// out of int range, keep as text
				tokens = append(tokens, token{str: field[i:j]})
			}
		} else {
			for j < len(field) && (field[j] < '0' || field[j] > '9') {
				j++
			}
			tokens = append(tokens, token{str: field[i:j]})
		}
		i = j
	}
	return tokens
}

func compareTokens(a, b token) int {
	switch {
	case a.isNum && b.isNum:
		return sign(a.num - b.num)
	case a.isNum:
		// numbers sort before letters
		return -1
	case b.isNum:
		return 1
	default:
		return sign(strings.Compare(a.str, b.str))
	}
}

func compareField(a, b string) int {
	at, bt := tokenize(a), tokenize(b)
	for i := 0; i < len(at) && i < len(bt); i++ {
		if c := compareTokens(at[i], bt[i]); c != 0 {
			return c
		}
	}
	// a strict prefix sorts earlier, so "2" comes before "2rc8"
	return sign(len(at) - len(bt))
}

// CompareVersions compares two dot-separated version strings, returning a
// negative, zero, or positive value as a sorts before, equal to, or after b.
// Fields compare token-wise; a version with fewer fields sorts earlier than
// an otherwise-equal longer one, so "5" < "5.0" and "5.3.2" < "5.3.2rc8".
func CompareVersions(a, b string) int {
	af, bf := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(af) && i < len(bf); i++ {
		if c := compareField(af[i], bf[i]); c != 0 {
			return c
		}
	}
	return sign(len(af) - len(bf))
}

// dateRe matches ISO-8601-like date strings at year, month, day, minute, or
// second granularity, with optional fractional seconds and an optional
// trailing zone marker introduced by a literal 'Z'.
var dateRe = regexp.MustCompile(
	`^(\d{4})(?:-(\d{2})(?:-(\d{2})(?:[T ](\d{2}):(\d{2})(?::(\d{2}(?:\.\d+)?))?)?)?)?(Z.*)?$`)

// NormalizeDate expands a date string to full "YYYY-MM-DD HH:MM:SS" form.
// Missing month and day default to 01, missing time to midnight, missing
// seconds to 00. A zone marker is stripped entirely; zone is ignored for
// comparison, not converted. Strings outside the grammar come back unchanged.
func NormalizeDate(s string) string {
	m := dateRe.FindStringSubmatch(s)
	if m == nil {
		return s
	}

	month, day := m[2], m[3]
	if month == "" {
		month = "01"
	}
	if day == "" {
		day = "01"
	}
	hour, min, sec := m[4], m[5], m[6]
	if hour == "" {
		hour, min = "00", "00"
	}
	if sec == "" {
		sec = "00"
	}

	return m[1] + "-" + month + "-" + day + " " + hour + ":" + min + ":" + sec
}

const normalizedLayout = "2006-01-02 15:04:05"

// CompareDates compares two date strings by calendar time after normalizing
// both, so equal instants written at different granularities or with
// different separators compare equal. Inputs that do not normalize to a
// parseable date fall back to lexical comparison.
func CompareDates(a, b string) int {
	na, nb := NormalizeDate(a), NormalizeDate(b)

	ta, errA := time.Parse(normalizedLayout, na)
	tb, errB := time.Parse(normalizedLayout, nb)
	if errA != nil || errB != nil {
		return sign(strings.Compare(na, nb))
	}

	switch {
	case ta.Before(tb):
		return -1
	case ta.After(tb):
		return 1
	default:
		return 0
	}
}

// CompareReleases orders two release descriptors by issue date when both
// carry one, breaking ties (and filling in for missing dates) by version.
func CompareReleases(a, b pdr.ReleaseDescriptor) int {
	if a.Issued != "" && b.Issued != "" {
		if c := CompareDates(a.Issued, b.Issued); c != 0 {
			return c
		}
	}
	return CompareVersions(a.Version, b.Version)
}

// Newest returns the index of the most recent release in the history, or -1
// when the history is empty.
func Newest(history []pdr.ReleaseDescriptor) int {
	best := -1
	for i, rd := range history {
		if best < 0 || CompareReleases(rd, history[best]) > 0 {
			best = i
		}
	}
	return best
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}
