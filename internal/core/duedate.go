package core

import (
	"regexp"
	"strconv"
	"time"
)

var (
	isoDateRe      = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	absoluteDateRe = regexp.MustCompile(`\b(\d{1,2})[/.-](\d{1,2})(?:[/.-](\d{4}|\d{2}))?\b`)
	inDaysRe       = regexp.MustCompile(`\b(?:em|daqui a|in|within) (\d{1,3}) (?:dias?|days?)\b`)
	daysLeftRe     = regexp.MustCompile(`\b(\d{1,3}) (?:days?|dias?) (?:left|remaining|restantes?)\b`)
	todayRe        = relativeDueRe(`hoje|today`)
	tomorrowRe     = relativeDueRe(`amanha|tomorrow`)
	overdueRe      = regexp.MustCompile(`\b(?:vencid[oa]s?|overdue|past due|atrasad[oa]s?|em atraso)\b`)
)

// dueHints are the words that turn "today" or "tomorrow" into a due date
const dueHints = `vence|vencem|vencimento|vencer|due|expira|expiram|expires|prazo|deadline|ate|until|termina|ends`

// relativeDueRe matches a relative day only next to a due hint, in either
// order ("vence hoje", "due by tomorrow", "hoje e o ultimo dia").
func relativeDueRe(days string) *regexp.Regexp {
	return regexp.MustCompile(`\b(?:` + dueHints + `)(?:\W+\w+){0,2}?\W+(?:` + days + `)\b` +
		`|\b(?:` + days + `)\W+(?:(?:e|is)\W+)?(?:(?:o|the)\W+)?(?:vencimento|deadline|prazo|ultimo dia|last day)\b`)
}

// A date without a year that lies further back than this is read as next year
const yearRolloverWindow = 60 * 24 * time.Hour

// DaysUntilDue finds the most urgent due reference in folded text, relative
// to today's calendar date. Negative values mean overdue.
func DaysUntilDue(folded string, today time.Time) (int, bool) {
	best, found := 0, false
	consider := func(days int) {
		if !found || days < best {
			best, found = days, true
		}
	}

	if overdueRe.MatchString(folded) {
		consider(-1)
	}
	if todayRe.MatchString(folded) {
		consider(0)
	}
	if tomorrowRe.MatchString(folded) {
		consider(1)
	}
	for _, re := range []*regexp.Regexp{inDaysRe, daysLeftRe} {
		for _, m := range re.FindAllStringSubmatch(folded, -1) {
			if n, err := strconv.Atoi(m[1]); err == nil {
				consider(n)
			}
		}
	}
	for _, m := range isoDateRe.FindAllStringSubmatch(folded, -1) {
		if due, ok := parseDayMonth(m[3], m[2], m[1], today); ok {
			consider(daysBetween(today, due))
		}
	}
	folded = isoDateRe.ReplaceAllString(folded, " ")
	for _, m := range absoluteDateRe.FindAllStringSubmatch(folded, -1) {
		if due, ok := parseDayMonth(m[1], m[2], m[3], today); ok {
			consider(daysBetween(today, due))
		}
	}

	return best, found
}

// DueScore maps days until due to an urgency score
func DueScore(days int) int {
	switch {
	case days <= 0:
		return 100
	case days <= 2:
		return 95
	case days <= 7:
		return 90
	default:
		return 85
	}
}

func parseDayMonth(dayStr, monthStr, yearStr string, today time.Time) (time.Time, bool) {
	day, err := strconv.Atoi(dayStr)
	if err != nil {
		return time.Time{}, false
	}
	month, err := strconv.Atoi(monthStr)
	if err != nil {
		return time.Time{}, false
	}
	if day < 1 || day > 31 || month < 1 || month > 12 {
		return time.Time{}, false
	}

	year := today.Year()
	explicitYear := yearStr != ""
	if explicitYear {
		y, err := strconv.Atoi(yearStr)
		if err != nil {
			return time.Time{}, false
		}
		if y < 100 {
			y += 2000
		}
		year = y
	}

	due := time.Date(year, time.Month(month), day, 0, 0, 0, 0, today.Location())
	if due.Day() != day {
		// 31/02 and friends
		return time.Time{}, false
	}
	if !explicitYear && today.Sub(due) > yearRolloverWindow {
		due = due.AddDate(1, 0, 0)
	}
	return due, true
}

func daysBetween(from, to time.Time) int {
	fromDay := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	toDay := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(toDay.Sub(fromDay).Hours() / 24)
}
