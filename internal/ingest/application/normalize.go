package application

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// multiValueSplitPattern separates region and customer lists. Authors write
// "Chile, Peru", "Chile & Peru", "Chile/Peru", "Chile and Peru" or one entry
// per line inside a single cell; all of those mean a list.
var multiValueSplitPattern = regexp.MustCompile(`(?i)\band\b|[,&/\r\n]`)

// NormalizeMultiValue canonicalizes a free-text region or customer list:
// split, trim, correct known typos, title-case unknown segments and sort.
// Sorting makes the result order-insensitive, which record fingerprints
// depend on.
func NormalizeMultiValue(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	segments := multiValueSplitPattern.Split(raw, -1)
	out := make([]string, 0, len(segments))
	for _, segment := range segments {
		segment = strings.TrimSpace(segment)
		if utf8.RuneCountInString(segment) < 2 {
			continue
		}
		if fixed, ok := regionTypoTable[strings.ToLower(segment)]; ok {
			out = append(out, fixed)
			continue
		}
		out = append(out, titleCase(segment))
	}
	sort.Strings(out)
	return strings.Join(out, ", ")
}

// NormalizeSolution cleans a solution list. Only commas separate entries
// (solution names contain slashes and spaces), the "1.o" version typo is
// rewritten to "1.0", and the original order is preserved.
func NormalizeSolution(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	segments := strings.Split(raw, ",")
	out := make([]string, 0, len(segments))
	for _, segment := range segments {
		segment = strings.ReplaceAll(segment, "1.o", "1.0")
		segment = strings.ReplaceAll(segment, "1.O", "1.0")
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		out = append(out, segment)
	}
	return strings.Join(out, ", ")
}

var (
	isoDatePattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	dayFirstPattern = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{4})$`)
)

// dateFallbackLayouts are the only formats accepted beyond the two explicit
// patterns. Every layout is parsed in UTC, so a value can never shift a day
// across a timezone boundary.
var dateFallbackLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"1/2/2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"2-Jan-2006",
}

// datePlaceholders are cell values that mean "no date yet", not a typo.
var datePlaceholders = map[string]bool{
	"tbd":     true,
	"n/a":     true,
	"na":      true,
	"-":       true,
	"pending": true,
	"?":       true,
}

// NormalizeDate converts a raw cell to an ISO "YYYY-MM-DD" string. Empty and
// placeholder values normalize to an empty date with ok=true. A non-empty
// value that matches none of the known patterns returns ok=false so the
// caller can flag the row for manual review instead of guessing.
func NormalizeDate(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || datePlaceholders[strings.ToLower(s)] {
		return "", true
	}
	if isoDatePattern.MatchString(s) {
		if _, err := time.Parse("2006-01-02", s); err == nil {
			return s, true
		}
		return "", false
	}
	if m := dayFirstPattern.FindStringSubmatch(s); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if validCalendarDate(year, month, day) {
			return fmt.Sprintf("%04d-%02d-%02d", year, month, day), true
		}
		// Day-first reading is impossible (e.g. 3/15/2024); the fallback
		// layouts below include the month-first form.
	}
	for _, layout := range dateFallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format("2006-01-02"), true
		}
	}
	return "", false
}

func validCalendarDate(year, month, day int) bool {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Year() == year && int(t.Month()) == month && t.Day() == day
}

// truthyValues is the closed set of spellings that mean "yes" in the sheets,
// Spanish forms included.
var truthyValues = map[string]bool{
	"y":    true,
	"yes":  true,
	"si":   true,
	"s":    true,
	"true": true,
	"1":    true,
}

// ParseYesNo coerces a cell to a boolean. Anything outside the truthy set,
// the empty string included, is false.
func ParseYesNo(raw string) bool {
	return truthyValues[strings.ToLower(strings.TrimSpace(raw))]
}

func isDateField(field string) bool {
	lower := strings.ToLower(field)
	return strings.Contains(lower, "date") || strings.Contains(lower, "schedule")
}

// NormalizeField converts one raw cell according to its canonical field.
// ok is false only for date fields holding a value no known pattern matches.
func NormalizeField(field, raw string) (string, bool) {
	switch {
	case field == FieldTargetRegion || field == FieldTargetCustomer:
		return NormalizeMultiValue(raw), true
	case field == FieldTargetSolution:
		return NormalizeSolution(raw), true
	case isDateField(field):
		return NormalizeDate(raw)
	default:
		return strings.TrimSpace(raw), true
	}
}

func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}
