package core

// convert.go turns the messy strings found in user files into typed values.
//
// It handles the usual spreadsheet noise:
//   - Multiple date formats (ISO-8601, US slashes, day-first dots, long month names)
//   - Currency symbols and thousand separators in amounts
//   - Various boolean representations (yes/no, true/false, 1/0)
//   - Excel formula prefixes (="value")
//
// Every Parse* function reports ok=false instead of returning an error so the
// validator can attach its own row message.

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would result in dates more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

// Layouts used when rendering values for export.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
	ClockLayout    = "15:04"
)

var (
	// isoZonedLayouts carry their own offset.
	isoZonedLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04Z07:00",
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02 15:04Z07:00",
	}
	// isoLocalLayouts are read in the local time zone. Fractional seconds are
	// accepted after the seconds field even though the layout omits them.
	isoLocalLayouts = []string{
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
	}
	dateTimeLayouts = []string{
		"1/2/2006 15:04:05", "1/2/2006 15:04", "1/2/2006 3:04 PM", "1/2/2006 3:04PM",
		"01/02/2006 15:04:05", "01/02/2006 15:04",
		"Jan 2, 2006 15:04", "Jan 2, 2006 3:04 PM",
	}

	// Date layouts split by year format for proper 2-digit year handling
	// Slashed and dashed dates are month first. Dotted dates are day first.
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "2.1.06", "02.01.06",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "2.1.2006", "02.01.2006",
		"Jan 2, 2006", "January 2, 2006", "2 Jan 2006", "2 January 2006",
		"20060102",
	}

	clockLayouts = []string{
		"15:04", "15:04:05", "3:04 PM", "3:04PM", "3:04 pm", "3:04pm", "3 PM", "3PM", "3pm",
	}
)

// ParseDate parses a calendar date, accepting date-time input and dropping
// the time of day. The result is midnight local time.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if t, ok := parseDateOnly(s); ok {
		return t, true
	}
	if t, ok := ParseDateTime(s); ok {
		t = t.In(time.Local)
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.Local), true
	}
	return time.Time{}, false
}

func parseDateOnly(s string) (time.Time, bool) {
	// Try 4-digit year layouts first (unambiguous)
	for _, layout := range fourDigitYearLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}

	// Try 2-digit year layouts with pivot year adjustment
	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseDateTime parses an ISO-8601 date-time (T or space separator, optional
// seconds and fraction, optional Z or offset) or one of the common US forms.
// A bare date is accepted as midnight local time.
func ParseDateTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range isoZonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range isoLocalLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return parseDateOnly(s)
}

// ParseAmount parses a decimal amount.
// Handles currency symbols, thousands separators, and accounting format (parentheses for negative).
func ParseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, false
	}

	// Detect negative accounting format "(123.45)"
	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	// Remove common currency symbols and thousands separators
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "") // Euro
	s = strings.ReplaceAll(s, "£", "") // Pound
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if isNegative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return decimal.Decimal{}, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// ParseInt parses a whole number that fits the 32-bit integer columns.
// Integral decimals such as "20.0", common in spreadsheet exports, are
// accepted.
func ParseInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 32); err == nil {
		return int(n), true
	} else if errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	if !numericRegex.MatchString(s) {
		return 0, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsInteger() {
		return 0, false
	}
	if d.LessThan(minInt32) || d.GreaterThan(maxInt32) {
		return 0, false
	}
	return int(d.IntPart()), true
}

var (
	minInt32 = decimal.NewFromInt(math.MinInt32)
	maxInt32 = decimal.NewFromInt(math.MaxInt32)
)

// ParseBool accepts various representations: true/false, yes/no, t/f, y/n, 1/0, on/off, oui/non.
func ParseBool(s string) (bool, bool) {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "true", "t", "yes", "y", "1", "on", "oui":
		return true, true
	case "false", "f", "no", "n", "0", "off", "non":
		return false, true
	default:
		return false, false
	}
}

// ParseClock parses a time of day and returns it as HH:MM.
func ParseClock(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(ClockLayout), true
		}
	}
	return "", false
}

// weekdays in calendar order, starting on Monday.
var weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// ParseWeekday lowercases a day name and checks it is monday..sunday.
func ParseWeekday(s string) (string, bool) {
	day := strings.ToLower(strings.TrimSpace(s))
	for _, d := range weekdays {
		if d == day {
			return day, true
		}
	}
	return "", false
}

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ParseEmail checks the local@domain.tld shape and lowercases the address.
func ParseEmail(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if !emailRegex.MatchString(s) {
		return "", false
	}
	return strings.ToLower(s), true
}

// CleanCell removes common spreadsheet artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	}

	return strings.TrimSpace(s)
}

// FormatValue renders a canonical value for people: dates as 2006-01-02,
// timestamps as 2006-01-02 15:04:05 in local time, booleans as Yes/No,
// amounts with two decimals.
func FormatValue(t FieldType, v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case time.Time:
		if val.IsZero() {
			return ""
		}
		// Dates are wall-calendar values; drivers hand them back in UTC.
		if t == FieldDate {
			return val.Format(DateLayout)
		}
		return val.In(time.Local).Format(DateTimeLayout)
	case bool:
		if val {
			return "Yes"
		}
		return "No"
	case decimal.Decimal:
		return val.StringFixed(2)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case MembershipType:
		return val.String()
	case interface{ String() string }:
		return val.String()
	default:
		return ""
	}
}
