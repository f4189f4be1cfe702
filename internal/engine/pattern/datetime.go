package pattern

import "strings"

// DateTimeName is the registry name of the built-in date-time matcher.
const DateTimeName = "datetime"

// The check is syntactic: a month of 19 or a day of 39 passes. Whether a
// value is a real calendar date is left to the database when the column is
// retyped.
const dateTimeERE = `^[0-9]{2,4}-[0-1][0-9]-[0-3][0-9]( [0-2][0-9]:[0-5][0-9]:[0-5][0-9])?$`

var dateTime = mustRegexMatcher(DateTimeName, "datetime", Shape{
	ERE:   dateTimeERE,
	Globs: dateTimeGlobs(),
})

// DateTime matches YYYY-MM-DD with an optional " HH:MM:SS" suffix, with a
// two to four digit year.
func DateTime() Matcher {
	return dateTime
}

// MatchesDateTime reports whether text has the date-time shape.
func MatchesDateTime(text string) bool {
	return dateTime.Match(text)
}

func dateTimeGlobs() []string {
	const (
		digit = "[0-9]"
		date  = "-[0-1][0-9]-[0-3][0-9]"
		clock = " [0-2][0-9]:[0-5][0-9]:[0-5][0-9]"
	)
	globs := make([]string, 0, 6)
	for digits := 2; digits <= 4; digits++ {
		year := strings.Repeat(digit, digits)
		globs = append(globs, year+date, year+date+clock)
	}
	return globs
}

func mustRegexMatcher(name, target string, shape Shape) Matcher {
	m, err := NewRegexMatcher(name, target, shape)
	if err != nil {
		panic(err)
	}
	return m
}
