package age_group

import (
	"fmt"
	"time"
)

// Ceilings are the academy's age-group upper bounds, youngest first.
var Ceilings = []int{12, 14, 16, 19, 23}

const Senior = "Senior"

// Labels lists every possible result of Classify.
func Labels() []string {
	out := make([]string, 0, len(Ceilings)+1)
	for _, c := range Ceilings {
		out = append(out, label(c))
	}
	return append(out, Senior)
}

// SeasonYear is the current year from September onward, otherwise the previous year.
func SeasonYear(now time.Time) int {
	if now.Month() >= time.September {
		return now.Year()
	}
	return now.Year() - 1
}

// Cutoff is 1 September of seasonYear-ceiling; a player born on or after it is eligible.
func Cutoff(seasonYear, ceiling int) time.Time {
	return time.Date(seasonYear-ceiling, time.September, 1, 0, 0, 0, 0, time.UTC)
}

// Classify returns the first eligible group (U-12 .. U-23) or Senior.
func Classify(dob, now time.Time) string {
	day := time.Date(dob.Year(), dob.Month(), dob.Day(), 0, 0, 0, 0, time.UTC)
	season := SeasonYear(now)
	for _, c := range Ceilings {
		if !day.Before(Cutoff(season, c)) {
			return label(c)
		}
	}
	return Senior
}

// ClassifyString parses a YYYY-MM-DD date of birth (an RFC 3339 timestamp is also accepted).
func ClassifyString(dob string, now time.Time) (string, error) {
	t, err := time.Parse("2006-01-02", dob)
	if err != nil {
		t, err = time.Parse(time.RFC3339, dob)
		if err != nil {
			return "", fmt.Errorf("invalid date of birth %q", dob)
		}
	}
	return Classify(t, now), nil
}

func label(ceiling int) string {
	return fmt.Sprintf("U-%d", ceiling)
}
