package rules

import "time"

// AgeAt returns full years between birthdate and now, evaluated at call
// time. Year granularity: the birthday itself already counts.
func AgeAt(birthdate, now time.Time) int {
	if birthdate.IsZero() {
		return 0
	}

	b := birthdate.UTC()
	n := now.UTC()

	years := n.Year() - b.Year()
	if n.Month() < b.Month() || (n.Month() == b.Month() && n.Day() < b.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}
