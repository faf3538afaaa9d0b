package utils

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// FormatDate renders a timestamp as a calendar date in UTC.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// FormatCents renders an amount of cents as a decimal currency string.
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// DayWindow returns the half-open 24h window (now-age-24h, now-age].
func DayWindow(now time.Time, age time.Duration) (after, notAfter time.Time) {
	notAfter = now.Add(-age)
	return notAfter.Add(-24 * time.Hour), notAfter
}
