package cells

import (
	"time"
)

const secondsPerDay = 24 * 60 * 60

var (
	// excelEpoch is day zero of the 1900 date system once the phantom
	// 1900-02-29 is accounted for.
	excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)
	// leapBugCutoff is the first date whose serial includes the phantom day.
	leapBugCutoff = time.Date(1900, time.March, 1, 0, 0, 0, 0, time.UTC)
)

// DateSerial returns the spreadsheet date serial (1900 date system) for the
// wall-clock reading of t. The time zone offset is not applied: a value read
// as 2024-05-01 10:00 in any location becomes 2024-05-01 10:00 in the sheet.
func DateSerial(t time.Time) float64 {
	wall := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	serial := wall.Sub(excelEpoch).Seconds() / secondsPerDay
	if wall.Before(leapBugCutoff) {
		serial--
	}
	return serial
}
