package util

import (
	"strconv"
	"strings"
	"time"
)

// FormatDuration renders d in whole hours, minutes and seconds, e.g. "1 hour, 2 minutes, 3 seconds".
//
// Units that are zero are left out. Anything below one second reads "0 seconds".
func FormatDuration(d time.Duration) string {
	d = d.Truncate(time.Second)
	if d <= 0 {
		return "0 seconds"
	}

	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second

	parts := make([]string, 0, 3)
	parts = appendUnit(parts, int64(hours), "hour")
	parts = appendUnit(parts, int64(minutes), "minute")
	parts = appendUnit(parts, int64(seconds), "second")

	return strings.Join(parts, ", ")
}

// appendUnit adds "n unit(s)" to parts unless n is zero.
func appendUnit(parts []string, n int64, unit string) []string {
	switch n {
	case 0:
		return parts
	case 1:
		return append(parts, "1 "+unit)
	default:
		return append(parts, strconv.FormatInt(n, 10)+" "+unit+"s")
	}
}
