package timeparsing

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// compactRe matches [+-]?<n><unit> with unit one of h, d, w, m (months), y.
var compactRe = regexp.MustCompile(`^([+-]?)(\d+)([hdwmy])$`)

// ParseCompactDuration resolves a compact offset such as "+6h", "-1d",
// "2w" or "3m" against now. A missing sign means the future. Calendar
// units use AddDate, so "+1m" from January 31 overflows into March the
// way time.AddDate does.
func ParseCompactDuration(s string, now time.Time) (time.Time, error) {
	m := compactRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, fmt.Errorf("not a compact duration: %q", s)
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid duration amount %q: %w", m[2], err)
	}
	if m[1] == "-" {
		n = -n
	}

	switch m[3] {
	case "h":
		return now.Add(time.Duration(n) * time.Hour), nil
	case "d":
		return now.AddDate(0, 0, n), nil
	case "w":
		return now.AddDate(0, 0, 7*n), nil
	case "m":
		return now.AddDate(0, n, 0), nil
	default:
		return now.AddDate(n, 0, 0), nil
	}
}

// IsCompactDuration reports whether s uses the compact offset syntax.
func IsCompactDuration(s string) bool {
	return compactRe.MatchString(s)
}
