package profile

import (
	"fmt"
	"strconv"
	"time"
)

// durationUnits maps the single-letter suffixes profiles may use. The day
// unit is the one time.ParseDuration lacks.
var durationUnits = map[byte]time.Duration{
	's': time.Second,
	'm': time.Minute,
	'h': time.Hour,
	'd': 24 * time.Hour,
}

// ParseDuration parses profile duration strings: a non-negative integer
// followed by exactly one of s, m, h or d. Composites like "1h30m" are
// rejected.
func ParseDuration(s string) (time.Duration, error) {
	if len(s) < 2 {
		return 0, fmt.Errorf("duration %q: want <number><s|m|h|d>", s)
	}

	unit, ok := durationUnits[s[len(s)-1]]
	if !ok {
		return 0, fmt.Errorf("duration %q: unknown unit %q", s, s[len(s)-1:])
	}

	n, err := strconv.ParseUint(s[:len(s)-1], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("duration %q: want <number><s|m|h|d>", s)
	}

	return time.Duration(n) * unit, nil
}
