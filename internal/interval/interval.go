// Package interval parses compact duration strings such as "4s", "15m",
// "2h", "1d" and combinations like "1h30m".
package interval

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// ErrFormat reports an interval string that does not match the accepted
// grammar.
var ErrFormat = errors.New("invalid time interval format")

// Components are optional but must appear in day, hour, minute, second
// order. The empty string matches and yields a zero duration.
var pattern = regexp.MustCompile(`^(?:(\d+)d)?(?:(\d+)h)?(?:(\d+)m)?(?:(\d+)s)?$`)

var units = [...]time.Duration{24 * time.Hour, time.Hour, time.Minute, time.Second}

// Parse converts a compact duration string into a time.Duration.
func Parse(text string) (time.Duration, error) {
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrFormat, text)
	}

	var d time.Duration
	for i, unit := range units {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.ParseInt(m[i+1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrFormat, text)
		}
		d += time.Duration(n) * unit
	}
	return d, nil
}
