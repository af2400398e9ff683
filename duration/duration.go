// Package duration parses human-written durations in both Go form ("1.5s",
// "200ms") and ISO-8601 period form ("PT1.5S", "PT2M"), for configuration
// that feeds timeouts and sleeps.
package duration

import (
	"fmt"
	"time"

	"github.com/rickb777/period"

	"github.com/LuxXx/effect"
)

// Parse accepts a Go duration string or an ISO-8601 period. Periods with
// calendar components (years, months, weeks, days) convert using their
// average lengths.
func Parse(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	p, err := period.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("duration %q is neither a Go duration nor an ISO-8601 period: %w", s, err)
	}
	d, _ := p.Duration()
	return d, nil
}

// MustParse is Parse panicking on malformed input. Use for literals.
func MustParse(s string) time.Duration {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// SleepFor sleeps for the parsed duration; malformed input is an expected
// failure.
func SleepFor(s string) effect.Effect[effect.Void] {
	return effect.Suspend(func() effect.Effect[effect.Void] {
		d, err := Parse(s)
		if err != nil {
			return effect.Fail[effect.Void](err)
		}
		return effect.Sleep(d)
	})
}
