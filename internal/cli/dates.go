package cli

import (
	"time"

	"github.com/mcoot/dotareg/internal/dates"
	"github.com/mcoot/dotareg/internal/dependencies/clock"
)

// wallClock is swapped in tests
var wallClock = clock.New()

// parseWhen reads a --start/--expiry value in the local zone
func parseWhen(s string) (*time.Time, error) {
	return dates.Parse(s, wallClock.Now(), time.Local)
}
