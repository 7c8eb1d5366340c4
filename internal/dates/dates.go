// Package dates parses the loose date input admins type into the CLI and
// the Discord bot.
package dates

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/en"
)

var natural = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	return w
}()

// Parse accepts "now", a relative offset such as "+2h" or "+90m", any
// absolute date dateparse understands, or an English phrase like
// "tomorrow 18:00". Dates without a zone are read in loc. Blank input
// yields nil.
func Parse(s string, now time.Time, loc *time.Location) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if strings.EqualFold(s, "now") {
		return &now, nil
	}
	if strings.HasPrefix(s, "+") {
		d, err := time.ParseDuration(s[1:])
		if err != nil {
			return nil, fmt.Errorf("invalid offset %q: %w", s, err)
		}
		t := now.Add(d)
		return &t, nil
	}
	if loc == nil {
		loc = time.Local
	}
	t, err := dateparse.ParseIn(s, loc)
	if err == nil {
		return &t, nil
	}
	r, werr := natural.Parse(s, now.In(loc))
	if werr != nil || r == nil {
		return nil, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return &r.Time, nil
}
