// Package validator checks the shape of a single player record.
package validator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/mcoot/dotareg/internal/model"
)

// Rule names, in evaluation order
const (
	RuleName    = "name"
	RuleDota2ID = "dota2id"
	RuleMMR     = "mmr"
	RuleNotes   = "notes"
)

// Field limits
const (
	MinNameLength  = 2
	MaxNameLength  = 50
	MinMMR         = 0
	MaxMMR         = 20000
	MaxNotesLength = 500
)

var dota2IDPattern = regexp.MustCompile(`^\d{6,20}$`)

// Failure is a single violated rule
type Failure struct {
	Position int
	Rule     string
	// Value is the raw, untrimmed input
	Value   string
	Message string
}

func (f Failure) String() string {
	return fmt.Sprintf("position %d: %s", f.Position, f.Message)
}

// Result is the verdict for one record
type Result struct {
	Valid bool
	// Player holds the normalized fields when Valid
	Player model.PlayerDetails
	// Reason is the first violated rule
	Reason *Failure
	// Failures lists every violated rule in evaluation order
	Failures []Failure
}

// Message joins every failure message into one line
func (r Result) Message() string {
	msgs := make([]string, len(r.Failures))
	for i, f := range r.Failures {
		msgs[i] = f.Message
	}
	return strings.Join(msgs, "; ")
}

// Validate checks a raw record. position is 1-based and only used for diagnostics.
func Validate(name, dota2ID, mmr, notes string, position int) Result {
	var failures []Failure
	fail := func(rule, value, format string, args ...any) {
		failures = append(failures, Failure{
			Position: position,
			Rule:     rule,
			Value:    value,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	trimmedName := strings.TrimSpace(name)
	if n := utf8.RuneCountInString(trimmedName); n < MinNameLength || n > MaxNameLength {
		fail(RuleName, name, "name %q must be between %d and %d characters", name, MinNameLength, MaxNameLength)
	}

	trimmedID := strings.TrimSpace(dota2ID)
	if !dota2IDPattern.MatchString(trimmedID) {
		fail(RuleDota2ID, dota2ID, "dota2id %q must be 6 to 20 digits", dota2ID)
	}

	parsedMMR, err := strconv.Atoi(strings.TrimSpace(mmr))
	switch {
	case err != nil:
		fail(RuleMMR, mmr, "mmr %q is not a whole number", mmr)
	case parsedMMR < MinMMR || parsedMMR > MaxMMR:
		fail(RuleMMR, mmr, "mmr %q must be between %d and %d", mmr, MinMMR, MaxMMR)
	}

	trimmedNotes := strings.TrimSpace(notes)
	if utf8.RuneCountInString(trimmedNotes) > MaxNotesLength {
		fail(RuleNotes, notes, "notes must be at most %d characters (got %d)", MaxNotesLength, utf8.RuneCountInString(trimmedNotes))
	}

	if len(failures) > 0 {
		return Result{Reason: &failures[0], Failures: failures}
	}
	return Result{
		Valid: true,
		Player: model.PlayerDetails{
			Name:    trimmedName,
			Dota2ID: trimmedID,
			MMR:     parsedMMR,
			Notes:   trimmedNotes,
		},
	}
}
