package testutil

import (
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/mcoot/dotareg/internal/model"
)

// PlayerGenerator produces valid, mutually distinct player fixtures
type PlayerGenerator struct {
	faker *gofakeit.Faker
	n     int
}

// NewPlayerGenerator creates a generator; pass a seed for reproducible data
func NewPlayerGenerator(seed ...int64) *PlayerGenerator {
	s := time.Now().UnixNano()
	if len(seed) > 0 {
		s = seed[0]
	}
	return &PlayerGenerator{faker: gofakeit.New(uint64(s))}
}

// Details returns a valid player that shares neither name nor id with earlier ones
func (g *PlayerGenerator) Details() model.PlayerDetails {
	g.n++
	return model.PlayerDetails{
		Name:    fmt.Sprintf("%s %d", g.faker.FirstName(), g.n),
		Dota2ID: fmt.Sprintf("%s%04d", g.faker.Numerify("######"), g.n),
		MMR:     g.faker.Number(0, 12000),
		Notes:   g.faker.Sentence(5),
	}
}

// Batch returns n players
func (g *PlayerGenerator) Batch(n int) []model.PlayerDetails {
	out := make([]model.PlayerDetails, n)
	for i := range out {
		out[i] = g.Details()
	}
	return out
}

// CSV renders players as import text. Notes are quoted.
func CSV(players []model.PlayerDetails) string {
	lines := make([]string, len(players))
	for i, p := range players {
		lines[i] = fmt.Sprintf("%s,%s,%d,\"%s\"", p.Name, p.Dota2ID, p.MMR, strings.ReplaceAll(p.Notes, `"`, ""))
	}
	return strings.Join(lines, "\n")
}
