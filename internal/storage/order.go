package storage

import (
	"sort"

	"github.com/mcoot/dotareg/internal/model"
)

// SortPlayers orders players oldest first, breaking ties by id
func SortPlayers(players []*model.Player) {
	sort.Slice(players, func(i, j int) bool {
		if !players[i].CreatedAt.Equal(players[j].CreatedAt) {
			return players[i].CreatedAt.Before(players[j].CreatedAt)
		}
		return players[i].ID < players[j].ID
	})
}

// SortRegistrationSessions orders sessions newest first, breaking ties by id
func SortRegistrationSessions(sessions []*model.RegistrationSession) {
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
		}
		return sessions[i].ID < sessions[j].ID
	})
}
