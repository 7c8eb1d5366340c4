package redis

import (
	"fmt"

	"github.com/mcoot/dotareg/internal/model"
)

// keyspace builds every key under one prefix, so several deployments can
// share a Redis database
type keyspace string

// player is a Player's JSON record
func (k keyspace) player(list model.PlayerList, id model.PlayerID) string {
	return fmt.Sprintf("%s:player:%s:%s", k, list, id)
}

// players is the SET of player ids in a list
func (k keyspace) players(list model.PlayerList) string {
	return fmt.Sprintf("%s:idx:players:%s", k, list)
}

// playerName maps a normalised name to a player id
func (k keyspace) playerName(list model.PlayerList, name string) string {
	return fmt.Sprintf("%s:idx:player_name:%s:%s", k, list, model.NameKey(name))
}

// playerDota2ID maps a Dota 2 id to a player id
func (k keyspace) playerDota2ID(list model.PlayerList, dota2ID string) string {
	return fmt.Sprintf("%s:idx:player_dota2id:%s:%s", k, list, dota2ID)
}

func (k keyspace) registrationSession(id model.RegistrationSessionID) string {
	return fmt.Sprintf("%s:registration_session:%s", k, id)
}

func (k keyspace) registrationSessions() string {
	return fmt.Sprintf("%s:idx:registration_sessions", k)
}

// activeRegistration holds the id of the active registration session
func (k keyspace) activeRegistration() string {
	return fmt.Sprintf("%s:active_registration_session", k)
}

func (k keyspace) adminUser(username string) string {
	return fmt.Sprintf("%s:admin_user:%s", k, username)
}

// adminSession expires with the session it holds
func (k keyspace) adminSession(id string) string {
	return fmt.Sprintf("%s:admin_session:%s", k, id)
}

func (k keyspace) adminSessions() string {
	return fmt.Sprintf("%s:idx:admin_sessions", k)
}
