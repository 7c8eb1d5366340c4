package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mcoot/dotareg/internal/model"
	"github.com/mcoot/dotareg/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu   sync.RWMutex
	data *state
}

type state struct {
	players       map[model.PlayerList]map[model.PlayerID]*model.Player
	sessions      map[model.RegistrationSessionID]*model.RegistrationSession
	adminUsers    map[string]*model.AdminUser
	adminSessions map[string]*model.AdminSession
}

func newState() *state {
	return &state{
		players: map[model.PlayerList]map[model.PlayerID]*model.Player{
			model.ListRegistrations: {},
			model.ListMasterlist:    {},
		},
		sessions:      make(map[model.RegistrationSessionID]*model.RegistrationSession),
		adminUsers:    make(map[string]*model.AdminUser),
		adminSessions: make(map[string]*model.AdminSession),
	}
}

// clone deep-copies the state so a transaction can be discarded
func (st *state) clone() *state {
	c := newState()
	for list, players := range st.players {
		m := make(map[model.PlayerID]*model.Player, len(players))
		for id, p := range players {
			cp := *p
			m[id] = &cp
		}
		c.players[list] = m
	}
	for id, sess := range st.sessions {
		c.sessions[id] = copySession(sess)
	}
	for k, u := range st.adminUsers {
		cp := *u
		c.adminUsers[k] = &cp
	}
	for k, s := range st.adminSessions {
		cp := *s
		c.adminSessions[k] = &cp
	}
	return c
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{data: newState()}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	players, ok := s.data.players[player.List]
	if !ok {
		return model.ErrUnknownList
	}
	for id, existing := range players {
		if id != player.ID && existing.SameIdentity(player.Name, player.Dota2ID) {
			return model.ErrDuplicatePlayer
		}
	}
	cp := *player
	players[player.ID] = &cp
	return nil
}

func (s *Storage) GetPlayer(ctx context.Context, list model.PlayerList, id model.PlayerID) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	player, ok := s.data.players[list][id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	cp := *player
	return &cp, nil
}

func (s *Storage) ListPlayers(ctx context.Context, list model.PlayerList, filter model.PlayerFilter) ([]*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	players, ok := s.data.players[list]
	if !ok {
		return nil, model.ErrUnknownList
	}
	result := make([]*model.Player, 0, len(players))
	for _, p := range players {
		if filter.Matches(p) {
			cp := *p
			result = append(result, &cp)
		}
	}
	storage.SortPlayers(result)
	return result, nil
}

func (s *Storage) FindPlayersByIdentity(ctx context.Context, list model.PlayerList, name, dota2ID string) ([]*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*model.Player
	for _, p := range s.data.players[list] {
		if p.SameIdentity(name, dota2ID) {
			cp := *p
			result = append(result, &cp)
		}
	}
	storage.SortPlayers(result)
	return result, nil
}

func (s *Storage) DeletePlayer(ctx context.Context, list model.PlayerList, id model.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.players[list][id]; !ok {
		return model.ErrPlayerNotFound
	}
	delete(s.data.players[list], id)
	return nil
}

func (s *Storage) DeleteAllPlayers(ctx context.Context, list model.PlayerList) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	players, ok := s.data.players[list]
	if !ok {
		return 0, model.ErrUnknownList
	}
	n := len(players)
	s.data.players[list] = make(map[model.PlayerID]*model.Player)
	return n, nil
}

func (s *Storage) CountPlayersInSession(ctx context.Context, id model.RegistrationSessionID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, p := range s.data.players[model.ListRegistrations] {
		if p.RegistrationSessionID == id {
			count++
		}
	}
	return count, nil
}

// Registration session operations

func (s *Storage) SaveRegistrationSession(ctx context.Context, session *model.RegistrationSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.sessions[session.ID] = copySession(session)
	return nil
}

func (s *Storage) GetRegistrationSession(ctx context.Context, id model.RegistrationSessionID) (*model.RegistrationSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.data.sessions[id]
	if !ok {
		return nil, model.ErrRegistrationSessionNotFound
	}
	return copySession(session), nil
}

func (s *Storage) ListRegistrationSessions(ctx context.Context) ([]*model.RegistrationSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*model.RegistrationSession, 0, len(s.data.sessions))
	for _, sess := range s.data.sessions {
		result = append(result, copySession(sess))
	}
	storage.SortRegistrationSessions(result)
	return result, nil
}

func (s *Storage) GetActiveRegistrationSession(ctx context.Context) (*model.RegistrationSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sess := range s.data.sessions {
		if sess.IsActive {
			return copySession(sess), nil
		}
	}
	return nil, model.ErrNoActiveRegistration
}

// Admin user operations

func (s *Storage) SaveAdminUser(ctx context.Context, user *model.AdminUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *user
	s.data.adminUsers[user.Username] = &cp
	return nil
}

func (s *Storage) GetAdminUserByUsername(ctx context.Context, username string) (*model.AdminUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.data.adminUsers[username]
	if !ok {
		return nil, model.ErrAdminUserNotFound
	}
	cp := *user
	return &cp, nil
}

// Admin session operations

func (s *Storage) SaveAdminSession(ctx context.Context, session *model.AdminSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *session
	s.data.adminSessions[session.ID] = &cp
	return nil
}

func (s *Storage) GetAdminSession(ctx context.Context, id string) (*model.AdminSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.data.adminSessions[id]
	if !ok {
		return nil, model.ErrAdminSessionNotFound
	}
	cp := *session
	return &cp, nil
}

func (s *Storage) DeleteAdminSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data.adminSessions, id)
	return nil
}

func (s *Storage) DeleteExpiredAdminSessions(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, session := range s.data.adminSessions {
		if !session.ValidAt(now) {
			delete(s.data.adminSessions, id)
			removed++
		}
	}
	return removed, nil
}

// RunInTx runs fn against a copy of the data and swaps it in if fn succeeds.
// The store is locked for the duration, so fn must only use tx.
func (s *Storage) RunInTx(ctx context.Context, fn storage.TxFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Storage{data: s.data.clone()}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	s.data = tx.data
	return nil
}

func copySession(sess *model.RegistrationSession) *model.RegistrationSession {
	cp := *sess
	cp.StartTime = copyTime(sess.StartTime)
	cp.Expiry = copyTime(sess.Expiry)
	cp.ClosedAt = copyTime(sess.ClosedAt)
	if sess.MaxPlayers != nil {
		v := *sess.MaxPlayers
		cp.MaxPlayers = &v
	}
	return &cp
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
