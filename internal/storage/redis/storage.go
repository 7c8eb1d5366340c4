package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/dotareg/internal/model"
	"github.com/mcoot/dotareg/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
	keys   keyspace

	// pipe and ov are set on the transactional view handed to RunInTx
	// callbacks. Writes are queued on pipe and only sent on commit; reads
	// consult ov first so they see the queued writes.
	pipe redis.Pipeliner
	ov   *overlay
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	timeout := cfg.ConnectTimeout
	if timeout == 0 {
		timeout = DefaultConfig().ConnectTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return NewWithClient(client, cfg), nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
		keys:   cfg.keys(),
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// write runs fn on the open transaction, or on a fresh MULTI/EXEC pipeline
func (s *Storage) write(ctx context.Context, fn func(redis.Pipeliner) error) error {
	if s.pipe != nil {
		return fn(s.pipe)
	}
	_, err := s.client.TxPipelined(ctx, fn)
	return err
}

// get reads a string key, returning redis.Nil if it is unset
func (s *Storage) get(ctx context.Context, key string) (string, error) {
	if s.ov != nil {
		if v, exists, known := s.ov.lookup(key); known {
			if !exists {
				return "", redis.Nil
			}
			return v, nil
		}
	}
	return s.client.Get(ctx, key).Result()
}

func (s *Storage) smembers(ctx context.Context, key string) ([]string, error) {
	members, err := s.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	if s.ov != nil {
		members = s.ov.members(key, members)
	}
	return members, nil
}

func getJSON[T any](ctx context.Context, s *Storage, key string, notFound error) (*T, error) {
	data, err := s.get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, notFound
		}
		return nil, err
	}

	var v T
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// indexedID reads an index key, returning "" if it is unset
func (s *Storage) indexedID(ctx context.Context, key string) (string, error) {
	id, err := s.get(ctx, key)
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return id, err
}

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	if !player.List.Valid() {
		return model.ErrUnknownList
	}

	for _, key := range []string{
		s.keys.playerName(player.List, player.Name),
		s.keys.playerDota2ID(player.List, player.Dota2ID),
	} {
		owner, err := s.indexedID(ctx, key)
		if err != nil {
			return err
		}
		if owner != "" && owner != string(player.ID) {
			return model.ErrDuplicatePlayer
		}
	}

	existing, err := s.GetPlayer(ctx, player.List, player.ID)
	if err != nil && !errors.Is(err, model.ErrPlayerNotFound) {
		return err
	}

	data, err := json.Marshal(player)
	if err != nil {
		return err
	}

	return s.write(ctx, func(pipe redis.Pipeliner) error {
		if existing != nil {
			pipe.Del(ctx,
				s.keys.playerName(existing.List, existing.Name),
				s.keys.playerDota2ID(existing.List, existing.Dota2ID),
			)
		}
		pipe.Set(ctx, s.keys.player(player.List, player.ID), data, 0)
		pipe.SAdd(ctx, s.keys.players(player.List), string(player.ID))
		pipe.Set(ctx, s.keys.playerName(player.List, player.Name), string(player.ID), 0)
		pipe.Set(ctx, s.keys.playerDota2ID(player.List, player.Dota2ID), string(player.ID), 0)
		return nil
	})
}

func (s *Storage) GetPlayer(ctx context.Context, list model.PlayerList, id model.PlayerID) (*model.Player, error) {
	return getJSON[model.Player](ctx, s, s.keys.player(list, id), model.ErrPlayerNotFound)
}

// getPlayers fetches players by id, ignoring ids whose record is gone
func (s *Storage) getPlayers(ctx context.Context, list model.PlayerList, ids []string) ([]*model.Player, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.keys.player(list, model.PlayerID(id))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	players := make([]*model.Player, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if s.ov != nil {
			if pending, exists, known := s.ov.lookup(keys[i]); known {
				raw, ok = pending, exists
			}
		}
		if !ok {
			continue
		}
		var p model.Player
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, err
		}
		players = append(players, &p)
	}
	return players, nil
}

func (s *Storage) ListPlayers(ctx context.Context, list model.PlayerList, filter model.PlayerFilter) ([]*model.Player, error) {
	if !list.Valid() {
		return nil, model.ErrUnknownList
	}

	ids, err := s.smembers(ctx, s.keys.players(list))
	if err != nil {
		return nil, err
	}

	all, err := s.getPlayers(ctx, list, ids)
	if err != nil {
		return nil, err
	}

	result := make([]*model.Player, 0, len(all))
	for _, p := range all {
		if filter.Matches(p) {
			result = append(result, p)
		}
	}
	storage.SortPlayers(result)
	return result, nil
}

func (s *Storage) FindPlayersByIdentity(ctx context.Context, list model.PlayerList, name, dota2ID string) ([]*model.Player, error) {
	var ids []string
	for _, key := range []string{s.keys.playerName(list, name), s.keys.playerDota2ID(list, dota2ID)} {
		id, err := s.indexedID(ctx, key)
		if err != nil {
			return nil, err
		}
		if id != "" && (len(ids) == 0 || ids[0] != id) {
			ids = append(ids, id)
		}
	}

	players, err := s.getPlayers(ctx, list, ids)
	if err != nil {
		return nil, err
	}
	storage.SortPlayers(players)
	return players, nil
}

func (s *Storage) DeletePlayer(ctx context.Context, list model.PlayerList, id model.PlayerID) error {
	existing, err := s.GetPlayer(ctx, list, id)
	if err != nil {
		return err
	}

	return s.write(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx,
			s.keys.player(list, id),
			s.keys.playerName(list, existing.Name),
			s.keys.playerDota2ID(list, existing.Dota2ID),
		)
		pipe.SRem(ctx, s.keys.players(list), string(id))
		return nil
	})
}

func (s *Storage) DeleteAllPlayers(ctx context.Context, list model.PlayerList) (int, error) {
	if !list.Valid() {
		return 0, model.ErrUnknownList
	}

	ids, err := s.smembers(ctx, s.keys.players(list))
	if err != nil {
		return 0, err
	}
	players, err := s.getPlayers(ctx, list, ids)
	if err != nil {
		return 0, err
	}

	keys := []string{s.keys.players(list)}
	for _, p := range players {
		keys = append(keys,
			s.keys.player(list, p.ID),
			s.keys.playerName(list, p.Name),
			s.keys.playerDota2ID(list, p.Dota2ID),
		)
	}

	err = s.write(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(players), nil
}

func (s *Storage) CountPlayersInSession(ctx context.Context, id model.RegistrationSessionID) (int, error) {
	players, err := s.ListPlayers(ctx, model.ListRegistrations, model.PlayerFilter{RegistrationSessionID: id})
	if err != nil {
		return 0, err
	}
	return len(players), nil
}

// Registration session operations

func (s *Storage) SaveRegistrationSession(ctx context.Context, session *model.RegistrationSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	return s.write(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.keys.registrationSession(session.ID), data, 0)
		pipe.SAdd(ctx, s.keys.registrationSessions(), string(session.ID))
		// the pointer is only moved, never cleared; GetActive re-checks IsActive
		if session.IsActive {
			pipe.Set(ctx, s.keys.activeRegistration(), string(session.ID), 0)
		}
		return nil
	})
}

func (s *Storage) GetRegistrationSession(ctx context.Context, id model.RegistrationSessionID) (*model.RegistrationSession, error) {
	return getJSON[model.RegistrationSession](ctx, s, s.keys.registrationSession(id), model.ErrRegistrationSessionNotFound)
}

func (s *Storage) ListRegistrationSessions(ctx context.Context) ([]*model.RegistrationSession, error) {
	ids, err := s.smembers(ctx, s.keys.registrationSessions())
	if err != nil {
		return nil, err
	}

	sessions := make([]*model.RegistrationSession, 0, len(ids))
	for _, id := range ids {
		session, err := s.GetRegistrationSession(ctx, model.RegistrationSessionID(id))
		if err != nil {
			if errors.Is(err, model.ErrRegistrationSessionNotFound) {
				continue
			}
			return nil, err
		}
		sessions = append(sessions, session)
	}
	storage.SortRegistrationSessions(sessions)
	return sessions, nil
}

func (s *Storage) GetActiveRegistrationSession(ctx context.Context) (*model.RegistrationSession, error) {
	id, err := s.indexedID(ctx, s.keys.activeRegistration())
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, model.ErrNoActiveRegistration
	}

	session, err := s.GetRegistrationSession(ctx, model.RegistrationSessionID(id))
	if err != nil {
		if errors.Is(err, model.ErrRegistrationSessionNotFound) {
			return nil, model.ErrNoActiveRegistration
		}
		return nil, err
	}
	if !session.IsActive {
		return nil, model.ErrNoActiveRegistration
	}
	return session, nil
}

// Admin user operations

func (s *Storage) SaveAdminUser(ctx context.Context, user *model.AdminUser) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return s.write(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.keys.adminUser(user.Username), data, 0)
		return nil
	})
}

func (s *Storage) GetAdminUserByUsername(ctx context.Context, username string) (*model.AdminUser, error) {
	return getJSON[model.AdminUser](ctx, s, s.keys.adminUser(username), model.ErrAdminUserNotFound)
}

// Admin session operations

func (s *Storage) SaveAdminSession(ctx context.Context, session *model.AdminSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	// Redis expiry is a backstop; validity is always judged by ExpiresAt
	ttl := session.ExpiresAt.Sub(session.CreatedAt)
	if ttl < 0 {
		ttl = 0
	}

	return s.write(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.keys.adminSession(session.ID), data, ttl)
		pipe.SAdd(ctx, s.keys.adminSessions(), session.ID)
		return nil
	})
}

func (s *Storage) GetAdminSession(ctx context.Context, id string) (*model.AdminSession, error) {
	return getJSON[model.AdminSession](ctx, s, s.keys.adminSession(id), model.ErrAdminSessionNotFound)
}

func (s *Storage) DeleteAdminSession(ctx context.Context, id string) error {
	return s.write(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.keys.adminSession(id))
		pipe.SRem(ctx, s.keys.adminSessions(), id)
		return nil
	})
}

func (s *Storage) DeleteExpiredAdminSessions(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.smembers(ctx, s.keys.adminSessions())
	if err != nil {
		return 0, err
	}

	var stale []string
	removed := 0
	for _, id := range ids {
		session, err := s.GetAdminSession(ctx, id)
		switch {
		case errors.Is(err, model.ErrAdminSessionNotFound):
			// already evicted by its TTL
			stale = append(stale, id)
		case err != nil:
			return 0, err
		case !session.ValidAt(now):
			stale = append(stale, id)
			removed++
		}
	}

	if len(stale) == 0 {
		return 0, nil
	}

	err = s.write(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range stale {
			pipe.Del(ctx, s.keys.adminSession(id))
			pipe.SRem(ctx, s.keys.adminSessions(), id)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// RunInTx queues every write made through tx on a single MULTI/EXEC
// pipeline, committed only if fn succeeds. Reads through tx see the
// queued writes. Nested calls join the outer transaction.
func (s *Storage) RunInTx(ctx context.Context, fn storage.TxFunc) error {
	if s.pipe != nil {
		return fn(ctx, s)
	}

	pipe := s.client.TxPipeline()
	ov := newOverlay()
	tx := &Storage{client: s.client, cfg: s.cfg, keys: s.keys, pipe: overlayPipe{Pipeliner: pipe, ov: ov}, ov: ov}

	if err := fn(ctx, tx); err != nil {
		pipe.Discard()
		return err
	}
	if pipe.Len() == 0 {
		return nil
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
