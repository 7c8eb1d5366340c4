package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// overlay remembers the writes queued in an open transaction so reads made
// through the transactional view see them before EXEC.
type overlay struct {
	// nil means deleted
	values map[string]*string
	sets   map[string]*setDelta
}

type setDelta struct {
	cleared bool
	added   map[string]struct{}
	removed map[string]struct{}
}

func newOverlay() *overlay {
	return &overlay{
		values: make(map[string]*string),
		sets:   make(map[string]*setDelta),
	}
}

func (o *overlay) set(key, value string) {
	o.values[key] = &value
}

func (o *overlay) del(keys ...string) {
	for _, key := range keys {
		o.values[key] = nil
		o.sets[key] = &setDelta{cleared: true}
	}
}

func (o *overlay) delta(key string) *setDelta {
	d, ok := o.sets[key]
	if !ok {
		d = &setDelta{}
		o.sets[key] = d
	}
	return d
}

func (o *overlay) sadd(key string, members ...string) {
	d := o.delta(key)
	for _, m := range members {
		if d.added == nil {
			d.added = make(map[string]struct{})
		}
		d.added[m] = struct{}{}
		delete(d.removed, m)
	}
}

func (o *overlay) srem(key string, members ...string) {
	d := o.delta(key)
	for _, m := range members {
		if d.removed == nil {
			d.removed = make(map[string]struct{})
		}
		d.removed[m] = struct{}{}
		delete(d.added, m)
	}
}

// lookup reports the pending value of key; known is false when the
// transaction has not touched it
func (o *overlay) lookup(key string) (value string, exists, known bool) {
	v, ok := o.values[key]
	if !ok {
		return "", false, false
	}
	if v == nil {
		return "", false, true
	}
	return *v, true, true
}

// members applies the pending changes of key to its committed members
func (o *overlay) members(key string, committed []string) []string {
	d, ok := o.sets[key]
	if !ok {
		return committed
	}

	var result []string
	if !d.cleared {
		for _, m := range committed {
			if _, gone := d.removed[m]; !gone {
				result = append(result, m)
			}
		}
	}
	for m := range d.added {
		if !contains(result, m) {
			result = append(result, m)
		}
	}
	return result
}

func contains(ms []string, m string) bool {
	for _, x := range ms {
		if x == m {
			return true
		}
	}
	return false
}

// overlayPipe queues commands on the transaction pipeline and records the
// ones storage reads back.
type overlayPipe struct {
	redis.Pipeliner
	ov *overlay
}

func (p overlayPipe) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	p.ov.set(key, asString(value))
	return p.Pipeliner.Set(ctx, key, value, expiration)
}

func (p overlayPipe) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	p.ov.del(keys...)
	return p.Pipeliner.Del(ctx, keys...)
}

func (p overlayPipe) SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd {
	p.ov.sadd(key, asStrings(members)...)
	return p.Pipeliner.SAdd(ctx, key, members...)
}

func (p overlayPipe) SRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd {
	p.ov.srem(key, asStrings(members)...)
	return p.Pipeliner.SRem(ctx, key, members...)
}

func asString(v interface{}) string {
	switch v := v.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

func asStrings(vs []interface{}) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = asString(v)
	}
	return out
}
