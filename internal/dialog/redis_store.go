package dialog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// putScript writes ARGV[1] only when the stored version is ARGV[2], or
// when nothing is stored and ARGV[2] is 0. ARGV[3] is the TTL in ms, 0 for
// none.
var putScript = goredis.NewScript(`
local raw = redis.call('GET', KEYS[1])
local want = tonumber(ARGV[2])
if raw then
  local cur = cjson.decode(raw)
  if (tonumber(cur.version) or 0) ~= want then return 0 end
elseif want ~= 0 then
  return 0
end
local ttl = tonumber(ARGV[3])
if ttl > 0 then
  redis.call('SET', KEYS[1], ARGV[1], 'PX', ttl)
else
  redis.call('SET', KEYS[1], ARGV[1])
end
return 1
`)

// takeScript deletes the key only when the stored session id and version
// match, so a duplicate terminal event from another replica cannot consume
// it twice.
var takeScript = goredis.NewScript(`
local raw = redis.call('GET', KEYS[1])
if not raw then return 0 end
local s = cjson.decode(raw)
if s.id ~= ARGV[1] then return 0 end
if (tonumber(s.version) or 0) ~= tonumber(ARGV[2]) then return 0 end
redis.call('DEL', KEYS[1])
return 1
`)

// RedisStore keeps sessions in Redis with the idle timeout as key TTL, so
// several bot replicas can share them.
type RedisStore struct {
	rdb    goredis.UniversalClient
	prefix string
	idle   time.Duration
}

// NewRedisStore wraps an existing client. Keys are "<prefix>session:<account>".
func NewRedisStore(rdb goredis.UniversalClient, prefix string, idle time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix, idle: idle}
}

// DialRedis connects and pings, failing fast on a bad address.
func DialRedis(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

func (r *RedisStore) key(accountID string) string {
	return r.prefix + "session:" + accountID
}

func (r *RedisStore) Get(ctx context.Context, accountID string) (*Session, error) {
	raw, err := r.rdb.Get(ctx, r.key(accountID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	return &s, nil
}

func (r *RedisStore) Put(ctx context.Context, s *Session) error {
	next := s.Clone()
	next.Version = s.Version + 1
	raw, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	n, err := putScript.Run(ctx, r.rdb, []string{r.key(s.AccountID)},
		raw, s.Version, r.idle.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	if n != 1 {
		return ErrStale
	}
	s.Version = next.Version
	return nil
}

func (r *RedisStore) Take(ctx context.Context, accountID, sessionID string, version int64) (bool, error) {
	n, err := takeScript.Run(ctx, r.rdb, []string{r.key(accountID)}, sessionID, version).Int()
	if err != nil {
		return false, fmt.Errorf("taking session: %w", err)
	}
	return n == 1, nil
}

func (r *RedisStore) Delete(ctx context.Context, accountID string) error {
	if err := r.rdb.Del(ctx, r.key(accountID)).Err(); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}
