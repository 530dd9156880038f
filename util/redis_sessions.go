package util

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fernanda-avila/MIndCare2025/config"
	"github.com/fernanda-avila/MIndCare2025/model"
	"github.com/redis/go-redis/v9"
)

// ErrSessionCacheMiss means the session is not cached (or the cache is off)
// and callers should fall back to the sessions table.
var ErrSessionCacheMiss = errors.New("session not cached")

func sessionKey(token string) string {
	return fmt.Sprintf("session:%s", token)
}

func userSetKey(userID uint) string {
	return fmt.Sprintf("user_sessions:%d", userID)
}

// CacheSession stores "userID:ROLE" under session:<token> and indexes the
// token in the per-user set so it can be revoked with the user's other sessions.
func CacheSession(ctx context.Context, token string, userID uint, role model.Role, ttl time.Duration) error {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return nil
	}
	val := fmt.Sprintf("%d:%s", userID, role)
	if err := rdb.Set(ctx, sessionKey(token), val, ttl).Err(); err != nil {
		return err
	}
	return AddSessionToUserSet(ctx, userID, token, ttl)
}

// LookupCachedSession resolves a token from the cache. Malformed values are
// reported as a miss so the caller re-reads the database.
func LookupCachedSession(ctx context.Context, token string) (uint, model.Role, error) {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return 0, "", ErrSessionCacheMiss
	}
	val, err := rdb.Get(ctx, sessionKey(token)).Result()
	if err == redis.Nil {
		return 0, "", ErrSessionCacheMiss
	}
	if err != nil {
		return 0, "", err
	}
	uidStr, roleStr, found := strings.Cut(val, ":")
	if !found {
		return 0, "", ErrSessionCacheMiss
	}
	uid, err := strconv.ParseUint(uidStr, 10, 64)
	if err != nil || uid == 0 {
		return 0, "", ErrSessionCacheMiss
	}
	role, err := model.ParseRole(roleStr)
	if err != nil {
		return 0, "", ErrSessionCacheMiss
	}
	return uint(uid), role, nil
}

// AddSessionToUserSet adds the session token to the per-user Redis set and
// extends the set's TTL to cover the newest session.
func AddSessionToUserSet(ctx context.Context, userID uint, token string, ttl time.Duration) error {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return nil
	}
	key := userSetKey(userID)
	if err := rdb.SAdd(ctx, key, token).Err(); err != nil {
		return err
	}
	return rdb.Expire(ctx, key, ttl).Err()
}

// removeSessionScript drops a token from the per-user set and deletes the
// set once it is empty.
const removeSessionScript = `
local removed = redis.call('SREM', KEYS[1], ARGV[1])
if removed > 0 then
	local count = redis.call('SCARD', KEYS[1])
	if count == 0 then
		redis.call('DEL', KEYS[1])
	end
end
return removed
`

// RemoveCachedSession deletes one session and drops its token from the
// per-user set, deleting the set when it becomes empty.
func RemoveCachedSession(ctx context.Context, userID uint, token string) error {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return nil
	}
	if err := rdb.Del(ctx, sessionKey(token)).Err(); err != nil {
		return err
	}
	return rdb.Eval(ctx, removeSessionScript, []string{userSetKey(userID)}, token).Err()
}

// InvalidateUserSessions deletes every cached session of the user. Used when
// a password or role changes, or the account is deleted.
func InvalidateUserSessions(ctx context.Context, userID uint) error {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return nil
	}
	key := userSetKey(userID)
	members, err := rdb.SMembers(ctx, key).Result()
	if err != nil && err != redis.Nil {
		return err
	}
	for _, tok := range members {
		_ = rdb.Del(ctx, sessionKey(tok)).Err()
	}
	return rdb.Del(ctx, key).Err()
}
