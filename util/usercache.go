package util

import (
	"strconv"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"
	"gorm.io/gorm"
)

var (
	userEmailCache *cache.Cache
	userCacheMu    sync.RWMutex
)

// InitUserEmailCache enables the userID -> email cache used to enrich
// security log lines. A non-positive ttl uses ten minutes.
func InitUserEmailCache(ttl time.Duration) {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	userCacheMu.Lock()
	defer userCacheMu.Unlock()
	userEmailCache = cache.New(ttl, 2*ttl)
}

func currentUserCache() *cache.Cache {
	userCacheMu.RLock()
	defer userCacheMu.RUnlock()
	return userEmailCache
}

func userCacheKey(userID uint) string {
	return strconv.FormatUint(uint64(userID), 10)
}

// UserEmailCacheGet returns the cached email for userID.
func UserEmailCacheGet(userID uint) (string, bool) {
	c := currentUserCache()
	if c == nil {
		return "", false
	}
	v, ok := c.Get(userCacheKey(userID))
	if !ok {
		return "", false
	}
	email, ok := v.(string)
	return email, ok
}

// UserEmailCacheSet stores the email for userID.
func UserEmailCacheSet(userID uint, email string) {
	if c := currentUserCache(); c != nil {
		c.Set(userCacheKey(userID), email, cache.DefaultExpiration)
	}
}

// ForgetUserEmail drops a cached entry after the user changes or is deleted.
func ForgetUserEmail(userID uint) {
	if c := currentUserCache(); c != nil {
		c.Delete(userCacheKey(userID))
	}
}

// GetUserEmail returns the email for userID using the cache, falling back to
// the users table.
func GetUserEmail(db *gorm.DB, userID uint) string {
	if userID == 0 {
		return ""
	}
	if email, ok := UserEmailCacheGet(userID); ok {
		return email
	}
	if db == nil {
		return ""
	}
	var u struct{ Email string }
	if err := db.Table("users").Select("email").Where("id = ? AND deleted_at IS NULL", userID).Take(&u).Error; err != nil {
		return ""
	}
	if u.Email != "" {
		UserEmailCacheSet(userID, u.Email)
	}
	return u.Email
}
