package middleware

import (
	"errors"
	"fmt"
	"time"

	"github.com/fernanda-avila/MIndCare2025/model"
	"github.com/fernanda-avila/MIndCare2025/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ValidateLoginToken authenticates the request's session token. The token
// must be a valid signed JWT and an unexpired session, looked up in Redis
// first and in the sessions table on a cache miss. On success the user ID
// and current role are stored under UserIDKey and RoleKey.
func ValidateLoginToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := SessionToken(c)
		if token == "" {
			util.LogUnauthorizedAccess(c.ClientIP(), c.Request.URL.Path, "missing session token")
			util.CallUserNotAuthorized(c, util.APIErrorParams{
				Msg: "Authentication required",
				Err: fmt.Errorf("session token is required"),
			})
			c.Abort()
			return
		}

		db := GetDB(c)
		if db == nil {
			util.CallServerError(c, util.APIErrorParams{
				Msg: "Database connection not available",
				Err: fmt.Errorf("db is nil"),
			})
			c.Abort()
			return
		}

		claims, err := util.ParseSessionToken(token)
		if err != nil {
			rejectSession(c, "invalid session token")
			return
		}
		tokenUserID, err := claims.UserID()
		if err != nil {
			rejectSession(c, "invalid session token subject")
			return
		}

		ctx := c.Request.Context()
		if uid, role, err := util.LookupCachedSession(ctx, token); err == nil && uid == tokenUserID {
			setIdentity(c, uid, role)
			c.Next()
			return
		}

		uid, role, expiresAt, err := lookupSession(db, token)
		if err != nil || uid != tokenUserID {
			rejectSession(c, "session expired or revoked")
			return
		}
		_ = util.CacheSession(ctx, token, uid, role, time.Until(expiresAt))

		setIdentity(c, uid, role)
		c.Next()
	}
}

func rejectSession(c *gin.Context, reason string) {
	util.LogUnauthorizedAccess(c.ClientIP(), c.Request.URL.Path, reason)
	util.CallUserNotAuthorized(c, util.APIErrorParams{
		Msg: "Session is invalid or expired",
		Err: errors.New(reason),
	})
	c.Abort()
}

// lookupSession resolves an unexpired session and its owner's current role.
func lookupSession(db *gorm.DB, token string) (uint, model.Role, time.Time, error) {
	var session model.Session
	err := db.Where("session_token = ? AND expires_at > ?", token, time.Now().UTC()).
		First(&session).Error
	if err != nil {
		return 0, "", time.Time{}, err
	}
	var user model.User
	if err := db.Select("id", "role").First(&user, session.UserID).Error; err != nil {
		return 0, "", time.Time{}, err
	}
	return user.ID, user.Role, session.ExpiresAt, nil
}

func setIdentity(c *gin.Context, userID uint, role model.Role) {
	c.Set(UserIDKey, userID)
	c.Set(RoleKey, role)
}

// GetUserID returns the authenticated user's ID.
func GetUserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}

// GetRole returns the authenticated user's role.
func GetRole(c *gin.Context) (model.Role, bool) {
	v, ok := c.Get(RoleKey)
	if !ok {
		return "", false
	}
	role, ok := v.(model.Role)
	return role, ok && role.Valid()
}

// AccessContext describes the caller for security log entries.
func AccessContext(c *gin.Context) util.AccessContext {
	uid, _ := GetUserID(c)
	role, _ := GetRole(c)
	return util.AccessContext{
		UserID:    uid,
		Role:      role.String(),
		IP:        c.ClientIP(),
		RequestID: GetRequestID(c),
	}
}

// RequireRole lets the request through only when the authenticated role is
// one of roles. It must run after ValidateLoginToken.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := GetRole(c)
		if !ok {
			rejectSession(c, "no authenticated role")
			return
		}
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		util.LogAccessDenied(AccessContext(c), c.Request.Method+" "+c.FullPath(), "role not permitted")
		util.CallForbidden(c, util.APIErrorParams{
			Msg: "You are not allowed to access this resource",
			Err: fmt.Errorf("role %s not permitted", role),
		})
		c.Abort()
	}
}
