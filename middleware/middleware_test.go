package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fernanda-avila/MIndCare2025/config"
	"github.com/fernanda-avila/MIndCare2025/model"
	"github.com/fernanda-avila/MIndCare2025/util"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testJWTSecret = "middleware-test-secret"

var dbCounter int64

// newInMemoryDB creates an in-memory sqlite DB and runs required migrations for tests.
func newInMemoryDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:mw_%d?mode=memory&cache=shared", atomic.AddInt64(&dbCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Session{}))
	return db
}

type testSessionParams struct {
	role      model.Role
	expiresAt time.Time
}

// createTestUserAndSession creates a user with a signed session token stored in the DB.
func createTestUserAndSession(t *testing.T, db *gorm.DB, params testSessionParams) (model.User, string) {
	t.Helper()
	if params.role == "" {
		params.role = model.RoleUser
	}
	user := model.User{
		Name:     "Test User",
		Email:    fmt.Sprintf("test-%d@example.com", time.Now().UnixNano()),
		Password: "hashedpassword",
		Role:     params.role,
	}
	require.NoError(t, db.Create(&user).Error)

	if params.expiresAt.IsZero() {
		params.expiresAt = time.Now().Add(time.Hour)
	}
	token, err := util.CreateSessionToken(user.ID, user.Email, user.Role.String(), time.Hour)
	require.NoError(t, err)

	session := model.Session{
		SessionToken: token,
		UserID:       user.ID,
		ExpiresAt:    params.expiresAt.UTC(),
		ClientIP:     "127.0.0.1",
		Browser:      "test-browser",
	}
	require.NoError(t, db.Create(&session).Error)
	return user, token
}

func setupAuthTest(t *testing.T) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	util.SetJWTSecret(testJWTSecret)
	config.ResetRedisClientForTest()
	t.Cleanup(func() {
		util.SetJWTSecret("")
		config.ResetRedisClientForTest()
	})
}

func setupRedisMock(t *testing.T) redismock.ClientMock {
	rdb, mock := redismock.NewClientMock()
	config.SetRedisClientForTest(rdb)
	t.Cleanup(func() {
		config.ResetRedisClientForTest()
	})
	return mock
}

type authRequest struct {
	db      *gorm.DB
	bearer  string
	header  string
	handler gin.HandlerFunc
	extra   []gin.HandlerFunc
}

func runAuthRequest(r authRequest) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	_, engine := gin.CreateTestContext(w)
	if r.db != nil {
		engine.Use(DatabaseMiddleware(r.db))
	}
	handlers := append([]gin.HandlerFunc{ValidateLoginToken()}, r.extra...)
	handlers = append(handlers, r.handler)
	engine.GET("/test", handlers...)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if r.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+r.bearer)
	}
	if r.header != "" {
		req.Header.Set("session-token", r.header)
	}
	engine.ServeHTTP(w, req)
	return w
}

func assertIdentity(t *testing.T, c *gin.Context, userID uint, role model.Role) {
	t.Helper()
	uid, ok := GetUserID(c)
	assert.True(t, ok)
	assert.Equal(t, userID, uid)
	got, ok := GetRole(c)
	assert.True(t, ok)
	assert.Equal(t, role, got)
}

func okHandler(c *gin.Context) { c.Status(http.StatusOK) }

func TestSetCorsHeadersWildcard(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	setCorsHeaders(c, nil)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Methods"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "session-token")
}

func TestSetCorsHeadersAllowList(t *testing.T) {
	origins := []string{"https://app.example"}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.Header.Set("Origin", "https://app.example")
	setCorsHeaders(c, origins)
	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.Header.Set("Origin", "https://evil.example")
	setCorsHeaders(c, origins)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSMiddlewarePreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORSMiddleware([]string{"*"}))
	r.GET("/x", okHandler)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/x", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestDatabaseMiddlewareAndGetDB(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	db := &gorm.DB{}
	r.Use(DatabaseMiddleware(db))
	r.GET("/testdb", func(c *gin.Context) {
		if GetDB(c) != db {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/testdb", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestIDGeneratedAndReused(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	var seen string
	r.GET("/x", func(c *gin.Context) {
		seen = GetRequestID(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "trace-123")
	r.ServeHTTP(w, req)
	assert.Equal(t, "trace-123", seen)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "bad id\nwith newline")
	r.ServeHTTP(w, req)
	assert.NotEqual(t, "bad id\nwith newline", seen)
}

func TestValidateLoginTokenMissingToken(t *testing.T) {
	setupAuthTest(t)
	w := runAuthRequest(authRequest{db: &gorm.DB{}, handler: okHandler})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestValidateLoginTokenMissingDatabase(t *testing.T) {
	setupAuthTest(t)
	w := runAuthRequest(authRequest{header: "anything", handler: okHandler})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestValidateLoginTokenRejectsUnsignedToken(t *testing.T) {
	setupAuthTest(t)
	db := newInMemoryDB(t)
	w := runAuthRequest(authRequest{db: db, bearer: "not-a-jwt", handler: okHandler})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestValidateLoginTokenDatabaseSession(t *testing.T) {
	setupAuthTest(t)
	db := newInMemoryDB(t)
	user, token := createTestUserAndSession(t, db, testSessionParams{role: model.RoleHelper})

	w := runAuthRequest(authRequest{db: db, bearer: token, handler: func(c *gin.Context) {
		assertIdentity(t, c, user.ID, model.RoleHelper)
		c.Status(http.StatusOK)
	}})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestValidateLoginTokenSessionTokenHeader(t *testing.T) {
	setupAuthTest(t)
	db := newInMemoryDB(t)
	user, token := createTestUserAndSession(t, db, testSessionParams{})

	w := runAuthRequest(authRequest{db: db, header: token, handler: func(c *gin.Context) {
		assertIdentity(t, c, user.ID, model.RoleUser)
		c.Status(http.StatusOK)
	}})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestValidateLoginTokenExpiredSession(t *testing.T) {
	setupAuthTest(t)
	db := newInMemoryDB(t)
	_, token := createTestUserAndSession(t, db, testSessionParams{expiresAt: time.Now().Add(-time.Hour)})

	w := runAuthRequest(authRequest{db: db, bearer: token, handler: okHandler})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestValidateLoginTokenRevokedSession(t *testing.T) {
	setupAuthTest(t)
	db := newInMemoryDB(t)
	_, token := createTestUserAndSession(t, db, testSessionParams{})
	require.NoError(t, db.Where("session_token = ?", token).Delete(&model.Session{}).Error)

	w := runAuthRequest(authRequest{db: db, bearer: token, handler: okHandler})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestValidateLoginTokenRoleReadFromUser(t *testing.T) {
	setupAuthTest(t)
	db := newInMemoryDB(t)
	user, token := createTestUserAndSession(t, db, testSessionParams{role: model.RoleUser})
	require.NoError(t, db.Model(&user).Update("role", model.RoleProfessional).Error)

	w := runAuthRequest(authRequest{db: db, bearer: token, handler: func(c *gin.Context) {
		assertIdentity(t, c, user.ID, model.RoleProfessional)
		c.Status(http.StatusOK)
	}})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestValidateLoginTokenRedisHit(t *testing.T) {
	setupAuthTest(t)
	mock := setupRedisMock(t)

	token, err := util.CreateSessionToken(123, "cached@example.com", "ADMIN", time.Hour)
	require.NoError(t, err)
	mock.ExpectGet("session:" + token).SetVal("123:ADMIN")

	w := runAuthRequest(authRequest{db: &gorm.DB{}, bearer: token, handler: func(c *gin.Context) {
		assertIdentity(t, c, 123, model.RoleAdmin)
		c.Status(http.StatusOK)
	}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateLoginTokenRedisMissFallsBack(t *testing.T) {
	setupAuthTest(t)
	db := newInMemoryDB(t)
	user, token := createTestUserAndSession(t, db, testSessionParams{role: model.RoleUser})

	mock := setupRedisMock(t)
	mock.ExpectGet("session:" + token).RedisNil()

	w := runAuthRequest(authRequest{db: db, bearer: token, handler: func(c *gin.Context) {
		assertIdentity(t, c, user.ID, model.RoleUser)
		c.Status(http.StatusOK)
	}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateLoginTokenRedisMalformedFallsBack(t *testing.T) {
	for _, cached := range []string{"abc:USER", "123", "0:USER", "456:xyz"} {
		t.Run(cached, func(t *testing.T) {
			setupAuthTest(t)
			db := newInMemoryDB(t)
			user, token := createTestUserAndSession(t, db, testSessionParams{role: model.RoleHelper})

			mock := setupRedisMock(t)
			mock.ExpectGet("session:" + token).SetVal(cached)

			w := runAuthRequest(authRequest{db: db, bearer: token, handler: func(c *gin.Context) {
				assertIdentity(t, c, user.ID, model.RoleHelper)
				c.Status(http.StatusOK)
			}})
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

func TestValidateLoginTokenRedisEntryForOtherUser(t *testing.T) {
	setupAuthTest(t)
	db := newInMemoryDB(t)
	user, token := createTestUserAndSession(t, db, testSessionParams{})

	mock := setupRedisMock(t)
	mock.ExpectGet("session:" + token).SetVal(fmt.Sprintf("%d:ADMIN", user.ID+100))

	w := runAuthRequest(authRequest{db: db, bearer: token, handler: func(c *gin.Context) {
		assertIdentity(t, c, user.ID, model.RoleUser)
		c.Status(http.StatusOK)
	}})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRole(t *testing.T) {
	setupAuthTest(t)
	db := newInMemoryDB(t)
	_, userToken := createTestUserAndSession(t, db, testSessionParams{role: model.RoleUser})
	_, helperToken := createTestUserAndSession(t, db, testSessionParams{role: model.RoleHelper})

	guard := RequireRole(model.RoleAdmin, model.RoleHelper, model.RoleProfessional)

	w := runAuthRequest(authRequest{db: db, bearer: userToken, extra: []gin.HandlerFunc{guard}, handler: okHandler})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = runAuthRequest(authRequest{db: db, bearer: helperToken, extra: []gin.HandlerFunc{guard}, handler: okHandler})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRoleWithoutAuthentication(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", RequireRole(model.RoleAdmin), okHandler)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
