package endpoint

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fernanda-avila/MIndCare2025/middleware"
	"github.com/fernanda-avila/MIndCare2025/model"
	"github.com/fernanda-avila/MIndCare2025/util"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testPassword = "secret123"

var testDBSeq int64

// newTestDB opens a private in-memory database with the full schema and
// clears the cached professional listing left by earlier tests.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:endpoint_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
		Logger:  logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, model.Migrate(db))
	invalidateProfessionalList()
	return db
}

// setupEndpointTest returns a Gin engine and database connection configured for endpoint tests.
func setupEndpointTest(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newTestDB(t)
	r := gin.New()
	r.Use(middleware.DatabaseMiddleware(db))
	return r, db
}

// asUser sets the identity ValidateLoginToken would have established.
func asUser(userID uint, role model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Set(middleware.RoleKey, role)
		c.Next()
	}
}

// createUser inserts a user whose password is testPassword.
func createUser(t *testing.T, db *gorm.DB, role model.Role) model.User {
	t.Helper()
	salt, err := util.GenerateSalt()
	require.NoError(t, err)
	hashed, err := util.HashPasswordArgon2(testPassword, salt)
	require.NoError(t, err)
	u := model.User{
		Name:         "Test " + string(role),
		Email:        fmt.Sprintf("%s-%d@example.com", role, atomic.AddInt64(&testDBSeq, 1)),
		Password:     hashed,
		PasswordSalt: salt,
		Role:         role,
	}
	require.NoError(t, db.Create(&u).Error)
	return u
}

// createProfessional inserts a professional, optionally linked to userID.
func createProfessional(t *testing.T, db *gorm.DB, status model.RegistrationStatus, userID *uint) model.Professional {
	t.Helper()
	p := model.Professional{
		UserID:             userID,
		Name:               "Dra. Ana Costa",
		Specialty:          "Psicologia clínica",
		Active:             status == model.RegistrationApproved,
		RegistrationStatus: status,
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

// assertStatus asserts that the response HTTP status code matches the expected value
func assertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	assert.Equal(t, expected, w.Code, w.Body.String())
}

// assertSuccessResponse asserts that the response indicates success with HTTP 200
func assertSuccessResponse(t *testing.T, w *httptest.ResponseRecorder, response map[string]interface{}) {
	t.Helper()
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	if response == nil {
		return
	}
	if success, ok := response["success"].(bool); ok {
		assert.True(t, success)
	}
}

// requestSpec describes one request against a handler registered on the fly.
type requestSpec struct {
	method       string
	registerPath string
	requestPath  string
	handler      gin.HandlerFunc
	body         interface{}
	headers      map[string]string
}

// performRequest serves rs against r and decodes the JSON envelope.
// String and []byte bodies are sent as-is, anything else is marshalled.
func performRequest(r *gin.Engine, rs requestSpec) (*httptest.ResponseRecorder, map[string]interface{}, error) {
	var payload []byte
	switch v := rs.body.(type) {
	case nil:
	case string:
		payload = []byte(v)
	case []byte:
		payload = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, nil, err
		}
		payload = b
	}

	req := httptest.NewRequest(rs.method, rs.requestPath, bytes.NewReader(payload))
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range rs.headers {
		req.Header.Set(key, value)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var response map[string]interface{}
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			return w, nil, err
		}
	}
	return w, response, nil
}

// doRequestWithHandler registers rs.handler at rs.registerPath and serves the request.
func doRequestWithHandler(r *gin.Engine, rs requestSpec) (*httptest.ResponseRecorder, map[string]interface{}, error) {
	r.Handle(rs.method, rs.registerPath, rs.handler)
	return performRequest(r, rs)
}
