package middleware

import (
	"bytes"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fernanda-avila/MIndCare2025/model"
	"github.com/fernanda-avila/MIndCare2025/util"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureSecurityLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	original := util.GetSecurityLoggerForTest()
	util.SetSecurityLoggerForTest(log.New(&buf, "[SECURITY] ", log.LstdFlags|log.Lmsgprefix))
	t.Cleanup(func() { util.SetSecurityLoggerForTest(original) })
	return &buf
}

func TestEndpointCallLoggerBasicRequest(t *testing.T) {
	buf := captureSecurityLog(t)
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequestID(), DatabaseMiddleware(newInMemoryDB(t)), EndpointCallLogger())
	r.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test?foo=bar", nil)
	req.RemoteAddr = "192.168.1.100:1234"
	req.Header.Set("User-Agent", "TestAgent/1.0")
	req.Header.Set("X-Request-ID", "req-42")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	out := buf.String()
	assert.Contains(t, out, "Event=ENDPOINT_CALL")
	assert.Contains(t, out, "GET /test -> 200")
	assert.Contains(t, out, "192.168.1.100")
	assert.Contains(t, out, "TestAgent/1.0")
	assert.Contains(t, out, "RequestID=req-42")
	assert.Contains(t, out, "UserID= ")
}

func TestEndpointCallLoggerWithUserContext(t *testing.T) {
	buf := captureSecurityLog(t)
	gin.SetMode(gin.TestMode)
	util.InitUserEmailCache(0)

	db := newInMemoryDB(t)
	user := model.User{Name: "Logged", Email: "logged@example.com", Password: "x", Role: model.RoleProfessional}
	require.NoError(t, db.Create(&user).Error)

	r := gin.New()
	r.Use(DatabaseMiddleware(db), EndpointCallLogger())
	r.POST("/appointments", func(c *gin.Context) {
		setIdentity(c, user.ID, model.RoleProfessional)
		c.Status(http.StatusConflict)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/appointments", nil))

	assert.Equal(t, http.StatusConflict, w.Code)
	out := buf.String()
	assert.Contains(t, out, "POST /appointments -> 409")
	assert.Contains(t, out, "Role=PROFESSIONAL")
	assert.Contains(t, out, "Email=logged@example.com")
}
