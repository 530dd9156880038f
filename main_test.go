package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fernanda-avila/MIndCare2025/assistant"
	"github.com/fernanda-avila/MIndCare2025/config"
	"github.com/fernanda-avila/MIndCare2025/model"
	"github.com/fernanda-avila/MIndCare2025/util"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestApp(t *testing.T) (*gin.Engine, *gorm.DB, *config.Config) {
	t.Helper()
	t.Setenv("APPENV", "test")
	t.Setenv("APPNAME", "MindCare")
	t.Setenv("ADMIN_EMAIL", "Root@Example.com")
	t.Setenv("ADMIN_PASSWORD", "rootpass1")
	config.ResetConfigForTest()
	t.Cleanup(config.ResetConfigForTest)
	gin.SetMode(gin.TestMode)
	util.SetJWTSecret("main-test-secret")
	util.RegisterValidators()

	db, err := gorm.Open(sqlite.Open("file:main_test?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, model.Migrate(db))

	cfg := *config.LoadConfig()
	cfg.UploadDir = t.TempDir()
	return newRouter(&cfg, db, assistant.New()), db, &cfg
}

func TestRootWelcome(t *testing.T) {
	r, _, cfg := newTestApp(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Welcome to "+cfg.AppName+"!", body["message"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestSwaggerDocServed(t *testing.T) {
	r, _, _ := newTestApp(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/appointments/{id}/cancel")
}

func TestSeedAdminIsIdempotent(t *testing.T) {
	_, db, cfg := newTestApp(t)

	seedAdmin(db, cfg)
	seedAdmin(db, cfg)

	var admins []model.User
	require.NoError(t, db.Where("email = ?", "root@example.com").Find(&admins).Error)
	require.Len(t, admins, 1)
	assert.Equal(t, model.RoleAdmin, admins[0].Role)

	ok, err := util.VerifyPassword("rootpass1", admins[0].Password, admins[0].PasswordSalt)
	require.NoError(t, err)
	assert.True(t, ok)
}
