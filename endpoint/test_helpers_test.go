package endpoint_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fernanda-avila/MIndCare2025/endpoint"
	"github.com/fernanda-avila/MIndCare2025/middleware"
	"github.com/fernanda-avila/MIndCare2025/model"
	"github.com/fernanda-avila/MIndCare2025/util"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const adminPassword = "adminpass"

type apiResp struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Msg     string          `json:"msg"`
	Data    json.RawMessage `json:"data"`
}

func doRequest(r http.Handler, method, path string, body []byte, headers map[string]string) (*httptest.ResponseRecorder, error) {
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr, nil
}

// doJSON marshals body and performs the request, failing the test on transport errors.
func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var raw []byte
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		raw = b
	}
	rr, err := doRequest(r, method, path, raw, authHeaders(token))
	require.NoError(t, err)
	return rr
}

func authHeaders(token string) map[string]string {
	if token == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + token}
}

// ServerOption adjusts RouteOptions before the routes are registered.
type ServerOption func(*endpoint.RouteOptions)

// SetupTestServer builds the full API on a private in-memory database.
// Rate limits are raised so repeated logins in one test are not throttled.
func SetupTestServer(t *testing.T, opts ...ServerOption) (*gin.Engine, *gorm.DB) {
	t.Helper()
	db := endpoint.NewTestDB(t)

	routeOpts := endpoint.RouteOptions{
		UploadDir:          t.TempDir(),
		MaxUploadBytes:     1 << 20,
		LoginRateLimit:     1000,
		RateLimitPerMinute: 1000,
	}
	for _, opt := range opts {
		opt(&routeOpts)
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.DatabaseMiddleware(db))
	endpoint.RegisterRoutes(r, routeOpts)
	return r, db
}

type SignupCreds struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// RegisterUser calls /auth/register and returns the new user's id.
func RegisterUser(t *testing.T, r http.Handler, creds SignupCreds) uint {
	t.Helper()
	body := map[string]string{"name": creds.Name, "email": creds.Email, "password": creds.Password}
	if creds.Role != "" {
		body["role"] = creds.Role
	}
	rr := doJSON(t, r, http.MethodPost, "/auth/register", body, "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("register %s returned %d: %s", creds.Email, rr.Code, rr.Body.String())
	}
	var user struct {
		ID uint `json:"ID"`
	}
	require.NoError(t, json.Unmarshal(ParseAPIResp(t, rr).Data, &user))
	return user.ID
}

// LoginUser logs in and returns the session token and user id.
func LoginUser(t *testing.T, r http.Handler, email, password string) (string, uint) {
	t.Helper()
	rr := doJSON(t, r, http.MethodPost, "/auth/login", map[string]string{"email": email, "password": password}, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("login %s returned %d: %s", email, rr.Code, rr.Body.String())
	}
	var data endpoint.LoginResponse
	require.NoError(t, json.Unmarshal(ParseAPIResp(t, rr).Data, &data))
	return data.Token, data.UserID
}

// CreateAndLoginUser registers and logs in a user, returning session token and user id.
func CreateAndLoginUser(t *testing.T, r http.Handler, creds SignupCreds) (string, uint) {
	t.Helper()
	RegisterUser(t, r, creds)
	return LoginUser(t, r, creds.Email, creds.Password)
}

// CreateAndLoginAdmin seeds an administrator directly, since ADMIN cannot self-register.
func CreateAndLoginAdmin(t *testing.T, r http.Handler, db *gorm.DB) (string, uint) {
	t.Helper()
	salt, err := util.GenerateSalt()
	require.NoError(t, err)
	hashed, err := util.HashPasswordArgon2(adminPassword, salt)
	require.NoError(t, err)
	require.NoError(t, model.SeedAdmin(db, model.User{Name: "Admin User", Email: "admin@example.com", Password: hashed, PasswordSalt: salt}))
	return LoginUser(t, r, "admin@example.com", adminPassword)
}

// SetupServerWithUser initializes the server and returns a logged-in USER session.
func SetupServerWithUser(t *testing.T, creds SignupCreds) (*gin.Engine, *gorm.DB, string, uint) {
	r, db := SetupTestServer(t)
	token, userID := CreateAndLoginUser(t, r, creds)
	return r, db, token, userID
}

// SetupServerWithAdmin initializes the server and returns a logged-in admin session.
func SetupServerWithAdmin(t *testing.T) (*gin.Engine, *gorm.DB, string) {
	r, db := SetupTestServer(t)
	adminToken, _ := CreateAndLoginAdmin(t, r, db)
	return r, db, adminToken
}

// SetupServerWithAdminAndUser initializes the server and returns admin and user sessions.
func SetupServerWithAdminAndUser(t *testing.T, userCreds SignupCreds) (*gin.Engine, *gorm.DB, string, string, uint) {
	r, db, adminToken := SetupServerWithAdmin(t)
	userToken, userID := CreateAndLoginUser(t, r, userCreds)
	return r, db, adminToken, userToken, userID
}

// ParseAPIResp decodes a standard API response from a ResponseRecorder.
// It fails the test on decoding error.
func ParseAPIResp(t *testing.T, rr *httptest.ResponseRecorder) apiResp {
	t.Helper()
	var resp apiResp
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response failed: %v; body: %s", err, rr.Body.String())
	}
	return resp
}

// ParseDataToMap unmarshals an API response Data field into a map[string]interface{}.
// It fails the test on error.
func ParseDataToMap(t *testing.T, raw json.RawMessage) map[string]interface{} {
	t.Helper()
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		t.Fatalf("parse data failed: %v", err)
	}
	return data
}

// CreateTestUsers registers a handful of USER accounts.
func CreateTestUsers(t *testing.T, r http.Handler) {
	t.Helper()
	testUsers := []SignupCreds{
		{Name: "Alice Johnson", Email: "alice@example.com", Password: "pass1234"},
		{Name: "Bob Smith", Email: "bob@example.com", Password: "pass1234"},
		{Name: "Charlie Brown", Email: "charlie@example.com", Password: "pass1234"},
		{Name: "David Wilson", Email: "david@example.com", Password: "pass1234"},
		{Name: "Eve Davis", Email: "eve@example.com", Password: "pass1234"},
	}
	for _, u := range testUsers {
		RegisterUser(t, r, u)
	}
}

// ListUsersData performs a GET /users request with optional query string and
// returns the decoded response data as map[string]interface{}.
func ListUsersData(t *testing.T, r http.Handler, adminToken string, query string) map[string]interface{} {
	t.Helper()
	path := "/users"
	if query != "" {
		path += "?" + query
	}
	rr := doJSON(t, r, http.MethodGet, path, nil, adminToken)
	if rr.Code != http.StatusOK {
		t.Fatalf("list users returned non-200: %d %s", rr.Code, rr.Body.String())
	}
	return ParseDataToMap(t, ParseAPIResp(t, rr).Data)
}

// AssertTotal asserts the `total` field in list response data.
func AssertTotal(t *testing.T, data map[string]interface{}, want int) {
	t.Helper()
	got := int(data["total"].(float64))
	if got != want {
		t.Errorf("expected total %d, got %d", want, got)
	}
}

// AssertTotalFetched asserts the `total_fetched` field in list response data.
func AssertTotalFetched(t *testing.T, data map[string]interface{}, want int) {
	t.Helper()
	got := int(data["total_fetched"].(float64))
	if got != want {
		t.Errorf("expected total_fetched %d, got %d", want, got)
	}
}

// AssertUserEmail verifies the user's email in the database.
func AssertUserEmail(t *testing.T, db *gorm.DB, userID uint, want string) {
	t.Helper()
	var user model.User
	if err := db.First(&user, userID).Error; err != nil {
		t.Fatalf("failed to query user: %v", err)
	}
	if user.Email != want {
		t.Fatalf("expected email to be %s; got %s", want, user.Email)
	}
}

func userPath(id uint) string {
	return fmt.Sprintf("/users/%d", id)
}
