package endpoint

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fernanda-avila/MIndCare2025/config"
	"github.com/fernanda-avila/MIndCare2025/middleware"
	"github.com/fernanda-avila/MIndCare2025/model"
	"github.com/fernanda-avila/MIndCare2025/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	maxFailedAttempts = 5
	lockoutDuration   = 15 * time.Minute
)

// ErrEmailTaken is returned when an email is already registered.
var ErrEmailTaken = errors.New("email already registered")

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" example:"user@example.com"`
	Password string `json:"password" binding:"required" example:"password123"`
}

type LoginResponse struct {
	Token  string     `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	Role   model.Role `json:"role" example:"USER"`
	UserID uint       `json:"user_id" example:"1"`
}

// Login godoc
// @Summary      User login
// @Description  Authenticate user with email and password
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} util.APIResponse{data=LoginResponse} "Login successful"
// @Failure      400 {object} util.APIResponse "Invalid request payload"
// @Failure      401 {object} util.APIResponse "Invalid email or password"
// @Failure      429 {object} util.APIResponse "Account locked"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /auth/login [post]
func Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	ci := clientInfo{IP: c.ClientIP(), Agent: c.Request.UserAgent()}
	ctx := loginContext{C: c, DB: db, Email: model.NormalizeEmail(req.Email), CI: ci}

	user, ok := loadUserForLogin(ctx)
	if !ok {
		return
	}
	if !ensureAccountNotLocked(ctx, &user) {
		return
	}
	if !verifyPasswordOrRespond(ctx, &user, req.Password) {
		return
	}
	finalizeLogin(ctx, &user, req.Password)
}

type clientInfo struct {
	IP    string
	Agent string
}

type loginContext struct {
	C     *gin.Context
	DB    *gorm.DB
	Email string
	CI    clientInfo
}

func bindJSONOrRespond(c *gin.Context, dst interface{}, msg string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: msg, Err: errors.New(util.ValidationMessage(err))})
		return false
	}
	return true
}

func getDBOrRespond(c *gin.Context) (*gorm.DB, bool) {
	db := middleware.GetDB(c)
	if db == nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Database connection not available", Err: fmt.Errorf("db is nil")})
		return nil, false
	}
	return db, true
}

// currentUserOrRespond loads the authenticated user's row.
func currentUserOrRespond(c *gin.Context, db *gorm.DB) (*model.User, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: "User not authenticated", Err: fmt.Errorf("user id not found in context")})
		return nil, false
	}
	return fetchUserByID(c, db, userID)
}

func loadUserForLogin(ctx loginContext) (model.User, bool) {
	user, err := loadUserByEmail(ctx.DB, ctx.Email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		util.LogLoginFailure(ctx.Email, ctx.CI.IP, ctx.CI.Agent, "user not found")
		util.CallUserNotAuthorized(ctx.C, util.APIErrorParams{Msg: "Invalid email or password", Err: fmt.Errorf("invalid credentials")})
		return model.User{}, false
	}
	if err != nil {
		util.LogLoginFailure(ctx.Email, ctx.CI.IP, ctx.CI.Agent, "database error")
		util.CallServerError(ctx.C, util.APIErrorParams{Msg: "Database error", Err: err})
		return model.User{}, false
	}
	return user, true
}

func ensureAccountNotLocked(ctx loginContext, user *model.User) bool {
	if locked, expiry := isAccountLocked(user); locked {
		util.LogLoginFailure(ctx.Email, ctx.CI.IP, ctx.CI.Agent, "account locked")
		util.CallTooManyRequests(ctx.C, util.APIErrorParams{
			Msg: fmt.Sprintf("Account is locked until %s due to multiple failed login attempts", expiry.UTC().Format(time.RFC3339)),
			Err: fmt.Errorf("account locked"),
		})
		return false
	}
	return true
}

func verifyPasswordOrRespond(ctx loginContext, user *model.User, plain string) bool {
	match, err := util.VerifyPassword(plain, user.Password, user.PasswordSalt)
	if err != nil {
		util.LogLoginFailure(ctx.Email, ctx.CI.IP, ctx.CI.Agent, "password verification error")
		util.CallServerError(ctx.C, util.APIErrorParams{Msg: "Password verification failed", Err: err})
		return false
	}
	if !match {
		incrementFailedAttempts(ctx.DB, user, ctx.CI)
		util.LogLoginFailure(ctx.Email, ctx.CI.IP, ctx.CI.Agent, "invalid password")
		util.CallUserNotAuthorized(ctx.C, util.APIErrorParams{Msg: "Invalid email or password", Err: fmt.Errorf("invalid credentials")})
		return false
	}
	return true
}

func finalizeLogin(ctx loginContext, user *model.User, plain string) bool {
	if err := resetFailedAttempts(ctx.DB, user); err != nil {
		util.LogSecurityEvent(util.SecurityEvent{EventType: util.EventSuspiciousActivity, UserID: fmt.Sprintf("%d", user.ID), Email: user.Email, IP: ctx.CI.IP, Message: fmt.Sprintf("Failed to reset failed attempts: %v", err)})
	}
	_ = upgradeLegacyPasswordIfNeeded(ctx.DB, user, plain, ctx.CI)

	ttl := config.LoadConfig().SessionTTL
	tokenString, err := util.CreateSessionToken(user.ID, user.Email, user.Role.String(), ttl)
	if err != nil {
		util.LogLoginFailure(ctx.Email, ctx.CI.IP, ctx.CI.Agent, "token generation failed")
		util.CallServerError(ctx.C, util.APIErrorParams{Msg: "Could not generate token", Err: err})
		return false
	}

	info := SessionInfo{UserID: user.ID, Token: tokenString, Client: ctx.CI, Expires: time.Now().UTC().Add(ttl)}
	session, err := recordSession(ctx.DB, info)
	if err != nil {
		util.LogLoginFailure(ctx.Email, ctx.CI.IP, ctx.CI.Agent, "session creation failed")
		util.CallServerError(ctx.C, util.APIErrorParams{Msg: "Failed to record session", Err: err})
		return false
	}

	reqCtx := ctx.C.Request.Context()
	_ = util.CacheSession(reqCtx, tokenString, session.UserID, user.Role, time.Until(session.ExpiresAt))
	_ = middleware.ResetRateLimit(reqCtx, ctx.CI.IP, ctx.C.Request.URL.Path)

	util.UserEmailCacheSet(user.ID, user.Email)
	util.LogLoginSuccess(user.ID, user.Email, ctx.CI.IP, ctx.CI.Agent)
	util.CallSuccessOK(ctx.C, util.APISuccessParams{Msg: "Login successful", Data: LoginResponse{Token: tokenString, Role: user.Role, UserID: user.ID}})
	return true
}

func loadUserByEmail(db *gorm.DB, email string) (model.User, error) {
	var user model.User
	err := db.Where("email = ?", model.NormalizeEmail(email)).First(&user).Error
	return user, err
}

func isAccountLocked(user *model.User) (bool, time.Time) {
	if user.LockedUntil != nil && *user.LockedUntil > time.Now().Unix() {
		return true, time.Unix(*user.LockedUntil, 0)
	}
	return false, time.Time{}
}

func incrementFailedAttempts(db *gorm.DB, user *model.User, ci clientInfo) {
	user.FailedAttempts++
	if user.FailedAttempts >= maxFailedAttempts {
		lockUntil := time.Now().Add(lockoutDuration).Unix()
		user.LockedUntil = &lockUntil
		util.LogAccountLocked(user.ID, user.Email, ci.IP, "too many failed login attempts")
	}
	err := db.Model(user).Updates(map[string]interface{}{
		"failed_attempts": user.FailedAttempts,
		"locked_until":    user.LockedUntil,
	}).Error
	if err != nil {
		util.LogLoginFailure(user.Email, ci.IP, ci.Agent, "failed to update failed attempts")
	}
}

func resetFailedAttempts(db *gorm.DB, user *model.User) error {
	if user.FailedAttempts == 0 && user.LockedUntil == nil {
		return nil
	}
	user.FailedAttempts = 0
	user.LockedUntil = nil
	return db.Model(user).Updates(map[string]interface{}{
		"failed_attempts": 0,
		"locked_until":    nil,
	}).Error
}

func upgradeLegacyPasswordIfNeeded(db *gorm.DB, user *model.User, plain string, ci clientInfo) error {
	if util.IsArgon2Hash(user.Password) {
		return nil
	}
	salt, err := util.GenerateSalt()
	if err != nil {
		return err
	}
	hashed, err := util.HashPasswordArgon2(plain, salt)
	if err != nil {
		return err
	}
	user.Password = hashed
	user.PasswordSalt = salt
	if err := db.Model(user).Updates(map[string]interface{}{"password": hashed, "password_salt": salt}).Error; err != nil {
		util.LogSecurityEvent(util.SecurityEvent{EventType: util.EventSuspiciousActivity, UserID: fmt.Sprintf("%d", user.ID), Email: user.Email, IP: ci.IP, Message: fmt.Sprintf("Failed to upgrade password hash: %v", err)})
		return err
	}
	util.LogSecurityEvent(util.SecurityEvent{EventType: util.EventPasswordChanged, UserID: fmt.Sprintf("%d", user.ID), Email: user.Email, IP: ci.IP, Message: "Upgraded password hash to Argon2"})
	return nil
}

// SessionInfo groups parameters for creating a session to avoid long argument lists.
type SessionInfo struct {
	UserID  uint
	Token   string
	Client  clientInfo
	Expires time.Time
}

func recordSession(db *gorm.DB, info SessionInfo) (model.Session, error) {
	session := model.Session{UserID: info.UserID, SessionToken: info.Token, ExpiresAt: info.Expires, ClientIP: info.Client.IP, Browser: info.Client.Agent}
	err := db.Create(&session).Error
	return session, err
}

// Logout godoc
// @Summary      User logout
// @Description  Invalidate the caller's session token
// @Tags         Authentication
// @Produce      json
// @Security     BearerAuth
// @Security     SessionToken
// @Success      200 {object} util.APIResponse "Logout successful"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /auth/logout [delete]
func Logout(c *gin.Context) {
	sessionToken := middleware.SessionToken(c)
	if sessionToken == "" {
		util.CallUserNotAuthorized(c, util.APIErrorParams{
			Msg: "Session token not provided",
			Err: fmt.Errorf("session token not provided"),
		})
		c.Abort()
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	userID, _ := middleware.GetUserID(c)
	if err := db.Where("session_token = ?", sessionToken).Delete(&model.Session{}).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to delete session", Err: err})
		return
	}
	_ = util.RemoveCachedSession(c.Request.Context(), userID, sessionToken)

	util.LogLogout(userID, util.GetUserEmail(db, userID), c.ClientIP(), c.Request.UserAgent())
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Logout successful"})
}

type RegisterRequest struct {
	Name      string `json:"name" binding:"required" example:"Maria Silva"`
	Email     string `json:"email" binding:"required,email" example:"maria@example.com"`
	Password  string `json:"password" binding:"required,min=6" example:"secret123"`
	Role      string `json:"role" binding:"omitempty,role" example:"USER"`
	Specialty string `json:"specialty" example:"Psicologia clínica"`
	Bio       string `json:"bio"`
	CRP       string `json:"crp" example:"06/123456"`
	AvatarURL string `json:"avatar_url"`
}

// Register godoc
// @Summary      Register an account
// @Description  Create a USER or HELPER account. A HELPER also gets a pending professional profile awaiting review.
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "Registration details"
// @Success      201 {object} util.APIResponse{data=model.User} "Registration successful"
// @Failure      400 {object} util.APIResponse "Invalid request or role"
// @Failure      409 {object} util.APIResponse "Email already registered"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /auth/register [post]
func Register(c *gin.Context) {
	var req RegisterRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}

	role := model.RoleUser
	if req.Role != "" {
		parsed, err := model.ParseRole(req.Role)
		if err != nil || !parsed.Registrable() {
			util.CallUserError(c, util.APIErrorParams{Msg: "Role cannot be chosen at registration", Err: fmt.Errorf("role %q not allowed", req.Role)})
			return
		}
		role = parsed
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	email := model.NormalizeEmail(req.Email)
	if !ensureEmailAvailable(c, db, email) {
		return
	}

	hashedPassword, salt, ok := hashPasswordForSignup(c, req.Password)
	if !ok {
		return
	}

	newUser := model.User{
		Name:         util.NormalizeName(req.Name),
		Email:        email,
		Password:     hashedPassword,
		PasswordSalt: salt,
		Role:         role,
		AvatarURL:    strings.TrimSpace(req.AvatarURL),
	}
	if !createUserOrRespond(c, db, &newUser) {
		return
	}

	if role == model.RoleHelper {
		pro := model.Professional{
			UserID:             &newUser.ID,
			Name:               newUser.Name,
			Specialty:          strings.TrimSpace(req.Specialty),
			Bio:                strings.TrimSpace(req.Bio),
			CRP:                strings.TrimSpace(req.CRP),
			AvatarURL:          newUser.AvatarURL,
			Active:             false,
			RegistrationStatus: model.RegistrationPending,
		}
		if err := db.Create(&pro).Error; err != nil {
			util.LogSecurityEvent(util.SecurityEvent{
				EventType: util.EventSuspiciousActivity,
				UserID:    fmt.Sprintf("%d", newUser.ID),
				Email:     newUser.Email,
				IP:        c.ClientIP(),
				RequestID: middleware.GetRequestID(c),
				Message:   fmt.Sprintf("Failed to create professional request: %v", err),
			})
		} else {
			invalidateProfessionalList()
		}
	}

	util.LogSecurityEvent(util.SecurityEvent{
		EventType: util.EventRegisterSuccess,
		UserID:    fmt.Sprintf("%d", newUser.ID),
		Role:      newUser.Role.String(),
		Email:     newUser.Email,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		RequestID: middleware.GetRequestID(c),
		Message:   "User registered successfully",
	})

	util.CallCreated(c, util.APISuccessParams{Msg: "Registration successful", Data: newUser})
}

func ensureEmailAvailable(c *gin.Context, db *gorm.DB, email string) bool {
	exists, err := emailExists(db, email, 0)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Database error", Err: err})
		return false
	}
	if exists {
		util.CallConflict(c, util.APIErrorParams{Msg: "Email already registered", Err: ErrEmailTaken})
		return false
	}
	return true
}

func hashPasswordForSignup(c *gin.Context, plain string) (string, string, bool) {
	salt, err := util.GenerateSalt()
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to generate password salt", Err: err})
		return "", "", false
	}
	hashedPassword, err := util.HashPasswordArgon2(plain, salt)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to hash password", Err: err})
		return "", "", false
	}
	return hashedPassword, salt, true
}

func createUserOrRespond(c *gin.Context, db *gorm.DB, user *model.User) bool {
	if err := db.Create(user).Error; err != nil {
		// A concurrent registration can still win the unique index.
		if exists, _ := emailExists(db, user.Email, 0); exists {
			util.CallConflict(c, util.APIErrorParams{Msg: "Email already registered", Err: ErrEmailTaken})
			return false
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to create new user", Err: err})
		return false
	}
	return true
}

// MeResponse is the caller's public profile.
type MeResponse struct {
	ID        uint       `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Role      model.Role `json:"role"`
	AvatarURL string     `json:"avatar_url"`
}

// Me godoc
// @Summary      Current user
// @Description  Return the authenticated user's profile
// @Tags         Authentication
// @Produce      json
// @Security     BearerAuth
// @Security     SessionToken
// @Success      200 {object} util.APIResponse{data=MeResponse} "Current user"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      404 {object} util.APIResponse "User not found"
// @Router       /auth/me [get]
func Me(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	user, ok := currentUserOrRespond(c, db)
	if !ok {
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Current user",
		Data: MeResponse{
			ID:        user.ID,
			Email:     user.Email,
			Name:      user.Name,
			Role:      user.Role,
			AvatarURL: user.AvatarURL,
		},
	})
}

// VerifyPasswordRequest represents the request body for password verification
type VerifyPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

// VerifyPassword godoc
// @Summary      Verify current user's password
// @Description  Validate the provided current password for the authenticated user
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Security     SessionToken
// @Param        request body VerifyPasswordRequest true "Password to verify"
// @Success      200 {object} util.APIResponse "Password verified"
// @Failure      400 {object} util.APIResponse "Invalid request payload"
// @Failure      401 {object} util.APIResponse "Invalid password or unauthorized"
// @Failure      404 {object} util.APIResponse "User not found"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /auth/verify-password [post]
func VerifyPassword(c *gin.Context) {
	var req VerifyPasswordRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	user, ok := currentUserOrRespond(c, db)
	if !ok {
		return
	}

	passwordMatch, err := util.VerifyPassword(req.Password, user.Password, user.PasswordSalt)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Password verification failed", Err: err})
		return
	}
	if passwordMatch {
		util.CallSuccessOK(c, util.APISuccessParams{
			Msg:  "Password verified",
			Data: map[string]bool{"verified": true},
		})
		return
	}

	util.CallUserNotAuthorized(c, util.APIErrorParams{
		Msg: "Invalid password",
		Err: fmt.Errorf("provided password does not match"),
	})
}
