package endpoint

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/fernanda-avila/MIndCare2025/middleware"
	"github.com/fernanda-avila/MIndCare2025/model"
	"github.com/fernanda-avila/MIndCare2025/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Sentinel errors for user update operations
var (
	ErrUserEmailAlreadyExists = errors.New("email already exists")
	ErrRoleChangeNotAllowed   = errors.New("role can only be changed by an administrator")
)

type UpdateUserRequest struct {
	Name      string `json:"name" example:"Maria Silva"`
	Email     string `json:"email" binding:"omitempty,email" example:"maria@example.com"`
	Password  string `json:"password" binding:"omitempty,min=6" example:"newpassword123"`
	AvatarURL string `json:"avatar_url"`
	Role      string `json:"role" binding:"omitempty,role" example:"HELPER"`
}

type CreateUserRequest struct {
	Name      string `json:"name" binding:"required" example:"João Souza"`
	Email     string `json:"email" binding:"required,email" example:"joao@example.com"`
	Password  string `json:"password" binding:"required,min=6" example:"secret123"`
	Role      string `json:"role" binding:"omitempty,role" example:"HELPER"`
	Specialty string `json:"specialty"`
	Bio       string `json:"bio"`
	AvatarURL string `json:"avatar_url"`
}

// userChanges records what an update touched so follow-up work can run after
// the row is saved.
type userChanges struct {
	passwordChanged bool
	roleChanged     bool
	nameChanged     bool
}

// validateUpdateRequest checks whether at least one field is provided for update.
func validateUpdateRequest(req *UpdateUserRequest) bool {
	return req.Name != "" || req.Email != "" || req.Password != "" || req.AvatarURL != "" || req.Role != ""
}

// validateAndUpdateEmail checks email uniqueness and updates the user model if valid.
func validateAndUpdateEmail(db *gorm.DB, user *model.User, newEmail string) error {
	newEmail = model.NormalizeEmail(newEmail)
	if newEmail == "" || newEmail == user.Email {
		return nil
	}
	exists, err := emailExists(db, newEmail, user.ID)
	if err != nil {
		return fmt.Errorf("failed to validate email uniqueness: %w", err)
	}
	if exists {
		return ErrUserEmailAlreadyExists
	}
	user.Email = newEmail
	return nil
}

// hashUserPassword generates a salt and hashes the provided password, updating the user model.
func hashUserPassword(user *model.User, plainPassword string) error {
	salt, err := util.GenerateSalt()
	if err != nil {
		return fmt.Errorf("failed to generate password salt: %w", err)
	}
	hashedPassword, err := util.HashPasswordArgon2(plainPassword, salt)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = hashedPassword
	user.PasswordSalt = salt
	return nil
}

// updateUserFields applies an UpdateUserRequest to a user model. Role changes
// are only honored when allowRole is set.
func updateUserFields(db *gorm.DB, user *model.User, req *UpdateUserRequest, allowRole bool) (userChanges, error) {
	var changes userChanges
	if req.Role != "" {
		if !allowRole {
			return changes, ErrRoleChangeNotAllowed
		}
		role, err := model.ParseRole(req.Role)
		if err != nil {
			return changes, err
		}
		changes.roleChanged = role != user.Role
		user.Role = role
	}
	if err := validateAndUpdateEmail(db, user, req.Email); err != nil {
		return changes, err
	}
	if name := util.NormalizeName(req.Name); name != "" && name != user.Name {
		user.Name = name
		changes.nameChanged = true
	}
	if req.AvatarURL != "" {
		user.AvatarURL = strings.TrimSpace(req.AvatarURL)
	}
	if req.Password != "" {
		if err := hashUserPassword(user, req.Password); err != nil {
			return changes, err
		}
		changes.passwordChanged = true
	}
	return changes, nil
}

// invalidateUserSessions removes session records from both DB and Redis for a given user.
func invalidateUserSessions(c *gin.Context, db *gorm.DB, userID uint) {
	_ = db.Where("user_id = ?", userID).Delete(&model.Session{}).Error
	_ = util.InvalidateUserSessions(c.Request.Context(), userID)
}

func hasProfessionalRole(r model.Role) bool {
	return r == model.RoleHelper || r == model.RoleProfessional
}

// syncProfessionalProfile keeps the linked professional in line with its
// user: gaining a professional role creates an approved profile when none
// exists, losing it deactivates the profile, and names are copied over.
func syncProfessionalProfile(db *gorm.DB, user *model.User, changes userChanges) error {
	if !changes.roleChanged && !changes.nameChanged {
		return nil
	}
	var pro model.Professional
	err := db.Where("user_id = ?", user.ID).First(&pro).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	exists := err == nil

	if changes.roleChanged && hasProfessionalRole(user.Role) && !exists {
		pro = model.Professional{
			UserID:             &user.ID,
			Name:               user.Name,
			AvatarURL:          user.AvatarURL,
			Active:             true,
			RegistrationStatus: model.RegistrationApproved,
		}
		return db.Create(&pro).Error
	}
	if !exists {
		return nil
	}

	updates := map[string]interface{}{}
	if changes.roleChanged && !hasProfessionalRole(user.Role) {
		updates["active"] = false
	}
	if changes.nameChanged {
		updates["name"] = user.Name
	}
	if len(updates) == 0 {
		return nil
	}
	return db.Model(&pro).Updates(updates).Error
}

// performUserUpdate saves a user and handles every error case, session
// invalidation and the professional profile sync.
func performUserUpdate(c *gin.Context, db *gorm.DB, user *model.User, req *UpdateUserRequest, allowRole bool) bool {
	changes, err := updateUserFields(db, user, req, allowRole)
	if err != nil {
		switch {
		case errors.Is(err, ErrUserEmailAlreadyExists):
			util.CallConflict(c, util.APIErrorParams{Msg: "Email already exists", Err: err})
		case errors.Is(err, ErrRoleChangeNotAllowed):
			util.LogAccessDenied(middleware.AccessContext(c), "user.update_role", err.Error())
			util.CallForbidden(c, util.APIErrorParams{Msg: "Role can only be changed by an administrator", Err: err})
		default:
			util.CallServerError(c, util.APIErrorParams{Msg: "Failed to update user fields", Err: err})
		}
		return false
	}

	if err := db.Save(user).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to update user", Err: err})
		return false
	}

	if err := syncProfessionalProfile(db, user, changes); err != nil {
		util.LogSecurityEvent(util.SecurityEvent{
			EventType: util.EventSuspiciousActivity,
			UserID:    fmt.Sprintf("%d", user.ID),
			IP:        c.ClientIP(),
			RequestID: middleware.GetRequestID(c),
			Message:   fmt.Sprintf("Failed to sync professional profile: %v", err),
		})
	}
	if changes.roleChanged || changes.nameChanged {
		invalidateProfessionalList()
	}

	switch {
	case changes.passwordChanged:
		invalidateUserSessions(c, db, user.ID)
		util.LogSecurityEvent(util.SecurityEvent{EventType: util.EventPasswordChanged, UserID: fmt.Sprintf("%d", user.ID), Email: user.Email, IP: c.ClientIP(), RequestID: middleware.GetRequestID(c), Message: "Password changed"})
	case changes.roleChanged:
		// Cached sessions carry the role; drop them so the next request re-reads it.
		_ = util.InvalidateUserSessions(c.Request.Context(), user.ID)
	}
	if changes.roleChanged {
		util.LogSecurityEvent(util.SecurityEvent{EventType: util.EventRoleChanged, UserID: fmt.Sprintf("%d", user.ID), Role: user.Role.String(), Email: user.Email, IP: c.ClientIP(), RequestID: middleware.GetRequestID(c), Message: fmt.Sprintf("Role changed to %s", user.Role)})
	}
	util.ForgetUserEmail(user.ID)

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "User updated successfully", Data: user})
	return true
}

// CreateUser godoc
// @Summary      Create user (admin only)
// @Description  Create an account with any role. A HELPER gets an approved, active professional profile.
// @Tags         Users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Security     SessionToken
// @Param        request body CreateUserRequest true "User details"
// @Success      201 {object} util.APIResponse{data=model.User} "User created"
// @Failure      400 {object} util.APIResponse "Invalid request"
// @Failure      409 {object} util.APIResponse "Email already registered"
// @Router       /users [post]
func CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	role := model.RoleUser
	if req.Role != "" {
		parsed, err := model.ParseRole(req.Role)
		if err != nil {
			util.CallUserError(c, util.APIErrorParams{Msg: "Invalid role", Err: err})
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

	user := model.User{
		Name:         util.NormalizeName(req.Name),
		Email:        email,
		Password:     hashedPassword,
		PasswordSalt: salt,
		Role:         role,
		AvatarURL:    strings.TrimSpace(req.AvatarURL),
	}
	if !createUserOrRespond(c, db, &user) {
		return
	}

	if role == model.RoleHelper {
		pro := model.Professional{
			UserID:             &user.ID,
			Name:               user.Name,
			Specialty:          strings.TrimSpace(req.Specialty),
			Bio:                strings.TrimSpace(req.Bio),
			AvatarURL:          user.AvatarURL,
			Active:             true,
			RegistrationStatus: model.RegistrationApproved,
		}
		if err := db.Create(&pro).Error; err != nil {
			util.LogSecurityEvent(util.SecurityEvent{
				EventType: util.EventSuspiciousActivity,
				UserID:    fmt.Sprintf("%d", user.ID),
				IP:        c.ClientIP(),
				RequestID: middleware.GetRequestID(c),
				Message:   fmt.Sprintf("Failed to create professional for helper: %v", err),
			})
		} else {
			invalidateProfessionalList()
		}
	}

	util.CallCreated(c, util.APISuccessParams{Msg: "User created", Data: user})
}

// UpdateCurrentUser godoc
// @Summary      Update current user profile
// @Description  Update the authenticated user's name, email, avatar and/or password
// @Tags         Users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Security     SessionToken
// @Param        request body UpdateUserRequest true "Update details"
// @Success      200 {object} util.APIResponse "Update successful"
// @Failure      400 {object} util.APIResponse "Invalid request"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      403 {object} util.APIResponse "Role change attempted"
// @Failure      409 {object} util.APIResponse "Email already exists"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /users/me [patch]
func UpdateCurrentUser(c *gin.Context) {
	req, ok := bindUpdateUserRequest(c)
	if !ok {
		return
	}
	if !requireUpdateFields(c, req) {
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
	performUserUpdate(c, db, user, &req, false)
}

// ListUsers godoc
// @Summary      List all users (admin only)
// @Description  Get a paginated list of users using cursor-based pagination. Admin-only access.
// @Tags         Users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Security     SessionToken
// @Param        limit query int false "Limit number of results (default 10, max 100)"
// @Param        cursor query int false "Cursor for pagination (User ID)"
// @Param        offset query int false "Offset when no cursor is given"
// @Param        keyword query string false "Search keyword for name or email"
// @Param        role query string false "Only users with this role"
// @Success      200 {object} util.APIResponse{data=object} "Users retrieved with cursor pagination"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /users [get]
func ListUsers(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	limit, cursor, offset := parsePaginationParams(c)
	query := db.Model(&model.User{})
	if filterClause, filterArgs := buildKeywordFilter(c.Query("keyword")); filterClause != "" {
		query = query.Where(filterClause, filterArgs...)
	}
	if raw := c.Query("role"); raw != "" {
		role, err := model.ParseRole(raw)
		if err != nil {
			util.CallUserError(c, util.APIErrorParams{Msg: "Invalid role filter", Err: err})
			return
		}
		query = query.Where("role = ?", role)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to count users", Err: err})
		return
	}

	// One extra row tells whether another page exists.
	query = applyPaginationQuery(query, cursor, offset)
	var users []model.User
	if err := query.Order("id ASC").Limit(limit + 1).Find(&users).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve users", Err: err})
		return
	}

	hasMore := len(users) > limit
	if hasMore {
		users = users[:limit]
	}
	var nextCursor *uint
	if hasMore {
		lastID := users[len(users)-1].ID
		nextCursor = &lastID
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Users retrieved",
		Data: map[string]interface{}{
			"users":         users,
			"total":         total,
			"total_fetched": len(users),
			"has_more":      hasMore,
			"next_cursor":   nextCursor,
		},
	})
}

// ListHelpers godoc
// @Summary      List helpers
// @Description  Public list of HELPER accounts
// @Tags         Users
// @Produce      json
// @Success      200 {object} util.APIResponse{data=[]model.User} "Helpers"
// @Router       /users/helpers [get]
func ListHelpers(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	var helpers []model.User
	if err := db.Where("role = ?", model.RoleHelper).Order("name ASC").Order("id ASC").Find(&helpers).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve helpers", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Helpers retrieved", Data: helpers})
}

// SyncResult summarizes a helper to professional sync.
type SyncResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// syncHelpersToProfessionals creates a professional for every HELPER that has
// none, all in one transaction.
func syncHelpersToProfessionals(db *gorm.DB) (SyncResult, error) {
	var result SyncResult
	err := db.Transaction(func(tx *gorm.DB) error {
		var helpers []model.User
		if err := tx.Where("role = ?", model.RoleHelper).Order("id ASC").Find(&helpers).Error; err != nil {
			return err
		}
		linked := tx.Unscoped().Model(&model.Professional{}).Select("user_id").Where("user_id IS NOT NULL")
		var missing []model.User
		if err := tx.Where("role = ? AND id NOT IN (?)", model.RoleHelper, linked).Order("id ASC").Find(&missing).Error; err != nil {
			return err
		}
		for i := range missing {
			u := missing[i]
			pro := model.Professional{
				UserID:             &u.ID,
				Name:               u.Name,
				AvatarURL:          u.AvatarURL,
				Active:             true,
				RegistrationStatus: model.RegistrationApproved,
			}
			if err := tx.Create(&pro).Error; err != nil {
				return err
			}
		}
		result = SyncResult{Created: len(missing), Skipped: len(helpers) - len(missing)}
		return nil
	})
	return result, err
}

// SyncHelpersToProfessionals godoc
// @Summary      Sync helpers to professionals (admin only)
// @Description  Create a professional profile for every HELPER that does not have one
// @Tags         Users
// @Produce      json
// @Security     BearerAuth
// @Security     SessionToken
// @Success      200 {object} util.APIResponse{data=SyncResult} "Sync summary"
// @Router       /users/sync-helpers-to-pros [post]
func SyncHelpersToProfessionals(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	result, err := syncHelpersToProfessionals(db)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to sync helpers", Err: err})
		return
	}
	if result.Created > 0 {
		invalidateProfessionalList()
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Helpers synced", Data: result})
}

// AdminUpdateUser godoc
// @Summary      Update other user's profile (admin only)
// @Description  Admins can update another user's name, email, avatar, role and password
// @Tags         Users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Security     SessionToken
// @Param        id path int true "User ID"
// @Param        request body UpdateUserRequest true "Update details"
// @Success      200 {object} util.APIResponse "Update successful"
// @Failure      400 {object} util.APIResponse "Invalid request"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      404 {object} util.APIResponse "User not found"
// @Failure      409 {object} util.APIResponse "Email already exists"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /users/{id} [patch]
func AdminUpdateUser(c *gin.Context) {
	uid, err := parseIDParam(c)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: err.Error(), Err: err})
		return
	}
	req, ok := bindUpdateUserRequest(c)
	if !ok {
		return
	}
	if !requireUpdateFields(c, req) {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	user, ok := fetchUserByID(c, db, uid)
	if !ok {
		return
	}
	performUserUpdate(c, db, user, &req, true)
}

// parseIDParam parses the "id" path parameter into a uint and returns an error if invalid.
func parseIDParam(c *gin.Context) (uint, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("id must be a valid integer")
	}
	if id <= 0 {
		return 0, fmt.Errorf("id must be a positive integer")
	}
	return uint(id), nil
}

// emailExists checks whether an email already exists in users table excluding a given user ID.
// Soft-deleted rows count: they still hold the unique index.
func emailExists(db *gorm.DB, email string, excludeID uint) (bool, error) {
	var count int64
	if err := db.Unscoped().Model(&model.User{}).Where("email = ? AND id <> ?", model.NormalizeEmail(email), excludeID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// parsePaginationParams extracts and validates limit, cursor, and offset query parameters.
func parsePaginationParams(c *gin.Context) (limit int, cursor uint, offset int) {
	limit = parsePositiveInt(c.Query("limit"), 10, 100)
	cursor = parseUintQuery(c, "cursor")
	offset = parsePositiveInt(c.Query("offset"), 0, 0)
	return limit, cursor, offset
}

// parsePositiveInt parses a positive integer from a query value returning a default
// when the value is missing or invalid. If max > 0 it caps the returned value.
func parsePositiveInt(q string, defaultVal, max int) int {
	if q == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(q)
	if err != nil || v <= 0 {
		return defaultVal
	}
	if max > 0 && v > max {
		return max
	}
	return v
}

// parseUintQuery parses an unsigned integer query parameter and returns 0 on error.
func parseUintQuery(c *gin.Context, name string) uint {
	s := c.Query(name)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil || v == 0 {
		return 0
	}
	return uint(v)
}

// fetchUserByID retrieves a user by ID, returning appropriate error responses for not found or DB errors.
func fetchUserByID(c *gin.Context, db *gorm.DB, userID uint) (*model.User, bool) {
	var user model.User
	if err := db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.CallErrorNotFound(c, util.APIErrorParams{Msg: "User not found", Err: err})
			return nil, false
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve user", Err: err})
		return nil, false
	}
	return &user, true
}

// applyPaginationQuery applies cursor or offset-based pagination to a query.
func applyPaginationQuery(query *gorm.DB, cursor uint, offset int) *gorm.DB {
	if cursor > 0 {
		return query.Where("id > ?", cursor)
	}
	if offset > 0 {
		return query.Offset(offset)
	}
	return query
}

// buildKeywordFilter returns the keyword filter string for search queries.
func buildKeywordFilter(keyword string) (string, []interface{}) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return "", nil
	}
	kw := "%" + keyword + "%"
	return "(name LIKE ? OR email LIKE ?)", []interface{}{kw, kw}
}

// GetUserInfo godoc
// @Summary      Get user info (admin only)
// @Description  Retrieve a user's information by ID. Admin-only access.
// @Tags         Users
// @Produce      json
// @Security     BearerAuth
// @Security     SessionToken
// @Param        id path int true "User ID"
// @Success      200 {object} util.APIResponse "User retrieved"
// @Failure      400 {object} util.APIResponse "Invalid user id"
// @Failure      404 {object} util.APIResponse "User not found"
// @Router       /users/{id} [get]
func GetUserInfo(c *gin.Context) {
	uid, err := parseIDParam(c)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: err.Error(), Err: err})
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	user, ok := fetchUserByID(c, db, uid)
	if !ok {
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "User retrieved", Data: user})
}

// deleteUserWithSessions soft-deletes a user with their sessions and
// deactivates any linked professional, atomically.
func deleteUserWithSessions(db *gorm.DB, userID uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		user := &model.User{}
		if err := tx.First(user, userID).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&model.Session{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Professional{}).Where("user_id = ?", userID).Update("active", false).Error; err != nil {
			return err
		}
		return tx.Delete(user).Error
	})
}

// DeleteUser godoc
// @Summary      Delete user (admin only)
// @Description  Soft-delete a user by ID and revoke their sessions. Admin-only access.
// @Tags         Users
// @Produce      json
// @Security     BearerAuth
// @Security     SessionToken
// @Param        id path int true "User ID"
// @Success      200 {object} util.APIResponse "User deleted"
// @Failure      400 {object} util.APIResponse "Invalid user id"
// @Failure      404 {object} util.APIResponse "User not found"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /users/{id} [delete]
func DeleteUser(c *gin.Context) {
	uid, err := parseIDParam(c)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: err.Error(), Err: err})
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	if err := deleteUserWithSessions(db, uid); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.CallErrorNotFound(c, util.APIErrorParams{Msg: "User not found", Err: err})
			return
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to delete user", Err: err})
		return
	}

	_ = util.InvalidateUserSessions(c.Request.Context(), uid)
	util.ForgetUserEmail(uid)
	invalidateProfessionalList()
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "User deleted"})
}

func bindUpdateUserRequest(c *gin.Context) (UpdateUserRequest, bool) {
	var req UpdateUserRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return UpdateUserRequest{}, false
	}
	return req, true
}

func requireUpdateFields(c *gin.Context, req UpdateUserRequest) bool {
	if validateUpdateRequest(&req) {
		return true
	}
	util.CallUserError(c, util.APIErrorParams{
		Msg: "At least one field (name, email, avatar_url, role or password) must be provided",
		Err: fmt.Errorf("no fields to update"),
	})
	return false
}
