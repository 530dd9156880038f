package endpoint

import (
	"fmt"
	"time"

	"github.com/fernanda-avila/MIndCare2025/middleware"
	"github.com/fernanda-avila/MIndCare2025/model"
	"github.com/fernanda-avila/MIndCare2025/util"
	"github.com/gin-gonic/gin"
)

// TokenStatus describes a live session.
type TokenStatus struct {
	UserID    uint       `json:"user_id"`
	Role      model.Role `json:"role"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// ValidateToken godoc
// @Summary      Validate session token
// @Description  Validate if the session token is valid and not expired
// @Tags         Authentication
// @Produce      json
// @Security     BearerAuth
// @Security     SessionToken
// @Success      200 {object} util.APIResponse{data=TokenStatus} "Valid session token"
// @Failure      401 {object} util.APIResponse "Invalid or expired session token"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /token/validate [get]
func ValidateToken(c *gin.Context) {
	sessionToken := middleware.SessionToken(c)
	if sessionToken == "" {
		util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: "Invalid session token", Err: fmt.Errorf("session token not provided")})
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	claims, err := util.ParseSessionToken(sessionToken)
	if err != nil {
		util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: "Invalid session token", Err: err})
		return
	}

	var result struct {
		UserID    uint
		Role      model.Role
		ExpiresAt time.Time
	}
	err = db.Table("sessions").
		Select("sessions.user_id, sessions.expires_at, users.role").
		Joins("JOIN users ON sessions.user_id = users.id AND users.deleted_at IS NULL").
		Where("sessions.session_token = ? AND sessions.expires_at > ? AND sessions.deleted_at IS NULL", sessionToken, time.Now().UTC()).
		Take(&result).Error
	if err != nil {
		util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: "Session not found", Err: err})
		return
	}
	if uid, err := claims.UserID(); err != nil || uid != result.UserID {
		util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: "Invalid session token", Err: fmt.Errorf("token subject mismatch")})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Valid session token",
		Data: TokenStatus{UserID: result.UserID, Role: result.Role, ExpiresAt: result.ExpiresAt},
	})
}
