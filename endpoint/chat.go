package endpoint

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fernanda-avila/MIndCare2025/model"
	"github.com/fernanda-avila/MIndCare2025/util"
	"github.com/gin-gonic/gin"
)

const maxChatMessages = 500

type ChatMessageRequest struct {
	Text      string  `json:"text" binding:"required,max=4000" example:"Olá, preciso de ajuda"`
	Sender    string  `json:"sender" binding:"required,oneof=user bot" example:"user"`
	Timestamp *string `json:"timestamp" binding:"omitempty" example:"2030-01-15T10:00:00Z"`
}

// ListChatMessages godoc
// @Summary      Chat history
// @Description  The caller's stored chat messages, oldest first. ADMIN may read another user's history with user_id.
// @Tags         Chat
// @Produce      json
// @Security     BearerAuth
// @Security     SessionToken
// @Param        user_id query int false "Owner of the history (ADMIN only)"
// @Success      200 {object} util.APIResponse{data=[]model.ChatMessage} "Messages"
// @Failure      403 {object} util.APIResponse "Forbidden"
// @Router       /chat [get]
func ListChatMessages(c *gin.Context) {
	actor, ok := actorOrRespond(c)
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	ownerID := actor.UserID
	if raw := c.Query("user_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || id == 0 {
			util.CallUserError(c, util.APIErrorParams{Msg: "user_id must be a positive integer", Err: fmt.Errorf("invalid user_id %q", raw)})
			return
		}
		if uint(id) != actor.UserID && actor.Role != model.RoleAdmin {
			util.CallForbidden(c, util.APIErrorParams{Msg: "You can only read your own messages", Err: fmt.Errorf("chat history of user %d", id)})
			return
		}
		ownerID = uint(id)
	}

	var msgs []model.ChatMessage
	err := db.Where("user_id = ?", ownerID).
		Order("timestamp ASC").Order("id ASC").
		Limit(maxChatMessages).
		Find(&msgs).Error
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve messages", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Messages retrieved", Data: msgs})
}

// CreateChatMessage godoc
// @Summary      Store chat message
// @Description  Persist a chat message for the caller. The timestamp defaults to now.
// @Tags         Chat
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Security     SessionToken
// @Param        request body ChatMessageRequest true "Message"
// @Success      201 {object} util.APIResponse{data=model.ChatMessage} "Message stored"
// @Failure      400 {object} util.APIResponse "Invalid message"
// @Router       /chat [post]
func CreateChatMessage(c *gin.Context) {
	var req ChatMessageRequest
	if !bindJSONOrRespond(c, &req, "Invalid chat message") {
		return
	}
	actor, ok := actorOrRespond(c)
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		util.CallUserError(c, util.APIErrorParams{Msg: "Message text cannot be empty", Err: fmt.Errorf("empty text")})
		return
	}
	ts := time.Now().UTC()
	if req.Timestamp != nil {
		parsed, err := util.ParseInstant(*req.Timestamp)
		if err != nil {
			util.CallUserError(c, util.APIErrorParams{Msg: "Invalid timestamp", Err: err})
			return
		}
		ts = parsed
	}

	msg := model.ChatMessage{
		UserID:    actor.UserID,
		Text:      text,
		Sender:    model.ChatSender(req.Sender),
		Timestamp: ts,
	}
	if err := db.Create(&msg).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to store message", Err: err})
		return
	}
	util.CallCreated(c, util.APISuccessParams{Msg: "Message stored", Data: msg})
}
