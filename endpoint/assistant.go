package endpoint

import (
	"fmt"
	"time"

	"github.com/fernanda-avila/MIndCare2025/assistant"
	"github.com/fernanda-avila/MIndCare2025/middleware"
	"github.com/fernanda-avila/MIndCare2025/model"
	"github.com/fernanda-avila/MIndCare2025/util"
	"github.com/gin-gonic/gin"
)

type AssistantRequest struct {
	Prompt string `json:"prompt" binding:"required" example:"Como lidar com ansiedade antes de dormir?"`
}

// AskAssistant godoc
// @Summary      Ask the assistant
// @Description  Forward a prompt to the configured text generation providers. Provider failures degrade to a message instead of an error. The exchange is stored in the caller's chat history.
// @Tags         Assistant
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Security     SessionToken
// @Param        request body AssistantRequest true "Prompt"
// @Success      200 {object} util.APIResponse{data=assistant.Reply} "Reply"
// @Failure      400 {object} util.APIResponse "Invalid prompt"
// @Failure      429 {object} util.APIResponse "Too many requests"
// @Router       /assistant [post]
func AskAssistant(a *assistant.Assistant) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AssistantRequest
		if !bindJSONOrRespond(c, &req, "Invalid assistant request") {
			return
		}
		prompt, err := assistant.ValidatePrompt(req.Prompt)
		if err != nil {
			util.CallUserError(c, util.APIErrorParams{Msg: "Invalid prompt", Err: err})
			return
		}

		reply := a.Reply(c.Request.Context(), prompt)

		if uid, ok := middleware.GetUserID(c); ok {
			if db := middleware.GetDB(c); db != nil {
				now := time.Now().UTC()
				history := []model.ChatMessage{
					{UserID: uid, Text: prompt, Sender: model.SenderUser, Timestamp: now},
					{UserID: uid, Text: reply.Text, Sender: model.SenderBot, Timestamp: now.Add(time.Millisecond)},
				}
				if err := db.Create(&history).Error; err != nil {
					util.LogSecurityEvent(util.SecurityEvent{
						EventType: util.EventSuspiciousActivity,
						UserID:    fmt.Sprintf("%d", uid),
						IP:        c.ClientIP(),
						RequestID: middleware.GetRequestID(c),
						Message:   fmt.Sprintf("Failed to store assistant exchange: %v", err),
					})
				}
			}
		}

		util.CallSuccessOK(c, util.APISuccessParams{Msg: "Assistant reply", Data: reply})
	}
}
