package model

import (
	"time"

	"gorm.io/gorm"
)

// ChatSender identifies the author side of a stored chat message.
type ChatSender string

const (
	SenderUser ChatSender = "user"
	SenderBot  ChatSender = "bot"
)

type ChatMessage struct {
	gorm.Model
	UserID    uint       `json:"user_id" gorm:"not null;index:idx_chat_user_time,priority:1"`
	Text      string     `json:"text" gorm:"type:text;not null"`
	Sender    ChatSender `json:"sender" gorm:"type:varchar(8);not null"`
	Timestamp time.Time  `json:"timestamp" gorm:"not null;index:idx_chat_user_time,priority:2"`
}
