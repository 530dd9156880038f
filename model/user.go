package model

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// User is an account holder. Email is stored lowercased.
type User struct {
	gorm.Model
	Name           string `json:"name" gorm:"type:varchar(191)" example:"Maria Silva"`
	Email          string `json:"email" gorm:"type:varchar(191);uniqueIndex;not null" example:"maria@example.com"`
	Password       string `json:"-" gorm:"type:varchar(255);not null"`
	PasswordSalt   string `json:"-" gorm:"type:varchar(64)"`
	Role           Role   `json:"role" gorm:"type:varchar(16);not null;default:USER;index" example:"USER"`
	AvatarURL      string `json:"avatar_url" gorm:"column:avatar_url;type:varchar(512)"`
	FailedAttempts int    `json:"-" gorm:"default:0"`
	LockedUntil    *int64 `json:"-"`
}

// BeforeSave keeps the unique email column case-insensitive.
func (u *User) BeforeSave(tx *gorm.DB) error {
	u.Email = NormalizeEmail(u.Email)
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Session is a persisted login. It backs the Redis session cache.
type Session struct {
	gorm.Model
	SessionToken string    `json:"session_token" gorm:"type:varchar(512);uniqueIndex;not null"`
	UserID       uint      `json:"user_id" gorm:"index;not null"`
	ExpiresAt    time.Time `json:"expires_at"`
	ClientIP     string    `json:"client_ip" gorm:"type:varchar(45)"`
	Browser      string    `json:"browser" gorm:"type:varchar(512)"`
}
