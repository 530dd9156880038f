package model

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// RegistrationStatus tracks a professional's onboarding review.
type RegistrationStatus string

const (
	RegistrationPending  RegistrationStatus = "PENDING"
	RegistrationApproved RegistrationStatus = "APPROVED"
	RegistrationRejected RegistrationStatus = "REJECTED"
)

// ErrInvalidTransition is returned when a registration review is applied to
// a professional that is no longer pending.
var ErrInvalidTransition = errors.New("invalid registration transition")

// Professional is a bookable provider, optionally linked to a user account.
// @Description Professional profile
type Professional struct {
	gorm.Model
	UserID             *uint              `json:"user_id" gorm:"uniqueIndex"`
	Name               string             `json:"name" gorm:"type:varchar(191);not null" example:"Dra. Ana Costa"`
	Specialty          string             `json:"specialty" gorm:"type:varchar(191)" example:"Psicologia clínica"`
	Bio                string             `json:"bio" gorm:"type:text"`
	CRP                string             `json:"crp" gorm:"column:crp;type:varchar(32)" example:"06/123456"`
	AvatarURL          string             `json:"avatar_url" gorm:"column:avatar_url;type:varchar(512)"`
	Active             bool               `json:"active" gorm:"not null;index"`
	RegistrationStatus RegistrationStatus `json:"registration_status" gorm:"type:varchar(16);not null;default:PENDING;index"`
}

// LinkedTo reports whether the professional profile belongs to userID.
func (p *Professional) LinkedTo(userID uint) bool {
	return p.UserID != nil && *p.UserID == userID
}

// Approve moves a pending registration to APPROVED and activates it.
func (p *Professional) Approve() error {
	if p.RegistrationStatus != RegistrationPending {
		return fmt.Errorf("%w: professional %d is %s", ErrInvalidTransition, p.ID, p.RegistrationStatus)
	}
	p.RegistrationStatus = RegistrationApproved
	p.Active = true
	return nil
}

// Reject moves a pending registration to REJECTED and deactivates it.
func (p *Professional) Reject() error {
	if p.RegistrationStatus != RegistrationPending {
		return fmt.Errorf("%w: professional %d is %s", ErrInvalidTransition, p.ID, p.RegistrationStatus)
	}
	p.RegistrationStatus = RegistrationRejected
	p.Active = false
	return nil
}
