package model

import "time"

// AppointmentStatus is the lifecycle state of a booking.
type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "SCHEDULED"
	AppointmentCancelled AppointmentStatus = "CANCELLED"
)

// Appointment is a booking of a professional by a user over [StartAt, EndAt).
// Appointments are never hard-deleted; cancellation is a status change.
type Appointment struct {
	ID             uint                 `json:"id" gorm:"primaryKey"`
	UserID         uint                 `json:"user_id" gorm:"not null;index:idx_appointments_user_window,priority:1"`
	ProfessionalID uint                 `json:"professional_id" gorm:"not null;index:idx_appointments_professional_window,priority:1"`
	StartAt        time.Time            `json:"start_at" gorm:"not null;index:idx_appointments_user_window,priority:2;index:idx_appointments_professional_window,priority:2"`
	EndAt          time.Time            `json:"end_at" gorm:"not null"`
	Status         AppointmentStatus    `json:"status" gorm:"type:varchar(16);not null;default:SCHEDULED;index"`
	Notes          *string              `json:"notes"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
	User           *UserSummary         `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Professional   *ProfessionalSummary `json:"professional,omitempty" gorm:"foreignKey:ProfessionalID"`
}

// Overlaps reports whether the appointment blocks the window [start, end).
// Touching endpoints do not overlap.
func (a *Appointment) Overlaps(start, end time.Time) bool {
	return a.Status != AppointmentCancelled && a.StartAt.Before(end) && a.EndAt.After(start)
}

// UserSummary is the public projection of a user attached to an agenda entry.
type UserSummary struct {
	ID    uint   `json:"id"`
	Name  string `json:"name" gorm:"type:varchar(191)"`
	Email string `json:"email" gorm:"type:varchar(191)"`
}

func (UserSummary) TableName() string { return "users" }

// ProfessionalSummary is the projection of a professional attached to a booking.
type ProfessionalSummary struct {
	ID        uint   `json:"id"`
	Name      string `json:"name" gorm:"type:varchar(191)"`
	Specialty string `json:"specialty" gorm:"type:varchar(191)"`
}

func (ProfessionalSummary) TableName() string { return "professionals" }
