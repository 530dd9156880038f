package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppointment_Overlaps(t *testing.T) {
	base := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	appt := Appointment{StartAt: base, EndAt: base.Add(time.Hour), Status: AppointmentScheduled}

	tests := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{"identical", base, base.Add(time.Hour), true},
		{"inside", base.Add(15 * time.Minute), base.Add(30 * time.Minute), true},
		{"covers", base.Add(-time.Hour), base.Add(2 * time.Hour), true},
		{"tail overlap", base.Add(30 * time.Minute), base.Add(90 * time.Minute), true},
		{"touching after", base.Add(time.Hour), base.Add(2 * time.Hour), false},
		{"touching before", base.Add(-time.Hour), base, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, appt.Overlaps(tt.start, tt.end))
		})
	}

	appt.Status = AppointmentCancelled
	assert.False(t, appt.Overlaps(base, base.Add(time.Hour)))
}

func TestAppointmentModel_PreloadsSummaries(t *testing.T) {
	db := setupTestDB(t, "appointment_preload", &User{}, &Professional{}, &Appointment{})

	user := User{Name: "Paciente", Email: "paciente@test.com", Password: "hash"}
	require.NoError(t, db.Create(&user).Error)
	pro := Professional{Name: "Dr. Lucas", Specialty: "Psicanálise", Active: true, RegistrationStatus: RegistrationApproved}
	require.NoError(t, db.Create(&pro).Error)

	start := time.Date(2025, 3, 10, 13, 0, 0, 0, time.UTC)
	appt := Appointment{UserID: user.ID, ProfessionalID: pro.ID, StartAt: start, EndAt: start.Add(time.Hour)}
	require.NoError(t, db.Create(&appt).Error)

	var found Appointment
	require.NoError(t, db.Preload("User").Preload("Professional").First(&found, appt.ID).Error)
	assert.Equal(t, AppointmentScheduled, found.Status)
	require.NotNil(t, found.User)
	assert.Equal(t, "paciente@test.com", found.User.Email)
	require.NotNil(t, found.Professional)
	assert.Equal(t, "Psicanálise", found.Professional.Specialty)
	assert.True(t, found.StartAt.Equal(start))
}
