package model

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Models lists every table owned by the API in migration order.
var Models = []interface{}{
	&User{},
	&Session{},
	&Professional{},
	&Appointment{},
	&ChatMessage{},
	&SecurityLog{},
}

// Exclusion constraint names. The scheduling store maps violations of these to
// a booking conflict.
const (
	ProfessionalNoOverlapConstraint = "appointments_professional_no_overlap"
	UserNoOverlapConstraint         = "appointments_user_no_overlap"
)

// Migrate creates or updates the schema. On PostgreSQL it also installs the
// exclusion constraints that forbid overlapping active bookings.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if db.Dialector.Name() == "postgres" {
		return migrateOverlapConstraints(db)
	}
	return nil
}

func migrateOverlapConstraints(db *gorm.DB) error {
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS btree_gist").Error; err != nil {
		return fmt.Errorf("enable btree_gist: %w", err)
	}
	constraints := map[string]string{
		ProfessionalNoOverlapConstraint: "professional_id",
		UserNoOverlapConstraint:         "user_id",
	}
	for name, column := range constraints {
		var count int64
		if err := db.Raw("SELECT COUNT(*) FROM pg_constraint WHERE conname = ?", name).Scan(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		stmt := fmt.Sprintf(
			`ALTER TABLE appointments ADD CONSTRAINT %s EXCLUDE USING gist (%s WITH =, tstzrange(start_at, end_at, '[)') WITH &&) WHERE (status <> '%s')`,
			name, column, AppointmentCancelled,
		)
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("add constraint %s: %w", name, err)
		}
	}
	return nil
}

// SeedAdmin creates the given administrator account unless a user with the
// same email already exists. The password must already be hashed.
func SeedAdmin(db *gorm.DB, admin User) error {
	admin.Email = NormalizeEmail(admin.Email)
	if admin.Email == "" || admin.Password == "" {
		return nil
	}
	var existing User
	err := db.Where("email = ?", admin.Email).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	admin.Role = RoleAdmin
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to seed admin %s: %w", admin.Email, err)
	}
	return nil
}
